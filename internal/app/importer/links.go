package importer

import (
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	"github.com/sleroq/notion-to-obsidian/internal/domain/notion"
)

// Classify finds every anchor below root that points at another page of the
// export or at one of its attachments, in document order. Anchors that are
// neither are left out and stay ordinary links.
func Classify(root *html.Node, reg *Registry) []notion.Link {
	var links []notion.Link
	for _, a := range collect(root, byTag("a")) {
		href, ok := attrValue(a, "href")
		if !ok || strings.TrimSpace(href) == "" {
			continue
		}
		target := decodeTarget(href)
		if target == "" {
			continue
		}
		if id, ok := notion.ExtractID(target); ok && isPageReference(target) {
			links = append(links, notion.RelationLink{TargetID: id, Element: a})
			continue
		}
		if p, ok := matchAttachment(reg, target); ok {
			links = append(links, notion.AttachmentLink{TargetPath: p, Element: a})
		}
	}
	return links
}

func decodeTarget(href string) string {
	target := strings.TrimSpace(href)
	if decoded, err := url.PathUnescape(target); err == nil {
		target = decoded
	}
	for {
		switch {
		case strings.HasPrefix(target, "../"):
			target = target[3:]
		case strings.HasPrefix(target, "./"):
			target = target[2:]
		default:
			return norm.NFC.String(target)
		}
	}
}

func stripQueryAndFragment(target string) string {
	if i := strings.IndexAny(target, "?#"); i >= 0 {
		return target[:i]
	}
	return target
}

func isPageReference(target string) bool {
	if hasScheme(target) {
		return false
	}
	return strings.EqualFold(path.Ext(stripQueryAndFragment(target)), ".html")
}

func hasScheme(target string) bool {
	if strings.HasPrefix(target, "//") {
		return true
	}
	i := strings.Index(target, ":")
	if i <= 0 {
		return false
	}
	for _, r := range target[:i] {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.') {
			return false
		}
	}
	return true
}

// matchAttachment prefers a registered path ending in the target and falls
// back to any path containing it.
func matchAttachment(reg *Registry, target string) (string, bool) {
	if hasScheme(target) || strings.HasPrefix(target, "#") {
		return "", false
	}
	target = stripQueryAndFragment(target)
	if target == "" {
		return "", false
	}
	var contains string
	for _, p := range reg.attachmentPaths {
		if p == target || strings.HasSuffix(p, "/"+target) {
			return p, true
		}
		if contains == "" && strings.Contains(p, target) {
			contains = p
		}
	}
	return contains, contains != ""
}
