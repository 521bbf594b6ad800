package importer

import (
	"fmt"
	"path"
	"strings"

	"golang.org/x/net/html"

	"github.com/sleroq/notion-to-obsidian/internal/domain/notion"
	"github.com/sleroq/notion-to-obsidian/internal/infra/mdrender"
)

// RewriteLinks replaces each classified anchor with an Obsidian wikilink.
// Anchors removed from the tree by earlier rewrites are skipped.
func RewriteLinks(links []notion.Link, reg *Registry, embedAttachments bool) []notion.Diagnostic {
	var diags []notion.Diagnostic
	for _, link := range links {
		a := link.Anchor()
		if a == nil || !attached(a) {
			continue
		}
		switch l := link.(type) {
		case notion.RelationLink:
			doc, ok := reg.ResolveDocument(l.TargetID)
			if !ok {
				name := danglingName(a)
				replaceNode(a, mdrender.NewInline("[["+name+"]]"))
				diags = append(diags, notion.Diagnostic{
					Kind:    notion.DiagDanglingRelation,
					Target:  l.TargetID,
					Message: fmt.Sprintf("link to page %q not found in export", name),
				})
				continue
			}
			replaceNode(a, mdrender.NewInline(documentLink(reg, doc, inTableCell(a))))
		case notion.AttachmentLink:
			att, ok := reg.ResolveAttachment(l.TargetPath)
			if !ok {
				diags = append(diags, notion.Diagnostic{
					Kind:    notion.DiagDanglingAttachment,
					Target:  l.TargetPath,
					Message: fmt.Sprintf("attachment %q not found in export", l.TargetPath),
				})
				continue
			}
			text := attachmentLink(reg, att, inTableCell(a))
			if embedAttachments {
				text = "!" + text
			}
			replaceNode(a, mdrender.NewInline(text))
		}
	}
	return diags
}

func documentLink(reg *Registry, doc notion.DocumentInfo, inTable bool) string {
	if !doc.FullLinkPathNeeded {
		return "[[" + doc.Title + "]]"
	}
	return "[[" + vaultPath(reg.OutputFolder(doc)+doc.Title) + aliasSeparator(inTable) + doc.Title + "]]"
}

func attachmentLink(reg *Registry, att notion.AttachmentInfo, inTable bool) string {
	name := att.NameWithExtension
	if !att.FullLinkPathNeeded {
		return "[[" + name + "]]"
	}
	target := att.TargetParentFolder + name
	if root := strings.Trim(reg.Config().AttachmentRoot, "/"); root != "" {
		target = root + "/" + target
	}
	return "[[" + vaultPath(target) + aliasSeparator(inTable) + name + "]]"
}

// vaultPath anchors a vault-root target with a leading slash; a bare name
// would resolve like a short link.
func vaultPath(target string) string {
	if !strings.Contains(target, "/") {
		return "/" + target
	}
	return target
}

func aliasSeparator(inTable bool) string {
	if inTable {
		return `\|`
	}
	return "|"
}

// inTableCell reports whether n sits in a markdown table. The page's own
// properties table becomes front matter, not a table.
func inTableCell(n *html.Node) bool {
	table := closest(n, byTag("table"))
	return table != nil && !hasClass(table, "properties")
}

func danglingName(a *html.Node) string {
	href, _ := attrValue(a, "href")
	target := stripQueryAndFragment(decodeTarget(href))
	base := path.Base(target)
	base = strings.TrimSuffix(base, path.Ext(base))
	return notion.StripID(base)
}
