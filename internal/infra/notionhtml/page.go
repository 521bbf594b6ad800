package notionhtml

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/sleroq/notion-to-obsidian/internal/domain/notion"
)

// ErrNoPageID is returned by ScanPage for HTML files that carry no Notion id,
// such as the index.html written at the root of some exports.
var ErrNoPageID = errors.New("page has no notion id")

func ParsePage(f notion.SourceFile) (*html.Node, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Path, err)
	}
	defer rc.Close()
	root, err := html.Parse(rc)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.Path, err)
	}
	return root, nil
}

func ScanPage(f notion.SourceFile) (notion.PageHeader, error) {
	root, err := ParsePage(f)
	if err != nil {
		return notion.PageHeader{}, err
	}
	return HeaderOf(root, f.Path)
}

// HeaderOf reads the identity of an already parsed page.
func HeaderOf(root *html.Node, sourcePath string) (notion.PageHeader, error) {
	id := ""
	if article := findFirst(root, func(n *html.Node) bool { return isElement(n, "article") }); article != nil {
		if v, ok := notion.ExtractID(attr(article, "id")); ok {
			id = v
		}
	}
	if id == "" {
		if v, ok := notion.ExtractID(path.Base(sourcePath)); ok {
			id = v
		}
	}
	if id == "" {
		return notion.PageHeader{}, fmt.Errorf("%s: %w", sourcePath, ErrNoPageID)
	}

	header := notion.PageHeader{
		ID:        id,
		Title:     pageTitle(root, sourcePath),
		ParentIDs: notion.ParentIDs(sourcePath),
	}
	header.CreatedAt = rowTimestamp(root, "created_time")
	header.ModifiedAt = rowTimestamp(root, "last_edited_time")
	return header, nil
}

func pageTitle(root *html.Node, sourcePath string) string {
	candidates := []*html.Node{
		findFirst(root, func(n *html.Node) bool { return isElement(n, "title") }),
		findFirst(root, func(n *html.Node) bool { return isElement(n, "h1") && hasClass(n, "page-title") }),
	}
	for _, n := range candidates {
		if n == nil {
			continue
		}
		if title := notion.StripID(strings.TrimSpace(textContent(n))); title != "" {
			return title
		}
	}
	base := strings.TrimSuffix(path.Base(sourcePath), path.Ext(sourcePath))
	if title := notion.StripID(base); title != "" {
		if _, isID := notion.ExtractID(title); !isID {
			return title
		}
	}
	return "Untitled"
}

func rowTimestamp(root *html.Node, kind string) *time.Time {
	row := findFirst(root, func(n *html.Node) bool {
		return isElement(n, "tr") && hasClass(n, "property-row-"+kind)
	})
	if row == nil {
		return nil
	}
	raw := ""
	if tm := findFirst(row, func(n *html.Node) bool { return isElement(n, "time") }); tm != nil {
		raw = textContent(tm)
	} else if td := findFirst(row, func(n *html.Node) bool { return isElement(n, "td") }); td != nil {
		raw = textContent(td)
	}
	t, _, ok := notion.ParseDate(raw)
	if !ok {
		return nil
	}
	return &t
}

func isElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
