package importer

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/sleroq/notion-to-obsidian/internal/domain/notion"
	"github.com/sleroq/notion-to-obsidian/internal/infra/mdrender"
)

const (
	nbsp    = "\u00a0"
	emSpace = "\u2003"
)

func stripDateMarkers(root *html.Node) {
	for _, t := range collect(root, byTag("time")) {
		for _, text := range collect(t, func(n *html.Node) bool { return n.Type == html.TextNode }) {
			if strings.Contains(text.Data, "@") {
				text.Data = strings.TrimLeft(strings.ReplaceAll(text.Data, "@", ""), " ")
			}
		}
	}
}

func inCode(n *html.Node) bool {
	return inside(n, "pre", "code")
}

// textNodes lists text nodes that carry content and are subject to
// whitespace encoding: code and literal nodes are excluded.
func textNodes(root *html.Node) []*html.Node {
	return collect(root, func(n *html.Node) bool {
		return n.Type == html.TextNode && strings.TrimSpace(n.Data) != "" && !inCode(n) && !insideLiteral(n)
	})
}

// encodeNewlines turns soft line breaks typed in Notion into <br>, preceded by
// the configured marker. Inside code, <br> goes back to a newline.
func encodeNewlines(root *html.Node, markers notion.WhitespaceMarkers) {
	for _, br := range collect(root, byTag("br")) {
		if inCode(br) {
			replaceNode(br, newText("\n"))
		}
	}
	for _, text := range textNodes(root) {
		if !strings.Contains(text.Data, "\n") {
			continue
		}
		lines := strings.Split(text.Data, "\n")
		var nodes []*html.Node
		for i, line := range lines {
			if i > 0 {
				if markers.ShiftEnter != "" {
					nodes = append(nodes, mdrender.NewInline(markers.ShiftEnter))
				}
				nodes = append(nodes, newElement("br"))
			}
			if line != "" {
				nodes = append(nodes, newText(line))
			}
		}
		replaceNode(text, nodes...)
	}
}

// unwrapEquations replaces rendered KaTeX with its TeX source.
func unwrapEquations(root *html.Node) {
	for _, katex := range collect(root, byClass("katex")) {
		if !attached(katex) {
			continue
		}
		tex := ""
		if ann := findFirst(katex, byTag("annotation")); ann != nil {
			tex = strings.TrimSpace(textOf(ann))
		}
		target := katex
		if display := closest(katex, byClass("katex-display")); display != nil {
			target = display
		}
		replaceNode(target, mdrender.NewInline("$"+tex+"$"))
	}
}

var indentContainers = map[string]bool{
	"ul": true, "ol": true, "li": true, "div": true, "blockquote": true, "figure": true, "details": true,
}

// markIndentedBlocks marks the first line of nested child blocks with the
// indented-block marker and hoists the children out of their wrapper.
func markIndentedBlocks(root *html.Node, markers notion.WhitespaceMarkers) {
	for _, div := range collect(root, func(n *html.Node) bool { return isElement(n, "div") && hasClass(n, "indented") }) {
		if markers.IndentedBlocks != "" {
			if target := indentTarget(div); target != nil {
				if target.Type == html.ElementNode {
					prependChild(target, mdrender.NewInline(markers.IndentedBlocks))
				} else {
					target.Parent.InsertBefore(mdrender.NewInline(markers.IndentedBlocks), target)
				}
			}
		}
		unwrap(div)
	}
}

func indentTarget(div *html.Node) *html.Node {
	var target *html.Node
	for c := div.FirstChild; c != nil; c = c.NextSibling {
		if !isBlank(c) {
			target = c
			break
		}
	}
	for target != nil && target.Type == html.ElementNode && indentContainers[target.Data] && !hasClass(target, "indented") {
		child := firstElementChild(target)
		if child == nil {
			break
		}
		target = child
	}
	return target
}

var blockTags = map[string]bool{
	"p": true, "div": true, "li": true, "td": true, "th": true, "blockquote": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"summary": true, "figcaption": true, "body": true,
}

func startsLine(n *html.Node) bool {
	prev := n.PrevSibling
	for prev != nil && mdrender.IsLiteral(prev) {
		prev = prev.PrevSibling
	}
	if prev == nil {
		return n.Parent != nil && n.Parent.Type == html.ElementNode && blockTags[n.Parent.Data]
	}
	return isElement(prev, "br")
}

// encodeWhitespace keeps spacing the serializer would otherwise collapse:
// leading spaces become the leading-space marker, runs of two or more
// interior spaces become non-breaking spaces and tabs become em spaces.
func encodeWhitespace(root *html.Node, markers notion.WhitespaceMarkers) {
	for _, text := range textNodes(root) {
		data := text.Data
		if startsLine(text) {
			trimmed := strings.TrimLeft(data, " ")
			if lead := len(data) - len(trimmed); lead > 0 {
				data = trimmed
				if markers.LeadingSpaces != "" {
					text.Parent.InsertBefore(mdrender.NewInline(strings.Repeat(markers.LeadingSpaces, lead)), text)
				} else {
					data = strings.Repeat(nbsp, lead) + data
				}
			}
		}
		data = strings.ReplaceAll(data, "\t", emSpace)
		text.Data = encodeSpaceRuns(data)
	}
}

func encodeSpaceRuns(s string) string {
	if !strings.Contains(s, "  ") {
		return s
	}
	var b strings.Builder
	run := 0
	flush := func() {
		if run >= 2 {
			b.WriteString(strings.Repeat(nbsp, run))
		} else if run == 1 {
			b.WriteByte(' ')
		}
		run = 0
	}
	for _, r := range s {
		if r == ' ' {
			run++
			continue
		}
		flush()
		b.WriteRune(r)
	}
	flush()
	return b.String()
}
