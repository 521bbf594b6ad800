// Package mdrender serializes a normalized page tree to Obsidian Markdown.
//
// Elements named md-inline and md-block are literal nodes: the value of their
// data-md attribute is written to the output as-is, without escaping. The
// importer uses them for wikilinks, callout markers and other syntax the
// Markdown converter would otherwise escape.
package mdrender

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/strikethrough"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"golang.org/x/net/html"
)

const (
	InlineTag   = "md-inline"
	BlockTag    = "md-block"
	LiteralAttr = "data-md"
)

const listEndComment = "<!--THE END-->"

func NewInline(text string) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: InlineTag, Attr: []html.Attribute{{Key: LiteralAttr, Val: text}}}
}

func NewBlock(text string) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: BlockTag, Attr: []html.Attribute{{Key: LiteralAttr, Val: text}}}
}

func IsLiteral(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && (n.Data == InlineTag || n.Data == BlockTag)
}

// Literal returns the verbatim text of a literal node.
func Literal(n *html.Node) string {
	for _, a := range n.Attr {
		if a.Key == LiteralAttr {
			return a.Val
		}
	}
	return ""
}

// Renderer is not safe for concurrent use; create one per goroutine.
type Renderer struct {
	conv *converter.Converter
}

func New() *Renderer {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(
				commonmark.WithHorizontalRule("---"),
				commonmark.WithBulletListMarker("-"),
				commonmark.WithEmDelimiter("*"),
				commonmark.WithStrongDelimiter("**"),
			),
			table.NewTablePlugin(),
			strikethrough.NewStrikethroughPlugin(),
		),
	)
	conv.Register.RendererFor(InlineTag, converter.TagTypeInline, renderInline, converter.PriorityEarly)
	conv.Register.RendererFor(BlockTag, converter.TagTypeBlock, renderBlock, converter.PriorityEarly)
	return &Renderer{conv: conv}
}

// Render serializes root. The tree is modified in the process.
func (r *Renderer) Render(root *html.Node) (string, error) {
	mirrorInlineLiterals(root)
	out, err := r.conv.ConvertNode(root)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return cleanup(string(out)), nil
}

// mirrorInlineLiterals gives every empty inline literal a text child holding
// its value. Whitespace collapsing only sees text nodes, so without it the
// spaces on either side of a literal are treated as adjacent and one of them
// is dropped. The child is never rendered.
func mirrorInlineLiterals(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if c.Data == InlineTag {
			if c.FirstChild == nil {
				if v := Literal(c); v != "" {
					c.AppendChild(&html.Node{Type: html.TextNode, Data: v})
				}
			}
			continue
		}
		mirrorInlineLiterals(c)
	}
}

func renderInline(_ converter.Context, w converter.Writer, n *html.Node) converter.RenderStatus {
	_, _ = w.WriteString(Literal(n))
	return converter.RenderSuccess
}

func renderBlock(_ converter.Context, w converter.Writer, n *html.Node) converter.RenderStatus {
	_, _ = w.WriteString("\n\n")
	_, _ = w.WriteString(Literal(n))
	_, _ = w.WriteString("\n\n")
	return converter.RenderSuccess
}

func cleanup(md string) string {
	lines := strings.Split(md, "\n")
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == listEndComment {
			if i+1 < len(lines) && strings.TrimSpace(lines[i+1]) == "" {
				i++
			}
			continue
		}
		out = append(out, lines[i])
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
