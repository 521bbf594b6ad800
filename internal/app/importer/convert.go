package importer

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/sleroq/notion-to-obsidian/internal/domain/notion"
	"github.com/sleroq/notion-to-obsidian/internal/infra/mdrender"
)

type Result struct {
	Markdown    string
	Diagnostics []notion.Diagnostic
	// Base is the content of an Obsidian .base file for the databases on
	// the page, or "" when it has none.
	Base string
}

// Converter turns parsed pages into notes. A Converter is not safe for
// concurrent use; the registry it reads is.
type Converter struct {
	reg      *Registry
	renderer *mdrender.Renderer
}

func NewConverter(reg *Registry) *Converter {
	return &Converter{reg: reg, renderer: mdrender.New()}
}

type pageParts struct {
	properties  *html.Node
	body        *html.Node
	description string
}

func splitPage(root *html.Node) pageParts {
	var parts pageParts
	article := findFirst(root, byTag("article"))
	if article == nil {
		article = findFirst(root, byTag("body"))
	}
	parts.properties = findFirst(article, func(n *html.Node) bool { return isElement(n, "table") && hasClass(n, "properties") })
	if desc := findFirst(article, func(n *html.Node) bool { return isElement(n, "p") && hasClass(n, "page-description") }); desc != nil {
		parts.description = strings.TrimSpace(textOf(desc))
	}
	parts.body = findFirst(article, func(n *html.Node) bool { return isElement(n, "div") && hasClass(n, "page-body") })
	if parts.body == nil && article != nil {
		if header := findFirst(article, byTag("header")); header != nil {
			removeNode(header)
		}
		parts.body = article
	}
	return parts
}

// ConvertDocument converts one page tree. The tree is consumed. The same
// page and registry always produce the same result.
func (c *Converter) ConvertDocument(doc notion.DocumentInfo, root *html.Node) (Result, error) {
	cfg := c.reg.Config()
	parts := splitPage(root)

	var propLinks, bodyLinks []notion.Link
	for _, l := range Classify(root, c.reg) {
		switch {
		case parts.properties != nil && contains(parts.properties, l.Anchor()):
			propLinks = append(propLinks, l)
		case parts.body != nil && contains(parts.body, l.Anchor()):
			bodyLinks = append(bodyLinks, l)
		}
	}

	diags := RewriteLinks(propLinks, c.reg, false)
	props, propDiags, err := ExtractProperties(parts.properties, cfg.LenientProperties)
	if err != nil {
		return Result{}, fmt.Errorf("extract properties of %s: %w", doc.SourcePath, err)
	}
	diags = append(diags, propDiags...)

	var res Result
	body := ""
	if parts.body != nil {
		if views := databaseViews(parts.body, doc, c.reg, bodyLinks); len(views) > 0 {
			res.Base = renderBaseFile(views)
		}
		Normalize(parts.body, PipelineEnv{Config: cfg, Classified: classifiedSet(bodyLinks)})
		diags = append(diags, RewriteLinks(bodyLinks, c.reg, true)...)
		md, err := c.renderer.Render(parts.body)
		if err != nil {
			return Result{}, fmt.Errorf("render %s: %w", doc.SourcePath, err)
		}
		body = PostProcess(md, cfg.SingleLineBreaks)
	}

	fm, err := EncodeFrontmatter(props)
	if err != nil {
		return Result{}, fmt.Errorf("front matter of %s: %w", doc.SourcePath, err)
	}

	var sections []string
	if parts.description != "" {
		sections = append(sections, parts.description)
	}
	if strings.TrimSpace(body) != "" {
		sections = append(sections, body)
	}
	res.Markdown = fm + strings.Join(sections, "\n\n")
	if len(sections) > 0 {
		res.Markdown += "\n"
	}

	for i := range diags {
		diags[i].DocumentID = doc.ID
	}
	res.Diagnostics = diags
	return res, nil
}

func contains(ancestor, n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == ancestor {
			return true
		}
	}
	return false
}
