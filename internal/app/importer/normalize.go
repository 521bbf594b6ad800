package importer

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/sleroq/notion-to-obsidian/internal/domain/notion"
	"github.com/sleroq/notion-to-obsidian/internal/infra/mdrender"
)

// PipelineEnv is what the normalization rules may consult besides the tree.
type PipelineEnv struct {
	Config notion.Config
	// Classified holds anchors the link rewriter will replace later; rules
	// must leave them in place.
	Classified map[*html.Node]struct{}
}

func classifiedSet(links []notion.Link) map[*html.Node]struct{} {
	set := make(map[*html.Node]struct{}, len(links))
	for _, l := range links {
		set[l.Anchor()] = struct{}{}
	}
	return set
}

func (e PipelineEnv) isClassified(n *html.Node) bool {
	_, ok := e.Classified[n]
	return ok
}

// Normalize rewrites a page body into the shape the markdown serializer
// expects. The order of the steps matters: later rules rely on the output
// of earlier ones.
func Normalize(body *html.Node, env PipelineEnv) {
	collapseNestedEmphasis(body, "strong")
	collapseNestedEmphasis(body, "em")
	simplifyBookmarks(body, env)
	simplifyCallouts(body)
	stripDateMarkers(body)
	encodeNewlines(body, env.Config.Whitespace)
	unwrapEquations(body)
	markIndentedBlocks(body, env.Config.Whitespace)
	encodeWhitespace(body, env.Config.Whitespace)
	unwrapDetails(body)
	mergeAdjacentLists(body, "ul")
	mergeAdjacentLists(body, "ol")
	splitEmphasisOnBreaks(body)
	fixHorizontalRules(body)
	replaceCheckboxes(body)
	if env.Config.PreserveColoredText {
		preserveColors(body)
	}
	replaceTableOfContents(body)
	cleanupTables(body, env)
}

// collapseNestedEmphasis drops tag elements nested inside another element of
// the same tag, keeping their content.
func collapseNestedEmphasis(root *html.Node, tag string) {
	for _, outer := range collect(root, byTag(tag)) {
		if closest(outer, byTag(tag)) != nil {
			continue
		}
		for _, inner := range collect(outer, byTag(tag)) {
			if inner != outer {
				unwrap(inner)
			}
		}
	}
}

var sentenceEnd = regexp.MustCompile(`[.!?。](\s|$)|\n`)

func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	if loc := sentenceEnd.FindStringIndex(s); loc != nil {
		cut := loc[0]
		if s[cut] != '\n' {
			cut = loc[0] + len(strings.TrimRight(s[loc[0]:loc[1]], " \t\n"))
		}
		return strings.TrimSpace(s[:cut])
	}
	return s
}

// simplifyBookmarks turns link preview cards into an info callout holding
// the title, the first sentence of the description and the URL.
func simplifyBookmarks(root *html.Node, env PipelineEnv) {
	for _, a := range collect(root, func(n *html.Node) bool { return isElement(n, "a") && hasClass(n, "bookmark") }) {
		if env.isClassified(a) {
			continue
		}
		figure := closest(a, byTag("figure"))
		if figure == nil {
			continue
		}
		href, _ := attrValue(a, "href")
		title := ""
		if n := findFirst(a, byClass("bookmark-title")); n != nil {
			title = strings.TrimSpace(textOf(n))
		}
		if title == "" {
			title = href
		}
		lines := []string{"> [!info] " + title}
		if n := findFirst(a, byClass("bookmark-description")); n != nil {
			if desc := firstSentence(textOf(n)); desc != "" {
				lines = append(lines, "> "+desc)
			}
		}
		if href != "" {
			lines = append(lines, "> "+href)
		}
		replaceNode(figure, mdrender.NewBlock(strings.Join(lines, "\n")))
	}
}

// simplifyCallouts rewrites callout figures as Obsidian callouts. The body
// of the callout is kept as nodes so links inside it are still rewritten.
func simplifyCallouts(root *html.Node) {
	for _, figure := range collect(root, func(n *html.Node) bool { return isElement(n, "figure") && hasClass(n, "callout") }) {
		icon := ""
		iconChecked := false
		var content []*html.Node
		for c := figure.FirstChild; c != nil; c = c.NextSibling {
			if !iconChecked && isElement(c) {
				iconChecked = true
				if iconNode := findFirst(c, byClass("icon")); iconNode != nil {
					if isElement(iconNode, "img") {
						icon, _ = attrValue(iconNode, "alt")
					} else {
						icon = strings.TrimSpace(textOf(iconNode))
					}
					continue
				}
			}
			content = append(content, c)
		}
		quote := newElement("blockquote")
		marker := "[!important]"
		if icon != "" {
			marker += " " + icon
		}
		quote.AppendChild(mdrender.NewBlock(marker))
		for _, c := range content {
			figure.RemoveChild(c)
			if isElement(c, "div") && !hasClass(c, "indented") {
				moveChildren(quote, c)
				continue
			}
			quote.AppendChild(c)
		}
		replaceNode(figure, quote)
	}
}

var toggleHeadingSizes = map[string]string{
	"1.875em": "h1",
	"1.5em":   "h2",
	"1.25em":  "h3",
}

var fontSizePattern = regexp.MustCompile(`font-size:\s*([0-9.]+em)`)

// unwrapDetails flattens toggles. Toggle headings keep their level, read from
// the summary's font size; other summaries become plain paragraphs.
func unwrapDetails(root *html.Node) {
	for _, details := range collect(root, byTag("details")) {
		for c := details.FirstChild; c != nil; c = c.NextSibling {
			if isElement(c, "summary") {
				fixToggleHeading(c)
				break
			}
		}
		unwrap(details)
	}
}

func fixToggleHeading(summary *html.Node) {
	tag := "p"
	if style, ok := attrValue(summary, "style"); ok {
		if m := fontSizePattern.FindStringSubmatch(style); m != nil {
			if h, ok := toggleHeadingSizes[m[1]]; ok {
				tag = h
			}
		}
	}
	repl := newElement(tag)
	moveChildren(repl, summary)
	replaceNode(summary, repl)
}

// mergeAdjacentLists joins runs of sibling lists with the same tag and class
// into one list, recursively.
func mergeAdjacentLists(root *html.Node, tag string) {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if !isElement(c, tag) {
			continue
		}
		class, _ := attrValue(c, "class")
		run := []*html.Node{c}
		for next := nextElementSibling(c); next != nil && isElement(next, tag); next = nextElementSibling(next) {
			nextClass, _ := attrValue(next, "class")
			if nextClass != class {
				break
			}
			run = append(run, next)
		}
		if len(run) < 2 {
			continue
		}
		merged := newElement(tag, append([]html.Attribute(nil), c.Attr...)...)
		for _, list := range run {
			moveChildren(merged, list)
		}
		root.InsertBefore(merged, c)
		last := run[len(run)-1]
		for n := c; n != nil; {
			next := n.NextSibling
			root.RemoveChild(n)
			if n == last {
				break
			}
			n = next
		}
		c = merged
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			mergeAdjacentLists(c, tag)
		}
	}
}

// splitEmphasisOnBreaks splits bold and italic runs at line breaks, since
// markdown emphasis cannot span lines.
func splitEmphasisOnBreaks(root *html.Node) {
	for _, em := range collect(root, byTag("strong", "em", "b", "i")) {
		if findFirst(em, func(n *html.Node) bool { return isElement(n, "br") && n.Parent == em }) == nil {
			continue
		}
		var out []*html.Node
		current := newElement(em.Data, em.Attr...)
		flush := func() {
			if current.FirstChild != nil && strings.TrimSpace(textOf(current)) != "" {
				out = append(out, current)
			} else {
				moveOut := current.FirstChild
				for moveOut != nil {
					next := moveOut.NextSibling
					current.RemoveChild(moveOut)
					out = append(out, moveOut)
					moveOut = next
				}
			}
			current = newElement(em.Data, em.Attr...)
		}
		for c := em.FirstChild; c != nil; {
			next := c.NextSibling
			em.RemoveChild(c)
			if isElement(c, "br") {
				flush()
				out = append(out, c)
			} else {
				current.AppendChild(c)
			}
			c = next
		}
		flush()
		replaceNode(em, out...)
	}
}

// fixHorizontalRules emits the first top level rule as a standalone block and
// flattens rules nested in other blocks.
func fixHorizontalRules(body *html.Node) {
	if first := firstElementChild(body); isElement(first, "hr") {
		replaceNode(first, mdrender.NewBlock("---"))
	}
	for _, hr := range collect(body, byTag("hr")) {
		if hr.Parent != body {
			replaceNode(hr, mdrender.NewInline("---"))
		}
	}
}

func replaceCheckboxes(root *html.Node) {
	for _, box := range collect(root, func(n *html.Node) bool { return hasClass(n, "checkbox-on") || hasClass(n, "checkbox-off") }) {
		marker := "[ ] "
		if hasClass(box, "checkbox-on") {
			marker = "[x] "
		}
		if next := box.NextSibling; next != nil && next.Type == html.TextNode {
			next.Data = strings.TrimLeft(next.Data, " \t"+nbsp)
			if next.Data == "" {
				removeNode(next)
			}
		}
		replaceNode(box, mdrender.NewInline(marker))
	}
}

var notionColors = map[string]string{
	"gray":   "#9B9A97",
	"brown":  "#64473A",
	"orange": "#D9730D",
	"yellow": "#DFAB01",
	"teal":   "#0F7B6C",
	"blue":   "#0B6E99",
	"purple": "#6940A5",
	"pink":   "#AD1A72",
	"red":    "#E03E3E",
}

var formattingClasses = map[string]string{
	"strong": "bold",
	"b":      "bold",
	"em":     "italic",
	"i":      "italic",
	"u":      "underline",
}

// preserveColors turns Notion highlights into inline HTML spans Obsidian can
// render. Markdown does not work inside inline HTML, so nested formatting is
// carried as classes instead. Plain text right before a highlight is pulled
// into its span.
func preserveColors(root *html.Node) {
	for _, mark := range collect(root, isHighlight) {
		color := highlightColor(mark)
		attr := "color"
		if strings.HasSuffix(color, "_background") {
			attr = "background-color"
			color = strings.TrimSuffix(color, "_background")
		}
		hex, ok := notionColors[color]
		if !ok {
			unwrap(mark)
			continue
		}

		styles := map[string]bool{}
		for _, f := range collect(mark, func(n *html.Node) bool { _, ok := formattingClasses[n.Data]; return isElement(n) && ok && n != mark }) {
			styles[formattingClasses[f.Data]] = true
			unwrap(f)
		}
		if p := mark.Parent; p != nil && isElement(p) && formattingClasses[p.Data] != "" && onlyElementChild(p, mark) {
			styles[formattingClasses[p.Data]] = true
			unwrap(p)
		}
		open := `<span style="` + attr + `:` + hex + `"`
		if cls := styleClasses(styles); cls != "" {
			open += ` class="` + cls + `"`
		}
		open += ">"
		nodes := []*html.Node{mdrender.NewInline(open)}
		if prev := mark.PrevSibling; prev != nil && prev.Type == html.TextNode {
			removeNode(prev)
			nodes = append(nodes, prev)
		}
		for c := mark.FirstChild; c != nil; c = c.NextSibling {
			nodes = append(nodes, c)
		}
		for _, n := range nodes[1:] {
			if n.Parent == mark {
				mark.RemoveChild(n)
			}
		}
		nodes = append(nodes, mdrender.NewInline("</span>"))
		replaceNode(mark, nodes...)
	}
}

func isHighlight(n *html.Node) bool {
	return isElement(n, "mark", "span") && highlightColor(n) != ""
}

func highlightColor(n *html.Node) string {
	for _, c := range classes(n) {
		if strings.HasPrefix(c, "highlight-") {
			return strings.TrimPrefix(c, "highlight-")
		}
	}
	return ""
}

func onlyElementChild(parent, child *html.Node) bool {
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if c == child || isBlank(c) {
			continue
		}
		return false
	}
	return true
}

func styleClasses(styles map[string]bool) string {
	var out []string
	for _, s := range []string{"bold", "italic", "underline"} {
		if styles[s] {
			out = append(out, s)
		}
	}
	return strings.Join(out, " ")
}

var tocIndentPattern = regexp.MustCompile(`table_of_contents-indent-(\d)`)

// replaceTableOfContents rewrites Notion's table of contents block as a list
// of heading links.
func replaceTableOfContents(root *html.Node) {
	for _, nav := range collect(root, func(n *html.Node) bool { return isElement(n, "nav") && hasClass(n, "table_of_contents") }) {
		var lines []string
		for _, item := range collect(nav, byClass("table_of_contents-item")) {
			heading := strings.TrimSpace(textOf(item))
			if heading == "" {
				continue
			}
			depth := 0
			if cls, ok := attrValue(item, "class"); ok {
				if m := tocIndentPattern.FindStringSubmatch(cls); m != nil {
					depth = int(m[1][0] - '0')
				}
			}
			lines = append(lines, strings.Repeat("    ", depth)+"- [[#"+sanitizeName(heading, escapingPosix)+"]]")
		}
		if len(lines) == 0 {
			removeNode(nav)
			continue
		}
		replaceNode(nav, mdrender.NewBlock(strings.Join(lines, "\n")))
	}
}
