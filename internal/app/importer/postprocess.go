package importer

import (
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var (
	hashtagPattern  = regexp.MustCompile(`(^|[^\\\p{L}\p{N}_&/#])#([\p{L}\p{N}_/-]+)`)
	wikilinkPattern = regexp.MustCompile(`\[\[[^\]\n]*\]\]`)
	linkSkipPattern = regexp.MustCompile(`\[\[[^\]\n]*\]\]|\]\([^)\n]*\)|<[^>\n]+>|https?://[^\s)>\]]+`)
)

// PostProcess repairs the serialized markdown of a page.
func PostProcess(md string, singleLineBreaks bool) string {
	if singleLineBreaks {
		md = collapseBlankLines(md)
	}
	md = escapeHashtags(md)
	return fixDoubleBackslash(md)
}

type codeRegions struct {
	lines map[int]bool
	spans [][2]int
}

func (c codeRegions) inSpan(offset int) bool {
	i := sort.Search(len(c.spans), func(i int) bool { return c.spans[i][1] > offset })
	return i < len(c.spans) && c.spans[i][0] <= offset
}

// findCode locates fenced and indented code blocks (by line) and code spans
// (by byte range).
func findCode(src string) codeRegions {
	source := []byte(src)
	regions := codeRegions{lines: map[int]bool{}}
	lineStarts := []int{0}
	for i, b := range source {
		if b == '\n' {
			lineStarts = append(lineStarts, i+1)
		}
	}
	lineOf := func(offset int) int {
		return sort.Search(len(lineStarts), func(i int) bool { return lineStarts[i] > offset }) - 1
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(source))
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.FencedCodeBlock:
			lines := node.Lines()
			switch {
			case lines.Len() > 0:
				first := lineOf(lines.At(0).Start)
				last := lineOf(lines.At(lines.Len()-1).Stop - 1)
				for l := first - 1; l <= last+1; l++ {
					regions.lines[l] = true
				}
			case node.Info != nil:
				l := lineOf(node.Info.Segment.Start)
				regions.lines[l] = true
				regions.lines[l+1] = true
			}
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				regions.lines[lineOf(lines.At(i).Start)] = true
			}
			return ast.WalkSkipChildren, nil
		case *ast.CodeSpan:
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					regions.spans = append(regions.spans, [2]int{t.Segment.Start, t.Segment.Stop})
				}
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	sort.Slice(regions.spans, func(i, j int) bool { return regions.spans[i][0] < regions.spans[j][0] })
	return regions
}

func isQuoteLine(line string) bool {
	return strings.HasPrefix(strings.TrimLeft(line, " "), ">")
}

// collapseBlankLines drops a blank line sitting between two non-empty lines
// unless either neighbour is a quote or code.
func collapseBlankLines(md string) string {
	code := findCode(md)
	lines := strings.Split(md, "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		if line == "" && i > 0 && i < len(lines)-1 {
			prev, next := lines[i-1], lines[i+1]
			if prev != "" && next != "" && !isQuoteLine(prev) && !isQuoteLine(next) &&
				!code.lines[i-1] && !code.lines[i] && !code.lines[i+1] {
				continue
			}
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// escapeHashtags stops Obsidian from reading "#word" in prose as a tag.
func escapeHashtags(md string) string {
	code := findCode(md)
	lines := strings.Split(md, "\n")
	offset := 0
	for i, line := range lines {
		start := offset
		offset += len(line) + 1
		if code.lines[i] || !strings.Contains(line, "#") {
			continue
		}
		skip := linkSkipPattern.FindAllStringIndex(line, -1)
		var b strings.Builder
		last, changed := 0, false
		for _, m := range hashtagPattern.FindAllStringSubmatchIndex(line, -1) {
			hash := m[3]
			if code.inSpan(start+hash) || within(skip, hash) {
				continue
			}
			b.WriteString(line[last:hash])
			b.WriteString(`\`)
			last, changed = hash, true
		}
		if !changed {
			continue
		}
		b.WriteString(line[last:])
		lines[i] = b.String()
	}
	return strings.Join(lines, "\n")
}

func within(ranges [][]int, offset int) bool {
	for _, r := range ranges {
		if offset >= r[0] && offset < r[1] {
			return true
		}
	}
	return false
}

// fixDoubleBackslash undoes the table serializer escaping the backslash of
// an already escaped alias pipe inside a wikilink.
func fixDoubleBackslash(md string) string {
	return wikilinkPattern.ReplaceAllStringFunc(md, func(link string) string {
		return strings.ReplaceAll(link, `\\|`, `\|`)
	})
}
