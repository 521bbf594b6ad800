package importer

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sleroq/notion-to-obsidian/internal/domain/notion"
)

const rootPage = `<html><head><meta charset="utf-8"/><title>Root</title></head><body>
<article id="11111111-1111-1111-1111-111111111111" class="page sans"><header>
<h1 class="page-title">Root</h1>
<p class="page-description">About root.</p>
<table class="properties"><tbody>
<tr class="property-row property-row-multi_select"><th>Tags</th><td><span class="selected-value">my tag</span><span class="selected-value">go</span></td></tr>
<tr class="property-row property-row-relation"><th>Related</th><td><a href="Note%20` + idNoteA + `.html">Note</a></td></tr>
<tr class="property-row property-row-checkbox"><th>Done</th><td><div class="checkbox checkbox-on"></div></td></tr>
</tbody></table></header>
<div class="page-body">
<p>See <a href="Root%20` + idRoot + `/Child%20` + idChild + `.html">the child</a> and #topic.</p>
<p><a href="Gone%20` + idMissing + `.html">Gone</a></p>
<figure class="image"><a href="Root%20` + idRoot + `/pic.png"><img src="Root%20` + idRoot + `/pic.png"/></a></figure>
</div></article></body></html>`

func splitFrontmatter(t *testing.T, md string) (map[string]any, string) {
	t.Helper()
	require.True(t, strings.HasPrefix(md, "---\n"), md)
	rest := strings.TrimPrefix(md, "---\n")
	end := strings.Index(rest, "---\n")
	require.GreaterOrEqual(t, end, 0, md)
	var fm map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(rest[:end]), &fm))
	return fm, rest[end+len("---\n"):]
}

func convertRoot(t *testing.T, reg *Registry, src string) (Result, error) {
	t.Helper()
	doc, ok := reg.ResolveDocument(idRoot)
	require.True(t, ok)
	return NewConverter(reg).ConvertDocument(doc, parseHTML(t, src))
}

func TestConvertDocument(t *testing.T) {
	reg := sampleRegistry(t)
	res, err := convertRoot(t, reg, rootPage)
	require.NoError(t, err)

	fm, body := splitFrontmatter(t, res.Markdown)
	require.Equal(t, []any{"my-tag", "go"}, fm["tags"])
	require.Equal(t, []any{"[[/Note|Note]]"}, fm["Related"])
	require.Equal(t, true, fm["Done"])

	require.True(t, strings.HasPrefix(body, "About root.\n\n"), body)
	require.Contains(t, body, "See [[Child]] and \\#topic.")
	require.Contains(t, body, "[[Gone]]")
	require.Contains(t, body, "![[pic.png]]")
	require.NotContains(t, body, "page-title")
	require.True(t, strings.HasSuffix(body, "\n"))
	require.Empty(t, res.Base)

	require.Len(t, res.Diagnostics, 1)
	require.Equal(t, notion.DiagDanglingRelation, res.Diagnostics[0].Kind)
	require.Equal(t, idRoot, res.Diagnostics[0].DocumentID)
}

func TestConvertDocumentKeepsSpacesAroundLinks(t *testing.T) {
	reg := sampleRegistry(t)
	child := `<a href="Root%20` + idRoot + `/Child%20` + idChild + `.html">Child</a>`
	note := `<a href="Note%20` + idNoteA + `.html">Note</a>`
	src := `<html><body><article id="` + idRoot + `" class="page sans"><header><h1 class="page-title">Root</h1></header>
<div class="page-body"><p>see ` + child + ` and ` + child + ` again</p><p>ends with ` + note + `</p></div></article></body></html>`

	res, err := convertRoot(t, reg, src)
	require.NoError(t, err)
	require.Equal(t, "see [[Child]] and [[Child]] again\n\nends with [[/Note|Note]]\n", res.Markdown)
}

func TestConvertDocumentIsDeterministic(t *testing.T) {
	reg := sampleRegistry(t)
	first, err := convertRoot(t, reg, rootPage)
	require.NoError(t, err)
	second, err := convertRoot(t, reg, rootPage)
	require.NoError(t, err)
	require.Equal(t, first.Markdown, second.Markdown)
}

func TestConvertDocumentUnknownPropertyKind(t *testing.T) {
	src := strings.Replace(rootPage, "property-row-checkbox", "property-row-hologram", 1)

	_, err := convertRoot(t, sampleRegistry(t), src)
	require.True(t, errors.Is(err, ErrUnknownPropertyKind))

	cfg := notion.DefaultConfig()
	cfg.LenientProperties = true
	reg := buildRegistry(t, cfg, []notion.DocumentInfo{page(idRoot, "Root "+idRoot+".html", "Root")})
	res, err := convertRoot(t, reg, src)
	require.NoError(t, err)
	fm, _ := splitFrontmatter(t, res.Markdown)
	require.NotContains(t, fm, "Done")

	var kinds []notion.DiagnosticKind
	for _, d := range res.Diagnostics {
		kinds = append(kinds, d.Kind)
	}
	require.Contains(t, kinds, notion.DiagUnknownProperty)
}

func TestConvertDocumentWithoutProperties(t *testing.T) {
	reg := sampleRegistry(t)
	res, err := convertRoot(t, reg, `<html><body><article id="`+idRoot+`"><div class="page-body"><p>Only text</p></div></article></body></html>`)
	require.NoError(t, err)
	require.Equal(t, "Only text\n", res.Markdown)
}

func TestConvertDocumentEmitsBaseForDatabases(t *testing.T) {
	reg := sampleRegistry(t)
	src := `<html><body><article id="` + idRoot + `"><div class="page-body">` + databaseFragment + `</div></article></body></html>`

	res, err := convertRoot(t, reg, src)
	require.NoError(t, err)
	require.Contains(t, res.Base, `name: "Tasks"`)
	require.Contains(t, res.Base, `file.inFolder(\"Root\")`)
	require.Contains(t, res.Markdown, "[[Child]]")
}
