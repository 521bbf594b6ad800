package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/sleroq/notion-to-obsidian/internal/domain/notion"
)

const (
	idRoot    = "11111111111111111111111111111111"
	idChild   = "22222222222222222222222222222222"
	idNoteA   = "33333333333333333333333333333333"
	idNoteB   = "44444444444444444444444444444444"
	idInline  = "55555555555555555555555555555555"
	idMissing = "99999999999999999999999999999999"
)

func parseHTML(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	require.NoError(t, err)
	return doc
}

// bodyOf parses a fragment and returns its <body>, still attached to the
// document so that detached-node checks behave as in a real page.
func bodyOf(t *testing.T, fragment string) *html.Node {
	t.Helper()
	doc := parseHTML(t, "<!DOCTYPE html><html><head></head><body>"+fragment+"</body></html>")
	body := findFirst(doc, byTag("body"))
	require.NotNil(t, body)
	return body
}

func page(id, sourcePath, title string, parents ...string) notion.DocumentInfo {
	return notion.DocumentInfo{ID: id, SourcePath: sourcePath, Title: title, ParentIDs: parents}
}

func buildRegistry(t *testing.T, cfg notion.Config, docs []notion.DocumentInfo, attachments ...string) *Registry {
	t.Helper()
	b := NewRegistryBuilder(cfg)
	for _, d := range docs {
		require.NoError(t, b.RegisterDocument(d))
	}
	for _, a := range attachments {
		require.NoError(t, b.RegisterAttachment(notion.AttachmentInfo{SourcePath: a}))
	}
	return b.Build()
}

// sampleRegistry is a small export: a root page with one child, plus two
// pages sharing a title in different folders.
func sampleRegistry(t *testing.T) *Registry {
	t.Helper()
	return buildRegistry(t, notion.DefaultConfig(), []notion.DocumentInfo{
		page(idRoot, "Root "+idRoot+".html", "Root"),
		page(idChild, "Root "+idRoot+"/Child "+idChild+".html", "Child", idRoot),
		page(idNoteA, "Note "+idNoteA+".html", "Note"),
		page(idNoteB, "Root "+idRoot+"/Note "+idNoteB+".html", "Note", idRoot),
	},
		"Root "+idRoot+"/pic.png",
		"Root "+idRoot+"/Inline DB "+idInline+"/report.pdf",
	)
}
