package importer

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sleroq/notion-to-obsidian/internal/domain/notion"
)

const (
	e2eRoot   = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	e2eChild  = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	e2eBroken = "cccccccccccccccccccccccccccccccc"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func mustMkdirAll(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
}

func writeExportFile(t *testing.T, root, rel string, content []byte) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	mustMkdirAll(t, filepath.Dir(p))
	if err := os.WriteFile(p, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
}

func readOutput(t *testing.T, root, rel string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("read %s: %v", rel, err)
	}
	return string(b)
}

func notionPage(id, title, properties, body string) string {
	return `<html><head><meta charset="utf-8"/><title>` + title + `</title></head><body><article id="` + id + `" class="page sans"><header><h1 class="page-title">` + title + `</h1>` +
		`<table class="properties"><tbody>` + properties + `</tbody></table></header><div class="page-body">` + body + `</div></article></body></html>`
}

func writeSampleExport(t *testing.T, input string) {
	t.Helper()
	writeExportFile(t, input, "index.html", []byte(`<html><body><p>workspace index</p></body></html>`))
	writeExportFile(t, input, "Root "+e2eRoot+".html", []byte(notionPage(e2eRoot, "Root",
		`<tr class="property-row property-row-created_time"><th>Created</th><td><time>@January 2, 2024 9:15 AM</time></td></tr>`+
			`<tr class="property-row property-row-last_edited_time"><th>Edited</th><td><time>@February 3, 2024</time></td></tr>`,
		`<p>Go to <a href="Root%20`+e2eRoot+`/Child%20`+e2eChild+`.html">Child</a>.</p>`+
			`<p><a href="Root%20`+e2eRoot+`/photo.png"><img src="Root%20`+e2eRoot+`/photo.png"/></a></p>`+
			`<p><a href="Root%20`+e2eRoot+`/blob">raw</a></p>`+
			`<p><a href="Nowhere%2099999999999999999999999999999999.html">Nowhere</a></p>`)))
	writeExportFile(t, input, "Root "+e2eRoot+"/Child "+e2eChild+".html", []byte(notionPage(e2eChild, "Child",
		`<tr class="property-row property-row-multi_select"><th>Tags</th><td><span class="selected-value">big idea</span></td></tr>`,
		`<p>Back to <a href="../Root%20`+e2eRoot+`.html">Root</a></p>`+
			`<div class="collection-content"><h4 class="collection-title">Tasks</h4><table class="collection-content"><thead><tr><th>Name</th></tr></thead><tbody></tbody></table></div>`)))
	writeExportFile(t, input, "Broken "+e2eBroken+".html", []byte(notionPage(e2eBroken, "Broken",
		`<tr class="property-row property-row-hologram"><th>Odd</th><td>x</td></tr>`,
		`<p>never written</p>`)))
	writeExportFile(t, input, "Root "+e2eRoot+"/photo.png", pngHeader)
	writeExportFile(t, input, "Root "+e2eRoot+"/blob", pngHeader)
	writeExportFile(t, input, ".DS_Store", []byte("junk"))
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestImporterConvertsExportDirectory(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "Export")
	output := filepath.Join(root, "vault")
	writeSampleExport(t, input)

	var logs bytes.Buffer
	stats, err := (Importer{
		InputPath: input,
		OutputDir: output,
		Config:    notion.DefaultConfig(),
		Workers:   2,
		EmitBases: true,
		Logger:    slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}).Run(context.Background())
	if err != nil {
		t.Fatalf("run importer: %v", err)
	}
	if stats.Notes != 2 {
		t.Fatalf("expected 2 notes, got %d (%+v)", stats.Notes, stats)
	}
	if stats.Failed != 1 {
		t.Fatalf("expected the broken page to fail alone, got %+v\nlogs:\n%s", stats, logs.String())
	}
	if stats.Skipped != 1 {
		t.Fatalf("expected index.html to be skipped, got %+v", stats)
	}
	if stats.Attachments != 2 {
		t.Fatalf("expected 2 attachments, got %+v", stats)
	}
	if stats.Bases != 1 {
		t.Fatalf("expected 1 base file, got %+v", stats)
	}
	if stats.Diagnostics != 1 {
		t.Fatalf("expected 1 diagnostic, got %+v\nlogs:\n%s", stats, logs.String())
	}

	rootNote := readOutput(t, output, "Root.md")
	for _, want := range []string{"Created: 2024-01-02T09:15", "Edited: 2024-02-03", "Go to [[Child]].", "![[photo.png]]", "![[blob.png]]", "[[Nowhere]]"} {
		if !strings.Contains(rootNote, want) {
			t.Fatalf("expected %q in Root.md, got:\n%s", want, rootNote)
		}
	}

	childNote := readOutput(t, output, "Root/Child.md")
	if !strings.Contains(childNote, "tags:\n  - big-idea") {
		t.Fatalf("expected hyphenated tag in Child.md, got:\n%s", childNote)
	}
	if !strings.Contains(childNote, "Back to [[Root]]") {
		t.Fatalf("expected back link in Child.md, got:\n%s", childNote)
	}

	base := readOutput(t, output, "Root/Child.base")
	if !strings.Contains(base, `name: "Tasks"`) {
		t.Fatalf("unexpected base file:\n%s", base)
	}

	if _, err := os.Stat(filepath.Join(output, "Broken.md")); !os.IsNotExist(err) {
		t.Fatalf("expected no note for the broken page, stat err: %v", err)
	}
	if got := readOutput(t, output, "attachments/Root/blob.png"); got != string(pngHeader) {
		t.Fatalf("unexpected attachment content %q", got)
	}
	readOutput(t, output, "attachments/Root/photo.png")

	info, err := os.Stat(filepath.Join(output, "Root.md"))
	if err != nil {
		t.Fatalf("stat Root.md: %v", err)
	}
	wantMod := time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)
	if !info.ModTime().Equal(wantMod) {
		t.Fatalf("expected mtime %v, got %v", wantMod, info.ModTime())
	}

	if !strings.Contains(logs.String(), "dangling_relation") {
		t.Fatalf("expected dangling relation warning in logs:\n%s", logs.String())
	}
}

func TestImporterReadsZipArchives(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "Export")
	writeSampleExport(t, input)

	archive := filepath.Join(root, "export.zip")
	f, err := os.Create(archive)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	zw := zip.NewWriter(f)
	err = filepath.Walk(input, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(input, p)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	})
	if err != nil {
		t.Fatalf("fill zip: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}

	output := filepath.Join(root, "vault")
	stats, err := (Importer{InputPath: archive, OutputDir: output, Config: notion.DefaultConfig(), Logger: quietLogger()}).Run(context.Background())
	if err != nil {
		t.Fatalf("run importer: %v", err)
	}
	if stats.Notes != 2 || stats.Attachments != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if got := readOutput(t, output, "Root/Child.md"); !strings.Contains(got, "[[Root]]") {
		t.Fatalf("unexpected Child.md:\n%s", got)
	}
	if _, err := os.Stat(filepath.Join(output, "Root", "Child.base")); !os.IsNotExist(err) {
		t.Fatalf("base files should only be written when enabled, stat err: %v", err)
	}
}

func TestImporterOutputIsStableAcrossWorkerCounts(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "Export")
	writeSampleExport(t, input)

	run := func(name string, workers int) string {
		output := filepath.Join(root, name)
		if _, err := (Importer{InputPath: input, OutputDir: output, Config: notion.DefaultConfig(), Workers: workers, Logger: quietLogger()}).Run(context.Background()); err != nil {
			t.Fatalf("run importer: %v", err)
		}
		return readOutput(t, output, "Root.md") + readOutput(t, output, "Root/Child.md")
	}
	one := run("one", 1)
	many := run("many", 8)
	if one != many {
		t.Fatalf("output differs between worker counts:\n--- 1 worker\n%s\n--- 8 workers\n%s", one, many)
	}
}

func TestImporterStopsWhenCancelled(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "Export")
	writeSampleExport(t, input)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (Importer{InputPath: input, OutputDir: filepath.Join(root, "vault"), Config: notion.DefaultConfig(), Logger: quietLogger()}).Run(ctx)
	if err == nil {
		t.Fatalf("expected cancellation error")
	}
}

func TestImporterValidatesArguments(t *testing.T) {
	if _, err := (Importer{}).Run(context.Background()); err == nil {
		t.Fatalf("expected error for missing paths")
	}
	cfg := notion.DefaultConfig()
	cfg.FilenameEscaping = "dos"
	if _, err := (Importer{InputPath: t.TempDir(), OutputDir: t.TempDir(), Config: cfg}).Run(context.Background()); err == nil {
		t.Fatalf("expected error for invalid filename escaping")
	}
}
