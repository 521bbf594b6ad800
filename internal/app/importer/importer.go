package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/sleroq/notion-to-obsidian/internal/domain/notion"
	"github.com/sleroq/notion-to-obsidian/internal/infra/exportfs"
	"github.com/sleroq/notion-to-obsidian/internal/infra/notionhtml"
)

type Importer struct {
	InputPath string
	OutputDir string
	Config    notion.Config
	// Workers bounds concurrent page conversion. Zero means runtime.NumCPU.
	Workers   int
	EmitBases bool
	Logger    *slog.Logger
	Recorder  Recorder
}

type Stats struct {
	Notes       int
	Attachments int
	Bases       int
	Failed      int
	Skipped     int
	Diagnostics int
}

type converted struct {
	res     Result
	err     error
	elapsed time.Duration
}

// Run converts the export at InputPath into a vault under OutputDir. Pages
// that fail are counted and logged; only problems with the input or the
// output directory abort the batch.
func (im Importer) Run(ctx context.Context) (Stats, error) {
	if im.InputPath == "" || im.OutputDir == "" {
		return Stats{}, fmt.Errorf("input and output paths are required")
	}
	if _, err := ResolveFilenameEscaping(im.Config.FilenameEscaping); err != nil {
		return Stats{}, err
	}
	logger := im.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rec := im.Recorder
	if rec == nil {
		rec = NoopRecorder{}
	}

	export, err := notionhtml.ReadExport(im.InputPath)
	if err != nil {
		return Stats{}, err
	}
	defer export.Close()

	if err := os.MkdirAll(im.OutputDir, 0o755); err != nil {
		return Stats{}, fmt.Errorf("create output dir: %w", err)
	}

	bar := newPhaseProgress(os.Stderr)
	defer bar.Close()

	var stats Stats
	bar.Start("indexing", len(export.Pages)+len(export.Attachments))
	reg, pages, attachments := im.index(ctx, export, logger, rec, &stats, bar)
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	docs := reg.Documents()
	bar.Start("converting", len(docs))
	logger.Info("converting pages", Phase("convert"), Count(len(docs)))
	results := runOrdered(ctx, docs, im.workers(), func(doc notion.DocumentInfo) converted {
		start := time.Now()
		res, err := convertPage(reg, pages[doc.SourcePath], doc)
		bar.Advance()
		return converted{res: res, err: err, elapsed: time.Since(start)}
	})

	for i, doc := range docs {
		if i >= len(results) {
			break
		}
		out := results[i]
		docLog := logger.With(Document(doc.SourcePath))
		rec.ObserveDocumentDuration(out.elapsed)
		if out.err != nil {
			stats.Failed++
			rec.IncDocument(ResultFailed)
			docLog.Error("page conversion failed", Error(out.err))
			continue
		}
		for _, d := range out.res.Diagnostics {
			stats.Diagnostics++
			rec.IncDiagnostic(d.Kind)
			docLog.Warn(d.Message, Diagnostic(string(d.Kind)), Target(d.Target))
		}

		notePath := filepath.Join(im.OutputDir, filepath.FromSlash(doc.OutputPath))
		if err := exportfs.WriteFile(notePath, []byte(out.res.Markdown)); err != nil {
			return stats, err
		}
		if err := exportfs.ApplyFileTimes(notePath, doc.CreatedAt, doc.ModifiedAt); err != nil {
			docLog.Debug("could not set file times", Error(err))
		}
		stats.Notes++
		rec.IncDocument(ResultConverted)
		docLog.Debug("wrote note", Output(doc.OutputPath), DurationMS(float64(out.elapsed.Microseconds())/1000))

		if im.EmitBases && out.res.Base != "" {
			basePath := strings.TrimSuffix(notePath, ".md") + ".base"
			if err := exportfs.WriteFile(basePath, []byte(out.res.Base)); err != nil {
				return stats, err
			}
			stats.Bases++
		}
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	bar.Start("attachments", len(attachments))
	logger.Info("copying attachments", Phase("attachments"), Count(len(attachments)))
	for _, att := range reg.Attachments() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		src, ok := attachments[att.SourcePath]
		if !ok {
			continue
		}
		rel := reg.AttachmentOutputPath(att)
		if _, err := exportfs.CopyFile(filepath.Join(im.OutputDir, filepath.FromSlash(rel)), src.Open); err != nil {
			return stats, err
		}
		stats.Attachments++
		rec.IncAttachment()
		bar.Advance()
	}
	return stats, nil
}

func (im Importer) workers() int {
	if im.Workers > 0 {
		return im.Workers
	}
	return runtime.NumCPU()
}

// index is phase 1: every page header is scanned and every attachment
// registered before the registry is sealed.
func (im Importer) index(ctx context.Context, export *notion.Export, logger *slog.Logger, rec Recorder, stats *Stats, bar *phaseProgress) (*Registry, map[string]notion.SourceFile, map[string]notion.SourceFile) {
	builder := NewRegistryBuilder(im.Config)
	pages := make(map[string]notion.SourceFile, len(export.Pages))
	attachments := make(map[string]notion.SourceFile, len(export.Attachments))

	logger.Info("indexing export", Phase("index"), Count(len(export.Pages)))
	for _, f := range export.Pages {
		if ctx.Err() != nil {
			break
		}
		bar.Advance()
		docLog := logger.With(Document(f.Path))
		header, err := notionhtml.ScanPage(f)
		if errors.Is(err, notionhtml.ErrNoPageID) {
			stats.Skipped++
			rec.IncDocument(ResultSkipped)
			docLog.Debug("skipping page without id")
			continue
		}
		if err != nil {
			stats.Failed++
			rec.IncDocument(ResultFailed)
			docLog.Error("could not read page", Error(err))
			continue
		}
		doc := notion.DocumentInfo{
			ID:         header.ID,
			SourcePath: f.Path,
			Title:      header.Title,
			ParentIDs:  header.ParentIDs,
			CreatedAt:  header.CreatedAt,
			ModifiedAt: header.ModifiedAt,
		}
		if err := builder.RegisterDocument(doc); err != nil {
			stats.Skipped++
			rec.IncDocument(ResultSkipped)
			docLog.Warn("page not registered", Error(err))
			continue
		}
		pages[notionhtml.NormalizePath(f.Path)] = f
	}

	for _, f := range export.Attachments {
		if ctx.Err() != nil {
			break
		}
		bar.Advance()
		p := notionhtml.NormalizePath(f.Path)
		name := path.Base(p)
		if path.Ext(name) == "" {
			if ext := sniffExtension(f); ext != "" {
				name += ext
			}
		}
		if err := builder.RegisterAttachment(notion.AttachmentInfo{SourcePath: p, NameWithExtension: name}); err != nil {
			logger.Warn("attachment not registered", Target(p), Error(err))
			continue
		}
		attachments[p] = f
	}
	return builder.Build(), pages, attachments
}

func sniffExtension(f notion.SourceFile) string {
	r, err := f.Open()
	if err != nil {
		return ""
	}
	defer r.Close()
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return ""
	}
	return exportfs.DetectFileExtensionFromContent(head[:n])
}

func convertPage(reg *Registry, f notion.SourceFile, doc notion.DocumentInfo) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("convert %s: panic: %v", doc.SourcePath, r)
		}
	}()
	if f.Open == nil {
		return Result{}, fmt.Errorf("convert %s: source not available", doc.SourcePath)
	}
	root, err := notionhtml.ParsePage(f)
	if err != nil {
		return Result{}, err
	}
	return NewConverter(reg).ConvertDocument(doc, root)
}

// runOrdered applies fn to items on at most concurrency goroutines and
// returns results in item order. Items not started before ctx is cancelled
// are left out, so the result may be shorter than items.
func runOrdered[T any, R any](ctx context.Context, items []T, concurrency int, fn func(T) R) []R {
	if len(items) == 0 {
		return nil
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > len(items) {
		concurrency = len(items)
	}

	sem := make(chan struct{}, concurrency)
	results := make([]R, len(items))
	started := 0

	var wg sync.WaitGroup
schedule:
	for i, item := range items {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break schedule
		}
		started = i + 1
		wg.Add(1)
		go func(i int, item T) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = fn(item)
		}(i, item)
	}
	wg.Wait()
	return results[:started]
}
