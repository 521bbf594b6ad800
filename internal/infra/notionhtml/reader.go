package notionhtml

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/sleroq/notion-to-obsidian/internal/domain/notion"
)

var junkNames = map[string]struct{}{
	".ds_store":   {},
	"thumbs.db":   {},
	"desktop.ini": {},
}

// ReadExport indexes a Notion HTML export given as a directory or a .zip
// archive. Archives nested inside the archive (multi-part exports) are
// expanded in memory.
func ReadExport(inputPath string) (*notion.Export, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}
	if info.IsDir() {
		return readDir(inputPath)
	}
	if strings.EqualFold(filepath.Ext(inputPath), ".zip") {
		return readZip(inputPath)
	}
	return nil, fmt.Errorf("unsupported input %s: expected a directory or a .zip archive", inputPath)
}

// NormalizePath converts an export-relative path to the form used as a
// registry key: forward slashes, no leading "./", NFC.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	return norm.NFC.String(p)
}

func readDir(root string) (*notion.Export, error) {
	var files []notion.SourceFile
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "__MACOSX" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		abs := p
		files = append(files, notion.SourceFile{
			Path: NormalizePath(filepath.ToSlash(rel)),
			Open: func() (io.ReadCloser, error) { return os.Open(abs) },
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk export dir: %w", err)
	}
	pages, attachments := split(files)
	return notion.NewExport(root, pages, attachments, nil), nil
}

func readZip(archivePath string) (*notion.Export, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	files, err := zipEntries(&r.Reader)
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	pages, attachments := split(files)
	return notion.NewExport(archivePath, pages, attachments, r.Close), nil
}

func zipEntries(r *zip.Reader) ([]notion.SourceFile, error) {
	var files []notion.SourceFile
	for _, f := range r.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(f.Name, "__MACOSX/") {
			continue
		}
		if strings.EqualFold(path.Ext(f.Name), ".zip") {
			nested, err := expandNestedZip(f)
			if err != nil {
				return nil, err
			}
			files = append(files, nested...)
			continue
		}
		entry := f
		files = append(files, notion.SourceFile{
			Path: NormalizePath(entry.Name),
			Open: func() (io.ReadCloser, error) { return entry.Open() },
		})
	}
	return files, nil
}

func expandNestedZip(f *zip.File) ([]notion.SourceFile, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open nested archive %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read nested archive %s: %w", f.Name, err)
	}
	inner, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("nested archive %s: %w", f.Name, err)
	}
	return zipEntries(inner)
}

func split(files []notion.SourceFile) ([]notion.SourceFile, []notion.SourceFile) {
	var pages, attachments []notion.SourceFile
	for _, f := range files {
		base := path.Base(f.Path)
		if _, junk := junkNames[strings.ToLower(base)]; junk || strings.HasPrefix(base, "._") {
			continue
		}
		if strings.EqualFold(path.Ext(base), ".html") {
			pages = append(pages, f)
			continue
		}
		attachments = append(attachments, f)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Path < pages[j].Path })
	sort.Slice(attachments, func(i, j int) bool { return attachments[i].Path < attachments[j].Path })
	return pages, attachments
}
