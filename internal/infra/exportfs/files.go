package exportfs

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const sniffLen = 512

func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// CopyFile streams the content returned by open into dst, creating parent
// directories. It returns the first bytes of the content for type sniffing.
func CopyFile(dst string, open func() (io.ReadCloser, error)) ([]byte, error) {
	in, err := open()
	if err != nil {
		return nil, fmt.Errorf("open source for %s: %w", dst, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, fmt.Errorf("create dir for %s: %w", dst, err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return nil, err
	}
	defer out.Close()

	head := &headWriter{limit: sniffLen}
	if _, err := io.Copy(io.MultiWriter(out, head), in); err != nil {
		return nil, fmt.Errorf("copy %s: %w", dst, err)
	}
	return head.buf.Bytes(), out.Sync()
}

type headWriter struct {
	buf   bytes.Buffer
	limit int
}

func (h *headWriter) Write(p []byte) (int, error) {
	if room := h.limit - h.buf.Len(); room > 0 {
		if len(p) < room {
			room = len(p)
		}
		h.buf.Write(p[:room])
	}
	return len(p), nil
}

// DetectFileExtensionFromContent guesses an extension for attachments that
// were exported without one.
func DetectFileExtensionFromContent(content []byte) string {
	if len(content) == 0 {
		return ""
	}
	if len(content) > sniffLen {
		content = content[:sniffLen]
	}

	mimeType := strings.TrimSpace(http.DetectContentType(content))
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	mimeType = strings.ToLower(mimeType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		return ""
	}

	preferredExt := map[string]string{
		"image/jpeg":       ".jpg",
		"image/png":        ".png",
		"image/gif":        ".gif",
		"image/webp":       ".webp",
		"image/svg+xml":    ".svg",
		"image/x-icon":     ".ico",
		"application/pdf":  ".pdf",
		"application/json": ".json",
		"text/plain":       ".txt",
	}
	if ext, ok := preferredExt[mimeType]; ok {
		return ext
	}

	exts, err := mime.ExtensionsByType(mimeType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	sort.Strings(exts)
	return exts[0]
}

// ApplyFileTimes stamps a written note with the page's Notion timestamps.
// A missing modified time falls back to created and vice versa.
func ApplyFileTimes(path string, created, modified *time.Time) error {
	if created == nil && modified == nil {
		return nil
	}
	mtime := modified
	if mtime == nil {
		mtime = created
	}
	if err := os.Chtimes(path, *mtime, *mtime); err != nil {
		return fmt.Errorf("set times on %s: %w", path, err)
	}
	if created != nil {
		if err := setFileCreationTime(path, *created); err != nil {
			return fmt.Errorf("set creation time on %s: %w", path, err)
		}
	}
	return nil
}
