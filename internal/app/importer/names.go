package importer

import (
	"fmt"
	"runtime"
	"strings"
	"unicode"
)

const (
	escapingPosix   = "posix"
	escapingWindows = "windows"
)

// ResolveFilenameEscaping maps the user facing mode to posix or windows.
func ResolveFilenameEscaping(mode string) (string, error) {
	mode = strings.TrimSpace(strings.ToLower(mode))
	if mode == "" || mode == "auto" {
		if runtime.GOOS == "windows" {
			return escapingWindows, nil
		}
		return escapingPosix, nil
	}
	if mode == escapingPosix || mode == escapingWindows {
		return mode, nil
	}
	return "", fmt.Errorf("invalid filename escaping mode %q: expected auto, posix, or windows", mode)
}

// sanitizeName makes a page title or attachment name usable both as a file
// name and as a wikilink target.
func sanitizeName(s string, mode string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range s {
		if isForbiddenFileNameRune(r, mode) {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	out := strings.Join(strings.Fields(b.String()), " ")
	out = strings.TrimRight(out, ". ")
	if out == "." || out == ".." {
		out = ""
	}
	if mode == escapingWindows && isWindowsReservedName(out) {
		out = out + "-file"
	}
	return out
}

func filenameCollisionKey(name string, mode string) string {
	if mode == escapingWindows {
		return strings.ToLower(name)
	}
	return name
}

func isForbiddenFileNameRune(r rune, mode string) bool {
	if r == 0 || r == '/' || unicode.IsControl(r) {
		return true
	}
	switch r {
	case '[', ']', '#', '^', '|':
		return true
	}
	if mode != escapingWindows {
		return false
	}
	switch r {
	case '<', '>', ':', '"', '\\', '?', '*':
		return true
	default:
		return false
	}
}

func isWindowsReservedName(name string) bool {
	if name == "" {
		return false
	}
	upper := strings.ToUpper(strings.TrimSpace(name))
	if idx := strings.IndexRune(upper, '.'); idx >= 0 {
		upper = upper[:idx]
	}
	switch upper {
	case "CON", "PRN", "AUX", "NUL",
		"COM1", "COM2", "COM3", "COM4", "COM5", "COM6", "COM7", "COM8", "COM9",
		"LPT1", "LPT2", "LPT3", "LPT4", "LPT5", "LPT6", "LPT7", "LPT8", "LPT9":
		return true
	default:
		return false
	}
}

// withSuffix returns "name N.ext" for the Nth occurrence of a name.
func withSuffix(name string, ext string, n int) string {
	if n <= 1 {
		return name + ext
	}
	return fmt.Sprintf("%s %d%s", name, n, ext)
}
