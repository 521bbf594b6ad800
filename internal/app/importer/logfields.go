package importer

import "log/slog"

// Canonical log field names.
const (
	KeyDocument   = "document"
	KeyOutput     = "output"
	KeyDiagnostic = "diagnostic"
	KeyTarget     = "target"
	KeyPhase      = "phase"
	KeyCount      = "count"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

func Document(path string) slog.Attr { return slog.String(KeyDocument, path) }
func Output(path string) slog.Attr { return slog.String(KeyOutput, path) }
func Diagnostic(kind string) slog.Attr { return slog.String(KeyDiagnostic, kind) }
func Target(t string) slog.Attr { return slog.String(KeyTarget, t) }
func Phase(name string) slog.Attr { return slog.String(KeyPhase, name) }
func Count(n int) slog.Attr { return slog.Int(KeyCount, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
