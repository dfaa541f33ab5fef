package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyArticle    = "article"
	KeyPath       = "path"
	KeyFile       = "file"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyURL        = "url"
	KeyTitle      = "title"
	KeyError      = "error"
	KeyCount      = "count"
	KeyOutput     = "output"
	KeySource     = "source"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Article(name string) slog.Attr   { return slog.String(KeyArticle, name) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func File(f string) slog.Attr         { return slog.String(KeyFile, f) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Title(t string) slog.Attr        { return slog.String(KeyTitle, t) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Output(dir string) slog.Attr     { return slog.String(KeyOutput, dir) }
func Source(dir string) slog.Attr     { return slog.String(KeySource, dir) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
