// Package logfields pins the canonical structured log field names so
// they cannot drift between packages.
package logfields

import "log/slog"

const (
	KeyRunID      = "run_id"
	KeyStage      = "stage"
	KeyFormat     = "format"
	KeyCategory   = "category"
	KeyMetric     = "metric"
	KeyPing       = "ping"
	KeySource     = "source"
	KeyPath       = "path"
	KeyRepo       = "repository"
	KeyFiles      = "files"
	KeyErrors     = "errors"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means
// callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Format(f string) slog.Attr       { return slog.String(KeyFormat, f) }
func Category(c string) slog.Attr     { return slog.String(KeyCategory, c) }
func Metric(m string) slog.Attr       { return slog.String(KeyMetric, m) }
func Ping(p string) slog.Attr         { return slog.String(KeyPing, p) }
func Source(s string) slog.Attr       { return slog.String(KeySource, s) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Repository(r string) slog.Attr   { return slog.String(KeyRepo, r) }
func Files(n int) slog.Attr           { return slog.Int(KeyFiles, n) }
func Errors(n int) slog.Attr          { return slog.Int(KeyErrors, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
