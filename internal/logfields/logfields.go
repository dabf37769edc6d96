package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID     = "build_id"
	KeyTrigger     = "trigger"
	KeyPath        = "path"
	KeySource      = "source"
	KeyDestination = "destination"
	KeyStage       = "stage"
	KeyDurationMS  = "duration_ms"
	KeyCount       = "count"
	KeyError       = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Trigger(p string) slog.Attr      { return slog.String(KeyTrigger, p) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Source(p string) slog.Attr       { return slog.String(KeySource, p) }
func Destination(p string) slog.Attr  { return slog.String(KeyDestination, p) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
