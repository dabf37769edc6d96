package metrics

import "time"

// StageLabel enumerates the build stages that report per-file counters.
type StageLabel string

const (
	StageData   StageLabel = "data"
	StageRender StageLabel = "render"
	StageCopy   StageLabel = "copy"
)

// Recorder defines observability hooks for build and stage metrics.
// Implementations may forward to Prometheus, OpenTelemetry, etc. All methods
// must be safe on the NoopRecorder so callers can inject it unconditionally.
type Recorder interface {
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome string) // outcome: full|render|copy
	IncFileProcessed(stage StageLabel)
	IncFileError(stage StageLabel)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not
// configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveBuildDuration(time.Duration) {}
func (NoopRecorder) IncBuildOutcome(string)             {}
func (NoopRecorder) IncFileProcessed(StageLabel)        {}
func (NoopRecorder) IncFileError(StageLabel)            {}
