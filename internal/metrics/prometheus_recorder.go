package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once          sync.Once
	buildDuration prom.Histogram
	buildOutcome  *prom.CounterVec
	filesTotal    *prom.CounterVec
	fileErrors    *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "sitegen",
			Name:      "build_duration_seconds",
			Help:      "Total duration of one pipeline run",
			Buckets:   prom.DefBuckets,
		})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "sitegen",
			Name:      "build_outcomes_total",
			Help:      "Pipeline runs by trigger classification",
		}, []string{"outcome"})
		pr.filesTotal = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "sitegen",
			Name:      "files_processed_total",
			Help:      "Files successfully processed per stage",
		}, []string{"stage"})
		pr.fileErrors = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "sitegen",
			Name:      "file_errors_total",
			Help:      "Per-file failures (skipped, not fatal) per stage",
		}, []string{"stage"})
		reg.MustRegister(pr.buildDuration, pr.buildOutcome, pr.filesTotal, pr.fileErrors)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncFileProcessed(stage StageLabel) {
	if p == nil || p.filesTotal == nil {
		return
	}
	p.filesTotal.WithLabelValues(string(stage)).Inc()
}

func (p *PrometheusRecorder) IncFileError(stage StageLabel) {
	if p == nil || p.fileErrors == nil {
		return
	}
	p.fileErrors.WithLabelValues(string(stage)).Inc()
}
