// Package pipeline orchestrates one build pass: data load, template
// rendering, and asset copying, selected by the triggering path.
//
// Trigger classification preserves a deliberate asymmetry: a change to a
// .html file only re-copies assets (the context is not needed for verbatim
// copies), while any other change reloads data and re-renders templates but
// does not re-copy assets. A .html partial pulled in via an engine include
// can therefore go stale until the next render-path trigger.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitegen/internal/data"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
)

// DataLoader yields the merged template context.
type DataLoader interface {
	Load(ctx context.Context) data.Context
}

// Renderer expands all non-partial templates against a context.
type Renderer interface {
	RenderAll(ctx context.Context, tc data.Context)
}

// Copier mirrors pre-built HTML files into the output tree.
type Copier interface {
	CopyAll(ctx context.Context)
}

// Outcome labels for build classification, also used as metric label values.
const (
	OutcomeFull   = "full"
	OutcomeRender = "render"
	OutcomeCopy   = "copy"
)

// Pipeline runs builds. At most one build is in flight at a time: the mutex
// serializes overlapping triggers so they queue instead of racing on the
// output directory.
type Pipeline struct {
	mu       sync.Mutex
	loader   DataLoader
	renderer Renderer
	copier   Copier
	recorder metrics.Recorder
}

// New creates a Pipeline. A nil recorder defaults to the no-op implementation.
func New(loader DataLoader, renderer Renderer, copier Copier, recorder metrics.Recorder) *Pipeline {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Pipeline{loader: loader, renderer: renderer, copier: copier, recorder: recorder}
}

// Run executes one build. An empty trigger means the unconditional full
// build: load data, render all templates, and copy all assets. A trigger
// ending in .html re-copies assets only. Any other trigger reloads data and
// re-renders templates only.
func (p *Pipeline) Run(ctx context.Context, triggerPath string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	buildID := uuid.NewString()
	start := time.Now()
	outcome := classify(triggerPath)

	if triggerPath == "" {
		slog.Info("Starting full build", logfields.BuildID(buildID))
	} else {
		slog.Info("Rebuild triggered", logfields.BuildID(buildID), logfields.Trigger(triggerPath))
	}

	switch outcome {
	case OutcomeCopy:
		p.copier.CopyAll(ctx)
	case OutcomeRender:
		tc := p.loader.Load(ctx)
		p.renderer.RenderAll(ctx, tc)
	default:
		tc := p.loader.Load(ctx)
		p.renderer.RenderAll(ctx, tc)
		p.copier.CopyAll(ctx)
	}

	elapsed := time.Since(start)
	p.recorder.ObserveBuildDuration(elapsed)
	p.recorder.IncBuildOutcome(outcome)
	slog.Info("Build finished",
		logfields.BuildID(buildID),
		logfields.Stage(outcome),
		logfields.DurationMS(float64(elapsed.Milliseconds())))
}

func classify(triggerPath string) string {
	switch {
	case triggerPath == "":
		return OutcomeFull
	case strings.HasSuffix(triggerPath, ".html"):
		return OutcomeCopy
	default:
		return OutcomeRender
	}
}
