// Package render expands the template tree against the merged data context.
//
// Recognized template suffixes are .j2, .jinja, .html.j2 and .html.jinja.
// Files under the partials segment are include-only: other templates may
// pull them in through the engine's include mechanism, but they never
// produce output files of their own.
package render

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/flosch/pongo2/v6"

	"git.home.luguber.info/inful/sitegen/internal/data"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
)

// templateSuffixes are checked longest-first when deriving output names.
var templateSuffixes = []string{".html.j2", ".html.jinja", ".j2", ".jinja"}

// Renderer expands every non-partial template under the template root and
// writes the results under the output root.
type Renderer struct {
	templateDir string
	outputDir   string
	partialsDir string
	engine      *Engine
	recorder    metrics.Recorder
}

// NewRenderer creates a Renderer between the given roots. partialsDir is the
// path segment (conventionally "partials") excluded from direct rendering.
// A nil recorder defaults to the no-op implementation.
func NewRenderer(templateDir, outputDir, partialsDir string, recorder metrics.Recorder) (*Renderer, error) {
	engine, err := NewEngine(templateDir)
	if err != nil {
		return nil, err
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Renderer{
		templateDir: templateDir,
		outputDir:   outputDir,
		partialsDir: partialsDir,
		engine:      engine,
		recorder:    recorder,
	}, nil
}

// RenderAll renders every discovered template against the context. A failing
// template is logged and skipped; it never aborts the remaining templates.
// Engine-reported failures (bad syntax, unresolved include) and unexpected
// ones (IO) are logged distinguishably.
func (r *Renderer) RenderAll(ctx context.Context, tc data.Context) {
	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		slog.Error("Cannot create output directory", logfields.Path(r.outputDir), logfields.Error(err))
		return
	}

	for _, relPath := range r.discover(ctx) {
		select {
		case <-ctx.Done():
			return
		default:
		}
		outPath := filepath.Join(r.outputDir, OutputName(relPath))
		if err := r.renderOne(relPath, outPath, tc); err != nil {
			var engineErr *pongo2.Error
			if errors.As(err, &engineErr) {
				slog.Error("Template engine error",
					logfields.Source(relPath), logfields.Error(engineErr))
			} else {
				slog.Error("Unexpected error rendering template",
					logfields.Source(relPath), logfields.Error(err))
			}
			r.recorder.IncFileError(metrics.StageRender)
			continue
		}
		slog.Info("Rendered template", logfields.Source(relPath), logfields.Destination(outPath))
		r.recorder.IncFileProcessed(metrics.StageRender)
	}
}

func (r *Renderer) renderOne(relPath, outPath string, tc data.Context) error {
	output, err := r.engine.Render(relPath, tc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(outPath, []byte(output), 0644)
}

// discover returns the root-relative paths of every renderable template,
// in walk order. Walk errors are logged and skipped like file errors.
func (r *Renderer) discover(ctx context.Context) []string {
	var found []string
	_ = filepath.WalkDir(r.templateDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("Error walking template directory", logfields.Path(path), logfields.Error(err))
			return nil
		}
		select {
		case <-ctx.Done():
			return fs.SkipAll
		default:
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(r.templateDir, path)
		if relErr != nil {
			return nil
		}
		if !IsTemplate(rel) || r.isPartial(rel) {
			return nil
		}
		found = append(found, rel)
		return nil
	})
	return found
}

// isPartial reports whether a root-relative path contains the partials
// segment as a whole path element.
func (r *Renderer) isPartial(rel string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if seg == r.partialsDir {
			return true
		}
	}
	return false
}

// IsTemplate reports whether the path carries a recognized template suffix.
func IsTemplate(path string) bool {
	return strings.HasSuffix(path, ".j2") || strings.HasSuffix(path, ".jinja")
}

// OutputName derives the output file name for a template path: the template
// suffix is stripped down to a plain .html. a.html.j2 and a.j2 both map to
// a.html.
func OutputName(rel string) string {
	for _, suffix := range templateSuffixes {
		if strings.HasSuffix(rel, suffix) {
			return strings.TrimSuffix(rel, suffix) + ".html"
		}
	}
	return rel
}
