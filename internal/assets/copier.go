// Package assets copies pre-built HTML files from the template tree to the
// output tree without touching their contents.
package assets

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
)

// Copier mirrors every .html file under the template root into the output
// root, preserving relative directory structure.
type Copier struct {
	templateDir string
	outputDir   string
	recorder    metrics.Recorder
}

// NewCopier creates a Copier between the given roots. A nil recorder
// defaults to the no-op implementation.
func NewCopier(templateDir, outputDir string, recorder metrics.Recorder) *Copier {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Copier{templateDir: templateDir, outputDir: outputDir, recorder: recorder}
}

// CopyAll walks the template root recursively and copies each .html file to
// its mirrored destination, overwriting existing files. Per-file failures
// are logged and skipped; the walk continues.
func (c *Copier) CopyAll(ctx context.Context) {
	if err := os.MkdirAll(c.outputDir, 0755); err != nil {
		slog.Error("Cannot create output directory", logfields.Path(c.outputDir), logfields.Error(err))
		return
	}

	walkErr := filepath.WalkDir(c.templateDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("Error walking template directory", logfields.Path(path), logfields.Error(err))
			return nil
		}
		select {
		case <-ctx.Done():
			return fs.SkipAll
		default:
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".html") {
			return nil
		}
		dst, copyErr := c.copyFile(path)
		if copyErr != nil {
			slog.Error("Error copying file",
				logfields.Source(path), logfields.Destination(dst), logfields.Error(copyErr))
			c.recorder.IncFileError(metrics.StageCopy)
			return nil
		}
		slog.Info("Copied file", logfields.Source(path), logfields.Destination(dst))
		c.recorder.IncFileProcessed(metrics.StageCopy)
		return nil
	})
	if walkErr != nil {
		slog.Warn("Asset walk aborted", logfields.Path(c.templateDir), logfields.Error(walkErr))
	}
}

// copyFile returns the destination path even on failure so callers can log it.
func (c *Copier) copyFile(src string) (string, error) {
	rel, err := filepath.Rel(c.templateDir, src)
	if err != nil {
		return "", fmt.Errorf("relativize %s: %w", src, err)
	}
	dst := filepath.Join(c.outputDir, rel)

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return dst, fmt.Errorf("create directory: %w", err)
	}
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return dst, fmt.Errorf("remove existing destination: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return dst, err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return dst, err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return dst, fmt.Errorf("copy bytes: %w", err)
	}
	return dst, nil
}
