// Package data loads structured data files into the template context.
package data

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
)

// Context is the merged key-value data made available to templates.
type Context map[string]any

// Loader reads every JSON and YAML file directly inside the data directory
// and merges their top-level mappings into one Context.
type Loader struct {
	dir      string
	recorder metrics.Recorder
}

// NewLoader creates a Loader for the given data directory. A nil recorder
// defaults to the no-op implementation.
func NewLoader(dir string, recorder metrics.Recorder) *Loader {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Loader{dir: dir, recorder: recorder}
}

// Load enumerates matching data files and returns the merged context.
// The merge is a shallow top-level key overwrite: JSON files first, then
// YAML files, each set in directory enumeration order, last writer wins.
// A file that fails to parse is logged and skipped; it never aborts the
// load. A missing directory yields an empty context.
func (l *Loader) Load(ctx context.Context) Context {
	merged := Context{}

	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Cannot read data directory", logfields.Path(l.dir), logfields.Error(err))
		}
		return merged
	}

	// Two passes mirror the load order users observe: all JSON files,
	// then all YAML files.
	l.mergeFiles(ctx, merged, entries, isJSONFile, l.parseJSON)
	l.mergeFiles(ctx, merged, entries, isYAMLFile, l.parseYAML)

	return merged
}

type parseFunc func(path string) (map[string]any, error)

func (l *Loader) mergeFiles(ctx context.Context, merged Context, entries []os.DirEntry, match func(string) bool, parse parseFunc) {
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if entry.IsDir() || !match(entry.Name()) {
			continue
		}
		path := filepath.Join(l.dir, entry.Name())
		mapping, err := parse(path)
		if err != nil {
			slog.Error("Error loading data file", logfields.Path(path), logfields.Error(err))
			l.recorder.IncFileError(metrics.StageData)
			continue
		}
		for k, v := range mapping {
			merged[k] = v
		}
		slog.Info("Loaded data file", logfields.Path(path), logfields.Count(len(mapping)))
		l.recorder.IncFileProcessed(metrics.StageData)
	}
}

func (l *Loader) parseJSON(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var mapping map[string]any
	if err := json.Unmarshal(raw, &mapping); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if mapping == nil {
		return nil, fmt.Errorf("parse json: top level is not a mapping")
	}
	return mapping, nil
}

func (l *Loader) parseYAML(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var mapping map[string]any
	if err := yaml.Unmarshal(raw, &mapping); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if mapping == nil {
		return nil, fmt.Errorf("parse yaml: top level is not a mapping")
	}
	return mapping, nil
}

// Extension matching is case-insensitive per letter, so data.JSON and
// data.Json both load.
func isJSONFile(name string) bool { return hasFoldSuffix(name, ".json") }
func isYAMLFile(name string) bool { return hasFoldSuffix(name, ".yaml") }

func hasFoldSuffix(name, suffix string) bool {
	if len(name) < len(suffix) {
		return false
	}
	return strings.EqualFold(name[len(name)-len(suffix):], suffix)
}
