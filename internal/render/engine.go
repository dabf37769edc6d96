package render

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/flosch/pongo2/v6"
	"github.com/yuin/goldmark"
)

var registerFiltersOnce sync.Once

// Engine wraps a pongo2 template set rooted at the template directory.
// Includes and extends inside templates resolve against that root, so a
// template anywhere in the tree can pull in partials/_nav.j2 by its
// root-relative path.
type Engine struct {
	set *pongo2.TemplateSet
}

// NewEngine creates an Engine whose template lookup is rooted at templateDir.
func NewEngine(templateDir string) (*Engine, error) {
	loader, err := pongo2.NewLocalFileSystemLoader(templateDir)
	if err != nil {
		return nil, fmt.Errorf("create template loader for %s: %w", templateDir, err)
	}
	registerFiltersOnce.Do(registerFilters)
	return &Engine{set: pongo2.NewSet("sitegen", loader)}, nil
}

// Render expands the template at the given root-relative path against the
// context and returns the output text.
func (e *Engine) Render(relPath string, context map[string]any) (string, error) {
	tmpl, err := e.set.FromFile(relPath)
	if err != nil {
		return "", err
	}
	return tmpl.Execute(pongo2.Context(context))
}

// registerFilters installs the additional filters available to all
// templates. pongo2's filter registry is process-wide, hence the Once.
func registerFilters() {
	// markdown converts a markdown-bearing context value to HTML, so data
	// files can carry rich text bodies.
	_ = pongo2.RegisterFilter("markdown", func(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		var buf bytes.Buffer
		if err := goldmark.New().Convert([]byte(in.String()), &buf); err != nil {
			return nil, &pongo2.Error{Sender: "filter:markdown", OrigError: err}
		}
		return pongo2.AsSafeValue(buf.String()), nil
	})
}
