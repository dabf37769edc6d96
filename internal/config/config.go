// Package config holds the site generator's directory configuration.
//
// The conventional layout is data/ for structured data files, templates/
// for the template tree (with templates/partials/ reserved for include-only
// fragments), and site/ for generated output. Every root can be overridden
// through an optional sitegen.yaml, CLI flags, or environment variables;
// the defaults reproduce the conventional layout.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SiteConfig describes the directory roots a build operates on.
type SiteConfig struct {
	// DataDir holds JSON/YAML data files merged into the template context.
	DataDir string `yaml:"data_dir"`
	// TemplateDir is the root of the template tree. Include resolution is
	// anchored here.
	TemplateDir string `yaml:"template_dir"`
	// OutputDir receives rendered and copied files, mirroring TemplateDir's
	// relative structure.
	OutputDir string `yaml:"output_dir"`
	// PartialsDirName is the path segment that marks include-only
	// templates. Files under it are never rendered directly.
	PartialsDirName string `yaml:"partials_dir"`
}

// Default returns a SiteConfig populated with the conventional directories.
func Default() *SiteConfig {
	cfg := &SiteConfig{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills any unset field with its conventional value.
func (c *SiteConfig) ApplyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.TemplateDir == "" {
		c.TemplateDir = "templates"
	}
	if c.OutputDir == "" {
		c.OutputDir = "site"
	}
	if c.PartialsDirName == "" {
		c.PartialsDirName = "partials"
	}
}

// Validate checks that the configuration is usable for a build. The data
// directory may be absent (an empty context is valid); the template
// directory must exist.
func (c *SiteConfig) Validate() error {
	if c.TemplateDir == "" {
		return fmt.Errorf("template directory must not be empty")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output directory must not be empty")
	}
	st, err := os.Stat(c.TemplateDir)
	if err != nil {
		return fmt.Errorf("template directory %s: %w", c.TemplateDir, err)
	}
	if !st.IsDir() {
		return fmt.Errorf("template directory %s is not a directory", c.TemplateDir)
	}
	if sameDir(c.TemplateDir, c.OutputDir) {
		return fmt.Errorf("output directory must differ from template directory")
	}
	return nil
}

// Load reads a YAML configuration file and applies defaults for omitted
// fields. A missing file is not an error; the defaults are returned.
func Load(path string) (*SiteConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := &SiteConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

func sameDir(a, b string) bool {
	aa, err := filepath.Abs(a)
	if err != nil {
		return false
	}
	bb, err := filepath.Abs(b)
	if err != nil {
		return false
	}
	return aa == bb
}
