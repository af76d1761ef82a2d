// Package config handles configuration loading and defaults.
package config

import (
	"fmt"
	"os"

	"github.com/woozymasta/mgrsgrid/internal/controller"
	"github.com/woozymasta/mgrsgrid/internal/dispatch"
	"github.com/woozymasta/mgrsgrid/internal/grid"

	"gopkg.in/yaml.v3"
)

// Config represents the root configuration file structure.
type Config struct {
	// ZonesFile is an optional GeoJSON zone asset; the built-in set is used
	// when empty.
	ZonesFile string            `yaml:"zones_file,omitempty" json:"zones_file,omitempty"`
	Workers   int               `yaml:"workers,omitempty" json:"workers"`
	Zoom      controller.Levels `yaml:"zoom" json:"zoom"`
	Grid      Grid              `yaml:"grid" json:"grid"`
}

// Grid tunes the generator.
type Grid struct {
	MinArea       float64 `yaml:"min_area,omitempty" json:"min_area"`
	SamplesCoarse int     `yaml:"samples_coarse,omitempty" json:"samples_coarse"`
	SamplesFine   int     `yaml:"samples_fine,omitempty" json:"samples_fine"`
}

// Options converts the section into generator options.
func (g Grid) Options() grid.Options {
	return grid.Options{
		MinArea:       g.MinArea,
		SamplesCoarse: g.SamplesCoarse,
		SamplesFine:   g.SamplesFine,
	}
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.Normalize()
	return cfg
}

// Load reads and parses the YAML configuration file from the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &cfg, nil
}

// LoadOrDefault loads path, falling back to defaults when the file does not
// exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	return cfg, err
}

// Normalize fills missing values with defaults.
func (c *Config) Normalize() {
	if c.Workers <= 0 {
		c.Workers = dispatch.DefaultWorkers
	}
	if c.Zoom.Squares <= 0 {
		c.Zoom.Squares = controller.DefaultSquaresZoom
	}
	if c.Zoom.Cells <= 0 {
		c.Zoom.Cells = controller.DefaultCellsZoom
	}

	def := grid.DefaultOptions()
	if c.Grid.MinArea <= 0 {
		c.Grid.MinArea = def.MinArea
	}
	if c.Grid.SamplesCoarse <= 0 {
		c.Grid.SamplesCoarse = def.SamplesCoarse
	}
	if c.Grid.SamplesFine <= 0 {
		c.Grid.SamplesFine = def.SamplesFine
	}
}

// Validate checks values that have no sensible fallback.
func (c *Config) Validate() error {
	if c.Zoom.Cells < c.Zoom.Squares {
		return fmt.Errorf("zoom.cells_10km (%d) is below zoom.squares_100km (%d)", c.Zoom.Cells, c.Zoom.Squares)
	}
	if c.Grid.SamplesCoarse < 2 || c.Grid.SamplesFine < 2 {
		return fmt.Errorf("grid samples per edge must be at least 2")
	}
	return nil
}
