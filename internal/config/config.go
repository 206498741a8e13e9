// Package config loads generator and render settings from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/chazu/cathedral/pkg/spiral"
	"github.com/chazu/cathedral/pkg/tessellate"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvSeed  = "CATHEDRAL_SEED"
	EnvDepth = "CATHEDRAL_DEPTH"
	EnvRatio = "CATHEDRAL_RATIO"
)

// DefaultMeshCells is the marching cubes resolution used when none is set.
const DefaultMeshCells = 64

// Settings is the on-disk configuration. Generator keys sit at the top
// level; rendering keys live under render.
type Settings struct {
	Generator spiral.Config `yaml:",inline"`
	Render    Render        `yaml:"render"`
}

// Render controls tessellation for the CLI stl command and the desktop view.
type Render struct {
	MeshCells    int     `yaml:"mesh_cells"`
	MarkerRadius float64 `yaml:"marker_radius"`
	LinkRadius   float64 `yaml:"link_radius"`
	Links        bool    `yaml:"links"`
	MergeLinks   bool    `yaml:"merge_links"`
}

// TessellateOptions converts the render block for tessellate.Tessellate.
func (r Render) TessellateOptions() tessellate.Options {
	return tessellate.Options{
		MarkerRadius: r.MarkerRadius,
		Links:        r.Links,
		LinkRadius:   r.LinkRadius,
		MergeLinks:   r.MergeLinks,
	}
}

// DefaultSettings returns the generator defaults and marker-only rendering.
func DefaultSettings() *Settings {
	opts := tessellate.DefaultOptions()
	return &Settings{
		Generator: spiral.DefaultConfig(),
		Render: Render{
			MeshCells:    DefaultMeshCells,
			MarkerRadius: opts.MarkerRadius,
			LinkRadius:   opts.LinkRadius,
			Links:        opts.Links,
		},
	}
}

// Load reads path on top of DefaultSettings. An empty path or a missing
// file yields the defaults. Unknown keys are rejected. Environment
// overrides are applied last.
func Load(path string) (*Settings, error) {
	s := DefaultSettings()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := decode(data, s); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if err := s.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return s, nil
}

func decode(data []byte, s *Settings) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Save writes the settings as YAML, creating parent directories.
func (s *Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies CATHEDRAL_* environment variables.
func (s *Settings) applyEnvOverrides() error {
	if v := os.Getenv(EnvSeed); v != "" {
		s.Generator.Seed = v
	}
	if v := os.Getenv(EnvDepth); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDepth, err)
		}
		s.Generator.Depth = d
	}
	if v := os.Getenv(EnvRatio); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRatio, err)
		}
		s.Generator.Ratio = r
	}
	return nil
}

// Validate checks the generator config and the render block.
func (s *Settings) Validate() error {
	if err := s.Generator.Validate(); err != nil {
		return err
	}
	if s.Render.MeshCells <= 0 {
		return fmt.Errorf("render: mesh_cells must be positive, got %d", s.Render.MeshCells)
	}
	if !(s.Render.MarkerRadius > 0) {
		return fmt.Errorf("render: marker_radius must be positive, got %v", s.Render.MarkerRadius)
	}
	if s.Render.Links && !(s.Render.LinkRadius > 0) {
		return fmt.Errorf("render: link_radius must be positive, got %v", s.Render.LinkRadius)
	}
	return nil
}
