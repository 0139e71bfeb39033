// Package config loads and saves the preview shell settings.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/chazu/smoothvox/pkg/buffers"
	"github.com/chazu/smoothvox/pkg/material"
)

// Config holds the tunables for building models.
type Config struct {
	// MaxVerts is the vertex budget of each build's scratch buffers.
	MaxVerts int `toml:"max_verts"`
	// Workers is the number of concurrent builds. Zero means one per CPU.
	Workers int `toml:"workers"`
	// CachePath is the sqlite mesh cache. Empty disables caching.
	CachePath string `toml:"cache_path"`
	// CacheMaxAge drops cached meshes unused for longer at startup. Zero
	// keeps everything.
	CacheMaxAge Duration `toml:"cache_max_age"`
	AO          AO       `toml:"ao"`
}

// Duration is a time.Duration written as a string such as "720h".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// AO holds the ambient occlusion defaults used by (ao) with no arguments.
type AO struct {
	MaxDistance float32 `toml:"max_distance"`
	Strength    float32 `toml:"strength"`
	Angle       float32 `toml:"angle"`
	Samples     int     `toml:"samples"`
}

// Default returns the built-in configuration.
func Default() Config {
	ao := material.DefaultAO()
	return Config{
		MaxVerts:    buffers.DefaultMaxVerts,
		Workers:     runtime.NumCPU(),
		CacheMaxAge: Duration{30 * 24 * time.Hour},
		AO: AO{
			MaxDistance: ao.MaxDistance,
			Strength:    ao.Strength,
			Angle:       ao.Angle,
			Samples:     ao.Samples,
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as TOML, creating parent directories.
func Save(cfg Config, path string) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Validate reports settings that cannot produce a build.
func (c Config) Validate() error {
	switch {
	case c.MaxVerts < 4:
		return fmt.Errorf("max_verts must be at least 4, got %d", c.MaxVerts)
	case c.Workers < 0:
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	case c.CacheMaxAge.Duration < 0:
		return fmt.Errorf("cache_max_age must not be negative, got %s", c.CacheMaxAge)
	case c.AO.Samples < 1:
		return fmt.Errorf("ao.samples must be positive, got %d", c.AO.Samples)
	case c.AO.Angle <= 0 || c.AO.Angle > 180:
		return fmt.Errorf("ao.angle must be in (0, 180], got %g", c.AO.Angle)
	}
	return nil
}

// DefaultAO converts the AO section into material settings.
func (c Config) DefaultAO() material.AO {
	return material.AO{
		MaxDistance: c.AO.MaxDistance,
		Strength:    c.AO.Strength,
		Angle:       c.AO.Angle,
		Samples:     c.AO.Samples,
	}
}
