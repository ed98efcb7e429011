// Package config holds the tunable constants of the layout pipelines.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every ConfigError.
var ErrInvalidConfig = errors.New("invalid configuration")

// ConfigError reports a configuration value that cannot be used.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// Config is the configuration object shared by every pipeline.
type Config struct {
	// UnitLengthPx is the nominal side of one grid square, used when no
	// source image is at hand (plan reports).
	UnitLengthPx int `yaml:"unit_length_px"`
	// FoldingMarginPx is the gap left between panels for folding.
	FoldingMarginPx int `yaml:"folding_margin_px"`
	// SheetWidthMM is the physical side of the printed sheet.
	SheetWidthMM float64 `yaml:"sheet_width_mm"`
	DPI          int     `yaml:"dpi"`

	SourceDir   string `yaml:"source_dir"`
	DrawingsDir string `yaml:"drawings_dir"`
	BuildDir    string `yaml:"build_dir"`
	ImageExt    string `yaml:"image_ext"`

	Workers int `yaml:"workers"`
	// LayoutFile optionally replaces the built-in layout tables.
	LayoutFile string `yaml:"layout_file"`
}

// Default returns the values the fleur print was made with.
func Default() *Config {
	return &Config{
		UnitLengthPx:    1712,
		FoldingMarginPx: 40,
		SheetWidthMM:    330,
		DPI:             600,
		SourceDir:       "pages",
		DrawingsDir:     "drawings",
		BuildDir:        "build",
		ImageExt:        "tif",
		Workers:         4,
	}
}

// Load reads a YAML file over the defaults, then applies environment
// overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from FLEUR_* environment variables.
func (c *Config) ApplyEnv() error {
	strs := map[string]*string{
		"FLEUR_SOURCE_DIR":   &c.SourceDir,
		"FLEUR_DRAWINGS_DIR": &c.DrawingsDir,
		"FLEUR_BUILD_DIR":    &c.BuildDir,
		"FLEUR_IMAGE_EXT":    &c.ImageExt,
		"FLEUR_LAYOUT_FILE":  &c.LayoutFile,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"FLEUR_UNIT_LENGTH_PX":    &c.UnitLengthPx,
		"FLEUR_FOLDING_MARGIN_PX": &c.FoldingMarginPx,
		"FLEUR_DPI":               &c.DPI,
		"FLEUR_WORKERS":           &c.Workers,
	}
	for key, dst := range ints {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigError{Field: key, Message: fmt.Sprintf("not an integer: %q", v)}
		}
		*dst = n
	}

	if v := os.Getenv("FLEUR_SHEET_WIDTH_MM"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return &ConfigError{Field: "FLEUR_SHEET_WIDTH_MM", Message: fmt.Sprintf("not a number: %q", v)}
		}
		c.SheetWidthMM = f
	}
	return nil
}

// Validate checks that every value is usable.
func (c *Config) Validate() error {
	switch {
	case c.UnitLengthPx <= 0:
		return &ConfigError{Field: "unit_length_px", Message: "must be positive"}
	case c.FoldingMarginPx < 0:
		return &ConfigError{Field: "folding_margin_px", Message: "must not be negative"}
	case c.SheetWidthMM <= 0:
		return &ConfigError{Field: "sheet_width_mm", Message: "must be positive"}
	case c.DPI <= 0:
		return &ConfigError{Field: "dpi", Message: "must be positive"}
	case c.BuildDir == "":
		return &ConfigError{Field: "build_dir", Message: "required field is missing"}
	case c.ImageExt == "":
		return &ConfigError{Field: "image_ext", Message: "required field is missing"}
	case c.Workers < 1:
		return &ConfigError{Field: "workers", Message: "must be at least 1"}
	}
	return nil
}
