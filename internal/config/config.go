package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cjeanneret/littleplanet/internal/imageio"
	"github.com/cjeanneret/littleplanet/internal/logic/geometry"
	"github.com/cjeanneret/littleplanet/internal/logic/resample"
)

// MaxConfigFileBytes bounds the size of a config file.
const MaxConfigFileBytes = 1 << 20

// Environment variables read by ApplyEnv.
const (
	EnvInputDir  = "LITTLEPLANET_INPUT_DIR"
	EnvOutputDir = "LITTLEPLANET_OUTPUT_DIR"
)

// OutputConfig describes the rendered files.
type OutputConfig struct {
	Height    int    `yaml:"height"`    // output rows (default 1080)
	Width     int    `yaml:"width"`     // output columns (default 1080)
	Directory string `yaml:"directory"` // created on first write
	Format    string `yaml:"format"`    // "" keeps the source extension (webp becomes png), else png, jpg, tiff, bmp or gif
}

// InputConfig describes where panoramas are read from.
type InputConfig struct {
	Directory  string   `yaml:"directory"`
	Extensions []string `yaml:"extensions"` // e.g. [".png", ".jpg"]
}

// ProjectionConfig holds the planet warp policy.
type ProjectionConfig struct {
	ZoomFactor     float64 `yaml:"zoom_factor"`     // radius scale before the radial curve (default 0.75)
	RotationOffset float64 `yaml:"rotation_offset"` // fraction of a turn added to theta (default 0.1, 0 for none)
	Radial         string  `yaml:"radial"`          // "sqrt" or "gamma"
	Gamma          float64 `yaml:"gamma"`           // exponent when radial is "gamma"
}

// ResampleConfig selects and tunes the resampling engine.
type ResampleConfig struct {
	Engine        string  `yaml:"engine"`        // "native" or "opencv" (needs -tags opencv)
	Interpolation string  `yaml:"interpolation"` // "bilinear" or "nearest"
	EdgeMode      string  `yaml:"edge_mode"`     // "clamp" or "constant"
	FillValue     float64 `yaml:"fill_value"`    // constant edge value in [0, 1]
	Workers       int     `yaml:"workers"`       // row-band workers (default 1 = sequential, 0 = one per CPU)
}

// FilterConfig holds the post-warp enhancement factors.
type FilterConfig struct {
	Sharpness  float64 `yaml:"sharpness"`  // 1.0 = unchanged, 0 = fully smoothed (default 1.6)
	Brightness float64 `yaml:"brightness"` // 1.0 = unchanged (default 1.0)
}

// DefaultsConfig contains generic run parameters.
type DefaultsConfig struct {
	DebugLevel   int    `yaml:"debug_level"`   // debug level 0-4 (0=off, 1=info default, 2=live, 3=verbose, 4=trace)
	SkipExisting bool   `yaml:"skip_existing"` // leave files whose output already exists
	JPEGQuality  int    `yaml:"jpeg_quality"`  // 1-100 (default 95)
	ReportPath   string `yaml:"report_path"`   // YAML run report, "" = none
}

// Config aggregates all application configuration.
type Config struct {
	Output     OutputConfig     `yaml:"output"`
	Input      InputConfig      `yaml:"input"`
	Projection ProjectionConfig `yaml:"projection"`
	Resample   ResampleConfig   `yaml:"resample"`
	Filter     FilterConfig     `yaml:"filter"`
	Defaults   DefaultsConfig   `yaml:"defaults"`
}

// Default returns the configuration used when a file leaves every field unset.
func Default() *Config {
	return &Config{
		Output: OutputConfig{Height: 1080, Width: 1080, Directory: "output"},
		Input:  InputConfig{Directory: "media", Extensions: slices.Clone(imageio.DefaultExtensions)},
		Projection: ProjectionConfig{
			ZoomFactor:     geometry.DefaultZoom,
			RotationOffset: geometry.DefaultRotation,
			Radial:         "sqrt",
			Gamma:          0.5,
		},
		Resample: ResampleConfig{
			Engine:        "native",
			Interpolation: resample.Bilinear.String(),
			EdgeMode:      resample.EdgeClamp.String(),
			Workers:       1,
		},
		Filter:   FilterConfig{Sharpness: 1.6, Brightness: 1.0},
		Defaults: DefaultsConfig{DebugLevel: 1, JPEGQuality: 95},
	}
}

// ValidateConfigPath checks that path is a .yaml file inside a configs/
// directory and does not climb out of it with "..".
func ValidateConfigPath(path string) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("config path %q must not contain '..'", path)
		}
	}
	if filepath.Ext(path) != ".yaml" {
		return fmt.Errorf("config path %q must have a .yaml extension", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if filepath.Base(filepath.Dir(abs)) != "configs" {
		return fmt.Errorf("config path %q must be inside a configs/ directory", path)
	}
	return nil
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxConfigFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if len(data) > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file exceeds %d bytes", MaxConfigFileBytes)
	}

	// Keys absent from the file keep their defaults; a zero that is
	// written out stays zero.
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	cfg.fillEmpty()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fillEmpty restores defaults for names and lists set to empty values.
func (c *Config) fillEmpty() {
	d := Default()
	if c.Output.Directory == "" {
		c.Output.Directory = d.Output.Directory
	}
	if c.Input.Directory == "" {
		c.Input.Directory = d.Input.Directory
	}
	if len(c.Input.Extensions) == 0 {
		c.Input.Extensions = d.Input.Extensions
	}
	if c.Projection.Radial == "" {
		c.Projection.Radial = d.Projection.Radial
	}
	if c.Resample.Engine == "" {
		c.Resample.Engine = d.Resample.Engine
	}
	if c.Resample.Interpolation == "" {
		c.Resample.Interpolation = d.Resample.Interpolation
	}
	if c.Resample.EdgeMode == "" {
		c.Resample.EdgeMode = d.Resample.EdgeMode
	}
}

// Validate checks ranges and enum values. Load calls it after defaults.
func (c *Config) Validate() error {
	if err := c.OutputShape().Validate(); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	for name, v := range map[string]float64{
		"projection.zoom_factor":     c.Projection.ZoomFactor,
		"projection.rotation_offset": c.Projection.RotationOffset,
		"projection.gamma":           c.Projection.Gamma,
		"resample.fill_value":        c.Resample.FillValue,
		"filter.sharpness":           c.Filter.Sharpness,
		"filter.brightness":          c.Filter.Brightness,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be finite, got %v", name, v)
		}
	}
	if c.Projection.ZoomFactor <= 0 {
		return fmt.Errorf("projection.zoom_factor must be > 0, got %.3f", c.Projection.ZoomFactor)
	}
	switch c.Projection.Radial {
	case "sqrt":
	case "gamma":
		if c.Projection.Gamma <= 0 {
			return fmt.Errorf("projection.gamma must be > 0, got %.3f", c.Projection.Gamma)
		}
	default:
		return fmt.Errorf("projection.radial must be sqrt or gamma, got %q", c.Projection.Radial)
	}
	switch c.Resample.Engine {
	case "native", "opencv":
	default:
		return fmt.Errorf("resample.engine: %w: %q", resample.ErrUnknownEngine, c.Resample.Engine)
	}
	if _, err := resample.ParseInterpolation(c.Resample.Interpolation); err != nil {
		return fmt.Errorf("resample.interpolation: %w", err)
	}
	if _, err := resample.ParseEdgeMode(c.Resample.EdgeMode); err != nil {
		return fmt.Errorf("resample.edge_mode: %w", err)
	}
	if c.Resample.FillValue < 0 || c.Resample.FillValue > 1 {
		return fmt.Errorf("resample.fill_value must be between 0 and 1, got %.3f", c.Resample.FillValue)
	}
	if c.Resample.Workers < 0 {
		return fmt.Errorf("resample.workers must be >= 0, got %d", c.Resample.Workers)
	}
	if c.Filter.Sharpness < 0 {
		return fmt.Errorf("filter.sharpness must be >= 0, got %.3f", c.Filter.Sharpness)
	}
	if c.Filter.Brightness < 0 {
		return fmt.Errorf("filter.brightness must be >= 0, got %.3f", c.Filter.Brightness)
	}
	if f := c.Output.Format; f != "" && !imageio.CanEncode(strings.ToLower(f)) {
		return fmt.Errorf("output.format %q is not supported", f)
	}
	if c.Defaults.JPEGQuality < 1 || c.Defaults.JPEGQuality > 100 {
		return fmt.Errorf("defaults.jpeg_quality must be between 1 and 100, got %d", c.Defaults.JPEGQuality)
	}
	if c.Defaults.DebugLevel < 0 || c.Defaults.DebugLevel > 4 {
		return fmt.Errorf("defaults.debug_level must be between 0 and 4, got %d", c.Defaults.DebugLevel)
	}
	return nil
}

// ApplyEnv overrides the input and output directories from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvInputDir); v != "" {
		c.Input.Directory = v
	}
	if v := os.Getenv(EnvOutputDir); v != "" {
		c.Output.Directory = v
	}
}

// OutputShape returns the rendered image size.
func (c *Config) OutputShape() geometry.Shape {
	return geometry.Shape{Height: c.Output.Height, Width: c.Output.Width}
}

// PlanetProjection returns the warp policy described by the projection section.
func (c *Config) PlanetProjection() geometry.Projection {
	p := geometry.Projection{
		Zoom:     c.Projection.ZoomFactor,
		Rotation: c.Projection.RotationOffset,
		Radial:   geometry.SqrtRadial,
	}
	if c.Projection.Radial == "gamma" {
		p.Radial = geometry.GammaRadial(c.Projection.Gamma)
	}
	return p
}

// ResampleOptions converts the resample section. Values were checked by
// Validate, so parse errors fall back to the defaults.
func (c *Config) ResampleOptions() resample.Options {
	interp, _ := resample.ParseInterpolation(c.Resample.Interpolation)
	edge, _ := resample.ParseEdgeMode(c.Resample.EdgeMode)
	return resample.Options{
		Interpolation: interp,
		Edge:          edge,
		Fill:          float32(c.Resample.FillValue),
		Workers:       c.Resample.Workers,
	}
}
