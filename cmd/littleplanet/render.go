package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ajroetker/go-highway/hwy"
	"github.com/spf13/cobra"

	"github.com/cjeanneret/littleplanet/internal/config"
	"github.com/cjeanneret/littleplanet/internal/debug"
	"github.com/cjeanneret/littleplanet/internal/logic/render"
	"github.com/cjeanneret/littleplanet/internal/logic/resample"
	"github.com/cjeanneret/littleplanet/internal/web"
)

var defaultConfigPath = filepath.Join("configs", "default.yaml")

func newRenderCmd() *cobra.Command {
	var (
		cfgPath   string
		zoom      float64
		rotation  float64
		sharpness float64
		inputDir  string
		outputDir string
	)
	webPort := &webPortFlag{defaultPort: 8080}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render every panorama of the input directory",
		Example: `  # Render media/ into output/ with configs/default.yaml
  littleplanet render

  # Tighter planet, no rotation
  littleplanet render --zoom 0.5 --rotation 1

  # Serve the control page on :8080 instead of rendering once
  littleplanet render --web`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgPath, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			cfg.ApplyEnv()
			if inputDir != "" {
				cfg.Input.Directory = inputDir
			}
			if outputDir != "" {
				cfg.Output.Directory = outputDir
			}

			// Only non-zero values are applied; zero means "use config default"
			if err := validateCLIOverrides(zoom, rotation, sharpness); err != nil {
				return fmt.Errorf("invalid CLI override: %w", err)
			}
			applyOverrides(cfg, web.Overrides{
				ZoomFactor:     zoom,
				RotationOffset: rotation,
				Sharpness:      sharpness,
			})

			debug.Init(cfg.Defaults.DebugLevel)
			debug.Section("Initialization")
			debug.Value("Config path", cfgPath)
			debug.Value("Debug level", cfg.Defaults.DebugLevel)
			debug.Value("SIMD target", hwy.CurrentName())
			debug.PrintStruct("Projection", cfg.Projection)
			debug.PrintStruct("Resample", cfg.Resample)

			debug.Step(1, "Creating resampling engine")
			engine, err := resample.NewEngine(cfg.Resample.Engine, cfg.ResampleOptions())
			if err != nil {
				return err
			}
			defer func() {
				if err := engine.Close(); err != nil {
					log.Printf("closing engine failed: %v", err)
				}
			}()

			run := func(ctx context.Context, overrides web.Overrides) error {
				_, err := executeRender(ctx, cfg, engine, overrides)
				return err
			}

			if port := webPort.port(); port > 0 {
				debug.Step(2, fmt.Sprintf("Starting web server on :%d", port))
				broadcaster := web.NewStatusBroadcaster()
				debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))
				formDefaults := web.FormConfig{
					ZoomFactor:     cfg.Projection.ZoomFactor,
					RotationOffset: cfg.Projection.RotationOffset,
					Sharpness:      cfg.Filter.Sharpness,
					InputDir:       cfg.Input.Directory,
					OutputDir:      cfg.Output.Directory,
				}
				srv := web.NewServer(fmt.Sprintf(":%d", port), broadcaster, run, formDefaults)
				return srv.Run(cmd.Context())
			}

			// Render once with current config (already has CLI overrides applied)
			debug.Step(2, "Rendering batch")
			return run(cmd.Context(), web.Overrides{})
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", defaultConfigPath, "path to config file")
	cmd.Flags().Float64Var(&zoom, "zoom", 0, "override projection zoom factor (0-10]")
	cmd.Flags().Float64Var(&rotation, "rotation", 0, "override rotation offset in turns [-1, 1]")
	cmd.Flags().Float64Var(&sharpness, "sharpness", 0, "override sharpness factor (0-10]")
	cmd.Flags().StringVar(&inputDir, "input", "", "override input directory")
	cmd.Flags().StringVar(&outputDir, "output", "", "override output directory")
	cmd.Flags().Var(webPort, "web", "start web server on port; --web for default 8080, --web=8980 for custom port")
	cmd.Flags().Lookup("web").NoOptDefVal = strconv.Itoa(webPort.defaultPort)

	return cmd
}

// loadConfig reads the config file. The default path may be absent, in
// which case built-in defaults are used; an explicit path must exist.
func loadConfig(path string, explicit bool) (*config.Config, error) {
	if !explicit {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return config.Default(), nil
		}
	}
	if err := config.ValidateConfigPath(path); err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	return cfg, nil
}

// paramsFromConfig translates a config into batch parameters.
func paramsFromConfig(cfg *config.Config) render.Params {
	return render.Params{
		InputDir:     cfg.Input.Directory,
		Extensions:   cfg.Input.Extensions,
		OutputDir:    cfg.Output.Directory,
		Format:       cfg.Output.Format,
		OutputShape:  cfg.OutputShape(),
		Projection:   cfg.PlanetProjection(),
		Brightness:   float32(cfg.Filter.Brightness),
		Sharpness:    float32(cfg.Filter.Sharpness),
		JPEGQuality:  cfg.Defaults.JPEGQuality,
		SkipExisting: cfg.Defaults.SkipExisting,
	}
}

// executeRender runs one batch with the given config and overrides.
// It applies overrides to a copy of the config, then renders. The report
// is written even when the run is cancelled or some files failed.
func executeRender(
	ctx context.Context,
	baseCfg *config.Config,
	engine resample.Engine,
	overrides web.Overrides,
) (*render.Report, error) {
	cfg := applyOverridesToCopy(baseCfg, overrides)

	report, err := render.NewSequence(engine).Run(ctx, paramsFromConfig(cfg))
	if report != nil && cfg.Defaults.ReportPath != "" {
		if werr := report.WriteReport(cfg.Defaults.ReportPath); werr != nil {
			debug.Error(werr)
		} else {
			debug.Info("Report written to %s", cfg.Defaults.ReportPath)
		}
	}
	if err != nil {
		return report, err
	}
	if n := report.Failed(); n > 0 {
		return report, fmt.Errorf("%d of %d file(s) failed", n, len(report.Files))
	}
	return report, nil
}

// validateCLIOverrides checks that non-zero CLI overrides are within valid ranges.
// Zero values are ignored (they mean "use config default").
func validateCLIOverrides(zoom, rotation, sharpness float64) error {
	return web.ValidateOverrides(web.Overrides{
		ZoomFactor:     zoom,
		RotationOffset: rotation,
		Sharpness:      sharpness,
	})
}

// applyOverrides mutates cfg with overrides. Only non-zero override values are applied.
func applyOverrides(cfg *config.Config, overrides web.Overrides) {
	if overrides.ZoomFactor != 0 {
		cfg.Projection.ZoomFactor = overrides.ZoomFactor
	}
	if overrides.RotationOffset != 0 {
		cfg.Projection.RotationOffset = overrides.RotationOffset
	}
	if overrides.Sharpness != 0 {
		cfg.Filter.Sharpness = overrides.Sharpness
	}
}

// applyOverridesToCopy returns a new config with overrides applied.
// Zero values in overrides mean "use base config".
func applyOverridesToCopy(baseCfg *config.Config, overrides web.Overrides) *config.Config {
	cfg := *baseCfg
	applyOverrides(&cfg, overrides)
	return &cfg
}

// webPortFlag implements pflag.Value for --web: 0 = disabled, --web or --web=8080 → 8080, --web=8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) Type() string { return "port" }

func (w *webPortFlag) port() int { return w.val }
