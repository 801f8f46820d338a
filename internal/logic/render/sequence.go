package render

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/cjeanneret/littleplanet/internal/debug"
	"github.com/cjeanneret/littleplanet/internal/imageio"
	"github.com/cjeanneret/littleplanet/internal/logic/filter"
	"github.com/cjeanneret/littleplanet/internal/logic/geometry"
	"github.com/cjeanneret/littleplanet/internal/logic/resample"
	"github.com/cjeanneret/littleplanet/internal/raster"
)

// ErrNoInputs is returned when the input directory holds no matching file.
var ErrNoInputs = errors.New("no input images found")

// Sequence renders every panorama of a directory, one file at a time.
type Sequence struct {
	engine resample.Engine
}

func NewSequence(e resample.Engine) *Sequence {
	return &Sequence{engine: e}
}

// Params defines one batch run.
type Params struct {
	InputDir   string
	Extensions []string // matched case-insensitively; empty means ".png"
	OutputDir  string
	Format     string // forced output extension, empty keeps the source's

	OutputShape geometry.Shape
	Projection  geometry.Projection

	Brightness float32 // 1 leaves the image unchanged
	Sharpness  float32 // 1 leaves the image unchanged

	JPEGQuality  int
	SkipExisting bool
}

// DefaultParams returns the standard 1080x1080 rendering of media/ into output/.
func DefaultParams() Params {
	return Params{
		InputDir:    "media",
		Extensions:  imageio.DefaultExtensions,
		OutputDir:   "output",
		OutputShape: geometry.Shape{Height: 1080, Width: 1080},
		Projection:  geometry.DefaultProjection(),
		Brightness:  filter.DefaultBrightness,
		Sharpness:   filter.DefaultSharpness,
		JPEGQuality: 95,
	}
}

// Run processes the files of p.InputDir in sorted order. A failing file is
// recorded in the report and the batch moves on; only invalid parameters,
// an unreadable or empty input directory and cancellation abort the run.
// On cancellation the partial report is returned along with ctx.Err().
func (s *Sequence) Run(ctx context.Context, p Params) (*Report, error) {
	if err := p.OutputShape.Validate(); err != nil {
		return nil, fmt.Errorf("output shape: %w", err)
	}
	if err := p.Projection.Validate(); err != nil {
		return nil, err
	}

	paths, err := imageio.Scan(p.InputDir, p.Extensions)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoInputs, p.InputDir)
	}

	report := &Report{
		RunID:     uuid.NewString(),
		Started:   time.Now(),
		InputDir:  p.InputDir,
		OutputDir: p.OutputDir,
		Shape:     p.OutputShape.String(),
	}
	defer func() { report.Finished = time.Now() }()

	debug.Section("Rendering")
	debug.Info("Run %s: %d file(s) from %s to %s", report.RunID, len(paths), p.InputDir, p.OutputDir)

	for i, path := range paths {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}

		debug.File(i+1, len(paths), filepath.Base(path))
		res := s.renderFile(ctx, path, p)
		switch {
		case res.Err != nil:
			debug.Error(res.Err)
		case res.Skipped:
			debug.Live("Skipped %s (output exists)", filepath.Base(path))
		default:
			debug.Live("Wrote %s in %s", res.Output, res.Duration.Round(time.Millisecond))
		}
		report.Files = append(report.Files, res)
	}

	debug.Summary("Batch complete")
	debug.Totals(report.Rendered(), report.Skipped(), report.Failed())
	if report.Failed() > 0 && debug.IsEnabled(debug.LevelInfo) {
		for _, f := range report.Files {
			if f.Err != nil {
				debug.Info("  %s failed (%s)", filepath.Base(f.Input), f.Kind)
			}
		}
	}
	return report, nil
}

// renderFile runs decode, warp, filters and encode for one source file.
// Each closure gets its own mapping bound to this file's shape.
func (s *Sequence) renderFile(ctx context.Context, path string, p Params) FileResult {
	start := time.Now()
	res := FileResult{Input: path, Output: imageio.OutputPath(p.OutputDir, path, p.Format)}
	fail := func(kind Kind, err error) FileResult {
		res.Kind = kind
		res.Err = fmt.Errorf("%s: %w", filepath.Base(path), err)
		res.Error = res.Err.Error()
		res.Duration = time.Since(start)
		return res
	}

	if p.SkipExisting && imageio.Exists(res.Output) {
		res.Skipped = true
		return res
	}

	t := time.Now()
	img, err := imageio.Decode(path)
	if err != nil {
		return fail(KindDecode, err)
	}
	debug.Trace("%s decoded as %T", filepath.Base(path), img)
	src := raster.FromImage(img)
	debug.Stage("decode", time.Since(t))

	shape := src.Shape()
	res.SourceShape = shape.String()
	if err := shape.Validate(); err != nil {
		return fail(KindShape, err)
	}
	debug.Shape("source", shape.Height, shape.Width)

	t = time.Now()
	fn := geometry.LittlePlanet(p.OutputShape, shape, p.Projection)
	warped, stats, err := s.engine.Warp(ctx, src, fn, p.OutputShape)
	if err != nil {
		return fail(KindWarp, err)
	}
	res.OutOfRange = stats.OutOfRange
	debug.Stage("warp", time.Since(t))
	debug.Verbose("%d of %d samples outside the source", stats.OutOfRange, stats.Samples)

	t = time.Now()
	out := filter.Sharpen(filter.Brightness(warped, p.Brightness), p.Sharpness)
	debug.Stage("filter", time.Since(t))

	t = time.Now()
	if err := imageio.Encode(res.Output, out.ToNRGBA(), p.JPEGQuality); err != nil {
		return fail(KindWrite, err)
	}
	debug.Stage("encode", time.Since(t))

	res.Duration = time.Since(start)
	return res
}
