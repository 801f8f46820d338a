package resample

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/cjeanneret/littleplanet/internal/logic/geometry"
	"github.com/cjeanneret/littleplanet/internal/raster"
)

var (
	// ErrUnknownEngine is returned by NewEngine for unsupported engine names.
	ErrUnknownEngine = errors.New("unknown resampling engine")
	// ErrBatchMismatch means the inverse map returned a batch of a different length.
	ErrBatchMismatch = errors.New("inverse map changed batch length")
)

// Interpolation selects how fractional source coordinates are sampled.
type Interpolation int

const (
	Bilinear Interpolation = iota
	Nearest
)

func (i Interpolation) String() string {
	if i == Nearest {
		return "nearest"
	}
	return "bilinear"
}

// ParseInterpolation accepts "bilinear" (or "") and "nearest".
func ParseInterpolation(s string) (Interpolation, error) {
	switch strings.ToLower(s) {
	case "", "bilinear", "linear":
		return Bilinear, nil
	case "nearest":
		return Nearest, nil
	}
	return Bilinear, fmt.Errorf("unsupported interpolation %q", s)
}

// EdgeMode decides what out-of-range source coordinates sample.
type EdgeMode int

const (
	// EdgeClamp samples the nearest edge pixel.
	EdgeClamp EdgeMode = iota
	// EdgeConstant fills every channel with Options.Fill.
	EdgeConstant
)

func (e EdgeMode) String() string {
	if e == EdgeConstant {
		return "constant"
	}
	return "clamp"
}

// ParseEdgeMode accepts "clamp" (or "") and "constant".
func ParseEdgeMode(s string) (EdgeMode, error) {
	switch strings.ToLower(s) {
	case "", "clamp", "edge":
		return EdgeClamp, nil
	case "constant", "fill":
		return EdgeConstant, nil
	}
	return EdgeClamp, fmt.Errorf("unsupported edge mode %q", s)
}

// Options configures an engine.
type Options struct {
	Interpolation Interpolation
	Edge          EdgeMode
	Fill          float32 // value in [0, 1] used by EdgeConstant
	Workers       int     // row-band workers; 0 means one per CPU
}

// Stats describes one warp.
type Stats struct {
	Samples    int // output pixels
	OutOfRange int // output pixels whose source coordinate fell outside the image
}

// Engine resamples a source raster through an inverse map.
type Engine interface {
	// Warp calls fn once with every output pixel coordinate and fills an
	// output raster of shape out from the returned source coordinates.
	Warp(ctx context.Context, src *raster.Raster, fn geometry.InverseMap, out geometry.Shape) (*raster.Raster, Stats, error)
	Close() error
}

// NewEngine returns the engine registered under name ("native" or
// "opencv"; the latter needs the opencv build tag).
func NewEngine(name string, opts Options) (Engine, error) {
	switch strings.ToLower(name) {
	case "", "native":
		return NewNative(opts), nil
	case "opencv":
		return newOpenCV(opts)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
}

// outOfRange reports whether (x, y) lies outside the pixel centers of
// shape. NaN coordinates are out of range.
func outOfRange(x, y float64, shape geometry.Shape) bool {
	return !(x >= 0 && x <= float64(shape.Width-1) && y >= 0 && y <= float64(shape.Height-1))
}

// mapGrid runs fn over the full output grid and checks the result.
func mapGrid(src *raster.Raster, fn geometry.InverseMap, out geometry.Shape) (geometry.Batch, error) {
	if err := src.Shape().Validate(); err != nil {
		return geometry.Batch{}, fmt.Errorf("source: %w", err)
	}
	if err := out.Validate(); err != nil {
		return geometry.Batch{}, fmt.Errorf("output: %w", err)
	}
	grid := geometry.GridBatch(out)
	coords := fn(grid)
	if coords.Len() != grid.Len() || len(coords.Xs) != len(coords.Ys) {
		return geometry.Batch{}, fmt.Errorf("%w: got %d, want %d", ErrBatchMismatch, coords.Len(), grid.Len())
	}
	return coords, nil
}

func clampCoord(v float64, size int) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if hi := float64(size - 1); v > hi {
		return hi
	}
	return v
}
