package resample

import (
	"context"
	"math"
	"sync/atomic"

	himage "github.com/ajroetker/go-highway/hwy/contrib/image"
	"github.com/ajroetker/go-highway/hwy/contrib/workerpool"

	"github.com/cjeanneret/littleplanet/internal/logic/geometry"
	"github.com/cjeanneret/littleplanet/internal/raster"
)

// NativeEngine samples in pure Go. Output rows are split into bands
// across a persistent worker pool; with one worker the warp runs on the
// calling goroutine.
type NativeEngine struct {
	opts Options
	pool *workerpool.Pool
}

// NewNative creates an engine and its worker pool.
func NewNative(opts Options) *NativeEngine {
	return &NativeEngine{
		opts: opts,
		pool: workerpool.New(opts.Workers),
	}
}

// Workers returns the size of the row-band pool.
func (e *NativeEngine) Workers() int {
	return e.pool.NumWorkers()
}

// Close stops the worker pool.
func (e *NativeEngine) Close() error {
	e.pool.Close()
	return nil
}

// Warp implements Engine.
func (e *NativeEngine) Warp(ctx context.Context, src *raster.Raster, fn geometry.InverseMap, out geometry.Shape) (*raster.Raster, Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, Stats{}, err
	}
	coords, err := mapGrid(src, fn, out)
	if err != nil {
		return nil, Stats{}, err
	}

	dst := raster.New(out, src.Channels())
	var outside atomic.Int64

	e.pool.ParallelFor(out.Height, func(start, end int) {
		n := 0
		for y := start; y < end; y++ {
			if ctx.Err() != nil {
				return
			}
			for x := 0; x < out.Width; x++ {
				i := y*out.Width + x
				if e.sample(src, dst, coords.Xs[i], coords.Ys[i], x, y) {
					n++
				}
			}
		}
		outside.Add(int64(n))
	})

	if err := ctx.Err(); err != nil {
		return nil, Stats{}, err
	}
	return dst, Stats{Samples: out.Pixels(), OutOfRange: int(outside.Load())}, nil
}

// sample writes output pixel (dx, dy) from source coordinate (sx, sy)
// and reports whether the coordinate was out of range.
func (e *NativeEngine) sample(src, dst *raster.Raster, sx, sy float64, dx, dy int) bool {
	shape := src.Shape()
	outside := outOfRange(sx, sy, shape)
	if outside && e.opts.Edge == EdgeConstant {
		for c := 0; c < dst.Channels(); c++ {
			dst.Plane(c).Set(dx, dy, e.opts.Fill)
		}
		return true
	}
	sx = clampCoord(sx, shape.Width)
	sy = clampCoord(sy, shape.Height)

	if e.opts.Interpolation == Nearest {
		ix := himage.Clamp(int(math.Round(sx)), shape.Width)
		iy := himage.Clamp(int(math.Round(sy)), shape.Height)
		for c := 0; c < dst.Channels(); c++ {
			dst.Plane(c).Set(dx, dy, src.Plane(c).At(ix, iy))
		}
		return outside
	}

	x0f, y0f := math.Floor(sx), math.Floor(sy)
	fx, fy := float32(sx-x0f), float32(sy-y0f)
	x0 := himage.Clamp(int(x0f), shape.Width)
	y0 := himage.Clamp(int(y0f), shape.Height)
	x1 := himage.Clamp(x0+1, shape.Width)
	y1 := himage.Clamp(y0+1, shape.Height)

	for c := 0; c < dst.Channels(); c++ {
		p := src.Plane(c)
		top := p.At(x0, y0)*(1-fx) + p.At(x1, y0)*fx
		bottom := p.At(x0, y1)*(1-fx) + p.At(x1, y1)*fx
		dst.Plane(c).Set(dx, dy, top*(1-fy)+bottom*fy)
	}
	return outside
}
