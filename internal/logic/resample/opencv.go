//go:build opencv

package resample

import (
	"context"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/cjeanneret/littleplanet/internal/logic/geometry"
	"github.com/cjeanneret/littleplanet/internal/raster"
)

// OpenCVEngine resamples with cv::remap. Planes are processed on a
// 0-255 float scale so the constant border value can be expressed.
type OpenCVEngine struct {
	opts Options
}

func newOpenCV(opts Options) (Engine, error) {
	return &OpenCVEngine{opts: opts}, nil
}

// Close implements Engine.
func (e *OpenCVEngine) Close() error { return nil }

// Warp implements Engine.
func (e *OpenCVEngine) Warp(ctx context.Context, src *raster.Raster, fn geometry.InverseMap, out geometry.Shape) (*raster.Raster, Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, Stats{}, err
	}
	coords, err := mapGrid(src, fn, out)
	if err != nil {
		return nil, Stats{}, err
	}

	mapX := gocv.NewMatWithSize(out.Height, out.Width, gocv.MatTypeCV32FC1)
	defer mapX.Close()
	mapY := gocv.NewMatWithSize(out.Height, out.Width, gocv.MatTypeCV32FC1)
	defer mapY.Close()

	shape := src.Shape()
	stats := Stats{Samples: out.Pixels()}
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			i := y*out.Width + x
			sx, sy := coords.Xs[i], coords.Ys[i]
			if outOfRange(sx, sy, shape) {
				stats.OutOfRange++
			}
			mapX.SetFloatAt(y, x, float32(sx))
			mapY.SetFloatAt(y, x, float32(sy))
		}
	}

	interp := gocv.InterpolationLinear
	if e.opts.Interpolation == Nearest {
		interp = gocv.InterpolationNearestNeighbor
	}
	border := gocv.BorderReplicate
	fill := uint8(e.opts.Fill*255 + 0.5)
	if e.opts.Edge == EdgeConstant {
		border = gocv.BorderConstant
	}

	dst := raster.New(out, src.Channels())
	for c := 0; c < src.Channels(); c++ {
		if err := ctx.Err(); err != nil {
			return nil, Stats{}, err
		}
		plane := src.Plane(c)
		in := gocv.NewMatWithSize(shape.Height, shape.Width, gocv.MatTypeCV32FC1)
		for y := 0; y < shape.Height; y++ {
			row := plane.Row(y)
			for x := 0; x < shape.Width; x++ {
				in.SetFloatAt(y, x, row[x]*255)
			}
		}

		warped := gocv.NewMat()
		gocv.Remap(in, &warped, &mapX, &mapY, interp, border, color.RGBA{R: fill, G: fill, B: fill, A: fill})

		outPlane := dst.Plane(c)
		for y := 0; y < out.Height; y++ {
			row := outPlane.Row(y)
			for x := 0; x < out.Width; x++ {
				row[x] = warped.GetFloatAt(y, x) / 255
			}
		}
		in.Close()
		warped.Close()
	}
	return dst, stats, nil
}
