package geometry

import (
	"math"

	"github.com/ajroetker/go-highway/hwy"
	hmath "github.com/ajroetker/go-highway/hwy/contrib/math"
)

// OutputToPolar converts output-image pixel coordinates to normalized
// polar pairs around the center of the output image.
//
// R is the distance from (W/2, H/2) divided by the half diagonal, so the
// four corners of the canvas sit at R = 1. Theta is atan2(dy, dx) shifted
// and scaled from (-π, π] to [0, 1]. The exact center has R = 0 and,
// since atan2(0, 0) = 0, Theta = 0.5.
func OutputToPolar(coords Batch, out Shape) PolarBatch {
	n := coords.Len()
	xs, ys := padded(coords.Xs, n), padded(coords.Ys, n)
	rs := make([]float64, len(xs))
	thetas := make([]float64, len(xs))

	halfW := float64(out.Width) / 2
	halfH := float64(out.Height) / 2
	cx, cy := hwy.Set(halfW), hwy.Set(halfH)
	maxR := hwy.Set(math.Hypot(halfW, halfH))
	pi := hwy.Set(math.Pi)
	turn := hwy.Set(2 * math.Pi)

	step := lanes()
	for i := 0; i < len(xs); i += step {
		dx := hwy.Sub(hwy.Load(xs[i:]), cx)
		dy := hwy.Sub(hwy.Load(ys[i:]), cy)

		r := hwy.Div(hmath.Hypot(dx, dy), maxR)
		theta := hwy.Div(hwy.Add(hmath.Atan2(dy, dx), pi), turn)

		hwy.Store(r, rs[i:])
		hwy.Store(theta, thetas[i:])
	}

	return PolarBatch{R: rs[:n:n], Theta: thetas[:n:n]}
}

// PolarToInput converts polar pairs to source-image pixel coordinates.
//
// Theta wraps by its fractional part (θ - floor(θ)), so θ, θ+1 and θ-1
// land on the same column and x always lies in [0, W-1]. R maps to rows
// inverted: R = 0 is the last row (looking down), R = 1 the first row
// (looking up). R is not clamped; R > 1 gives negative rows and the
// resampler's edge policy decides what those sample.
func PolarToInput(polar PolarBatch, in Shape) Batch {
	n := polar.Len()
	rs, thetas := padded(polar.R, n), padded(polar.Theta, n)
	xs := make([]float64, len(rs))
	ys := make([]float64, len(rs))

	maxX := hwy.Set(float64(in.Width - 1))
	maxY := hwy.Set(float64(in.Height - 1))
	one := hwy.Set(1.0)

	step := lanes()
	for i := 0; i < len(rs); i += step {
		theta := hwy.Load(thetas[i:])
		theta = hwy.Sub(theta, hwy.Floor(theta))
		r := hwy.Load(rs[i:])

		hwy.Store(hwy.Mul(theta, maxX), xs[i:])
		hwy.Store(hwy.Mul(hwy.Sub(one, r), maxY), ys[i:])
	}

	return Batch{Xs: xs[:n:n], Ys: ys[:n:n]}
}
