package geometry

import (
	"fmt"
	"math"

	"github.com/ajroetker/go-highway/hwy"
)

const (
	DefaultZoom     = 0.75 // shrinks r before the radial remap
	DefaultRotation = 0.1  // fraction of a turn (36°)
)

// RadialFunc remaps a vector of zoomed radii. Any monotonic concave
// curve gives a planet look; square root is the classic one.
type RadialFunc func(r hwy.Vec[float64]) hwy.Vec[float64]

// SqrtRadial compresses the horizon and expands the nadir.
func SqrtRadial(r hwy.Vec[float64]) hwy.Vec[float64] {
	return hwy.Sqrt(r)
}

// GammaRadial returns r^gamma. Gamma 0.5 equals SqrtRadial.
func GammaRadial(gamma float64) RadialFunc {
	g := hwy.Set(gamma)
	return func(r hwy.Vec[float64]) hwy.Vec[float64] {
		return hwy.Pow(r, g)
	}
}

// Projection is the little planet warp applied between the two polar
// mappers.
type Projection struct {
	Zoom     float64    // multiplies r
	Rotation float64    // added to theta, in turns
	Radial   RadialFunc // nil means SqrtRadial
}

// DefaultProjection returns zoom 0.75, rotation 0.1 and a square-root
// radial curve.
func DefaultProjection() Projection {
	return Projection{Zoom: DefaultZoom, Rotation: DefaultRotation, Radial: SqrtRadial}
}

// Validate rejects non-finite parameters and a non-positive zoom.
func (p Projection) Validate() error {
	if math.IsNaN(p.Zoom) || math.IsInf(p.Zoom, 0) || p.Zoom <= 0 {
		return fmt.Errorf("zoom must be a positive finite number, got %g", p.Zoom)
	}
	if math.IsNaN(p.Rotation) || math.IsInf(p.Rotation, 0) {
		return fmt.Errorf("rotation must be finite, got %g", p.Rotation)
	}
	return nil
}

// Apply returns a new batch with r' = radial(r*Zoom) and
// θ' = θ + Rotation. Neither axis is clamped or wrapped here.
func (p Projection) Apply(polar PolarBatch) PolarBatch {
	radial := p.Radial
	if radial == nil {
		radial = SqrtRadial
	}

	n := polar.Len()
	rs, thetas := padded(polar.R, n), padded(polar.Theta, n)
	zoom := hwy.Set(p.Zoom)
	rot := hwy.Set(p.Rotation)

	step := lanes()
	for i := 0; i < len(rs); i += step {
		r := radial(hwy.Mul(hwy.Load(rs[i:]), zoom))
		theta := hwy.Add(hwy.Load(thetas[i:]), rot)
		hwy.Store(r, rs[i:])
		hwy.Store(theta, thetas[i:])
	}

	return PolarBatch{R: rs[:n:n], Theta: thetas[:n:n]}
}
