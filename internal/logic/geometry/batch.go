package geometry

import (
	"github.com/ajroetker/go-highway/hwy"
)

// Batch is an ordered set of pixel coordinates (x = column, y = row)
// stored as two parallel slices of equal length. The i-th result of
// every mapping stage corresponds to the i-th coordinate.
type Batch struct {
	Xs []float64
	Ys []float64
}

// PolarBatch holds normalized polar pairs: R is 0 at the output center
// and 1 at its corners, Theta is a fraction of a full turn.
type PolarBatch struct {
	R     []float64
	Theta []float64
}

// InverseMap maps output pixel coordinates to source pixel coordinates.
// It is the callback a resampler invokes to decide where each output
// pixel samples from.
type InverseMap func(Batch) Batch

// NewBatch allocates a zeroed batch of n coordinates.
func NewBatch(n int) Batch {
	return Batch{Xs: make([]float64, n), Ys: make([]float64, n)}
}

// GridBatch returns every pixel coordinate of shape in row-major order,
// so index y*Width+x holds (x, y).
func GridBatch(shape Shape) Batch {
	b := NewBatch(shape.Pixels())
	for y := 0; y < shape.Height; y++ {
		row := y * shape.Width
		for x := 0; x < shape.Width; x++ {
			b.Xs[row+x] = float64(x)
			b.Ys[row+x] = float64(y)
		}
	}
	return b
}

// Len returns the number of coordinates in the batch.
func (b Batch) Len() int {
	return min(len(b.Xs), len(b.Ys))
}

// Len returns the number of polar pairs in the batch.
func (p PolarBatch) Len() int {
	return min(len(p.R), len(p.Theta))
}

// lanes is the float64 vector width, never less than one.
func lanes() int {
	return max(hwy.MaxLanes[float64](), 1)
}

// padded copies src[:n] into a buffer whose length is a whole number of
// vectors. The padding lanes are zero and are dropped by the caller.
func padded(src []float64, n int) []float64 {
	buf := make([]float64, hwy.AlignedSize[float64](n))
	copy(buf, src[:n])
	return buf
}
