// Package filter implements the cosmetic enhancements applied after the
// warp. Both filters blend the image with a "degenerate" version of
// itself: out = degenerate + factor*(src - degenerate), clipped to
// [0, 1]. A factor of 1 returns the source unchanged. Alpha planes are
// copied through untouched.
package filter

import (
	"github.com/ajroetker/go-highway/hwy"
	himage "github.com/ajroetker/go-highway/hwy/contrib/image"

	"github.com/cjeanneret/littleplanet/internal/raster"
)

const (
	DefaultSharpness  = 1.6
	DefaultBrightness = 1.0
)

// Sharpen blends against a 3x3 smoothed copy (kernel 1 1 1 / 1 5 1 /
// 1 1 1, divided by 13, border pixels kept). Factors above 1 sharpen,
// below 1 blur.
func Sharpen(r *raster.Raster, factor float32) *raster.Raster {
	out := r.Clone()
	if factor == 1 {
		return out
	}
	for c := 0; c < r.ColorPlanes(); c++ {
		blend(r.Plane(c), smooth(r.Plane(c)), out.Plane(c), factor)
	}
	return out
}

// Brightness blends against black, i.e. scales every color sample.
func Brightness(r *raster.Raster, factor float32) *raster.Raster {
	out := r.Clone()
	if factor == 1 {
		return out
	}
	for c := 0; c < r.ColorPlanes(); c++ {
		scale(r.Plane(c), out.Plane(c), factor)
	}
	return out
}

// scale writes clip(factor*src) into dst.
func scale(src, dst *himage.Image[float32], factor float32) {
	f := hwy.Set(factor)
	lo, hi := hwy.Zero[float32](), hwy.Set[float32](1)
	lanes := max(hwy.MaxLanes[float32](), 1)

	for y := 0; y < src.Height(); y++ {
		s, o := src.Row(y), dst.Row(y)
		for i := 0; i < len(o); i += lanes {
			v := hwy.Mul(hwy.Load(s[i:]), f)
			hwy.Store(hwy.Max(hwy.Min(v, hi), lo), o[i:])
		}
	}
}

// blend writes clip(deg + factor*(src-deg)) into dst, one row of vectors
// at a time. Rows are padded to the vector width, so there is no tail.
func blend(src, deg, dst *himage.Image[float32], factor float32) {
	f := hwy.Set(factor)
	lo, hi := hwy.Zero[float32](), hwy.Set[float32](1)
	lanes := max(hwy.MaxLanes[float32](), 1)

	for y := 0; y < src.Height(); y++ {
		s, d, o := src.Row(y), deg.Row(y), dst.Row(y)
		for i := 0; i < len(o); i += lanes {
			vs := hwy.Load(s[i:])
			vd := hwy.Load(d[i:])
			v := hwy.FMA(f, hwy.Sub(vs, vd), vd)
			hwy.Store(hwy.Max(hwy.Min(v, hi), lo), o[i:])
		}
	}
}

// smooth applies the 3x3 smoothing kernel to interior pixels and copies
// the one-pixel border.
func smooth(p *himage.Image[float32]) *himage.Image[float32] {
	out := p.Clone()
	w, h := p.Width(), p.Height()
	if w < 3 || h < 3 {
		return out
	}
	for y := 1; y < h-1; y++ {
		above, row, below := p.Row(y-1), p.Row(y), p.Row(y+1)
		dst := out.Row(y)
		for x := 1; x < w-1; x++ {
			sum := above[x-1] + above[x] + above[x+1] +
				row[x-1] + 5*row[x] + row[x+1] +
				below[x-1] + below[x] + below[x+1]
			dst[x] = sum / 13
		}
	}
	return out
}
