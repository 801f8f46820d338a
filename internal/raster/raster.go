// Package raster holds decoded images as planar float32 channels in
// [0, 1]. Each plane is a SIMD row-aligned image so filters can run
// whole rows through vector lanes.
package raster

import (
	"image"
	"image/color"

	himage "github.com/ajroetker/go-highway/hwy/contrib/image"

	"github.com/cjeanneret/littleplanet/internal/logic/geometry"
)

// Channel layouts.
const (
	Gray = 1
	RGB  = 3
	RGBA = 4
)

// Raster is a planar float image. A Raster is owned by the stage that
// created it and is not modified once that stage returns; later stages
// produce new rasters.
type Raster struct {
	shape  geometry.Shape
	planes []*himage.Image[float32]
}

// New allocates a zeroed raster. channels must be Gray, RGB or RGBA.
func New(shape geometry.Shape, channels int) *Raster {
	planes := make([]*himage.Image[float32], channels)
	for i := range planes {
		planes[i] = himage.NewImage[float32](shape.Width, shape.Height)
	}
	return &Raster{shape: shape, planes: planes}
}

// Shape returns the raster size.
func (r *Raster) Shape() geometry.Shape { return r.shape }

// Channels returns the number of planes.
func (r *Raster) Channels() int { return len(r.planes) }

// HasAlpha reports whether the last plane is alpha.
func (r *Raster) HasAlpha() bool { return len(r.planes) == RGBA }

// ColorPlanes returns the number of non-alpha planes.
func (r *Raster) ColorPlanes() int {
	if r.HasAlpha() {
		return RGB
	}
	return len(r.planes)
}

// Plane returns channel c.
func (r *Raster) Plane(c int) *himage.Image[float32] { return r.planes[c] }

// Clone returns a deep copy.
func (r *Raster) Clone() *Raster {
	planes := make([]*himage.Image[float32], len(r.planes))
	for i, p := range r.planes {
		planes[i] = p.Clone()
	}
	return &Raster{shape: r.shape, planes: planes}
}

// FromImage converts a decoded image. Gray images get one plane, opaque
// color images three, everything else four.
func FromImage(img image.Image) *Raster {
	b := img.Bounds()
	shape := geometry.Shape{Height: b.Dy(), Width: b.Dx()}

	channels := RGBA
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		channels = Gray
	default:
		if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
			channels = RGB
		}
	}
	r := New(shape, channels)

	if src, ok := img.(*image.NRGBA); ok {
		fromNRGBA(r, src)
		return r
	}

	const max16 = 65535.0
	for y := 0; y < shape.Height; y++ {
		rows := make([][]float32, channels)
		for c := range rows {
			rows[c] = r.planes[c].Row(y)
		}
		for x := 0; x < shape.Width; x++ {
			px := color.NRGBA64Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA64)
			switch channels {
			case Gray:
				rows[0][x] = float32(float64(px.R) / max16)
			default:
				rows[0][x] = float32(float64(px.R) / max16)
				rows[1][x] = float32(float64(px.G) / max16)
				rows[2][x] = float32(float64(px.B) / max16)
				if channels == RGBA {
					rows[3][x] = float32(float64(px.A) / max16)
				}
			}
		}
	}
	return r
}

func fromNRGBA(r *Raster, src *image.NRGBA) {
	for y := 0; y < r.shape.Height; y++ {
		line := src.Pix[y*src.Stride : y*src.Stride+r.shape.Width*4]
		for c := range r.planes {
			row := r.planes[c].Row(y)
			for x := 0; x < r.shape.Width; x++ {
				row[x] = float32(line[x*4+c]) / 255
			}
		}
	}
}

// ToNRGBA scales to bytes, clipping to [0, 1] and rounding 255*v to the
// nearest level so a decode/encode round trip is lossless.
func (r *Raster) ToNRGBA() *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, r.shape.Width, r.shape.Height))
	for y := 0; y < r.shape.Height; y++ {
		line := dst.Pix[y*dst.Stride:]
		for x := 0; x < r.shape.Width; x++ {
			px := line[x*4 : x*4+4]
			switch len(r.planes) {
			case Gray:
				v := toByte(r.planes[0].Row(y)[x])
				px[0], px[1], px[2], px[3] = v, v, v, 0xff
			case RGB:
				px[0] = toByte(r.planes[0].Row(y)[x])
				px[1] = toByte(r.planes[1].Row(y)[x])
				px[2] = toByte(r.planes[2].Row(y)[x])
				px[3] = 0xff
			default:
				for c := 0; c < 4; c++ {
					px[c] = toByte(r.planes[c].Row(y)[x])
				}
			}
		}
	}
	return dst
}

func toByte(v float32) uint8 {
	switch {
	case v <= 0 || v != v:
		return 0
	case v >= 1:
		return 0xff
	}
	return uint8(255*v + 0.5)
}
