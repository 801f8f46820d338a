package geometry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrDegenerateShape is returned for images with a zero or negative dimension.
var ErrDegenerateShape = errors.New("degenerate image shape")

// Shape is an image size in pixels, rows first.
type Shape struct {
	Height int // rows
	Width  int // columns
}

// Validate checks that both dimensions are positive.
func (s Shape) Validate() error {
	if s.Height < 1 || s.Width < 1 {
		return fmt.Errorf("%w: %dx%d", ErrDegenerateShape, s.Height, s.Width)
	}
	return nil
}

// Pixels returns the number of pixels covered by the shape.
func (s Shape) Pixels() int {
	return s.Height * s.Width
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%d", s.Height, s.Width)
}

// ParseShape parses "HxW" (e.g. "1080x1920": 1080 rows, 1920 columns).
func ParseShape(s string) (Shape, error) {
	h, w, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return Shape{}, fmt.Errorf("shape %q: expected HxW", s)
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return Shape{}, fmt.Errorf("shape %q: height: %w", s, err)
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return Shape{}, fmt.Errorf("shape %q: width: %w", s, err)
	}
	shape := Shape{Height: height, Width: width}
	if err := shape.Validate(); err != nil {
		return Shape{}, err
	}
	return shape, nil
}
