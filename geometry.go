package thumbnark

import (
	"fmt"
	"image"
	"math/bits"
)

// Geometry maps a source image onto Cols×Rows blocks of Ratio×Ratio pixels.
// Instance index of block (bx, by) is bx*Rows + by; the in-block index of
// source pixel (bx*Ratio+i, by*Ratio+j) is i*Ratio + j.
type Geometry struct {
	Width, Height int
	Ratio         int
	Cols, Rows    int
}

// NewGeometry derives the block grid. Dimensions that are not multiples of
// ratio fail with ErrGeometry unless truncate is set.
func NewGeometry(width, height, ratio int, truncate bool) (Geometry, error) {
	if ratio < 1 {
		return Geometry{}, fmt.Errorf("%w: ratio %d < 1", ErrGeometry, ratio)
	}
	g := Geometry{
		Width:  width,
		Height: height,
		Ratio:  ratio,
		Cols:   width / ratio,
		Rows:   height / ratio,
	}
	if g.Blocks() == 0 {
		return g, fmt.Errorf("%w: %dx%d image is smaller than one %dx%d block", ErrGeometry, width, height, ratio, ratio)
	}
	if !truncate && (width%ratio != 0 || height%ratio != 0) {
		return g, fmt.Errorf("%w: %dx%d is not a multiple of %d", ErrGeometry, width, height, ratio)
	}
	return g, nil
}

func (g Geometry) Blocks() int {
	return g.Cols * g.Rows
}

// Truncated reports whether trailing rows or columns are dropped.
func (g Geometry) Truncated() bool {
	return g.Cols*g.Ratio != g.Width || g.Rows*g.Ratio != g.Height
}

func (g Geometry) Index(bx, by int) int {
	return bx*g.Rows + by
}

// Source returns the source pixel of in-block index k of block (bx, by),
// relative to the image origin.
func (g Geometry) Source(bx, by, k int) (x, y int) {
	return bx*g.Ratio + k/g.Ratio, by*g.Ratio + k%g.Ratio
}

// Degree is the smallest power of two holding one row per block.
func (g Geometry) Degree() uint64 {
	n := uint64(g.Blocks())
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len64(n-1)
}

// Thumbnail is the bounds of the output image.
func (g Geometry) Thumbnail() image.Rectangle {
	return image.Rect(0, 0, g.Cols, g.Rows)
}
