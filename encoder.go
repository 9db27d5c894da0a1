package thumbnark

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

// PixelFormat fixes the byte serialization of a pixel: non-premultiplied
// R, G, B, A channels, each big-endian.
type PixelFormat string

const (
	RGBA8  PixelFormat = "rgba8"
	RGBA16 PixelFormat = "rgba16"
)

// Width is the number of bytes of one serialized pixel, 0 if unknown.
func (f PixelFormat) Width() int {
	switch f {
	case RGBA8:
		return 4
	case RGBA16:
		return 8
	}
	return 0
}

func (f PixelFormat) Validate() error {
	w := f.Width()
	if w == 0 {
		return fmt.Errorf("%w: unknown pixel format %q", ErrEncoding, string(f))
	}
	// strictly narrower than the modulus so the reduction is the identity
	if w >= fr.Bytes {
		return fmt.Errorf("%w: %d-byte pixels do not fit the scalar field", ErrEncoding, w)
	}
	return nil
}

// Bytes serializes c.
func (f PixelFormat) Bytes(c color.Color) []byte {
	switch f {
	case RGBA16:
		p := color.NRGBA64Model.Convert(c).(color.NRGBA64)
		return []byte{
			byte(p.R >> 8), byte(p.R),
			byte(p.G >> 8), byte(p.G),
			byte(p.B >> 8), byte(p.B),
			byte(p.A >> 8), byte(p.A),
		}
	default:
		p := color.NRGBAModel.Convert(c).(color.NRGBA)
		return []byte{p.R, p.G, p.B, p.A}
	}
}

// NewImage allocates a thumbnail buffer that stores pixels of this format losslessly.
func (f PixelFormat) NewImage(width, height int) draw.Image {
	r := image.Rect(0, 0, width, height)
	if f == RGBA16 {
		return image.NewNRGBA64(r)
	}
	return image.NewNRGBA(r)
}

// EncodePixel maps the serialized pixel b to a field element.
func EncodePixel(b []byte, f PixelFormat) (fr.Element, error) {
	var e fr.Element
	if err := f.Validate(); err != nil {
		return e, err
	}
	if len(b) != f.Width() {
		return e, fmt.Errorf("%w: got %d bytes, %s pixels are %d", ErrEncoding, len(b), f, f.Width())
	}
	e.SetBytes(b)
	return e, nil
}

// EncodeColor is EncodePixel(f.Bytes(c), f).
func EncodeColor(c color.Color, f PixelFormat) (fr.Element, error) {
	return EncodePixel(f.Bytes(c), f)
}
