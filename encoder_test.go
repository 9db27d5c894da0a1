package thumbnark

import (
	"image/color"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/stretchr/testify/require"
)

func TestEncodePixel_Deterministic(t *testing.T) {
	b := []byte{0x12, 0x34, 0x56, 0x78}
	e1, err := EncodePixel(b, RGBA8)
	require.NoError(t, err)
	e2, err := EncodePixel(b, RGBA8)
	require.NoError(t, err)
	require.True(t, e1.Equal(&e2))
	require.Equal(t, fr.NewElement(0x12345678), e1)
}

func TestEncodePixel_WidthMismatch(t *testing.T) {
	_, err := EncodePixel([]byte{1, 2, 3}, RGBA8)
	require.ErrorIs(t, err, ErrEncoding)

	_, err = EncodePixel([]byte{1, 2, 3, 4}, RGBA16)
	require.ErrorIs(t, err, ErrEncoding)

	_, err = EncodePixel([]byte{1, 2, 3, 4}, PixelFormat("cmyk"))
	require.ErrorIs(t, err, ErrEncoding)
}

func TestEncodeColor_ChannelOrder(t *testing.T) {
	e, err := EncodeColor(color.NRGBA{R: 1, G: 2, B: 3, A: 4}, RGBA8)
	require.NoError(t, err)
	require.Equal(t, fr.NewElement(0x01020304), e)

	e, err = EncodeColor(color.NRGBA64{R: 0x0102, G: 0x0304, B: 0x0506, A: 0x0708}, RGBA16)
	require.NoError(t, err)
	require.Equal(t, fr.NewElement(0x0102030405060708), e)
}

func TestEncodeColor_Distinct(t *testing.T) {
	seen := make(map[fr.Element]color.NRGBA)
	for r := 0; r < 256; r += 15 {
		for a := 0; a < 256; a += 17 {
			c := color.NRGBA{R: uint8(r), G: uint8(255 - r), B: 7, A: uint8(a)}
			e, err := EncodeColor(c, RGBA8)
			require.NoError(t, err)
			prev, ok := seen[e]
			require.False(t, ok, "%v and %v collide", prev, c)
			seen[e] = c
		}
	}
}

func TestPixelFormat_NewImageLossless(t *testing.T) {
	c := color.NRGBA64{R: 0xfffe, G: 0x0101, B: 0x8000, A: 0x7fff}
	img := RGBA16.NewImage(1, 1)
	img.Set(0, 0, c)
	require.Equal(t, RGBA16.Bytes(c), RGBA16.Bytes(img.At(0, 0)))
}
