package vulkan

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeTexturePacksRGBA(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 0, B: 0, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 0, G: 255, B: 0, A: 255})

	texture := decodeTexture(img)

	require.Equal(t, 2, texture.Width)
	require.Equal(t, 1, texture.Height)
	require.Equal(t, []byte{
		255, 0, 0, 255,
		0, 255, 0, 255,
	}, texture.Pixels)
}

func TestDecodeTextureScalesToEightBit(t *testing.T) {
	// RGBA() reports premultiplied 16-bit channels. Packing must take the
	// high byte, not truncate to the low one.
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 150, B: 50, A: 100})

	texture := decodeTexture(img)

	require.Equal(t, []byte{78, 59, 19, 100}, texture.Pixels)
}

func TestDecodeTextureIgnoresBoundsOrigin(t *testing.T) {
	img := image.NewNRGBA(image.Rect(5, 7, 8, 9))
	for y := 7; y < 9; y++ {
		for x := 5; x < 8; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: byte(x), G: byte(y), A: 255})
		}
	}

	texture := decodeTexture(img)

	require.Equal(t, 3, texture.Width)
	require.Equal(t, 2, texture.Height)
	require.Len(t, texture.Pixels, 3*2*4)
	require.Equal(t, byte(5), texture.Pixels[0])
	require.Equal(t, byte(7), texture.Pixels[1])
}

func TestDecodeTextureMipLevels(t *testing.T) {
	cases := []struct {
		width, height int
		mips          int
	}{
		{1, 1, 1},
		{2, 2, 2},
		{4, 2, 3},
		{640, 480, 10},
		{1024, 1024, 11},
	}

	for _, tc := range cases {
		img := image.NewNRGBA(image.Rect(0, 0, tc.width, tc.height))
		texture := decodeTexture(img)
		require.Equal(t, tc.mips, texture.MipLevels, "for %dx%d", tc.width, tc.height)
	}
}

func TestLoadTextureFileMissing(t *testing.T) {
	_, err := LoadTextureFile("does/not/exist.png")
	require.Error(t, err)
}
