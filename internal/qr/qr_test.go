package qr

import (
	"bytes"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateColoursAndSize(t *testing.T) {
	data, err := NewPNG().Generate("https://pay.example.test/INV-1", Style{Foreground: "#ff0000", Background: "#ffffff", Pixels: 200})
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())

	red := false
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y && !red; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			if r == 0xffff && g == 0 && b == 0 {
				red = true
				break
			}
		}
	}
	assert.True(t, red, "modules use the foreground colour")
}

func TestGenerateEmpty(t *testing.T) {
	_, err := NewPNG().Generate("  ", Style{})
	assert.ErrorIs(t, err, ErrEmptyValue)
}

func TestDataURI(t *testing.T) {
	uri, err := DataURI(NewPNG(), "INV-1", Style{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
}

func TestParseHex(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 0x0a, G: 0x4f, B: 0x8a, A: 0xff}, parseHex("#0a4f8a", color.Black))
	assert.Equal(t, color.Black, parseHex("blue", color.Black))
	assert.Equal(t, 64, PixelsFor(1))
	assert.Equal(t, 295, PixelsFor(25))
}
