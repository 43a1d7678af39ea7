// Package qr draws the QR codes overlaid on printed documents.
package qr

import (
	"encoding/base64"
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// ErrEmptyValue is returned when there is nothing to encode.
var ErrEmptyValue = errors.New("qr: empty value")

// Style sets the colours and pixel size of a code.
type Style struct {
	Foreground string
	Background string
	// Pixels is the side of the PNG image.
	Pixels int
}

// Generator encodes a value into PNG bytes.
type Generator interface {
	Generate(value string, style Style) ([]byte, error)
}

// PNG is the go-qrcode backed Generator.
type PNG struct {
	Level qrcode.RecoveryLevel
}

// NewPNG returns a generator with medium error recovery.
func NewPNG() *PNG {
	return &PNG{Level: qrcode.Medium}
}

// Generate implements Generator.
func (p *PNG) Generate(value string, style Style) ([]byte, error) {
	if strings.TrimSpace(value) == "" {
		return nil, ErrEmptyValue
	}
	code, err := qrcode.New(value, p.Level)
	if err != nil {
		return nil, fmt.Errorf("qr: encode: %w", err)
	}
	code.DisableBorder = true
	code.ForegroundColor = parseHex(style.Foreground, color.Black)
	code.BackgroundColor = parseHex(style.Background, color.White)
	size := style.Pixels
	if size <= 0 {
		size = 256
	}
	data, err := code.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("qr: png: %w", err)
	}
	return data, nil
}

// DataURI encodes value and returns it as an inline PNG image source.
func DataURI(g Generator, value string, style Style) (string, error) {
	data, err := g.Generate(value, style)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data), nil
}

// PixelsFor converts a printed size in millimetres to an image side at
// 300 dpi.
func PixelsFor(mm float64) int {
	px := int(mm / 25.4 * 300)
	if px < 64 {
		return 64
	}
	return px
}

func parseHex(raw string, fallback color.Color) color.Color {
	s := strings.TrimPrefix(strings.TrimSpace(raw), "#")
	if len(s) != 6 {
		return fallback
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return fallback
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}
