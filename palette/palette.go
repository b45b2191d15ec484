// Package palette decodes the game's 6-bit-per-channel color tables into
// full 8-bit RGB, following the teacher's choice of image/color.Palette as
// the decoded representation.
package palette

import (
	"fmt"
	"image/color"
)

const bytesPerColor = 3

// Palette is an ordered list of 8-bit RGB colors.
type Palette struct {
	colors color.Palette
}

// FromBytes decodes a byte buffer of 3-byte-per-color, 6-bit-per-channel
// entries into a Palette. Each stored component is scaled by 4 to produce
// an 8-bit value; any trailing bytes that don't form a complete triple are
// discarded.
func FromBytes(data []byte) Palette {
	n := len(data) / bytesPerColor

	colors := make(color.Palette, n)
	for i := 0; i < n; i++ {
		off := i * bytesPerColor
		colors[i] = color.RGBA{
			R: data[off+0] * 4,
			G: data[off+1] * 4,
			B: data[off+2] * 4,
			A: 0xFF,
		}
	}

	return Palette{colors: colors}
}

// Color returns the color at the given palette index.
func (p Palette) Color(index int) (color.RGBA, error) {
	if index < 0 || index >= len(p.colors) {
		return color.RGBA{}, fmt.Errorf("palette: index %d out of range [0,%d)", index, len(p.colors))
	}
	return p.colors[index].(color.RGBA), nil
}
