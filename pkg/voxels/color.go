package voxels

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is a packed cell color: R | G<<8 | B<<16 | material<<24.
type Color uint32

// RemoveColor marks a cell for removal when a chunk is applied or merged.
// It is distinct from an empty cell, which has palette index 0.
const RemoveColor Color = 0xFF000000

// NewColor packs the channels and the owning material index.
func NewColor(r, g, b, material uint8) Color {
	return Color(uint32(r) | uint32(g)<<8 | uint32(b)<<16 | uint32(material)<<24)
}

func (c Color) R() uint8        { return uint8(c) }
func (c Color) G() uint8        { return uint8(c >> 8) }
func (c Color) B() uint8        { return uint8(c >> 16) }
func (c Color) Material() uint8 { return uint8(c >> 24) }

// WithMaterial returns the same RGB value owned by another material.
func (c Color) WithMaterial(material uint8) Color {
	return c&0x00FFFFFF | Color(material)<<24
}

// RGB returns the channels scaled to 0..1.
func (c Color) RGB() (r, g, b float32) {
	return float32(c.R()) / 255, float32(c.G()) / 255, float32(c.B()) / 255
}

// Hex formats the RGB part as #RRGGBB.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R(), c.G(), c.B())
}

// ParseHex parses #RGB or #RRGGBB (the leading # is optional) into a
// color owned by material 0.
func ParseHex(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(h) {
	case 3:
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	case 6:
	default:
		return 0, fmt.Errorf("voxels: invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("voxels: invalid hex color %q: %w", s, err)
	}
	return NewColor(uint8(v>>16), uint8(v>>8), uint8(v), 0), nil
}
