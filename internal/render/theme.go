// Package render draws standings tables into composited PNG leaderboard
// images: fixed-height rows, proportionally scaled columns, podium badges,
// class tint chips and an optional watermark.
package render

import (
	"fmt"
	"hash/fnv"
	"image/color"
	"strings"
)

// Theme holds every color the board renderer uses.
type Theme struct {
	Background color.RGBA
	PanelBG    color.RGBA
	TitleBG    color.RGBA
	HeaderBG   color.RGBA
	RowBG      color.RGBA
	RowAltBG   color.RGBA
	Text       color.RGBA
	Muted      color.RGBA
	Accent     color.RGBA
	Podium     [3]color.RGBA
	Watermark  color.RGBA
}

// DefaultTheme is the dark pit-wall palette.
func DefaultTheme() Theme {
	return Theme{
		Background: color.RGBA{R: 0x12, G: 0x14, B: 0x17, A: 0xff},
		PanelBG:    color.RGBA{R: 0x1a, G: 0x1d, B: 0x21, A: 0xff},
		TitleBG:    color.RGBA{R: 0x22, G: 0x26, B: 0x2b, A: 0xff},
		HeaderBG:   color.RGBA{R: 0x2a, G: 0x2f, B: 0x35, A: 0xff},
		RowBG:      color.RGBA{R: 0x1a, G: 0x1d, B: 0x21, A: 0xff},
		RowAltBG:   color.RGBA{R: 0x20, G: 0x24, B: 0x29, A: 0xff},
		Text:       color.RGBA{R: 0xe8, G: 0xea, B: 0xed, A: 0xff},
		Muted:      color.RGBA{R: 0x9a, G: 0xa1, B: 0xa9, A: 0xff},
		Accent:     color.RGBA{R: 0xe1, G: 0x3c, B: 0x3c, A: 0xff},
		Podium: [3]color.RGBA{
			{R: 0xd4, G: 0xaf, B: 0x37, A: 0xff}, // gold
			{R: 0xb8, G: 0xbc, B: 0xc2, A: 0xff}, // silver
			{R: 0xcd, G: 0x7f, B: 0x32, A: 0xff}, // bronze
		},
		Watermark: color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0x14},
	}
}

// ParseHexColor parses "#RRGGBB" or "RRGGBB".
func ParseHexColor(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}

// classTint resolves a chip color for a class name: the configured override
// when present, else a stable color derived from the name so the same class
// always renders the same hue.
func (t Theme) classTint(class string, overrides map[string]string) color.RGBA {
	if hex, ok := overrides[class]; ok {
		if c, err := ParseHexColor(hex); err == nil {
			return c
		}
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(class)))
	sum := h.Sum32()
	palette := []color.RGBA{
		{R: 0x3b, G: 0x82, B: 0xc4, A: 0xff},
		{R: 0x2f, G: 0xa8, B: 0x6b, A: 0xff},
		{R: 0xc4, G: 0x8a, B: 0x2b, A: 0xff},
		{R: 0x9a, G: 0x5c, B: 0xc9, A: 0xff},
		{R: 0xc9, G: 0x4f, B: 0x6d, A: 0xff},
		{R: 0x3f, G: 0xb0, B: 0xb0, A: 0xff},
	}
	return palette[sum%uint32(len(palette))]
}
