package imaging

import (
	"fmt"
	"image"
	"image/color"
	"sort"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ParseColor parses a hex colour in the "rgb", "rrggbb" or "rrggbbaa" form,
// with or without a leading '#'.
func ParseColor(hex string) (color.NRGBA, error) {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	switch len(hex) {
	case 3, 6, 8:
	default:
		return color.NRGBA{}, fmt.Errorf("invalid colour %q: expected 3, 6 or 8 hex digits", hex)
	}

	alpha := uint8(255)
	if len(hex) == 8 {
		a, err := strconv.ParseUint(hex[6:], 16, 8)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid alpha in colour %q: %w", hex, err)
		}
		alpha = uint8(a)
		hex = hex[:6]
	}

	c, err := colorful.Hex("#" + hex)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: alpha}, nil
}

// ColorFrequency is a quantized colour and the share of pixels it covers.
type ColorFrequency struct {
	Hex        string  `json:"hex"`
	Percentage float64 `json:"percentage"`
}

// DominantColors returns up to count of the most common colours in img,
// most common first. Components are quantized to steps of 16 so that
// near-identical shades are counted together; fully transparent pixels are
// ignored. Useful as a placeholder colour while the real image loads.
func DominantColors(img image.Image, count int) []ColorFrequency {
	bounds := img.Bounds()
	counts := make(map[colorful.Color]int)
	total := 0

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.A == 0 {
				continue
			}
			q := colorful.Color{
				R: float64(c.R/16*16) / 255,
				G: float64(c.G/16*16) / 255,
				B: float64(c.B/16*16) / 255,
			}
			counts[q]++
			total++
		}
	}
	if total == 0 {
		return nil
	}

	colors := make([]ColorFrequency, 0, len(counts))
	for c, n := range counts {
		colors = append(colors, ColorFrequency{
			Hex:        c.Hex(),
			Percentage: float64(n) / float64(total) * 100,
		})
	}
	sort.Slice(colors, func(i, j int) bool {
		if colors[i].Percentage != colors[j].Percentage {
			return colors[i].Percentage > colors[j].Percentage
		}
		return colors[i].Hex < colors[j].Hex
	})

	if len(colors) > count {
		colors = colors[:count]
	}
	return colors
}
