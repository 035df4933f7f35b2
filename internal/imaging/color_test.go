package imaging

import (
	"image"
	"image/color"
	"testing"
)

// createInMemoryImage creates a solid-colour image without touching disk.
func createInMemoryImage(width, height int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createPatternImage creates an image with four coloured quadrants:
// red top-left, green top-right, blue bottom-left, white bottom-right.
func createPatternImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var c color.NRGBA
			switch {
			case x < width/2 && y < height/2:
				c = color.NRGBA{255, 0, 0, 255}
			case y < height/2:
				c = color.NRGBA{0, 255, 0, 255}
			case x < width/2:
				c = color.NRGBA{0, 0, 255, 255}
			default:
				c = color.NRGBA{255, 255, 255, 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		input   string
		want    color.NRGBA
		wantErr bool
	}{
		{"#FF0000", color.NRGBA{255, 0, 0, 255}, false},
		{"00ff00", color.NRGBA{0, 255, 0, 255}, false},
		{"#00f", color.NRGBA{0, 0, 255, 255}, false},
		{"fff", color.NRGBA{255, 255, 255, 255}, false},
		{"#11223380", color.NRGBA{0x11, 0x22, 0x33, 0x80}, false},
		{" #000000 ", color.NRGBA{0, 0, 0, 255}, false},
		{"", color.NRGBA{}, true},
		{"red", color.NRGBA{}, true},
		{"#12345", color.NRGBA{}, true},
		{"#1234", color.NRGBA{}, true},
		{"#1234567", color.NRGBA{}, true},
		{"#112233445", color.NRGBA{}, true},
		{"#GGGGGG", color.NRGBA{}, true},
		{"#112233zz", color.NRGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseColor(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseColor(%q) should fail, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseColor(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseColor(%q): got %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDominantColors(t *testing.T) {
	img := createPatternImage(100, 100)

	colors := DominantColors(img, 10)
	if len(colors) != 4 {
		t.Fatalf("expected 4 colours, got %d: %v", len(colors), colors)
	}

	total := 0.0
	for _, c := range colors {
		if c.Percentage < 24.9 || c.Percentage > 25.1 {
			t.Errorf("colour %s: got %.2f%%, want 25%%", c.Hex, c.Percentage)
		}
		total += c.Percentage
	}
	if total < 99.9 || total > 100.1 {
		t.Errorf("percentages sum to %.2f, want 100", total)
	}

	// Ties are broken by hex so the order is stable.
	for i := 1; i < len(colors); i++ {
		if colors[i-1].Hex > colors[i].Hex {
			t.Errorf("tied colours not sorted by hex: %v", colors)
		}
	}
}

func TestDominantColors_Count(t *testing.T) {
	colors := DominantColors(createPatternImage(40, 40), 2)
	if len(colors) != 2 {
		t.Errorf("expected 2 colours, got %d", len(colors))
	}
}

func TestDominantColors_SingleColor(t *testing.T) {
	colors := DominantColors(createInMemoryImage(20, 20, color.NRGBA{0, 0, 0, 255}), 5)
	if len(colors) != 1 {
		t.Fatalf("expected 1 colour, got %d", len(colors))
	}
	if colors[0].Hex != "#000000" {
		t.Errorf("Hex: got %s, want #000000", colors[0].Hex)
	}
	if colors[0].Percentage != 100 {
		t.Errorf("Percentage: got %.2f, want 100", colors[0].Percentage)
	}
}

func TestDominantColors_IgnoresTransparent(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	img.SetNRGBA(0, 0, color.NRGBA{0, 0, 0, 255})

	colors := DominantColors(img, 5)
	if len(colors) != 1 || colors[0].Percentage != 100 {
		t.Errorf("transparent pixels should be ignored, got %v", colors)
	}

	if got := DominantColors(image.NewNRGBA(image.Rect(0, 0, 4, 4)), 5); got != nil {
		t.Errorf("fully transparent image: got %v, want nil", got)
	}
}
