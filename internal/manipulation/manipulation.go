package manipulation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Manipulation is a single named operation with its canonical argument.
type Manipulation struct {
	Name     Name
	Argument string
}

// Validate checks the argument against the operation's accepted range.
func (m Manipulation) Validate() error {
	return validate(m)
}

func (m Manipulation) String() string {
	return fmt.Sprintf("%s=%s", m.Name, m.Argument)
}

func itoa(v int) string { return strconv.Itoa(v) }

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// Width sets the output width in pixels.
func Width(w int) Manipulation { return Manipulation{NameWidth, itoa(w)} }

// Height sets the output height in pixels.
func Height(h int) Manipulation { return Manipulation{NameHeight, itoa(h)} }

// Crop resizes to w x h and crops at the given position.
func Crop(w, h int, method string) []Manipulation {
	return []Manipulation{Width(w), Height(h), {NameCrop, method}}
}

// FocalCrop resizes to w x h and crops around a focal point given in
// percent of the source dimensions.
func FocalCrop(w, h, focalX, focalY int) []Manipulation {
	return Crop(w, h, fmt.Sprintf("crop-%d-%d", focalX, focalY))
}

// ManualCrop cuts a w x h region at offset (x, y) before any resizing.
func ManualCrop(w, h, x, y int) Manipulation {
	return Manipulation{NameManualCrop, fmt.Sprintf("%d,%d,%d,%d", w, h, x, y)}
}

// Fit resizes to w x h using method.
func Fit(w, h int, method string) []Manipulation {
	return []Manipulation{Width(w), Height(h), {NameFit, method}}
}

// Orientation rotates by a multiple of 90 degrees, or "auto" to follow
// the EXIF orientation.
func Orientation(o string) Manipulation { return Manipulation{NameOrientation, o} }

// Flip mirrors the image: "h", "v" or "both".
func Flip(direction string) Manipulation { return Manipulation{NameFlip, direction} }

// DevicePixelRatio multiplies the target size by r, 1 to 8.
func DevicePixelRatio(r float64) Manipulation {
	return Manipulation{NameDevicePixelRatio, ftoa(r)}
}

// Brightness adjusts brightness by v, -100 to 100.
func Brightness(v int) Manipulation { return Manipulation{NameBrightness, itoa(v)} }

// Contrast adjusts contrast by v, -100 to 100.
func Contrast(v int) Manipulation { return Manipulation{NameContrast, itoa(v)} }

// Gamma applies gamma correction, 0.1 to 9.99.
func Gamma(v float64) Manipulation { return Manipulation{NameGamma, ftoa(v)} }

// Sharpen sharpens by v, 0 to 100.
func Sharpen(v int) Manipulation { return Manipulation{NameSharpen, itoa(v)} }

// Blur applies a Gaussian blur of strength v, 0 to 100.
func Blur(v int) Manipulation { return Manipulation{NameBlur, itoa(v)} }

// Pixelate renders blocks of v pixels, 0 to 1000.
func Pixelate(v int) Manipulation { return Manipulation{NamePixelate, itoa(v)} }

// Greyscale selects the greyscale filter.
func Greyscale() Manipulation { return Manipulation{NameFilter, FilterGreyscale} }

// Sepia selects the sepia filter.
func Sepia() Manipulation { return Manipulation{NameFilter, FilterSepia} }

// Dithering selects the dithering filter, applied at the filter stage of
// the pipeline.
func Dithering() Manipulation { return Manipulation{NameFilter, FilterDithering} }

// Dither requests Atkinson dithering before any other operation in the
// group.
func Dither() Manipulation { return Manipulation{NameDither, "1"} }

// Background sets the fill colour for transparent regions. The colour is
// stored lower-cased without its leading '#'.
func Background(hex string) Manipulation {
	return Manipulation{NameBackground, normalizeHex(hex)}
}

// Border draws a border of the given width, colour and type.
func Border(width int, hex, borderType string) Manipulation {
	return Manipulation{NameBorder, fmt.Sprintf("%d,%s,%s", width, normalizeHex(hex), borderType)}
}

// Quality sets the encoder quality, 0 to 100.
func Quality(q int) Manipulation { return Manipulation{NameQuality, itoa(q)} }

// Format sets the output encoding. "jpeg" is normalized to "jpg".
func Format(f string) Manipulation {
	return Manipulation{NameFormat, NormalizeExtension(f)}
}

// Optimize enables post-write optimization for this artifact. The options
// map tool names to extra arguments and may be nil.
func Optimize(options map[string][]string) Manipulation {
	if len(options) == 0 {
		return Manipulation{NameOptimize, "{}"}
	}
	data, err := json.Marshal(options)
	if err != nil {
		return Manipulation{NameOptimize, "{}"}
	}
	return Manipulation{NameOptimize, string(data)}
}

// NormalizeExtension lower-cases an extension, strips a leading dot and maps
// the jpeg aliases to "jpg".
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	switch ext {
	case "jpeg", "jpe", "jfif":
		return FormatJPG
	case "tif":
		return FormatTIFF
	}
	return ext
}

func normalizeHex(hex string) string {
	return strings.ToLower(strings.TrimPrefix(hex, "#"))
}
