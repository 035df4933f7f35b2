package manipulation

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrUnknownManipulation is returned for operation names outside the
	// supported set.
	ErrUnknownManipulation = errors.New("unknown manipulation")

	// ErrInvalidArgument is returned when an operation argument is out of
	// range or malformed.
	ErrInvalidArgument = errors.New("invalid manipulation argument")
)

// Name identifies a single image operation.
type Name string

// Supported operation names.
const (
	NameWidth            Name = "width"
	NameHeight           Name = "height"
	NameCrop             Name = "crop"
	NameManualCrop       Name = "manualCrop"
	NameFit              Name = "fit"
	NameOrientation      Name = "orientation"
	NameFlip             Name = "flip"
	NameDevicePixelRatio Name = "devicePixelRatio"
	NameBrightness       Name = "brightness"
	NameContrast         Name = "contrast"
	NameGamma            Name = "gamma"
	NameSharpen          Name = "sharpen"
	NameBlur             Name = "blur"
	NamePixelate         Name = "pixelate"
	NameFilter           Name = "filter"
	NameBackground       Name = "background"
	NameBorder           Name = "border"
	NameQuality          Name = "quality"
	NameFormat           Name = "format"
	NameOptimize         Name = "optimize"
	NameDither           Name = "dither"
)

var names = map[Name]bool{
	NameWidth: true, NameHeight: true, NameCrop: true, NameManualCrop: true,
	NameFit: true, NameOrientation: true, NameFlip: true, NameDevicePixelRatio: true,
	NameBrightness: true, NameContrast: true, NameGamma: true, NameSharpen: true,
	NameBlur: true, NamePixelate: true, NameFilter: true, NameBackground: true,
	NameBorder: true, NameQuality: true, NameFormat: true, NameOptimize: true,
	NameDither: true,
}

// Valid reports whether n is a supported operation.
func (n Name) Valid() bool {
	return names[n]
}

// ParseName converts a string into a Name.
func ParseName(s string) (Name, error) {
	n := Name(s)
	if !n.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownManipulation, s)
	}
	return n, nil
}

// Fit methods.
const (
	FitContain = "contain"
	FitMax     = "max"
	FitFill    = "fill"
	FitFillMax = "fill-max"
	FitStretch = "stretch"
	FitCrop    = "crop"
)

// Crop positions.
const (
	CropTopLeft     = "crop-top-left"
	CropTop         = "crop-top"
	CropTopRight    = "crop-top-right"
	CropLeft        = "crop-left"
	CropCenter      = "crop-center"
	CropRight       = "crop-right"
	CropBottomLeft  = "crop-bottom-left"
	CropBottom      = "crop-bottom"
	CropBottomRight = "crop-bottom-right"
)

// Filters.
const (
	FilterGreyscale = "greyscale"
	FilterSepia     = "sepia"
	FilterDithering = "dithering"
)

// Flip directions.
const (
	FlipHorizontal = "h"
	FlipVertical   = "v"
	FlipBoth       = "both"
)

// Orientations.
const (
	OrientationAuto = "auto"
	Orientation0    = "0"
	Orientation90   = "90"
	Orientation180  = "180"
	Orientation270  = "270"
)

// Border types.
const (
	BorderOverlay = "overlay"
	BorderShrink  = "shrink"
	BorderExpand  = "expand"
)

// Output formats.
const (
	FormatJPG  = "jpg"
	FormatPJPG = "pjpg"
	FormatPNG  = "png"
	FormatGIF  = "gif"
	FormatWEBP = "webp"
	FormatAVIF = "avif"
	FormatBMP  = "bmp"
	FormatTIFF = "tiff"
)

var (
	fitMethods = map[string]bool{
		FitContain: true, FitMax: true, FitFill: true, FitFillMax: true,
		FitStretch: true, FitCrop: true,
	}
	cropMethods = map[string]bool{
		CropTopLeft: true, CropTop: true, CropTopRight: true, CropLeft: true,
		CropCenter: true, CropRight: true, CropBottomLeft: true, CropBottom: true,
		CropBottomRight: true,
	}
	filters      = map[string]bool{FilterGreyscale: true, FilterSepia: true, FilterDithering: true}
	flips        = map[string]bool{FlipHorizontal: true, FlipVertical: true, FlipBoth: true}
	orientations = map[string]bool{
		OrientationAuto: true, Orientation0: true, Orientation90: true,
		Orientation180: true, Orientation270: true,
	}
	borderTypes = map[string]bool{BorderOverlay: true, BorderShrink: true, BorderExpand: true}
	formats     = map[string]bool{
		FormatJPG: true, FormatPJPG: true, FormatPNG: true, FormatGIF: true,
		FormatWEBP: true, FormatAVIF: true, FormatBMP: true, FormatTIFF: true,
	}

	focalCropPattern = regexp.MustCompile(`^crop-(\d{1,3})-(\d{1,3})(?:-(\d+(?:\.\d+)?))?$`)
	hexColorPattern  = regexp.MustCompile(`^#?(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
)

// IsCropMethod reports whether s names a crop position or a focal crop.
func IsCropMethod(s string) bool {
	return cropMethods[s] || focalCropPattern.MatchString(s)
}

// FocalPoint extracts the focal point percentages and zoom from a focal crop
// method such as "crop-25-75" or "crop-25-75-2". ok is false for anything
// else.
func FocalPoint(method string) (x, y int, zoom float64, ok bool) {
	m := focalCropPattern.FindStringSubmatch(method)
	if m == nil {
		return 0, 0, 0, false
	}
	x, _ = strconv.Atoi(m[1])
	y, _ = strconv.Atoi(m[2])
	zoom = 1
	if m[3] != "" {
		zoom, _ = strconv.ParseFloat(m[3], 64)
	}
	return x, y, zoom, true
}

// IsFormat reports whether s is a supported output format.
func IsFormat(s string) bool {
	return formats[strings.ToLower(s)]
}

// DefaultOutput returns the format an artifact of a source with extension
// ext is written in when no format is requested. WebP can be read but not
// written, so WebP sources are re-encoded as PNG.
func DefaultOutput(ext string) string {
	if ext == FormatWEBP {
		return FormatPNG
	}
	return ext
}

// AspectRatioChanging reports whether a fit method forces both output
// dimensions, ignoring the source aspect ratio.
func AspectRatioChanging(fit string) bool {
	switch fit {
	case FitStretch, FitFill, FitCrop:
		return true
	}
	return false
}

// validate checks a single manipulation argument.
func validate(m Manipulation) error {
	if !m.Name.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownManipulation, string(m.Name))
	}
	arg := m.Argument
	switch m.Name {
	case NameWidth, NameHeight:
		return intInRange(m, 0, 1<<16)
	case NameCrop:
		if !IsCropMethod(arg) {
			return invalid(m, "unknown crop method")
		}
		if x, y, _, ok := FocalPoint(arg); ok && (x > 100 || y > 100) {
			return invalid(m, "focal point must be within 0-100")
		}
	case NameManualCrop:
		parts := strings.Split(arg, ",")
		if len(parts) != 4 {
			return invalid(m, "expected width,height,x,y")
		}
		for i, p := range parts {
			v, err := strconv.Atoi(p)
			if err != nil {
				return invalid(m, "expected integers")
			}
			if i < 2 && v <= 0 {
				return invalid(m, "width and height must be positive")
			}
			if i >= 2 && v < 0 {
				return invalid(m, "offsets must not be negative")
			}
		}
	case NameFit:
		if !fitMethods[arg] {
			return invalid(m, "unknown fit method")
		}
	case NameOrientation:
		if !orientations[arg] {
			return invalid(m, "unknown orientation")
		}
	case NameFlip:
		if !flips[arg] {
			return invalid(m, "unknown flip direction")
		}
	case NameDevicePixelRatio:
		return floatInRange(m, 1, 8)
	case NameBrightness, NameContrast:
		return intInRange(m, -100, 100)
	case NameGamma:
		return floatInRange(m, 0.1, 9.99)
	case NameSharpen, NameBlur, NameQuality:
		return intInRange(m, 0, 100)
	case NamePixelate:
		return intInRange(m, 0, 1000)
	case NameFilter:
		if !filters[arg] {
			return invalid(m, "unknown filter")
		}
	case NameBackground:
		if !hexColorPattern.MatchString(arg) {
			return invalid(m, "expected a hex colour")
		}
	case NameBorder:
		parts := strings.Split(arg, ",")
		if len(parts) != 3 {
			return invalid(m, "expected width,colour,type")
		}
		if v, err := strconv.Atoi(parts[0]); err != nil || v < 0 {
			return invalid(m, "border width must be a non-negative integer")
		}
		if !hexColorPattern.MatchString(parts[1]) {
			return invalid(m, "expected a hex colour")
		}
		if !borderTypes[parts[2]] {
			return invalid(m, "unknown border type")
		}
	case NameFormat:
		if !IsFormat(arg) {
			return invalid(m, "unsupported format")
		}
	case NameOptimize, NameDither:
	}
	return nil
}

func intInRange(m Manipulation, lo, hi int) error {
	v, err := strconv.Atoi(m.Argument)
	if err != nil {
		return invalid(m, "expected an integer")
	}
	if v < lo || v > hi {
		return invalid(m, fmt.Sprintf("must be between %d and %d", lo, hi))
	}
	return nil
}

func floatInRange(m Manipulation, lo, hi float64) error {
	v, err := strconv.ParseFloat(m.Argument, 64)
	if err != nil {
		return invalid(m, "expected a number")
	}
	if v < lo || v > hi {
		return invalid(m, fmt.Sprintf("must be between %g and %g", lo, hi))
	}
	return nil
}

func invalid(m Manipulation, reason string) error {
	return fmt.Errorf("%w: %s=%q: %s", ErrInvalidArgument, m.Name, m.Argument, reason)
}
