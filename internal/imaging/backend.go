package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"strings"
)

var (
	// ErrUnknownDriver is returned by NewBackend for unrecognized driver names.
	ErrUnknownDriver = errors.New("unknown image driver")

	// ErrUnsupportedFormat is returned when a backend cannot encode a format.
	ErrUnsupportedFormat = errors.New("unsupported output format")

	// ErrMemoryLimit is returned when decoding an image would exceed the
	// configured pixel budget.
	ErrMemoryLimit = errors.New("image exceeds memory limit")
)

// Backend wraps a raster library. Every method returns a new image and
// leaves its input untouched.
type Backend interface {
	// Name is the canonical driver name.
	Name() string

	// Decode reads an image, applying EXIF orientation when the backend
	// supports it.
	Decode(r io.Reader) (image.Image, error)

	Resize(img image.Image, width, height int) image.Image

	// Crop cuts rect, given relative to the image's top-left corner.
	Crop(img image.Image, rect image.Rectangle) image.Image

	// Rotate turns img counter-clockwise by a multiple of 90 degrees.
	Rotate(img image.Image, degrees int) image.Image
	Flip(img image.Image, horizontal, vertical bool) image.Image

	// Blur, Sharpen and Pixelate take amounts on the 0-100 (0-1000 for
	// pixelate) scale used by the manipulation arguments.
	Blur(img image.Image, amount int) image.Image
	Sharpen(img image.Image, amount int) image.Image
	Pixelate(img image.Image, size int) image.Image

	// Brightness and Contrast take a percentage in -100..100.
	Brightness(img image.Image, percent int) image.Image
	Contrast(img image.Image, percent int) image.Image
	Gamma(img image.Image, gamma float64) image.Image

	Greyscale(img image.Image) image.Image
	Sepia(img image.Image) image.Image

	// Dither converts img to black and white with Atkinson error diffusion.
	Dither(img image.Image) *image.NRGBA

	// Canvas places img at offset on a width x height canvas filled with bg.
	Canvas(img image.Image, width, height int, offset image.Point, bg color.Color) image.Image

	// Encode writes img in format ("jpg", "png", ...). quality applies to
	// lossy formats.
	Encode(w io.Writer, img image.Image, format string, quality int) error

	// Supports reports whether Encode can produce format.
	Supports(format string) bool
}

// Driver names accepted by NewBackend. "gd" and "imagick" are kept as
// aliases so existing configuration files keep working.
const (
	DriverImaging = "imaging"
	DriverGD      = "gd"
	DriverBild    = "bild"
	DriverImagick = "imagick"
)

// NewBackend returns the backend for driver. An empty driver selects the
// default imaging backend.
func NewBackend(driver string) (Backend, error) {
	switch strings.ToLower(driver) {
	case "", DriverImaging, DriverGD:
		return NewImagingBackend(), nil
	case DriverBild, DriverImagick:
		return NewBildBackend(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
}

// DefaultQuality is used when no quality manipulation is set.
const DefaultQuality = 90

// blurSigma maps a 0-100 blur amount to a gaussian sigma.
func blurSigma(amount int) float64 {
	return float64(amount) / 4
}

// sharpenSigma maps a 0-100 sharpen amount to an unsharp-mask sigma.
func sharpenSigma(amount int) float64 {
	return 0.5 + float64(amount)/20
}

// pixelateSize returns the block-reduced size for pixelation.
func pixelateSize(w, h, block int) (int, int) {
	pw, ph := w/block, h/block
	if pw < 1 {
		pw = 1
	}
	if ph < 1 {
		ph = 1
	}
	return pw, ph
}

// sepiaTone applies the standard sepia matrix to one pixel.
func sepiaTone(r, g, b uint8) (uint8, uint8, uint8) {
	fr, fg, fb := float64(r), float64(g), float64(b)
	return clamp8(0.393*fr + 0.769*fg + 0.189*fb),
		clamp8(0.349*fr + 0.686*fg + 0.168*fb),
		clamp8(0.272*fr + 0.534*fg + 0.131*fb)
}

func clamp8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v + 0.5)
}
