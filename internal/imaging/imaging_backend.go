package imaging

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
)

// ImagingBackend is built on github.com/disintegration/imaging. It is the
// default backend and answers to the "gd" driver name.
type ImagingBackend struct{}

// NewImagingBackend returns the default backend.
func NewImagingBackend() *ImagingBackend {
	return &ImagingBackend{}
}

// Name returns DriverImaging.
func (b *ImagingBackend) Name() string { return DriverImaging }

// Decode decodes any registered format and applies EXIF orientation.
func (b *ImagingBackend) Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Resize scales to width x height with a Lanczos filter.
func (b *ImagingBackend) Resize(img image.Image, width, height int) image.Image {
	return imaging.Resize(img, width, height, imaging.Lanczos)
}

// Crop cuts rect, given relative to the image origin.
func (b *ImagingBackend) Crop(img image.Image, rect image.Rectangle) image.Image {
	return imaging.Crop(img, rect.Add(img.Bounds().Min))
}

// Rotate turns the image counter-clockwise by a multiple of 90 degrees.
// Other angles return img unchanged.
func (b *ImagingBackend) Rotate(img image.Image, degrees int) image.Image {
	switch ((degrees % 360) + 360) % 360 {
	case 90:
		return imaging.Rotate90(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate270(img)
	}
	return img
}

// Flip mirrors horizontally, vertically or both.
func (b *ImagingBackend) Flip(img image.Image, horizontal, vertical bool) image.Image {
	if horizontal {
		img = imaging.FlipH(img)
	}
	if vertical {
		img = imaging.FlipV(img)
	}
	return img
}

// Blur applies a Gaussian blur; amount 0 is a no-op.
func (b *ImagingBackend) Blur(img image.Image, amount int) image.Image {
	if amount <= 0 {
		return img
	}
	return imaging.Blur(img, blurSigma(amount))
}

// Sharpen applies an unsharp mask; amount 0 is a no-op.
func (b *ImagingBackend) Sharpen(img image.Image, amount int) image.Image {
	if amount <= 0 {
		return img
	}
	return imaging.Sharpen(img, sharpenSigma(amount))
}

// Pixelate box-averages blocks of size pixels and scales them back up.
func (b *ImagingBackend) Pixelate(img image.Image, size int) image.Image {
	if size <= 1 {
		return img
	}
	bounds := img.Bounds()
	pw, ph := pixelateSize(bounds.Dx(), bounds.Dy(), size)
	small := imaging.Resize(img, pw, ph, imaging.Box)
	return imaging.Resize(small, bounds.Dx(), bounds.Dy(), imaging.NearestNeighbor)
}

// Brightness shifts brightness by percent, -100 to 100.
func (b *ImagingBackend) Brightness(img image.Image, percent int) image.Image {
	return imaging.AdjustBrightness(img, float64(percent))
}

// Contrast shifts contrast by percent, -100 to 100.
func (b *ImagingBackend) Contrast(img image.Image, percent int) image.Image {
	return imaging.AdjustContrast(img, float64(percent))
}

// Gamma applies gamma correction; 1 is a no-op.
func (b *ImagingBackend) Gamma(img image.Image, gamma float64) image.Image {
	return imaging.AdjustGamma(img, gamma)
}

// Greyscale drops colour.
func (b *ImagingBackend) Greyscale(img image.Image) image.Image {
	return imaging.Grayscale(img)
}

// Sepia tints a greyscale copy brown.
func (b *ImagingBackend) Sepia(img image.Image) image.Image {
	return imaging.AdjustFunc(imaging.Grayscale(img), func(c color.NRGBA) color.NRGBA {
		r, g, bl := sepiaTone(c.R, c.G, c.B)
		return color.NRGBA{R: r, G: g, B: bl, A: c.A}
	})
}

// Dither runs Atkinson diffusion over a column-major lattice of 24-bit
// packed grey values, thresholding at half of 0xFFFFFF.
func (b *ImagingBackend) Dither(img image.Image) *image.NRGBA {
	grey := imaging.Grayscale(img)
	return ditherLattice(grey)
}

// Canvas places img at offset on a width x height canvas filled with bg.
func (b *ImagingBackend) Canvas(img image.Image, width, height int, offset image.Point, bg color.Color) image.Image {
	return imaging.Overlay(imaging.New(width, height, bg), img, offset, 1.0)
}

// Encode writes img in format. JPEG output is flattened onto white.
func (b *ImagingBackend) Encode(w io.Writer, img image.Image, format string, quality int) error {
	f, ok := imagingFormats[format]
	if !ok {
		return fmt.Errorf("%w: %s (driver %s)", ErrUnsupportedFormat, format, b.Name())
	}
	if f == imaging.JPEG {
		img = flattenOnWhite(img, b)
	}
	if err := imaging.Encode(w, img, f, imaging.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("failed to encode %s: %w", format, err)
	}
	return nil
}

// Supports reports whether Encode can write format.
func (b *ImagingBackend) Supports(format string) bool {
	_, ok := imagingFormats[format]
	return ok
}

var imagingFormats = map[string]imaging.Format{
	"jpg":  imaging.JPEG,
	"pjpg": imaging.JPEG,
	"png":  imaging.PNG,
	"gif":  imaging.GIF,
	"bmp":  imaging.BMP,
	"tiff": imaging.TIFF,
}

// flattenOnWhite composites images with transparency onto white, since
// JPEG has no alpha channel.
func flattenOnWhite(img image.Image, b Backend) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}
	bounds := img.Bounds()
	return b.Canvas(img, bounds.Dx(), bounds.Dy(), image.Point{}, color.White)
}
