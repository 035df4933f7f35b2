package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"io"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	"golang.org/x/image/tiff"
)

// BildBackend is built on github.com/anthonynsimon/bild. It answers to the
// "imagick" driver name. It does not read EXIF orientation.
type BildBackend struct{}

// NewBildBackend returns the bild backend.
func NewBildBackend() *BildBackend {
	return &BildBackend{}
}

// Name returns DriverBild.
func (b *BildBackend) Name() string { return DriverBild }

// Decode decodes any registered format into an *image.RGBA.
func (b *BildBackend) Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return asRGBA(img), nil
}

// Resize scales to width x height with a Lanczos filter.
func (b *BildBackend) Resize(img image.Image, width, height int) image.Image {
	return transform.Resize(asRGBA(img), width, height, transform.Lanczos)
}

// Crop cuts rect.
func (b *BildBackend) Crop(img image.Image, rect image.Rectangle) image.Image {
	return asRGBA(transform.Crop(asRGBA(img), rect))
}

// Rotate turns the image counter-clockwise by a multiple of 90 degrees.
func (b *BildBackend) Rotate(img image.Image, degrees int) image.Image {
	img = asRGBA(img)
	switch ((degrees % 360) + 360) % 360 {
	case 90:
		// bild rotates clockwise
		return transform.Rotate(img, 270, &transform.RotationOptions{ResizeBounds: true})
	case 180:
		return transform.FlipV(transform.FlipH(img))
	case 270:
		return transform.Rotate(img, 90, &transform.RotationOptions{ResizeBounds: true})
	}
	return img
}

// Flip mirrors horizontally, vertically or both.
func (b *BildBackend) Flip(img image.Image, horizontal, vertical bool) image.Image {
	img = asRGBA(img)
	if horizontal {
		img = transform.FlipH(img)
	}
	if vertical {
		img = transform.FlipV(img)
	}
	return img
}

func (b *BildBackend) Blur(img image.Image, amount int) image.Image {
	if amount <= 0 {
		return img
	}
	return blur.Gaussian(asRGBA(img), blurSigma(amount))
}

// Sharpen applies bild's unsharp mask, scaled so that amount matches
// the default backend roughly.
func (b *BildBackend) Sharpen(img image.Image, amount int) image.Image {
	if amount <= 0 {
		return img
	}
	return effect.UnsharpMask(asRGBA(img), sharpenSigma(amount)/5, float64(amount)/50)
}

func (b *BildBackend) Pixelate(img image.Image, size int) image.Image {
	if size <= 1 {
		return img
	}
	bounds := img.Bounds()
	pw, ph := pixelateSize(bounds.Dx(), bounds.Dy(), size)
	small := transform.Resize(asRGBA(img), pw, ph, transform.Box)
	return transform.Resize(small, bounds.Dx(), bounds.Dy(), transform.NearestNeighbor)
}

func (b *BildBackend) Brightness(img image.Image, percent int) image.Image {
	return adjust.Brightness(img, float64(percent)/100)
}

func (b *BildBackend) Contrast(img image.Image, percent int) image.Image {
	return adjust.Contrast(img, float64(percent)/100)
}

func (b *BildBackend) Gamma(img image.Image, gamma float64) image.Image {
	return adjust.Gamma(img, gamma)
}

func (b *BildBackend) Greyscale(img image.Image) image.Image {
	return effect.Grayscale(img)
}

func (b *BildBackend) Sepia(img image.Image) image.Image {
	return effect.Sepia(img)
}

// Dither runs Atkinson diffusion over a packed [grey, alpha] buffer,
// thresholding at 128.
func (b *BildBackend) Dither(img image.Image) *image.NRGBA {
	return ditherPacked(effect.Grayscale(img))
}

// Canvas draws img over a bg-filled width x height canvas at offset.
func (b *BildBackend) Canvas(img image.Image, width, height int, offset image.Point, bg color.Color) image.Image {
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	src := img.Bounds()
	draw.Draw(canvas, src.Sub(src.Min).Add(offset), img, src.Min, draw.Over)
	return canvas
}

// Encode writes img in format. TIFF output is deflate-compressed and
// JPEG output is flattened onto white.
func (b *BildBackend) Encode(w io.Writer, img image.Image, format string, quality int) error {
	var enc imgio.Encoder
	switch format {
	case "jpg", "pjpg":
		enc = imgio.JPEGEncoder(quality)
		img = flattenOnWhite(img, b)
	case "png":
		enc = imgio.PNGEncoder()
	case "bmp":
		enc = imgio.BMPEncoder()
	case "gif":
		enc = func(w io.Writer, img image.Image) error { return gif.Encode(w, img, nil) }
	case "tiff":
		enc = func(w io.Writer, img image.Image) error {
			return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
		}
	default:
		return fmt.Errorf("%w: %s (driver %s)", ErrUnsupportedFormat, format, b.Name())
	}
	if err := enc(w, img); err != nil {
		return fmt.Errorf("failed to encode %s: %w", format, err)
	}
	return nil
}

// Supports reports whether Encode can write format.
func (b *BildBackend) Supports(format string) bool {
	switch format {
	case "jpg", "pjpg", "png", "bmp", "gif", "tiff":
		return true
	}
	return false
}

// asRGBA returns img as a compact *image.RGBA with a zero origin, copying
// only when needed. Several bild filters index Pix assuming both.
func asRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) && rgba.Stride == 4*rgba.Rect.Dx() {
		return rgba
	}
	out := clone.AsRGBA(img)
	out.Rect = out.Rect.Sub(out.Rect.Min)
	return out
}
