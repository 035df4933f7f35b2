package imaging

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/ironsheep/image-factory/internal/manipulation"
)

// Pipeline applies a manipulation set to a decoded image using a Backend.
//
// Each group of the set is one pass. Within a pass the manipulations run in
// a fixed order regardless of the order they were added in:
//
//	dither, orientation, manualCrop, size (width, height, fit, crop, dpr),
//	brightness, contrast, gamma, sharpen, filter, flip, blur, pixelate,
//	background, border
//
// format, quality and optimize do not touch pixels and are ignored here.
//
// Every step that enlarges the image checks the new size against the
// pixel budget before allocating it.
type Pipeline struct {
	backend   Backend
	maxPixels uint64
}

// NewPipeline returns a pipeline that renders with b. maxPixels bounds the
// size of any intermediate or output image; 0 means unbounded.
func NewPipeline(b Backend, maxPixels uint64) *Pipeline {
	return &Pipeline{backend: b, maxPixels: maxPixels}
}

// reserve fails with ErrMemoryLimit when a w x h image would exceed the
// pixel budget.
func (p *Pipeline) reserve(w, h int) error {
	return checkPixels(w, h, p.maxPixels)
}

type step func(img image.Image, g *manipulation.Group) (image.Image, error)

// Run applies every group of set to src. The context is checked between
// steps; a cancelled context aborts with its error.
func (p *Pipeline) Run(ctx context.Context, src image.Image, set *manipulation.Set) (image.Image, error) {
	steps := []step{
		p.dither,
		p.orientation,
		p.manualCrop,
		p.size,
		p.brightness,
		p.contrast,
		p.gamma,
		p.sharpen,
		p.filter,
		p.flip,
		p.blur,
		p.pixelate,
		p.background,
		p.border,
	}

	img := src
	for _, g := range set.Groups() {
		if g.Len() == 0 {
			continue
		}
		for _, run := range steps {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out, err := run(img, g)
			if err != nil {
				return nil, err
			}
			img = out
		}
	}
	return img, nil
}

func (p *Pipeline) dither(img image.Image, g *manipulation.Group) (image.Image, error) {
	if !g.Has(manipulation.NameDither) {
		return img, nil
	}
	return p.backend.Dither(img), nil
}

func (p *Pipeline) orientation(img image.Image, g *manipulation.Group) (image.Image, error) {
	arg, ok := g.Get(manipulation.NameOrientation)
	if !ok || arg == manipulation.OrientationAuto {
		// EXIF orientation is applied at decode time.
		return img, nil
	}
	deg, err := strconv.Atoi(arg)
	if err != nil {
		return nil, argError(manipulation.NameOrientation, arg, err)
	}
	return p.backend.Rotate(img, deg), nil
}

func (p *Pipeline) manualCrop(img image.Image, g *manipulation.Group) (image.Image, error) {
	arg, ok := g.Get(manipulation.NameManualCrop)
	if !ok {
		return img, nil
	}
	v, err := ints(manipulation.NameManualCrop, arg, 4)
	if err != nil {
		return nil, err
	}
	w, h, x, y := v[0], v[1], v[2], v[3]

	b := img.Bounds()
	rect := image.Rect(x, y, x+w, y+h).Intersect(image.Rect(0, 0, b.Dx(), b.Dy()))
	if rect.Empty() {
		return img, nil
	}
	return p.backend.Crop(img, rect), nil
}

func (p *Pipeline) size(img image.Image, g *manipulation.Group) (image.Image, error) {
	b := img.Bounds()
	srcW, srcH := b.Dx(), b.Dy()
	if srcW == 0 || srcH == 0 {
		return img, nil
	}

	w, err := intArg(g, manipulation.NameWidth)
	if err != nil {
		return nil, err
	}
	h, err := intArg(g, manipulation.NameHeight)
	if err != nil {
		return nil, err
	}
	dpr := 1.0
	if arg, ok := g.Get(manipulation.NameDevicePixelRatio); ok {
		if dpr, err = strconv.ParseFloat(arg, 64); err != nil {
			return nil, argError(manipulation.NameDevicePixelRatio, arg, err)
		}
	}

	fit := manipulation.FitContain
	if arg, ok := g.Get(manipulation.NameFit); ok {
		fit = arg
	}
	cropMethod := manipulation.CropCenter
	if arg, ok := g.Get(manipulation.NameCrop); ok {
		fit = manipulation.FitCrop
		cropMethod = arg
	}

	if w == 0 && h == 0 && dpr == 1 {
		return img, nil
	}
	switch {
	case w == 0 && h == 0:
		w, h = srcW, srcH
	case w == 0:
		w = int(math.Round(float64(h) * float64(srcW) / float64(srcH)))
	case h == 0:
		h = int(math.Round(float64(w) * float64(srcH) / float64(srcW)))
	}
	w = max(1, int(math.Round(float64(w)*dpr)))
	h = max(1, int(math.Round(float64(h)*dpr)))
	if err := p.reserve(w, h); err != nil {
		return nil, err
	}

	switch fit {
	case manipulation.FitStretch:
		if w == srcW && h == srcH {
			return img, nil
		}
		return p.backend.Resize(img, w, h), nil
	case manipulation.FitMax:
		return p.contain(img, w, h, false), nil
	case manipulation.FitFill:
		return p.pad(p.contain(img, w, h, true), w, h), nil
	case manipulation.FitFillMax:
		return p.pad(p.contain(img, w, h, false), w, h), nil
	case manipulation.FitCrop:
		return p.cover(img, w, h, cropMethod)
	}
	return p.contain(img, w, h, true), nil
}

// contain scales img to fit inside w x h keeping its aspect ratio.
func (p *Pipeline) contain(img image.Image, w, h int, upscale bool) image.Image {
	b := img.Bounds()
	scale := math.Min(float64(w)/float64(b.Dx()), float64(h)/float64(b.Dy()))
	if scale >= 1 && !upscale {
		return img
	}
	nw := max(1, int(math.Round(float64(b.Dx())*scale)))
	nh := max(1, int(math.Round(float64(b.Dy())*scale)))
	if nw == b.Dx() && nh == b.Dy() {
		return img
	}
	return p.backend.Resize(img, nw, nh)
}

// pad centres img on a transparent w x h canvas.
func (p *Pipeline) pad(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}
	offset := image.Pt((w-b.Dx())/2, (h-b.Dy())/2)
	return p.backend.Canvas(img, w, h, offset, color.Transparent)
}

// cover scales img to cover w x h and crops the overflow at the position
// named by method.
func (p *Pipeline) cover(img image.Image, w, h int, method string) (image.Image, error) {
	b := img.Bounds()
	px, py, zoom := cropPosition(method)

	scale := math.Max(float64(w)/float64(b.Dx()), float64(h)/float64(b.Dy())) * zoom
	rw := max(w, int(math.Ceil(float64(b.Dx())*scale)))
	rh := max(h, int(math.Ceil(float64(b.Dy())*scale)))
	if rw != b.Dx() || rh != b.Dy() {
		if err := p.reserve(rw, rh); err != nil {
			return nil, err
		}
		img = p.backend.Resize(img, rw, rh)
	}

	x := clampOffset(rw*px/100-w/2, rw-w)
	y := clampOffset(rh*py/100-h/2, rh-h)
	return p.backend.Crop(img, image.Rect(x, y, x+w, y+h)), nil
}

// cropPosition returns the focal point, in percent, and zoom for a crop
// method.
func cropPosition(method string) (x, y int, zoom float64) {
	if fx, fy, z, ok := manipulation.FocalPoint(method); ok {
		return min(fx, 100), min(fy, 100), max(z, 1)
	}
	switch method {
	case manipulation.CropTopLeft:
		return 0, 0, 1
	case manipulation.CropTop:
		return 50, 0, 1
	case manipulation.CropTopRight:
		return 100, 0, 1
	case manipulation.CropLeft:
		return 0, 50, 1
	case manipulation.CropRight:
		return 100, 50, 1
	case manipulation.CropBottomLeft:
		return 0, 100, 1
	case manipulation.CropBottom:
		return 50, 100, 1
	case manipulation.CropBottomRight:
		return 100, 100, 1
	}
	return 50, 50, 1
}

func clampOffset(v, limit int) int {
	return max(0, min(v, limit))
}

func (p *Pipeline) brightness(img image.Image, g *manipulation.Group) (image.Image, error) {
	v, ok, err := optionalInt(g, manipulation.NameBrightness)
	if err != nil || !ok || v == 0 {
		return img, err
	}
	return p.backend.Brightness(img, v), nil
}

func (p *Pipeline) contrast(img image.Image, g *manipulation.Group) (image.Image, error) {
	v, ok, err := optionalInt(g, manipulation.NameContrast)
	if err != nil || !ok || v == 0 {
		return img, err
	}
	return p.backend.Contrast(img, v), nil
}

func (p *Pipeline) gamma(img image.Image, g *manipulation.Group) (image.Image, error) {
	arg, ok := g.Get(manipulation.NameGamma)
	if !ok {
		return img, nil
	}
	v, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return nil, argError(manipulation.NameGamma, arg, err)
	}
	if v == 1 {
		return img, nil
	}
	return p.backend.Gamma(img, v), nil
}

func (p *Pipeline) sharpen(img image.Image, g *manipulation.Group) (image.Image, error) {
	v, ok, err := optionalInt(g, manipulation.NameSharpen)
	if err != nil || !ok {
		return img, err
	}
	return p.backend.Sharpen(img, v), nil
}

func (p *Pipeline) filter(img image.Image, g *manipulation.Group) (image.Image, error) {
	arg, ok := g.Get(manipulation.NameFilter)
	if !ok {
		return img, nil
	}
	switch arg {
	case manipulation.FilterGreyscale:
		return p.backend.Greyscale(img), nil
	case manipulation.FilterSepia:
		return p.backend.Sepia(img), nil
	case manipulation.FilterDithering:
		return p.backend.Dither(img), nil
	}
	return nil, argError(manipulation.NameFilter, arg, nil)
}

func (p *Pipeline) flip(img image.Image, g *manipulation.Group) (image.Image, error) {
	arg, ok := g.Get(manipulation.NameFlip)
	if !ok {
		return img, nil
	}
	switch arg {
	case manipulation.FlipHorizontal:
		return p.backend.Flip(img, true, false), nil
	case manipulation.FlipVertical:
		return p.backend.Flip(img, false, true), nil
	case manipulation.FlipBoth:
		return p.backend.Flip(img, true, true), nil
	}
	return nil, argError(manipulation.NameFlip, arg, nil)
}

func (p *Pipeline) blur(img image.Image, g *manipulation.Group) (image.Image, error) {
	v, ok, err := optionalInt(g, manipulation.NameBlur)
	if err != nil || !ok {
		return img, err
	}
	return p.backend.Blur(img, v), nil
}

func (p *Pipeline) pixelate(img image.Image, g *manipulation.Group) (image.Image, error) {
	v, ok, err := optionalInt(g, manipulation.NamePixelate)
	if err != nil || !ok {
		return img, err
	}
	return p.backend.Pixelate(img, v), nil
}

func (p *Pipeline) background(img image.Image, g *manipulation.Group) (image.Image, error) {
	arg, ok := g.Get(manipulation.NameBackground)
	if !ok {
		return img, nil
	}
	bg, err := ParseColor(arg)
	if err != nil {
		return nil, argError(manipulation.NameBackground, arg, err)
	}
	b := img.Bounds()
	return p.backend.Canvas(img, b.Dx(), b.Dy(), image.Point{}, bg), nil
}

func (p *Pipeline) border(img image.Image, g *manipulation.Group) (image.Image, error) {
	arg, ok := g.Get(manipulation.NameBorder)
	if !ok {
		return img, nil
	}
	parts := strings.Split(arg, ",")
	if len(parts) != 3 {
		return nil, argError(manipulation.NameBorder, arg, nil)
	}
	bw, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, argError(manipulation.NameBorder, arg, err)
	}
	c, err := ParseColor(parts[1])
	if err != nil {
		return nil, argError(manipulation.NameBorder, arg, err)
	}
	if bw <= 0 {
		return img, nil
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	offset := image.Pt(bw, bw)

	switch parts[2] {
	case manipulation.BorderExpand:
		if err := p.reserve(w+2*bw, h+2*bw); err != nil {
			return nil, err
		}
		return p.backend.Canvas(img, w+2*bw, h+2*bw, offset, c), nil
	case manipulation.BorderShrink:
		if 2*bw >= w || 2*bw >= h {
			return img, nil
		}
		inner := p.backend.Resize(img, w-2*bw, h-2*bw)
		return p.backend.Canvas(inner, w, h, offset, c), nil
	case manipulation.BorderOverlay:
		if 2*bw >= w || 2*bw >= h {
			return p.backend.Canvas(image.NewNRGBA(image.Rect(0, 0, 0, 0)), w, h, image.Point{}, c), nil
		}
		inner := p.backend.Crop(img, image.Rect(bw, bw, w-bw, h-bw))
		return p.backend.Canvas(inner, w, h, offset, c), nil
	}
	return nil, argError(manipulation.NameBorder, arg, nil)
}

func intArg(g *manipulation.Group, name manipulation.Name) (int, error) {
	v, _, err := optionalInt(g, name)
	return v, err
}

func optionalInt(g *manipulation.Group, name manipulation.Name) (int, bool, error) {
	arg, ok := g.Get(name)
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.Atoi(arg)
	if err != nil {
		return 0, false, argError(name, arg, err)
	}
	return v, true, nil
}

func ints(name manipulation.Name, arg string, n int) ([]int, error) {
	parts := strings.Split(arg, ",")
	if len(parts) != n {
		return nil, argError(name, arg, nil)
	}
	out := make([]int, n)
	for i, s := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil, argError(name, arg, err)
		}
		out[i] = v
	}
	return out, nil
}

func argError(name manipulation.Name, arg string, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %s=%q: %w", manipulation.ErrInvalidArgument, name, arg, err)
	}
	return fmt.Errorf("%w: %s=%q", manipulation.ErrInvalidArgument, name, arg)
}
