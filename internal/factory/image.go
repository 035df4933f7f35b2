package factory

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"

	"github.com/ironsheep/image-factory/internal/cachekey"
	"github.com/ironsheep/image-factory/internal/imaging"
	"github.com/ironsheep/image-factory/internal/manipulation"
	"github.com/ironsheep/image-factory/internal/optimize"
	"github.com/ironsheep/image-factory/internal/scaler"
)

// Image is a handle on one source image and the manipulations requested
// for it.
//
// The helper methods return the handle so calls can be chained. The first
// invalid argument is kept and returned by Err and by every method that
// renders.
type Image struct {
	f       *Factory
	path    string
	relPath string
	set     *manipulation.Set

	scaler  scaler.Scaler
	srcset  bool
	batch   int
	dataURI bool

	optimize        bool
	optimizeOptions optimize.Options

	err error
}

// Path returns the absolute source path.
func (i *Image) Path() string { return i.path }

// RelativePath returns the slash-separated path used for the cache key.
func (i *Image) RelativePath() string { return i.relPath }

// Manipulations returns the underlying manipulation set.
func (i *Image) Manipulations() *manipulation.Set { return i.set }

// Err returns the first error recorded by a helper method.
func (i *Image) Err() error { return i.err }

// Add records ms in the current group.
func (i *Image) Add(ms ...manipulation.Manipulation) *Image {
	if i.err != nil {
		return i
	}
	i.err = i.add(ms)
	return i
}

// add rejects output formats the factory cannot write before they reach
// the set, so an unwritable request fails without touching the cache.
func (i *Image) add(ms []manipulation.Manipulation) error {
	for _, m := range ms {
		if m.Name == manipulation.NameFormat && manipulation.IsFormat(m.Argument) && !i.f.CanWrite(m.Argument) {
			return fmt.Errorf("%w: %s (driver %s)", imaging.ErrUnsupportedFormat, m.Argument, i.f.backend.Name())
		}
	}
	return i.set.Add(ms...)
}

// Apply starts a new manipulation group.
func (i *Image) Apply() *Image {
	i.set.Apply()
	return i
}

// Width resizes to w pixels wide, keeping the aspect ratio unless a
// height is also set.
func (i *Image) Width(w int) *Image { return i.Add(manipulation.Width(w)) }

// Height resizes to h pixels high.
func (i *Image) Height(h int) *Image { return i.Add(manipulation.Height(h)) }

// Crop resizes to exactly w x h, cropping at method.
func (i *Image) Crop(w, h int, method string) *Image {
	return i.Add(manipulation.Crop(w, h, method)...)
}

// FocalCrop crops around the point at focalX%, focalY%.
func (i *Image) FocalCrop(w, h, focalX, focalY int) *Image {
	return i.Add(manipulation.FocalCrop(w, h, focalX, focalY)...)
}

// ManualCrop cuts a w x h region at offset x, y without resizing.
func (i *Image) ManualCrop(w, h, x, y int) *Image {
	return i.Add(manipulation.ManualCrop(w, h, x, y))
}

// Fit resizes into w x h using one of the manipulation.Fit methods.
func (i *Image) Fit(w, h int, method string) *Image {
	return i.Add(manipulation.Fit(w, h, method)...)
}

// Orientation rotates by a multiple of 90 degrees or follows EXIF ("auto").
func (i *Image) Orientation(o string) *Image { return i.Add(manipulation.Orientation(o)) }

// Flip mirrors the image: "h", "v" or "both".
func (i *Image) Flip(direction string) *Image { return i.Add(manipulation.Flip(direction)) }

// DevicePixelRatio scales the target size by r.
func (i *Image) DevicePixelRatio(r float64) *Image { return i.Add(manipulation.DevicePixelRatio(r)) }

// Brightness adjusts brightness.
func (i *Image) Brightness(v int) *Image { return i.Add(manipulation.Brightness(v)) }

// Contrast adjusts contrast.
func (i *Image) Contrast(v int) *Image { return i.Add(manipulation.Contrast(v)) }

// Gamma applies gamma correction.
func (i *Image) Gamma(v float64) *Image { return i.Add(manipulation.Gamma(v)) }

// Sharpen sharpens.
func (i *Image) Sharpen(v int) *Image { return i.Add(manipulation.Sharpen(v)) }

// Blur blurs.
func (i *Image) Blur(v int) *Image { return i.Add(manipulation.Blur(v)) }

// Pixelate renders blocks of v pixels.
func (i *Image) Pixelate(v int) *Image { return i.Add(manipulation.Pixelate(v)) }

// Greyscale applies the greyscale filter.
func (i *Image) Greyscale() *Image { return i.Add(manipulation.Greyscale()) }

// Sepia applies the sepia filter.
func (i *Image) Sepia() *Image { return i.Add(manipulation.Sepia()) }

// Dither applies Atkinson dithering first in the current group.
func (i *Image) Dither() *Image { return i.Add(manipulation.Dither()) }

// Background fills transparent regions with hex.
func (i *Image) Background(hex string) *Image { return i.Add(manipulation.Background(hex)) }

// Quality sets the encoder quality.
func (i *Image) Quality(q int) *Image { return i.Add(manipulation.Quality(q)) }

// Border draws a border of width w. kind is overlay, shrink or expand.
func (i *Image) Border(w int, hex, kind string) *Image {
	return i.Add(manipulation.Border(w, hex, kind))
}

// Format sets the output format.
func (i *Image) Format(format string) *Image { return i.Add(manipulation.Format(format)) }

// To is Format.
func (i *Image) To(format string) *Image { return i.Format(format) }

// Optimize enables the optimizer for this image. Non-empty options
// replace the configured optimization options.
func (i *Image) Optimize(options optimize.Options) *Image {
	return i.Add(manipulation.Optimize(options))
}

// DisableOptimize turns the optimizer off for this image even when the
// configuration enables it.
func (i *Image) DisableOptimize() *Image {
	i.set.Remove(manipulation.NameOptimize)
	i.optimize = false
	return i
}

// Widths renders a srcset at the given widths.
func (i *Image) Widths(widths ...int) *Image {
	i.scaler = scaler.NewSizes(widths)
	i.srcset = true
	return i
}

// WidthRange renders a srcset from minWidth to maxWidth in steps. A zero
// step uses the configured one. Invalid bounds are recorded immediately.
func (i *Image) WidthRange(minWidth, maxWidth, step int) *Image {
	if step == 0 {
		step = i.f.cfg.Step
	}
	r, err := scaler.NewRange(minWidth, maxWidth, step)
	if err != nil {
		if i.err == nil {
			i.err = err
		}
		return i
	}
	i.scaler = r
	i.srcset = true
	return i
}

// Responsive renders a srcset with the configured scaler.
func (i *Image) Responsive() *Image {
	i.srcset = true
	return i
}

// IsSrcset reports whether the handle renders a srcset.
func (i *Image) IsSrcset() bool { return i.srcset }

// Batch overrides how many missing srcset widths one call renders. 0
// renders all of them.
func (i *Image) Batch(n int) *Image {
	i.batch = n
	return i
}

// DataURI makes Src return a base64 data URI instead of a URL.
func (i *Image) DataURI(enabled bool) *Image {
	i.dataURI = enabled
	return i
}

// Manipulate adds manipulations from a decoded map. Besides the
// manipulation names it accepts "widths", either a list of widths or a
// {"min", "max", "step"} object, and "optimize": false.
func (i *Image) Manipulate(m map[string]any) error {
	rest := make(map[string]any, len(m))
	for k, v := range m {
		switch k {
		case "widths":
			if err := i.manipulateWidths(v); err != nil {
				return err
			}
		case "optimize":
			if b, ok := v.(bool); ok && !b {
				i.DisableOptimize()
				continue
			}
			rest[k] = v
		default:
			rest[k] = v
		}
	}
	ms, err := manipulation.FromMap(rest)
	if err != nil {
		return err
	}
	return i.add(ms)
}

func (i *Image) manipulateWidths(v any) error {
	switch t := v.(type) {
	case map[string]any:
		minWidth, err := intValue(t["min"])
		if err != nil {
			return fmt.Errorf("%w: widths.min: %v", scaler.ErrInvalidArgument, err)
		}
		maxWidth, err := intValue(t["max"])
		if err != nil {
			return fmt.Errorf("%w: widths.max: %v", scaler.ErrInvalidArgument, err)
		}
		step := 0
		if s, ok := t["step"]; ok {
			if step, err = intValue(s); err != nil {
				return fmt.Errorf("%w: widths.step: %v", scaler.ErrInvalidArgument, err)
			}
		}
		if step == 0 {
			step = i.f.cfg.Step
		}
		r, err := scaler.NewRange(minWidth, maxWidth, step)
		if err != nil {
			return err
		}
		i.scaler = r
		i.srcset = true
		return nil
	case []any:
		widths := make([]int, 0, len(t))
		for _, w := range t {
			n, err := intValue(w)
			if err != nil {
				return fmt.Errorf("%w: widths: %v", scaler.ErrInvalidArgument, err)
			}
			widths = append(widths, n)
		}
		i.Widths(widths...)
		return nil
	case []int:
		i.Widths(t...)
		return nil
	}
	return fmt.Errorf("%w: widths: expected a list or a {min, max, step} object", scaler.ErrInvalidArgument)
}

func intValue(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		return int(i), err
	case nil:
		return 0, fmt.Errorf("missing value")
	}
	return 0, fmt.Errorf("unexpected %T", v)
}

// Extension returns the normalized extension of the source file.
func (i *Image) Extension() string {
	return manipulation.NormalizeExtension(filepath.Ext(i.path))
}

// IsSVG reports whether the source is an SVG, which is passed through
// untouched.
func (i *Image) IsSVG() bool { return i.Extension() == "svg" }

// TargetMime returns the MIME type of the artifact.
func (i *Image) TargetMime() string {
	return imaging.MimeType(cachekey.Extension(i.set, i.relPath))
}

// AspectRatioWillChange reports whether the manipulations force both
// output dimensions.
func (i *Image) AspectRatioWillChange() bool {
	w, _ := i.set.IntArgument(manipulation.NameWidth)
	h, _ := i.set.IntArgument(manipulation.NameHeight)
	if w <= 0 || h <= 0 {
		return false
	}
	if i.set.Has(manipulation.NameCrop) || i.set.Has(manipulation.NameManualCrop) {
		return true
	}
	fit, _ := i.set.Argument(manipulation.NameFit)
	return manipulation.AspectRatioChanging(fit)
}

// AspectRatio returns width / height of the artifact: the requested
// dimensions when they are forced, the source dimensions otherwise.
func (i *Image) AspectRatio() (float64, error) {
	if i.AspectRatioWillChange() {
		w, _ := i.set.IntArgument(manipulation.NameWidth)
		h, _ := i.set.IntArgument(manipulation.NameHeight)
		return float64(w) / float64(h), nil
	}
	dims, err := imaging.GetDimensions(i.path)
	if err != nil {
		return 0, err
	}
	if dims.Height == 0 {
		return 0, fmt.Errorf("%s has zero height", i.path)
	}
	return float64(dims.Width) / float64(dims.Height), nil
}

// ImageURL returns the public URL of the source image.
func (i *Image) ImageURL() string {
	return i.f.URL(i.path)
}

// optimization returns the effective optimize flag and options. An
// optimize manipulation enables the optimizer for this artifact and may
// carry its own options.
func (i *Image) optimization() (bool, optimize.Options) {
	arg, ok := i.set.Argument(manipulation.NameOptimize)
	if !ok {
		return i.optimize, i.optimizeOptions
	}
	var opts optimize.Options
	if err := json.Unmarshal([]byte(arg), &opts); err != nil || len(opts) == 0 {
		opts = i.optimizeOptions
	}
	return true, opts
}

// CachePath returns the absolute path of the artifact for the current
// manipulations.
func (i *Image) CachePath() string {
	enabled, _ := i.optimization()
	key := cachekey.Derive(i.set, i.relPath, enabled)
	name := cachekey.Filename(i.set, i.relPath, key, i.f.filename)
	return filepath.Join(i.f.cacheDir(i.relPath), name)
}

// Key returns the cache key for the current manipulations.
func (i *Image) Key() cachekey.Key {
	enabled, _ := i.optimization()
	return cachekey.Derive(i.set, i.relPath, enabled)
}

// check returns the recorded helper error or an invariant violation.
func (i *Image) check() error {
	if i.err != nil {
		return i.err
	}
	if i.dataURI && i.srcset {
		return fmt.Errorf("%w: a data URI cannot be used with a srcset", ErrInvariant)
	}
	return nil
}

// variant returns a copy of the handle with its own manipulation set.
func (i *Image) variant() *Image {
	v := *i
	v.set = i.set.Clone()
	return &v
}

// SrcPath renders the artifact if needed and returns its absolute path.
// SVG sources return the source path.
func (i *Image) SrcPath(ctx context.Context) (string, error) {
	if err := i.check(); err != nil {
		return "", err
	}
	if i.IsSVG() {
		return i.path, nil
	}
	return i.f.Generate(ctx, i, i.CachePath())
}

// Src returns the artifact URL, or a data URI when requested.
func (i *Image) Src(ctx context.Context) (string, error) {
	if err := i.check(); err != nil {
		return "", err
	}
	if i.IsSVG() {
		return i.ImageURL(), nil
	}
	p, err := i.SrcPath(ctx)
	if err != nil {
		return "", err
	}
	if i.dataURI {
		res, err := imaging.DataURI(p)
		if err != nil {
			return "", err
		}
		return res.URI, nil
	}
	return i.f.URL(p), nil
}
