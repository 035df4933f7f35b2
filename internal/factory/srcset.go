package factory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ironsheep/image-factory/internal/cachefs"
	"github.com/ironsheep/image-factory/internal/imaging"
	"github.com/ironsheep/image-factory/internal/manipulation"
)

// WidthError records a srcset width that could not be rendered.
type WidthError struct {
	Width int
	Err   error
}

func (e *WidthError) Error() string {
	return fmt.Sprintf("width %d: %v", e.Width, e.Err)
}

func (e *WidthError) Unwrap() error { return e.Err }

// SrcsetSources renders the srcset and returns artifact paths by width.
//
// Widths are rendered largest first. With a batch limit of n, a call
// renders missing widths only while fewer than n widths have been seen,
// where artifacts already on disk do not count against the limit. Widths
// skipped this way are absent from the result and rendered by a later
// call.
//
// Widths that fail are returned as *WidthError values joined into the
// error; the widths that succeeded are still returned.
//
// A handle that is not a srcset returns its single artifact keyed by its
// width.
func (i *Image) SrcsetSources(ctx context.Context) (map[int]string, error) {
	if err := i.check(); err != nil {
		return nil, err
	}
	if !i.srcset || i.IsSVG() {
		return i.singleSource(ctx)
	}

	// Every width decodes the same source; drop it once the set is done.
	defer i.f.images.Evict(i.path)

	widths := i.scaler.Scale()
	sort.Sort(sort.Reverse(sort.IntSlice(widths)))

	origW, _ := i.set.IntArgument(manipulation.NameWidth)
	origH, _ := i.set.IntArgument(manipulation.NameHeight)
	keepRatio := i.AspectRatioWillChange()

	sources := make(map[int]string, len(widths))
	var errs []error
	batch := i.batch
	for n, w := range widths {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		v := i.variant()
		v.set.Remove(manipulation.NameWidth)
		v.set.Remove(manipulation.NameHeight)
		ms := []manipulation.Manipulation{manipulation.Width(w)}
		if keepRatio {
			h := int(math.Round(float64(origH) / float64(origW) * float64(w)))
			ms = append(ms, manipulation.Height(h))
		}
		if err := v.set.Add(ms...); err != nil {
			errs = append(errs, &WidthError{Width: w, Err: err})
			continue
		}

		path := v.CachePath()
		if batch > 0 {
			if cachefs.Exists(path) {
				batch++
			} else if n+1 > batch {
				continue
			}
		}

		out, err := i.f.Generate(ctx, v, path)
		if err != nil {
			errs = append(errs, &WidthError{Width: w, Err: err})
			continue
		}
		sources[w] = out
	}
	return sources, errors.Join(errs...)
}

func (i *Image) singleSource(ctx context.Context) (map[int]string, error) {
	w, ok := i.set.IntArgument(manipulation.NameWidth)
	if !ok && !i.IsSVG() {
		dims, err := imaging.GetDimensions(i.path)
		if err != nil {
			return nil, err
		}
		w = dims.Width
	}
	p, err := i.SrcPath(ctx)
	if err != nil {
		return nil, err
	}
	return map[int]string{w: p}, nil
}

// Srcset returns the srcset attribute value, "url 100w,url 200w", in
// ascending width order. SVG sources return the source URL. Like
// SrcsetSources it returns what was rendered along with any error.
func (i *Image) Srcset(ctx context.Context) (string, error) {
	if err := i.check(); err != nil {
		return "", err
	}
	if i.IsSVG() {
		return i.ImageURL(), nil
	}

	sources, err := i.SrcsetSources(ctx)
	return i.f.FormatSrcset(sources), err
}

// FormatSrcset renders artifact paths by width as a srcset attribute
// value in ascending width order.
func (f *Factory) FormatSrcset(sources map[int]string) string {
	widths := make([]int, 0, len(sources))
	for w := range sources {
		widths = append(widths, w)
	}
	sort.Ints(widths)

	parts := make([]string, 0, len(widths))
	for _, w := range widths {
		parts = append(parts, fmt.Sprintf("%s %dw", f.URL(sources[w]), w))
	}
	return strings.Join(parts, ",")
}
