package factory

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ironsheep/image-factory/internal/avif"
	"github.com/ironsheep/image-factory/internal/cachefs"
	"github.com/ironsheep/image-factory/internal/cachekey"
	"github.com/ironsheep/image-factory/internal/config"
	"github.com/ironsheep/image-factory/internal/imaging"
	"github.com/ironsheep/image-factory/internal/manipulation"
)

// Generate renders img to path unless path already exists, and returns
// the path of the artifact.
//
// The configured execution time bounds the whole call, external encoders
// and optimizers included. The memory limit is checked against the decoded
// size of the source before it is decoded. Concurrent calls for the same
// path render it once.
func (f *Factory) Generate(ctx context.Context, img *Image, path string) (string, error) {
	if err := img.check(); err != nil {
		return "", err
	}
	if cachefs.Exists(path) {
		return path, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	limits := f.limits
	if limits.MaxExecutionTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limits.MaxExecutionTime)
		defer cancel()
	}

	if err := cachefs.EnsureDir(filepath.Dir(path)); err != nil {
		return "", err
	}
	unlock, err := cachefs.Lock(ctx, path)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := unlock(); err != nil {
			f.logger.Warn("failed to release artifact lock", "path", path, "error", err)
		}
	}()

	// another process may have finished it while we waited
	if cachefs.Exists(path) {
		return path, nil
	}

	start := time.Now()
	out, err := f.write(ctx, img, path, limits)
	if err != nil {
		f.logger.Error("failed to generate artifact", "source", img.path, "path", path, "error", err)
		return "", err
	}

	attrs := []any{"source", img.relPath, "path", out, "elapsed", time.Since(start)}
	if info, err := os.Stat(out); err == nil {
		attrs = append(attrs, "size", humanize.IBytes(uint64(info.Size())))
	}
	f.logger.Debug("generated artifact", attrs...)
	return out, nil
}

func (f *Factory) write(ctx context.Context, img *Image, path string, limits config.Limits) (string, error) {
	format := cachekey.Extension(img.set, img.relPath)
	enabled, options := img.optimization()

	if avif.Required(format, f.backend.Supports) {
		set := img.set.Clone()
		set.Remove(manipulation.NameFormat)
		set.Remove(manipulation.NameOptimize)
		return f.avif.Encode(ctx, path, img.Extension(), func(intermediate, ext string) error {
			return cachefs.WriteFile(intermediate, func(w io.Writer) error {
				return f.render(ctx, img.path, set, w, ext, limits)
			})
		})
	}

	// The optimizer runs on the unpublished file, so a failure leaves no
	// artifact behind for the next call to mistake for a cache hit.
	err := cachefs.Publish(path, func(tmp string) error {
		err := cachefs.Overwrite(tmp, func(w io.Writer) error {
			return f.render(ctx, img.path, img.set, w, format, limits)
		})
		if err != nil {
			return err
		}
		if enabled {
			if err := f.optimizer.Optimize(ctx, tmp, options); err != nil {
				return fmt.Errorf("failed to optimize %s: %w", path, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

// render decodes src, applies set and encodes the result to w in format.
func (f *Factory) render(ctx context.Context, src string, set *manipulation.Set, w io.Writer, format string, limits config.Limits) error {
	source, err := f.images.Load(src, limits.MaxPixels())
	if err != nil {
		return err
	}
	result, err := f.pipeline.Run(ctx, source, set)
	if err != nil {
		return err
	}

	quality := imaging.DefaultQuality
	if q, ok := set.IntArgument(manipulation.NameQuality); ok {
		quality = q
	}
	return f.backend.Encode(w, result, format, quality)
}
