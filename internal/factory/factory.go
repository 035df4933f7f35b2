package factory

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/ironsheep/image-factory/internal/avif"
	"github.com/ironsheep/image-factory/internal/cachekey"
	"github.com/ironsheep/image-factory/internal/config"
	"github.com/ironsheep/image-factory/internal/imaging"
	"github.com/ironsheep/image-factory/internal/manipulation"
	"github.com/ironsheep/image-factory/internal/optimize"
	"github.com/ironsheep/image-factory/internal/scaler"
)

// sourceCacheSize bounds the number of decoded sources kept between
// renders.
const sourceCacheSize = 4

var (
	// ErrInvariant is returned when a handle combines requests that cannot
	// be served together, such as a data URI for a srcset.
	ErrInvariant = errors.New("image request invariant violated")

	// ErrEmptyPath is returned by Create for an empty source path.
	ErrEmptyPath = errors.New("empty image path")
)

// Factory creates image handles that share one configuration.
type Factory struct {
	cfg    config.Config
	limits config.Limits

	backend   imaging.Backend
	pipeline  *imaging.Pipeline
	images    *imaging.ImageCache
	optimizer optimize.Optimizer
	encoder   avif.Encoder
	avif      *avif.Fallback
	filename  cachekey.FilenameFormat
	scaler    scaler.Scaler
	logger    *slog.Logger
}

// Option configures a Factory.
type Option func(*Factory)

// WithLogger sets the logger. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Factory) { f.logger = logger }
}

// WithBackend overrides the backend selected by the configured driver.
func WithBackend(b imaging.Backend) Option {
	return func(f *Factory) { f.backend = b }
}

// WithOptimizer replaces the default optimizer chain.
func WithOptimizer(o optimize.Optimizer) Option {
	return func(f *Factory) { f.optimizer = o }
}

// WithAvifEncoder replaces the bundled cavif encoder.
func WithAvifEncoder(e avif.Encoder) Option {
	return func(f *Factory) { f.encoder = e }
}

// WithFilenameFormat overrides the configured artifact file name format.
func WithFilenameFormat(format cachekey.FilenameFormat) Option {
	return func(f *Factory) { f.filename = format }
}

// WithLimits raises the configured resource ceilings. It never lowers them.
func WithLimits(l config.Limits) Option {
	return func(f *Factory) { f.limits = f.limits.Raise(l) }
}

// New validates cfg and returns a factory for it.
func New(cfg *config.Config, opts ...Option) (*Factory, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	limits, err := cfg.Limits()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrConfig, err)
	}
	sc, err := scaler.New(cfg.Scaler, scaler.RangeOptions{Min: cfg.MinWidth, Max: cfg.MaxWidth, Step: cfg.Step}, cfg.Sizes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrConfig, err)
	}

	f := &Factory{
		cfg:    *cfg,
		limits: limits,
		scaler: sc,
	}
	if cfg.FilenameFormat != "" {
		f.filename = cachekey.Template(cfg.FilenameFormat)
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.logger == nil {
		f.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if f.backend == nil {
		b, err := imaging.NewBackend(cfg.Driver)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", config.ErrConfig, err)
		}
		f.backend = b
	}
	if f.optimizer == nil {
		f.optimizer = optimize.NewChain(f.logger)
	}
	if f.encoder == nil {
		f.encoder = avif.NewCommandEncoder(cfg.BinPath)
	}
	f.pipeline = imaging.NewPipeline(f.backend, f.limits.MaxPixels())
	f.images = imaging.NewImageCache(f.backend, sourceCacheSize)
	f.avif = avif.NewFallback(f.encoder, f.logger)

	f.logger.Debug("factory ready",
		"driver", f.backend.Name(),
		"cache", f.cfg.CachePath,
		"scaler", f.scaler.Name(),
		"limits", f.limits.String())
	return f, nil
}

// Config returns a copy of the configuration the factory was built with.
func (f *Factory) Config() config.Config {
	return f.cfg
}

// Limits returns the resource ceilings applied to each generation.
func (f *Factory) Limits() config.Limits {
	return f.limits
}

// Backend returns the raster backend.
func (f *Factory) Backend() imaging.Backend {
	return f.backend
}

// CanWrite reports whether artifacts can be produced in format, either by
// the backend or through the AVIF encoder.
func (f *Factory) CanWrite(format string) bool {
	return f.backend.Supports(format) || format == manipulation.FormatAVIF
}

// Create returns a handle for the image at p. Relative paths are resolved
// against the source root. The file is not opened until the handle is
// rendered.
func (f *Factory) Create(p string) (*Image, error) {
	if strings.TrimSpace(p) == "" {
		return nil, ErrEmptyPath
	}
	abs, rel := f.resolve(p)
	return &Image{
		f:               f,
		path:            abs,
		relPath:         rel,
		set:             manipulation.NewSet(),
		scaler:          f.scaler,
		batch:           f.cfg.Batch,
		optimize:        f.cfg.Optimize,
		optimizeOptions: f.cfg.OptimizationOptions,
	}, nil
}

// Load decodes the source image at p through the shared decode cache,
// subject to the memory limit.
func (f *Factory) Load(p string) (image.Image, error) {
	abs, _ := f.resolve(p)
	return f.images.Load(abs, f.limits.MaxPixels())
}

// resolve returns the absolute source path and the slash-separated path
// used for hashing and cache layout. Images outside the source root are
// keyed by their base name.
func (f *Factory) resolve(p string) (abs, rel string) {
	root := filepath.Clean(f.cfg.SourcePath)
	if filepath.IsAbs(p) {
		abs = filepath.Clean(p)
	} else {
		abs = filepath.Join(root, p)
	}

	r, err := filepath.Rel(root, abs)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return abs, filepath.Base(abs)
	}
	return abs, filepath.ToSlash(r)
}

// URL maps a file path to its public URL: the public path prefix is
// stripped and the base URL, if any, is prepended.
func (f *Factory) URL(p string) string {
	p = filepath.ToSlash(p)
	public := strings.TrimSuffix(filepath.ToSlash(filepath.Clean(f.cfg.PublicPath)), "/")
	if public != "" && strings.HasPrefix(p, public+"/") {
		p = strings.TrimPrefix(p, public)
	}
	if f.cfg.BaseURL == "" {
		return p
	}
	return strings.TrimSuffix(f.cfg.BaseURL, "/") + "/" + strings.TrimPrefix(p, "/")
}

// cacheDir returns the directory artifacts of relPath are written to.
func (f *Factory) cacheDir(relPath string) string {
	if f.cfg.Rebase {
		return f.cfg.CachePath
	}
	dir := path.Dir(relPath)
	if dir == "." {
		return f.cfg.CachePath
	}
	return filepath.Join(f.cfg.CachePath, filepath.FromSlash(dir))
}
