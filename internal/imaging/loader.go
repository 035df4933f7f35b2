package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"sync"
	"time"

	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// ImageCache provides thread-safe caching of decoded source images.
//
// Rendering a srcset decodes the same source once per width; the cache keeps
// the decoded image so only the first width pays for it. Entries are keyed
// by path and invalidated when the file's size or modification time
// changes.
//
// The cache holds at most capacity images; loading another one drops the
// least recently used. Callers that are done with a source remove it with
// Evict.
type ImageCache struct {
	mu       sync.Mutex
	backend  Backend
	capacity int
	clock    uint64
	images   map[string]cachedImage
}

type cachedImage struct {
	img     image.Image
	format  string
	size    int64
	modTime time.Time
	used    uint64
}

// NewImageCache creates a cache that decodes with backend and keeps up to
// capacity images. A nil backend uses the default imaging backend; a
// capacity of 0 or less means unbounded.
func NewImageCache(backend Backend, capacity int) *ImageCache {
	if backend == nil {
		backend = NewImagingBackend()
	}
	return &ImageCache{
		backend:  backend,
		capacity: capacity,
		images:   make(map[string]cachedImage),
	}
}

// Load retrieves an image from the cache or decodes it from disk.
//
// maxPixels bounds the decoded size; 0 means unbounded. The header is
// checked before the full decode, so an oversized image fails with
// ErrMemoryLimit without allocating its pixel buffer.
func (c *ImageCache) Load(path string, maxPixels uint64) (image.Image, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	c.mu.Lock()
	entry, ok := c.images[path]
	fresh := ok && entry.size == stat.Size() && entry.modTime.Equal(stat.ModTime())
	if fresh {
		c.clock++
		entry.used = c.clock
		c.images[path] = entry
	}
	c.mu.Unlock()
	if fresh {
		if err := checkPixels(entry.img.Bounds().Dx(), entry.img.Bounds().Dy(), maxPixels); err != nil {
			return nil, err
		}
		return entry.img, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image header: %w", err)
	}
	if err := checkPixels(cfg.Width, cfg.Height, maxPixels); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	img, err := c.backend.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if _, ok := c.images[path]; !ok && c.capacity > 0 && len(c.images) >= c.capacity {
		c.evictOldest()
	}
	c.clock++
	c.images[path] = cachedImage{img: img, format: format, size: stat.Size(), modTime: stat.ModTime(), used: c.clock}
	c.mu.Unlock()

	return img, nil
}

func checkPixels(w, h int, maxPixels uint64) error {
	if maxPixels == 0 {
		return nil
	}
	if px := uint64(w) * uint64(h); px > maxPixels {
		return fmt.Errorf("%w: %dx%d needs %d pixels, budget is %d", ErrMemoryLimit, w, h, px, maxPixels)
	}
	return nil
}

// evictOldest drops the least recently used image. c.mu must be held.
func (c *ImageCache) evictOldest() {
	var oldest string
	var used uint64
	for p, e := range c.images {
		if oldest == "" || e.used < used {
			oldest, used = p, e.used
		}
	}
	delete(c.images, oldest)
}

// Evict removes a specific image from the cache by its path.
//
// If the path is not in the cache, this method does nothing.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.images)
}

// ImageInfo contains metadata about an image file.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the format reported by the decoder: "png", "jpeg", "gif",
	// "bmp", "tiff" or "webp".
	Format string `json:"format"`

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	ColorDepth string `json:"color_depth"`

	// HasAlpha indicates whether the color model carries transparency.
	HasAlpha bool `json:"has_alpha"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo reads image metadata from the file header without decoding
// the pixel data.
//
// # Color Depth Detection
//
// Color depth and alpha are determined by the decoder's color model:
//   - RGBA64, NRGBA64, Gray16 -> "16-bit"
//   - RGBA, NRGBA, RGBA64, NRGBA64 -> has alpha
//   - paletted models -> has alpha if any entry is not fully opaque
func LoadImageInfo(path string) (*ImageInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image header: %w", err)
	}

	hasAlpha := false
	colorDepth := "8-bit"
	switch m := cfg.ColorModel; m {
	case color.RGBAModel, color.NRGBAModel:
		hasAlpha = true
	case color.RGBA64Model, color.NRGBA64Model:
		hasAlpha = true
		colorDepth = "16-bit"
	case color.Gray16Model:
		colorDepth = "16-bit"
	default:
		if p, ok := m.(color.Palette); ok {
			hasAlpha = paletteHasAlpha(p)
		}
	}

	return &ImageInfo{
		Width:         cfg.Width,
		Height:        cfg.Height,
		Format:        format,
		ColorDepth:    colorDepth,
		HasAlpha:      hasAlpha,
		FileSizeBytes: stat.Size(),
	}, nil
}

// DimensionsResult contains the width and height of an image.
type DimensionsResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// GetDimensions returns the dimensions of an image from its header.
func GetDimensions(path string) (*DimensionsResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image header: %w", err)
	}
	return &DimensionsResult{Width: cfg.Width, Height: cfg.Height}, nil
}

func paletteHasAlpha(p color.Palette) bool {
	for _, c := range p {
		if _, _, _, a := c.RGBA(); a != 0xffff {
			return true
		}
	}
	return false
}
