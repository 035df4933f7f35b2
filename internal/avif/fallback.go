package avif

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ironsheep/image-factory/internal/cachefs"
)

// Fallback produces AVIF artifacts through an Encoder.
type Fallback struct {
	encoder Encoder
	logger  *slog.Logger
}

// NewFallback returns a fallback using encoder. A nil logger discards.
func NewFallback(encoder Encoder, logger *slog.Logger) *Fallback {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Fallback{encoder: encoder, logger: logger}
}

// Encode writes the AVIF artifact at path.
//
// save is called with the intermediate path, {path}.{ext}, and must write
// the manipulated image there in the format named by ext. The caller is
// expected to have stripped the format and optimize manipulations from the
// set that save renders. The encoder writes to a temporary file that only
// replaces path once it succeeds, so a killed encoder never leaves a
// partial artifact. The intermediate is removed on success and kept when
// the encoder fails.
func (f *Fallback) Encode(ctx context.Context, path, sourceExt string, save func(intermediate, ext string) error) (string, error) {
	ext := IntermediateExtension(sourceExt)
	intermediate := path + "." + ext

	if err := save(intermediate, ext); err != nil {
		return "", fmt.Errorf("failed to save intermediate %s: %w", intermediate, err)
	}

	f.logger.Debug("encoding avif", "input", intermediate, "output", path)
	err := cachefs.Publish(path, func(tmp string) error {
		return f.encoder.Encode(ctx, intermediate, tmp)
	})
	if err != nil {
		f.logger.Warn("avif encoder failed, keeping intermediate", "intermediate", intermediate, "error", err)
		return "", fmt.Errorf("failed to encode avif: %w", err)
	}

	if err := os.Remove(intermediate); err != nil && !os.IsNotExist(err) {
		f.logger.Warn("failed to remove intermediate", "path", intermediate, "error", err)
	}
	return path, nil
}
