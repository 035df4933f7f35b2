package avif

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Encoder turns the image file at input into an AVIF file at output.
type Encoder interface {
	Encode(ctx context.Context, input, output string) error
}

// Encoder settings.
const (
	DefaultQuality = 56
	DefaultSpeed   = 5
)

// CommandEncoder runs the cavif binary found by Locator.
type CommandEncoder struct {
	Locator Locator
	Quality int
	Speed   int
}

// NewCommandEncoder returns an encoder using the binaries under binDir
// with the default quality and speed.
func NewCommandEncoder(binDir string) *CommandEncoder {
	return &CommandEncoder{
		Locator: NewLocator(binDir),
		Quality: DefaultQuality,
		Speed:   DefaultSpeed,
	}
}

// Args returns the command-line arguments for one encode.
func (e *CommandEncoder) Args(input, output string) []string {
	return []string{
		"--overwrite",
		"--quality=" + strconv.Itoa(e.Quality),
		"--speed=" + strconv.Itoa(e.Speed),
		"--output=" + output,
		input,
	}
}

// Encode runs the encoder. The process is killed when ctx is done. The
// encoder's stderr is included in the returned error.
func (e *CommandEncoder) Encode(ctx context.Context, input, output string) error {
	bin, err := e.Locator.Path()
	if err != nil {
		return err
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, e.Args(input, output)...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s %s: %w", BinaryName, input, ctxErr)
		}
		return fmt.Errorf("%s %s: %w (stderr: %s)", BinaryName, input, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
