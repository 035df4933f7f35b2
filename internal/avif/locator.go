package avif

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// ErrNoBinary is returned when no encoder binary is bundled for the
// current platform.
var ErrNoBinary = errors.New("no binary available for your system")

// BinaryName is the encoder executable name, without the Windows suffix.
const BinaryName = "cavif"

// Locator finds the encoder binary for a platform.
type Locator struct {
	BinDir string
	GOOS   string
	GOARCH string
}

// NewLocator returns a locator for the running platform.
func NewLocator(binDir string) Locator {
	return Locator{BinDir: binDir, GOOS: runtime.GOOS, GOARCH: runtime.GOARCH}
}

// family maps GOOS to the directory name binaries are bundled under.
func (l Locator) family() string {
	switch l.GOOS {
	case "linux":
		return "linux"
	case "darwin":
		return "macos"
	case "windows":
		return "windows"
	}
	return ""
}

// Candidates returns the paths searched, most specific first.
func (l Locator) Candidates() []string {
	family := l.family()
	if family == "" {
		return nil
	}
	name := BinaryName
	if l.GOOS == "windows" {
		name += ".exe"
	}
	return []string{
		filepath.Join(l.BinDir, family, l.GOARCH, name),
		filepath.Join(l.BinDir, family, name),
	}
}

// Path returns the first candidate that is a regular file.
func (l Locator) Path() (string, error) {
	for _, p := range l.Candidates() {
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s %s", ErrNoBinary, l.GOOS, l.GOARCH)
}

// IntermediateExtension returns the format the manipulated image is saved
// in before encoding. The encoder reads JPEG and PNG only; every other
// source goes through PNG.
func IntermediateExtension(sourceExt string) string {
	if sourceExt == "jpg" {
		return "jpg"
	}
	return "png"
}

// Required reports whether format has to go through the external encoder
// for a backend whose Supports is supports.
func Required(format string, supports func(string) bool) bool {
	return format == "avif" && !supports("avif")
}
