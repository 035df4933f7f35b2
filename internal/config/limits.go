package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// bytesPerPixel is the decoded size of one pixel in the NRGBA working
// format used by the backends.
const bytesPerPixel = 4

// Limits are the resource ceilings for one artifact generation. A zero
// field is unbounded.
type Limits struct {
	MaxMemory        uint64
	MaxExecutionTime time.Duration
}

// Raise returns the field-wise maximum of l and other. An unbounded field
// stays unbounded, so Raise never tightens a limit.
func (l Limits) Raise(other Limits) Limits {
	out := l
	if l.MaxMemory != 0 && (other.MaxMemory == 0 || other.MaxMemory > l.MaxMemory) {
		out.MaxMemory = other.MaxMemory
	}
	if l.MaxExecutionTime != 0 && (other.MaxExecutionTime == 0 || other.MaxExecutionTime > l.MaxExecutionTime) {
		out.MaxExecutionTime = other.MaxExecutionTime
	}
	return out
}

// MaxPixels is the largest decoded image, in pixels, that fits in
// MaxMemory. 0 means unbounded.
func (l Limits) MaxPixels() uint64 {
	return l.MaxMemory / bytesPerPixel
}

func (l Limits) String() string {
	mem, exec := "unbounded", "unbounded"
	if l.MaxMemory != 0 {
		mem = humanize.IBytes(l.MaxMemory)
	}
	if l.MaxExecutionTime != 0 {
		exec = l.MaxExecutionTime.String()
	}
	return fmt.Sprintf("memory=%s time=%s", mem, exec)
}

// Limits converts the configured ceilings.
func (c *Config) Limits() (Limits, error) {
	mem, err := ParseMemoryLimit(c.MaxMemoryLimit)
	if err != nil {
		return Limits{}, err
	}
	return Limits{
		MaxMemory:        mem,
		MaxExecutionTime: time.Duration(c.MaxExecutionTime) * time.Second,
	}, nil
}

// ParseMemoryLimit parses a size such as "512M", "2G", "1.5 GB" or
// "1073741824". Single-letter suffixes are binary multiples, as in php.ini
// sizes; longer suffixes follow humanize's SI/IEC rules. "" and "-1" mean
// unbounded and return 0.
func ParseMemoryLimit(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-1" {
		return 0, nil
	}
	switch s[len(s)-1] {
	case 'k', 'K', 'm', 'M', 'g', 'G', 't', 'T':
		s += "iB"
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("%w: maxMemoryLimit %q: %w", ErrConfig, s, err)
	}
	return n, nil
}
