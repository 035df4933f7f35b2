// Package optimize runs lossless compression tools over finished
// artifacts.
//
// A Chain knows which command-line tools apply to which extensions and runs
// each one that is installed. Tools that are not on PATH are skipped, so an
// artifact is never worse for a missing optimizer.
package optimize

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
)

// Options maps a tool name to the arguments it is run with. The artifact
// path is appended as the last argument. A tool listed with no arguments
// keeps its defaults.
type Options map[string][]string

// Optimizer post-processes the artifact at path in place.
type Optimizer interface {
	Optimize(ctx context.Context, path string, options Options) error
}

// Nop leaves artifacts untouched.
type Nop struct{}

func (Nop) Optimize(context.Context, string, Options) error { return nil }

// Tool is one optimizer command.
type Tool struct {
	Name       string
	Extensions []string
	Args       []string
}

func (t Tool) handles(ext string) bool {
	for _, e := range t.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// DefaultTools are the tools a Chain knows about, with their default
// arguments.
var DefaultTools = []Tool{
	{Name: "jpegoptim", Extensions: []string{"jpg", "jpeg", "pjpg"}, Args: []string{"-m85", "--force", "--strip-all", "--all-progressive"}},
	{Name: "pngquant", Extensions: []string{"png"}, Args: []string{"--force", "--skip-if-larger", "--output"}},
	{Name: "optipng", Extensions: []string{"png"}, Args: []string{"-i0", "-o2", "-quiet"}},
	{Name: "gifsicle", Extensions: []string{"gif"}, Args: []string{"-b", "-O3"}},
	{Name: "cwebp", Extensions: []string{"webp"}, Args: []string{"-m", "6", "-pass", "10", "-mt", "-q", "80", "-o"}},
}

// Chain runs the tools that apply to an artifact, in order.
type Chain struct {
	tools    []Tool
	lookPath func(string) (string, error)
	logger   *slog.Logger
}

// NewChain returns a chain over DefaultTools. A nil logger discards.
func NewChain(logger *slog.Logger) *Chain {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Chain{tools: DefaultTools, lookPath: exec.LookPath, logger: logger}
}

// Tools returns the tools that would run for path, with options applied,
// whether or not they are installed.
func (c *Chain) Tools(path string, options Options) []Tool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	var out []Tool
	for _, t := range c.tools {
		if !t.handles(ext) {
			continue
		}
		if len(options) > 0 {
			args, ok := options[t.Name]
			if !ok {
				continue
			}
			if len(args) > 0 {
				t.Args = args
			}
		}
		out = append(out, t)
	}
	return out
}

// Optimize runs every applicable tool over path. When options is non-empty
// only the tools it names run.
func (c *Chain) Optimize(ctx context.Context, path string, options Options) error {
	for _, t := range c.Tools(path, options) {
		bin, err := c.lookPath(t.Name)
		if err != nil {
			c.logger.Debug("optimizer not installed, skipping", "tool", t.Name)
			continue
		}
		if err := run(ctx, bin, append(commandArgs(t, path), path)...); err != nil {
			return fmt.Errorf("%s %s: %w", t.Name, path, err)
		}
		c.logger.Debug("optimized", "tool", t.Name, "path", path)
	}
	return nil
}

// commandArgs returns the tool arguments before the input path. pngquant
// and cwebp take an explicit output flag, pointed back at the input.
func commandArgs(t Tool, path string) []string {
	args := append([]string(nil), t.Args...)
	if n := len(args); n > 0 && (args[n-1] == "--output" || args[n-1] == "-o") {
		args = append(args, path)
	}
	return args
}

func run(ctx context.Context, bin string, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
