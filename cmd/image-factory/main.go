package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/ironsheep/image-factory/internal/config"
	"github.com/ironsheep/image-factory/internal/factory"
	"github.com/ironsheep/image-factory/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// envLogLevel overrides the default log level when --log-level is not given.
const envLogLevel = "IMAGE_FACTORY_LOG_LEVEL"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout)
	stop()
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	var configPath, logLevel string
	var showVersion, showHelp bool

	flagSet := pflag.NewFlagSet("image-factory", pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	flagSet.StringVarP(&configPath, "config", "c", "", "config file (default: $"+config.EnvConfig+")")
	flagSet.StringVar(&logLevel, "log-level", "", "debug, info, warn or error (default: $"+envLogLevel+" or info)")
	flagSet.BoolVarP(&showVersion, "version", "v", false, "print version information")
	flagSet.BoolVarP(&showHelp, "help", "h", false, "print this help message")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if showHelp {
		printHelp(flagSet)
		return nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "image-factory %s\n", Version)
		fmt.Fprintf(stdout, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(stdout, "  Git commit: %s\n", GitCommit)
		return nil
	}

	if logLevel == "" {
		logLevel = os.Getenv(envLogLevel)
	}
	logger, err := newLogger(os.Stderr, logLevel)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	f, err := factory.New(cfg, factory.WithLogger(logger))
	if err != nil {
		return err
	}

	rest := flagSet.Args()
	if len(rest) == 0 || rest[0] == "serve" {
		logger.Debug("starting MCP server",
			"version", Version,
			"build_time", BuildTime,
			"commit", GitCommit,
		)
		return server.New(f, logger).Run(ctx, stdin, stdout)
	}
	if rest[0] == "render" {
		return runRender(ctx, f, rest[1:], stdout)
	}
	return fmt.Errorf("unknown command: %s", rest[0])
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// newLogger writes text records to a terminal and JSON records otherwise.
// stdout carries the protocol, so logs always go to w.
func newLogger(w *os.File, level string) (*slog.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	options := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if term.IsTerminal(int(w.Fd())) {
		handler = slog.NewTextHandler(w, options)
	} else {
		handler = slog.NewJSONHandler(w, options)
	}
	return slog.New(handler), nil
}

func parseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return lvl, nil
}

type renderResult struct {
	Path   string         `json:"path,omitempty"`
	URL    string         `json:"url,omitempty"`
	Srcset string         `json:"srcset,omitempty"`
	Errors map[int]string `json:"errors,omitempty"`
}

// runRender renders one source from the command line and prints the
// result as JSON.
func runRender(ctx context.Context, f *factory.Factory, args []string, stdout io.Writer) error {
	var width, height, quality, batch int
	var srcset []int
	var format string
	var dither, greyscale, dataURI bool

	flagSet := pflag.NewFlagSet("render", pflag.ContinueOnError)
	flagSet.IntVar(&width, "width", 0, "target width")
	flagSet.IntVar(&height, "height", 0, "target height")
	flagSet.IntVar(&quality, "quality", 0, "encoder quality, 0-100")
	flagSet.IntSliceVar(&srcset, "srcset", nil, "render a srcset for these widths")
	flagSet.IntVar(&batch, "batch", -1, "srcset batch size (default from config)")
	flagSet.StringVar(&format, "format", "", "output format")
	flagSet.BoolVar(&dither, "dither", false, "apply Atkinson dithering")
	flagSet.BoolVar(&greyscale, "greyscale", false, "convert to greyscale")
	flagSet.BoolVar(&dataURI, "data-uri", false, "print a data URI instead of a URL")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return errors.New("render: expected exactly one source path")
	}

	img, err := f.Create(flagSet.Arg(0))
	if err != nil {
		return err
	}
	if width > 0 {
		img.Width(width)
	}
	if height > 0 {
		img.Height(height)
	}
	if quality > 0 {
		img.Quality(quality)
	}
	if greyscale {
		img.Greyscale()
	}
	if dither {
		img.Dither()
	}
	if format != "" {
		img.Format(format)
	}
	img.DataURI(dataURI)
	if len(srcset) > 0 {
		img.Widths(srcset...)
		if batch >= 0 {
			img.Batch(batch)
		}
	}
	if err := img.Err(); err != nil {
		return err
	}

	var result renderResult
	if img.IsSrcset() {
		sources, genErr := img.SrcsetSources(ctx)
		result.Srcset = f.FormatSrcset(sources)
		if genErr != nil {
			result.Errors = make(map[int]string)
			for _, e := range unwrapJoined(genErr) {
				var we *factory.WidthError
				if !errors.As(e, &we) {
					return genErr
				}
				result.Errors[we.Width] = we.Err.Error()
			}
		}
	} else {
		if result.Path, err = img.SrcPath(ctx); err != nil {
			return err
		}
		if result.URL, err = img.Src(ctx); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func unwrapJoined(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `image-factory - on-demand image derivatives with a content-addressed cache

Usage:
  image-factory [flags] [serve]
  image-factory [flags] render [render flags] <path>

serve (the default) speaks MCP over stdin/stdout. render produces one
artifact, or a srcset with --srcset, and prints the result as JSON.

Render flags:
  --width, --height, --quality, --format, --greyscale, --dither
  --srcset 320,640,960   --batch N   --data-uri

Environment variables:
  %s    config file used when --config is not given
  %s    log level (debug, info, warn, error)

Flags:
`, config.EnvConfig, envLogLevel)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
