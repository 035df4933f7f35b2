// Package config loads the settings shared by every image handle created by
// a factory.
//
// Configuration comes from a single file, given either explicitly or through
// the IMAGE_FACTORY_CONFIG environment variable. YAML is the primary format;
// files ending in .json or .jsonc are read as JSON with comments and
// trailing commas allowed. Values not present in the file keep the defaults
// from Default.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvConfig names the environment variable read by Load.
const EnvConfig = "IMAGE_FACTORY_CONFIG"

// ErrConfig wraps every configuration error.
var ErrConfig = errors.New("configuration error")

// Config holds factory settings. Field names follow the keys used in
// configuration files.
type Config struct {
	// SourcePath is the root of the source image tree. Required.
	SourcePath string `yaml:"sourcePath" json:"sourcePath"`

	// CachePath is where derived artifacts are written. Required.
	CachePath string `yaml:"cachePath" json:"cachePath"`

	// PublicPath is stripped from cache paths when building URLs. Required.
	PublicPath string `yaml:"publicPath" json:"publicPath"`

	// Driver selects the raster backend: "gd"/"imaging" or "imagick"/"bild".
	Driver string `yaml:"driver" json:"driver"`

	// Rebase flattens the source directory structure inside CachePath.
	Rebase bool `yaml:"rebase" json:"rebase"`

	// Optimize runs the optimizer chain on every new artifact.
	Optimize bool `yaml:"optimize" json:"optimize"`

	// OptimizationOptions maps optimizer tool names to their arguments.
	OptimizationOptions map[string][]string `yaml:"optimizationOptions" json:"optimizationOptions"`

	// BaseURL is prepended to public URLs when set.
	BaseURL string `yaml:"baseUrl" json:"baseUrl"`

	// MaxMemoryLimit bounds decoded image size, e.g. "512M" or "1.5GB".
	// Empty means unbounded.
	MaxMemoryLimit string `yaml:"maxMemoryLimit" json:"maxMemoryLimit"`

	// MaxExecutionTime bounds a single generation, in seconds. 0 means
	// unbounded.
	MaxExecutionTime int `yaml:"maxExecutionTime" json:"maxExecutionTime"`

	// Scaler is the default width strategy: "range" or "sizes".
	Scaler string `yaml:"scaler" json:"scaler"`

	MinWidth int   `yaml:"minWidth" json:"minWidth"`
	MaxWidth int   `yaml:"maxWidth" json:"maxWidth"`
	Step     int   `yaml:"step" json:"step"`
	Sizes    []int `yaml:"sizes" json:"sizes"`

	// Batch limits how many new srcset artifacts one call generates. 0
	// disables the limit.
	Batch int `yaml:"batch" json:"batch"`

	// FilenameFormat is a template using {name} and {hash}.
	FilenameFormat string `yaml:"filenameFormat" json:"filenameFormat"`

	// BinPath is the directory holding bundled encoder binaries.
	BinPath string `yaml:"binPath" json:"binPath"`
}

// Default returns the configuration used as a base before a file is loaded.
// The required paths are left empty.
func Default() *Config {
	return &Config{
		Driver:           "gd",
		MaxMemoryLimit:   "512M",
		MaxExecutionTime: 60,
		Scaler:           "range",
		MinWidth:         300,
		MaxWidth:         1000,
		Step:             100,
		Batch:            3,
		BinPath:          "bin",
	}
}

// Load loads configuration from the file named by IMAGE_FACTORY_CONFIG.
func Load() (*Config, error) {
	path := os.Getenv(EnvConfig)
	if path == "" {
		return nil, fmt.Errorf("%w: %s environment variable not set; "+
			"set it to the path of your config file, or use --config", ErrConfig, EnvConfig)
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path and validates it.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrConfig, path, err)
	}
	if err := cfg.parse(path, data); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfig, path, err)
	}

	cfg.expandPaths(filepath.Dir(path))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) parse(path string, data []byte) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		return json.Unmarshal(jsonc.ToJSON(data), c)
	default:
		return yaml.Unmarshal(data, c)
	}
}

// expandPaths expands environment variables in the path settings and
// resolves relative paths against the config file's directory.
func (c *Config) expandPaths(base string) {
	for _, p := range []*string{&c.SourcePath, &c.CachePath, &c.PublicPath, &c.BinPath} {
		if *p == "" {
			continue
		}
		*p = os.ExpandEnv(*p)
		if !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

// Validate checks required settings and scaler bounds.
func (c *Config) Validate() error {
	var errs []error
	if c.SourcePath == "" {
		errs = append(errs, errors.New(`a "sourcePath" must be set`))
	}
	if c.CachePath == "" {
		errs = append(errs, errors.New(`a "cachePath" must be set`))
	}
	if c.PublicPath == "" {
		errs = append(errs, errors.New(`a "publicPath" must be set`))
	}
	switch c.Scaler {
	case "range":
		if c.Step <= 0 {
			errs = append(errs, fmt.Errorf("step must be positive, got %d", c.Step))
		}
		if c.MinWidth >= c.MaxWidth {
			errs = append(errs, fmt.Errorf("min width (%d) must be less than max width (%d)", c.MinWidth, c.MaxWidth))
		}
	case "sizes":
		if len(c.Sizes) == 0 {
			errs = append(errs, errors.New(`the "sizes" scaler needs at least one width`))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown scaler %q", c.Scaler))
	}
	if c.Batch < 0 {
		errs = append(errs, fmt.Errorf("batch must not be negative, got %d", c.Batch))
	}
	if c.MaxExecutionTime < 0 {
		errs = append(errs, fmt.Errorf("maxExecutionTime must not be negative, got %d", c.MaxExecutionTime))
	}
	if _, err := ParseMemoryLimit(c.MaxMemoryLimit); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrConfig, errors.Join(errs...))
}
