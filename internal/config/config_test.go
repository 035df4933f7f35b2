package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadFile_YAML(t *testing.T) {
	path := writeConfig(t, "factory.yaml", `
sourcePath: /srv/images
cachePath: /srv/public/cache
publicPath: /srv/public
driver: imagick
rebase: true
optimize: true
optimizationOptions:
  jpegoptim: ["--strip-all", "-m85"]
baseUrl: https://img.example.com
scaler: sizes
sizes: [320, 640, 1280]
batch: 2
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.SourcePath != "/srv/images" || cfg.CachePath != "/srv/public/cache" {
		t.Errorf("paths: got %q, %q", cfg.SourcePath, cfg.CachePath)
	}
	if cfg.Driver != "imagick" || !cfg.Rebase || !cfg.Optimize {
		t.Errorf("driver/rebase/optimize: got %q %v %v", cfg.Driver, cfg.Rebase, cfg.Optimize)
	}
	if !reflect.DeepEqual(cfg.OptimizationOptions["jpegoptim"], []string{"--strip-all", "-m85"}) {
		t.Errorf("optimizationOptions: got %v", cfg.OptimizationOptions)
	}
	if !reflect.DeepEqual(cfg.Sizes, []int{320, 640, 1280}) || cfg.Batch != 2 {
		t.Errorf("sizes/batch: got %v %d", cfg.Sizes, cfg.Batch)
	}
	// untouched defaults survive
	if cfg.MinWidth != 300 || cfg.MaxWidth != 1000 || cfg.Step != 100 {
		t.Errorf("range defaults: got %d/%d/%d", cfg.MinWidth, cfg.MaxWidth, cfg.Step)
	}
}

func TestLoadFile_JSONC(t *testing.T) {
	path := writeConfig(t, "factory.jsonc", `{
	// relative paths resolve against the config file
	"sourcePath": "images",
	"cachePath": "public/cache",
	"publicPath": "public",
	"maxMemoryLimit": "1G", /* binary */
	"maxExecutionTime": 30,
}`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	dir := filepath.Dir(path)
	if cfg.SourcePath != filepath.Join(dir, "images") {
		t.Errorf("sourcePath: got %q", cfg.SourcePath)
	}

	limits, err := cfg.Limits()
	if err != nil {
		t.Fatalf("Limits failed: %v", err)
	}
	if limits.MaxMemory != 1<<30 || limits.MaxExecutionTime != 30*time.Second {
		t.Errorf("limits: got %+v", limits)
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"missing paths", "a.yaml", "driver: gd\n"},
		{"min above max", "b.yaml", "sourcePath: /a\ncachePath: /b\npublicPath: /c\nminWidth: 900\nmaxWidth: 400\n"},
		{"zero step", "c.yaml", "sourcePath: /a\ncachePath: /b\npublicPath: /c\nstep: 0\n"},
		{"unknown scaler", "d.yaml", "sourcePath: /a\ncachePath: /b\npublicPath: /c\nscaler: golden\n"},
		{"bad memory", "e.yaml", "sourcePath: /a\ncachePath: /b\npublicPath: /c\nmaxMemoryLimit: lots\n"},
		{"broken yaml", "f.yaml", "sourcePath: [\n"},
		{"broken json", "g.json", "{\"sourcePath\": }"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tt.file, tt.content))
			if !errors.Is(err, ErrConfig) {
				t.Errorf("got %v, want ErrConfig", err)
			}
		})
	}
}

func TestLoad_RequiresEnv(t *testing.T) {
	t.Setenv(EnvConfig, "")
	if _, err := Load(); !errors.Is(err, ErrConfig) {
		t.Errorf("got %v, want ErrConfig", err)
	}

	path := writeConfig(t, "factory.yaml", "sourcePath: /a\ncachePath: /b\npublicPath: /c\n")
	t.Setenv(EnvConfig, path)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Driver != "gd" {
		t.Errorf("driver default: got %q", cfg.Driver)
	}
}

func TestParseMemoryLimit(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
	}{
		{"", 0},
		{"-1", 0},
		{"512M", 512 << 20},
		{"128k", 128 << 10},
		{"2G", 2 << 30},
		{"1048576", 1 << 20},
		{"1.5 GB", 1_500_000_000},
		{"256 MiB", 256 << 20},
	}
	for _, tt := range tests {
		got, err := ParseMemoryLimit(tt.in)
		if err != nil {
			t.Errorf("%q: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%q: got %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestLimits_Raise(t *testing.T) {
	tests := []struct {
		name       string
		cur, other Limits
		want       Limits
	}{
		{
			"raises lower fields",
			Limits{MaxMemory: 100, MaxExecutionTime: time.Second},
			Limits{MaxMemory: 200, MaxExecutionTime: 2 * time.Second},
			Limits{MaxMemory: 200, MaxExecutionTime: 2 * time.Second},
		},
		{
			"never lowers",
			Limits{MaxMemory: 300, MaxExecutionTime: 5 * time.Second},
			Limits{MaxMemory: 200, MaxExecutionTime: time.Second},
			Limits{MaxMemory: 300, MaxExecutionTime: 5 * time.Second},
		},
		{
			"unbounded stays unbounded",
			Limits{},
			Limits{MaxMemory: 200, MaxExecutionTime: time.Second},
			Limits{},
		},
		{
			"raise to unbounded",
			Limits{MaxMemory: 100, MaxExecutionTime: time.Second},
			Limits{},
			Limits{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cur.Raise(tt.other); got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
