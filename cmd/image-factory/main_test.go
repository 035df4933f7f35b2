package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/image-factory/internal/factory"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"WARN", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"loud", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"--version"}, strings.NewReader(""), &out); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.HasPrefix(out.String(), "image-factory "+Version) {
		t.Errorf("version output: got %q", out.String())
	}
}

// writeConfig lays out public/img and public/cache under a temp dir and
// returns the config file path and the source dir.
func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	public := t.TempDir()
	source := filepath.Join(public, "img")
	if err := os.MkdirAll(source, 0o755); err != nil {
		t.Fatalf("failed to create source dir: %v", err)
	}
	data := "sourcePath: " + source + "\n" +
		"cachePath: " + filepath.Join(public, "cache") + "\n" +
		"publicPath: " + public + "\n" +
		"batch: 0\n"
	path := filepath.Join(public, "config.yaml")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 6), uint8(y * 12), 128, 255})
		}
	}
	f, err := os.Create(filepath.Join(source, "photo.png"))
	if err != nil {
		t.Fatalf("failed to create source: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode source: %v", err)
	}
	return path, source
}

func TestRun_Render(t *testing.T) {
	cfgPath, _ := writeConfig(t)

	var out bytes.Buffer
	args := []string{"--config", cfgPath, "--log-level", "error", "render", "--width", "20", "--dither", "photo.png"}
	if err := run(context.Background(), args, strings.NewReader(""), &out); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	var got renderResult
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("bad output %q: %v", out.String(), err)
	}
	if !strings.HasPrefix(got.URL, "/cache/photo-20x0-") {
		t.Errorf("url: got %s", got.URL)
	}
	if _, err := os.Stat(got.Path); err != nil {
		t.Errorf("artifact not written: %v", err)
	}
}

func TestRun_RenderSrcset(t *testing.T) {
	cfgPath, _ := writeConfig(t)

	var out bytes.Buffer
	args := []string{"-c", cfgPath, "--log-level", "error", "render", "--srcset", "10,20", "photo.png"}
	if err := run(context.Background(), args, strings.NewReader(""), &out); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	var got renderResult
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("bad output %q: %v", out.String(), err)
	}
	parts := strings.Split(got.Srcset, ",")
	if len(parts) != 2 || !strings.HasSuffix(parts[0], " 10w") || !strings.HasSuffix(parts[1], " 20w") {
		t.Errorf("srcset: got %q", got.Srcset)
	}
}

func TestRun_Errors(t *testing.T) {
	cfgPath, _ := writeConfig(t)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown command", []string{"-c", cfgPath, "resize"}},
		{"render without path", []string{"-c", cfgPath, "render", "--width", "10"}},
		{"invalid width", []string{"-c", cfgPath, "render", "--width", "70000", "photo.png"}},
		{"bad log level", []string{"-c", cfgPath, "--log-level", "loud"}},
		{"missing config", []string{"-c", filepath.Join(t.TempDir(), "none.yaml")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := run(context.Background(), tt.args, strings.NewReader(""), &out); err == nil {
				t.Errorf("expected an error, output %q", out.String())
			}
		})
	}
}

func TestRun_RenderSrcsetDataURI(t *testing.T) {
	cfgPath, _ := writeConfig(t)

	var out bytes.Buffer
	args := []string{"-c", cfgPath, "--log-level", "error", "render", "--srcset", "10,20", "--data-uri", "photo.png"}
	err := run(context.Background(), args, strings.NewReader(""), &out)
	if !errors.Is(err, factory.ErrInvariant) {
		t.Fatalf("got %v, want ErrInvariant", err)
	}
	if out.Len() != 0 {
		t.Errorf("unexpected output %q", out.String())
	}
}
