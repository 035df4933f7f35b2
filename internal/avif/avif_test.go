package avif

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"
)

// touch creates an empty file, creating parent directories.
func touch(t *testing.T, path string, mode os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, nil, mode); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
}

func TestLocator_Path(t *testing.T) {
	tests := []struct {
		name   string
		goos   string
		goarch string
		files  []string
		want   string
	}{
		{"linux family", "linux", "amd64", []string{"linux/cavif"}, "linux/cavif"},
		{"arch preferred", "linux", "arm64", []string{"linux/cavif", "linux/arm64/cavif"}, "linux/arm64/cavif"},
		{"other arch falls back", "linux", "arm64", []string{"linux/amd64/cavif", "linux/cavif"}, "linux/cavif"},
		{"darwin is macos", "darwin", "arm64", []string{"macos/cavif"}, "macos/cavif"},
		{"windows exe", "windows", "amd64", []string{"windows/cavif.exe"}, "windows/cavif.exe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tt.files {
				touch(t, filepath.Join(dir, f), 0o755)
			}

			l := Locator{BinDir: dir, GOOS: tt.goos, GOARCH: tt.goarch}
			got, err := l.Path()
			if err != nil {
				t.Fatalf("Path failed: %v", err)
			}
			if want := filepath.Join(dir, tt.want); got != want {
				t.Errorf("Path: got %s, want %s", got, want)
			}
		})
	}
}

func TestLocator_NoBinary(t *testing.T) {
	tests := []struct {
		name  string
		goos  string
		files []string
	}{
		{"empty bin dir", "linux", nil},
		{"wrong family", "linux", []string{"macos/cavif"}},
		{"unsupported os", "plan9", []string{"linux/cavif"}},
		{"directory not file", "linux", []string{"linux/cavif/placeholder"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tt.files {
				touch(t, filepath.Join(dir, f), 0o755)
			}

			l := Locator{BinDir: dir, GOOS: tt.goos, GOARCH: "amd64"}
			_, err := l.Path()
			if !errors.Is(err, ErrNoBinary) {
				t.Fatalf("Path: got %v, want ErrNoBinary", err)
			}
			if !strings.Contains(err.Error(), tt.goos+" amd64") {
				t.Errorf("error should name the platform: %v", err)
			}
		})
	}
}

func TestIntermediateExtension(t *testing.T) {
	tests := map[string]string{
		"gif":  "png",
		"png":  "png",
		"jpg":  "jpg",
		"webp": "png",
		"bmp":  "png",
		"tiff": "png",
	}
	for in, want := range tests {
		if got := IntermediateExtension(in); got != want {
			t.Errorf("IntermediateExtension(%q): got %q, want %q", in, got, want)
		}
	}
}

func TestRequired(t *testing.T) {
	none := func(string) bool { return false }
	all := func(string) bool { return true }

	if !Required("avif", none) {
		t.Error("avif without native support should require the encoder")
	}
	if Required("avif", all) {
		t.Error("avif with native support should not require the encoder")
	}
	if Required("png", none) {
		t.Error("png never requires the encoder")
	}
}

func TestCommandEncoder_Args(t *testing.T) {
	e := NewCommandEncoder("bin")
	got := e.Args("in.png", "out.avif")
	want := []string{"--overwrite", "--quality=56", "--speed=5", "--output=out.avif", "in.png"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Args: got %v, want %v", got, want)
	}
}

// fakeBinary writes a shell script standing in for cavif. It records its
// arguments next to the output and writes "avif" to the --output path.
func fakeBinary(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		t.Skip("shell script encoder requires linux or macOS")
	}
	dir := t.TempDir()
	l := NewLocator(dir)
	path := l.Candidates()[1]
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return dir
}

const recordingEncoder = `for a in "$@"; do
  case "$a" in
    --output=*) out="${a#--output=}" ;;
  esac
done
echo "$@" > "$out.args"
echo avif > "$out"`

func TestCommandEncoder_Encode(t *testing.T) {
	binDir := fakeBinary(t, recordingEncoder)
	work := t.TempDir()
	input := filepath.Join(work, "cat.avif.png")
	output := filepath.Join(work, "cat.avif")
	touch(t, input, 0o644)

	if err := NewCommandEncoder(binDir).Encode(context.Background(), input, output); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if strings.TrimSpace(string(data)) != "avif" {
		t.Errorf("output: got %q", data)
	}

	args, err := os.ReadFile(output + ".args")
	if err != nil {
		t.Fatalf("args not recorded: %v", err)
	}
	want := "--overwrite --quality=56 --speed=5 --output=" + output + " " + input
	if got := strings.TrimSpace(string(args)); got != want {
		t.Errorf("args: got %q, want %q", got, want)
	}
}

func TestCommandEncoder_Failure(t *testing.T) {
	binDir := fakeBinary(t, `echo "unsupported input" >&2; exit 3`)
	work := t.TempDir()

	err := NewCommandEncoder(binDir).Encode(context.Background(), filepath.Join(work, "in.png"), filepath.Join(work, "out"))
	if err == nil {
		t.Fatal("Encode should fail when the binary exits non-zero")
	}
	if !strings.Contains(err.Error(), "unsupported input") {
		t.Errorf("error should carry stderr: %v", err)
	}
}

func TestCommandEncoder_NoBinary(t *testing.T) {
	err := NewCommandEncoder(t.TempDir()).Encode(context.Background(), "in.png", "out")
	if !errors.Is(err, ErrNoBinary) {
		t.Errorf("Encode: got %v, want ErrNoBinary", err)
	}
}
