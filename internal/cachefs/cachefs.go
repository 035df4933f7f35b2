// Package cachefs writes cache artifacts so that readers never observe a
// partially written file.
//
// Publish and WriteFile produce into a temporary file in the destination
// directory and rename it into place once it has been synced. Lock adds an advisory
// per-artifact lock for callers that also want to avoid encoding the same
// artifact twice.
package cachefs

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	filePerm = 0o644
	dirPerm  = 0o755
	bufSize  = 64 * 1024
)

// Unlock releases a lock taken with Lock.
type Unlock func() error

// Exists reports whether path exists. Errors other than "not found" count
// as existing so callers do not try to overwrite what they cannot stat.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}

// EnsureDir creates dir and any missing parents.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// Publish calls produce with the path of an empty temporary file next to
// path and, once produce returns nil, moves that file into place. The
// temporary name keeps the extension of path so tools that pick their
// behaviour by extension can work on it. On any failure the temporary
// file is removed and path is left untouched.
func Publish(path string, produce func(tmp string) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*-"+filepath.Base(path))
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	_ = os.Chmod(tmpPath, filePerm)

	if err := produce(tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := syncFile(tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := replace(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to move artifact into place: %w", err)
	}
	_ = syncDir(dir)
	return nil
}

// WriteFile calls write with a buffered writer and atomically replaces
// path with what was written. See Publish.
func WriteFile(path string, write func(io.Writer) error) error {
	return Publish(path, func(tmp string) error {
		return Overwrite(tmp, write)
	})
}

// Overwrite truncates path and calls write with a buffered writer on it.
// It is not atomic; use it on files that are not visible yet, such as the
// temporary file handed out by Publish.
func Overwrite(path string, write func(io.Writer) error) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	bw := bufio.NewWriterSize(f, bufSize)
	if err := write(bw); err != nil {
		_ = f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

func syncFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	return nil
}
