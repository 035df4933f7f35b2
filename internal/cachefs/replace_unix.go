//go:build !windows

package cachefs

import "os"

// replace renames tmpPath over dest. rename(2) is atomic on POSIX systems.
func replace(tmpPath, dest string) error {
	return os.Rename(tmpPath, dest)
}

// syncDir fsyncs dir so the rename survives a crash.
func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
