//go:build darwin || linux || freebsd || netbsd || openbsd

package cachefs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

const (
	lockPollInterval = 20 * time.Millisecond
	lockSupported    = true
)

// Lock takes an exclusive flock(2) on "{path}.lock", waiting until it is
// available or ctx is done. The lock file is removed on unlock.
func Lock(ctx context.Context, path string) (Unlock, error) {
	lockPath := path + ".lock"
	for {
		fd, err := unix.Open(lockPath, unix.O_CREAT|unix.O_RDWR|unix.O_CLOEXEC, filePerm)
		if err != nil {
			return nil, fmt.Errorf("opening lock %s: %w", lockPath, err)
		}
		if err := flockContext(ctx, fd); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("locking %s: %w", lockPath, err)
		}

		// A previous holder may have unlinked the file while we waited;
		// the lock is only valid if we hold the inode still at lockPath.
		var held, onDisk unix.Stat_t
		if err := unix.Fstat(fd, &held); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("stating lock %s: %w", lockPath, err)
		}
		if err := unix.Stat(lockPath, &onDisk); err == nil && held.Dev == onDisk.Dev && held.Ino == onDisk.Ino {
			return func() error {
				_ = unix.Unlink(lockPath)
				_ = unix.Flock(fd, unix.LOCK_UN)
				return unix.Close(fd)
			}, nil
		}
		unix.Close(fd)
	}
}

func flockContext(ctx context.Context, fd int) error {
	for {
		err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return nil
		}
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EINTR) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}
