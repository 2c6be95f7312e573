package shm

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/rishav/seqring/errs"
)

// lockTimeout bounds how long CreateOrOpen waits for a sibling process
// that is concurrently creating the same path.
const lockTimeout = 5 * time.Second

// withCreateLock serializes concurrent CreateOrOpen calls for the same
// path using flock on a sibling ".lock" file, rather than on path itself -
// the data file is about to be replaced out from under its name by an
// atomic rename, which would orphan any lock held on its own descriptor.
//
// After acquiring the lock this verifies the lock file's inode still
// matches the one it opened, the same race calvinalkan-agent-task's
// ticket lock guards against: a third process may have deleted and
// recreated the lock file while this one was blocked in Flock.
func withCreateLock(path string, fn func() (*Region, bool, error)) (*Region, bool, error) {
	lockPath := path + ".lock"

	deadline := time.Now().Add(lockTimeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, false, fmt.Errorf("shm: timed out waiting for lock on %s: %w", lockPath, errs.ErrSharedMemory)
		}

		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
		if err != nil {
			return nil, false, fmt.Errorf("shm: opening lock file %s: %w: %w", lockPath, err, errs.ErrSharedMemory)
		}

		var openStat unix.Stat_t
		if err := unix.Fstat(int(f.Fd()), &openStat); err != nil {
			f.Close()
			return nil, false, fmt.Errorf("shm: fstat lock file %s: %w: %w", lockPath, err, errs.ErrSharedMemory)
		}

		fd := int(f.Fd())
		done := make(chan error, 1)
		go func() { done <- unix.Flock(fd, unix.LOCK_EX) }()

		select {
		case err := <-done:
			if err != nil {
				f.Close()
				return nil, false, fmt.Errorf("shm: flock %s: %w: %w", lockPath, err, errs.ErrSharedMemory)
			}

			var pathStat unix.Stat_t
			if statErr := unix.Stat(lockPath, &pathStat); statErr != nil || pathStat.Ino != openStat.Ino {
				unix.Flock(fd, unix.LOCK_UN)
				f.Close()
				continue
			}

			region, created, err := fn()
			unix.Flock(fd, unix.LOCK_UN)
			f.Close()
			return region, created, err

		case <-time.After(remaining):
			f.Close()
			return nil, false, fmt.Errorf("shm: timed out waiting for lock on %s: %w", lockPath, errs.ErrSharedMemory)
		}
	}
}
