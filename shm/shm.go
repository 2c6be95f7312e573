// Package shm adapts the seqlock containers (ring, vector) to shared
// memory: a named, memory-mapped file that can be mapped into more than
// one process. The containers themselves only ever see a byte slice; this
// package owns the file and mapping lifetime behind that slice.
//
// Three construction modes are supported, matching §4.6 of the design:
// Anonymous allocates unshared, zeroed memory; CreateOrOpen creates a
// named file and initializes it, or attaches to one that already exists;
// OpenExisting attaches to a file another process has already created.
package shm

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/edsrzf/mmap-go"
	natomic "github.com/natefinch/atomic"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/rishav/seqring/errs"
)

// Region is a contiguous block of memory backing a container, optionally
// backed by a named file mapped into this process.
type Region struct {
	data []byte
	mm   mmap.MMap
	file *os.File
}

// Bytes returns the region's backing memory.
func (r *Region) Bytes() []byte { return r.data }

// Close unmaps and closes the region's file, if any. Anonymous regions
// are simply left for the garbage collector.
func (r *Region) Close() error {
	if r.mm != nil {
		if err := r.mm.Unmap(); err != nil {
			return fmt.Errorf("shm: unmap: %w", err)
		}
	}
	if r.file != nil {
		if err := r.file.Close(); err != nil {
			return fmt.Errorf("shm: close: %w", err)
		}
	}
	return nil
}

// Anonymous allocates size bytes of zeroed, unshared memory.
func Anonymous(size uint64) *Region {
	return &Region{data: make([]byte, size)}
}

// CreateOrOpen creates a named memory-mapped file of size bytes at path
// and runs init over a staging buffer before the file becomes visible, or,
// if path already exists, opens and maps it as-is without calling init.
// The returned bool reports whether this call was the creator.
//
// The staging-then-atomic-rename write (via natefinch/atomic) means any
// process that opens path never observes a file that exists but is only
// partially written: it is either absent, or fully equal to init's output.
// That is a property of the file on disk, distinct from - and in addition
// to - the seqlock cells' own torn-read protection once the region is
// mapped and in use.
func CreateOrOpen(path string, size uint64, init func([]byte) error) (region *Region, created bool, err error) {
	return withCreateLock(path, func() (*Region, bool, error) {
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
		switch {
		case err == nil:
			// We reserved the name, and the sibling .lock file serializes
			// every other CreateOrOpen call for this path, so we are the
			// sole creator. Build the full contents in memory, then
			// publish them with a single atomic rename: any opener either
			// sees nothing or a complete, initialized file.
			f.Close()
			staged := make([]byte, size)
			if err := init(staged); err != nil {
				os.Remove(path)
				return nil, false, fmt.Errorf("shm: initializing %s: %w", path, err)
			}
			if err := natomic.WriteFile(path, bytes.NewReader(staged)); err != nil {
				os.Remove(path)
				return nil, false, fmt.Errorf("shm: publishing %s: %w: %w", path, err, errs.ErrSharedMemory)
			}
			r, err := OpenExisting(path)
			if err != nil {
				return nil, false, err
			}
			return r, true, nil

		case err == nil:
			r, err := OpenExisting(path)
			if err != nil {
				return nil, false, err
			}
			return r, false, nil

		default:
			return nil, false, fmt.Errorf("shm: creating %s: %w: %w", path, err, errs.ErrSharedMemory)
		}
	})
}

// OpenExisting maps an already-created file at path into this process. It
// does not inspect the container header; callers attach a Ring or Vector
// over the returned bytes and check IsInitialized themselves.
func OpenExisting(path string) (*Region, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("shm: opening %s: %w: %w", path, err, errs.ErrSharedMemory)
	}
	mm, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("shm: mapping %s: %w: %w", path, err, errs.ErrSharedMemory)
	}
	return &Region{data: mm, mm: mm, file: f}, nil
}

// OpenExistingWait blocks until path exists, then maps it, using fsnotify
// to watch the parent directory instead of polling. It returns early with
// ctx.Err() if ctx is canceled first.
func OpenExistingWait(ctx context.Context, path string, logger *zap.Logger) (*Region, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := os.Stat(path); err == nil {
		return OpenExisting(path)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("shm: watching %s: %w: %w", filepath.Dir(path), err, errs.ErrSharedMemory)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("shm: watching %s: %w: %w", filepath.Dir(path), err, errs.ErrSharedMemory)
	}

	// Another create may have landed between the Stat above and Add.
	if _, err := os.Stat(path); err == nil {
		return OpenExisting(path)
	}

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil, fmt.Errorf("shm: watcher closed while waiting for %s", path)
			}
			logger.Debug("shm: directory event while waiting", zap.String("name", ev.Name), zap.String("op", ev.Op.String()))
			if ev.Name == path {
				if _, err := os.Stat(path); err == nil {
					return OpenExisting(path)
				}
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil, fmt.Errorf("shm: watcher errors channel closed while waiting for %s", path)
			}
			return nil, fmt.Errorf("shm: watching %s: %w: %w", path, werr, errs.ErrSharedMemory)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
