// Package errs holds the sentinel construction errors shared by vector,
// ring and shm. They are fatal at the call site - never swallowed - so
// they're defined once here instead of duplicated per package, and wrapped
// with fmt.Errorf("...: %w", ...) at the point they're raised so callers
// can still errors.Is down to the sentinel.
package errs

import "errors"

var (
	// ErrUninitialized is returned when opening a region whose header
	// does not carry the initialized flag.
	ErrUninitialized = errors.New("seqring: not initialized")

	// ErrLengthNotPowerOfTwo is returned by ring construction when the
	// requested length is not a power of two.
	ErrLengthNotPowerOfTwo = errors.New("seqring: length not a power of two")

	// ErrUnsupportedElementSize is returned when an element's encoded
	// size can't be represented in the on-disk layout (for instance, it
	// would overflow the per-cell stride).
	ErrUnsupportedElementSize = errors.New("seqring: unsupported element size")

	// ErrIncompatibleLayout is returned by create-or-open when an
	// existing, already-initialized region doesn't match the element
	// size or length the caller asked for.
	ErrIncompatibleLayout = errors.New("seqring: existing region has an incompatible layout")

	// ErrSharedMemory wraps lower-level failures from the shared-memory
	// adapter (file I/O, mapping).
	ErrSharedMemory = errors.New("seqring: shared memory error")
)
