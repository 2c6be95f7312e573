package ring

import "sync/atomic"

// atomicFetchAdd adds delta to *addr and returns the value *addr held
// beforehand, matching Rust's fetch_add semantics (Go's AddUint64 instead
// returns the new value).
func atomicFetchAdd(addr *uint64, delta uint64) uint64 {
	return atomic.AddUint64(addr, delta) - delta
}
