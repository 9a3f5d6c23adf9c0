// Package types holds the domain model shared across pipeline stages:
// the request record, discovered files, duplicate groups, delete plans,
// and the generic helpers (stable sort, semaphore) several stages use to
// keep validation-mode output deterministic and bound concurrency.
package types

// StableSort sorts s in place by less, using insertion sort so that
// validation-mode's tie-break order (equal keys keep their original
// relative position) never depends on a library sort's pivot strategy.
// Discovery, grouping and hashing sort their validation-mode candidates
// through this one implementation rather than each carrying its own copy.
func StableSort[T any](s []T, less func(a, b T) bool) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && less(s[j], s[j-1]); j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// Semaphore implements a counting semaphore using a buffered channel.
// It limits concurrent access to a resource by blocking when the limit is reached.
type Semaphore chan struct{}

// NewSemaphore creates a semaphore that allows up to n concurrent acquisitions.
func NewSemaphore(n int) Semaphore { return make(chan struct{}, n) }

// Acquire blocks until a slot is available, then claims it.
func (s Semaphore) Acquire() { s <- struct{}{} }

// Release frees a slot, unblocking one waiting Acquire call.
func (s Semaphore) Release() { <-s }
