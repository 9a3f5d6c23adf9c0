// Package cancel implements the pipeline's cooperative cancellation handle.
//
// spec.md describes cancellation as a shared flag checked at explicit
// points (once per directory entry during discovery, at each task
// boundary during hashing, per group during decision and execution) —
// never an implicit mechanism. Handle is that flag: a single atomic bool
// shared by every stage via ownership, not a context cascading through
// call signatures.
package cancel

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
)

// Handle is a shared cancellation flag. The zero value is ready to use
// and not cancelled.
type Handle struct {
	flag atomic.Bool
}

// New returns a fresh, not-cancelled Handle.
func New() *Handle { return &Handle{} }

// Cancel flips the flag. Idempotent.
func (h *Handle) Cancel() { h.flag.Store(true) }

// IsCancelled reports whether Cancel has been called.
func (h *Handle) IsCancelled() bool { return h.flag.Load() }

// WatchContext cancels h when ctx is done, returning immediately; the
// watcher goroutine exits once ctx.Done() fires.
func (h *Handle) WatchContext(ctx context.Context) {
	go func() {
		<-ctx.Done()
		h.Cancel()
	}()
}

// NewFromInterrupt returns a Handle that cancels on SIGINT/SIGTERM,
// grounded on the teacher-adjacent SetupInterruptHandler pattern but
// exposing spec.md's flag-based Handle instead of a bare context.
func NewFromInterrupt() (*Handle, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	h := New()
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	h.WatchContext(ctx)
	return h, cancel
}
