package zipper

import (
	"context"
	"sync"
)

// cancelable is the cancellation state shared by both engines.
//
// The flag is reset when a run begins. Cancel sets it and fires the abort
// callback registered by the run, at most once. Cancel outside a run does
// nothing.
type cancelable struct {
	mu       sync.Mutex
	running  bool
	canceled bool
	abort    func(error)
}

// begin starts a run, failing with ErrBusy if one is in progress.
func (c *cancelable) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return ErrBusy
	}
	c.running = true
	c.canceled = false
	c.abort = nil
	return nil
}

// watch cancels the run when ctx is done. The returned func stops watching.
func (c *cancelable) watch(ctx context.Context, cancel func()) (stop func() bool) {
	if ctx.Err() != nil {
		cancel()
	}
	return context.AfterFunc(ctx, cancel)
}

// end settles a run. ErrCanceled takes priority over err once the run has
// been canceled.
func (c *cancelable) end(err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	canceled := c.canceled
	c.running = false
	c.abort = nil
	if canceled {
		return ErrCanceled
	}
	return err
}

func (c *cancelable) cancel() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.canceled = true
	abort := c.abort
	c.abort = nil
	c.mu.Unlock()

	if abort != nil {
		abort(ErrCanceled)
	}
}

func (c *cancelable) isCanceled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canceled
}

// registerAbort installs fn as the abort callback of the current run. If the
// run was already canceled, fn is invoked immediately instead.
func (c *cancelable) registerAbort(fn func(error)) {
	c.mu.Lock()
	if !c.canceled {
		c.abort = fn
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	fn(ErrCanceled)
}

func (c *cancelable) clearAbort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abort = nil
}
