package pipeline

import (
	"context"
	"sync"
)

// Control carries the operator's pause, resume and cancel requests to a
// running scheduler. Pausing never interrupts an in-flight call; it only
// holds back the next item. Cancel is final.
type Control struct {
	mu        sync.Mutex
	paused    bool
	cancelled bool
	wake      chan struct{} // closed on resume or cancel
	done      chan struct{} // closed on cancel
	observer  func(paused bool)
}

// NewControl returns a running (unpaused) control.
func NewControl() *Control {
	return &Control{done: make(chan struct{})}
}

// Pause holds back the next item. It is a no-op once cancelled.
func (c *Control) Pause() {
	c.mu.Lock()
	if c.paused || c.cancelled {
		c.mu.Unlock()
		return
	}
	c.paused = true
	c.wake = make(chan struct{})
	if c.observer != nil {
		c.observer(true)
	}
	c.mu.Unlock()
}

// Resume releases a paused scheduler.
func (c *Control) Resume() {
	c.mu.Lock()
	if !c.paused {
		c.mu.Unlock()
		return
	}
	c.paused = false
	if c.observer != nil {
		c.observer(false)
	}
	close(c.wake)
	c.wake = nil
	c.mu.Unlock()
}

// Cancel stops the scheduler before its next item. A paused scheduler is
// released and exits without resuming work.
func (c *Control) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelled {
		return
	}
	c.cancelled = true
	close(c.done)
	if c.paused {
		c.paused = false
		close(c.wake)
		c.wake = nil
	}
}

func (c *Control) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

func (c *Control) Cancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

// Done is closed when the control is cancelled.
func (c *Control) Done() <-chan struct{} {
	return c.done
}

// Observe sets the function told about pause (true) and resume (false),
// replacing any earlier one; nil removes it. If the control is already
// paused, fn is told at once. fn runs before a resumed scheduler continues,
// with the control locked, and must not call back into it.
func (c *Control) Observe(fn func(paused bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observer = fn
	if fn != nil && c.paused {
		fn(true)
	}
}

// Wait blocks while paused. It returns ErrCancelled if the control is or
// becomes cancelled, or the context error if ctx ends first.
func (c *Control) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		cancelled, wake := c.cancelled, c.wake
		c.mu.Unlock()

		if cancelled {
			return ErrCancelled
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if wake == nil {
			return nil
		}
		select {
		case <-wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
