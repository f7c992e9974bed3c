// Package concurtest provides a deterministic, manually-advanced
// [TimerService]/[Scheduler] pair for exercising timing-sensitive
// go-concur scenarios without depending on wall-clock scheduling,
// modeled on the testClock helper used across this module family's
// rate limiter tests.
package concurtest

import (
	"sort"
	"sync"

	"github.com/joeycumines/go-concur/concur"
)

// Clock is a controllable TimerService and Scheduler. The zero value is
// ready to use, starting at simulated time zero.
type Clock struct {
	mu         sync.Mutex
	now        int64 // milliseconds
	nextHandle concur.TimerHandle
	timers     []*clockTimer
	micro      []func()
}

type clockTimer struct {
	handle   concur.TimerHandle
	deadline int64
	fn       func()
	fired    bool
	cancelled bool
}

var _ concur.TimerService = (*Clock)(nil)
var _ concur.Scheduler = (*Clock)(nil)

// SetTimeout implements [concur.TimerService].
func (c *Clock) SetTimeout(fn func(), delayMs int) (concur.TimerHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextHandle++
	h := c.nextHandle
	deadline := c.now + int64(delayMs)
	if delayMs < 0 {
		deadline = c.now
	}
	c.timers = append(c.timers, &clockTimer{handle: h, deadline: deadline, fn: fn})
	return h, nil
}

// ClearTimeout implements [concur.TimerService].
func (c *Clock) ClearTimeout(handle concur.TimerHandle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.timers {
		if t.handle == handle {
			t.cancelled = true
		}
	}
	return nil
}

// QueueMicrotask implements [concur.Scheduler]. Microtasks run
// synchronously, in FIFO order, the next time Drain or Advance is
// called (not inline), matching the "deferred until the current
// logical step completes" contract.
func (c *Clock) QueueMicrotask(fn func()) error {
	c.mu.Lock()
	c.micro = append(c.micro, fn)
	c.mu.Unlock()
	return nil
}

// Now returns the current simulated time, in milliseconds.
func (c *Clock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Drain runs every queued microtask (including ones enqueued by the
// microtasks it runs) until none remain. Call it after a synchronous
// operation to observe its deferred effects.
func (c *Clock) Drain() {
	for {
		c.mu.Lock()
		if len(c.micro) == 0 {
			c.mu.Unlock()
			return
		}
		fn := c.micro[0]
		c.micro = c.micro[1:]
		c.mu.Unlock()
		fn()
	}
}

// Advance moves simulated time forward by deltaMs, firing (in deadline
// order) every non-cancelled timer whose deadline falls at or before the
// new time, draining microtasks after each firing.
func (c *Clock) Advance(deltaMs int64) {
	c.mu.Lock()
	c.now += deltaMs
	target := c.now
	c.mu.Unlock()

	for {
		fn, ok := c.popDue(target)
		if !ok {
			break
		}
		fn()
		c.Drain()
	}
	c.Drain()
}

func (c *Clock) popDue(target int64) (func(), bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sort.SliceStable(c.timers, func(i, j int) bool { return c.timers[i].deadline < c.timers[j].deadline })

	for i, t := range c.timers {
		if t.cancelled || t.fired {
			continue
		}
		if t.deadline > target {
			continue
		}
		t.fired = true
		fn := t.fn
		c.timers = append(c.timers[:i:i], c.timers[i+1:]...)
		return fn, true
	}
	return nil, false
}
