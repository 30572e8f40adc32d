package concurrency

import (
	"context"
	"sync"

	"github.com/vnykmshr/flowgate/internal/debuglog"
	"github.com/vnykmshr/flowgate/pkg/clock"
	"github.com/vnykmshr/flowgate/pkg/common/errors"
	"github.com/vnykmshr/flowgate/pkg/ratelimit/asyncthrottle"
)

// queuedCall is an action waiting to run without its caller.
type queuedCall struct {
	ctx    context.Context
	action asyncthrottle.Action
}

// coordinator implements Throttler on top of one asyncthrottle.Throttler.
type coordinator struct {
	mu       sync.Mutex
	config   Config
	inner    asyncthrottle.Throttler
	clock    clock.Clock
	log      debuglog.Logger
	disposed bool

	// Enqueue
	queue   []queuedCall
	signal  chan struct{}
	stopCh  chan struct{}
	stopped chan struct{}

	// Replace
	latest uint64

	// KeepLatest
	running  bool
	pending  *queuedCall
	epoch    uint64
	run      uint64
	runTimer clock.Timer
}

func (c *coordinator) Mode() Mode {
	return c.config.Mode
}

func (c *coordinator) Call(ctx context.Context, action asyncthrottle.Action) error {
	if action == nil {
		return nil
	}
	if c.config.Disabled {
		c.mu.Lock()
		disposed := c.disposed
		c.mu.Unlock()
		if disposed {
			return nil
		}
		start := c.clock.Now()
		err := action(ctx)
		if c.config.OnMetrics != nil {
			c.config.OnMetrics(c.clock.Now().Sub(start), true)
		}
		return err
	}

	switch c.config.Mode {
	case Enqueue:
		return c.enqueue(ctx, action)
	case Replace:
		return c.replace(ctx, action)
	case KeepLatest:
		return c.keepLatest(ctx, action)
	default:
		return c.drop(ctx, action)
	}
}

func (c *coordinator) drop(ctx context.Context, action asyncthrottle.Action) error {
	defer c.notify()
	return c.inner.Call(ctx, c.observed(action))
}

// observed publishes state once the inner lock has been taken.
func (c *coordinator) observed(action asyncthrottle.Action) asyncthrottle.Action {
	if c.config.OnStateChange == nil {
		return action
	}
	return func(ctx context.Context) error {
		c.notify()
		return action(ctx)
	}
}

// enqueue appends the call to the FIFO. The queued context keeps the
// caller's values but not its cancellation, so no queued call is lost.
func (c *coordinator) enqueue(ctx context.Context, action asyncthrottle.Action) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil
	}
	c.queue = append(c.queue, queuedCall{ctx: context.WithoutCancel(ctx), action: action})
	depth := len(c.queue)
	c.mu.Unlock()

	c.log.Debug("call queued", "depth", depth)
	select {
	case c.signal <- struct{}{}:
	default:
	}
	c.notify()
	return nil
}

// drain is the single consumer of the Enqueue FIFO.
func (c *coordinator) drain() {
	defer close(c.stopped)

	for {
		item, ok := c.next()
		if !ok {
			select {
			case <-c.stopCh:
				return
			case <-c.signal:
				continue
			}
		}

		select {
		case <-c.stopCh:
			return
		default:
		}

		c.runBackground(item)
		c.notify()
	}
}

// next pops the head of the queue.
func (c *coordinator) next() (queuedCall, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 || c.disposed {
		return queuedCall{}, false
	}
	item := c.queue[0]
	c.queue[0] = queuedCall{}
	c.queue = c.queue[1:]
	return item, true
}

// runBackground runs a call nobody is waiting on, reporting its failure.
func (c *coordinator) runBackground(item queuedCall) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = errors.NewPanicError(r)
		}
		if err != nil {
			c.log.Error("background action failed", "error", err)
			if c.config.OnError != nil {
				c.config.OnError(err)
			}
		}
	}()

	err = c.inner.Call(item.ctx, c.observed(item.action))
}

func (c *coordinator) replace(ctx context.Context, action asyncthrottle.Action) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil
	}
	c.latest++
	id := c.latest
	c.inner.Reset()
	c.mu.Unlock()

	c.log.Debug("replacing in-flight call", "id", id)
	defer c.notify()

	guarded := c.observed(func(ctx context.Context) error {
		if !c.isLatest(id) {
			return nil
		}
		err := action(ctx)
		if !c.isLatest(id) {
			c.log.Debug("outcome discarded", "id", id)
			return nil
		}
		return err
	})

	for {
		executed, err := c.inner.TryCall(ctx, guarded)
		if executed || err != nil {
			return err
		}

		// A superseded call grabbed the lock between our reset and TryCall.
		c.mu.Lock()
		if id != c.latest || c.disposed {
			c.mu.Unlock()
			return nil
		}
		c.inner.Reset()
		c.mu.Unlock()
	}
}

func (c *coordinator) isLatest(id uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return id == c.latest && !c.disposed
}

func (c *coordinator) keepLatest(ctx context.Context, action asyncthrottle.Action) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil
	}
	if c.running {
		replaced := c.pending != nil
		c.pending = &queuedCall{ctx: context.WithoutCancel(ctx), action: action}
		c.mu.Unlock()
		c.log.Debug("stored as pending", "replaced", replaced)
		c.notify()
		return nil
	}
	epoch := c.epoch
	run := c.begin(epoch)
	c.mu.Unlock()

	c.notify()
	defer c.finish(epoch, run)
	return c.inner.Call(ctx, action)
}

// begin marks a run as started and arms its timeout. The inner lock is
// reset first: any action still holding it has outlived its run.
// Must be called with c.mu held.
func (c *coordinator) begin(epoch uint64) uint64 {
	c.running = true
	c.run++
	run := c.run
	c.inner.Reset()
	if c.config.MaxDuration > 0 {
		c.runTimer = c.clock.AfterFunc(c.config.MaxDuration, func() {
			c.log.Debug("run timed out", "run", run)
			c.finish(epoch, run)
		})
	}
	return run
}

// stopRunTimer must be called with c.mu held.
func (c *coordinator) stopRunTimer() {
	if c.runTimer != nil {
		c.runTimer.Stop()
		c.runTimer = nil
	}
}

// finish ends a run when its action completes or its timeout fires,
// whichever comes first, and starts the pending call if there is one.
// Later calls for the same run, and runs from before a Reset, are no-ops.
func (c *coordinator) finish(epoch, run uint64) {
	c.mu.Lock()
	if epoch != c.epoch || run != c.run || !c.running || c.disposed {
		c.mu.Unlock()
		return
	}
	c.stopRunTimer()
	next := c.pending
	c.pending = nil
	if next == nil {
		c.running = false
		c.mu.Unlock()
		c.notify()
		return
	}
	nextRun := c.begin(epoch)
	c.mu.Unlock()

	c.log.Debug("running pending call")
	c.notify()
	go func() {
		defer c.finish(epoch, nextRun)
		c.runBackground(*next)
	}()
}

func (c *coordinator) IsLocked() bool {
	if c.config.Mode == KeepLatest {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.running
	}
	return c.inner.IsLocked()
}

func (c *coordinator) HasPendingCalls() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.config.Mode {
	case Enqueue:
		return len(c.queue) > 0
	case KeepLatest:
		return c.pending != nil || c.running
	default:
		return false
	}
}

func (c *coordinator) PendingCount() int {
	c.mu.Lock()
	switch c.config.Mode {
	case Enqueue:
		defer c.mu.Unlock()
		return len(c.queue)
	case KeepLatest:
		defer c.mu.Unlock()
		n := 0
		if c.pending != nil {
			n++
		}
		if c.running {
			n++
		}
		return n
	}
	c.mu.Unlock()

	if c.inner.IsLocked() {
		return 1
	}
	return 0
}

func (c *coordinator) Reset() {
	c.mu.Lock()
	c.clear()
	c.mu.Unlock()

	c.log.Debug("reset")
	c.notify()
}

func (c *coordinator) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.clear()
	c.disposed = true
	if c.stopCh != nil {
		close(c.stopCh)
	}
	c.inner.Dispose()
	c.mu.Unlock()

	c.log.Debug("disposed")
	c.notify()
}

// clear drops all waiting calls and invalidates running ones.
// Must be called with c.mu held.
func (c *coordinator) clear() {
	c.latest++
	c.epoch++
	for i := range c.queue {
		c.queue[i] = queuedCall{}
	}
	c.queue = nil
	c.pending = nil
	c.running = false
	c.stopRunTimer()
	c.inner.Reset()
}

func (c *coordinator) Wrap(fn asyncthrottle.Action) asyncthrottle.Action {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context) error { return c.Call(ctx, fn) }
}

func (c *coordinator) notify() {
	if c.config.OnStateChange == nil {
		return
	}
	c.config.OnStateChange(c.IsLocked(), c.PendingCount())
}
