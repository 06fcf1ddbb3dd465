// Package channel implements the bounded MPMC value pipe described in
// spec.md §4.A: a capacity that is either a fixed integer or Auto (grows
// under observed fullness, shrinks under observed emptiness, floor 1),
// strict FIFO delivery, and the probes (NoReceivers, Limit) the endpoint
// engine needs to gate request intake.
//
// Go has no native async/await, so the "poll"-shaped contract in spec.md is
// implemented with a mutex + condition variable instead of a future state
// machine: Send/Receive block the calling goroutine, TrySend is the
// non-blocking escape hatch pewpew's try_send exposes directly.
package channel

import (
	"context"
	"sync"
)

// emptyWaitsBeforeShrink is the Open Question decision (see DESIGN.md):
// an Auto channel shrinks its depth by one after this many consecutive
// Receive calls that had to block for want of data, never below floor 1.
const emptyWaitsBeforeShrink = 8

// autoHardCap bounds how far an Auto channel may grow from its starting
// depth of 1; pewpew leaves this unspecified, so a generous but
// finite ceiling is chosen to keep a stalled consumer from growing the
// buffer without bound.
const autoHardCap = 1 << 20

// SendState is the outcome of a non-blocking send attempt.
type SendState int

const (
	// SendSuccess means the value was enqueued.
	SendSuccess SendState = iota
	// SendFull means the channel was at capacity; the value is handed back
	// to the caller unmodified via TrySend's second return value.
	SendFull
	// SendClosed means no receiver will ever read this channel again.
	SendClosed
)

type core[T any] struct {
	mu   sync.Mutex
	cond *sync.Cond

	buf   []T
	auto  bool
	depth int // current effective capacity
	hard  int // ceiling for Auto growth

	emptyStreak int

	numSenders   int
	numReceivers int
}

func newCore[T any](limit Limit2) *core[T] {
	c := &core[T]{
		auto:         limit.isAuto,
		depth:        limit.n,
		hard:         autoHardCap,
		numSenders:   1,
		numReceivers: 1,
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

func (c *core[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buf)
}

func (c *core[T]) Cap() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.depth
}

// trySendLocked attempts to enqueue v. Caller holds c.mu.
func (c *core[T]) trySendLocked(v T) SendState {
	if c.numReceivers == 0 {
		return SendClosed
	}
	if len(c.buf) < c.depth {
		c.buf = append(c.buf, v)
		c.emptyStreak = 0
		c.cond.Broadcast()
		return SendSuccess
	}
	if c.auto && c.depth < c.hard {
		c.depth++
		c.buf = append(c.buf, v)
		c.cond.Broadcast()
		return SendSuccess
	}
	return SendFull
}

// forceSendLocked enqueues v unconditionally, evicting the oldest buffered
// value if the channel is already at capacity and cannot grow. Caller holds
// c.mu. Used by SendBehavior.Force (spec.md §3): a provider configured this
// way never blocks a request in flight, it just drops the stalest value.
func (c *core[T]) forceSendLocked(v T) SendState {
	if c.numReceivers == 0 {
		return SendClosed
	}
	if len(c.buf) < c.depth {
		c.buf = append(c.buf, v)
	} else {
		copy(c.buf, c.buf[1:])
		c.buf[len(c.buf)-1] = v
	}
	c.emptyStreak = 0
	c.cond.Broadcast()
	return SendSuccess
}

// TrySend is the non-blocking send: on SendFull, v is returned unmodified.
func (c *core[T]) TrySend(v T) (SendState, T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state := c.trySendLocked(v)
	if state == SendFull {
		return state, v
	}
	var zero T
	return state, zero
}

// ForceSend enqueues v without blocking, evicting the oldest buffered value
// if necessary. It only reports SendClosed (no receivers left); it never
// reports SendFull.
func (c *core[T]) ForceSend(v T) SendState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.forceSendLocked(v)
}

// Send blocks until v is enqueued, the channel closes (returns
// ErrClosed), or ctx is done.
func (c *core[T]) Send(ctx context.Context, v T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		switch c.trySendLocked(v) {
		case SendSuccess:
			return nil
		case SendClosed:
			return ErrClosed
		}
		if waitErr := c.waitLocked(ctx); waitErr != nil {
			return waitErr
		}
	}
}

// waitLocked blocks on c.cond until woken or ctx is cancelled. Caller holds
// c.mu; it is released while waiting and re-acquired before returning.
//
// sync.Cond has no built-in cancellation, so a watcher goroutine nudges the
// condition variable when ctx is done. This costs a goroutine per blocked
// wait; acceptable here since waits only occur when a channel is actually
// at capacity or empty, not on every send/receive.
func (c *core[T]) waitLocked(ctx context.Context) error {
	if ctx == nil {
		c.cond.Wait()
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	stopWatch := make(chan struct{})
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		select {
		case <-ctx.Done():
			c.mu.Lock()
			c.cond.Broadcast()
			c.mu.Unlock()
		case <-stopWatch:
		}
	}()
	c.cond.Wait()
	close(stopWatch)
	<-watchDone
	return ctx.Err()
}

// receive pops the next value. ok is false only at end-of-stream (no
// senders remain and the buffer is drained).
func (c *core[T]) receive(ctx context.Context) (v T, ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		if len(c.buf) > 0 {
			v = c.buf[0]
			c.buf = c.buf[1:]
			c.emptyStreak = 0
			c.cond.Broadcast()
			return v, true, nil
		}
		if c.numSenders == 0 {
			var zero T
			return zero, false, nil
		}
		c.emptyStreak++
		if c.auto && c.emptyStreak >= emptyWaitsBeforeShrink && c.depth > 1 {
			c.depth--
			c.emptyStreak = 0
		}
		if waitErr := c.waitLocked(ctx); waitErr != nil {
			var zero T
			return zero, false, waitErr
		}
	}
}

func (c *core[T]) noReceivers() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.numReceivers == 0
}

func (c *core[T]) addSender() {
	c.mu.Lock()
	c.numSenders++
	c.mu.Unlock()
}

func (c *core[T]) dropSender() {
	c.mu.Lock()
	c.numSenders--
	if c.numSenders == 0 {
		c.cond.Broadcast()
	}
	c.mu.Unlock()
}

func (c *core[T]) addReceiver() {
	c.mu.Lock()
	c.numReceivers++
	c.mu.Unlock()
}

func (c *core[T]) dropReceiver() {
	c.mu.Lock()
	c.numReceivers--
	if c.numReceivers == 0 {
		c.cond.Broadcast()
	}
	c.mu.Unlock()
}

// Limit2 is the capacity policy passed to NewChannel. It is distinct from
// Limit (the read-only probe handed out to callers) because NewChannel needs
// a plain value type before a core exists to back a gauge.
type Limit2 struct {
	isAuto bool
	n      int
}

// IntegerLimit requests a fixed capacity of n (n must be >= 1).
func IntegerLimit(n int) Limit2 {
	if n < 1 {
		n = 1
	}
	return Limit2{n: n}
}

// AutoLimit requests an adaptive capacity starting at the floor of 1.
func AutoLimit() Limit2 {
	return Limit2{isAuto: true, n: 1}
}

// Sender is the producer handle of a Channel.
type Sender[T any] struct {
	c *core[T]
}

// Receiver is the consumer handle of a Channel.
type Receiver[T any] struct {
	c *core[T]
}

// NewChannel creates a bounded MPMC channel and returns its first
// sender/receiver pair.
func NewChannel[T any](limit Limit2) (*Sender[T], *Receiver[T]) {
	c := newCore[T](limit)
	return &Sender[T]{c: c}, &Receiver[T]{c: c}
}

// TrySend attempts to enqueue v without blocking.
func (s *Sender[T]) TrySend(v T) (SendState, T) { return s.c.TrySend(v) }

// Send enqueues v, blocking while the channel is full.
func (s *Sender[T]) Send(ctx context.Context, v T) error { return s.c.Send(ctx, v) }

// ForceSend enqueues v without blocking, evicting the oldest buffered value
// if the channel is at capacity.
func (s *Sender[T]) ForceSend(v T) SendState { return s.c.ForceSend(v) }

// Limit returns a probe for this channel's current capacity policy.
func (s *Sender[T]) Limit() Limit { return Limit{auto: s.c.auto, gauge: s.c} }

// NoReceivers reports whether every receiver for this channel has been
// closed; used by provides_set termination (spec.md §3 invariant).
func (s *Sender[T]) NoReceivers() bool { return s.c.noReceivers() }

// Clone returns an additional sender handle sharing the same channel.
func (s *Sender[T]) Clone() *Sender[T] {
	s.c.addSender()
	return &Sender[T]{c: s.c}
}

// Close drops this sender handle. Once every sender handle is closed, the
// receiver observes end-of-stream.
func (s *Sender[T]) Close() { s.c.dropSender() }

// Receive blocks for the next value, or returns ok=false at end-of-stream.
func (r *Receiver[T]) Receive(ctx context.Context) (T, bool, error) {
	return r.c.receive(ctx)
}

// Clone returns an additional receiver handle sharing the same channel
// (MPMC fan-out); each clone independently consumes from the shared queue.
func (r *Receiver[T]) Clone() *Receiver[T] {
	r.c.addReceiver()
	return &Receiver[T]{c: r.c}
}

// Close drops this receiver handle.
func (r *Receiver[T]) Close() { r.c.dropReceiver() }

// OnDemand builds the on-demand pacing primitive paired with this receiver.
func (r *Receiver[T]) OnDemand() *OnDemandReceiver[T] {
	return newOnDemandReceiver(r)
}

// errClosed is returned by Send when every receiver has gone away.
type errClosed struct{}

func (errClosed) Error() string { return "channel: closed, no receivers" }

// ErrClosed signals a blocked Send found no receiver left to deliver to.
var ErrClosed error = errClosed{}
