package channel

import "sync"

// OnDemandReceiver pairs with a Receiver to convert a push-style channel
// into a pull-paced one (spec.md §3, §4.A): the request engine announces it
// is about to need a value by waiting on the trigger channel IntoStream
// returns, then, after attempting
// to consume, acknowledges whether it actually did.
type OnDemandReceiver[T any] struct {
	recv *Receiver[T]

	mu      sync.Mutex
	started bool
}

func newOnDemandReceiver[T any](recv *Receiver[T]) *OnDemandReceiver[T] {
	return &OnDemandReceiver[T]{recv: recv}
}

// Ack is the one-shot acknowledgement a caller must invoke after a trigger,
// reporting whether it consumed a value. Modeled as a dedicated channel per
// spec.md §9 rather than a shared reference-counted callback.
type Ack func(consumed bool)

// IntoStream starts the demand pump and returns a trigger channel plus the
// Ack to call after each received trigger. The trigger fires once the
// underlying channel currently holds a buffered value (or, at end of
// stream, the trigger channel is closed without a final send). On ack(false)
// the same demand is immediately re-armed, exactly mirroring pewpew's
// behaviour of re-emitting the token when the engine "did not advance".
func (o *OnDemandReceiver[T]) IntoStream() (<-chan struct{}, Ack) {
	trigger := make(chan struct{})
	ack := make(chan bool)

	go func() {
		defer close(trigger)
		for {
			if !o.waitForData() {
				return
			}
			trigger <- struct{}{}
			consumed := <-ack
			if consumed {
				continue
			}
			// Re-arm immediately: the loop re-checks waitForData, which
			// will still observe the same pending value.
		}
	}()

	return trigger, func(consumed bool) { ack <- consumed }
}

// waitForData blocks until the channel has a buffered value, returning
// false only once no sender remains and the buffer is drained for good.
func (o *OnDemandReceiver[T]) waitForData() bool {
	c := o.recv.c
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		if len(c.buf) > 0 {
			return true
		}
		if c.numSenders == 0 {
			return false
		}
		c.cond.Wait()
	}
}

// Clone returns an independent on-demand pacer sharing the same receiver.
func (o *OnDemandReceiver[T]) Clone() *OnDemandReceiver[T] {
	return newOnDemandReceiver[T](o.recv.Clone())
}
