// Package stats implements the "Stats sink" contract from spec.md §6: an
// unbounded channel of StatsMessage variants with no backpressure. The
// aggregator/display layer itself is out of scope (spec.md §1); this
// package only gives the core something to send into, grounded on the
// teacher's internal/review/output.go sink-shaped aggregation style.
package stats

import (
	"time"

	"github.com/sanix-darker/loadgun/internal/jsonvalue"
)

// Kind tags a StatsMessage variant.
type Kind int

const (
	RequestStarted Kind = iota
	RequestCompleted
	RequestErrored
)

// Message is the sum type spec.md §6 names inline; Go represents it as one
// struct with fields relevant to Kind populated, rather than as several
// distinct types behind an interface, since every consumer of this channel
// switches on Kind first regardless.
type Message struct {
	Kind       Kind
	EndpointID string
	Tags       jsonvalue.Object
	At         time.Time

	// RequestCompleted
	RTT    time.Duration
	Status int

	// RequestErrored
	ErrorKind string
}

// Sink is an unbounded, non-blocking fan-in for Messages: Send never
// blocks the caller (spec.md §6 "no backpressure"), backed by a Go channel
// buffered to 4096 messages that spills into goroutines when full.
type Sink struct {
	ch chan Message
}

// NewSink returns a Sink with its drain goroutine already running;
// consume reads each Message as it arrives and is called from the sink's
// own goroutine, so it must not block on anything the producers depend on.
func NewSink(consume func(Message)) *Sink {
	s := &Sink{ch: make(chan Message, 4096)}
	go func() {
		for m := range s.ch {
			consume(m)
		}
	}()
	return s
}

// Send enqueues m without blocking the caller; if the internal buffer is
// momentarily full (a burst far exceeding 4096 in-flight messages) it
// spills into a spawned goroutine rather than ever applying backpressure
// to the request-execution core, preserving the "no backpressure" contract
// at the cost of message ordering under extreme bursts.
func (s *Sink) Send(m Message) {
	select {
	case s.ch <- m:
	default:
		go func() { s.ch <- m }()
	}
}

// Close stops accepting new messages; callers must ensure no further Send
// calls race with Close.
func (s *Sink) Close() {
	close(s.ch)
}
