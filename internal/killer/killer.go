// Package killer implements the first-error-wins shutdown signal shared by
// every endpoint, provider and logger goroutine in a run. Its state is a
// mutex-guarded "fired once" flag, the same mutex-guarded idiom
// internal/fileprovider's Registry uses.
package killer

import (
	"sync"

	"github.com/sanix-darker/loadgun/internal/errs"
)

// TestEndReason describes why a run stopped.
type TestEndReason string

const (
	ReasonCompleted  TestEndReason = "completed"
	ReasonKilled     TestEndReason = "killed"
	ReasonCtrlC      TestEndReason = "ctrl_c"
	ReasonSoftKilled TestEndReason = "soft_killed"
)

// Outcome is the terminal state delivered to Wait/Done.
type Outcome struct {
	Reason TestEndReason
	Err    *errs.TestError
}

// Killer is a first-error-wins sink: the first Kill or End call decides the
// run's outcome, every later call is a no-op. All of an endpoint's worker
// goroutines, provider readers and loggers hold a reference to the same
// Killer and race to report; only one report matters.
type Killer struct {
	mu    sync.Mutex
	fired bool
	done  chan Outcome
}

// New returns a Killer ready to accept reports.
func New() *Killer {
	return &Killer{done: make(chan Outcome, 1)}
}

// Kill reports a fatal error. Only the first call across the lifetime of
// the Killer has any effect.
func (k *Killer) Kill(err *errs.TestError) {
	k.fire(Outcome{Reason: ReasonKilled, Err: err})
}

// End reports a non-error termination (e.g. the test ran to completion, or
// a Ctrl-C signal arrived). Only the first call has any effect.
func (k *Killer) End(reason TestEndReason) {
	k.fire(Outcome{Reason: reason})
}

func (k *Killer) fire(o Outcome) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.fired {
		return
	}
	k.fired = true
	k.done <- o
}

// Done returns a channel that receives exactly one Outcome, whichever one
// won the race to fire.
func (k *Killer) Done() <-chan Outcome {
	return k.done
}

// Wait blocks until a termination has been reported and returns it.
func (k *Killer) Wait() Outcome {
	return <-k.done
}

// Fired reports whether Kill or End has already been called, without
// blocking. Workers poll this in their select loops alongside context
// cancellation to decide whether to keep producing work.
func (k *Killer) Fired() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.fired
}
