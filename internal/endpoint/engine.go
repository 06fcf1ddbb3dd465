package endpoint

import (
	"context"
	"sync"
	"time"

	"github.com/sanix-darker/loadgun/internal/errs"
	"github.com/sanix-darker/loadgun/internal/httpclient"
	"github.com/sanix-darker/loadgun/internal/killer"
	"github.com/sanix-darker/loadgun/internal/provider"
	"github.com/sanix-darker/loadgun/internal/response"
	"github.com/sanix-darker/loadgun/internal/stats"
)

// Run drives e to completion: it pulls ticks (gated by on-demand pacing and
// a concurrency ceiling), renders and submits one request per tick, folds
// the response into provides/logs targets, and reports into sink. It
// returns once e's input streams end, the run is killed, or ctx is
// cancelled (spec.md §4.H "driver loop").
func Run(ctx context.Context, e *Endpoint, client *httpclient.Client, sink *stats.Sink, k *killer.Killer) {
	sem := newCeiling(e.MaxParallelRequests)
	pumps := gatedPumps(e)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		if ctx.Err() != nil || k.Fired() {
			return
		}

		ack, ok := waitForDemand(ctx, pumps)
		if !ok {
			return
		}

		if !sem.acquire(ctx) {
			if ack != nil {
				ack(false)
			}
			return
		}
		if !awaitBlockCapacity(ctx, e) {
			sem.release()
			if ack != nil {
				ack(false)
			}
			return
		}

		items, ok, err := e.zipTick(ctx)
		if err != nil {
			sem.release()
			if ack != nil {
				ack(false)
			}
			if ctx.Err() == nil {
				k.Kill(errs.OtherCause("endpoint "+e.ID+": input stream", err))
			}
			return
		}
		if !ok {
			sem.release()
			if ack != nil {
				ack(false)
			}
			if e.providesAllDrained() {
				k.End(killer.ReasonCompleted)
			}
			return
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.release()
			consumed := runTick(ctx, e, client, sink, k, items)
			if ack != nil {
				ack(consumed)
			}
		}()
	}
}

// runTick renders, submits, and fans out a single tick. It returns whether
// at least one provider value was consumed into the request (the signal an
// on-demand ack needs).
func runTick(ctx context.Context, e *Endpoint, client *httpclient.Client, sink *stats.Sink, k *killer.Killer, items []StreamItem) bool {
	assembled := buildEnv(items)
	group := &provider.AutoReturnGroup{}
	for _, a := range assembled.autoReturns {
		group.Add(a)
	}
	defer group.FinishAll()

	now := time.Now()
	sink.Send(stats.Message{Kind: stats.RequestStarted, EndpointID: e.ID, At: now})

	rendered, err := e.render(assembled.env)
	if err != nil {
		reportFailure(sink, e.ID, err)
		return len(items) > 0
	}

	resp, rtt, err := e.submit(ctx, client, rendered)
	if err != nil {
		reportFailure(sink, e.ID, err)
		return true
	}

	response.Populate(assembled.env, resp, rtt)
	if cause := response.ClassifyStatus(resp.Status); cause != nil {
		reportFailure(sink, e.ID, cause)
	} else {
		sink.Send(stats.Message{
			Kind:       stats.RequestCompleted,
			EndpointID: e.ID,
			At:         now,
			RTT:        rtt,
			Status:     resp.Status,
		})
	}

	group.ConsumeAll()

	targets := make([]response.Outgoing, 0, len(e.Provides)+len(e.Logs))
	for _, o := range e.Provides {
		targets = append(targets, toResponseOutgoing(o))
	}
	for _, o := range e.Logs {
		targets = append(targets, toResponseOutgoing(o))
	}
	_ = response.FanOut(ctx, assembled.env, targets)

	return true
}

func toResponseOutgoing(o Outgoing) response.Outgoing {
	return response.Outgoing{
		Name:         o.Name,
		Select:       o.Select,
		Tx:           o.Tx,
		SendBehavior: o.SendBehavior,
		Logger:       o.Logger,
		OnDemandAck:  o.OnDemandAck,
	}
}

func reportFailure(sink *stats.Sink, endpointID string, err error) {
	var recov *errs.RecoverableError
	kind := "unknown"
	if ok := asRecoverable(err, &recov); ok {
		kind = string(recov.Kind)
	}
	sink.Send(stats.Message{Kind: stats.RequestErrored, EndpointID: endpointID, At: time.Now(), ErrorKind: kind})
}

func asRecoverable(err error, out **errs.RecoverableError) bool {
	type unwrapper interface{ Unwrap() error }
	for err != nil {
		if r, ok := err.(*errs.RecoverableError); ok {
			*out = r
			return true
		}
		u, ok := err.(unwrapper)
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// providesAllDrained reports whether every provides target has no receivers
// left (spec.md §3's provides_set termination sentinel): once nothing
// downstream is listening, this endpoint has nothing left to produce for.
func (e *Endpoint) providesAllDrained() bool {
	if !e.providesAnything() {
		return true
	}
	for _, o := range e.Provides {
		if !o.Tx.NoReceivers() {
			return false
		}
	}
	return true
}

// gatedPumps builds the demandPump set for every on-demand-paced input.
func gatedPumps(e *Endpoint) []demandPump {
	var pumps []demandPump
	for i := range e.Inputs {
		in := &e.Inputs[i]
		if !in.OnDemandGated || in.OnDemand == nil {
			continue
		}
		trigger, ack := in.OnDemand.IntoStream()
		pumps = append(pumps, demandPump{name: in.Name, trigger: trigger, ack: ack})
	}
	return pumps
}

// awaitBlockCapacity polls every Block-mode outgoing's capacity probe,
// yielding back to the scheduler between polls, until every one has room or
// ctx is done (spec.md §4.H's concurrency-ceiling second clause).
func awaitBlockCapacity(ctx context.Context, e *Endpoint) bool {
	limits := e.blockLimits()
	if len(limits) == 0 {
		return true
	}
	for {
		if ctx.Err() != nil {
			return false
		}
		full := false
		for _, l := range limits {
			if !l.BelowCapacity() {
				full = true
				break
			}
		}
		if !full {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(time.Millisecond):
		}
	}
}

// ceiling bounds in-flight requests to MaxParallelRequests; zero means
// unlimited (spec.md §4.H first clause).
type ceiling struct {
	tokens chan struct{}
}

func newCeiling(max int) *ceiling {
	if max <= 0 {
		return &ceiling{}
	}
	return &ceiling{tokens: make(chan struct{}, max)}
}

func (c *ceiling) acquire(ctx context.Context) bool {
	if c.tokens == nil {
		return true
	}
	select {
	case c.tokens <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *ceiling) release() {
	if c.tokens == nil {
		return
	}
	<-c.tokens
}
