package endpoint

import (
	"context"
	"reflect"
	"time"

	"github.com/sanix-darker/loadgun/internal/jsonvalue"
	"github.com/sanix-darker/loadgun/internal/provider"
)

// startStreamPoll is how often the synthetic sentinel stream (see
// startStreamTick) checks whether every provides target has lost its
// receivers, matching awaitBlockCapacity's busy-poll granularity.
const startStreamPoll = time.Millisecond

// zipTick pulls exactly one value from every input (on-demand-gated inputs
// included, once waitForDemand has let the tick through), completing a
// tick only once all of them have yielded (spec.md §4.H "zip_all"). ok is
// false once any input stream has ended, which terminates the endpoint. An
// endpoint with no `from` inputs has no stream to zip, so it drives ticks
// off the synthetic start-stream sentinel instead (spec.md §4.H "Start
// stream").
func (e *Endpoint) zipTick(ctx context.Context) ([]StreamItem, bool, error) {
	if len(e.Inputs) == 0 {
		return e.startStreamTick(ctx)
	}

	items := make([]StreamItem, 0, len(e.Inputs))
	for i := range e.Inputs {
		in := &e.Inputs[i]
		v, ok, err := in.Rx.Receive(ctx)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}

		item := StreamItem{Kind: KindTemplateValue, Name: in.Name, Value: v}
		if !in.NoAutoReturns && !e.NoAutoReturns && in.AutoReturn != nil && in.ReturnTo != nil {
			item.AutoReturn = provider.NewAutoReturn(*in.AutoReturn, in.ReturnTo, []jsonvalue.V{v})
		}
		items = append(items, item)
	}
	return items, true, nil
}

// startStreamTick is the synthetic sentinel stream installed when an
// endpoint declares no `from` inputs (spec.md §4.H, testable invariant 5).
// Without a provides target there is nothing pacing this endpoint at all,
// so it ends immediately rather than firing requests forever; otherwise it
// yields KindNone ticks until every provides channel reports no receivers,
// then ends and lets Run kill the endpoint via providesAllDrained.
func (e *Endpoint) startStreamTick(ctx context.Context) ([]StreamItem, bool, error) {
	if !e.providesAnything() {
		return nil, false, nil
	}
	if e.providesAllDrained() {
		return nil, false, nil
	}
	select {
	case <-ctx.Done():
		return nil, false, nil
	case <-time.After(startStreamPoll):
	}
	return []StreamItem{{Kind: KindNone}}, true, nil
}

// demandPump holds the live trigger/ack pair for one on-demand-gated input.
// Merging these and waiting for any one to fire implements spec.md §4.H's
// "select_any(on_demand_streams)"; reflect.Select is used because the
// number of gated inputs is only known at Endpoint-build time.
type demandPump struct {
	name    string
	trigger <-chan struct{}
	ack     func(bool)
}

// waitForDemand blocks until one gated input announces demand, returning
// the ack that must be invoked exactly once after this tick resolves.
func waitForDemand(ctx context.Context, pumps []demandPump) (func(bool), bool) {
	if len(pumps) == 0 {
		return func(bool) {}, true
	}
	cases := make([]reflect.SelectCase, 0, len(pumps)+1)
	for _, p := range pumps {
		cases = append(cases, reflect.SelectCase{
			Dir:  reflect.SelectRecv,
			Chan: reflect.ValueOf(p.trigger),
		})
	}
	cases = append(cases, reflect.SelectCase{
		Dir:  reflect.SelectRecv,
		Chan: reflect.ValueOf(ctx.Done()),
	})

	chosen, _, recvOK := reflect.Select(cases)
	if chosen == len(pumps) || !recvOK {
		return nil, false
	}
	return pumps[chosen].ack, true
}
