// Package response implements spec.md §4.I: parsing an httpclient.Response
// into the template environment's response.* keys, recording stats, and
// fanning the resulting values out to every provides/logs target.
//
// Grounded on pewpew's RequestMaker::send_request tail (original_source/src/
// request.rs, the response-handling half starting at the response future's
// and_then chain) and its BlockSender (request.rs lines 663-727), which this
// package's blockSend reproduces as a straight-line blocking loop instead of
// a hand-rolled Future::poll state machine — Go goroutines already give each
// in-flight request its own stack, so the poll/Drop dance pewpew needed to
// stay allocation-free in a single-threaded executor has no Go analogue.
package response

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/sanix-darker/loadgun/internal/channel"
	"github.com/sanix-darker/loadgun/internal/errs"
	"github.com/sanix-darker/loadgun/internal/httpclient"
	"github.com/sanix-darker/loadgun/internal/jsonvalue"
	"github.com/sanix-darker/loadgun/internal/provider"
)

// Outgoing is the subset of endpoint.Outgoing this package needs, mirrored
// here rather than imported to avoid a dependency cycle between endpoint and
// response (endpoint drives response, response must not drive endpoint).
type Outgoing struct {
	Name         string
	Select       Select
	Tx           *channel.Sender[jsonvalue.V]
	SendBehavior provider.SendBehavior
	Logger       bool
	OnDemandAck  channel.Ack
}

// Select mirrors template.Select without importing it, for the same
// cycle-avoidance reason as Outgoing.
type Select interface {
	Query(env jsonvalue.Object) ([]jsonvalue.V, error)
}

// Populate folds an httpclient.Response into env's response.* keys, the way
// spec.md §4.I describes: status, headers (multi-valued folded into
// arrays), and a content-type-aware body decode.
func Populate(env jsonvalue.Object, resp httpclient.Response, rtt time.Duration) {
	jsonvalue.SetPath(env, "response.status", float64(resp.Status))
	jsonvalue.SetPath(env, "response.status-text", resp.StatusText)
	jsonvalue.SetPath(env, "response.start-line", fmt.Sprintf("%s %d %s", resp.Proto, resp.Status, http.StatusText(resp.Status)))

	headerObj := jsonvalue.NewObject()
	for k, vs := range resp.Headers {
		if len(vs) == 1 {
			headerObj[k] = vs[0]
		} else {
			arr := make([]jsonvalue.V, len(vs))
			for i, v := range vs {
				arr[i] = v
			}
			headerObj[k] = arr
		}
	}
	jsonvalue.SetPath(env, "response.headers", headerObj)
	jsonvalue.SetPath(env, "response.body", decodeBody(resp.Headers, resp.Body))
	jsonvalue.SetPath(env, "stats.rtt", float64(rtt.Microseconds()))
}

// decodeBody parses the body as JSON when Content-Type says so, else hands
// back the raw string (spec.md §4.I "content-type-aware body decode").
func decodeBody(headers http.Header, body []byte) jsonvalue.V {
	ct := headers.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(ct)
	if mediaType == "application/json" || strings.HasSuffix(mediaType, "+json") {
		if v, ok := jsonvalue.ParseJSON(body); ok {
			return v
		}
	}
	return string(body)
}

// FanOut evaluates every target's Select against env and delivers the
// resulting values per its SendBehavior, implementing spec.md §4.I fan-out.
// The first Select error among the targets is returned; a failure fanning
// out to one target does not stop delivery to the others.
func FanOut(ctx context.Context, env jsonvalue.Object, targets []Outgoing) error {
	var firstErr error
	for _, t := range targets {
		values, err := t.Select.Query(env)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		delivered := deliver(ctx, t, values)
		if t.OnDemandAck != nil {
			t.OnDemandAck(delivered)
		}
	}
	return firstErr
}

// deliver sends every value to t.Tx per t.SendBehavior, reporting whether at
// least one value was actually enqueued (the signal an on-demand ack needs).
// SendBlock uses blockSend's straight-line blocking loop (pewpew's
// BlockSender, reproduced without the Future::poll machinery).
func deliver(ctx context.Context, t Outgoing, values []jsonvalue.V) bool {
	if len(values) == 0 {
		return false
	}
	switch t.SendBehavior {
	case provider.SendBlock:
		return blockSend(ctx, t.Tx, values)
	case provider.SendForce:
		added := false
		for _, v := range values {
			if t.Tx.ForceSend(v) == channel.SendSuccess {
				added = true
			}
		}
		return added
	case provider.SendIfNotFull:
		added := false
		for _, v := range values {
			if state, _ := t.Tx.TrySend(v); state == channel.SendSuccess {
				added = true
			}
		}
		return added
	case provider.SendNoOp:
		return false
	default:
		return false
	}
}

// blockSend enqueues every value in order, blocking while the channel is
// full, stopping early (without error) once the channel has no receivers
// left — mirroring BlockSender::poll's SendState::Closed case, which ends
// the future rather than failing it.
func blockSend(ctx context.Context, tx *channel.Sender[jsonvalue.V], values []jsonvalue.V) bool {
	added := false
	for _, v := range values {
		if err := tx.Send(ctx, v); err != nil {
			return added
		}
		added = true
	}
	return added
}

// ClassifyStatus reports whether an HTTP status code should count as a
// RecoverableError::HttpErr for stats purposes (spec.md §4.I treats 5xx and
// unreachable transports alike for the "errored" stats bucket, while 4xx is
// a successful request that merely returned a client error status).
func ClassifyStatus(status int) error {
	if status >= 500 {
		return errs.Recoverable(errs.RecoverableHTTPErr, httpStatusError(status))
	}
	return nil
}

type httpStatusError int

func (e httpStatusError) Error() string {
	return http.StatusText(int(e))
}
