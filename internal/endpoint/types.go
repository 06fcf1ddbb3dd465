// Package endpoint implements the request builder and endpoint engine from
// spec.md §4.G/§4.H: per tick, it zips a set of provider-backed input
// streams into a template environment, renders a request, submits it
// through the HTTP client contract, and hands the response to
// internal/response for parsing and fan-out.
//
// Grounded on internal/review/pipeline.go's staged-orchestration shape
// (ordered stages, a progress-callback style hook reused here as a per-tick
// stats hook) and internal/review/batcher.go's bin-packing-as-gating idiom,
// generalized into a semaphore + capacity-probe parallelism gate.
package endpoint

import (
	"time"

	"github.com/sanix-darker/loadgun/internal/body"
	"github.com/sanix-darker/loadgun/internal/channel"
	"github.com/sanix-darker/loadgun/internal/jsonvalue"
	"github.com/sanix-darker/loadgun/internal/provider"
	"github.com/sanix-darker/loadgun/internal/template"
)

// StreamItemKind tags a StreamItem variant (spec.md §3).
type StreamItemKind int

const (
	// KindTemplateValue carries one named value pulled from a provider.
	KindTemplateValue StreamItemKind = iota
	// KindDeclare carries an already-reduced value computed from a
	// declare-expression over other streams' values.
	KindDeclare
	// KindNone is a pacing tick carrying no value (start-stream ticks).
	KindNone
)

// StreamItem is one input stream's contribution to a tick.
type StreamItem struct {
	Kind        StreamItemKind
	Name        string
	Value       jsonvalue.V
	AutoReturn  *provider.AutoReturn   // KindTemplateValue
	AutoReturns []*provider.AutoReturn // KindDeclare
}

// HeaderTemplate is a templated request header.
type HeaderTemplate struct {
	Name     string
	Template template.Template
}

// Outgoing is one target of value fan-out: either another provider's
// channel or a logger's channel (spec.md §3).
type Outgoing struct {
	Name         string
	Select       template.Select
	Tx           *channel.Sender[jsonvalue.V]
	SendBehavior provider.SendBehavior
	Logger       bool
	OnDemandAck  channel.Ack // non-nil only when Tx's provider is on-demand
}

// Input is one provider feeding an endpoint: a receiver, the provider's
// default re-insertion policy, and (when the provider is on-demand paced)
// its pacing handle.
type Input struct {
	Name          string
	Rx            *channel.Receiver[jsonvalue.V]
	AutoReturn    *provider.SendBehavior
	ReturnTo      *channel.Sender[jsonvalue.V]
	OnDemand      *channel.OnDemandReceiver[jsonvalue.V]
	OnDemandGated bool // true if this provider's pacing gates tick intake
	NoAutoReturns bool
}

// Endpoint is the compiled descriptor the engine drives (spec.md §6
// "Inbound configuration").
type Endpoint struct {
	ID      string
	Method  string
	URL     template.Template
	Headers []HeaderTemplate
	Body    body.Template

	Inputs  []Input
	Provides []Outgoing
	Logs     []Outgoing

	MaxParallelRequests int // 0 means unlimited
	Timeout             time.Duration
	Tags                map[string]template.Template
	NoAutoReturns       bool
	ConfigPath          string
}

// blockLimits returns the channel.Limit probes for every Block-mode
// outgoing, used by the concurrency ceiling to pause tick intake when any
// of them is at capacity (spec.md §4.H).
func (e *Endpoint) blockLimits() []channel.Limit {
	var limits []channel.Limit
	for _, o := range e.Provides {
		if o.SendBehavior == provider.SendBlock {
			limits = append(limits, o.Tx.Limit())
		}
	}
	for _, o := range e.Logs {
		if o.SendBehavior == provider.SendBlock {
			limits = append(limits, o.Tx.Limit())
		}
	}
	return limits
}

func (e *Endpoint) providesAnything() bool {
	return len(e.Provides) > 0
}
