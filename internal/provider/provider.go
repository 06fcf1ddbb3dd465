// Package provider builds the value-producing side of a run: the channel
// pair plus on-demand pacing handle that feeds one named input into the
// endpoint engine, together with the AutoReturn guard that decides what
// happens to a captured value the engine never consumed.
//
// Each constructor mirrors one of pewpew's providers.rs factory functions
// (file, response, literals, range, logger) but spawns a goroutine feeding a
// channel.Sender instead of forwarding a futures::Stream, since Go has no
// stream combinator library in the standard toolchain.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sanix-darker/loadgun/internal/channel"
	"github.com/sanix-darker/loadgun/internal/errs"
	"github.com/sanix-darker/loadgun/internal/fileprovider"
	"github.com/sanix-darker/loadgun/internal/jsonvalue"
	"github.com/sanix-darker/loadgun/internal/killer"
	"github.com/sanix-darker/loadgun/internal/pathutil"
)

// SendBehavior governs how a captured value is re-inserted into its
// originating provider when a tick fails to consume it (spec.md §3).
type SendBehavior int

const (
	// SendBlock applies backpressure: the owning tick blocks until the
	// channel has room.
	SendBlock SendBehavior = iota
	// SendForce replaces the oldest buffered value when the channel is full.
	SendForce
	// SendIfNotFull drops the value silently if the channel is full.
	SendIfNotFull
	// SendNoOp always drops the value, never inserting it.
	SendNoOp
)

func (b SendBehavior) String() string {
	switch b {
	case SendBlock:
		return "block"
	case SendForce:
		return "force"
	case SendIfNotFull:
		return "if_not_full"
	case SendNoOp:
		return "no_op"
	default:
		return "unknown"
	}
}

// Provider is one named input feeding the endpoint engine: a channel pair
// plus the on-demand pacing handle derived from its receiver, and the
// default re-insertion policy for values captured from it.
type Provider struct {
	AutoReturn *SendBehavior
	Tx         *channel.Sender[jsonvalue.V]
	Rx         *channel.Receiver[jsonvalue.V]
	OnDemand   *channel.OnDemandReceiver[jsonvalue.V]
}

func newProvider(autoReturn *SendBehavior, tx *channel.Sender[jsonvalue.V], rx *channel.Receiver[jsonvalue.V]) *Provider {
	return &Provider{
		AutoReturn: autoReturn,
		Tx:         tx,
		Rx:         rx,
		OnDemand:   rx.OnDemand(),
	}
}

// FileConfig mirrors config.FileProvider: the declared shape of a file-backed
// provider before path resolution.
type FileConfig struct {
	Path       string
	Format     string // "csv", "json", "line"
	Repeat     bool
	Buffer     channel.Limit2
	AutoReturn *SendBehavior
	CSV        fileprovider.CSVHeaders
	Delimiter  rune
	NDJSON     bool
}

// File resolves cfg.Path relative to configPath, opens the matching
// fileprovider.Reader, and spawns a goroutine that feeds every value it
// yields into the returned Provider's channel until the reader reaches
// end-of-stream or errors. On error it reports to k and returns.
func File(ctx context.Context, cfg FileConfig, configPath string, k *killer.Killer) (*Provider, error) {
	resolvedPath := pathutil.Resolve(cfg.Path, configPath)

	reader, err := fileprovider.New(cfg.Format, fileprovider.Options{
		Path:      resolvedPath,
		Repeat:    cfg.Repeat,
		Headers:   cfg.CSV,
		Delimiter: cfg.Delimiter,
		NDJSON:    cfg.NDJSON,
	})
	if err != nil {
		return nil, errs.Other("creating file reader from file `%s`: %v", resolvedPath, err)
	}

	tx, rx := channel.NewChannel[jsonvalue.V](cfg.Buffer)
	p := newProvider(cfg.AutoReturn, tx, rx)

	go func() {
		defer reader.Close()
		defer tx.Close()
		for {
			v, readErr := reader.Next()
			if readErr != nil {
				if !errors.Is(readErr, io.EOF) {
					k.Kill(errs.Other("reading file `%s`: %v", resolvedPath, readErr))
				}
				return
			}
			if sendErr := tx.Send(ctx, v); sendErr != nil {
				return
			}
		}
	}()

	return p, nil
}

// ResponseConfig mirrors config.ResponseProvider.
type ResponseConfig struct {
	Buffer     channel.Limit2
	AutoReturn *SendBehavior
}

// Response builds a provider with no producer goroutine: values only ever
// arrive via outgoing fan-out from other endpoints' response handlers.
func Response(cfg ResponseConfig) *Provider {
	tx, rx := channel.NewChannel[jsonvalue.V](cfg.Buffer)
	return newProvider(cfg.AutoReturn, tx, rx)
}

// Literals builds a provider that round-robins forever over values, the Go
// analogue of pewpew's RepeaterStream. The channel is always Auto limit
// since the producer never blocks on anything but the consumer.
func Literals(ctx context.Context, values []jsonvalue.V, autoReturn *SendBehavior) *Provider {
	tx, rx := channel.NewChannel[jsonvalue.V](channel.AutoLimit())
	p := newProvider(autoReturn, tx, rx)

	go func() {
		defer tx.Close()
		if len(values) == 0 {
			return
		}
		i := 0
		for {
			if err := tx.Send(ctx, values[i]); err != nil {
				return
			}
			i = (i + 1) % len(values)
		}
	}()

	return p
}

// Range builds a provider that emits start, start+step, ... up to (and
// including, if it lands exactly on) end, then closes. A negative step
// counts down; step of zero is treated as 1 to avoid an infinite loop.
func Range(ctx context.Context, start, end, step int) *Provider {
	tx, rx := channel.NewChannel[jsonvalue.V](channel.AutoLimit())
	p := newProvider(nil, tx, rx)

	if step == 0 {
		step = 1
	}

	go func() {
		defer tx.Close()
		for n := start; (step > 0 && n <= end) || (step < 0 && n >= end); n += step {
			if err := tx.Send(ctx, float64(n)); err != nil {
				return
			}
		}
	}()

	return p
}

// ErrUnknownFormat builds the error for an unregistered file format. File
// does not return it: an unregistered format surfaces from File as a
// TestError wrapping fileprovider's own unknown-format error.
func ErrUnknownFormat(format string) error {
	return fmt.Errorf("provider: unknown file format %q", format)
}
