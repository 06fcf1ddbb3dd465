// Package logger builds the value-logging sinks described in spec.md §4.D:
// a named destination ("stderr", "stdout", or a file path) that drains a
// channel of values, optionally pretty-printing them, and optionally
// killing the run after a fixed number of lines.
//
// The destination-string dispatch (switch on a plain string rather than an
// enum type) follows internal/printers' destination-selection idiom,
// generalized from a single stderr confirm prompt to three sink kinds.
package logger

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/sanix-darker/loadgun/internal/channel"
	"github.com/sanix-darker/loadgun/internal/errs"
	"github.com/sanix-darker/loadgun/internal/jsonvalue"
	"github.com/sanix-darker/loadgun/internal/killer"
	"github.com/sanix-darker/loadgun/internal/pathutil"
)

// Config mirrors config.Logger (spec.md §6 inbound structures): the
// destination, whether to pretty-print non-string values, an optional line
// limit, and whether hitting that limit should end the run.
type Config struct {
	To     string // "stderr", "stdout", or a file path
	Pretty bool
	Limit  int // 0 means unbounded
	Kill   bool
}

// Start builds the logger's channel and spawns the goroutine draining it
// into the configured destination. configPath is used to resolve a
// file-path destination the same way file providers resolve theirs.
func Start(cfg Config, configPath string, k *killer.Killer) (*channel.Sender[jsonvalue.V], error) {
	tx, rx := channel.NewChannel[jsonvalue.V](channel.IntegerLimit(5))

	var w io.WriteCloser
	switch cfg.To {
	case "stderr":
		w = nopCloser{os.Stderr}
	case "stdout":
		w = nopCloser{os.Stdout}
	default:
		resolved := pathutil.Resolve(cfg.To, configPath)
		f, err := os.Create(resolved)
		if err != nil {
			tx.Close()
			return nil, errs.Other("creating logger file `%s`: %v", resolved, err)
		}
		w = f
	}

	go runSink(rx, w, cfg, k)
	return tx, nil
}

func runSink(rx *channel.Receiver[jsonvalue.V], w io.WriteCloser, cfg Config, k *killer.Killer) {
	defer w.Close()
	bw := bufio.NewWriter(w)
	defer bw.Flush()

	counter := 0
	keepLogging := true

	for {
		v, ok, err := rx.Receive(nil)
		if err != nil || !ok {
			return
		}

		counter++
		if keepLogging {
			if writeErr := writeValue(bw, v, cfg.Pretty); writeErr != nil {
				k.Kill(errs.Other("writing to logger `%s`: %v", cfg.To, writeErr))
				return
			}
			bw.Flush()
		}

		if cfg.Limit > 0 && counter >= cfg.Limit {
			if cfg.Kill {
				k.Kill(errs.KilledByLogger)
				return
			}
			keepLogging = false
			continue
		}
		if cfg.Limit == 0 && cfg.Kill {
			k.Kill(errs.KilledByLogger)
			return
		}
	}
}

func writeValue(w io.Writer, v jsonvalue.V, pretty bool) error {
	if pretty && !jsonvalue.IsString(v) {
		_, err := fmt.Fprintln(w, jsonvalue.ToPrettyString(v))
		return err
	}
	_, err := fmt.Fprintln(w, jsonvalue.ToDisplayString(v))
	return err
}

// nopCloser adapts os.Stdout/os.Stderr (which must never be closed by the
// sink) to io.WriteCloser.
type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
