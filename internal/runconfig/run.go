package runconfig

import (
	"context"
	"sync"

	"github.com/sanix-darker/loadgun/internal/endpoint"
	"github.com/sanix-darker/loadgun/internal/httpclient"
	"github.com/sanix-darker/loadgun/internal/killer"
	"github.com/sanix-darker/loadgun/internal/stats"
)

// Drive starts every compiled endpoint's engine loop and blocks until the
// killer reports a terminal outcome (spec.md §5 "top-level supervision
// awaits that message and cancels all endpoint drivers"). It cancels the
// run's context on return so every endpoint.Run goroutine unwinds.
func Drive(parent context.Context, c *Compiled, client *httpclient.Client, sink *stats.Sink, k *killer.Killer) killer.Outcome {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	var wg sync.WaitGroup
	for _, ep := range c.Endpoints {
		ep := ep
		wg.Add(1)
		go func() {
			defer wg.Done()
			endpoint.Run(ctx, ep, client, sink, k)
		}()
	}

	outcome := k.Wait()
	cancel()
	wg.Wait()
	return outcome
}
