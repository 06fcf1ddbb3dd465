/*
Copyright © 2023 sanix-darker <s4nixd@gmail.com>
*/

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/sanix-darker/loadgun/internal/config"
	"github.com/sanix-darker/loadgun/internal/httpclient"
	"github.com/sanix-darker/loadgun/internal/killer"
	"github.com/sanix-darker/loadgun/internal/runconfig"
	"github.com/sanix-darker/loadgun/internal/stats"
	"github.com/spf13/cobra"
)

var (
	runDuration     time.Duration
	runOutputPath   string
	runNoAutoReturn bool
	runQuiet        bool
)

// runCmd drives a test declaration to completion, printing a one-line
// summary and exiting non-zero on the run's first fatal error (spec.md §7
// "user-visible behaviour").
var runCmd = &cobra.Command{
	Use:   "run [test.yml]",
	Short: "Run a load test from a YAML test declaration.",
	Long:  `Load providers, loggers, and endpoints from a YAML test declaration and drive the run to completion.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTest(args[0])
	},
}

func init() {
	runCmd.Flags().DurationVarP(&runDuration, "duration", "d", 0, "override the run's overall duration (0 means run until endpoints end themselves)")
	runCmd.Flags().StringVarP(&runOutputPath, "output", "o", "", "write a stats summary to this file instead of stdout")
	runCmd.Flags().BoolVar(&runNoAutoReturn, "no-auto-return", false, "disable auto-return for every endpoint, overriding the declaration")
	runCmd.Flags().BoolVar(&runQuiet, "quiet", false, "suppress the per-request summary line")
	rootCmd.AddCommand(runCmd)
}

func runTest(path string) error {
	cfg := config.NewDefaultConfig()
	cfg.Duration = runDuration
	cfg.OutputPath = runOutputPath
	cfg.NoAutoReturn = runNoAutoReturn
	cfg.Quiet = runQuiet

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading test declaration %q: %w", path, err)
	}
	doc, err := runconfig.Parse(raw)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	k := killer.New()
	compiled, err := runconfig.Compile(ctx, doc, path, k)
	if err != nil {
		return err
	}
	if cfg.NoAutoReturn {
		for _, ep := range compiled.Endpoints {
			ep.NoAutoReturns = true
		}
	}

	var completed, errored int
	sink := stats.NewSink(func(m stats.Message) {
		switch m.Kind {
		case stats.RequestCompleted:
			completed++
		case stats.RequestErrored:
			errored++
		}
		if !cfg.Quiet && cfg.Debug {
			fmt.Fprintf(cfg.ErrWriter, "%s: %+v\n", m.EndpointID, m)
		}
	})
	defer sink.Close()

	client := httpclient.New(httpclient.Options{
		Timeout:            cfg.RequestTimeout,
		MaxIdleConns:       cfg.MaxIdleConns,
		DisableCompression: cfg.DisableGzip,
	})

	runCtx := ctx
	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
		go func() {
			<-runCtx.Done()
			k.End(killer.ReasonCompleted)
		}()
	}
	go func() {
		<-ctx.Done()
		k.End(killer.ReasonCtrlC)
	}()

	outcome := runconfig.Drive(runCtx, compiled, client, sink, k)

	summary := fmt.Sprintf("completed=%d errored=%d reason=%s\n", completed, errored, outcome.Reason)
	out := cfg.OutWriter
	if cfg.OutputPath != "" {
		f, werr := os.Create(cfg.OutputPath)
		if werr != nil {
			return fmt.Errorf("writing stats summary to %q: %w", cfg.OutputPath, werr)
		}
		defer f.Close()
		out = f
	}
	fmt.Fprint(out, summary)

	if outcome.Err != nil {
		fmt.Fprintln(cfg.ErrWriter, outcome.Err.Error())
		return outcome.Err
	}
	return nil
}
