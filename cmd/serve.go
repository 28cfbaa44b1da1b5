package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/browser"
	"github.com/sarchlab/garnetvis/experiment"
	"github.com/sarchlab/garnetvis/server"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	port  int
	open  bool
	trace string
	seed  bool
}

var serveOpts serveOptions

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web interface.",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		return serve(ctx)
	},
}

func init() {
	addServeFlags(serveCmd)
	rootCmd.AddCommand(serveCmd)
}

func addServeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntVar(&serveOpts.port, "port", server.DefaultPort, "Port to listen on")
	f.BoolVar(&serveOpts.open, "open", false, "Open the page in a browser")
	f.StringVar(&serveOpts.trace, "trace", "", "Flit event log to animate")
	f.BoolVar(&serveOpts.seed, "seed", true,
		"Write a sample run when the run directory does not exist")
}

func serve(ctx context.Context) error {
	a, err := newApp("run")
	if err != nil {
		return err
	}

	if serveOpts.seed {
		seeded, err := a.runner.Store().SeedSample()
		if err != nil {
			return fmt.Errorf("seeding %s: %w", a.runner.Store().Dir(), err)
		}

		if seeded {
			slog.Info("sample run written", "dir", a.runner.Store().Dir())
		}
	}

	b := server.MakeBuilder().
		WithRunner(a.runner).
		WithMonitor(a.monitor).
		WithExperiments(experiment.NewManager(a.exp)).
		WithPresetDir(opts.presetDir)

	if serveOpts.trace != "" {
		b = b.WithTracePath(serveOpts.trace)
	}

	srv := b.Build()

	addr := fmt.Sprintf(":%d", serveOpts.port)
	url := fmt.Sprintf("http://localhost:%d", serveOpts.port)

	color.Green("Visualizer running at %s", url)

	if serveOpts.open {
		go func() {
			time.Sleep(500 * time.Millisecond)

			if err := browser.OpenURL(url); err != nil {
				slog.Warn("could not open a browser", "error", err)
			}
		}()
	}

	return srv.ListenAndServe(ctx, addr)
}

