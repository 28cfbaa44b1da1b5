package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sarchlab/garnetvis/config"
	"github.com/sarchlab/garnetvis/datarecording"
	"github.com/sarchlab/garnetvis/experiment"
	"github.com/sarchlab/garnetvis/monitoring"
	"github.com/sarchlab/garnetvis/runner"
	"github.com/sarchlab/garnetvis/runstore"
	"github.com/sarchlab/garnetvis/server"
	"github.com/tebeka/atexit"
)

// DefaultIndex is where the run index is written when none is given.
const DefaultIndex = "garnetvis_runs"

type options struct {
	envFile       string
	logJSON       bool
	logLevel      string
	workDir       string
	outDir        string
	topologyDir   string
	runDir        string
	experimentDir string
	presetDir     string
	index         string
}

var opts options

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&opts.envFile, "env-file", ".env", "File to load environment variables from")
	f.BoolVar(&opts.logJSON, "log-json", false, "Write logs as JSON")
	f.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	f.StringVar(&opts.workDir, "work-dir", "", "Directory the simulator runs in")
	f.StringVar(&opts.outDir, "out-dir", config.DefaultOutDir, "gem5 output directory")
	f.StringVar(&opts.topologyDir, "topology-dir", config.DefaultTopologyDir,
		"Directory of custom topology scripts")
	f.StringVar(&opts.runDir, "run-dir", runstore.DefaultRunDir, "Directory of saved runs")
	f.StringVar(&opts.experimentDir, "experiment-dir", runstore.DefaultExperimentDir,
		"Directory of sweep results")
	f.StringVar(&opts.presetDir, "preset-dir", server.DefaultPresetDir,
		"Directory of configuration presets")
	f.StringVar(&opts.index, "index", DefaultIndex,
		"Run index: a SQLite path, sqlite:// or clickhouse:// URL; empty disables it")
}

// app holds the parts shared by the commands.
type app struct {
	recorder datarecording.DataRecorder
	index    *datarecording.RunIndex
	exec     *datarecording.ExecRecorder
	monitor  *monitoring.Monitor
	runner   *runner.Runner
	exp      *experiment.Experiment
}

// newApp wires the runner and the experiment from the flags. The run index
// is flushed when the program exits.
func newApp(kind string) (*app, error) {
	a := &app{monitor: monitoring.NewMonitor()}

	if opts.index != "" {
		rec, err := datarecording.Open(opts.index)
		if err != nil {
			return nil, fmt.Errorf("opening run index: %w", err)
		}

		a.recorder = rec
		a.index = datarecording.NewRunIndex(rec)
		a.exec = datarecording.NewExecRecorder(rec)
		a.exec.Start()

		atexit.Register(func() {
			a.exec.End()

			if err := a.index.Close(); err != nil {
				slog.Warn("closing run index", "error", err)
			}
		})
	}

	b := runner.MakeBuilder().
		WithWorkDir(opts.workDir).
		WithKind(kind).
		WithStore(runstore.New(opts.runDir, runstore.RunLayout)).
		WithCommandBuilder(config.MakeCommandBuilder().
			WithOutDir(opts.outDir).
			WithTopologyDir(opts.topologyDir))

	if a.index != nil {
		b = b.WithIndex(a.index)
	}

	a.runner = b.Build()

	a.exp = experiment.MakeBuilder().
		WithRunner(a.runner).
		WithMonitor(a.monitor).
		WithStore(runstore.New(opts.experimentDir, runstore.ExperimentLayout)).
		Build()

	return a, nil
}

// signalContext is cancelled on interrupt or termination.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// configFrom starts from a preset, or the defaults, and applies key=value
// settings in order.
func configFrom(preset string, sets []string) (*config.Config, error) {
	c := config.New()

	if preset != "" {
		var err error

		c, err = config.PresetStore{Dir: opts.presetDir}.Load(preset)
		if err != nil {
			return nil, err
		}
	}

	for _, s := range sets {
		k, v, ok := strings.Cut(s, "=")
		if !ok {
			return nil, fmt.Errorf("%q is not key=value", s)
		}

		if err := c.Apply(strings.TrimSpace(k), strings.TrimSpace(v)); err != nil {
			return nil, err
		}
	}

	return c, nil
}
