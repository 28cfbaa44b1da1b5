// Package experiment sweeps one parameter over a list of values and analyzes
// the results.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sarchlab/garnetvis/config"
	"github.com/sarchlab/garnetvis/monitoring"
	"github.com/sarchlab/garnetvis/runner"
	"github.com/sarchlab/garnetvis/runstore"
	"github.com/sarchlab/garnetvis/stats"
)

// ErrNotSweepable is returned for parameters that cannot be swept.
var ErrNotSweepable = errors.New("parameter cannot be swept")

// DefaultValues is the value list offered for a new sweep.
const DefaultValues = "0.01, 0.02, 0.03, 0.04"

// DefaultKey is the parameter offered for a new sweep.
const DefaultKey = "injectionrate"

// A Sweep runs the base configuration once per value of one parameter.
type Sweep struct {
	Key    string
	Values []string
	Base   *config.Config
}

// ParseValues splits a comma-separated list, dropping empty items.
func ParseValues(s string) []string {
	values := []string{}
	for _, v := range strings.Split(s, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			values = append(values, v)
		}
	}

	return values
}

// A Failure is a sweep point that did not produce a record.
type Failure struct {
	Value    string `json:"value"`
	ExitCode int    `json:"exit_code"`
	Stderr   string `json:"stderr"`
}

// A Report summarizes a sweep.
type Report struct {
	Key       string    `json:"key"`
	Total     int       `json:"total"`
	Completed int       `json:"completed"`
	Saved     []string  `json:"saved"`
	Failures  []Failure `json:"failures"`
	Cancelled bool      `json:"cancelled"`
}

// Experiment runs sweeps.
type Experiment struct {
	runner   *runner.Runner
	executor runner.Executor
	store    *runstore.Store
	builder  config.CommandBuilder
	parser   *stats.Parser
	monitor  *monitoring.Monitor
	workDir  string
	statsAt  string
}

// Builder can build experiments.
type Builder struct {
	runner  *runner.Runner
	store   *runstore.Store
	parser  *stats.Parser
	monitor *monitoring.Monitor
}

// MakeBuilder creates a builder.
func MakeBuilder() Builder {
	return Builder{}
}

// WithRunner shares the executor and the command generation of a runner.
// A sweep holds the runner for its whole duration, so single runs and sweeps
// never write the same stats file at once.
func (b Builder) WithRunner(r *runner.Runner) Builder {
	b.runner = r
	return b
}

// WithStore sets where sweep records are saved.
func (b Builder) WithStore(s *runstore.Store) Builder {
	b.store = s
	return b
}

// WithParser sets which statistics are kept.
func (b Builder) WithParser(p *stats.Parser) Builder {
	b.parser = p
	return b
}

// WithMonitor reports the sweep progress through a monitor.
func (b Builder) WithMonitor(m *monitoring.Monitor) Builder {
	b.monitor = m
	return b
}

// Build creates the experiment.
func (b Builder) Build() *Experiment {
	r := b.runner
	if r == nil {
		r = runner.MakeBuilder().Build()
	}

	e := &Experiment{
		runner:   r,
		executor: r.Executor(),
		store:    b.store,
		builder:  r.CommandBuilder(),
		parser:   b.parser,
		monitor:  b.monitor,
		workDir:  r.WorkDir(),
		statsAt:  r.StatsPath(),
	}

	if e.store == nil {
		e.store = runstore.New(runstore.DefaultExperimentDir,
			runstore.ExperimentLayout)
	}

	if e.parser == nil {
		e.parser = stats.NewParser()
	}

	if e.monitor == nil {
		e.monitor = monitoring.NewMonitor()
	}

	return e
}

// Store returns where sweep records are kept.
func (e *Experiment) Store() *runstore.Store {
	return e.store
}

// Run clears the previous sweep and runs the new one. A point that fails is
// reported and the sweep goes on. Cancelling the context stops the sweep
// before the next point. It fails with runner.ErrBusy while the runner is
// running something else.
func (e *Experiment) Run(ctx context.Context, s Sweep) (*Report, error) {
	release, err := e.runner.Reserve()
	if err != nil {
		return nil, err
	}
	defer release()

	return e.sweep(ctx, s)
}

func (e *Experiment) sweep(ctx context.Context, s Sweep) (*Report, error) {
	if !config.IsSweepable(s.Key) {
		return nil, fmt.Errorf("%w: %s", ErrNotSweepable, s.Key)
	}

	if err := e.store.Reset(); err != nil {
		return nil, fmt.Errorf("clearing %s: %w", e.store.Dir(), err)
	}

	report := &Report{
		Key:      s.Key,
		Total:    len(s.Values),
		Saved:    []string{},
		Failures: []Failure{},
	}

	bar := e.monitor.CreateProgressBar("Sweep "+s.Key, uint64(len(s.Values)))
	defer e.monitor.CompleteProgressBar(bar)

	for i, v := range s.Values {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}

		slog.Info("sweep point",
			"index", i+1, "total", len(s.Values), "key", s.Key, "value", v)

		bar.IncrementInProgress(1)

		if err := e.runPoint(ctx, s, v, report); err != nil {
			bar.MoveInProgressToFailed(1)

			if ctx.Err() != nil {
				report.Cancelled = true
				break
			}

			continue
		}

		bar.MoveInProgressToFinished(1)
		report.Completed++
	}

	return report, nil
}

func (e *Experiment) runPoint(
	ctx context.Context,
	s Sweep,
	value string,
	report *Report,
) error {
	c := s.Base.Clone()
	if err := c.Apply(s.Key, value); err != nil {
		report.Failures = append(report.Failures,
			Failure{Value: value, ExitCode: -1, Stderr: err.Error()})
		return err
	}

	argv := e.builder.Build(c)

	out, err := e.executor.Run(ctx, runner.Invocation{Argv: argv, Dir: e.workDir})
	if err == nil && out.ExitCode != 0 {
		err = fmt.Errorf("exit code %d", out.ExitCode)
	}

	if err != nil {
		stderr := out.Stderr
		if stderr == "" {
			stderr = err.Error()
		}

		slog.Warn("sweep point failed", "key", s.Key, "value", value, "error", err)
		report.Failures = append(report.Failures,
			Failure{Value: value, ExitCode: out.ExitCode, Stderr: stderr})

		return err
	}

	st, err := e.parser.ParseFile(e.statsAt)
	if err != nil && !errors.Is(err, stats.ErrNotFound) {
		slog.Warn("reading stats failed", "error", err)
	}

	rec, err := e.store.Save(c.Map(), st)
	if err != nil {
		report.Failures = append(report.Failures,
			Failure{Value: value, Stderr: err.Error()})
		return err
	}

	report.Saved = append(report.Saved, rec.RunName)

	return nil
}
