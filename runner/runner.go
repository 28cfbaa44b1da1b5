// Package runner runs the gem5 simulator for a configuration and keeps the
// result.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/sarchlab/garnetvis/config"
	"github.com/sarchlab/garnetvis/datarecording"
	"github.com/sarchlab/garnetvis/monitoring"
	"github.com/sarchlab/garnetvis/runstore"
	"github.com/sarchlab/garnetvis/stats"
)

var (
	// ErrBusy is returned when a run is requested while another is going on.
	ErrBusy = errors.New("a simulation is already running")

	// ErrExecutableNotFound is returned when the simulator binary is missing.
	ErrExecutableNotFound = errors.New("executable not found")
)

// Status is how a run ended.
type Status string

// Run statuses.
const (
	StatusSuccess  Status = "success"
	StatusNoStats  Status = "no_stats"
	StatusFailed   Status = "failed"
	StatusNotFound Status = "not_found"
	StatusError    Status = "error"
)

// Message levels.
const (
	LevelSuccess = "success"
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// A Message is a line of the run report shown to the user.
type Message struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// Result is the report of one run.
type Result struct {
	ID            string              `json:"id"`
	Status        Status              `json:"status"`
	Command       []string            `json:"command"`
	CommandString string              `json:"command_string"`
	ExitCode      int                 `json:"exit_code"`
	Stdout        string              `json:"stdout"`
	Stderr        string              `json:"stderr"`
	Started       time.Time           `json:"started"`
	Duration      float64             `json:"duration_seconds"`
	Peak          monitoring.Resource `json:"peak"`
	RunName       string              `json:"run_name,omitempty"`
	Stats         stats.Stats         `json:"stats,omitempty"`
	Messages      []Message           `json:"messages"`
}

func (r *Result) addMessage(level, text string) {
	r.Messages = append(r.Messages, Message{Level: level, Text: text})
}

// Runner runs one simulation at a time.
type Runner struct {
	executor Executor
	store    *runstore.Store
	index    *datarecording.RunIndex
	builder  config.CommandBuilder
	parser   *stats.Parser
	workDir  string
	kind     string

	mu   sync.Mutex
	busy bool
	last *Result
}

// Builder can build runners.
type Builder struct {
	executor Executor
	store    *runstore.Store
	index    *datarecording.RunIndex
	builder  config.CommandBuilder
	parser   *stats.Parser
	workDir  string
	kind     string
}

// MakeBuilder creates a builder with a process executor that saves records
// to the default run directory.
func MakeBuilder() Builder {
	return Builder{
		builder: config.MakeCommandBuilder(),
		kind:    "single",
	}
}

// WithExecutor sets how processes are run.
func (b Builder) WithExecutor(e Executor) Builder {
	b.executor = e
	return b
}

// WithStore sets where run records are saved.
func (b Builder) WithStore(s *runstore.Store) Builder {
	b.store = s
	return b
}

// WithIndex sets the run index that records every run.
func (b Builder) WithIndex(i *datarecording.RunIndex) Builder {
	b.index = i
	return b
}

// WithCommandBuilder sets how command lines are generated.
func (b Builder) WithCommandBuilder(cb config.CommandBuilder) Builder {
	b.builder = cb
	return b
}

// WithParser sets which statistics are kept.
func (b Builder) WithParser(p *stats.Parser) Builder {
	b.parser = p
	return b
}

// WithWorkDir sets the directory the simulator runs in.
func (b Builder) WithWorkDir(dir string) Builder {
	b.workDir = dir
	return b
}

// WithKind sets the kind recorded in the run index.
func (b Builder) WithKind(kind string) Builder {
	b.kind = kind
	return b
}

// Build creates the runner.
func (b Builder) Build() *Runner {
	r := &Runner{
		executor: b.executor,
		store:    b.store,
		index:    b.index,
		builder:  b.builder,
		parser:   b.parser,
		workDir:  b.workDir,
		kind:     b.kind,
	}

	if r.executor == nil {
		r.executor = NewProcessExecutor()
	}

	if r.store == nil {
		r.store = runstore.New(runstore.DefaultRunDir, runstore.RunLayout)
	}

	if r.parser == nil {
		r.parser = stats.NewParser()
	}

	return r
}

// Busy tells if a run is going on.
func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.busy
}

// Last returns the result of the last run, or nil.
func (r *Runner) Last() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.last
}

// Store returns where run records are kept.
func (r *Runner) Store() *runstore.Store {
	return r.store
}

// Executor returns the executor of the runner.
func (r *Runner) Executor() Executor {
	return r.executor
}

// CommandBuilder returns how the runner generates command lines.
func (r *Runner) CommandBuilder() config.CommandBuilder {
	return r.builder
}

// WorkDir returns the directory the simulator runs in.
func (r *Runner) WorkDir() string {
	return r.workDir
}

// StatsPath returns where the simulator writes its statistics.
func (r *Runner) StatsPath() string {
	out := r.builder.OutDir()
	if !filepath.IsAbs(out) {
		out = filepath.Join(r.workDir, out)
	}

	return filepath.Join(out, "stats.txt")
}

// Reserve marks the runner busy until release is called, so that no other
// simulation starts meanwhile. It fails with ErrBusy when the runner is
// already reserved.
func (r *Runner) Reserve() (release func(), err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.busy {
		return nil, ErrBusy
	}

	r.busy = true

	var once sync.Once

	return func() {
		once.Do(func() {
			r.mu.Lock()
			r.busy = false
			r.mu.Unlock()
		})
	}, nil
}

// Run runs the simulator for a configuration. It fails with ErrBusy while
// another run or a sweep holds the runner. A run that fails to start or exits
// with an error still produces a result, which is kept as the last result.
func (r *Runner) Run(ctx context.Context, c *config.Config) (*Result, error) {
	release, err := r.Reserve()
	if err != nil {
		return nil, err
	}
	defer release()

	res, err := r.run(ctx, c)

	r.mu.Lock()
	r.last = res
	r.mu.Unlock()

	return res, err
}

func (r *Runner) run(ctx context.Context, c *config.Config) (*Result, error) {
	argv := r.builder.Build(c)
	res := &Result{
		ID:            xid.New().String(),
		Command:       argv,
		CommandString: config.CommandString(argv),
		Started:       time.Now(),
	}

	slog.Info("simulation started", "id", res.ID, "command", res.CommandString)

	out, err := r.executor.Run(ctx, Invocation{Argv: argv, Dir: r.workDir})
	res.ExitCode = out.ExitCode
	res.Stdout = out.Stdout
	res.Stderr = out.Stderr
	res.Duration = out.Duration.Seconds()
	res.Peak = out.Peak

	switch {
	case errors.Is(err, ErrExecutableNotFound):
		res.Status = StatusNotFound
		res.Stderr = fmt.Sprintf(
			"Command failed. The executable '%s' was not found.", argv[0])
		res.addMessage(LevelError, res.Stderr)
	case err != nil:
		res.Status = StatusError
		res.Stderr = err.Error()
		res.addMessage(LevelError, "An unexpected error occurred: "+err.Error())
	case out.ExitCode != 0:
		res.Status = StatusFailed
		res.addMessage(LevelError,
			fmt.Sprintf("Command failed with return code: %d", out.ExitCode))
	default:
		res.addMessage(LevelSuccess, "Simulation finished successfully!")
		r.collect(res, c)
	}

	r.recordInIndex(res)

	slog.Info("simulation ended",
		"id", res.ID,
		"status", res.Status,
		"exit_code", res.ExitCode,
		"seconds", res.Duration)

	return res, err
}

func (r *Runner) collect(res *Result, c *config.Config) {
	st, err := r.parser.ParseFile(r.StatsPath())
	if err != nil && !errors.Is(err, stats.ErrNotFound) {
		slog.Warn("reading stats failed", "error", err)
	}

	if len(st) == 0 {
		res.Status = StatusNoStats
		res.addMessage(LevelWarning, "Could not find or parse stats.txt.")

		return
	}

	res.Stats = st

	rec, err := r.store.Save(c.Map(), st)
	if err != nil {
		res.Status = StatusError
		res.addMessage(LevelError, "Saving the run failed: "+err.Error())

		return
	}

	res.Status = StatusSuccess
	res.RunName = rec.RunName
	res.addMessage(LevelInfo,
		fmt.Sprintf("Statistics saved to '%s'!", rec.RunName))
}

func (r *Runner) recordInIndex(res *Result) {
	if r.index == nil {
		return
	}

	r.index.Record(datarecording.RunEntry{
		ID:              res.ID,
		RunName:         res.RunName,
		Kind:            r.kind,
		Timestamp:       res.Started.Format(time.RFC3339),
		ExitCode:        res.ExitCode,
		DurationSeconds: res.Duration,
		Command:         strings.Join(res.Command, " "),
		Status:          string(res.Status),
	}, res.Stats)
}
