package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/sarchlab/garnetvis/monitoring"
)

// An Invocation describes a process to start.
type Invocation struct {
	Argv []string
	Dir  string
	Env  []string
}

// An Outcome is what a finished process left behind.
type Outcome struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	Peak     monitoring.Resource
}

// An Executor runs processes to completion.
type Executor interface {
	Run(ctx context.Context, inv Invocation) (Outcome, error)
}

// ProcessExecutor runs real processes and samples their resource use.
type ProcessExecutor struct {
	SampleInterval time.Duration
}

// NewProcessExecutor creates a ProcessExecutor that samples every 200ms.
func NewProcessExecutor() *ProcessExecutor {
	return &ProcessExecutor{SampleInterval: 200 * time.Millisecond}
}

// Run starts the process, waits for it and captures its output. A non-zero
// exit is reported through the exit code, not as an error.
func (e *ProcessExecutor) Run(ctx context.Context, inv Invocation) (Outcome, error) {
	if len(inv.Argv) == 0 {
		return Outcome{}, fmt.Errorf("%w: empty command", ErrExecutableNotFound)
	}

	cmd := exec.CommandContext(ctx, inv.Argv[0], inv.Argv[1:]...)
	cmd.Dir = inv.Dir

	if len(inv.Env) > 0 {
		cmd.Env = append(os.Environ(), inv.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()

	err := cmd.Start()
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return Outcome{}, fmt.Errorf("%w: %s", ErrExecutableNotFound, inv.Argv[0])
	}

	if err != nil {
		return Outcome{}, fmt.Errorf("starting %s: %w", inv.Argv[0], err)
	}

	sampler := monitoring.StartSampler(int32(cmd.Process.Pid), e.SampleInterval)
	err = cmd.Wait()
	peak := sampler.Stop()

	out := Outcome{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
		Peak:     peak,
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return out, ctx.Err()
	case errors.As(err, &exitErr):
		out.ExitCode = exitErr.ExitCode()
	default:
		return out, err
	}

	return out, nil
}
