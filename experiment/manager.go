package experiment

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRunning is returned when a sweep is started while another runs.
var ErrRunning = errors.New("an experiment is already running")

// Status is the state of the background sweep.
type Status struct {
	Running  bool      `json:"running"`
	Key      string    `json:"key"`
	Values   []string  `json:"values"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Report   *Report   `json:"report,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// A Manager runs one sweep at a time in the background.
type Manager struct {
	experiment *Experiment

	mu     sync.Mutex
	status Status
	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a manager for an experiment.
func NewManager(e *Experiment) *Manager {
	return &Manager{experiment: e}
}

// Experiment returns the managed experiment.
func (m *Manager) Experiment() *Experiment {
	return m.experiment
}

// Start runs a sweep in the background. It fails with ErrRunning while
// another sweep runs and with runner.ErrBusy while a single run is going on.
func (m *Manager) Start(s Sweep) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status.Running {
		return ErrRunning
	}

	release, err := m.experiment.runner.Reserve()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	m.status = Status{
		Running: true,
		Key:     s.Key,
		Values:  s.Values,
		Started: time.Now(),
	}

	go m.run(ctx, s, release, m.done)

	return nil
}

func (m *Manager) run(
	ctx context.Context,
	s Sweep,
	release func(),
	done chan struct{},
) {
	defer close(done)

	report, err := m.experiment.sweep(ctx, s)
	release()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancel()
	m.status.Running = false
	m.status.Finished = time.Now()
	m.status.Report = report

	if err != nil {
		m.status.Error = err.Error()
	}
}

// Cancel stops the running sweep. It reports whether a sweep was running.
func (m *Manager) Cancel() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.status.Running {
		return false
	}

	m.cancel()

	return true
}

// Wait blocks until the current sweep, if any, ends.
func (m *Manager) Wait() {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()

	if done != nil {
		<-done
	}
}

// Status returns the state of the last sweep.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.status
}
