// Package server serves the web interface of the visualizer and the JSON API
// behind it.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/sarchlab/garnetvis/config"
	"github.com/sarchlab/garnetvis/experiment"
	"github.com/sarchlab/garnetvis/flittrace"
	"github.com/sarchlab/garnetvis/monitoring"
	"github.com/sarchlab/garnetvis/runner"
	"github.com/sarchlab/garnetvis/server/web"
)

// DefaultPort is the port the visualizer listens on.
const DefaultPort = 8501

// DefaultPresetDir is where configuration presets are kept.
const DefaultPresetDir = "presets"

// Server holds the state shared by all browser sessions.
type Server struct {
	Runner      *runner.Runner
	Experiments *experiment.Manager
	Monitor     *monitoring.Monitor

	sessions   *scs.SessionManager
	presets    config.PresetStore
	topologies config.TopologyStore
	tracePath  string
	assets     http.FileSystem
	router     *mux.Router
}

// serverState is what the state endpoint shows. It is a copy taken under
// the locks of the runner and the experiment manager.
type serverState struct {
	Busy       bool
	LastRun    *runner.Result
	Experiment experiment.Status
	TracePath  string
	PresetDir  string
}

func (s *Server) state() any {
	return &serverState{
		Busy:       s.Runner.Busy(),
		LastRun:    s.Runner.Last(),
		Experiment: s.Experiments.Status(),
		TracePath:  s.tracePath,
		PresetDir:  s.presets.Dir,
	}
}

// Builder can build servers.
type Builder struct {
	runner      *runner.Runner
	experiments *experiment.Manager
	monitor     *monitoring.Monitor
	sessions    *scs.SessionManager
	presetDir   string
	tracePath   string
	assets      http.FileSystem
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		presetDir: DefaultPresetDir,
		tracePath: flittrace.DefaultPath,
	}
}

// WithRunner sets the runner of single simulations.
func (b Builder) WithRunner(r *runner.Runner) Builder {
	b.runner = r
	return b
}

// WithExperiments sets the manager of parameter sweeps.
func (b Builder) WithExperiments(m *experiment.Manager) Builder {
	b.experiments = m
	return b
}

// WithMonitor sets the monitor that serves progress and resources.
func (b Builder) WithMonitor(m *monitoring.Monitor) Builder {
	b.monitor = m
	return b
}

// WithSessions sets the session manager.
func (b Builder) WithSessions(s *scs.SessionManager) Builder {
	b.sessions = s
	return b
}

// WithPresetDir sets where presets are saved.
func (b Builder) WithPresetDir(dir string) Builder {
	b.presetDir = dir
	return b
}

// WithTracePath sets the flit event log that is animated.
func (b Builder) WithTracePath(path string) Builder {
	b.tracePath = path
	return b
}

// WithAssets replaces the embedded web pages.
func (b Builder) WithAssets(fs http.FileSystem) Builder {
	b.assets = fs
	return b
}

// Build creates the server.
func (b Builder) Build() *Server {
	s := &Server{
		Runner:      b.runner,
		Experiments: b.experiments,
		Monitor:     b.monitor,
		sessions:    b.sessions,
		presets:     config.PresetStore{Dir: b.presetDir},
		tracePath:   b.tracePath,
		assets:      b.assets,
	}

	if s.Monitor == nil {
		s.Monitor = monitoring.NewMonitor()
	}

	if s.Runner == nil {
		s.Runner = runner.MakeBuilder().Build()
	}

	if s.Experiments == nil {
		s.Experiments = experiment.NewManager(experiment.MakeBuilder().
			WithRunner(s.Runner).
			WithMonitor(s.Monitor).
			Build())
	}

	if s.sessions == nil {
		s.sessions = scs.New()
		s.sessions.Lifetime = 24 * time.Hour
		s.sessions.Cookie.Name = "garnetvis_session"
	}

	if s.assets == nil {
		s.assets = web.GetAssets()
	}

	s.topologies = config.TopologyStore{Dir: s.Runner.CommandBuilder().TopologyDir()}
	s.Monitor.WithStateFunc(s.state)

	s.router = mux.NewRouter()
	s.registerRoutes(s.router)

	return s
}

func (s *Server) registerRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	r.HandleFunc("/api/health", s.health).Methods(http.MethodGet)

	r.HandleFunc("/api/params", s.listParams).Methods(http.MethodGet)
	r.HandleFunc("/api/config", s.getConfig).Methods(http.MethodGet)
	r.HandleFunc("/api/config", s.updateConfig).Methods(http.MethodPut)
	r.HandleFunc("/api/config/reset", s.resetConfig).Methods(http.MethodPost)
	r.HandleFunc("/api/config/cpus", s.setCPUs).Methods(http.MethodPost)
	r.HandleFunc("/api/config/network", s.setNetwork).Methods(http.MethodPost)
	r.HandleFunc("/api/command", s.getCommand).Methods(http.MethodGet)

	r.HandleFunc("/api/presets", s.listPresets).Methods(http.MethodGet)
	r.HandleFunc("/api/presets", s.savePreset).Methods(http.MethodPost)
	r.HandleFunc("/api/presets/{name}", s.loadPreset).Methods(http.MethodGet)
	r.HandleFunc("/api/topologies", s.listTopologies).Methods(http.MethodGet)
	r.HandleFunc("/api/topologies", s.uploadTopology).Methods(http.MethodPost)

	r.HandleFunc("/api/run", s.run).Methods(http.MethodPost)
	r.HandleFunc("/api/run/last", s.lastRun).Methods(http.MethodGet)

	r.HandleFunc("/api/runs", s.listRuns).Methods(http.MethodGet)
	r.HandleFunc("/api/runs", s.deleteRuns).Methods(http.MethodDelete)
	r.HandleFunc("/api/runs/diff", s.diffRuns).Methods(http.MethodGet)
	r.HandleFunc("/api/runs/{name}", s.getRun).Methods(http.MethodGet)
	r.HandleFunc("/api/stats/keys", s.statKeys).Methods(http.MethodGet)
	r.HandleFunc("/api/charts/bar", s.barChart).Methods(http.MethodGet)

	r.HandleFunc("/api/experiment", s.startExperiment).Methods(http.MethodPost)
	r.HandleFunc("/api/experiment/config", s.getExperimentConfig).Methods(http.MethodGet)
	r.HandleFunc("/api/experiment/config", s.updateExperimentConfig).Methods(http.MethodPut)
	r.HandleFunc("/api/experiment/variables", s.listVariables).Methods(http.MethodGet)
	r.HandleFunc("/api/experiment/cancel", s.cancelExperiment).Methods(http.MethodPost)
	r.HandleFunc("/api/experiment/status", s.experimentStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/experiment/results", s.experimentResults).Methods(http.MethodGet)

	r.HandleFunc("/api/trace", s.trace).Methods(http.MethodGet)

	s.Monitor.RegisterRoutes(r)

	r.PathPrefix("/").Handler(http.FileServer(s.assets))
}

// Handler returns the root handler with sessions and access logging.
func (s *Server) Handler() http.Handler {
	return accessLog(s.sessions.LoadAndSave(s.router))
}

// ListenAndServe serves on addr until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("visualizer listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.Experiments.Cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, err := w.Write([]byte("ok"))
	dieOnErr(err)
}
