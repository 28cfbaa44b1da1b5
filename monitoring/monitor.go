// Package monitoring reports the progress and the resource use of the
// visualizer and of the simulations it runs.
package monitoring

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/xid"
	"github.com/syifan/goseth"
)

// Monitor keeps the progress bars and serves the monitoring API.
type Monitor struct {
	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	stateRoot      func() any
	profileSeconds time.Duration
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		profileSeconds: time.Second,
	}
}

// WithStateRoot sets the object dumped by the state endpoint. The object
// must not change while the monitor runs.
func (m *Monitor) WithStateRoot(root any) *Monitor {
	return m.WithStateFunc(func() any { return root })
}

// WithStateFunc sets how the state endpoint takes a snapshot. The function
// is called once per request and must return a value that nobody writes
// while it is serialized.
func (m *Monitor) WithStateFunc(snapshot func() any) *Monitor {
	m.stateRoot = snapshot
	return m
}

// WithProfileDuration sets how long the profile endpoint samples.
func (m *Monitor) WithProfileDuration(d time.Duration) *Monitor {
	m.profileSeconds = d
	return m
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// ProgressBars returns copies of the active bars.
func (m *Monitor) ProgressBars() []ProgressBar {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	bars := make([]ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.Snapshot())
	}

	return bars
}

// RegisterRoutes adds the monitoring endpoints to a router.
func (m *Monitor) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/progress", m.listProgressBars).Methods(http.MethodGet)
	r.HandleFunc("/api/resource", m.listResources).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", m.collectProfile).Methods(http.MethodGet)
	r.HandleFunc("/api/state", m.dumpState).Methods(http.MethodGet)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	bytes, err := json.Marshal(m.ProgressBars())
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) listResources(w http.ResponseWriter, r *http.Request) {
	pid := int32(os.Getpid())

	if s := r.URL.Query().Get("pid"); s != "" {
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			http.Error(w, "invalid pid", http.StatusBadRequest)
			return
		}

		pid = int32(n)
	}

	rsp, err := SampleProcess(pid)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	prof, err := CollectProfile(m.profileSeconds)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	bytes, err := json.Marshal(prof)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) dumpState(w http.ResponseWriter, r *http.Request) {
	if m.stateRoot == nil {
		http.Error(w, "no state registered", http.StatusNotFound)
		return
	}

	depth := 2
	if s := r.URL.Query().Get("depth"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			http.Error(w, "invalid depth", http.StatusBadRequest)
			return
		}

		depth = n
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(m.stateRoot())
	serializer.SetMaxDepth(depth)

	w.Header().Set("Content-Type", "application/json")
	err := serializer.Serialize(w)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
