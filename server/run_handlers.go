package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sarchlab/garnetvis/chart"
	"github.com/sarchlab/garnetvis/runner"
	"github.com/sarchlab/garnetvis/runstore"
)

type diffResponse struct {
	Runs []string       `json:"runs"`
	Keys []string       `json:"keys"`
	Rows []runstore.Row `json:"rows"`
}

// run blocks until the simulation ends. The simulation is not tied to the
// request, so closing the page does not kill it.
func (s *Server) run(w http.ResponseWriter, r *http.Request) {
	c := s.loadConfig(r.Context())

	if check := c.Validate(); !check.Valid {
		writeError(w, badRequest("%s", check.Message))
		return
	}

	res, err := s.Runner.Run(context.WithoutCancel(r.Context()), c)
	if errors.Is(err, runner.ErrBusy) {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (s *Server) lastRun(w http.ResponseWriter, _ *http.Request) {
	res := s.Runner.Last()
	if res == nil {
		http.Error(w, "no run yet", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (s *Server) listRuns(w http.ResponseWriter, _ *http.Request) {
	names, err := s.Runner.Store().List()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, names)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	rec, err := s.Runner.Store().Load(mux.Vars(r)["name"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) deleteRuns(w http.ResponseWriter, _ *http.Request) {
	n, err := s.Runner.Store().DeleteAll()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

// selectedRuns loads the records named by the run query parameters.
func (s *Server) selectedRuns(r *http.Request) ([]runstore.Record, error) {
	names := r.URL.Query()["run"]
	if len(names) == 0 {
		return nil, badRequest("select at least one run")
	}

	return s.Runner.Store().LoadMany(names)
}

func (s *Server) diffRuns(w http.ResponseWriter, r *http.Request) {
	recs, err := s.selectedRuns(r)
	if err != nil {
		writeError(w, err)
		return
	}

	rsp := diffResponse{
		Runs: make([]string, 0, len(recs)),
		Keys: runstore.DiffKeys(recs),
		Rows: runstore.Compare(recs),
	}

	for _, rec := range recs {
		rsp.Runs = append(rsp.Runs, rec.RunName)
	}

	writeJSON(w, http.StatusOK, rsp)
}

func (s *Server) statKeys(w http.ResponseWriter, r *http.Request) {
	recs, err := s.selectedRuns(r)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, runstore.StatKeys(recs))
}

func (s *Server) barChart(w http.ResponseWriter, r *http.Request) {
	recs, err := s.selectedRuns(r)
	if err != nil {
		writeError(w, err)
		return
	}

	stat := r.URL.Query().Get("stat")
	if stat == "" {
		writeError(w, badRequest("missing stat"))
		return
	}

	writeJSON(w, http.StatusOK, chart.Bar(recs, stat))
}
