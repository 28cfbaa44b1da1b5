package server

import (
	"fmt"
	"net/http"

	"github.com/sarchlab/garnetvis/chart"
	"github.com/sarchlab/garnetvis/config"
	"github.com/sarchlab/garnetvis/experiment"
	"github.com/sarchlab/garnetvis/runstore"
)

type experimentConfigRequest struct {
	Config map[string]any `json:"config"`
	Key    *string        `json:"key"`
	Values *string        `json:"values"`
}

type resultsResponse struct {
	X      string             `json:"x"`
	Y      string             `json:"y"`
	Stats  []string           `json:"stats"`
	Points []experiment.Point `json:"points"`
	Chart  chart.Series       `json:"chart"`
}

func (s *Server) getExperimentConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.loadExperimentConfig(r.Context()))
}

func (s *Server) updateExperimentConfig(w http.ResponseWriter, r *http.Request) {
	req := experimentConfigRequest{}
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	ec := s.loadExperimentConfig(r.Context())
	c := ec.Config.Clone()

	if err := applyAll(c, req.Config); err != nil {
		writeError(w, err)
		return
	}

	ec.Config = c

	if req.Key != nil {
		if !config.IsSweepable(*req.Key) {
			writeError(w, fmt.Errorf("%w: %s", experiment.ErrNotSweepable, *req.Key))
			return
		}

		ec.Key = *req.Key
	}

	if req.Values != nil {
		ec.Values = *req.Values
	}

	s.saveExperimentConfig(r.Context(), ec)
	writeJSON(w, http.StatusOK, ec)
}

func (s *Server) listVariables(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, config.SweepableKeys())
}

func (s *Server) startExperiment(w http.ResponseWriter, r *http.Request) {
	ec := s.loadExperimentConfig(r.Context())

	values := experiment.ParseValues(ec.Values)
	if len(values) == 0 {
		writeError(w, badRequest("no values to sweep"))
		return
	}

	if check := ec.Config.Validate(); !check.Valid {
		writeError(w, badRequest("%s", check.Message))
		return
	}

	if !config.IsSweepable(ec.Key) {
		writeError(w, fmt.Errorf("%w: %s", experiment.ErrNotSweepable, ec.Key))
		return
	}

	err := s.Experiments.Start(experiment.Sweep{
		Key:    ec.Key,
		Values: values,
		Base:   ec.Config,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, s.Experiments.Status())
}

func (s *Server) cancelExperiment(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": s.Experiments.Cancel()})
}

func (s *Server) experimentStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Experiments.Status())
}

// experimentResults plots a statistic against the swept parameter. The
// parameter is the one of the last sweep, or the one being prepared when no
// sweep ran since the server started.
func (s *Server) experimentResults(w http.ResponseWriter, r *http.Request) {
	recs, err := s.Experiments.Experiment().Store().LoadAll()
	if err != nil {
		writeError(w, err)
		return
	}

	x := s.Experiments.Status().Key
	if x == "" {
		x = s.loadExperimentConfig(r.Context()).Key
	}

	keys := runstore.StatKeys(recs)

	y := r.URL.Query().Get("y")
	if y == "" {
		y = experiment.DefaultStat(keys)
	}

	points := experiment.Analyze(recs, x, y)

	writeJSON(w, http.StatusOK, resultsResponse{
		X:      x,
		Y:      y,
		Stats:  keys,
		Points: points,
		Chart:  chart.Line(points, x, y),
	})
}
