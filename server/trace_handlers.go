package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sarchlab/garnetvis/flittrace"
)

func queryInt(r *http.Request, name string, def, lo, hi int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, badRequest("%s must be an integer between %d and %d", name, lo, hi)
	}

	return n, nil
}

func (s *Server) trace(w http.ResponseWriter, r *http.Request) {
	n, err := queryInt(r, "mesh", flittrace.DefaultMeshSize, 1, flittrace.MaxMeshSize)
	if err != nil {
		writeError(w, err)
		return
	}

	interval, err := queryInt(r, "interval", flittrace.DefaultInterval, 1, 1<<30)
	if err != nil {
		writeError(w, err)
		return
	}

	events, err := flittrace.ReadFile(s.tracePath)
	if errors.Is(err, flittrace.ErrTruncated) && len(events) > 0 {
		slog.Warn("trace is truncated, animating the complete records",
			"path", s.tracePath, "error", err)
	} else if err != nil {
		writeError(w, err)
		return
	}

	anim, err := flittrace.Animate(flittrace.Replay(events),
		flittrace.NewMesh(n), uint64(interval))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, anim)
}
