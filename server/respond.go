package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/sarchlab/garnetvis/config"
	"github.com/sarchlab/garnetvis/experiment"
	"github.com/sarchlab/garnetvis/flittrace"
	"github.com/sarchlab/garnetvis/runner"
	"github.com/sarchlab/garnetvis/runstore"
	"github.com/sarchlab/garnetvis/stats"
)

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, runner.ErrBusy),
		errors.Is(err, experiment.ErrRunning):
		return http.StatusConflict
	case errors.Is(err, errBadRequest),
		errors.Is(err, config.ErrUnknownKey),
		errors.Is(err, config.ErrInvalidValue),
		errors.Is(err, config.ErrBadPresetName),
		errors.Is(err, config.ErrBadTopologyName),
		errors.Is(err, runstore.ErrBadName),
		errors.Is(err, experiment.ErrNotSweepable),
		errors.Is(err, flittrace.ErrTooManyFrames):
		return http.StatusBadRequest
	case errors.Is(err, flittrace.ErrTruncated):
		return http.StatusUnprocessableEntity
	case errors.Is(err, os.ErrNotExist),
		errors.Is(err, stats.ErrNotFound),
		errors.Is(err, flittrace.ErrEmptyTrace):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := statusOf(err)
	if code == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}

	http.Error(w, err.Error(), code)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, err = w.Write(bytes)
	dieOnErr(err)
}

// readJSON decodes a request body. Numbers are kept as json.Number so that
// integers survive the trip into the configuration.
func readJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.UseNumber()

	if err := dec.Decode(v); err != nil {
		return errors.Join(errBadRequest, err)
	}

	return nil
}

func accessLog(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(h, w, r)

		level := slog.LevelInfo
		if r.URL.Path == "/healthz" || r.URL.Path == "/api/health" {
			level = slog.LevelDebug
		}

		slog.Log(r.Context(), level, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", m.Code,
			"bytes", m.Written,
			"duration", m.Duration.Round(time.Microsecond))
	})
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
