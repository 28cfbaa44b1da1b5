package datarecording

import (
	"context"
	"fmt"

	"github.com/rs/xid"
	"github.com/sarchlab/garnetvis/stats"
)

// RunIndex records every run, successful or not, with its statistics.
type RunIndex struct {
	recorder DataRecorder
}

// NewRunIndex creates the index tables on a recorder.
func NewRunIndex(recorder DataRecorder) *RunIndex {
	recorder.CreateTable(RunsTable, RunEntry{})
	recorder.CreateTable(StatsTable, StatEntry{})

	return &RunIndex{recorder: recorder}
}

// Record adds a run and writes it out. A run without an ID gets a new one,
// which is returned.
func (i *RunIndex) Record(run RunEntry, st stats.Stats) string {
	if run.ID == "" {
		run.ID = xid.New().String()
	}

	i.recorder.InsertData(RunsTable, run)

	for _, k := range st.Keys() {
		v := st[k]
		e := StatEntry{RunID: run.ID, Key: k}

		if f, ok := v.Float(); ok {
			e.Value = f
		} else {
			e.Text = v.String()
		}

		i.recorder.InsertData(StatsTable, e)
	}

	i.recorder.Flush()

	return run.ID
}

// Close closes the underlying recorder.
func (i *RunIndex) Close() error {
	return i.recorder.Close()
}

// QueryRuns reads rows of the runs table.
func QueryRuns(
	ctx context.Context,
	r DataReader,
	params QueryParams,
) ([]RunEntry, int, error) {
	r.MapTable(RunsTable, RunEntry{})

	results, total, err := r.Query(ctx, RunsTable, params)
	if err != nil {
		return nil, 0, fmt.Errorf("querying runs: %w", err)
	}

	runs := make([]RunEntry, 0, len(results))
	for _, res := range results {
		runs = append(runs, *res.(*RunEntry))
	}

	return runs, total, nil
}

// QueryStats reads the statistics of one run.
func QueryStats(ctx context.Context, r DataReader, runID string) (stats.Stats, error) {
	r.MapTable(StatsTable, StatEntry{})

	results, _, err := r.Query(ctx, StatsTable, QueryParams{
		Where: "RunID = ?",
		Args:  []any{runID},
	})
	if err != nil {
		return nil, fmt.Errorf("querying stats of %s: %w", runID, err)
	}

	st := stats.Stats{}
	for _, res := range results {
		e := res.(*StatEntry)
		if e.Text != "" {
			st[e.Key] = stats.ParseValue(e.Text)
			continue
		}

		st[e.Key] = stats.Number(e.Value)
	}

	return st, nil
}
