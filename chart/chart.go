// Package chart turns run records into the series drawn by the web UI.
package chart

import (
	"github.com/sarchlab/garnetvis/experiment"
	"github.com/sarchlab/garnetvis/runstore"
)

// Chart kinds.
const (
	KindBar  = "bar"
	KindLine = "line"
)

// A Datum is one point of a series.
type Datum struct {
	Label string  `json:"label"`
	X     any     `json:"x,omitempty"`
	Y     float64 `json:"y"`
}

// A Series is the data of one chart.
type Series struct {
	Kind   string  `json:"kind"`
	Title  string  `json:"title"`
	XLabel string  `json:"x_label"`
	YLabel string  `json:"y_label"`
	Data   []Datum `json:"data"`
}

// Bar draws one bar per run. Missing and non-numeric values are drawn as 0.
func Bar(recs []runstore.Record, stat string) Series {
	s := Series{
		Kind:   KindBar,
		Title:  "Graph of '" + stat + "'",
		XLabel: "run_name",
		YLabel: stat,
		Data:   make([]Datum, 0, len(recs)),
	}

	for _, r := range recs {
		y := 0.0
		if v, ok := r.Stats[stat]; ok {
			if f, ok := v.Float(); ok {
				y = f
			}
		}

		s.Data = append(s.Data, Datum{Label: r.RunName, Y: y})
	}

	return s
}

// Line draws the result of a sweep.
func Line(points []experiment.Point, xKey, yKey string) Series {
	s := Series{
		Kind:   KindLine,
		Title:  "Plot of " + yKey + " vs. " + xKey,
		XLabel: xKey,
		YLabel: yKey,
		Data:   make([]Datum, 0, len(points)),
	}

	for _, p := range points {
		s.Data = append(s.Data, Datum{Label: p.RunName, X: p.X, Y: p.Y})
	}

	return s
}
