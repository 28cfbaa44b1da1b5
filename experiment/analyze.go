package experiment

import (
	"sort"
	"strconv"

	"github.com/sarchlab/garnetvis/runstore"
)

var timeStats = map[string]bool{
	"simSeconds":  true,
	"hostSeconds": true,
}

// DefaultStat picks the statistic to plot first: the first one that is not a
// time measurement.
func DefaultStat(keys []string) string {
	for _, k := range keys {
		if !timeStats[k] {
			return k
		}
	}

	if len(keys) > 0 {
		return keys[0]
	}

	return ""
}

// A Point is one sweep result.
type Point struct {
	RunName string  `json:"run_name"`
	X       any     `json:"x"`
	Y       float64 `json:"y"`
}

// Analyze pairs the swept parameter with a statistic. Records without the
// parameter or without a finite value of the statistic are left out. Points
// are sorted by x, numerically when possible.
func Analyze(recs []runstore.Record, xKey, yKey string) []Point {
	points := []Point{}

	for _, r := range recs {
		x, ok := r.Config[xKey]
		if !ok || x == nil {
			continue
		}

		v, ok := r.Stats[yKey]
		if !ok {
			continue
		}

		y, ok := v.Float()
		if !ok {
			continue
		}

		points = append(points, Point{RunName: r.RunName, X: x, Y: y})
	}

	sort.SliceStable(points, func(i, j int) bool {
		return lessX(points[i].X, points[j].X)
	})

	return points
}

func lessX(a, b any) bool {
	fa, aNum := number(a)
	fb, bNum := number(b)

	if aNum && bNum {
		return fa < fb
	}

	return text(a) < text(b)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}

	return 0, false
}

func text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	}

	if f, ok := number(v); ok {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}

	return ""
}
