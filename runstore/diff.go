package runstore

import (
	"encoding/json"
	"sort"
)

// DiffKeys returns the configuration keys whose values differ between the
// records, sorted. A key is compared only among the records that have it.
// Fewer than two records never differ.
func DiffKeys(recs []Record) []string {
	keys := []string{}
	if len(recs) < 2 {
		return keys
	}

	seen := map[string]map[string]bool{}
	for _, r := range recs {
		for k, v := range r.Config {
			if seen[k] == nil {
				seen[k] = map[string]bool{}
			}

			seen[k][canonical(v)] = true
		}
	}

	for k, values := range seen {
		if len(values) > 1 {
			keys = append(keys, k)
		}
	}

	sort.Strings(keys)

	return keys
}

// canonical gives values that compare equal the same text, so that 4 and 4.0
// read back from JSON are not reported as different.
func canonical(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}

	return string(data)
}

// StatKeys returns the statistic names present in any record, sorted.
func StatKeys(recs []Record) []string {
	set := map[string]bool{}
	for _, r := range recs {
		for k := range r.Stats {
			set[k] = true
		}
	}

	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// A Row is one line of the comparison table.
type Row struct {
	Key    string   `json:"key"`
	Values []string `json:"values"`
}

// Compare lays out the differing configuration keys, followed by the
// statistics, as rows with one value per record. Missing values are empty.
func Compare(recs []Record) []Row {
	rows := []Row{}

	for _, k := range DiffKeys(recs) {
		row := Row{Key: k}
		for _, r := range recs {
			v, ok := r.Config[k]
			if !ok {
				row.Values = append(row.Values, "")
				continue
			}

			row.Values = append(row.Values, display(v))
		}

		rows = append(rows, row)
	}

	for _, k := range StatKeys(recs) {
		row := Row{Key: k}
		for _, r := range recs {
			v, ok := r.Stats[k]
			if !ok {
				row.Values = append(row.Values, "")
				continue
			}

			row.Values = append(row.Values, v.String())
		}

		rows = append(rows, row)
	}

	return rows
}

func display(v any) string {
	if s, ok := v.(string); ok {
		return s
	}

	return canonical(v)
}
