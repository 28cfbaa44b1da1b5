// Package runstore keeps the results of simulation runs as JSON files.
package runstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sarchlab/garnetvis/stats"
)

// ErrBadName is returned for run names that are not plain file names.
var ErrBadName = errors.New("invalid run name")

// A Record is the stored result of one run.
type Record struct {
	RunName   string         `json:"run_name"`
	Timestamp string         `json:"timestamp"`
	Config    map[string]any `json:"config"`
	Stats     stats.Stats    `json:"stats"`
}

// A Layout decides how records are named.
type Layout struct {
	Prefix       string
	TimeFormat   string
	Microseconds bool
}

func (l Layout) stamp(t time.Time) string {
	s := t.Format(l.TimeFormat)
	if l.Microseconds {
		s += fmt.Sprintf("-%06d", t.Nanosecond()/1000)
	}

	return s
}

// Layouts of single runs and experiment sweeps.
var (
	RunLayout = Layout{
		Prefix:     "run_",
		TimeFormat: "2006-01-02_15-04-05",
	}
	ExperimentLayout = Layout{
		Prefix:       "exp_run_",
		TimeFormat:   "2006-01-02_15-04-05",
		Microseconds: true,
	}
)

// Default directories.
const (
	DefaultRunDir        = "run_data"
	DefaultExperimentDir = "experiment_runs"
)

const ext = ".json"

// A Store reads and writes records in a directory.
type Store struct {
	dir    string
	layout Layout
	now    func() time.Time
}

// New creates a store.
func New(dir string, layout Layout) *Store {
	return &Store{
		dir:    dir,
		layout: layout,
		now:    time.Now,
	}
}

// WithClock replaces the clock used to name records.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Dir returns the directory of the store.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes a record for a configuration and its statistics. A record
// written within the same timestamp as an existing one gets a numeric suffix
// instead of replacing it.
func (s *Store) Save(config map[string]any, st stats.Stats) (Record, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Record{}, fmt.Errorf("creating %s: %w", s.dir, err)
	}

	if st == nil {
		st = stats.Stats{}
	}

	timestamp := s.layout.stamp(s.now())
	base := s.layout.Prefix + timestamp

	for i := 0; ; i++ {
		name := base
		if i > 0 {
			name = base + "-" + strconv.Itoa(i)
		}

		rec := Record{
			RunName:   name,
			Timestamp: timestamp,
			Config:    config,
			Stats:     st,
		}

		err := s.create(rec)
		if errors.Is(err, os.ErrExist) {
			continue
		}

		if err != nil {
			return Record{}, err
		}

		return rec, nil
	}
}

func (s *Store) create(rec Record) error {
	data, err := json.MarshalIndent(rec, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", rec.RunName, err)
	}

	path := filepath.Join(s.dir, rec.RunName+ext)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return f.Close()
}

// Path returns the file that holds a record.
func (s *Store) Path(name string) (string, error) {
	name = strings.TrimSuffix(name, ext)
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrBadName, name)
	}

	return filepath.Join(s.dir, name+ext), nil
}

// List returns the file names of all records, sorted. A missing directory
// holds no records.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}

	if err != nil {
		return nil, err
	}

	names := []string{}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ext) {
			names = append(names, e.Name())
		}
	}

	sort.Strings(names)

	return names, nil
}

// Load reads one record. The name may be given with or without extension.
func (s *Store) Load(name string) (Record, error) {
	path, err := s.Path(name)
	if err != nil {
		return Record{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}

	rec := Record{}
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decoding %s: %w", path, err)
	}

	if rec.RunName == "" {
		rec.RunName = strings.TrimSuffix(filepath.Base(path), ext)
	}

	return rec, nil
}

// LoadMany reads the named records in the given order.
func (s *Store) LoadMany(names []string) ([]Record, error) {
	recs := make([]Record, 0, len(names))
	for _, n := range names {
		rec, err := s.Load(n)
		if err != nil {
			return nil, err
		}

		recs = append(recs, rec)
	}

	return recs, nil
}

// LoadAll reads every record in file-name order.
func (s *Store) LoadAll() ([]Record, error) {
	names, err := s.List()
	if err != nil {
		return nil, err
	}

	return s.LoadMany(names)
}

// DeleteAll removes the record files and keeps the directory. It returns the
// number of files removed.
func (s *Store) DeleteAll() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}

	if err != nil {
		return 0, err
	}

	n := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}

		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			return n, err
		}

		n++
	}

	return n, nil
}

// Reset removes the directory and creates it again empty.
func (s *Store) Reset() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return err
	}

	return os.MkdirAll(s.dir, 0o755)
}

// SeedSample creates the directory with a demonstration record if the
// directory does not exist yet. It reports whether the sample was written.
func (s *Store) SeedSample() (bool, error) {
	if _, err := os.Stat(s.dir); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return false, err
	}

	rec := Record{
		RunName:   "run_2025-09-23_17-22-50",
		Timestamp: "2025-09-23_17-22-50",
		Config: map[string]any{
			"num_cpus":      16,
			"injectionrate": 0.1,
			"mem_size":      "512MB",
		},
		Stats: stats.Stats{
			"simSeconds":  stats.Number(0),
			"hostSeconds": stats.Number(0.22),
			"system.ruby.network.average_flit_latency": stats.Number(5000),
		},
	}

	data, err := json.MarshalIndent(rec, "", "    ")
	if err != nil {
		return false, err
	}

	return true, os.WriteFile(filepath.Join(s.dir, "sample_run"+ext), data, 0o644)
}
