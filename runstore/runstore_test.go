package runstore_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/garnetvis/runstore"
	"github.com/sarchlab/garnetvis/stats"
)

var _ = Describe("Store", func() {
	var (
		dir   string
		now   time.Time
		store *runstore.Store
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "garnetvis-runs")
		Expect(err).ToNot(HaveOccurred())

		now = time.Date(2025, 9, 23, 17, 22, 50, 123456000, time.Local)
		store = runstore.New(filepath.Join(dir, "run_data"), runstore.RunLayout).
			WithClock(func() time.Time { return now })
	})

	AfterEach(func() {
		os.RemoveAll(dir)
	})

	It("should return an empty list when the directory is missing", func() {
		names, err := store.List()
		Expect(err).ToNot(HaveOccurred())
		Expect(names).To(BeEmpty())
	})

	It("should save and load a record", func() {
		cfg := map[string]any{"num_cpus": 4.0, "network": "garnet"}
		st := stats.Stats{"simSeconds": stats.Number(0.5)}

		rec, err := store.Save(cfg, st)
		Expect(err).ToNot(HaveOccurred())
		Expect(rec.RunName).To(Equal("run_2025-09-23_17-22-50"))

		names, err := store.List()
		Expect(err).ToNot(HaveOccurred())
		Expect(names).To(Equal([]string{"run_2025-09-23_17-22-50.json"}))

		loaded, err := store.Load(names[0])
		Expect(err).ToNot(HaveOccurred())
		Expect(loaded.Config).To(Equal(cfg))
		Expect(loaded.Stats).To(Equal(st))
	})

	It("should not overwrite a record saved in the same second", func() {
		_, err := store.Save(map[string]any{"a": 1.0}, nil)
		Expect(err).ToNot(HaveOccurred())

		rec, err := store.Save(map[string]any{"a": 2.0}, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(rec.RunName).To(Equal("run_2025-09-23_17-22-50-1"))

		recs, err := store.LoadAll()
		Expect(err).ToNot(HaveOccurred())
		Expect(recs).To(HaveLen(2))
	})

	It("should name experiment runs with microseconds", func() {
		s := runstore.New(dir, runstore.ExperimentLayout).
			WithClock(func() time.Time { return now })

		rec, err := s.Save(map[string]any{}, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(rec.RunName).To(Equal("exp_run_2025-09-23_17-22-50-123456"))
	})

	It("should refuse names that leave the directory", func() {
		_, err := store.Load("../secret")
		Expect(err).To(MatchError(runstore.ErrBadName))
	})

	It("should delete the files and keep the directory", func() {
		_, err := store.Save(map[string]any{}, nil)
		Expect(err).ToNot(HaveOccurred())

		n, err := store.DeleteAll()
		Expect(err).ToNot(HaveOccurred())
		Expect(n).To(Equal(1))
		Expect(store.Dir()).To(BeADirectory())

		names, err := store.List()
		Expect(err).ToNot(HaveOccurred())
		Expect(names).To(BeEmpty())
	})

	It("should only seed a sample into a new directory", func() {
		seeded, err := store.SeedSample()
		Expect(err).ToNot(HaveOccurred())
		Expect(seeded).To(BeTrue())

		seeded, err = store.SeedSample()
		Expect(err).ToNot(HaveOccurred())
		Expect(seeded).To(BeFalse())

		names, err := store.List()
		Expect(err).ToNot(HaveOccurred())
		Expect(names).To(Equal([]string{"sample_run.json"}))
	})
})

var _ = Describe("Diff", func() {
	It("should find nothing with fewer than two records", func() {
		Expect(runstore.DiffKeys(nil)).To(BeEmpty())
		Expect(runstore.DiffKeys([]runstore.Record{
			{Config: map[string]any{"a": 1.0}},
		})).To(BeEmpty())
	})

	It("should report keys with different values", func() {
		recs := []runstore.Record{
			{Config: map[string]any{"a": 1.0, "b": "x", "c": true}},
			{Config: map[string]any{"a": 2.0, "b": "x"}},
			{Config: map[string]any{"a": 1.0, "b": "x", "c": false}},
		}

		Expect(runstore.DiffKeys(recs)).To(Equal([]string{"a", "c"}))
	})

	It("should ignore a key present in only one record", func() {
		recs := []runstore.Record{
			{Config: map[string]any{"a": 1.0, "only": 3.0}},
			{Config: map[string]any{"a": 1.0}},
		}

		Expect(runstore.DiffKeys(recs)).To(BeEmpty())
	})

	It("should lay out a comparison table", func() {
		recs := []runstore.Record{
			{
				Config: map[string]any{"net": "simple"},
				Stats:  stats.Stats{"simSeconds": stats.Number(1)},
			},
			{
				Config: map[string]any{"net": "garnet"},
				Stats:  stats.Stats{"hostSeconds": stats.Number(2)},
			},
		}

		rows := runstore.Compare(recs)
		Expect(rows).To(Equal([]runstore.Row{
			{Key: "net", Values: []string{"simple", "garnet"}},
			{Key: "hostSeconds", Values: []string{"", "2"}},
			{Key: "simSeconds", Values: []string{"1", ""}},
		}))
	})
})
