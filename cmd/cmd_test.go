package cmd

import (
	"math"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/garnetvis/config"
	"github.com/sarchlab/garnetvis/flittrace"
	"github.com/spf13/cobra"
)

var _ = Describe("Environment", func() {
	var (
		dir   string
		saved options
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "garnetvis-cmd")
		Expect(err).ToNot(HaveOccurred())

		saved = opts
	})

	AfterEach(func() {
		opts = saved
		os.Unsetenv("GARNETVIS_RUN_DIR")
		os.Unsetenv("GARNETVIS_PORT")
		os.RemoveAll(dir)
	})

	It("should name variables after flags", func() {
		Expect(envName("log-level")).To(Equal("GARNETVIS_LOG_LEVEL"))
		Expect(envName("port")).To(Equal("GARNETVIS_PORT"))
	})

	It("should fill unset flags from the env file", func() {
		envFile := filepath.Join(dir, ".env")
		Expect(os.WriteFile(envFile,
			[]byte("GARNETVIS_RUN_DIR=from_env\nGARNETVIS_PORT=9000\n"), 0o644)).
			To(Succeed())

		opts.envFile = envFile

		var runDir string
		var port int

		c := &cobra.Command{Use: "test"}
		c.Flags().StringVar(&runDir, "run-dir", "run_data", "")
		c.Flags().IntVar(&port, "port", 8501, "")
		Expect(c.Flags().Set("port", "7000")).To(Succeed())

		Expect(loadEnv(c)).To(Succeed())
		Expect(runDir).To(Equal("from_env"))
		Expect(port).To(Equal(7000))
	})

	It("should ignore a missing env file", func() {
		opts.envFile = filepath.Join(dir, "missing.env")
		Expect(loadEnv(&cobra.Command{Use: "test"})).To(Succeed())
	})

	It("should report bad values", func() {
		os.Setenv("GARNETVIS_PORT", "many")
		opts.envFile = filepath.Join(dir, "missing.env")

		var port int
		c := &cobra.Command{Use: "test"}
		c.Flags().IntVar(&port, "port", 8501, "")

		Expect(loadEnv(c)).To(MatchError(ContainSubstring("GARNETVIS_PORT")))
	})
})

var _ = Describe("Configuration from flags", func() {
	var saved options

	BeforeEach(func() {
		saved = opts
	})

	AfterEach(func() {
		opts = saved
	})

	It("should apply settings in order", func() {
		c, err := configFrom("", []string{
			"network=garnet",
			"num_cpus = 12",
			"injectionrate=0.05",
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(c.GetInt("mesh_rows")).To(Equal(3))
		Expect(c.GetFloat("injectionrate")).To(Equal(0.05))
	})

	It("should reject malformed settings", func() {
		_, err := configFrom("", []string{"num_cpus"})
		Expect(err).To(MatchError(ContainSubstring("key=value")))

		_, err = configFrom("", []string{"bogus=1"})
		Expect(err).To(MatchError(config.ErrUnknownKey))
	})

	It("should start from a preset", func() {
		dir, err := os.MkdirTemp("", "garnetvis-presets")
		Expect(err).ToNot(HaveOccurred())
		defer os.RemoveAll(dir)

		p := config.New()
		Expect(p.Set("vcs_per_vnet", 8)).To(Succeed())
		Expect(config.PresetStore{Dir: dir}.Save("wide", p)).To(Succeed())

		opts.presetDir = dir

		c, err := configFrom("wide", nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(c.GetInt("vcs_per_vnet")).To(Equal(8))
	})
})

var _ = Describe("Trace", func() {
	var (
		dir   string
		saved traceOptions
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "garnetvis-trace")
		Expect(err).ToNot(HaveOccurred())

		saved = traceOpts
	})

	AfterEach(func() {
		traceOpts = saved
		os.RemoveAll(dir)
	})

	writeTrace := func(lastTick uint64) string {
		path := filepath.Join(dir, "trace.bin")

		f, err := os.Create(path)
		Expect(err).ToNot(HaveOccurred())
		Expect(flittrace.WriteEvents(f, []flittrace.Event{
			{Tick: 0, Status: flittrace.StatusInjected, GlobalID: 1, Src: 0, Dest: 1},
			{Tick: lastTick, Status: flittrace.StatusEjected, GlobalID: 1},
		})).To(Succeed())
		Expect(f.Close()).To(Succeed())

		return path
	}

	It("should refuse meshes that are too large", func() {
		traceOpts.mesh = flittrace.MaxMeshSize + 1

		err := traceCmd.RunE(traceCmd, []string{writeTrace(10)})
		Expect(err).To(MatchError(ContainSubstring("mesh size")))
	})

	It("should refuse intervals that give too many frames", func() {
		traceOpts.mesh = 2
		traceOpts.interval = 1
		traceOpts.json = false

		err := traceCmd.RunE(traceCmd, []string{writeTrace(math.MaxUint64)})
		Expect(err).To(MatchError(flittrace.ErrTooManyFrames))
	})
})
