package config_test

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/garnetvis/config"
)

var _ = Describe("Config", func() {
	var c *config.Config

	BeforeEach(func() {
		c = config.New()
	})

	It("should start from the defaults with directories following CPUs", func() {
		Expect(c.GetInt("num_cpus")).To(Equal(16))
		Expect(c.GetInt("num_dirs")).To(Equal(16))
		Expect(c.GetFloat("injectionrate")).To(Equal(0.1))
		Expect(c.GetString("network")).To(Equal("simple"))
		Expect(c.GetString("topology")).To(Equal("Crossbar"))
	})

	It("should coerce values to the parameter kind", func() {
		Expect(c.Set("injectionrate", "0.02")).To(Succeed())
		Expect(c.GetFloat("injectionrate")).To(Equal(0.02))

		Expect(c.Set("injectionrate", 1)).To(Succeed())
		Expect(c.GetFloat("injectionrate")).To(Equal(1.0))

		Expect(c.Set("mesh_rows", 4.0)).To(Succeed())
		Expect(c.GetInt("mesh_rows")).To(Equal(4))

		Expect(c.Set("ruby", "true")).To(Succeed())
		Expect(c.GetBool("ruby")).To(BeTrue())
	})

	It("should reject unknown keys and bad values", func() {
		Expect(c.Set("no_such_key", 1)).To(MatchError(config.ErrUnknownKey))
		Expect(c.Set("num_cpus", "many")).To(MatchError(config.ErrInvalidValue))
		Expect(c.Set("mesh_rows", 2.5)).To(MatchError(config.ErrInvalidValue))
	})

	It("should reject values below the minimum", func() {
		Expect(c.Set("mesh_rows", -4)).To(MatchError(config.ErrInvalidValue))
		Expect(c.Set("num_cpus", 0)).To(MatchError(config.ErrInvalidValue))
		Expect(c.Set("injectionrate", -0.5)).To(MatchError(config.ErrInvalidValue))
		Expect(c.Set("injectionrate", "NaN")).To(MatchError(config.ErrInvalidValue))
		Expect(c.SetAll(map[string]any{"num_cpus": 0})).
			To(MatchError(config.ErrInvalidValue))

		Expect(c.GetInt("mesh_rows")).To(Equal(1))
		Expect(c.GetInt("num_cpus")).To(Equal(16))
		Expect(c.Set("num_packets_max", -1)).To(Succeed())
	})

	It("should reject values that are not among the options", func() {
		Expect(c.Set("routing_algorithm", 7)).To(MatchError(config.ErrInvalidValue))
		Expect(c.Set("synthetic", "zigzag")).To(MatchError(config.ErrInvalidValue))
		Expect(c.Set("network", "torus")).To(MatchError(config.ErrInvalidValue))

		Expect(c.Set("routing_algorithm", "1")).To(Succeed())
		Expect(c.Set("inj_vnet", -1)).To(Succeed())
		Expect(c.Set("synthetic", "tornado")).To(Succeed())
	})

	It("should reject integers that do not fit", func() {
		Expect(c.Set("sim_cycles", 1e20)).To(MatchError(config.ErrInvalidValue))
		Expect(c.Set("sim_cycles", "100000000000000000000")).
			To(MatchError(config.ErrInvalidValue))
		Expect(c.Set("sim_cycles", uint64(math.MaxUint64))).
			To(MatchError(config.ErrInvalidValue))
		Expect(c.Set("sim_cycles", math.Inf(1))).
			To(MatchError(config.ErrInvalidValue))

		Expect(c.Set("sim_cycles", int64(1)<<40)).To(Succeed())
		Expect(c.GetInt("sim_cycles")).To(Equal(1 << 40))
	})

	DescribeTable("float rendering",
		func(f float64, text string) {
			Expect(config.FormatValue(f)).To(Equal(text))
		},
		Entry("whole number", 1.0, "1.0"),
		Entry("zero", 0.0, "0.0"),
		Entry("fraction", 0.02, "0.02"),
		Entry("small", 0.00001, "1e-05"),
		Entry("large", 1e16, "1e+16"),
		Entry("negative", -2.5, "-2.5"),
	)

	It("should not share values between clones", func() {
		d := c.Clone()
		Expect(d.Set("num_cpus", 4)).To(Succeed())
		Expect(c.GetInt("num_cpus")).To(Equal(16))
	})

	DescribeTable("mesh rows for a CPU count",
		func(cpus, rows int) {
			Expect(config.MeshRowsFor(cpus)).To(Equal(rows))
		},
		Entry("square", 16, 4),
		Entry("rectangle", 12, 3),
		Entry("prime", 7, 1),
		Entry("one", 1, 1),
		Entry("64", 64, 8),
	)

	It("should update mesh rows when CPUs change on Garnet", func() {
		Expect(c.SetNetwork("garnet")).To(Succeed())
		Expect(c.GetString("topology")).To(Equal("Mesh_XY"))

		Expect(c.SetCPUs(12)).To(Succeed())
		Expect(c.GetInt("num_dirs")).To(Equal(12))
		Expect(c.GetInt("mesh_rows")).To(Equal(3))
	})

	It("should leave mesh rows alone on the simple network", func() {
		Expect(c.Apply("num_cpus", "12")).To(Succeed())
		Expect(c.GetInt("num_dirs")).To(Equal(12))
		Expect(c.GetInt("mesh_rows")).To(Equal(1))
	})

	It("should go back to Crossbar when the simple network is selected", func() {
		Expect(c.Apply("network", "garnet")).To(Succeed())
		Expect(c.Apply("network", "simple")).To(Succeed())
		Expect(c.GetString("topology")).To(Equal("Crossbar"))
	})

	It("should validate the mesh shape", func() {
		Expect(c.Validate().Valid).To(BeTrue())

		Expect(c.SetNetwork("garnet")).To(Succeed())
		Expect(c.Set("mesh_rows", 3)).To(Succeed())

		check := c.Validate()
		Expect(check.Valid).To(BeFalse())
		Expect(check.Message).To(ContainSubstring("(16)"))

		Expect(c.Set("mesh_rows", 4)).To(Succeed())
		check = c.Validate()
		Expect(check.Valid).To(BeTrue())
		Expect(check.Message).To(ContainSubstring("4 x 4 mesh"))
	})

	It("should round trip through JSON", func() {
		Expect(c.Set("mem_size", "1GB")).To(Succeed())

		data, err := json.Marshal(c)
		Expect(err).ToNot(HaveOccurred())

		d := config.New()
		Expect(json.Unmarshal(data, d)).To(Succeed())
		Expect(d.Map()).To(Equal(c.Map()))
	})

	It("should list sweepable keys without paths and enumerations", func() {
		keys := config.SweepableKeys()
		Expect(keys).To(ContainElement("injectionrate"))
		Expect(keys).ToNot(ContainElements("gem5_path", "script_path",
			"mem_type", "synthetic", "topology"))
		Expect(config.IsSweepable("topology")).To(BeFalse())
	})
})

var _ = Describe("Units", func() {
	It("should split values and units", func() {
		n, u := config.SplitUnit("1.5GHz", config.ClockUnits)
		Expect(n).To(Equal(1.5))
		Expect(u).To(Equal("GHz"))
	})

	It("should fall back to the first unit", func() {
		n, u := config.SplitUnit("512", config.SizeUnits)
		Expect(n).To(Equal(512.0))
		Expect(u).To(Equal("kB"))

		n, u = config.SplitUnit("garbage", config.SizeUnits)
		Expect(n).To(Equal(0.0))
		Expect(u).To(Equal("kB"))
	})

	It("should join without trailing zeros", func() {
		Expect(config.JoinUnit(2, "MB")).To(Equal("2MB"))
		Expect(config.JoinUnit(1.5, "GHz")).To(Equal("1.5GHz"))
	})
})

var _ = Describe("Command", func() {
	var c *config.Config

	BeforeEach(func() {
		c = config.New()
	})

	It("should only contain the paths for the defaults", func() {
		Expect(config.Command(c)).To(Equal([]string{
			"../gem5-tracer/build/NULL/gem5.debug",
			"../gem5-tracer/configs/example/garnet_synth_traffic.py",
		}))
	})

	It("should pass changed values as flags", func() {
		Expect(c.Set("injectionrate", 0.02)).To(Succeed())
		Expect(c.Set("sys_clock", "2GHz")).To(Succeed())
		Expect(c.Set("ruby", true)).To(Succeed())

		argv := config.Command(c)
		Expect(argv[2:]).To(Equal([]string{
			"--sys-clock=2GHz",
			"--ruby",
			"--injectionrate=0.02",
		}))
	})

	It("should keep the decimal point of whole floats", func() {
		Expect(c.Set("injectionrate", 1)).To(Succeed())
		Expect(config.Command(c)[2:]).To(Equal([]string{"--injectionrate=1.0"}))
	})

	It("should skip directories equal to CPUs off Garnet", func() {
		Expect(c.Apply("num_cpus", 4)).To(Succeed())
		Expect(config.Command(c)[2:]).To(Equal([]string{"--num-cpus=4"}))
	})

	It("should always pass the mesh parameters on Garnet", func() {
		Expect(c.Apply("network", "garnet")).To(Succeed())
		Expect(c.Apply("num_cpus", 16)).To(Succeed())

		argv := config.Command(c)
		Expect(argv).To(ContainElements(
			"--num-cpus=16", "--num-dirs=16", "--mesh-rows=4",
			"--network=garnet", "--topology=Mesh_XY"))
	})

	It("should point custom topologies to their directory", func() {
		Expect(c.Set("topology", "ring.py")).To(Succeed())

		argv := config.MakeCommandBuilder().
			WithTopologyDir("topos").
			Build(c)
		Expect(argv).To(ContainElement("--topology=topos/ring.py"))
	})

	It("should pass each SimObject parameter line separately", func() {
		Expect(c.Set("param", "system.a = 1\n\n system.b = 2 ")).To(Succeed())

		argv := config.Command(c)
		Expect(argv[2:]).To(Equal([]string{
			"--param=system.a = 1",
			"--param=system.b = 2",
		}))
	})

	It("should add the output directory before the script", func() {
		argv := config.MakeCommandBuilder().WithOutDir("out/run1").Build(c)
		Expect(argv[1]).To(Equal("--outdir=out/run1"))
	})

	It("should quote arguments for display", func() {
		s := config.CommandString([]string{"gem5", "--param=a = 1", "it's"})
		Expect(s).To(Equal(`gem5 '--param=a = 1' 'it'\''s'`))
	})
})

var _ = Describe("Stores", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "garnetvis-config")
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(dir)
	})

	It("should list built-in and custom topologies", func() {
		s := config.TopologyStore{Dir: filepath.Join(dir, "topos")}

		name, err := s.Save("../../evil/ring.py", strings.NewReader("# ring"))
		Expect(err).ToNot(HaveOccurred())
		Expect(name).To(Equal("ring.py"))

		names, err := s.List()
		Expect(err).ToNot(HaveOccurred())
		Expect(names).To(Equal([]string{"Crossbar", "Mesh_XY", "ring.py"}))
	})

	It("should refuse non-python topologies", func() {
		s := config.TopologyStore{Dir: dir}
		_, err := s.Save("ring.txt", strings.NewReader(""))
		Expect(err).To(MatchError(config.ErrBadTopologyName))
	})

	It("should save and load presets", func() {
		s := config.PresetStore{Dir: filepath.Join(dir, "presets")}

		c := config.New()
		Expect(c.Apply("network", "garnet")).To(Succeed())
		Expect(c.Set("injectionrate", 0.25)).To(Succeed())
		Expect(c.Set("maxtime", 0.5)).To(Succeed())
		Expect(s.Save("mesh16", c)).To(Succeed())

		names, err := s.List()
		Expect(err).ToNot(HaveOccurred())
		Expect(names).To(Equal([]string{"mesh16"}))

		loaded, err := s.Load("mesh16")
		Expect(err).ToNot(HaveOccurred())
		Expect(loaded.Map()).To(Equal(c.Map()))
	})

	It("should refuse preset names with path separators", func() {
		s := config.PresetStore{Dir: dir}
		Expect(s.Save("../x", config.New())).To(MatchError(config.ErrBadPresetName))
	})
})
