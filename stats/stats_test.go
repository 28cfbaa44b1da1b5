package stats_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/garnetvis/stats"
)

const sample = `
---------- Begin Simulation Statistics ----------
simSeconds                                   0.000001                       # Number of seconds simulated (Second)
simTicks                                      1000000                       # Number of ticks simulated (Tick)
hostSeconds                                      0.22                       # Real time elapsed on the host (Second)
system.ruby.network.average_flit_latency	  5.123e+03   # Average flit latency
system.ruby.network.average_packet_latency   nan   # Average packet latency
system.mem_ctrls0.dram.avgQLat               12.5                           # Average queueing delay
system.mem_ctrls1.priorityMaxLatency         3                              # Max latency
---------- End Simulation Statistics   ----------
`

var _ = Describe("Parser", func() {
	It("should keep the default latency statistics", func() {
		s, err := stats.NewParser().Parse(strings.NewReader(sample))

		Expect(err).ToNot(HaveOccurred())
		Expect(s.Keys()).To(Equal([]string{
			"hostSeconds",
			"simSeconds",
			"system.ruby.network.average_flit_latency",
			"system.ruby.network.average_packet_latency",
		}))
		Expect(s["simSeconds"]).To(Equal(stats.Number(0.000001)))
		Expect(s["system.ruby.network.average_flit_latency"]).
			To(Equal(stats.Number(5123)))
	})

	It("should keep nan as text", func() {
		s, err := stats.NewParser().Parse(strings.NewReader(sample))
		Expect(err).ToNot(HaveOccurred())

		v := s["system.ruby.network.average_packet_latency"]
		_, ok := v.Float()
		Expect(ok).To(BeFalse())
		Expect(v.String()).To(Equal("nan"))
	})

	It("should keep memory controller statistics with a known suffix", func() {
		s, err := stats.NewParser().
			WithMemCtrlSuffixes(".dram.avgQLat").
			Parse(strings.NewReader(sample))

		Expect(err).ToNot(HaveOccurred())
		Expect(s).To(HaveKey("system.mem_ctrls0.dram.avgQLat"))
		Expect(s).ToNot(HaveKey("system.mem_ctrls1.priorityMaxLatency"))
	})

	It("should keep everything when asked to", func() {
		s, err := stats.NewParser().WithAll().Parse(strings.NewReader(sample))

		Expect(err).ToNot(HaveOccurred())
		Expect(s).To(HaveKey("simTicks"))
		Expect(s).To(HaveLen(7))
	})

	It("should let the last dump win", func() {
		s, err := stats.NewParser().Parse(strings.NewReader(
			"simSeconds 1\nsimSeconds 2\n"))

		Expect(err).ToNot(HaveOccurred())
		Expect(s["simSeconds"]).To(Equal(stats.Number(2)))
	})

	It("should report a missing file", func() {
		s, err := stats.ParseFile(filepath.Join(os.TempDir(), "no", "stats.txt"))

		Expect(err).To(MatchError(stats.ErrNotFound))
		Expect(s).To(BeEmpty())
	})

	It("should encode values as JSON", func() {
		s := stats.Stats{
			"a": stats.Number(1.5),
			"b": stats.ParseValue("nan"),
		}

		data, err := json.Marshal(s)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(data)).To(Equal(`{"a":1.5,"b":"nan"}`))

		var back stats.Stats
		Expect(json.Unmarshal(data, &back)).To(Succeed())
		Expect(back).To(Equal(s))
	})
})
