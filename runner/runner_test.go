package runner_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/garnetvis/config"
	"github.com/sarchlab/garnetvis/runner"
	"github.com/sarchlab/garnetvis/runstore"
	"go.uber.org/mock/gomock"
)

const sampleStats = `
---------- Begin Simulation Statistics ----------
simSeconds                                   0.000001                       # Number of seconds simulated (Second)
hostSeconds                                      0.05                       # Real time elapsed on the host (Second)
system.ruby.network.average_flit_latency    12.500000                       # (Unspecified)
`

var _ = Describe("Runner", func() {
	var (
		mockCtrl *gomock.Controller
		executor *MockExecutor
		dir      string
		store    *runstore.Store
		r        *runner.Runner
		cfg      *config.Config
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		executor = NewMockExecutor(mockCtrl)

		var err error
		dir, err = os.MkdirTemp("", "garnetvis-runner")
		Expect(err).ToNot(HaveOccurred())

		store = runstore.New(filepath.Join(dir, "run_data"), runstore.RunLayout)
		r = runner.MakeBuilder().
			WithExecutor(executor).
			WithStore(store).
			WithWorkDir(dir).
			Build()
		cfg = config.New()
	})

	AfterEach(func() {
		mockCtrl.Finish()
		os.RemoveAll(dir)
	})

	writeStats := func(content string) {
		Expect(os.MkdirAll(filepath.Join(dir, "m5out"), 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, "m5out", "stats.txt"),
			[]byte(content), 0o644)).To(Succeed())
	}

	It("should save a record when the simulation succeeds", func() {
		executor.EXPECT().
			Run(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, inv runner.Invocation) (runner.Outcome, error) {
				Expect(inv.Argv).To(Equal(config.Command(cfg)))
				Expect(inv.Dir).To(Equal(dir))
				writeStats(sampleStats)

				return runner.Outcome{Stdout: "done", Duration: time.Second}, nil
			})

		res, err := r.Run(context.Background(), cfg)
		Expect(err).ToNot(HaveOccurred())
		Expect(res.Status).To(Equal(runner.StatusSuccess))
		Expect(res.Stdout).To(Equal("done"))
		Expect(res.Stats).To(HaveLen(3))
		Expect(res.RunName).To(HavePrefix("run_"))
		Expect(res.Messages).To(HaveLen(2))
		Expect(r.Last()).To(BeIdenticalTo(res))

		names, err := store.List()
		Expect(err).ToNot(HaveOccurred())
		Expect(names).To(HaveLen(1))
	})

	It("should warn and save nothing when there are no stats", func() {
		executor.EXPECT().
			Run(gomock.Any(), gomock.Any()).
			Return(runner.Outcome{}, nil)

		res, err := r.Run(context.Background(), cfg)
		Expect(err).ToNot(HaveOccurred())
		Expect(res.Status).To(Equal(runner.StatusNoStats))
		Expect(res.Messages[len(res.Messages)-1].Level).To(Equal(runner.LevelWarning))

		names, err := store.List()
		Expect(err).ToNot(HaveOccurred())
		Expect(names).To(BeEmpty())
	})

	It("should report a non-zero exit", func() {
		executor.EXPECT().
			Run(gomock.Any(), gomock.Any()).
			Return(runner.Outcome{ExitCode: 1, Stderr: "fatal: bad topology"}, nil)

		res, err := r.Run(context.Background(), cfg)
		Expect(err).ToNot(HaveOccurred())
		Expect(res.Status).To(Equal(runner.StatusFailed))
		Expect(res.Stderr).To(Equal("fatal: bad topology"))
		Expect(res.Messages).To(ConsistOf(runner.Message{
			Level: runner.LevelError,
			Text:  "Command failed with return code: 1",
		}))
	})

	It("should report a missing executable", func() {
		executor.EXPECT().
			Run(gomock.Any(), gomock.Any()).
			Return(runner.Outcome{}, runner.ErrExecutableNotFound)

		res, err := r.Run(context.Background(), cfg)
		Expect(err).To(MatchError(runner.ErrExecutableNotFound))
		Expect(res.Status).To(Equal(runner.StatusNotFound))
		Expect(res.Stderr).To(ContainSubstring("gem5.debug"))
	})

	It("should refuse a second run while one is going on", func() {
		started := make(chan struct{})
		release := make(chan struct{})

		executor.EXPECT().
			Run(gomock.Any(), gomock.Any()).
			DoAndReturn(func(context.Context, runner.Invocation) (runner.Outcome, error) {
				close(started)
				<-release

				return runner.Outcome{ExitCode: 1}, nil
			})

		done := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			defer close(done)

			_, err := r.Run(context.Background(), cfg)
			Expect(err).ToNot(HaveOccurred())
		}()

		<-started
		Expect(r.Busy()).To(BeTrue())

		_, err := r.Run(context.Background(), cfg)
		Expect(errors.Is(err, runner.ErrBusy)).To(BeTrue())

		close(release)
		<-done
		Expect(r.Busy()).To(BeFalse())
	})

	It("should refuse to run while reserved", func() {
		release, err := r.Reserve()
		Expect(err).ToNot(HaveOccurred())
		Expect(r.Busy()).To(BeTrue())

		_, err = r.Reserve()
		Expect(err).To(MatchError(runner.ErrBusy))

		_, err = r.Run(context.Background(), cfg)
		Expect(err).To(MatchError(runner.ErrBusy))

		release()
		release()
		Expect(r.Busy()).To(BeFalse())

		again, err := r.Reserve()
		Expect(err).ToNot(HaveOccurred())
		again()
	})
})

var _ = Describe("ProcessExecutor", func() {
	It("should capture the output and the exit code", func() {
		e := runner.NewProcessExecutor()

		out, err := e.Run(context.Background(), runner.Invocation{
			Argv: []string{"sh", "-c", "echo hello; echo oops >&2; exit 3"},
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(out.ExitCode).To(Equal(3))
		Expect(out.Stdout).To(Equal("hello\n"))
		Expect(out.Stderr).To(Equal("oops\n"))
	})

	It("should report a missing executable", func() {
		e := runner.NewProcessExecutor()

		_, err := e.Run(context.Background(), runner.Invocation{
			Argv: []string{"/no/such/gem5.debug"},
		})
		Expect(err).To(MatchError(runner.ErrExecutableNotFound))
	})
})
