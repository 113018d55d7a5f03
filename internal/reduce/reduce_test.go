package reduce_test

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/polychain/internal/dynamo"
	"github.com/san-kum/polychain/internal/physics"
	"github.com/san-kum/polychain/internal/reduce"
	"github.com/san-kum/polychain/internal/storage"
)

const header = "0.001000 1000\tV_0.txt\n"

// frameLine builds a two-bead frame line with the given observables.
func frameLine(t, ek, ep, rg, ree float64) string {
	cols := []string{fmt.Sprintf("%.6f", t)}
	for i := 0; i < 12; i++ {
		cols = append(cols, "0.000000")
	}
	for _, v := range []float64{ek, ep, ek + ep, rg, ree} {
		cols = append(cols, fmt.Sprintf("%.6f", v))
	}
	return strings.Join(cols, " ") + "\n"
}

var _ = Describe("Reducer", func() {
	var logs *bytes.Buffer
	var r *reduce.Reducer

	BeforeEach(func() {
		logs = &bytes.Buffer{}
		r = reduce.New(0, log.New(logs, "", 0))
	})

	It("reports zero error for constant observables", func() {
		var b strings.Builder
		b.WriteString(header)
		for i := 0; i < 50; i++ {
			b.WriteString(frameLine(float64(i)*0.1, 1.5, 0.25, 0.5, 1))
		}

		s, err := r.Reduce(strings.NewReader(b.String()), 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Frames).To(Equal(50))
		Expect(s.Kinetic).To(Equal(dynamo.Estimate{Mean: 1.5, StdErr: 0}))
		Expect(s.Potential.Mean).To(BeNumerically("~", 0.25, 1e-12))
		Expect(s.Potential.StdErr).To(BeZero())
		Expect(s.Gyration.Mean).To(BeNumerically("~", 0.5, 1e-12))
		Expect(s.EndToEnd.Mean).To(BeNumerically("~", 1, 1e-12))
		Expect(s.N).To(Equal(2))
	})

	It("discards the equilibration frames", func() {
		var b strings.Builder
		b.WriteString(header)
		for i := 1; i <= 20; i++ {
			v := float64(i)
			b.WriteString(frameLine(v*0.1, v, v, v, v))
		}

		r.NStart = 5
		s, err := r.Reduce(strings.NewReader(b.String()), 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Frames).To(Equal(15))
		Expect(s.Kinetic.Mean).To(BeNumerically("~", 13, 1e-12))
		Expect(s.EndToEnd.Mean).To(BeNumerically("~", 13, 1e-12))
	})

	It("computes the standard error of the mean", func() {
		in := header + frameLine(0.1, 1, 0, 0, 0) + frameLine(0.2, 3, 0, 0, 0)

		s, err := r.Reduce(strings.NewReader(in), 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Kinetic.Mean).To(BeNumerically("~", 2, 1e-12))
		// population variance 1, two samples
		Expect(s.Kinetic.StdErr).To(BeNumerically("~", 0.7071067811865476, 1e-12))
	})

	It("skips and logs malformed lines", func() {
		in := header +
			frameLine(0.1, 2, 0, 0, 0) +
			"0.200000 1.0 2.0\n" +
			frameLine(0.3, 4, 0, 0, 0) +
			strings.Replace(frameLine(0.4, 9, 0, 0, 0), "9.000000", "nine", 1)

		s, err := r.Reduce(strings.NewReader(in), 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Frames).To(Equal(2))
		Expect(s.Kinetic.Mean).To(BeNumerically("~", 3, 1e-12))
		Expect(s.Skipped).To(Equal([]int{3, 5}))
		Expect(logs.String()).To(ContainSubstring("line 3 skipped"))
		Expect(logs.String()).To(ContainSubstring("line 5 skipped"))
	})

	It("fails when no frame survives", func() {
		_, err := r.Reduce(strings.NewReader(""), 2)
		Expect(err).To(MatchError(dynamo.ErrNoData))

		_, err = r.Reduce(strings.NewReader(header), 2)
		Expect(err).To(MatchError(dynamo.ErrNoData))

		_, err = r.Reduce(strings.NewReader(header+"garbage\nmore garbage\n"), 2)
		Expect(err).To(MatchError(dynamo.ErrNoData))

		r.NStart = 5
		_, err = r.Reduce(strings.NewReader(header+frameLine(0.1, 1, 1, 1, 1)), 2)
		Expect(err).To(MatchError(dynamo.ErrNoData))
	})

	It("skips frames written for a different chain length", func() {
		in := header + frameLine(0.1, 1.5, 0.25, 0.5, 1)

		s, err := r.Reduce(strings.NewReader(in), 1)
		Expect(err).To(MatchError(dynamo.ErrNoData))
		Expect(s).To(BeNil())
		Expect(logs.String()).To(ContainSubstring("line 2 skipped"))
		Expect(logs.String()).To(ContainSubstring("18 columns, expected 12"))
	})

	It("rejects a negative equilibration count", func() {
		r.NStart = -1
		_, err := r.Reduce(strings.NewReader(header), 2)
		Expect(err).To(MatchError(dynamo.ErrParameterBounds))
	})

	Context("with files on disk", func() {
		var dir string

		BeforeEach(func() {
			dir = GinkgoT().TempDir()
		})

		writeRun := func(cfg *dynamo.Config, traj string, frames int) {
			Expect(storage.WriteParams(filepath.Join(dir, "params.txt"), cfg)).To(Succeed())
			tw, err := storage.CreateTrajectory(filepath.Join(dir, traj), cfg.Dt, cfg.Steps, "params.txt")
			Expect(err).NotTo(HaveOccurred())
			for i := 1; i <= frames; i++ {
				f := &dynamo.Frame{Time: float64(i) * 0.1, X: cfg.X0, V: cfg.V0}
				f.Kinetic = float64(i)
				f.EndToEnd = 2
				Expect(tw.WriteFrame(f)).To(Succeed())
			}
			Expect(tw.Close()).To(Succeed())
		}

		newConfig := func(n int) *dynamo.Config {
			x, v := physics.StraightChain(n)
			return &dynamo.Config{K: 100, Kb: 1, N: n, Dt: 0.001, Mass: 1, Steps: 1000, X0: x, V0: v}
		}

		It("reduces a gzip trajectory and writes the summary", func() {
			cfg := newConfig(3)
			writeRun(cfg, "V_0.txt.gz", 10)

			out := filepath.Join(dir, "summary.txt")
			s, err := r.ReduceFile(filepath.Join(dir, "V_0.txt.gz"), filepath.Join(dir, "params.txt"), out)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Frames).To(Equal(10))
			Expect(s.HasPull).To(BeFalse())

			back, err := storage.ReadSummary(out)
			Expect(err).NotTo(HaveOccurred())
			Expect(back.N).To(Equal(3))
			Expect(back.Kinetic.Mean).To(BeNumerically("~", 5.5, 1e-6))
			Expect(back.EndToEnd.StdErr).To(BeZero())
		})

		It("carries the pulling force of anchored runs", func() {
			cfg := newConfig(4)
			cfg.Anchored = true
			cfg.PullForce = 0.25
			writeRun(cfg, "V_0.txt", 3)

			out := filepath.Join(dir, "summary.txt")
			_, err := r.ReduceFile(filepath.Join(dir, "V_0.txt"), filepath.Join(dir, "params.txt"), out)
			Expect(err).NotTo(HaveOccurred())

			back, err := storage.ReadSummary(out)
			Expect(err).NotTo(HaveOccurred())
			Expect(back.HasPull).To(BeTrue())
			Expect(back.PullForce).To(BeNumerically("~", 0.25, 1e-9))
		})

		It("does not write a summary for an empty trajectory", func() {
			cfg := newConfig(2)
			writeRun(cfg, "V_0.txt", 0)

			out := filepath.Join(dir, "summary.txt")
			_, err := r.ReduceFile(filepath.Join(dir, "V_0.txt"), filepath.Join(dir, "params.txt"), out)
			Expect(err).To(MatchError(dynamo.ErrNoData))
			_, statErr := os.Stat(out)
			Expect(os.IsNotExist(statErr)).To(BeTrue())
		})
	})
})
