package aggregate_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/polychain/internal/aggregate"
	"github.com/san-kum/polychain/internal/dynamo"
	"github.com/san-kum/polychain/internal/storage"
)

func scalingSummary(n int, rg, se float64) *dynamo.Summary {
	return &dynamo.Summary{N: n, Gyration: dynamo.Estimate{Mean: rg, StdErr: se}}
}

func pullingSummary(f, ree, se float64) *dynamo.Summary {
	return &dynamo.Summary{N: 4, HasPull: true, PullForce: f, EndToEnd: dynamo.Estimate{Mean: ree, StdErr: se}}
}

var _ = Describe("Aggregation", func() {
	Describe("Build", func() {
		It("keeps one row per summary in input order", func() {
			summaries := []*dynamo.Summary{
				scalingSummary(16, 2.1, 0.03),
				scalingSummary(4, 0.9, 0.01),
				scalingSummary(8, 1.4, 0.02),
			}

			t, err := aggregate.Build(summaries, dynamo.ModeScaling)
			Expect(err).NotTo(HaveOccurred())
			Expect(t.Keys()).To(Equal([]float64{16, 4, 8}))
			Expect(t.Means()).To(Equal([]float64{2.1, 0.9, 1.4}))
		})

		It("uses the end-to-end distance in pulling mode", func() {
			t, err := aggregate.Build([]*dynamo.Summary{pullingSummary(0.5, 2.75, 0.1)}, dynamo.ModePulling)
			Expect(err).NotTo(HaveOccurred())
			Expect(t.Rows).To(Equal([]aggregate.Row{{Key: 0.5, Mean: 2.75, StdErr: 0.1}}))
		})

		It("requires a pulling force in pulling mode", func() {
			_, err := aggregate.Build([]*dynamo.Summary{scalingSummary(4, 1, 0)}, dynamo.ModePulling)
			Expect(err).To(MatchError(dynamo.ErrParameterBounds))
		})

		It("accepts an empty input", func() {
			t, err := aggregate.Build(nil, dynamo.ModeScaling)
			Expect(err).NotTo(HaveOccurred())
			Expect(t.Rows).To(BeEmpty())
		})
	})

	Describe("WriteTo", func() {
		It("writes integer keys for scaling tables", func() {
			t, err := aggregate.Build([]*dynamo.Summary{
				scalingSummary(4, 0.9, 0.01),
				scalingSummary(8, 1.4, 0.02),
				scalingSummary(16, 2.1, 0.03),
			}, dynamo.ModeScaling)
			Expect(err).NotTo(HaveOccurred())

			var buf bytes.Buffer
			_, err = t.WriteTo(&buf)
			Expect(err).NotTo(HaveOccurred())
			Expect(buf.String()).To(Equal(
				"4 0.900000 0.010000\n" +
					"8 1.400000 0.020000\n" +
					"16 2.100000 0.030000\n"))
		})

		It("writes decimal keys for pulling tables", func() {
			t, err := aggregate.Build([]*dynamo.Summary{pullingSummary(0.001, 3.2, 0.05)}, dynamo.ModePulling)
			Expect(err).NotTo(HaveOccurred())

			var buf bytes.Buffer
			_, err = t.WriteTo(&buf)
			Expect(err).NotTo(HaveOccurred())
			Expect(buf.String()).To(Equal("0.001000 3.200000 0.050000\n"))
		})

		It("reads back what it writes", func() {
			t, _ := aggregate.Build([]*dynamo.Summary{scalingSummary(32, 3.3, 0.04)}, dynamo.ModeScaling)
			var buf bytes.Buffer
			_, err := t.WriteTo(&buf)
			Expect(err).NotTo(HaveOccurred())

			back, err := aggregate.ReadTable(&buf, dynamo.ModeScaling)
			Expect(err).NotTo(HaveOccurred())
			Expect(back.Rows).To(HaveLen(1))
			Expect(back.Rows[0].Key).To(Equal(32.0))
			Expect(back.Rows[0].Mean).To(BeNumerically("~", 3.3, 1e-9))
		})

		It("rejects a malformed table", func() {
			_, err := aggregate.ReadTable(strings.NewReader("4 x 0.1\n"), dynamo.ModeScaling)
			Expect(err).To(MatchError(dynamo.ErrMalformedLine))
		})
	})

	Describe("summaries on disk", func() {
		var dir string

		BeforeEach(func() {
			dir = GinkgoT().TempDir()
			for i, n := range []int{4, 8, 16} {
				s := scalingSummary(n, float64(n)/4, 0.01)
				name := filepath.Join(dir, "V_"+string(rune('0'+i))+".txt")
				Expect(storage.WriteSummary(name, s)).To(Succeed())
			}
			Expect(os.WriteFile(filepath.Join(dir, storage.TableName), []byte("old\n"), 0o644)).To(Succeed())
			Expect(os.Mkdir(filepath.Join(dir, "nested"), 0o755)).To(Succeed())
		})

		It("builds the table from a summary directory", func() {
			paths, err := aggregate.ScanDir(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(paths).To(HaveLen(3))

			summaries, err := aggregate.Load(paths)
			Expect(err).NotTo(HaveOccurred())
			t, err := aggregate.Build(summaries, dynamo.ModeScaling)
			Expect(err).NotTo(HaveOccurred())

			out := filepath.Join(dir, storage.TableName)
			Expect(t.WriteFile(out)).To(Succeed())
			data, err := os.ReadFile(out)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal(
				"4 1.000000 0.010000\n" +
					"8 2.000000 0.010000\n" +
					"16 4.000000 0.010000\n"))
		})

		It("fails on an unreadable summary", func() {
			bad := filepath.Join(dir, "broken.txt")
			Expect(os.WriteFile(bad, []byte("PROMEDIO_R_G 1\n"), 0o644)).To(Succeed())
			_, err := aggregate.Load([]string{bad})
			Expect(err).To(HaveOccurred())
		})
	})
})
