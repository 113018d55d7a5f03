package aggregate_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/polychain/internal/aggregate"
	"github.com/san-kum/polychain/internal/dynamo"
)

var _ = Describe("Reference curves", func() {
	It("gives zero gyration for a single bead", func() {
		Expect(aggregate.IdealGyration(1)).To(Equal(0.0))
	})

	It("grows like the square root of N for long ideal chains", func() {
		ratio := aggregate.IdealGyration(4096) / aggregate.IdealGyration(1024)
		Expect(ratio).To(BeNumerically("~", 2, 1e-3))
	})

	It("is zero at zero force and saturates at the contour length", func() {
		Expect(aggregate.FreelyJointedExtension(0, 4)).To(Equal(0.0))
		Expect(aggregate.FreelyJointedExtension(1e4, 4)).To(BeNumerically("~", 3, 1e-3))
	})

	It("is linear in weak force", func() {
		f := 1e-3
		Expect(aggregate.FreelyJointedExtension(f, 4)).To(BeNumerically("~", f, 1e-8))
	})

	It("picks the curve by mode", func() {
		Expect(aggregate.Theory(dynamo.ModeScaling, 0)(16)).To(Equal(aggregate.IdealGyration(16)))
		Expect(aggregate.Theory(dynamo.ModePulling, 4)(2)).To(Equal(aggregate.FreelyJointedExtension(2, 4)))
	})

	Describe("PowerLaw", func() {
		It("recovers an exact exponent", func() {
			t := &aggregate.Table{Mode: dynamo.ModeScaling}
			for _, n := range []float64{4, 8, 16, 32, 64} {
				t.Rows = append(t.Rows, aggregate.Row{Key: n, Mean: 0.4 * math.Pow(n, 0.5)})
			}
			a, nu, err := t.PowerLaw()
			Expect(err).NotTo(HaveOccurred())
			Expect(a).To(BeNumerically("~", 0.4, 1e-9))
			Expect(nu).To(BeNumerically("~", 0.5, 1e-9))
		})

		It("needs two usable rows", func() {
			t := &aggregate.Table{Rows: []aggregate.Row{{Key: 4, Mean: 1}, {Key: 0, Mean: 2}}}
			_, _, err := t.PowerLaw()
			Expect(err).To(HaveOccurred())
		})
	})
})
