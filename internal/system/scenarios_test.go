package system_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/mbsim/internal/analysis"
	"github.com/san-kum/mbsim/internal/config"
	"github.com/san-kum/mbsim/internal/system"
)

const g = 9.81

// run advances the system n steps, recording the roll angle of the given
// body and tracking the worst constraint violation and energy excursion.
func run(sys *system.System, n, rollBody int) (times, rolls []float64, worstC, worstE float64) {
	e0 := sys.Energy(sys.State())
	for i := 0; i < n; i++ {
		Expect(sys.Step()).To(Succeed())

		x := sys.State()
		times = append(times, sys.Time())
		rolls = append(rolls, x[12*rollBody+6])

		if c := sys.MaxConstraintViolation(x); c > worstC {
			worstC = c
		}
		if e := math.Abs(sys.Energy(x) - e0); e > worstE {
			worstE = e
		}
	}
	return times, rolls, worstC, worstE
}

var _ = Describe("Pendulum released from horizontal", func() {
	It("keeps the joint closed and the energy flat over ten seconds", func() {
		cfg := config.Pendulum(math.Pi / 2)
		sys, err := cfg.Build()
		Expect(err).NotTo(HaveOccurred())

		_, _, worstC, worstE := run(sys, 10000, 1)

		Expect(worstC).To(BeNumerically("<", 1e-6))
		Expect(worstE).To(BeNumerically("<", 5e-3))
	})
})

var _ = Describe("Compound pendulum small oscillations", func() {
	It("swings at the analytic frequency", func() {
		// unit mass and inertia on a unit arm: omega^2 = m g L / (J + m L^2)
		cfg := config.Pendulum(-3 * math.Pi / 180)
		sys, err := cfg.Build()
		Expect(err).NotTo(HaveOccurred())

		times, rolls, _, _ := run(sys, 9000, 1)

		period, err := analysis.EstimatePeriod(times, rolls)
		Expect(err).NotTo(HaveOccurred())

		want := 2 * math.Pi / math.Sqrt(g/2)
		Expect(period).To(BeNumerically("~", want, 0.02*want))
	})
})

var _ = Describe("Double pendulum slow normal mode", func() {
	It("oscillates at the point-mass mode frequency", func() {
		// Nearly point masses and both links started in the slow mode
		// shape theta2/theta1 = sqrt(2), so omega^2 = (g/L)(2 - sqrt(2)).
		th1 := 2 * math.Pi / 180
		th2 := math.Sqrt2 * th1

		cfg := &config.Config{
			Name: "double_pendulum", Dt: 0.001, Duration: 10,
			Integrator: "rk4",
			Gravity:    [3]float64{0, -g, 0},
			Bodies: []config.BodyConfig{
				{Kind: "ground"},
				{
					Kind: "mobilized", Mass: 1, Inertia: [3]float64{1e-4, 1e-4, 1e-4},
					Position:    [3]float64{0, -math.Cos(th1), -math.Sin(th1)},
					Orientation: [3]float64{th1, 0, 0},
				},
				{
					Kind: "mobilized", Mass: 1, Inertia: [3]float64{1e-4, 1e-4, 1e-4},
					Position: [3]float64{
						0,
						-math.Cos(th1) - math.Cos(th2),
						-math.Sin(th1) - math.Sin(th2),
					},
					Orientation: [3]float64{th2, 0, 0},
				},
			},
			Joints: []config.JointConfig{
				{BodyI: 0, BodyJ: 1, Pj: [3]float64{0, 1, 0}},
				{BodyI: 1, BodyJ: 2, Pj: [3]float64{0, 1, 0}},
			},
		}
		sys, err := cfg.Build()
		Expect(err).NotTo(HaveOccurred())

		times, rolls, worstC, _ := run(sys, 9000, 1)
		Expect(worstC).To(BeNumerically("<", 1e-6))

		period, err := analysis.EstimatePeriod(times, rolls)
		Expect(err).NotTo(HaveOccurred())

		want := 2 * math.Pi / math.Sqrt(g*(2-math.Sqrt2))
		Expect(period).To(BeNumerically("~", want, 0.02*want))
	})
})

var _ = Describe("Ten link chain", func() {
	It("stays on the constraint manifold while settling", func() {
		cfg, ok := config.Preset("chain")
		Expect(ok).To(BeTrue())
		sys, err := cfg.Build()
		Expect(err).NotTo(HaveOccurred())
		Expect(sys.BodyCount()).To(Equal(11))
		Expect(sys.JointCount()).To(Equal(10))

		_, _, worstC, _ := run(sys, 2000, 10)
		Expect(worstC).To(BeNumerically("<", 1e-6))
	})
})
