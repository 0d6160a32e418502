package engine_test

import (
	"math"
	"math/rand"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/landcbrown/ParticleSim/internal/collision"
	"github.com/landcbrown/ParticleSim/internal/dynamo"
	"github.com/landcbrown/ParticleSim/internal/engine"
)

type pair struct{ a, b int }

func ordered(i, j int) pair {
	if i > j {
		i, j = j, i
	}
	return pair{i, j}
}

var _ = Describe("Engine", func() {
	var (
		e   *engine.Engine
		err error
	)

	Describe("broad phase", func() {
		var seen map[pair]int

		BeforeEach(func() {
			seen = make(map[pair]int)
			e, err = engine.New(400, 400, 10, engine.WithContactListener(func(i, j int, _ collision.Contact) {
				seen[ordered(i, j)]++
			}))
			Expect(err).NotTo(HaveOccurred())
		})

		It("resolves exactly the pairs a brute-force scan finds overlapping", func() {
			rng := rand.New(rand.NewSource(21))
			for i := 0; i < 9; i++ {
				for j := 0; j < 9; j++ {
					cx, cy := 20+float64(i)*40, 20+float64(j)*40
					for k := 0; k < 2; k++ {
						ang := rng.Float64() * 2 * math.Pi
						d := rng.Float64() * 4
						_, err := e.AddBody(cx+d*math.Cos(ang), cy+d*math.Sin(ang), 0, 0, 1+rng.Float64()*1.5, 1+rng.Float64())
						Expect(err).NotTo(HaveOccurred())
					}
				}
			}

			bodies := e.State()
			want := make(map[pair]int)
			for i := range bodies {
				for j := i + 1; j < len(bodies); j++ {
					r := bodies[i].Radius() + bodies[j].Radius()
					if bodies[i].Pos.DistSq(bodies[j].Pos) < r*r {
						want[pair{i, j}] = 1
					}
				}
			}
			Expect(want).NotTo(BeEmpty())

			Expect(e.Step(0.01)).To(Succeed())
			Expect(seen).To(Equal(want))
			Expect(e.Stats().Contacts).To(Equal(len(want)))
		})

		It("finds pairs that straddle a cell boundary", func() {
			_, _ = e.AddBody(19.5, 55, 0, 0, 1, 1)
			_, _ = e.AddBody(20.5, 55, 0, 0, 1, 1)
			_, _ = e.AddBody(39.5, 39.5, 0, 0, 1, 1)
			_, _ = e.AddBody(40.5, 40.5, 0, 0, 1, 1)
			_, _ = e.AddBody(69.5, 80.5, 0, 0, 1, 1)
			_, _ = e.AddBody(70.5, 79.5, 0, 0, 1, 1)

			Expect(e.Step(0.01)).To(Succeed())
			Expect(seen).To(HaveLen(3))
			Expect(seen).To(HaveKey(pair{0, 1}))
			Expect(seen).To(HaveKey(pair{2, 3}))
			Expect(seen).To(HaveKey(pair{4, 5}))
		})
	})

	Describe("degenerate contacts", func() {
		It("separates coincident bodies along the x axis", func() {
			e, err = engine.New(100, 100, 5)
			Expect(err).NotTo(HaveOccurred())
			_, _ = e.AddBody(50, 50, 0, 0, 1, 1)
			_, _ = e.AddBody(50, 50, 0, 0, 1, 1)

			Expect(e.Step(0.01)).To(Succeed())

			s := e.State()
			Expect(s[0].Pos.Y).To(Equal(50.0))
			Expect(s[1].Pos.Y).To(Equal(50.0))
			Expect(math.Abs(s[1].Pos.X - s[0].Pos.X)).To(BeNumerically("~", 2, 1e-12))
			Expect(e.Stats().Degenerate).To(Equal(uint64(1)))
		})
	})

	Describe("concurrent use", func() {
		It("applies every queued temperature exactly once", func() {
			rng := rand.New(rand.NewSource(5))
			e, err = engine.New(200, 200, 6)
			Expect(err).NotTo(HaveOccurred())
			for i := 0; i < 100; i++ {
				_, err := e.AddBody(10+float64(i%10)*18, 10+float64(i/10)*18, rng.NormFloat64()*10, rng.NormFloat64()*10, 2, 1+rng.Float64())
				Expect(err).NotTo(HaveOccurred())
			}
			ke0 := e.KineticEnergy()

			var wg sync.WaitGroup
			wg.Add(3)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				for i := 0; i < 500; i++ {
					Expect(e.Step(0.005)).To(Succeed())
				}
			}()
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				for _, t := range []float64{1.5, 0.5, 3, 2} {
					Expect(e.SetTemperature(t)).To(Succeed())
				}
			}()
			go func() {
				defer wg.Done()
				for i := 0; i < 200; i++ {
					_ = e.Bodies()
					_ = e.Snapshot()
				}
			}()
			wg.Wait()
			e.ApplyPending()

			Expect(e.Temperature()).To(Equal(2.0))
			Expect(e.Snapshot().Temperature).To(Equal(2.0))
			Expect(e.KineticEnergy()).To(BeNumerically("~", 2*ke0, 1e-6*ke0))
		})
	})

	Describe("invalid input", func() {
		BeforeEach(func() {
			e, err = engine.New(10, 10, 1)
			Expect(err).NotTo(HaveOccurred())
		})

		DescribeTable("rejects bodies",
			func(radius, mass float64) {
				_, err := e.AddBody(5, 5, 0, 0, radius, mass)
				Expect(err).To(MatchError(dynamo.ErrInvalidBody))
				Expect(e.Len()).To(BeZero())
			},
			Entry("zero radius", 0.0, 1.0),
			Entry("negative radius", -1.0, 1.0),
			Entry("zero mass", 1.0, 0.0),
			Entry("NaN mass", 1.0, math.NaN()),
		)

		DescribeTable("rejects steps",
			func(dt float64) {
				var se *dynamo.StepError
				err := e.Step(dt)
				Expect(err).To(MatchError(dynamo.ErrInvalidStep))
				Expect(err).To(BeAssignableToTypeOf(se))
			},
			Entry("zero", 0.0),
			Entry("negative", -1.0),
			Entry("infinite", math.Inf(1)),
		)
	})
})
