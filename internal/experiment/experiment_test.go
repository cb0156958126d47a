package experiment_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/optsim/internal/analysis"
	"github.com/san-kum/optsim/internal/experiment"
	"github.com/san-kum/optsim/internal/params"
	"github.com/san-kum/optsim/internal/pricing"
)

var _ = Describe("Experiment", func() {
	var (
		ctx context.Context
		cfg experiment.Config
	)

	BeforeEach(func() {
		ctx = context.Background()
		p := params.Default()
		p.Simulations = 4000
		p.Steps = 20
		cfg = experiment.Config{Params: p, Seed: 42, Workers: 4}
	})

	Describe("Run", func() {
		It("produces a consistent result bundle", func() {
			res, err := experiment.New(cfg).Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(res.TotalPaths).To(Equal(4000))
			Expect(res.MonteCarlo.Paths).To(Equal(4000))
			Expect(res.MonteCarlo.Source).To(Equal(pricing.SourceMonteCarlo))
			Expect(res.BlackScholes).To(Equal(pricing.BlackScholes(cfg.Params)))
			Expect(res.Errors).To(Equal(analysis.Compare(res.MonteCarlo, res.BlackScholes)))
			Expect(res.Seed).To(Equal(int64(42)))
		})

		It("caps the returned sample paths without reducing the path count", func() {
			res, err := experiment.New(cfg).Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Samples).To(HaveLen(experiment.MaxSamplePaths))
			Expect(res.TotalPaths).To(BeNumerically(">", len(res.Samples)))
			for _, path := range res.Samples {
				Expect(path).To(HaveLen(cfg.Params.Steps + 1))
				Expect(path[0]).To(Equal(cfg.Params.Spot))
			}
		})

		It("honours smaller sample limits and never exceeds the cap", func() {
			cfg.SampleLimit = 5
			res, err := experiment.New(cfg).Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Samples).To(HaveLen(5))

			cfg.SampleLimit = 500
			res, err = experiment.New(cfg).Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Samples).To(HaveLen(experiment.MaxSamplePaths))

			cfg.SampleLimit = -1
			res, err = experiment.New(cfg).Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Samples).To(BeEmpty())
		})

		It("keeps the estimate independent of the sample limit", func() {
			cfg.SampleLimit = 1
			a, err := experiment.New(cfg).Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			cfg.SampleLimit = 50
			b, err := experiment.New(cfg).Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(a.MonteCarlo).To(Equal(b.MonteCarlo))
		})

		It("is reproducible from the seed regardless of workers", func() {
			a, err := experiment.New(cfg).Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			cfg.Workers = 1
			b, err := experiment.New(cfg).Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(b.MonteCarlo).To(Equal(a.MonteCarlo))
			Expect(b.Samples).To(Equal(a.Samples))
		})

		It("draws fresh paths for a different seed", func() {
			a, err := experiment.New(cfg).Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			cfg.Seed = 43
			b, err := experiment.New(cfg).Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(b.MonteCarlo.Call).NotTo(Equal(a.MonteCarlo.Call))
		})

		It("lands within a few standard errors of the closed form", func() {
			res, err := experiment.New(cfg).Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(res.MonteCarlo.Call).To(BeNumerically("~", res.BlackScholes.Call, 5*res.MonteCarlo.CallStdErr))
			Expect(res.MonteCarlo.Put).To(BeNumerically("~", res.BlackScholes.Put, 5*res.MonteCarlo.PutStdErr))
		})
	})

	Describe("invalid parameters", func() {
		DescribeTable("are rejected before simulation",
			func(mutate func(*params.Set)) {
				mutate(&cfg.Params)
				res, err := experiment.New(cfg).Run(ctx)
				Expect(err).To(MatchError(params.ErrInvalid))
				Expect(res).To(BeNil())
			},
			Entry("negative strike", func(p *params.Set) { p.Strike = -5 }),
			Entry("zero simulations", func(p *params.Set) { p.Simulations = 0 }),
			Entry("zero steps", func(p *params.Set) { p.Steps = 0 }),
			Entry("negative volatility", func(p *params.Set) { p.Volatility = -0.2 }),
		)

		It("can be retried with corrected parameters", func() {
			cfg.Params.Simulations = 0
			_, err := experiment.New(cfg).Run(ctx)
			Expect(err).To(HaveOccurred())

			cfg.Params.Simulations = 100
			_, err = experiment.New(cfg).Run(ctx)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("degenerate inputs", func() {
		It("prices zero volatility without NaN", func() {
			cfg.Params = params.Set{Spot: 100, Strike: 90, Maturity: 1, Volatility: 0, Rate: 0.05, Simulations: 100, Steps: 10}
			res, err := experiment.New(cfg).Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(res.BlackScholes.Call).To(BeNumerically("~", 100*math.Exp(-0.05)-90, 1e-12))
			Expect(res.MonteCarlo.Call).To(BeNumerically("~", res.BlackScholes.Call, 1e-9))
			Expect(res.Errors.PutPct.Applicable).To(BeFalse())
			Expect(res.Errors.PutAbs).To(BeZero())
		})
	})

	Describe("Convergence", func() {
		It("shrinks the median percentage error as paths grow", func() {
			base := cfg.Params
			base.Steps = 1
			points, err := analysis.Convergence(ctx, experiment.Runner(4), base, []int{100, 10000, 1000000}, 7, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(points).To(HaveLen(3))

			Expect(points[2].MedianCallPct).To(BeNumerically("<", points[0].MedianCallPct))
			Expect(points[2].MedianPutPct).To(BeNumerically("<", points[0].MedianPutPct))
			Expect(points[1].MedianCallSE).To(BeNumerically("<", points[0].MedianCallSE))
			Expect(points[2].MedianCallSE).To(BeNumerically("<", points[1].MedianCallSE))
		})
	})
})
