package spectrum

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"confidence-contours/internal/domain"
)

// Generator draws pseudo-experiments: one independent Poisson variate per
// bin of the hypothesis mean spectrum. A Generator owns a private random
// source and its state advances monotonically across calls, so a fixed seed
// reproduces the whole sequence of pseudo-experiments and no two draws are
// correlated.
type Generator struct {
	nBins     int
	priors    *domain.Priors
	fluctuate bool
	src       rand.Source
}

// NewGenerator builds a generator seeded for one sub-stream. With fluctuate
// set, the nuisance parameters A..D are redrawn from their Gaussian priors
// around the hypothesis values before each pseudo-experiment.
func NewGenerator(nBins int, priors *domain.Priors, fluctuate bool, seed uint64) *Generator {
	return &Generator{
		nBins:     nBins,
		priors:    priors,
		fluctuate: fluctuate,
		src:       rand.NewSource(seed),
	}
}

// Generate draws one count spectrum under the hypothesis parameters.
func (g *Generator) Generate(hypothesis domain.ParameterVector) ([]int, error) {
	p := hypothesis
	if g.fluctuate {
		p.A = distuv.Normal{Mu: hypothesis.A, Sigma: g.priors.A.Sigma, Src: g.src}.Rand()
		p.B = distuv.Normal{Mu: hypothesis.B, Sigma: g.priors.B.Sigma, Src: g.src}.Rand()
		p.C = distuv.Normal{Mu: hypothesis.C, Sigma: g.priors.C.Sigma, Src: g.src}.Rand()
		p.D = distuv.Normal{Mu: hypothesis.D, Sigma: g.priors.D.Sigma, Src: g.src}.Rand()
	}

	means, err := Means(p, g.nBins)
	if err != nil {
		return nil, fmt.Errorf("pseudo-experiment hypothesis: %w", err)
	}

	counts := make([]int, g.nBins)
	for k, mu := range means {
		if mu < 0 || math.IsNaN(mu) || math.IsInf(mu, 0) {
			return nil, fmt.Errorf("bin %d mean %v: %w", k+1, mu, domain.ErrSampling)
		}
		if mu == 0 {
			continue
		}
		counts[k] = int(distuv.Poisson{Lambda: mu, Src: g.src}.Rand())
	}
	return counts, nil
}
