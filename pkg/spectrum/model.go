// Package spectrum implements the parametric mean-spectrum model, the
// Poisson likelihood evaluator and the pseudo-experiment generator.
//
// The model for bin k = 1..N_b is
//
//	mu_k = |A|*exp(-k/B) + |C/Delta|*exp(-0.5*((k-m)/Delta)^2) + |D|
//
// The absolute values on A, C/Delta and D are the documented
// non-negativity policy: the fitter runs unconstrained over the real line
// and the model folds the sign away. B and Delta appear as denominators and
// must be nonzero; that is the caller's responsibility and is reported as
// domain.ErrModelDomain here, never clamped silently.
package spectrum

import (
	"math"

	"confidence-contours/internal/domain"
)

// Means evaluates the mean spectrum for nBins bins (1-based bin indices).
func Means(p domain.ParameterVector, nBins int) ([]float64, error) {
	if p.B == 0 || p.Delta == 0 {
		return nil, domain.ErrModelDomain
	}
	mu := make([]float64, nBins)
	for i := range mu {
		k := float64(i + 1)
		background := math.Abs(p.A)*math.Exp(-k/p.B) + math.Abs(p.D)
		z := (k - p.M) / p.Delta
		signal := math.Abs(p.C/p.Delta) * math.Exp(-0.5*z*z)
		mu[i] = background + signal
		if math.IsNaN(mu[i]) || math.IsInf(mu[i], 0) {
			return nil, domain.ErrModelDomain
		}
	}
	return mu, nil
}

// NegLogLikelihood is the Poisson negative log-likelihood
//
//	sum_k  mu_k - d_k*ln(mu_k) + lnGamma(d_k+1)
//
// The factorial term goes through math.Lgamma, not a Stirling
// approximation. A bin with mu_k <= 0 and d_k > 0 makes the likelihood
// unbounded; the result is +Inf (never NaN) so callers can reject the
// candidate.
func NegLogLikelihood(means []float64, counts []int) float64 {
	var sum float64
	for k, mu := range means {
		d := float64(counts[k])
		if mu <= 0 {
			if d > 0 {
				return math.Inf(1)
			}
			// mu=0, d=0: term reduces to mu
			sum += mu
			continue
		}
		lg, _ := math.Lgamma(d + 1)
		sum += mu - d*math.Log(mu) + lg
	}
	return sum
}

// Lambda is the test statistic: twice the negative log-likelihood.
func Lambda(means []float64, counts []int) float64 {
	return 2 * NegLogLikelihood(means, counts)
}
