package fitting

import (
	"math"

	"confidence-contours/internal/domain"
	"confidence-contours/pkg/spectrum"
)

const (
	HUGE_VAL = 1000000000.0

	// denominator guard: the optimizer may probe arbitrarily close to B=0
	// or Delta=0, which must price as a terrible candidate, not crash
	denomEps = 1e-12
)

// Objective is the masked test-statistic function handed to the minimizer.
// It maps the free-parameter subvector back onto the full six-parameter
// space, with the frozen components taken from the base vector.
type Objective struct {
	counts  []int
	frozen  domain.ParamMask
	base    []float64
	priors  *domain.Priors
	penalty bool
}

func NewObjective(counts []int, frozen domain.ParamMask, base domain.ParameterVector, priors *domain.Priors, penalty bool) *Objective {
	return &Objective{
		counts:  counts,
		frozen:  frozen,
		base:    base.Array(),
		priors:  priors,
		penalty: penalty,
	}
}

// FreeVector extracts the free components of p, in parameter order. This is
// the coordinate vector the minimizer works in.
func (o *Objective) FreeVector(p domain.ParameterVector) []float64 {
	full := p.Array()
	x := make([]float64, 0, o.frozen.FreeCount())
	for i, frozen := range o.frozen {
		if !frozen {
			x = append(x, full[i])
		}
	}
	return x
}

// Assemble rebuilds the full parameter vector from the minimizer's
// coordinates.
func (o *Objective) Assemble(x []float64) domain.ParameterVector {
	full := make([]float64, domain.NumParams)
	copy(full, o.base)
	idx := 0
	for i, frozen := range o.frozen {
		if !frozen {
			full[i] = x[idx]
			idx++
		}
	}
	return domain.FromArray(full)
}

// Value — основная функция стоимости: lambda с защитой области определения
// и (опционально) гауссовым штрафом по априорным данным.
func (o *Objective) Value(x []float64) float64 {
	params := o.Assemble(x)

	if math.Abs(params.B) < denomEps || math.Abs(params.Delta) < denomEps {
		return HUGE_VAL
	}

	means, err := spectrum.Means(params, len(o.counts))
	if err != nil {
		return HUGE_VAL
	}

	lam := spectrum.Lambda(means, o.counts)
	if math.IsInf(lam, 0) || math.IsNaN(lam) || lam > HUGE_VAL {
		return HUGE_VAL
	}

	if o.penalty {
		lam += o.priorPenalty(params)
	}
	return lam
}

// priorPenalty adds sum(((theta - mean)/sigma)^2) over the four nuisance
// parameters, evaluated on the physical (sign-folded) values.
func (o *Objective) priorPenalty(p domain.ParameterVector) float64 {
	var penalty float64
	penalty += pullSquared(math.Abs(p.A), o.priors.A)
	penalty += pullSquared(p.B, o.priors.B)
	penalty += pullSquared(math.Abs(p.C), o.priors.C)
	penalty += pullSquared(math.Abs(p.D), o.priors.D)
	return penalty
}

func pullSquared(value float64, prior domain.NuisancePrior) float64 {
	if prior.Sigma <= 0 {
		return 0
	}
	pull := (value - prior.Mean) / prior.Sigma
	return pull * pull
}
