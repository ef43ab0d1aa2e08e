// Package fitting wraps a derivative-free local minimizer around the masked
// Poisson test statistic. One fitter serves both the global fit (empty
// mask) and the profile fit (m, Delta frozen); non-negativity of A, C/Delta
// and D comes from the absolute-value reparametrization in the spectrum
// model, so the minimizer runs over the full real line. Swapping in a
// bound-constrained method only requires replacing Fit's method value.
package fitting

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/optimize"

	"confidence-contours/internal/domain"
)

// convergence window for the Nelder-Mead function-value criterion
const convergeWindow = 50

type Config struct {
	Tolerance     float64
	MaxIterations int
}

func DefaultConfig() Config {
	return Config{
		Tolerance:     1e-8,
		MaxIterations: 2000,
	}
}

type Fitter struct {
	logger       *zap.Logger
	conf         Config
	priors       *domain.Priors
	priorPenalty bool
}

func NewFitter(logger *zap.Logger, conf Config, priors *domain.Priors, priorPenalty bool) *Fitter {
	if conf.Tolerance <= 0 {
		conf.Tolerance = DefaultConfig().Tolerance
	}
	if conf.MaxIterations <= 0 {
		conf.MaxIterations = DefaultConfig().MaxIterations
	}
	return &Fitter{logger: logger, conf: conf, priors: priors, priorPenalty: priorPenalty}
}

// Fit minimizes lambda over the parameters left free by the mask, starting
// from initial. A non-converged result (iteration budget exhausted, or the
// starting point priced at the domain penalty) comes back with
// Converged=false and a nil error; callers decide whether to retry with a
// perturbed start or discard. Errors are reserved for unusable inputs.
func (f *Fitter) Fit(counts []int, frozen domain.ParamMask, initial domain.ParameterVector) (domain.FitResult, error) {
	if len(counts) == 0 || frozen.FreeCount() == 0 {
		return domain.FitResult{}, domain.ErrBadConfig
	}

	obj := NewObjective(counts, frozen, initial, f.priors, f.priorPenalty)
	x0 := obj.FreeVector(initial)

	if v := obj.Value(x0); v >= HUGE_VAL {
		f.logger.Debug("initial guess outside model domain",
			zap.Float64s("x0", x0))
		return domain.FitResult{Params: initial, Lambda: v, Converged: false}, nil
	}

	problem := optimize.Problem{Func: obj.Value}
	settings := &optimize.Settings{
		Converger: &optimize.FunctionConverge{
			Absolute:   f.conf.Tolerance,
			Iterations: convergeWindow,
		},
		MajorIterations: f.conf.MaxIterations,
	}

	result, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if result == nil {
		f.logger.Debug("minimizer failed outright", zap.Error(err))
		return domain.FitResult{Params: initial, Lambda: math.Inf(1), Converged: false}, nil
	}

	converged := err == nil
	switch result.Status {
	case optimize.IterationLimit, optimize.FunctionEvaluationLimit, optimize.Failure:
		converged = false
	}

	fit := domain.FitResult{
		Params:      canonicalize(obj.Assemble(result.X)),
		Lambda:      result.F,
		Converged:   converged,
		Evaluations: result.FuncEvaluations,
	}

	f.logger.Debug("fit finished",
		zap.Float64("lambda", fit.Lambda),
		zap.Bool("converged", fit.Converged),
		zap.Int("evaluations", fit.Evaluations),
		zap.String("status", result.Status.String()))

	return fit, nil
}

// canonicalize folds the reparametrization signs away so reported
// parameters are the physical ones. B keeps its sign: it is not wrapped in
// an absolute value by the model.
func canonicalize(p domain.ParameterVector) domain.ParameterVector {
	p.A = math.Abs(p.A)
	p.C = math.Abs(p.C)
	p.D = math.Abs(p.D)
	p.Delta = math.Abs(p.Delta)
	return p
}
