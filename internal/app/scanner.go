package app

import (
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/exp/rand"

	"confidence-contours/internal/domain"
)

// GeneratorFactory builds a pseudo-experiment generator for one sub-stream
// seed. The scanner derives one seed per grid point from the master seed,
// so the surface is reproducible regardless of worker scheduling.
type GeneratorFactory func(seed uint64) domain.PseudoGenerator

// GridScanner drives the whole construction: one global fit per scan, then
// per grid point a profile fit of the observed data, NPseudo
// pseudo-experiments generated at that point's best-fit nuisance values,
// and a profile fit of each.
type GridScanner struct {
	logger   *zap.Logger
	config   *domain.Config
	fitter   domain.ProfileFitter
	newGen   GeneratorFactory
	observed []int
}

func NewGridScanner(logger *zap.Logger, config *domain.Config, fitter domain.ProfileFitter, newGen GeneratorFactory, observed []int) *GridScanner {
	return &GridScanner{
		logger:   logger,
		config:   config,
		fitter:   fitter,
		newGen:   newGen,
		observed: observed,
	}
}

// Run executes the scan and returns the coverage surface together with the
// global fit result. Model-domain and sampling errors abort the scan; an
// overall fit-exclusion rate above the configured limit is reported as
// ErrExclusionRate.
func (s *GridScanner) Run() (*domain.CoverageSurface, domain.FitResult, error) {
	if err := s.config.Validate(); err != nil {
		return nil, domain.FitResult{}, err
	}
	if len(s.observed) != s.config.NBins {
		return nil, domain.FitResult{}, fmt.Errorf("observed spectrum has %d bins, config says %d: %w",
			len(s.observed), s.config.NBins, domain.ErrBadConfig)
	}

	global, err := s.globalFit()
	if err != nil {
		return nil, domain.FitResult{}, err
	}
	s.logger.Info("global fit",
		zap.Float64("lambda", global.Lambda),
		zap.Float64("A", global.Params.A),
		zap.Float64("B", global.Params.B),
		zap.Float64("C", global.Params.C),
		zap.Float64("D", global.Params.D),
		zap.Float64("m", global.Params.M),
		zap.Float64("delta", global.Params.Delta))

	grid := s.config.Grid
	surface := domain.NewCoverageSurface(grid)

	workers := s.config.Workers
	if workers <= 0 {
		workers = 1
	}

	var wg sync.WaitGroup
	taskChan := make(chan domain.ScanTask, workers*2)
	resultChan := make(chan domain.ScanResult, grid.MSteps*grid.DeltaSteps)

	// Запускаем воркеры
	for i := 0; i < workers; i++ {
		wg.Add(1)
		s.logger.Debug("starting worker", zap.Int("id", i))
		go s.worker(i, global, taskChan, resultChan, &wg)
	}

	// Отправляем задачи
	go func() {
		for i := 0; i < grid.MSteps; i++ {
			for j := 0; j < grid.DeltaSteps; j++ {
				idx := i*grid.DeltaSteps + j
				taskChan <- domain.ScanTask{
					Index: idx,
					Point: surface.Point(i, j),
					Seed:  subStreamSeed(s.config.Seed, uint64(idx)),
				}
			}
		}
		close(taskChan)
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	// Собираем результаты
	var firstErr error
	var used, excluded, invalidPoints int
	for result := range resultChan {
		if result.Err != nil {
			if firstErr == nil {
				firstErr = result.Err
			}
			continue
		}
		i, j := result.Index/grid.DeltaSteps, result.Index%grid.DeltaSteps
		surface.Set(i, j, result.Estimate)
		used += result.Estimate.NUsed
		excluded += result.Estimate.Excluded
		if !result.Estimate.Valid {
			invalidPoints++
		}
	}
	if firstErr != nil {
		return nil, domain.FitResult{}, firstErr
	}

	maxRate := s.config.MaxExclusionRate
	if maxRate <= 0 {
		maxRate = 0.01
	}
	rate := 0.0
	if used+excluded > 0 {
		rate = float64(excluded) / float64(used+excluded)
	}
	s.logger.Info("scan finished",
		zap.Int("points", grid.MSteps*grid.DeltaSteps),
		zap.Int("pseudo_used", used),
		zap.Int("pseudo_excluded", excluded),
		zap.Float64("exclusion_rate", rate),
		zap.Int("excluded_points", invalidPoints))

	if rate > maxRate || float64(invalidPoints) > maxRate*float64(grid.MSteps*grid.DeltaSteps) {
		return surface, global, fmt.Errorf("exclusion rate %.4f (limit %.4f), excluded points %d: %w",
			rate, maxRate, invalidPoints, domain.ErrExclusionRate)
	}
	return surface, global, nil
}

func (s *GridScanner) worker(id int, global domain.FitResult, tasks <-chan domain.ScanTask, results chan<- domain.ScanResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for task := range tasks {
		s.logger.Debug("scanning point",
			zap.Int("worker", id),
			zap.Float64("m", task.Point.M),
			zap.Float64("delta", task.Point.Delta))

		est, err := s.scanPoint(task, global)
		results <- domain.ScanResult{Index: task.Index, Estimate: est, Err: err}
	}
}

// scanPoint runs the full per-point procedure. All randomness (Poisson
// draws, retry perturbations) comes from streams derived from the task
// seed, so the estimate depends only on the configuration.
func (s *GridScanner) scanPoint(task domain.ScanTask, global domain.FitResult) (domain.CoverageEstimate, error) {
	gen := s.newGen(task.Seed)
	rng := rand.New(rand.NewSource(subStreamSeed(task.Seed, retryStream)))
	frozen := domain.FreezePOI()

	// Профильный фит реальных данных в точке p
	pinned := global.Params
	pinned.M = task.Point.M
	pinned.Delta = task.Point.Delta

	dataFit, ok := s.fitWithRetry(s.observed, frozen, pinned, rng)
	if !ok {
		s.logger.Warn("real-data profile fit excluded",
			zap.Float64("m", task.Point.M),
			zap.Float64("delta", task.Point.Delta))
		return domain.CoverageEstimate{Point: task.Point, Probability: math.NaN(), Valid: false}, nil
	}
	lambdaP := dataFit.Lambda

	if lambdaP < global.Lambda-lambdaSlack {
		s.logger.Warn("profile statistic below global minimum, fitter suspect",
			zap.Float64("lambda_p", lambdaP),
			zap.Float64("lambda_b", global.Lambda),
			zap.Float64("m", task.Point.M),
			zap.Float64("delta", task.Point.Delta))
	}

	// Псевдоэксперименты генерируются при наилучших мешающих параметрах
	// именно этой точки, не глобального минимума
	hypothesis := dataFit.Params

	below, usedN, excluded := 0, 0, 0
	for n := 0; n < s.config.NPseudo; n++ {
		counts, err := gen.Generate(hypothesis)
		if err != nil {
			// конфигурационная ошибка: не повторяем, скан прерывается
			return domain.CoverageEstimate{}, err
		}

		fit, ok := s.fitWithRetry(counts, frozen, dataFit.Params, rng)
		if !ok {
			excluded++
			continue
		}
		if fit.Lambda < lambdaP {
			below++
		}
		usedN++
	}

	if usedN == 0 {
		return domain.CoverageEstimate{Point: task.Point, Probability: math.NaN(), Excluded: excluded, Valid: false}, nil
	}
	return domain.CoverageEstimate{
		Point:       task.Point,
		Probability: float64(below) / float64(usedN),
		NUsed:       usedN,
		Excluded:    excluded,
		Valid:       true,
	}, nil
}

func (s *GridScanner) globalFit() (domain.FitResult, error) {
	initial := s.config.InitialParams()
	fit, err := s.fitter.Fit(s.observed, domain.ParamMask{}, initial)
	if err != nil {
		return domain.FitResult{}, err
	}
	if fit.Converged {
		return fit, nil
	}

	rng := rand.New(rand.NewSource(subStreamSeed(s.config.Seed, globalStream)))
	fit, err = s.fitter.Fit(s.observed, domain.ParamMask{}, s.perturb(initial, rng))
	if err != nil {
		return domain.FitResult{}, err
	}
	if !fit.Converged {
		return domain.FitResult{}, domain.ErrGlobalFit
	}
	return fit, nil
}

// fitWithRetry implements the recovery policy for non-convergence: one
// retry from a perturbed start, then give up and let the caller exclude.
func (s *GridScanner) fitWithRetry(counts []int, frozen domain.ParamMask, initial domain.ParameterVector, rng *rand.Rand) (domain.FitResult, bool) {
	fit, err := s.fitter.Fit(counts, frozen, initial)
	if err == nil && fit.Converged {
		return fit, true
	}
	fit, err = s.fitter.Fit(counts, frozen, s.perturb(initial, rng))
	return fit, err == nil && fit.Converged
}

func (s *GridScanner) perturb(p domain.ParameterVector, rng *rand.Rand) domain.ParameterVector {
	p.A += rng.NormFloat64() * jitterScale(s.config.Priors.A, p.A)
	p.B += rng.NormFloat64() * jitterScale(s.config.Priors.B, p.B)
	p.C += rng.NormFloat64() * jitterScale(s.config.Priors.C, p.C)
	p.D += rng.NormFloat64() * jitterScale(s.config.Priors.D, p.D)
	return p
}

func jitterScale(prior domain.NuisancePrior, value float64) float64 {
	if prior.Sigma > 0 {
		return prior.Sigma
	}
	return 0.05 * math.Max(math.Abs(value), 1)
}

// Reserved sub-stream indices that cannot collide with grid-point indices.
const (
	globalStream = math.MaxUint64
	retryStream  = math.MaxUint64 - 1
)

const lambdaSlack = 1e-6

// subStreamSeed derives an independent, deterministic seed from the master
// seed and a stream index (splitmix64 finalizer).
func subStreamSeed(master, index uint64) uint64 {
	z := master + (index+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
