package domain

import (
	"errors"
	"math"
)

// Индексы параметров в развернутом массиве
const (
	ParamA = iota
	ParamB
	ParamC
	ParamD
	ParamM
	ParamDelta
	NumParams
)

// ParameterVector содержит шесть параметров модели. A, B, C, D — мешающие
// параметры, M и Delta — интересующие. Vectors are value types: fitters
// return new ones, nothing mutates a vector in place.
type ParameterVector struct {
	A, B, C, D float64
	M, Delta   float64
}

func (p ParameterVector) Array() []float64 {
	return []float64{p.A, p.B, p.C, p.D, p.M, p.Delta}
}

func FromArray(x []float64) ParameterVector {
	return ParameterVector{
		A: x[ParamA], B: x[ParamB], C: x[ParamC], D: x[ParamD],
		M: x[ParamM], Delta: x[ParamDelta],
	}
}

// ParamMask marks parameters held fixed during a fit. The zero value
// freezes nothing (global fit).
type ParamMask [NumParams]bool

// FreezePOI pins m and Delta, leaving the four nuisance parameters free.
// This is the profile-fit mask.
func FreezePOI() ParamMask {
	var m ParamMask
	m[ParamM] = true
	m[ParamDelta] = true
	return m
}

func (m ParamMask) FreeCount() int {
	n := 0
	for _, frozen := range m {
		if !frozen {
			n++
		}
	}
	return n
}

// NuisancePrior — внешнее знание об одном мешающем параметре (среднее и
// стандартное отклонение).
type NuisancePrior struct {
	Mean  float64 `yaml:"mean"`
	Sigma float64 `yaml:"sigma"`
}

type Priors struct {
	A NuisancePrior `yaml:"a"`
	B NuisancePrior `yaml:"b"`
	C NuisancePrior `yaml:"c"`
	D NuisancePrior `yaml:"d"`
}

// GridPoint — одна точка (m, Delta) плоскости сканирования
type GridPoint struct {
	M, Delta float64
}

// GridSpec describes the rectangular scan grid.
type GridSpec struct {
	MMin       float64 `yaml:"m_min"`
	MMax       float64 `yaml:"m_max"`
	MSteps     int     `yaml:"m_steps"`
	DeltaMin   float64 `yaml:"delta_min"`
	DeltaMax   float64 `yaml:"delta_max"`
	DeltaSteps int     `yaml:"delta_steps"`
}

// FitResult is the outcome of one constrained minimization.
type FitResult struct {
	Params      ParameterVector
	Lambda      float64
	Converged   bool
	Evaluations int
}

// CoverageEstimate is the per-grid-point result: the fraction of
// pseudo-experiments whose profile statistic fell below the real-data one.
type CoverageEstimate struct {
	Point       GridPoint
	Probability float64
	NUsed       int
	Excluded    int
	Valid       bool
}

// Config представляет конфигурацию сканирования
type Config struct {
	NBins             int          `yaml:"n_bins"`
	CountsFile        string       `yaml:"counts_file"`
	Priors            Priors       `yaml:"priors"`
	Grid              GridSpec     `yaml:"grid"`
	NPseudo           int          `yaml:"n_pseudo"`
	Seed              uint64       `yaml:"seed"`
	FitTolerance      float64      `yaml:"fit_tolerance"`
	FitMaxIters       int          `yaml:"fit_max_iters"`
	Workers           int          `yaml:"workers"`
	LogLevel          string       `yaml:"log_level"`
	LogFile           string       `yaml:"log_file"`
	PriorPenalty      bool         `yaml:"prior_penalty"`
	FluctuateNuisance bool         `yaml:"fluctuate_nuisance"`
	SigmaLevels       []float64    `yaml:"sigma_levels"`
	MaxExclusionRate  float64      `yaml:"max_exclusion_rate"`
	SurfaceFile       string       `yaml:"surface_file"`
	ContoursFile      string       `yaml:"contours_file"`
	InitialGuess      *GuessConfig `yaml:"initial_guess"`
}

// GuessConfig optionally overrides the starting point of the global fit.
type GuessConfig struct {
	A     float64 `yaml:"a"`
	B     float64 `yaml:"b"`
	C     float64 `yaml:"c"`
	D     float64 `yaml:"d"`
	M     float64 `yaml:"m"`
	Delta float64 `yaml:"delta"`
}

// InitialParams returns the starting point for the global fit: the explicit
// guess if configured, otherwise the prior means with (m, Delta) at the grid
// center.
func (c *Config) InitialParams() ParameterVector {
	if g := c.InitialGuess; g != nil {
		return ParameterVector{A: g.A, B: g.B, C: g.C, D: g.D, M: g.M, Delta: g.Delta}
	}
	return ParameterVector{
		A:     c.Priors.A.Mean,
		B:     c.Priors.B.Mean,
		C:     c.Priors.C.Mean,
		D:     c.Priors.D.Mean,
		M:     0.5 * (c.Grid.MMin + c.Grid.MMax),
		Delta: 0.5 * (c.Grid.DeltaMin + c.Grid.DeltaMax),
	}
}

// Validate rejects configurations that would put the spectrum model outside
// its domain (B=0 or Delta=0 anywhere on the grid) or make the scan
// meaningless.
func (c *Config) Validate() error {
	if c.NBins <= 0 || c.NPseudo <= 0 {
		return ErrBadConfig
	}
	if c.Grid.MSteps < 2 || c.Grid.DeltaSteps < 2 {
		return ErrBadConfig
	}
	if c.Grid.MMax <= c.Grid.MMin || c.Grid.DeltaMax <= c.Grid.DeltaMin {
		return ErrBadConfig
	}
	if c.Grid.DeltaMin <= 0 {
		// Delta=0 делит на ноль в сигнальном члене
		return ErrModelDomain
	}
	start := c.InitialParams()
	if start.B == 0 || start.Delta == 0 {
		return ErrModelDomain
	}
	for _, s := range c.SigmaLevels {
		if s <= 0 || math.IsNaN(s) {
			return ErrBadConfig
		}
	}
	return nil
}

var (
	ErrInvalidFileFormat = errors.New("invalid file format")
	ErrBadConfig         = errors.New("invalid scan configuration")
	ErrModelDomain       = errors.New("spectrum model domain error")
	ErrSampling          = errors.New("invalid mean passed to pseudo-experiment generator")
	ErrExclusionRate     = errors.New("fit non-convergence rate above configured limit")
	ErrGlobalFit         = errors.New("global fit did not converge")
)
