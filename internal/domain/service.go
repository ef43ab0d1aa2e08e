package domain

// ProfileFitter minimizes the test statistic over the free subset of
// parameters. The same implementation serves the global fit (empty mask)
// and the profile fit (FreezePOI mask).
type ProfileFitter interface {
	Fit(counts []int, frozen ParamMask, initial ParameterVector) (FitResult, error)
}

// PseudoGenerator draws synthetic count spectra under a parameter
// hypothesis. Implementations own a private random source; the scanner
// constructs one generator per grid point from a derived sub-stream seed.
type PseudoGenerator interface {
	Generate(hypothesis ParameterVector) ([]int, error)
}

// ScanTask задача обработки одной точки сетки
type ScanTask struct {
	Index int
	Point GridPoint
	Seed  uint64
}

type ScanResult struct {
	Index    int
	Estimate CoverageEstimate
	Err      error
}
