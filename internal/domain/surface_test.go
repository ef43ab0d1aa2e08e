package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGrid() GridSpec {
	return GridSpec{
		MMin: 6, MMax: 10, MSteps: 5,
		DeltaMin: 1, DeltaMax: 3, DeltaSteps: 5,
	}
}

func TestNewCoverageSurfaceAxesAndMarkers(t *testing.T) {
	s := NewCoverageSurface(testGrid())

	require.Len(t, s.MAxis, 5)
	require.Len(t, s.DeltaAxis, 5)
	assert.Equal(t, 6.0, s.MAxis[0])
	assert.Equal(t, 10.0, s.MAxis[4])
	assert.Equal(t, 7.0, s.MAxis[1])
	assert.Equal(t, 1.5, s.DeltaAxis[1])

	for i := range s.Prob {
		for j := range s.Prob[i] {
			assert.True(t, math.IsNaN(s.Prob[i][j]), "unprocessed cell (%d,%d)", i, j)
		}
	}
}

func TestSurfaceSetIgnoresInvalidEstimates(t *testing.T) {
	s := NewCoverageSurface(testGrid())

	s.Set(1, 2, CoverageEstimate{Probability: 0.25, NUsed: 100, Valid: true})
	assert.Equal(t, 0.25, s.Prob[1][2])
	assert.Equal(t, 100, s.NUsed[1][2])

	s.Set(3, 3, CoverageEstimate{Probability: math.NaN(), Valid: false})
	assert.True(t, math.IsNaN(s.Prob[3][3]))
}

func TestSigmaLevel(t *testing.T) {
	assert.InDelta(t, 0.682689, SigmaLevel(1), 1e-5)
	assert.InDelta(t, 0.954500, SigmaLevel(2), 1e-5)
	assert.InDelta(t, 0.997300, SigmaLevel(3), 1e-5)
}

func TestContourSegmentsStraightBoundary(t *testing.T) {
	grid := GridSpec{MMin: 0, MMax: 1, MSteps: 2, DeltaMin: 0.5, DeltaMax: 1.5, DeltaSteps: 2}
	s := NewCoverageSurface(grid)
	// probability rises from 0 to 1 along m; the 0.5 contour is the
	// vertical line m = 0.5
	s.Prob[0][0], s.Prob[0][1] = 0, 0
	s.Prob[1][0], s.Prob[1][1] = 1, 1

	segments, err := s.ContourSegments(0.5)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.InDelta(t, 0.5, segments[0].P1.M, 1e-12)
	assert.InDelta(t, 0.5, segments[0].P2.M, 1e-12)
	assert.NotEqual(t, segments[0].P1.Delta, segments[0].P2.Delta)
}

func TestContourSegmentsSkipNaNCells(t *testing.T) {
	grid := GridSpec{MMin: 0, MMax: 1, MSteps: 2, DeltaMin: 0.5, DeltaMax: 1.5, DeltaSteps: 2}
	s := NewCoverageSurface(grid)
	s.Prob[0][0], s.Prob[0][1] = 0, 0
	s.Prob[1][0] = 1 // (1,1) stays NaN

	segments, err := s.ContourSegments(0.5)
	require.NoError(t, err)
	assert.Empty(t, segments)
}

func TestContourSegmentsDegenerateSurface(t *testing.T) {
	s := &CoverageSurface{MAxis: []float64{1}, DeltaAxis: []float64{1}}
	_, err := s.ContourSegments(0.5)
	assert.ErrorIs(t, err, ErrInvalidSurface)
}

func TestHistCountsEveryFiniteCell(t *testing.T) {
	s := NewCoverageSurface(testGrid())
	total := 0
	for i := range s.Prob {
		for j := range s.Prob[i] {
			s.Prob[i][j] = float64(i*5+j) / 25.0
			total++
		}
	}

	hist, err := s.Hist(0, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 10, hist.Len)

	sum := 0
	for _, v := range hist.Vals {
		sum += v
	}
	assert.Equal(t, total, sum)
}

func TestConfigValidate(t *testing.T) {
	good := Config{
		NBins:   20,
		NPseudo: 100,
		Grid:    testGrid(),
		Priors: Priors{
			A: NuisancePrior{Mean: 10.26, Sigma: 0.3},
			B: NuisancePrior{Mean: 5.16, Sigma: 0.1},
			C: NuisancePrior{Mean: 3.31, Sigma: 0.6},
			D: NuisancePrior{Mean: 0.76, Sigma: 0.04},
		},
		SigmaLevels: []float64{1, 2, 3},
	}
	require.NoError(t, good.Validate())

	bad := good
	bad.NBins = 0
	assert.ErrorIs(t, bad.Validate(), ErrBadConfig)

	bad = good
	bad.Grid.DeltaMin = 0
	assert.ErrorIs(t, bad.Validate(), ErrModelDomain)

	bad = good
	bad.Grid.MSteps = 1
	assert.ErrorIs(t, bad.Validate(), ErrBadConfig)

	bad = good
	bad.SigmaLevels = []float64{-1}
	assert.ErrorIs(t, bad.Validate(), ErrBadConfig)
}

func TestInitialParamsDefaultsToPriorsAndGridCenter(t *testing.T) {
	c := Config{
		Grid: testGrid(),
		Priors: Priors{
			A: NuisancePrior{Mean: 10.26},
			B: NuisancePrior{Mean: 5.16},
			C: NuisancePrior{Mean: 3.31},
			D: NuisancePrior{Mean: 0.76},
		},
	}

	p := c.InitialParams()
	assert.Equal(t, 10.26, p.A)
	assert.Equal(t, 8.0, p.M)
	assert.Equal(t, 2.0, p.Delta)

	c.InitialGuess = &GuessConfig{A: 1, B: 2, C: 3, D: 4, M: 5, Delta: 6}
	p = c.InitialParams()
	assert.Equal(t, ParameterVector{A: 1, B: 2, C: 3, D: 4, M: 5, Delta: 6}, p)
}

func TestParamMaskRoundTrip(t *testing.T) {
	p := ParameterVector{A: 1, B: 2, C: 3, D: 4, M: 5, Delta: 6}
	assert.Equal(t, p, FromArray(p.Array()))

	poi := FreezePOI()
	assert.Equal(t, 4, poi.FreeCount())
	assert.True(t, poi[ParamM])
	assert.True(t, poi[ParamDelta])
	assert.False(t, poi[ParamA])

	var none ParamMask
	assert.Equal(t, NumParams, none.FreeCount())
}
