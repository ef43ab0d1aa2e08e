package spectrum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"confidence-contours/internal/domain"
)

var testPriors = domain.Priors{
	A: domain.NuisancePrior{Mean: 10.26, Sigma: 0.3},
	B: domain.NuisancePrior{Mean: 5.16, Sigma: 0.1},
	C: domain.NuisancePrior{Mean: 3.31, Sigma: 0.6},
	D: domain.NuisancePrior{Mean: 0.76, Sigma: 0.04},
}

var testHypothesis = domain.ParameterVector{A: 10.26, B: 5.16, C: 3.31, D: 0.76, M: 8.3, Delta: 1.8}

func TestGenerateDeterministicForEqualSeeds(t *testing.T) {
	g1 := NewGenerator(20, &testPriors, false, 42)
	g2 := NewGenerator(20, &testPriors, false, 42)

	for i := 0; i < 5; i++ {
		c1, err := g1.Generate(testHypothesis)
		require.NoError(t, err)
		c2, err := g2.Generate(testHypothesis)
		require.NoError(t, err)
		assert.Equal(t, c1, c2, "draw %d", i)
	}
}

func TestGenerateAdvancesBetweenCalls(t *testing.T) {
	g := NewGenerator(20, &testPriors, false, 42)

	c1, err := g.Generate(testHypothesis)
	require.NoError(t, err)
	c2, err := g.Generate(testHypothesis)
	require.NoError(t, err)

	assert.NotEqual(t, c1, c2)
}

func TestGenerateSeedsGiveIndependentStreams(t *testing.T) {
	c1, err := NewGenerator(20, &testPriors, false, 1).Generate(testHypothesis)
	require.NoError(t, err)
	c2, err := NewGenerator(20, &testPriors, false, 2).Generate(testHypothesis)
	require.NoError(t, err)

	assert.NotEqual(t, c1, c2)
}

func TestGenerateCountsNonNegative(t *testing.T) {
	g := NewGenerator(20, &testPriors, false, 7)
	counts, err := g.Generate(testHypothesis)
	require.NoError(t, err)
	require.Len(t, counts, 20)
	for k, c := range counts {
		assert.GreaterOrEqual(t, c, 0, "bin %d", k+1)
	}
}

func TestGenerateFluctuatedReproducible(t *testing.T) {
	g1 := NewGenerator(20, &testPriors, true, 99)
	g2 := NewGenerator(20, &testPriors, true, 99)

	c1, err := g1.Generate(testHypothesis)
	require.NoError(t, err)
	c2, err := g2.Generate(testHypothesis)
	require.NoError(t, err)
	assert.Equal(t, c1, c2)
}

func TestGenerateRejectsDomainErrors(t *testing.T) {
	g := NewGenerator(20, &testPriors, false, 3)

	bad := testHypothesis
	bad.Delta = 0
	_, err := g.Generate(bad)
	assert.ErrorIs(t, err, domain.ErrModelDomain)

	bad = testHypothesis
	bad.B = 0
	_, err = g.Generate(bad)
	assert.ErrorIs(t, err, domain.ErrModelDomain)
}
