package infrastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ReadConfig registers its override flags on the global FlagSet, so it is
// exercised exactly once in this package's tests.
func TestReadConfigParsesAndDefaults(t *testing.T) {
	path := writeTemp(t, "config.yaml", `
n_bins: 20
counts_file: observed.txt
seed: 137
priors:
  a: {mean: 10.26, sigma: 0.3}
  b: {mean: 5.16, sigma: 0.1}
  c: {mean: 3.31, sigma: 0.6}
  d: {mean: 0.76, sigma: 0.04}
grid:
  m_min: 6.0
  m_max: 10.0
  m_steps: 17
  delta_min: 0.8
  delta_max: 3.0
  delta_steps: 12
n_pseudo: 2000
sigma_levels: [1, 2, 3]
`)

	reader := NewYAMLConfigReader(zap.NewNop())
	config, err := reader.ReadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 20, config.NBins)
	assert.Equal(t, uint64(137), config.Seed)
	assert.Equal(t, 2000, config.NPseudo)
	assert.Equal(t, 10.26, config.Priors.A.Mean)
	assert.Equal(t, 0.04, config.Priors.D.Sigma)
	assert.Equal(t, 17, config.Grid.MSteps)
	assert.Equal(t, []float64{1, 2, 3}, config.SigmaLevels)

	// defaults filled for keys absent from the file
	assert.Equal(t, 1e-8, config.FitTolerance)
	assert.Equal(t, 2000, config.FitMaxIters)
	assert.Equal(t, 0.01, config.MaxExclusionRate)
	assert.GreaterOrEqual(t, config.Workers, 1)
	assert.Equal(t, "info", config.LogLevel)
	assert.Equal(t, "surface.txt", config.SurfaceFile)

	require.NoError(t, config.Validate())
}
