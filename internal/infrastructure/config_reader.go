package infrastructure

import (
	"flag"
	"os"
	"runtime"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"confidence-contours/internal/domain"
)

type YAMLConfigReader struct {
	logger *zap.Logger
}

func NewYAMLConfigReader(logger *zap.Logger) *YAMLConfigReader {
	return &YAMLConfigReader{logger: logger}
}

func (r *YAMLConfigReader) ReadConfig(path string) (*domain.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config domain.Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	// Применяем аргументы командной строки
	r.applyCommandLineFlags(&config)

	// Устанавливаем значения по умолчанию
	r.setDefaults(&config)

	return &config, nil
}

func (r *YAMLConfigReader) applyCommandLineFlags(config *domain.Config) {
	npseudo := flag.Int("npseudo", config.NPseudo, "Pseudo-experiments per grid point")
	seed := flag.Uint64("seed", config.Seed, "Master random seed")
	workers := flag.Int("workers", config.Workers, "Number of workers")
	tolerance := flag.Float64("tolerance", config.FitTolerance, "Fit convergence tolerance")
	maxIters := flag.Int("max-iters", config.FitMaxIters, "Fit iteration budget")
	logLevel := flag.String("log-level", config.LogLevel, "Log level")

	flag.Parse()

	config.NPseudo = *npseudo
	config.Seed = *seed
	config.Workers = *workers
	config.FitTolerance = *tolerance
	config.FitMaxIters = *maxIters
	config.LogLevel = *logLevel
}

func (r *YAMLConfigReader) setDefaults(config *domain.Config) {
	if config.NBins == 0 {
		config.NBins = 20
	}
	if config.NPseudo == 0 {
		config.NPseudo = 1000
	}
	if config.FitTolerance == 0 {
		config.FitTolerance = 1e-8
	}
	if config.FitMaxIters == 0 {
		config.FitMaxIters = 2000
	}
	if config.Workers == 0 {
		config.Workers = max(1, runtime.NumCPU()-1)
	}
	if config.MaxExclusionRate == 0 {
		config.MaxExclusionRate = 0.01
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if len(config.SigmaLevels) == 0 {
		config.SigmaLevels = []float64{1, 2, 3}
	}
	if config.CountsFile == "" {
		config.CountsFile = "observed.txt"
	}
	if config.SurfaceFile == "" {
		config.SurfaceFile = "surface.txt"
	}
	if config.ContoursFile == "" {
		config.ContoursFile = "contours.txt"
	}
}
