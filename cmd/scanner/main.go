package main

import (
	"errors"
	"flag"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"confidence-contours/internal/app"
	"confidence-contours/internal/domain"
	"confidence-contours/internal/infrastructure"
	"confidence-contours/pkg/fitting"
	"confidence-contours/pkg/spectrum"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	// Инициализация логгера
	logger := initLogger("info")
	defer logger.Sync()

	// Чтение конфигурации (остальные флаги разбирает configReader)
	configReader := infrastructure.NewYAMLConfigReader(logger)
	config, err := configReader.ReadConfig(*configPath)
	if err != nil {
		logger.Fatal("Failed to read config", zap.Error(err))
	}

	// Обновляем уровень логирования
	logger = initLogger(config.LogLevel, config.LogFile)

	if err := config.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	// Чтение наблюдаемого спектра
	countsReader := infrastructure.NewTXTCountsReader(logger)
	observed, err := countsReader.ReadCounts(config.CountsFile)
	if err != nil {
		logger.Fatal("Failed to read observed spectrum",
			zap.String("file", config.CountsFile),
			zap.Error(err))
	}

	logger.Info("Starting confidence scan",
		zap.Int("bins", config.NBins),
		zap.Int("m_steps", config.Grid.MSteps),
		zap.Int("delta_steps", config.Grid.DeltaSteps),
		zap.Int("n_pseudo", config.NPseudo),
		zap.Uint64("seed", config.Seed),
		zap.Int("workers", config.Workers))

	// Инициализация компонентов
	fitter := fitting.NewFitter(logger, fitting.Config{
		Tolerance:     config.FitTolerance,
		MaxIterations: config.FitMaxIters,
	}, &config.Priors, config.PriorPenalty)

	newGen := func(seed uint64) domain.PseudoGenerator {
		return spectrum.NewGenerator(config.NBins, &config.Priors, config.FluctuateNuisance, seed)
	}

	scanner := app.NewGridScanner(logger, config, fitter, newGen, observed)

	surface, global, err := scanner.Run()
	if err != nil {
		if errors.Is(err, domain.ErrExclusionRate) {
			// калибровка недостоверна, но поверхность сохраняем для диагностики
			logger.Error("Scan calibration problem", zap.Error(err))
		} else {
			logger.Fatal("Scan failed", zap.Error(err))
		}
	}

	logger.Info("Global best fit",
		zap.Float64("lambda", global.Lambda),
		zap.Float64("m", global.Params.M),
		zap.Float64("delta", global.Params.Delta))

	// Извлечение контуров
	var sets []domain.ContourSet
	for _, sigma := range config.SigmaLevels {
		level := domain.SigmaLevel(sigma)
		segments, err := surface.ContourSegments(level)
		if err != nil {
			logger.Error("Failed to extract contour",
				zap.Float64("sigma", sigma),
				zap.Error(err))
			continue
		}
		sets = append(sets, domain.ContourSet{Sigma: sigma, Level: level, Segments: segments})
	}

	// Диагностика: здоровая поверхность покрывает весь диапазон [0,1]
	if hist, err := surface.Hist(0, 1, 5); err == nil {
		logger.Debug("probability distribution over surface",
			zap.Float64s("bins", hist.Bins),
			zap.Ints("counts", hist.Vals))
	}

	// Запись результатов
	writer := infrastructure.NewTXTSurfaceWriter(logger)
	if err := writer.WriteSurface(config.SurfaceFile, surface); err != nil {
		logger.Error("Failed to write surface",
			zap.String("file", config.SurfaceFile),
			zap.Error(err))
	} else {
		logger.Info("Successfully written surface", zap.String("file", config.SurfaceFile))
	}

	if err := writer.WriteContours(config.ContoursFile, sets); err != nil {
		logger.Error("Failed to write contours",
			zap.String("file", config.ContoursFile),
			zap.Error(err))
	} else {
		logger.Info("Successfully written contours", zap.String("file", config.ContoursFile))
	}

	logger.Info("Confidence scan completed successfully")
}

// initLogger initializes the logger with the specified level and log file name.
func initLogger(level string, logfileName ...string) *zap.Logger {
	config := zap.NewProductionConfig()

	switch level {
	case "debug":
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		config.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	outputPath := []string{"stderr"}
	for _, item := range logfileName {
		if item != "" {
			outputPath = append(outputPath, item)
		}
	}

	config.OutputPaths = outputPath
	config.ErrorOutputPaths = outputPath
	config.EncoderConfig.TimeKey = "t"
	config.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	config.DisableCaller = false

	logger, _ := config.Build()
	return logger
}
