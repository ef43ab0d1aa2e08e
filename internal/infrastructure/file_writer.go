package infrastructure

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"confidence-contours/internal/domain"
)

type FmtFunc func(float64) string

type TXTSurfaceWriter struct {
	logger *zap.Logger
	format FmtFunc
}

func NewTXTSurfaceWriter(logger *zap.Logger) *TXTSurfaceWriter {
	return &TXTSurfaceWriter{
		logger: logger,
		format: func(val float64) string {
			return strconv.FormatFloat(val, 'f', 6, 64)
		},
	}
}

// WriteSurface writes the probability surface as a tab-separated table:
// first row the Delta axis, first column the m axis.
func (w *TXTSurfaceWriter) WriteSurface(filename string, surface *domain.CoverageSurface) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	defer writer.Flush()

	// Записываем ось Delta
	deltaLabels := make([]string, len(surface.DeltaAxis))
	for j, d := range surface.DeltaAxis {
		deltaLabels[j] = strconv.FormatFloat(d, 'f', 4, 64)
	}
	fmt.Fprintf(writer, "m/delta\t%s\n", strings.Join(deltaLabels, "\t"))

	// Записываем строки с метками по m
	for i, row := range surface.Prob {
		mLabel := strconv.FormatFloat(surface.MAxis[i], 'f', 4, 64)
		cells := make([]string, len(row))
		for j, val := range row {
			cells[j] = w.format(val)
		}
		fmt.Fprintf(writer, "%s\t%s\n", mLabel, strings.Join(cells, "\t"))
	}

	return nil
}

// WriteContours writes extracted iso-probability segments, one per line:
// sigma, level, then the two endpoint coordinates.
func (w *TXTSurfaceWriter) WriteContours(filename string, sets []domain.ContourSet) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	defer writer.Flush()

	fmt.Fprintln(writer, "sigma\tlevel\tm1\tdelta1\tm2\tdelta2")
	for _, set := range sets {
		for _, seg := range set.Segments {
			fmt.Fprintf(writer, "%.1f\t%.6f\t%s\t%s\t%s\t%s\n",
				set.Sigma, set.Level,
				w.format(seg.P1.M), w.format(seg.P1.Delta),
				w.format(seg.P2.M), w.format(seg.P2.Delta))
		}
		w.logger.Info("Contour written",
			zap.Float64("sigma", set.Sigma),
			zap.Int("segments", len(set.Segments)))
	}

	return nil
}
