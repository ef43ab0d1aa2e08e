package infrastructure

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"confidence-contours/internal/domain"
)

type TXTCountsReader struct {
	logger *zap.Logger
}

func NewTXTCountsReader(logger *zap.Logger) *TXTCountsReader {
	return &TXTCountsReader{logger: logger}
}

// ReadCounts reads the observed count spectrum: whitespace-separated
// non-negative integers, one or more per line, '#' starts a comment.
func (r *TXTCountsReader) ReadCounts(filename string) ([]int, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var counts []int
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}

		for _, field := range strings.Fields(line) {
			value, err := strconv.Atoi(field)
			if err != nil {
				r.logger.Warn("Non-integer bin content", zap.String("value", field))
				return nil, domain.ErrInvalidFileFormat
			}
			if value < 0 {
				r.logger.Warn("Negative bin content", zap.Int("value", value))
				return nil, domain.ErrInvalidFileFormat
			}
			counts = append(counts, value)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(counts) == 0 {
		return nil, domain.ErrInvalidFileFormat
	}

	return counts, nil
}
