package domain

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

var ErrInvalidSurface = errors.New("invalid coverage surface")

// CoverageSurface is the assembled probability surface over the (m, Delta)
// grid. Prob[i][j] is the coverage probability at (MAxis[i], DeltaAxis[j]);
// grid points whose real-data profile fit was excluded hold NaN.
type CoverageSurface struct {
	MAxis     []float64
	DeltaAxis []float64
	Prob      [][]float64
	NUsed     [][]int
}

// NewCoverageSurface allocates a surface for the given grid, with every
// probability initialised to NaN (the unprocessed-point marker).
func NewCoverageSurface(grid GridSpec) *CoverageSurface {
	s := &CoverageSurface{
		MAxis:     make([]float64, grid.MSteps),
		DeltaAxis: make([]float64, grid.DeltaSteps),
		Prob:      make([][]float64, grid.MSteps),
		NUsed:     make([][]int, grid.MSteps),
	}
	floats.Span(s.MAxis, grid.MMin, grid.MMax)
	floats.Span(s.DeltaAxis, grid.DeltaMin, grid.DeltaMax)
	for i := range s.Prob {
		s.Prob[i] = make([]float64, grid.DeltaSteps)
		s.NUsed[i] = make([]int, grid.DeltaSteps)
		for j := range s.Prob[i] {
			s.Prob[i][j] = math.NaN()
		}
	}
	return s
}

// Point returns the grid coordinate for the (i, j) surface cell.
func (s *CoverageSurface) Point(i, j int) GridPoint {
	return GridPoint{M: s.MAxis[i], Delta: s.DeltaAxis[j]}
}

// Set stores a coverage estimate at the (i, j) surface cell.
func (s *CoverageSurface) Set(i, j int, est CoverageEstimate) {
	if est.Valid {
		s.Prob[i][j] = est.Probability
	}
	s.NUsed[i][j] = est.NUsed
}

// SigmaLevel converts a two-sided Gaussian sigma level to the coverage
// probability bounding the confidence region: CL(s) = 2*Phi(s) - 1.
func SigmaLevel(sigma float64) float64 {
	std := distuv.Normal{Mu: 0, Sigma: 1}
	return 2*std.CDF(sigma) - 1
}

// ContourSet — все сегменты изолинии одного уровня
type ContourSet struct {
	Sigma    float64
	Level    float64
	Segments []ContourSegment
}

type ContourSegment struct {
	P1, P2 GridPoint
}

// ContourSegments traces the iso-probability line Prob = level with a
// marching-squares pass over the surface. Cells touching a NaN point are
// skipped. Segment endpoints are linearly interpolated along cell edges.
func (s *CoverageSurface) ContourSegments(level float64) ([]ContourSegment, error) {
	if len(s.MAxis) < 2 || len(s.DeltaAxis) < 2 {
		return nil, ErrInvalidSurface
	}

	var segments []ContourSegment
	for i := 0; i < len(s.MAxis)-1; i++ {
		for j := 0; j < len(s.DeltaAxis)-1; j++ {
			// Углы ячейки: 00=(i,j), 10=(i+1,j), 01=(i,j+1), 11=(i+1,j+1)
			v00, v10 := s.Prob[i][j], s.Prob[i+1][j]
			v01, v11 := s.Prob[i][j+1], s.Prob[i+1][j+1]
			if anyNaN(v00, v10, v01, v11) {
				continue
			}

			var crossings []GridPoint
			// bottom edge (along m at Delta[j])
			if p, ok := s.edgeCrossing(level, v00, v10, s.MAxis[i], s.MAxis[i+1], s.DeltaAxis[j], false); ok {
				crossings = append(crossings, p)
			}
			// top edge
			if p, ok := s.edgeCrossing(level, v01, v11, s.MAxis[i], s.MAxis[i+1], s.DeltaAxis[j+1], false); ok {
				crossings = append(crossings, p)
			}
			// left edge (along Delta at m[i])
			if p, ok := s.edgeCrossing(level, v00, v01, s.DeltaAxis[j], s.DeltaAxis[j+1], s.MAxis[i], true); ok {
				crossings = append(crossings, p)
			}
			// right edge
			if p, ok := s.edgeCrossing(level, v10, v11, s.DeltaAxis[j], s.DeltaAxis[j+1], s.MAxis[i+1], true); ok {
				crossings = append(crossings, p)
			}

			switch len(crossings) {
			case 2:
				segments = append(segments, ContourSegment{P1: crossings[0], P2: crossings[1]})
			case 4:
				// Седловая ячейка: разрешаем по среднему значению в центре
				center := 0.25 * (v00 + v10 + v01 + v11)
				if (center < level) == (v00 < level) {
					segments = append(segments,
						ContourSegment{P1: crossings[0], P2: crossings[3]},
						ContourSegment{P1: crossings[1], P2: crossings[2]})
				} else {
					segments = append(segments,
						ContourSegment{P1: crossings[0], P2: crossings[2]},
						ContourSegment{P1: crossings[1], P2: crossings[3]})
				}
			}
		}
	}
	return segments, nil
}

// edgeCrossing interpolates the level crossing on one cell edge. The edge
// runs from coordinate c1 to c2 along one axis, with the other axis fixed
// at fixed; vertical selects which axis the edge runs along.
func (s *CoverageSurface) edgeCrossing(level, v1, v2, c1, c2, fixed float64, vertical bool) (GridPoint, bool) {
	if (v1 < level) == (v2 < level) {
		return GridPoint{}, false
	}
	t := (level - v1) / (v2 - v1)
	c := c1 + t*(c2-c1)
	if vertical {
		return GridPoint{M: fixed, Delta: c}, true
	}
	return GridPoint{M: c, Delta: fixed}, true
}

func anyNaN(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// Histogram гистограмма значений вероятности по поверхности
type Histogram struct {
	Bins []float64
	Vals []int
	Len  int
}

// Hist calculates the histogram of the probability surface within [min, max].
// With min == max the range is taken from the data. Used for scan
// diagnostics (a healthy surface spans the full [0,1] range).
func (s *CoverageSurface) Hist(min, max float64, n int) (Histogram, error) {
	if s == nil || len(s.Prob) == 0 || n < 2 {
		return Histogram{}, ErrInvalidSurface
	}

	if min == max {
		min = math.Inf(1)
		max = math.Inf(-1)
		for _, row := range s.Prob {
			for _, value := range row {
				if math.IsNaN(value) {
					continue
				}
				if value < min {
					min = value
				}
				if value > max {
					max = value
				}
			}
		}
		if min >= max {
			return Histogram{}, ErrInvalidSurface
		}
	}

	binWidth := (max - min) / float64(n-1)
	histogram := make([]int, n)
	bins := make([]float64, n)
	floats.Span(bins, min, max)

	for _, row := range s.Prob {
		for _, value := range row {
			if math.IsNaN(value) {
				continue
			}
			if value < min {
				value = min
			} else if value > max {
				value = max
			}
			histogram[int((value-min)/binWidth)]++
		}
	}

	return Histogram{Bins: bins, Vals: histogram, Len: n}, nil
}
