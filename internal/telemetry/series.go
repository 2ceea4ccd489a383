package telemetry

import (
	"strconv"

	"ragconsole/internal/domain"
)

// Series is a chart-ready projection: one label per value, same order.
type Series struct {
	Labels []string
	Values []float64
}

// Len returns the number of points.
func (s Series) Len() int { return len(s.Values) }

// Max returns the largest value, or 0 for an empty series.
func (s Series) Max() float64 {
	m := 0.0
	for i, v := range s.Values {
		if i == 0 || v > m {
			m = v
		}
	}
	return m
}

// LatencySeries maps experiments to total latency per experiment, in arrival order.
func LatencySeries(rows []domain.Experiment) Series {
	s := Series{Labels: make([]string, 0, len(rows)), Values: make([]float64, 0, len(rows))}
	for _, r := range rows {
		s.Labels = append(s.Labels, "Exp "+strconv.FormatInt(r.ID, 10))
		s.Values = append(s.Values, r.TotalLatency)
	}
	return s
}

// ComparisonSeries labels aggregated rows by the selected grouping.
// Changing mode only relabels; the values are the same rows.
func ComparisonSeries(rows []domain.ComparisonRow, mode domain.GroupingMode) Series {
	s := Series{Labels: make([]string, 0, len(rows)), Values: make([]float64, 0, len(rows))}
	for _, r := range rows {
		s.Labels = append(s.Labels, comparisonLabel(r, mode))
		s.Values = append(s.Values, r.AvgTotalLatency)
	}
	return s
}

func comparisonLabel(r domain.ComparisonRow, mode domain.GroupingMode) string {
	if mode == domain.ByChunkSize {
		return "chunk=" + strconv.Itoa(r.ChunkSize)
	}
	return "k=" + strconv.Itoa(r.TopK)
}
