package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"

	"ragconsole/internal/domain"
)

// Positions of the metrics store row:
// id, query, chunk_size, top_k, retrieval_latency, generation_latency,
// total_latency, context_length, timestamp.
const (
	colID = iota
	colQuery
	colChunkSize
	colTopK
	colRetrieval
	colGeneration
	colTotal
	colContextLength
	colTimestamp

	minExperimentArity = colTotal + 1
	comparisonArity    = 3
)

func decodeExperiments(raw []json.RawMessage) ([]domain.Experiment, error) {
	out := make([]domain.Experiment, 0, len(raw))
	arity := -1
	for i, r := range raw {
		var cells []json.RawMessage
		if err := json.Unmarshal(r, &cells); err != nil {
			return nil, fmt.Errorf("metrics: %w: row %d is not an array", ErrMalformedResponse, i)
		}
		if arity < 0 {
			arity = len(cells)
		} else if len(cells) != arity {
			return nil, fmt.Errorf("metrics: %w: row %d has %d fields, want %d", ErrMalformedResponse, i, len(cells), arity)
		}
		if len(cells) < minExperimentArity {
			return nil, fmt.Errorf("metrics: %w: row %d has %d fields, want at least %d", ErrMalformedResponse, i, len(cells), minExperimentArity)
		}
		id, ok := number(cells[colID])
		if !ok {
			return nil, fmt.Errorf("metrics: %w: row %d has no numeric id", ErrMalformedResponse, i)
		}
		total, ok := number(cells[colTotal])
		if !ok {
			return nil, fmt.Errorf("metrics: %w: row %d has no numeric total latency", ErrMalformedResponse, i)
		}
		out = append(out, domain.Experiment{
			ID:                int64(id),
			Query:             optString(cells, colQuery),
			ChunkSize:         int(optNumber(cells, colChunkSize)),
			TopK:              int(optNumber(cells, colTopK)),
			RetrievalLatency:  optNumber(cells, colRetrieval),
			GenerationLatency: optNumber(cells, colGeneration),
			TotalLatency:      total,
			ContextLength:     int(optNumber(cells, colContextLength)),
			Timestamp:         optString(cells, colTimestamp),
		})
	}
	return out, nil
}

func decodeComparison(raw []json.RawMessage) ([]domain.ComparisonRow, error) {
	out := make([]domain.ComparisonRow, 0, len(raw))
	for i, r := range raw {
		var cells []json.RawMessage
		if err := json.Unmarshal(r, &cells); err != nil || len(cells) < comparisonArity {
			return nil, fmt.Errorf("compare: %w: row %d is not a [chunk_size, top_k, avg] tuple", ErrMalformedResponse, i)
		}
		var vals [comparisonArity]float64
		for j := range vals {
			v, ok := number(cells[j])
			if !ok {
				return nil, fmt.Errorf("compare: %w: row %d field %d is not numeric", ErrMalformedResponse, i, j)
			}
			vals[j] = v
		}
		out = append(out, domain.ComparisonRow{ChunkSize: int(vals[0]), TopK: int(vals[1]), AvgTotalLatency: vals[2]})
	}
	return out, nil
}

var jsonNull = []byte("null")

func number(cell json.RawMessage) (float64, bool) {
	if bytes.Equal(bytes.TrimSpace(cell), jsonNull) {
		return 0, false
	}
	var v float64
	if err := json.Unmarshal(cell, &v); err != nil {
		return 0, false
	}
	return v, true
}

func optNumber(cells []json.RawMessage, i int) float64 {
	if i >= len(cells) {
		return 0
	}
	v, _ := number(cells[i])
	return v
}

func optString(cells []json.RawMessage, i int) string {
	if i >= len(cells) {
		return ""
	}
	var s string
	if err := json.Unmarshal(cells[i], &s); err != nil {
		return ""
	}
	return s
}
