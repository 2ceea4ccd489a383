package filter

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"ragconsole/internal/domain"
)

// ErrInvalidFilter is returned when a filter value is not a positive integer.
var ErrInvalidFilter = errors.New("filter must be a positive integer")

// State holds the comparison filters. The tui writes it, the orchestrator reads it.
type State struct {
	mu      sync.RWMutex
	filters domain.Filters
}

func NewState() *State { return &State{} }

// Current returns a copy of the active filters.
func (s *State) Current() domain.Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.filters)
}

func (s *State) Set(f domain.Filters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = clone(f)
}

func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = domain.Filters{}
}

// Parse turns the raw input fields into filters. Blank fields stay unset.
func Parse(chunkText, topKText string) (domain.Filters, error) {
	var f domain.Filters
	var err error
	if f.ChunkSize, err = parseOptional(chunkText); err != nil {
		return domain.Filters{}, err
	}
	if f.TopK, err = parseOptional(topKText); err != nil {
		return domain.Filters{}, err
	}
	return f, nil
}

// Params encodes only the set fields as query parameters.
func Params(f domain.Filters) url.Values {
	v := url.Values{}
	if f.ChunkSize != nil {
		v.Set("chunk_size", strconv.Itoa(*f.ChunkSize))
	}
	if f.TopK != nil {
		v.Set("top_k", strconv.Itoa(*f.TopK))
	}
	return v
}

// Int is a convenience for building filters in code.
func Int(v int) *int { return &v }

func parseOptional(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return nil, ErrInvalidFilter
	}
	return &n, nil
}

func clone(f domain.Filters) domain.Filters {
	var out domain.Filters
	if f.ChunkSize != nil {
		out.ChunkSize = Int(*f.ChunkSize)
	}
	if f.TopK != nil {
		out.TopK = Int(*f.TopK)
	}
	return out
}
