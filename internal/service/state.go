package service

import (
	"sync"

	"ragconsole/internal/domain"
)

// Snapshot is a copy of the client state at one version.
type Snapshot struct {
	Version     uint64
	Result      *domain.QueryResult
	Experiments []domain.Experiment
	Comparison  []domain.ComparisonRow
	Loading     domain.LoadingFlags
	LastUpload  *domain.UploadReceipt
	Notice      string
	Err         error
}

// state is written only by Orchestrator workflows.
type state struct {
	mu   sync.Mutex
	snap Snapshot

	rawSeq, rawApplied uint64
	cmpSeq, cmpApplied uint64

	listeners []func()
}

func (s *state) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.snap
	if s.snap.Result != nil {
		r := *s.snap.Result
		r.Passages = append([]string(nil), r.Passages...)
		out.Result = &r
	}
	if s.snap.LastUpload != nil {
		u := *s.snap.LastUpload
		out.LastUpload = &u
	}
	out.Experiments = append([]domain.Experiment(nil), s.snap.Experiments...)
	out.Comparison = append([]domain.ComparisonRow(nil), s.snap.Comparison...)
	return out
}

func (s *state) onChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// update applies fn under the lock and notifies listeners after releasing it.
func (s *state) update(fn func(*Snapshot) bool) bool {
	s.mu.Lock()
	changed := fn(&s.snap)
	if changed {
		s.snap.Version++
	}
	listeners := append([]func(){}, s.listeners...)
	s.mu.Unlock()
	if changed {
		for _, l := range listeners {
			l()
		}
	}
	return changed
}

// begin sets a loading flag. It reports false if the flag was already set.
func (s *state) begin(flag func(*domain.LoadingFlags) *bool) bool {
	return s.update(func(sn *Snapshot) bool {
		f := flag(&sn.Loading)
		if *f {
			return false
		}
		*f = true
		return true
	})
}

func (s *state) end(flag func(*domain.LoadingFlags) *bool) {
	s.update(func(sn *Snapshot) bool {
		*flag(&sn.Loading) = false
		return true
	})
}

func uploading(l *domain.LoadingFlags) *bool { return &l.Uploading }
func querying(l *domain.LoadingFlags) *bool  { return &l.Querying }

func (s *state) nextRawSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rawSeq++
	return s.rawSeq
}

func (s *state) nextCmpSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cmpSeq++
	return s.cmpSeq
}

// setExperiments replaces the rows unless a newer fetch already landed.
func (s *state) setExperiments(seq uint64, rows []domain.Experiment) bool {
	return s.update(func(sn *Snapshot) bool {
		if seq < s.rawApplied {
			return false
		}
		s.rawApplied = seq
		sn.Experiments = rows
		return true
	})
}

func (s *state) setComparison(seq uint64, rows []domain.ComparisonRow) bool {
	return s.update(func(sn *Snapshot) bool {
		if seq < s.cmpApplied {
			return false
		}
		s.cmpApplied = seq
		sn.Comparison = rows
		return true
	})
}

// rawFailed records err unless a newer metrics fetch has been issued since seq.
func (s *state) rawFailed(seq uint64, err error) bool {
	return s.failed(seq, &s.rawSeq, err)
}

func (s *state) cmpFailed(seq uint64, err error) bool {
	return s.failed(seq, &s.cmpSeq, err)
}

func (s *state) failed(seq uint64, latest *uint64, err error) bool {
	return s.update(func(sn *Snapshot) bool {
		if seq < *latest {
			return false
		}
		sn.Err = err
		return true
	})
}

func (s *state) setResult(r domain.QueryResult) {
	s.update(func(sn *Snapshot) bool {
		sn.Result = &r
		return true
	})
}

func (s *state) setUpload(r domain.UploadReceipt) {
	s.update(func(sn *Snapshot) bool {
		sn.LastUpload = &r
		return true
	})
}

func (s *state) setNotice(msg string) {
	s.update(func(sn *Snapshot) bool {
		sn.Notice = msg
		return true
	})
}

func (s *state) setErr(err error) {
	s.update(func(sn *Snapshot) bool {
		sn.Err = err
		return true
	})
}

func (s *state) clear(notice, err bool) {
	s.update(func(sn *Snapshot) bool {
		changed := false
		if notice && sn.Notice != "" {
			sn.Notice = ""
			changed = true
		}
		if err && sn.Err != nil {
			sn.Err = nil
			changed = true
		}
		return changed
	})
}
