package store

import (
	"sort"
	"sync"
	"time"

	"energy_harmonizer/internal/model"
)

// RunMeta describes a stored run.
type RunMeta struct {
	ID        string
	Columns   []string
	Rows      int
	TimeRange model.TimeRange
	Stored    time.Time
}

type entry struct {
	meta  RunMeta
	frame model.Frame // sorted by DateTime
}

// Store holds merged datasets in memory, indexed by run ID.
type Store struct {
	mu   sync.RWMutex
	runs map[string]*entry
	now  func() time.Time
}

func New() *Store {
	return &Store{
		runs: make(map[string]*entry),
		now:  time.Now,
	}
}

// Put stores a copy of f under runID, sorted by DateTime. An existing run
// with the same ID is replaced.
func (s *Store) Put(runID string, f model.Frame) {
	sorted := f.SortedByDateTime()
	meta := RunMeta{
		ID:      runID,
		Columns: sorted.Header(),
		Rows:    sorted.Len(),
		Stored:  s.now(),
	}
	meta.TimeRange, _ = sorted.TimeRange()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[runID] = &entry{meta: meta, frame: sorted}
}

// Get returns the frame stored for runID.
func (s *Store) Get(runID string) (model.Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.runs[runID]
	if !ok {
		return model.Frame{}, false
	}
	return e.frame, true
}

// Delete removes a run. It reports whether the run existed.
func (s *Store) Delete(runID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.runs[runID]
	delete(s.runs, runID)
	return ok
}

// Runs returns the metadata of every stored run, oldest first.
func (s *Store) Runs() []RunMeta {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]RunMeta, 0, len(s.runs))
	for _, e := range s.runs {
		runs = append(runs, e.meta)
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].Stored.Equal(runs[j].Stored) {
			return runs[i].Stored.Before(runs[j].Stored)
		}
		return runs[i].ID < runs[j].ID
	})
	return runs
}

// RowCount returns the number of rows stored for a run.
func (s *Store) RowCount(runID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.runs[runID]; ok {
		return e.frame.Len()
	}
	return 0
}

// TimeRange returns the time range covered by a run's rows.
func (s *Store) TimeRange(runID string) (model.TimeRange, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.runs[runID]
	if !ok || e.frame.Len() == 0 {
		return model.TimeRange{}, false
	}
	return e.meta.TimeRange, true
}

// GlobalTimeRange returns the union of all runs' time ranges.
func (s *Store) GlobalTimeRange() (model.TimeRange, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var start, end time.Time
	first := true

	for _, e := range s.runs {
		if e.frame.Len() == 0 {
			continue
		}
		rStart, rEnd := e.meta.TimeRange.Start, e.meta.TimeRange.End

		if first || rStart.Before(start) {
			start = rStart
		}
		if first || rEnd.After(end) {
			end = rEnd
		}
		first = false
	}

	if first {
		return model.TimeRange{}, false
	}
	return model.TimeRange{Start: start, End: end}, true
}

// RowsInRange returns a run's rows between start (inclusive) and end (exclusive).
func (s *Store) RowsInRange(runID string, start, end time.Time) []model.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.runs[runID]
	if !ok {
		return nil
	}
	all := e.frame.Rows

	startIdx := sort.Search(len(all), func(i int) bool {
		return !all[i].DateTime.Before(start)
	})
	endIdx := sort.Search(len(all), func(i int) bool {
		return !all[i].DateTime.Before(end)
	})

	if startIdx >= endIdx {
		return nil
	}

	result := make([]model.Record, endIdx-startIdx)
	copy(result, all[startIdx:endIdx])
	return result
}

// RowsAt returns every row of a run at the latest DateTime at or before t.
func (s *Store) RowsAt(runID string, t time.Time) []model.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.runs[runID]
	if !ok {
		return nil
	}
	all := e.frame.Rows

	// first row after t
	idx := sort.Search(len(all), func(i int) bool {
		return all[i].DateTime.After(t)
	})
	if idx == 0 {
		return nil
	}

	at := all[idx-1].DateTime
	first := sort.Search(idx, func(i int) bool {
		return !all[i].DateTime.Before(at)
	})
	result := make([]model.Record, idx-first)
	copy(result, all[first:idx])
	return result
}
