package registry

import (
	"errors"
	"os"
	"sort"
	"sync"

	"media-forensics/internal/asset"
	"media-forensics/internal/logging"
	"media-forensics/internal/metrics"
)

// ErrNotFound is returned when a record identifier is unknown, either
// because it never existed or because it was deleted.
var ErrNotFound = errors.New("asset record not found")

// Store holds asset records keyed by identifier.
type Store struct {
	mu      sync.RWMutex
	records map[string]*asset.Record
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		records: make(map[string]*asset.Record),
	}
}

// Put registers a new record. The store takes ownership; callers must not
// retain the pointer.
func (s *Store) Put(rec *asset.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
	metrics.RegistryRecords.Set(float64(len(s.records)))
}

// Get returns a deep copy of the record.
func (s *Store) Get(id string) (*asset.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

// List returns copies of all records, newest first.
func (s *Store) List() []*asset.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*asset.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Len returns the number of live records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Update applies fn to the live record under the write lock. If the record
// has been deleted the update is discarded and ErrNotFound is returned, so
// async workers can settle into a no-longer-relevant record without effect.
func (s *Store) Update(id string, fn func(*asset.Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	fn(rec)
	return nil
}

// Delete removes the record and releases every on-disk resource it owns.
// Each resource is released exactly once: the record leaves the map under
// the lock, so a racing Delete or Update cannot see it again.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	rec, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	delete(s.records, id)
	metrics.RegistryRecords.Set(float64(len(s.records)))
	paths := rec.OwnedPaths()
	s.mu.Unlock()

	ReleasePaths(paths)
	return nil
}

// ReleasePaths removes owned files from disk. Missing files are ignored;
// they may already have been released by a racing cleanup.
func ReleasePaths(paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			logging.Warn("failed to release %s: %v", p, err)
		}
	}
}

// CountByState tallies live records per analysis state, for metrics.
func (s *Store) CountByState() map[asset.AnalysisState]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[asset.AnalysisState]int, 3)
	for _, rec := range s.records {
		counts[rec.AnalysisState]++
	}
	return counts
}
