package dataset

import (
	"fmt"
	"iter"
	"log"
	"slices"
	"sync/atomic"
	"time"
)

// Snapshot is an immutable, in-memory copy of the reference dataset.
// It is shared by every request without locking; nothing mutates it after
// construction.
type Snapshot struct {
	source   string
	loadedAt time.Time
	columns  Columns
	records  []HistoricalRecord
}

// NewSnapshot copies records into a new snapshot.
func NewSnapshot(source string, columns Columns, records []HistoricalRecord) *Snapshot {
	return &Snapshot{
		source:   source,
		loadedAt: time.Now(),
		columns:  columns,
		records:  slices.Clone(records),
	}
}

func (s *Snapshot) Source() string      { return s.source }
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }
func (s *Snapshot) Columns() Columns    { return s.columns }
func (s *Snapshot) Len() int            { return len(s.records) }

// At returns a copy of the i-th record.
func (s *Snapshot) At(i int) HistoricalRecord { return s.records[i] }

// Records returns a copy of all records in dataset order.
func (s *Snapshot) Records() []HistoricalRecord { return slices.Clone(s.records) }

// All iterates over the records in dataset order.
func (s *Snapshot) All() iter.Seq2[int, HistoricalRecord] {
	return func(yield func(int, HistoricalRecord) bool) {
		for i, r := range s.records {
			if !yield(i, r) {
				return
			}
		}
	}
}

// Filter returns the records accepted by keep, in dataset order.
func (s *Snapshot) Filter(keep func(HistoricalRecord) bool) []HistoricalRecord {
	var out []HistoricalRecord
	for _, r := range s.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// Store holds the current snapshot of the reference dataset file.
// Reloads swap the pointer atomically; requests keep the snapshot they started with.
type Store struct {
	path    string
	current atomic.Pointer[Snapshot]
}

// NewStore creates a store for the dataset at path. Call Load before use.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// NewStaticStore wraps an already built snapshot.
func NewStaticStore(snap *Snapshot) *Store {
	s := &Store{path: snap.Source()}
	s.current.Store(snap)
	return s
}

// Path returns the dataset file path.
func (s *Store) Path() string { return s.path }

// Load (re)reads the dataset file and publishes the new snapshot.
// On error the previous snapshot stays in place.
func (s *Store) Load() (*Snapshot, error) {
	if s.path == "" {
		return nil, fmt.Errorf("%w: dataset path is empty", ErrMalformedInput)
	}
	start := time.Now()
	snap, err := Load(s.path)
	if err != nil {
		log.Printf("❌ [dataset] failed to load %s: %v", s.path, err)
		return nil, err
	}
	s.current.Store(snap)
	log.Printf("✅ [dataset] %d records loaded from %s in %v (edition=%t, budget=%t)",
		snap.Len(), s.path, time.Since(start), snap.Columns().Edition, snap.Columns().Budget)
	return snap, nil
}

// Snapshot returns the current snapshot, nil before the first successful Load.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}
