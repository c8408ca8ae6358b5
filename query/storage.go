package query

import (
	"context"
	"iter"
	"maps"
	"slices"
	"sync"
)

const (
	// ColPoint is the default row column holding a point vector.
	ColPoint = "point"

	// ColDistance is the annotation added by GeodesicScan.
	ColDistance = "_distance"

	// ColJoinDistance is the annotation added by GeodesicJoin.
	ColJoinDistance = "_join_distance"
)

// Row is a single result row. Rows produced by the executor are fresh maps;
// storage rows are never mutated.
type Row map[string]any

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	maps.Copy(out, r)

	return out
}

// Storage is the external table collaborator the executor scans. Rows meant
// for geodesic operators must carry a point column (an ordered numeric
// slice).
type Storage interface {
	// Scan returns a sequence over every row of table. The sequence must be
	// stable for a fixed snapshot. An unknown table yields an empty sequence.
	Scan(ctx context.Context, table string) (iter.Seq[Row], error)
}

// MemStorage is an in-memory Storage backed by Go maps. Suitable for tests
// and datasets that fit in memory. It is internally synchronized.
type MemStorage struct {
	mu     sync.RWMutex
	tables map[string][]Row
}

var _ Storage = (*MemStorage)(nil)

// NewMemStorage creates an empty in-memory storage.
func NewMemStorage() *MemStorage {
	return &MemStorage{
		tables: make(map[string][]Row),
	}
}

// Insert appends rows to table.
func (s *MemStorage) Insert(table string, rows ...Row) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tables[table] = append(s.tables[table], rows...)
}

// Scan returns the rows of table in insertion order. The sequence iterates
// over a snapshot taken at call time.
func (s *MemStorage) Scan(ctx context.Context, table string) (iter.Seq[Row], error) {
	s.mu.RLock()
	snapshot := slices.Clone(s.tables[table])
	s.mu.RUnlock()

	return func(yield func(Row) bool) {
		for _, row := range snapshot {
			if !yield(row) {
				return
			}
		}
	}, nil
}

// Len returns the number of rows in table.
func (s *MemStorage) Len(table string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.tables[table])
}
