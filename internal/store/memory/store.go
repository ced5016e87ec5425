// Package memory is an in-memory RecordStore for tests and single-process
// development runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/voyagent/voyagent/internal/store"
	"github.com/voyagent/voyagent/internal/trip"
)

// Store is an in-memory implementation of store.RecordStore.
type Store struct {
	mu      sync.RWMutex
	records map[trip.Kind]map[string]*store.Record
	seq     int64
}

var _ store.RecordStore = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		records: make(map[trip.Kind]map[string]*store.Record),
	}
}

func (s *Store) CreateRecord(ctx context.Context, rec *store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID, ok := s.records[rec.Kind]
	if !ok {
		byID = make(map[string]*store.Record)
		s.records[rec.Kind] = byID
	}
	if _, exists := byID[rec.ID]; exists {
		return fmt.Errorf("record %s/%s already exists", rec.Kind, rec.ID)
	}

	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	s.seq++

	copied := *rec
	copied.Fields = rec.Fields.Clone()
	byID[rec.ID] = &copied
	return nil
}

func (s *Store) GetRecord(ctx context.Context, kind trip.Kind, id string) (*store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[kind][id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *rec
	copied.Fields = rec.Fields.Clone()
	return &copied, nil
}

func (s *Store) UpdateRecord(ctx context.Context, kind trip.Kind, id string, fields trip.Entity) (*store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[kind][id]
	if !ok {
		return nil, store.ErrNotFound
	}
	rec.Fields = fields.Clone()
	rec.UpdatedAt = time.Now()

	copied := *rec
	copied.Fields = rec.Fields.Clone()
	return &copied, nil
}

func (s *Store) ListRecords(ctx context.Context, kind trip.Kind, opts store.ListOptions) ([]*store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*store.Record
	for _, rec := range s.records[kind] {
		if opts.TripID != "" && rec.TripID != opts.TripID {
			continue
		}
		copied := *rec
		copied.Fields = rec.Fields.Clone()
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	start := opts.Offset
	if start >= len(result) {
		return []*store.Record{}, nil
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}
	return result[start:end], nil
}

func (s *Store) Close() error {
	return nil
}
