package journal

import (
	"context"
	"sync"
)

// MemStore is a thread-safe in-memory outcome store.
type MemStore struct {
	mu      sync.RWMutex
	records map[string][]Record // topic -> records
	seqs    map[string]uint64   // topic -> last assigned seq
}

// NewMemStore creates a new in-memory outcome store.
func NewMemStore() *MemStore {
	return &MemStore{
		records: make(map[string][]Record),
		seqs:    make(map[string]uint64),
	}
}

func (s *MemStore) Append(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seqs[rec.Topic]++
	rec.Seq = s.seqs[rec.Topic]
	s.records[rec.Topic] = append(s.records[rec.Topic], rec)
	return nil
}

func (s *MemStore) List(_ context.Context, topic string, afterSeq uint64, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.records[topic]
	var result []Record

	for _, rec := range all {
		if afterSeq > 0 && rec.Seq <= afterSeq {
			continue
		}
		result = append(result, rec)
		if limit > 0 && len(result) >= limit {
			break
		}
	}

	return result, nil
}

func (s *MemStore) LatestSeq(_ context.Context, topic string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seqs[topic], nil
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)
