package memstore

import (
	"context"
	"fmt"
	"sync"

	"chemtutor/internal/adapter/store/rank"
	"chemtutor/internal/port"
)

// MemoryStore is a non-persistent VectorStore used for dry runs and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]entry
	seq   uint64
}

type entry struct {
	item port.VectorItem
	seq  uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]entry)}
}

func (s *MemoryStore) Upsert(_ context.Context, items []port.VectorItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		if item.ID == "" {
			return fmt.Errorf("item without id")
		}
		seq := s.items[item.ID].seq
		if seq == 0 {
			s.seq++
			seq = s.seq
		}
		s.items[item.ID] = entry{item: item, seq: seq}
	}
	return nil
}

func (s *MemoryStore) Query(_ context.Context, vec []float32, k int, filter map[string]string) ([]port.VectorResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cands := make([]rank.Candidate, 0, len(s.items))
	for id, e := range s.items {
		if !rank.Matches(e.item.Metadata, filter) {
			continue
		}
		cands = append(cands, rank.Candidate{
			ID:       id,
			Text:     e.item.Text,
			Metadata: e.item.Metadata,
			Score:    rank.Cosine(vec, e.item.Vector),
			Seq:      e.seq,
		})
	}
	return rank.Rank(cands, k), nil
}

func (s *MemoryStore) Stats(_ context.Context) (port.StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	metas := make([]map[string]string, 0, len(s.items))
	for _, e := range s.items {
		metas = append(metas, e.item.Metadata)
	}
	return rank.Summarize(metas), nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items), nil
}

func (s *MemoryStore) Close() error { return nil }
