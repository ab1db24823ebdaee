package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"chemtutor/internal/adapter/store/rank"
	"chemtutor/internal/port"
)

var (
	bucketVectors = []byte("vectors")
	bucketMeta    = []byte("meta")
)

// BoltVectorStore implements VectorStore using BoltDB for persistence.
// All vectors are cached in memory and searched by brute force.
type BoltVectorStore struct {
	db        *bbolt.DB
	dimension int
	mu        sync.RWMutex
	vectors   map[string]vectorEntry
}

type vectorEntry struct {
	vector   []float32
	text     string
	metadata map[string]string
	seq      uint64
}

type storedVector struct {
	Vector   []float32         `json:"v"`
	Text     string            `json:"t"`
	Metadata map[string]string `json:"m,omitempty"`
	Seq      uint64            `json:"s"`
}

// OpenBoltVectorStore opens (or creates) the BoltDB file at path. A
// dimension of 0 accepts vectors of any length.
func OpenBoltVectorStore(path string, dimension int) (*BoltVectorStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketVectors, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &BoltVectorStore{
		db:        db,
		dimension: dimension,
		vectors:   make(map[string]vectorEntry),
	}
	if err := s.loadVectors(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load vectors: %w", err)
	}
	return s, nil
}

// loadVectors loads all vectors from BoltDB into memory.
func (s *BoltVectorStore) loadVectors() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketVectors).ForEach(func(k, v []byte) error {
			var stored storedVector
			if err := json.Unmarshal(v, &stored); err != nil {
				return nil // Skip corrupted entries
			}
			s.vectors[string(k)] = vectorEntry{
				vector:   stored.Vector,
				text:     stored.Text,
				metadata: stored.Metadata,
				seq:      stored.Seq,
			}
			return nil
		})
	})
}

// Upsert adds or replaces items. A replaced item keeps its original
// storage position.
func (s *BoltVectorStore) Upsert(_ context.Context, items []port.VectorItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		if s.dimension > 0 && len(item.Vector) != s.dimension {
			return fmt.Errorf("vector dimension mismatch for %s: expected %d, got %d", item.ID, s.dimension, len(item.Vector))
		}
	}

	staged := make(map[string]vectorEntry, len(items))
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		for _, item := range items {
			seq := s.existingSeq(item.ID, staged)
			if seq == 0 {
				next, err := b.NextSequence()
				if err != nil {
					return err
				}
				seq = next
			}

			data, err := json.Marshal(storedVector{
				Vector:   item.Vector,
				Text:     item.Text,
				Metadata: item.Metadata,
				Seq:      seq,
			})
			if err != nil {
				return err
			}
			if err := b.Put([]byte(item.ID), data); err != nil {
				return err
			}
			staged[item.ID] = vectorEntry{vector: item.Vector, text: item.Text, metadata: item.Metadata, seq: seq}
		}
		return nil
	})
	if err != nil {
		return err
	}

	// only touch the cache once the transaction has committed
	for id, e := range staged {
		s.vectors[id] = e
	}
	return nil
}

func (s *BoltVectorStore) existingSeq(id string, staged map[string]vectorEntry) uint64 {
	if e, ok := staged[id]; ok {
		return e.seq
	}
	if e, ok := s.vectors[id]; ok {
		return e.seq
	}
	return 0
}

// Query scores every vector whose metadata matches filter.
func (s *BoltVectorStore) Query(_ context.Context, vec []float32, k int, filter map[string]string) ([]port.VectorResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dimension > 0 && len(vec) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", s.dimension, len(vec))
	}

	cands := make([]rank.Candidate, 0, len(s.vectors))
	for id, e := range s.vectors {
		if !rank.Matches(e.metadata, filter) {
			continue
		}
		cands = append(cands, rank.Candidate{
			ID:       id,
			Text:     e.text,
			Metadata: e.metadata,
			Score:    rank.Cosine(vec, e.vector),
			Seq:      e.seq,
		})
	}
	return rank.Rank(cands, k), nil
}

func (s *BoltVectorStore) Stats(_ context.Context) (port.StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	metas := make([]map[string]string, 0, len(s.vectors))
	for _, e := range s.vectors {
		metas = append(metas, e.metadata)
	}
	return rank.Summarize(metas), nil
}

// Count returns the number of vectors in the store.
func (s *BoltVectorStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors), nil
}

// Clear removes every vector but keeps the schema info.
func (s *BoltVectorStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketVectors); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketVectors)
		return err
	})
	if err != nil {
		return err
	}
	s.vectors = make(map[string]vectorEntry)
	return nil
}

func (s *BoltVectorStore) Close() error {
	return s.db.Close()
}
