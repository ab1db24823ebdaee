package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chemtutor/config"
	"chemtutor/internal/adapter/memstore"
	"chemtutor/internal/adapter/store"
	"chemtutor/internal/port"
)

var errDiskGone = errors.New("disk gone")

type unreadableStore struct {
	*memstore.MemoryStore
}

func (unreadableStore) Count(context.Context) (int, error) { return 0, errDiskGone }

func TestIndexSize(t *testing.T) {
	ctx := context.Background()
	st := memstore.NewMemoryStore()

	_, err := indexSize(ctx, st)
	assert.ErrorContains(t, err, "no chunks")

	require.NoError(t, st.Upsert(ctx, []port.VectorItem{{ID: "ch1_sec1.1_chunk0", Vector: []float32{1}}}))
	n, err := indexSize(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = indexSize(ctx, unreadableStore{memstore.NewMemoryStore()})
	assert.ErrorIs(t, err, errDiskGone)
}

func TestSetupRetrievalMockBolt(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, config.EnsureDataDir(dir))

	cfg := config.DefaultConfig()
	cfg.Embedding.Provider = "mock"
	cfg.Embedding.Dimension = 8
	cfg.Store.Backend = "bolt"

	_, _, _, err := setupRetrieval(ctx, cfg, dir)
	assert.ErrorContains(t, err, "no chunks")

	st, err := store.OpenBoltVectorStore(cfg.StorePath(dir), 8)
	require.NoError(t, err)
	require.NoError(t, st.Upsert(ctx, []port.VectorItem{{
		ID:       "ch1_sec1.1_chunk0",
		Text:     "Atóm",
		Vector:   make([]float32, 8),
		Metadata: map[string]string{"chapter_number": "1"},
	}}))
	require.NoError(t, st.Close())

	emb, vs, count, err := setupRetrieval(ctx, cfg, dir)
	require.NoError(t, err)
	defer vs.Close()
	assert.Equal(t, 1, count)
	assert.Equal(t, 8, emb.Dimension())
}

func TestSetupRetrievalRejectsMemoryStore(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Embedding.Provider = "mock"
	cfg.Store.Backend = "memory"

	_, _, _, err := setupRetrieval(context.Background(), cfg, t.TempDir())
	assert.ErrorContains(t, err, "persistent store")
}

func TestRating(t *testing.T) {
	cases := map[float64]string{0.9: "HIGH", 0.6: "GOOD", 0.4: "OK", 0.1: "LOW", 0.7: "GOOD"}
	for score, want := range cases {
		assert.Equal(t, want, rating(score), "score %.2f", score)
	}
}
