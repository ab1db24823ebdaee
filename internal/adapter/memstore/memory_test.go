package memstore

import (
	"context"
	"testing"

	"chemtutor/internal/port"
)

func TestMemoryStoreUpsertAndQuery(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	err := s.Upsert(ctx, []port.VectorItem{
		{ID: "a", Text: "A", Vector: []float32{1, 0}, Metadata: map[string]string{"chapter_number": "1"}},
		{ID: "b", Text: "B", Vector: []float32{1, 0}, Metadata: map[string]string{"chapter_number": "2"}},
		{ID: "c", Text: "C", Vector: []float32{0, 1}, Metadata: map[string]string{"chapter_number": "1"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := s.Query(ctx, []float32{1, 0}, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 2 || res[0].ID != "a" || res[1].ID != "b" {
		t.Errorf("expected [a b], got %+v", res)
	}

	res, _ = s.Query(ctx, []float32{1, 0}, 5, map[string]string{"chapter_number": "1"})
	if len(res) != 2 || res[0].ID != "a" || res[1].ID != "c" {
		t.Errorf("expected [a c] for chapter 1, got %+v", res)
	}

	// re-upserting keeps count and position
	if err := s.Upsert(ctx, []port.VectorItem{{ID: "a", Text: "A2", Vector: []float32{1, 0}}}); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.Count(ctx); n != 3 {
		t.Errorf("expected 3 items, got %d", n)
	}
	res, _ = s.Query(ctx, []float32{1, 0}, 1, nil)
	if res[0].ID != "a" || res[0].Text != "A2" {
		t.Errorf("expected updated a first, got %+v", res[0])
	}

	if err := s.Upsert(ctx, []port.VectorItem{{Text: "no id"}}); err == nil {
		t.Error("expected error for missing id")
	}
}
