package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"chemtutor/internal/domain"
	"chemtutor/internal/port"
)

func ids(results []port.VectorResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func TestRankKBounds(t *testing.T) {
	cands := []Candidate{{ID: "a", Score: 0.5, Seq: 2}, {ID: "b", Score: 0.5, Seq: 1}, {ID: "c", Score: 0.9, Seq: 3}}
	assert.Equal(t, []string{"c", "b", "a"}, ids(Rank(cands, 10)))
	assert.Empty(t, Rank(cands, 0))
	assert.Empty(t, Rank(cands, -1))
}

func TestMatches(t *testing.T) {
	meta := map[string]string{domain.MetaChapterNumber: "1", domain.MetaSectionNumber: "1.2"}
	assert.True(t, Matches(meta, nil))
	assert.True(t, Matches(meta, map[string]string{domain.MetaChapterNumber: "1"}))
	assert.False(t, Matches(meta, map[string]string{domain.MetaChapterNumber: "2"}))
	assert.False(t, Matches(meta, map[string]string{"missing": ""}))
}

func TestSummarizeSortsChaptersNumerically(t *testing.T) {
	stats := Summarize([]map[string]string{
		{domain.MetaChapterNumber: "10", domain.MetaSectionNumber: "10.1"},
		{domain.MetaChapterNumber: "2", domain.MetaSectionNumber: "2.1"},
		{domain.MetaChapterNumber: "2", domain.MetaSectionNumber: "2.1"},
	})
	assert.Equal(t, 3, stats.TotalChunks)
	assert.Equal(t, 2, stats.UniqueChapters)
	assert.Equal(t, 2, stats.UniqueSections)
	assert.Equal(t, []string{"2", "10"}, stats.Chapters)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 1}, []float32{2, 2}), 1e-9)
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 1}))
	assert.Zero(t, Cosine([]float32{1}, []float32{1, 1}))
}
