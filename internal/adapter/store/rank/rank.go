// Package rank holds the scoring and ordering shared by every vector store.
package rank

import (
	"math"
	"sort"
	"strconv"

	"chemtutor/internal/domain"
	"chemtutor/internal/port"
)

// Candidate is one stored item considered for a query. Seq is the order in
// which the item was first stored and breaks score ties.
type Candidate struct {
	ID       string
	Text     string
	Metadata map[string]string
	Score    float64
	Seq      uint64
}

// Matches reports whether meta has every key/value pair of filter.
func Matches(meta, filter map[string]string) bool {
	for k, v := range filter {
		got, ok := meta[k]
		if !ok || got != v {
			return false
		}
	}
	return true
}

// Rank orders candidates by descending score, then by storage order, and
// keeps the first k.
func Rank(cands []Candidate, k int) []port.VectorResult {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Score != cands[j].Score {
			return cands[i].Score > cands[j].Score
		}
		return cands[i].Seq < cands[j].Seq
	})
	if k < 0 {
		k = 0
	}
	if k > len(cands) {
		k = len(cands)
	}

	results := make([]port.VectorResult, k)
	for i := 0; i < k; i++ {
		results[i] = port.VectorResult{
			ID:       cands[i].ID,
			Text:     cands[i].Text,
			Score:    cands[i].Score,
			Metadata: cands[i].Metadata,
		}
	}
	return results
}

// Summarize computes store statistics from the metadata of every chunk.
func Summarize(metas []map[string]string) port.StoreStats {
	chapters := map[string]bool{}
	sections := map[string]bool{}
	for _, m := range metas {
		if c := m[domain.MetaChapterNumber]; c != "" {
			chapters[c] = true
		}
		if s := m[domain.MetaSectionNumber]; s != "" {
			sections[s] = true
		}
	}

	list := make([]string, 0, len(chapters))
	for c := range chapters {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool {
		a, errA := strconv.Atoi(list[i])
		b, errB := strconv.Atoi(list[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return list[i] < list[j]
	})

	return port.StoreStats{
		TotalChunks:    len(metas),
		UniqueChapters: len(chapters),
		UniqueSections: len(sections),
		Chapters:       list,
	}
}

// Cosine calculates the cosine similarity between two vectors.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

