// Package hashembed provides an offline embedder for dry runs, tests and the
// browser preview.
package hashembed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Embedder hashes words into a fixed number of buckets and normalizes
// the counts. Texts sharing words get similar vectors, which is enough for
// dry runs and tests. It never fails and makes no network calls.
type Embedder struct {
	dimension int
}

func New(dimension int) *Embedder {
	if dimension <= 0 {
		dimension = 64
	}
	return &Embedder{dimension: dimension}
}

func (e *Embedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = e.vector(text)
	}
	return embeddings, nil
}

func (e *Embedder) vector(text string) []float32 {
	v := make([]float32, e.dimension)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		v[h.Sum32()%uint32(e.dimension)]++
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	n := float32(math.Sqrt(norm))
	for j := range v {
		v[j] /= n
	}
	return v
}

func (e *Embedder) Dimension() int {
	return e.dimension
}

func (e *Embedder) ModelName() string {
	return "mock"
}
