package usecase

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"chemtutor/internal/adapter/chunker"
	"chemtutor/internal/adapter/embedding/hashembed"
	"chemtutor/internal/adapter/memstore"
	"chemtutor/internal/adapter/validator"
	"chemtutor/internal/domain"
	"chemtutor/internal/port"
	"chemtutor/internal/retry"
)

const goodChapter = `# Kafli 1: Efnafræði í daglegu lífi

## 1.1 Inngangur að efnafræði

Efnafræði er vísindi um efni og eiginleika þeirra. Atóm eru grunneiningar efnis og samanstanda af róteindum, nifteindum og rafeindum.

## 1.2 Efnatengi

Efnatengi myndast þegar atóm deila rafeindum eða flytja rafeindir á milli sín.

- Samgilt tengi
- Jónatengi
`

var fastRetry = retry.Policy{Attempts: 2, Delay: time.Millisecond}

var errUnavailable = errors.New("service unavailable")

// countingEmbedder wraps the hashed embedder and can fail a number of calls.
type countingEmbedder struct {
	*hashembed.Embedder

	mu       sync.Mutex
	calls    int
	failures int
}

func newCountingEmbedder() *countingEmbedder {
	return &countingEmbedder{Embedder: hashembed.New(64)}
}

func (e *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	fail := e.failures != 0
	if e.failures > 0 {
		e.failures--
	}
	e.mu.Unlock()
	if fail {
		return nil, errUnavailable
	}
	return e.Embedder.Embed(ctx, texts)
}

func (e *countingEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// scriptedGenerator fails its first `failures` calls (negative: always).
type scriptedGenerator struct {
	failures int
	err      error

	calls      int
	lastSystem string
	lastPrompt string
	tokensIn   int
	tokensOut  int
}

func (g *scriptedGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (port.Generation, error) {
	g.calls++
	g.lastSystem = systemPrompt
	g.lastPrompt = userPrompt
	if g.failures != 0 {
		if g.failures > 0 {
			g.failures--
		}
		err := g.err
		if err == nil {
			err = errUnavailable
		}
		return port.Generation{}, err
	}
	return port.Generation{Text: "Svar", TokensIn: g.tokensIn, TokensOut: g.tokensOut}, nil
}

func (g *scriptedGenerator) ModelName() string { return "scripted" }

// brokenStore fails every read.
type brokenStore struct {
	*memstore.MemoryStore
}

func (brokenStore) Query(context.Context, []float32, int, map[string]string) ([]port.VectorResult, error) {
	return nil, errUnavailable
}

func (brokenStore) Stats(context.Context) (port.StoreStats, error) {
	return port.StoreStats{}, errUnavailable
}

func newIngest(emb port.Embedder, st port.VectorStore, batchSize int) *IngestUseCase {
	logger := zap.NewNop()
	return NewIngestUseCase(
		validator.New(validator.DefaultLimits(), logger),
		chunker.NewMarkdownChunker(chunker.DefaultLimits(), logger),
		emb,
		st,
		IngestOptions{BatchSize: batchSize, Retry: fastRetry},
		logger,
	)
}

func retrieved(n int) domain.RetrievalResult {
	res := domain.RetrievalResult{Query: "spurning"}
	for i := range n {
		sec := "1." + strconv.Itoa(i+1)
		res.Chunks = append(res.Chunks, domain.RetrievedChunk{
			ID:   domain.ChunkID(1, sec, i),
			Text: "Texti " + sec,
			Metadata: domain.ChunkMetadata{
				ChapterNumber: 1,
				SectionNumber: sec,
				ChapterTitle:  "Efni",
				SectionTitle:  "Hluti " + sec,
				ChunkIndex:    i,
				Language:      domain.Language,
			}.Map(),
			Score: 1 - float64(i)/10,
		})
	}
	return res
}
