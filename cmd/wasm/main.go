//go:build js && wasm

// Command wasm exposes chapter validation, chunking and an offline preview
// search to JavaScript so authors can check a chapter in the browser. The
// preview uses the in-memory store and hashed mock embeddings; no API is
// called.
package main

import (
	"context"
	"encoding/json"
	"syscall/js"

	"go.uber.org/zap"

	"chemtutor/internal/adapter/chunker"
	"chemtutor/internal/adapter/embedding/hashembed"
	"chemtutor/internal/adapter/memstore"
	"chemtutor/internal/adapter/validator"
	"chemtutor/internal/retry"
	"chemtutor/internal/usecase"
)

const previewDimension = 256

var (
	val      *validator.Validator
	chk      *chunker.MarkdownChunker
	embedder *hashembed.Embedder
	store    *memstore.MemoryStore
	ingestUC *usecase.IngestUseCase
	search   *usecase.RetrieveUseCase
)

func init() {
	logger := zap.NewNop()
	val = validator.New(validator.DefaultLimits(), logger)
	chk = chunker.NewMarkdownChunker(chunker.DefaultLimits(), logger)
	embedder = hashembed.New(previewDimension)
	reset()
}

func reset() {
	store = memstore.NewMemoryStore()
	ingestUC = usecase.NewIngestUseCase(val, chk, embedder, store, usecase.IngestOptions{}, zap.NewNop())
	search = usecase.NewRetrieveUseCase(embedder, store, retry.Policy{}, zap.NewNop())
}

func main() {
	c := make(chan struct{})

	js.Global().Set("tutorValidate", js.FuncOf(validateContent))
	js.Global().Set("tutorChunk", js.FuncOf(chunkContent))
	js.Global().Set("tutorIngest", js.FuncOf(ingestContent))
	js.Global().Set("tutorSearch", js.FuncOf(searchContent))
	js.Global().Set("tutorClear", js.FuncOf(clearIndex))
	js.Global().Set("tutorStats", js.FuncOf(getStats))

	<-c
}

func validateContent(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return makeError("usage: tutorValidate(content)")
	}
	return makeResult(val.ValidateContent(args[0].String()))
}

func chunkContent(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return makeError("usage: tutorChunk(content)")
	}

	chunks, err := chk.Chunk("preview.md", args[0].String())
	if err != nil {
		return makeError(err.Error())
	}

	output := make([]map[string]interface{}, 0, len(chunks))
	for _, c := range chunks {
		output = append(output, map[string]interface{}{
			"id":       c.ID,
			"text":     c.Text,
			"metadata": c.Metadata,
			"issues":   chunker.CheckChunk(c, chk.Limits()),
		})
	}
	return makeResult(map[string]interface{}{"chunks": output})
}

func ingestContent(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return makeError("usage: tutorIngest(filename, content)")
	}

	filename := args[0].String()
	chunks, err := ingestUC.IngestDocument(context.Background(), filename, args[1].String())
	if err != nil {
		return makeError(err.Error())
	}

	return makeResult(map[string]interface{}{
		"success":  true,
		"chunks":   len(chunks),
		"filename": filename,
	})
}

func searchContent(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return makeError("usage: tutorSearch(question, [topK])")
	}

	question := args[0].String()
	topK := 5
	if len(args) > 1 {
		topK = args[1].Int()
	}

	result, err := search.Retrieve(context.Background(), question, topK, nil)
	if err != nil {
		return makeError("search failed: " + err.Error())
	}
	return makeResult(result)
}

func clearIndex(this js.Value, args []js.Value) interface{} {
	reset()
	return makeResult(map[string]interface{}{
		"success": true,
	})
}

func getStats(this js.Value, args []js.Value) interface{} {
	stats, err := store.Stats(context.Background())
	if err != nil {
		return makeError(err.Error())
	}
	return makeResult(map[string]interface{}{
		"totalChunks":    stats.TotalChunks,
		"uniqueChapters": stats.UniqueChapters,
		"uniqueSections": stats.UniqueSections,
		"chapters":       stats.Chapters,
	})
}

func makeError(msg string) interface{} {
	result, _ := json.Marshal(map[string]interface{}{
		"error": msg,
	})
	return string(result)
}

func makeResult(data interface{}) interface{} {
	result, _ := json.Marshal(data)
	return string(result)
}
