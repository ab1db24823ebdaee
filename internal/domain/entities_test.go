package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestChunkID(t *testing.T) {
	if got := ChunkID(3, "3.2", 7); got != "ch3_sec3.2_chunk7" {
		t.Errorf("unexpected id %q", got)
	}
}

func TestMetadataMapRoundTrip(t *testing.T) {
	m := ChunkMetadata{
		ChapterNumber: 2,
		SectionNumber: "2.4",
		ChapterTitle:  "Atóm og sameindir",
		SectionTitle:  "Jónir",
		ChunkIndex:    5,
		WordCount:     412,
		Language:      Language,
	}
	flat := m.Map()
	if flat[MetaChapterNumber] != "2" {
		t.Errorf("expected chapter_number=2, got %q", flat[MetaChapterNumber])
	}
	if got := MetadataFromMap(flat); got != m {
		t.Errorf("round trip mismatch: %+v != %+v", got, m)
	}
}

func TestIsAtomic(t *testing.T) {
	atomic := map[BlockKind]bool{
		BlockParagraph: false,
		BlockHeading:   false,
		BlockImage:     false,
		BlockList:      true,
		BlockEquation:  true,
		BlockCode:      true,
	}
	for kind, want := range atomic {
		if got := (ContentBlock{Kind: kind}).IsAtomic(); got != want {
			t.Errorf("%s: IsAtomic=%v, want %v", kind, got, want)
		}
	}
}

func TestErrorUnwrap(t *testing.T) {
	err := fmt.Errorf("ingest: %w", &ParseError{Source: "k1.md", Err: ErrMissingChapter})
	if !errors.Is(err, ErrMissingChapter) {
		t.Error("expected ParseError to unwrap to ErrMissingChapter")
	}
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Source != "k1.md" {
		t.Errorf("expected ParseError for k1.md, got %v", err)
	}

	gen := &GenerationError{Attempts: 2, Err: &TransientServiceError{Service: "anthropic", Op: "generate", Err: errors.New("529")}}
	var tse *TransientServiceError
	if !errors.As(gen, &tse) || tse.Service != "anthropic" {
		t.Errorf("expected transient error inside generation error")
	}
}
