package domain

import (
	"fmt"
	"strconv"
	"time"
)

type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockList
	BlockEquation
	BlockCode
	BlockImage
)

func (k BlockKind) String() string {
	switch k {
	case BlockHeading:
		return "heading"
	case BlockList:
		return "list"
	case BlockEquation:
		return "equation"
	case BlockCode:
		return "code"
	case BlockImage:
		return "image"
	default:
		return "paragraph"
	}
}

// ContentBlock is a classified span of section text. Raw holds the exact
// source lines; Line is the 0-based line offset of the first of them.
type ContentBlock struct {
	Kind  BlockKind
	Raw   string
	Level int // heading level, 0 for other kinds
	Words int
	Line  int
}

// IsAtomic reports whether the block must never be split across chunks.
func (b ContentBlock) IsAtomic() bool {
	return b.Kind == BlockCode || b.Kind == BlockEquation || b.Kind == BlockList
}

type Chapter struct {
	Number int
	Title  string
}

type Section struct {
	Number string
	Title  string
	Header string // the "## N.M Title" line
	Body   string
	Blocks []ContentBlock
}

// Language of all ingested material.
const Language = "is"

// Metadata keys as persisted in the vector store and accepted by retrieval filters.
const (
	MetaChapterNumber = "chapter_number"
	MetaSectionNumber = "section_number"
	MetaChapterTitle  = "chapter_title"
	MetaSectionTitle  = "section_title"
	MetaChunkIndex    = "chunk_index"
	MetaWordCount     = "word_count"
	MetaLanguage      = "language"
)

type ChunkMetadata struct {
	ChapterNumber int    `json:"chapter_number"`
	SectionNumber string `json:"section_number"`
	ChapterTitle  string `json:"chapter_title"`
	SectionTitle  string `json:"section_title"`
	ChunkIndex    int    `json:"chunk_index"`
	WordCount     int    `json:"word_count"`
	Language      string `json:"language"`
}

// Map flattens the metadata into the string map stored next to each vector.
func (m ChunkMetadata) Map() map[string]string {
	return map[string]string{
		MetaChapterNumber: strconv.Itoa(m.ChapterNumber),
		MetaSectionNumber: m.SectionNumber,
		MetaChapterTitle:  m.ChapterTitle,
		MetaSectionTitle:  m.SectionTitle,
		MetaChunkIndex:    strconv.Itoa(m.ChunkIndex),
		MetaWordCount:     strconv.Itoa(m.WordCount),
		MetaLanguage:      m.Language,
	}
}

// MetadataFromMap is the inverse of ChunkMetadata.Map. Unparseable numbers
// decode as zero.
func MetadataFromMap(m map[string]string) ChunkMetadata {
	chapter, _ := strconv.Atoi(m[MetaChapterNumber])
	index, _ := strconv.Atoi(m[MetaChunkIndex])
	words, _ := strconv.Atoi(m[MetaWordCount])
	return ChunkMetadata{
		ChapterNumber: chapter,
		SectionNumber: m[MetaSectionNumber],
		ChapterTitle:  m[MetaChapterTitle],
		SectionTitle:  m[MetaSectionTitle],
		ChunkIndex:    index,
		WordCount:     words,
		Language:      m[MetaLanguage],
	}
}

type Chunk struct {
	ID       string        `json:"id"`
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// ChunkID builds the storage identity of a chunk. The format is the
// idempotency key for re-ingestion and must not change.
func ChunkID(chapter int, section string, index int) string {
	return fmt.Sprintf("ch%d_sec%s_chunk%d", chapter, section, index)
}

type ValidationResult struct {
	Valid       bool           `json:"valid"`
	Errors      []string       `json:"errors"`
	Warnings    []string       `json:"warnings"`
	ChapterInfo map[string]any `json:"chapter_info"`
}

type Citation struct {
	Chapter     string `json:"chapter"`
	Section     string `json:"section"`
	Title       string `json:"title"`
	TextPreview string `json:"text_preview"`
}

type RetrievedChunk struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
	Score    float64           `json:"score"`
}

type RetrievalResult struct {
	Query  string           `json:"query"`
	Chunks []RetrievedChunk `json:"chunks"`
}

func (r RetrievalResult) Empty() bool { return len(r.Chunks) == 0 }

type Usage struct {
	TokensIn  int `json:"input"`
	TokensOut int `json:"output"`
}

func (u Usage) Total() int { return u.TokensIn + u.TokensOut }

type Answer struct {
	Text       string     `json:"answer"`
	Citations  []Citation `json:"citations"`
	Usage      Usage      `json:"usage"`
	ChunksUsed int        `json:"chunks_used"`
}

type AskMetadata struct {
	RequestID      string    `json:"request_id"`
	Question       string    `json:"question"`
	Timestamp      time.Time `json:"timestamp"`
	ChunksFound    int       `json:"chunks_found"`
	ChunksUsed     int       `json:"chunks_used"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	Model          string    `json:"model"`
	Usage          Usage     `json:"tokens_used"`
}

type AskResponse struct {
	Answer    string      `json:"answer"`
	Citations []Citation  `json:"citations"`
	Metadata  AskMetadata `json:"metadata"`
}

type Stats struct {
	TotalChunks    int      `json:"total_chunks"`
	UniqueChapters int      `json:"unique_chapters"`
	UniqueSections int      `json:"unique_sections"`
	Chapters       []string `json:"chapters"`
}

type FileError struct {
	Path      string    `json:"filepath"`
	Kind      string    `json:"error_type"`
	Message   string    `json:"error_message"`
	Timestamp time.Time `json:"timestamp"`
}

type IngestReport struct {
	TotalFiles     int           `json:"total_files"`
	ProcessedFiles int           `json:"processed_files"`
	FailedFiles    int           `json:"failed_files"`
	SkippedFiles   int           `json:"skipped_files"`
	ChunksStored   int           `json:"total_chunks"`
	WordsTotal     int           `json:"total_words"`
	Errors         []FileError   `json:"errors,omitempty"`
	Elapsed        time.Duration `json:"elapsed"`
}
