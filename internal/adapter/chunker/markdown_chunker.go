package chunker

import (
	"strings"

	"go.uber.org/zap"

	"chemtutor/internal/domain"
)

// MarkdownChunker turns one textbook chapter into chunks: sections are
// parsed into blocks, grouped under the word limits and bound to chapter
// and section metadata.
type MarkdownChunker struct {
	limits Limits
	logger *zap.Logger
}

func NewMarkdownChunker(limits Limits, logger *zap.Logger) *MarkdownChunker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarkdownChunker{limits: limits, logger: logger}
}

func (c *MarkdownChunker) Limits() Limits { return c.limits }

func (c *MarkdownChunker) Chunk(source, content string) ([]domain.Chunk, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	log := c.logger.With(zap.String("source", source), zap.String("stage", "chunk"))

	chapter, err := ExtractChapter(content)
	if err != nil {
		return nil, &domain.ParseError{Source: source, Err: err}
	}
	if n := CountChapterHeadings(content); n > 1 {
		log.Warn("multiple chapter headings, using the first", zap.Int("count", n), zap.Int("chapter", chapter.Number))
	}

	sections := SplitSections(content)
	if len(sections) == 0 {
		return nil, &domain.ParseError{Source: source, Err: domain.ErrNoSections}
	}
	log.Debug("sections found", zap.Int("count", len(sections)))

	var chunks []domain.Chunk
	for _, sec := range sections {
		groups := Assemble(sec.Blocks, c.limits)
		chunks = append(chunks, Bind(sec, chapter, groups, len(chunks))...)
	}

	for i, ch := range chunks {
		words := ch.Metadata.WordCount
		switch {
		case words > c.limits.Max:
			log.Warn("chunk exceeds maximum size",
				zap.Int("chunk_index", ch.Metadata.ChunkIndex), zap.Int("words", words), zap.Int("max", c.limits.Max))
		case words < c.limits.Min && i == len(chunks)-1:
			log.Debug("short trailing chunk", zap.Int("chunk_index", ch.Metadata.ChunkIndex), zap.Int("words", words))
		case words < c.limits.Min:
			log.Warn("chunk below minimum size",
				zap.Int("chunk_index", ch.Metadata.ChunkIndex), zap.Int("words", words), zap.Int("min", c.limits.Min))
		}
	}

	log.Info("chunked document", zap.Int("chapter", chapter.Number), zap.Int("chunks", len(chunks)))
	return chunks, nil
}
