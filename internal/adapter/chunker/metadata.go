package chunker

import (
	"fmt"
	"strconv"
	"strings"

	"chemtutor/internal/adapter/markdown"
	"chemtutor/internal/domain"
)

// ExtractChapter returns the first "# Kafli N: Title" heading of the
// document.
func ExtractChapter(content string) (domain.Chapter, error) {
	m := markdown.ChapterPattern.FindStringSubmatch(content)
	if m == nil {
		return domain.Chapter{}, domain.ErrMissingChapter
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return domain.Chapter{}, fmt.Errorf("%w: invalid chapter number %q", domain.ErrMissingChapter, m[1])
	}
	return domain.Chapter{Number: n, Title: strings.TrimSpace(m[2])}, nil
}

// CountChapterHeadings reports how many chapter headings a document has.
func CountChapterHeadings(content string) int {
	return len(markdown.ChapterPattern.FindAllStringIndex(content, -1))
}

// SplitSections cuts a document at its "## N.M Title" lines and parses each
// body into blocks. Text before the first section is not part of any section.
func SplitSections(content string) []domain.Section {
	var (
		sections []domain.Section
		current  *domain.Section
		body     []string
	)
	flush := func() {
		if current != nil {
			current.Body = strings.Join(body, "\n")
			current.Blocks = markdown.Parse(current.Body)
			sections = append(sections, *current)
		}
	}

	for _, line := range strings.Split(content, "\n") {
		if m := markdown.SectionPattern.FindStringSubmatch(line); m != nil {
			flush()
			current = &domain.Section{
				Number: m[1],
				Title:  strings.TrimSpace(m[2]),
				Header: line,
			}
			body = nil
			continue
		}
		if current != nil {
			body = append(body, line)
		}
	}
	flush()
	return sections
}

// Bind renders the chunk groups of one section and attaches chapter and
// section metadata. Indices continue from startIndex.
func Bind(sec domain.Section, ch domain.Chapter, groups [][]domain.ContentBlock, startIndex int) []domain.Chunk {
	chunks := make([]domain.Chunk, 0, len(groups))
	for i, group := range groups {
		idx := startIndex + i
		chunks = append(chunks, domain.Chunk{
			ID:   domain.ChunkID(ch.Number, sec.Number, idx),
			Text: Render(sec.Header, group),
			Metadata: domain.ChunkMetadata{
				ChapterNumber: ch.Number,
				SectionNumber: sec.Number,
				ChapterTitle:  ch.Title,
				SectionTitle:  sec.Title,
				ChunkIndex:    idx,
				WordCount:     GroupWords(group),
				Language:      domain.Language,
			},
		})
	}
	return chunks
}

// Render writes the section header followed by the blocks, separated by
// blank lines.
func Render(header string, group []domain.ContentBlock) string {
	parts := make([]string, 0, len(group)+1)
	parts = append(parts, header)
	for _, b := range group {
		parts = append(parts, b.Raw)
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}
