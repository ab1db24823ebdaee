package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"chemtutor/internal/domain"
)

// CheckChunk reports quality problems with a produced chunk. An empty
// result means the chunk is fine.
func CheckChunk(ch domain.Chunk, lim Limits) []string {
	var problems []string
	m := ch.Metadata

	if m.WordCount < lim.Min {
		problems = append(problems, fmt.Sprintf("word count %d below minimum %d", m.WordCount, lim.Min))
	}
	if m.WordCount > lim.Max {
		problems = append(problems, fmt.Sprintf("word count %d exceeds maximum %d", m.WordCount, lim.Max))
	}
	if m.ChapterTitle == "" {
		problems = append(problems, "missing chapter title")
	}
	if m.SectionTitle == "" {
		problems = append(problems, "missing section title")
	}
	if m.ChapterNumber <= 0 {
		problems = append(problems, "invalid chapter number")
	}
	if !utf8.ValidString(ch.Text) {
		problems = append(problems, "invalid UTF-8 encoding")
	}

	text := strings.TrimSpace(ch.Text)
	if text == "" {
		problems = append(problems, "empty content")
	} else if lines := strings.Split(text, "\n"); len(lines) == 1 && strings.HasPrefix(lines[0], "#") {
		problems = append(problems, "orphaned header (header with no content)")
	}
	return problems
}
