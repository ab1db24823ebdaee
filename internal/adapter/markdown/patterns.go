package markdown

import "regexp"

var (
	// HeadingPattern matches any ATX heading; group 1 is the marker run, group 2 the text.
	HeadingPattern = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

	// ChapterPattern matches "# Kafli N: Title" anywhere in a document.
	ChapterPattern = regexp.MustCompile(`(?im)^#\s+Kafli\s+(\d+):\s*(.+)$`)

	// SectionPattern matches a single "## N.M Title" line.
	SectionPattern = regexp.MustCompile(`^##\s+(\d+\.\d+)\s+(.+)$`)

	// ListItemPattern matches one bullet or ordered list item line.
	ListItemPattern = regexp.MustCompile(`^\s*[-*+]\s+.+$|^\s*\d+\.\s+.+$`)

	imagePattern = regexp.MustCompile(`^!\[([^\]]*)\]\(([^)]+)\)$`)
)
