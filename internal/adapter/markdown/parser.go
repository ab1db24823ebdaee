// Package markdown classifies the body of a textbook section into typed
// content blocks.
package markdown

import (
	"strings"

	"chemtutor/internal/domain"
)

// matcher recognizes the start of one block kind and consumes it. consume
// receives the index of the starting line and returns the block plus the
// index of the first line after it.
type matcher struct {
	kind    domain.BlockKind
	starts  func(line string) bool
	consume func(lines []string, i int) (domain.ContentBlock, int)
}

// matchers is evaluated in order for every line that starts a block.
// Paragraph is the fallback and is not listed.
var matchers = []matcher{
	{domain.BlockHeading, isHeading, consumeHeading},
	{domain.BlockCode, isFence, consumeCode},
	{domain.BlockList, isListItem, consumeList},
	{domain.BlockEquation, isEquation, consumeEquation},
	{domain.BlockImage, isImage, consumeImage},
}

// Parse splits a section body into content blocks using a single forward
// pass. Blank lines between blocks are dropped; every block keeps its exact
// source lines.
func Parse(body string) []domain.ContentBlock {
	lines := strings.Split(body, "\n")
	var blocks []domain.ContentBlock

	i := 0
	for i < len(lines) {
		if isBlank(lines[i]) {
			i++
			continue
		}
		var (
			block domain.ContentBlock
			next  int
		)
		if m, ok := match(lines[i]); ok {
			block, next = m.consume(lines, i)
		} else {
			block, next = consumeParagraph(lines, i)
		}
		block.Line = i
		blocks = append(blocks, block)
		i = next
	}
	return blocks
}

// CountWords counts whitespace-separated words.
func CountWords(s string) int {
	return len(strings.Fields(s))
}

func match(line string) (matcher, bool) {
	for _, m := range matchers {
		if m.starts(line) {
			return m, true
		}
	}
	return matcher{}, false
}

func isBlank(line string) bool { return strings.TrimSpace(line) == "" }

func isHeading(line string) bool { return HeadingPattern.MatchString(line) }

func isFence(line string) bool { return strings.HasPrefix(strings.TrimSpace(line), "```") }

func isListItem(line string) bool { return ListItemPattern.MatchString(line) }

func isEquation(line string) bool {
	if strings.Contains(line, "$$") {
		return true
	}
	t := strings.TrimSpace(line)
	return strings.HasPrefix(t, "$") && strings.HasSuffix(t, "$")
}

func isImage(line string) bool { return imagePattern.MatchString(strings.TrimSpace(line)) }

func consumeHeading(lines []string, i int) (domain.ContentBlock, int) {
	m := HeadingPattern.FindStringSubmatch(lines[i])
	return domain.ContentBlock{
		Kind:  domain.BlockHeading,
		Raw:   lines[i],
		Level: len(m[1]),
		Words: CountWords(m[2]),
	}, i + 1
}

// consumeCode takes everything up to and including the closing fence, or
// the rest of the input if the fence is never closed.
func consumeCode(lines []string, i int) (domain.ContentBlock, int) {
	j := i + 1
	for j < len(lines) && !isFence(lines[j]) {
		j++
	}
	if j < len(lines) {
		j++
	}
	return domain.ContentBlock{
		Kind: domain.BlockCode,
		Raw:  strings.Join(lines[i:j], "\n"),
	}, j
}

// consumeList absorbs further items, indented continuation lines and blank
// lines. Trailing blank lines are handed back to the caller.
func consumeList(lines []string, i int) (domain.ContentBlock, int) {
	end := i + 1
scan:
	for j := i + 1; j < len(lines); j++ {
		line := lines[j]
		switch {
		case isListItem(line):
			end = j + 1
		case isBlank(line):
		case strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t"):
			end = j + 1
		default:
			break scan
		}
	}
	raw := strings.Join(lines[i:end], "\n")
	return domain.ContentBlock{
		Kind:  domain.BlockList,
		Raw:   raw,
		Words: CountWords(raw),
	}, end
}

// consumeEquation handles both single-line forms and a "$$" block that is
// opened on one line and closed on a later one.
func consumeEquation(lines []string, i int) (domain.ContentBlock, int) {
	j := i + 1
	if strings.Count(lines[i], "$$") == 1 {
		for j < len(lines) && !strings.Contains(lines[j], "$$") {
			j++
		}
		if j < len(lines) {
			j++
		}
	}
	return domain.ContentBlock{
		Kind: domain.BlockEquation,
		Raw:  strings.Join(lines[i:j], "\n"),
	}, j
}

func consumeImage(lines []string, i int) (domain.ContentBlock, int) {
	m := imagePattern.FindStringSubmatch(strings.TrimSpace(lines[i]))
	return domain.ContentBlock{
		Kind:  domain.BlockImage,
		Raw:   lines[i],
		Words: CountWords(m[1]),
	}, i + 1
}

func consumeParagraph(lines []string, i int) (domain.ContentBlock, int) {
	j := i + 1
	for j < len(lines) {
		if isBlank(lines[j]) {
			break
		}
		if _, ok := match(lines[j]); ok {
			break
		}
		j++
	}
	raw := strings.Join(lines[i:j], "\n")
	return domain.ContentBlock{
		Kind:  domain.BlockParagraph,
		Raw:   raw,
		Words: CountWords(raw),
	}, j
}
