package markdown

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chemtutor/internal/domain"
)

func kinds(blocks []domain.ContentBlock) []domain.BlockKind {
	out := make([]domain.BlockKind, len(blocks))
	for i, b := range blocks {
		out[i] = b.Kind
	}
	return out
}

// reconstruct lays each block back at its line offset and fills the gaps
// with empty lines.
func reconstruct(blocks []domain.ContentBlock, totalLines int) string {
	lines := make([]string, totalLines)
	for _, b := range blocks {
		for k, l := range strings.Split(b.Raw, "\n") {
			lines[b.Line+k] = l
		}
	}
	return strings.Join(lines, "\n")
}

func TestParseClassifiesBlocks(t *testing.T) {
	body := strings.Join([]string{
		"Efnafræði er vísindi um efni.",
		"Hún fjallar um atóm og sameindir.",
		"",
		"### Undirkafli",
		"",
		"- Róteind",
		"- Nifteind",
		"",
		"$$E = mc^2$$",
		"",
		"```",
		"- not a list",
		"# not a heading",
		"```",
		"",
		"![Mynd 1: Vatnssameind](img/h2o.png)",
		"",
		"$H_2O$",
	}, "\n")

	blocks := Parse(body)
	want := []domain.BlockKind{
		domain.BlockParagraph,
		domain.BlockHeading,
		domain.BlockList,
		domain.BlockEquation,
		domain.BlockCode,
		domain.BlockImage,
		domain.BlockEquation,
	}
	if diff := cmp.Diff(want, kinds(blocks)); diff != "" {
		t.Fatalf("block kinds mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 3, blocks[1].Level)
	assert.Equal(t, 1, blocks[1].Words, "heading words exclude the marker")
	assert.Equal(t, 4, blocks[2].Words, "list words include markers")
	assert.Equal(t, 0, blocks[3].Words)
	assert.Equal(t, 0, blocks[4].Words)
	assert.Equal(t, "```\n- not a list\n# not a heading\n```", blocks[4].Raw)
	assert.Equal(t, 3, blocks[5].Words)
}

func TestParseUnterminatedFence(t *testing.T) {
	body := "Texti hér.\n\n```python\nprint('hæ')\n\nmeira"
	blocks := Parse(body)
	require.Len(t, blocks, 2)
	assert.Equal(t, domain.BlockCode, blocks[1].Kind)
	assert.Equal(t, "```python\nprint('hæ')\n\nmeira", blocks[1].Raw)
}

func TestParseMultilineEquation(t *testing.T) {
	body := "$$\nPV = nRT\n$$\nEftir jöfnuna."
	blocks := Parse(body)
	require.Len(t, blocks, 2)
	assert.Equal(t, domain.BlockEquation, blocks[0].Kind)
	assert.Equal(t, "$$\nPV = nRT\n$$", blocks[0].Raw)
	assert.Equal(t, domain.BlockParagraph, blocks[1].Kind)
	assert.Equal(t, 2, blocks[1].Words)
}

func TestParseListContinuation(t *testing.T) {
	body := strings.Join([]string{
		"1. Fyrsta atriði",
		"   með framhaldi",
		"",
		"2. Annað atriði",
		"",
		"",
		"Málsgrein á eftir.",
	}, "\n")
	blocks := Parse(body)
	require.Len(t, blocks, 2)
	assert.Equal(t, domain.BlockList, blocks[0].Kind)
	assert.Equal(t, "1. Fyrsta atriði\n   með framhaldi\n\n2. Annað atriði", blocks[0].Raw)
	assert.Equal(t, 6, blocks[1].Line)
}

func TestParseParagraphStopsAtBlockStart(t *testing.T) {
	body := "Fyrsta lína\n- atriði\nönnur lína"
	blocks := Parse(body)
	// the list swallows nothing after a non-indented line
	assert.Equal(t, []domain.BlockKind{domain.BlockParagraph, domain.BlockList, domain.BlockParagraph}, kinds(blocks))
}

func TestParseRoundTrip(t *testing.T) {
	bodies := []string{
		"",
		"Ein málsgrein.",
		"\n\nMálsgrein með auðum línum á undan.\n",
		"# H1\n\nTexti\n\n- a\n- b\n\n  c\n\n```\nkóði\n\n```\n$$\nx\n$$\n\n![a](b.png)\nLok",
		"* a\n+ b\n\n\n\nTexti\n$x$\n",
	}
	for _, body := range bodies {
		blocks := Parse(body)
		total := len(strings.Split(body, "\n"))
		if got := reconstruct(blocks, total); got != body {
			t.Errorf("round trip mismatch\nwant %q\ngot  %q", body, got)
		}
	}
}

func TestSingleLineKinds(t *testing.T) {
	cases := map[string]domain.BlockKind{
		"## 1.1 Inngangur": domain.BlockHeading,
		"```go":            domain.BlockCode,
		"  - item":         domain.BlockList,
		"12. item":         domain.BlockList,
		"$a+b$":            domain.BlockEquation,
		"![](x.png)":       domain.BlockImage,
		"![x](y.png)":      domain.BlockImage,
		"Venjulegur texti": domain.BlockParagraph,
		"**feitletrað**":   domain.BlockParagraph,
	}
	for line, want := range cases {
		blocks := Parse(line)
		require.Len(t, blocks, 1, line)
		assert.Equal(t, want, blocks[0].Kind, line)
	}
}

func TestPatterns(t *testing.T) {
	m := ChapterPattern.FindStringSubmatch("Inngangur\n# kafli 3: Efnahvörf\n")
	require.NotNil(t, m)
	assert.Equal(t, "3", m[1])
	assert.Equal(t, "Efnahvörf", m[2])

	s := SectionPattern.FindStringSubmatch("## 3.12 Oxun og afoxun")
	require.NotNil(t, s)
	assert.Equal(t, "3.12", s[1])
	assert.Equal(t, "Oxun og afoxun", s[2])

	assert.False(t, SectionPattern.MatchString("### 3.1 Ekki hluti"))
	assert.False(t, SectionPattern.MatchString("## Samantekt"))
}
