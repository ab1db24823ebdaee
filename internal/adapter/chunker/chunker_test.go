package chunker

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"chemtutor/internal/domain"
)

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("orð ", n))
}

func para(n int) domain.ContentBlock {
	return domain.ContentBlock{Kind: domain.BlockParagraph, Raw: words(n), Words: n}
}

func list(n int) domain.ContentBlock {
	return domain.ContentBlock{Kind: domain.BlockList, Raw: "- " + words(n-1), Words: n}
}

func sizes(groups [][]domain.ContentBlock) []int {
	out := make([]int, len(groups))
	for i, g := range groups {
		out[i] = GroupWords(g)
	}
	return out
}

func observed() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestAssembleTargetBand(t *testing.T) {
	groups := Assemble([]domain.ContentBlock{para(300), para(300), para(300), para(300)}, DefaultLimits())
	if diff := cmp.Diff([]int{600, 600}, sizes(groups)); diff != "" {
		t.Errorf("group sizes (-want +got):\n%s", diff)
	}
}

func TestAssembleAtomicBlocks(t *testing.T) {
	lim := DefaultLimits()

	t.Run("closes before overflowing atomic", func(t *testing.T) {
		groups := Assemble([]domain.ContentBlock{para(500), list(600), para(50)}, lim)
		assert.Equal(t, []int{500, 600, 50}, sizes(groups))
	})

	t.Run("atomic may exceed target", func(t *testing.T) {
		groups := Assemble([]domain.ContentBlock{para(350), list(400), para(100)}, lim)
		assert.Equal(t, []int{750, 100}, sizes(groups))
	})

	t.Run("oversized atomic is never split", func(t *testing.T) {
		groups := Assemble([]domain.ContentBlock{list(1500)}, lim)
		require.Len(t, groups, 1)
		assert.Equal(t, 1500, GroupWords(groups[0]))
	})

	t.Run("consecutive oversized atomics stay apart", func(t *testing.T) {
		groups := Assemble([]domain.ContentBlock{list(1200), list(1100)}, lim)
		assert.Equal(t, []int{1200, 1100}, sizes(groups))
	})

	t.Run("zero-word blocks stay with prose", func(t *testing.T) {
		eq := domain.ContentBlock{Kind: domain.BlockEquation, Raw: "$$x$$"}
		code := domain.ContentBlock{Kind: domain.BlockCode, Raw: "```\nx\n```"}
		groups := Assemble([]domain.ContentBlock{para(100), eq, code, para(100)}, lim)
		require.Len(t, groups, 1)
		assert.Len(t, groups[0], 4)
		assert.Equal(t, 200, GroupWords(groups[0]))
	})
}

func TestAssembleSkipsSectionHeadings(t *testing.T) {
	h2 := domain.ContentBlock{Kind: domain.BlockHeading, Level: 2, Raw: "## Samantekt", Words: 1}
	h3 := domain.ContentBlock{Kind: domain.BlockHeading, Level: 3, Raw: "### Dæmi", Words: 1}
	groups := Assemble([]domain.ContentBlock{h2, h3, para(10)}, DefaultLimits())
	require.Len(t, groups, 1)
	assert.Equal(t, []domain.BlockKind{domain.BlockHeading, domain.BlockParagraph}, []domain.BlockKind{groups[0][0].Kind, groups[0][1].Kind})
	assert.Equal(t, 11, GroupWords(groups[0]))
}

func TestAssembleProseBounds(t *testing.T) {
	lim := DefaultLimits()
	rng := rand.New(rand.NewSource(7))

	for run := 0; run < 50; run++ {
		var blocks []domain.ContentBlock
		for i := 0; i < 5+rng.Intn(30); i++ {
			blocks = append(blocks, para(1+rng.Intn(700)))
		}
		groups := Assemble(blocks, lim)

		total := 0
		for i, g := range groups {
			n := GroupWords(g)
			total += n
			if i < len(groups)-1 && n < lim.Min {
				t.Fatalf("run %d: non-final group %d has %d words", run, i, n)
			}
			if before := n - g[len(g)-1].Words; before >= lim.Max {
				t.Fatalf("run %d: group %d held %d words before its last block", run, i, before)
			}
		}
		if want := GroupWords(blocks); total != want {
			t.Fatalf("run %d: lost words, got %d want %d", run, total, want)
		}
	}
}

func TestChunkSingleShortSection(t *testing.T) {
	logger, logs := observed()
	c := NewMarkdownChunker(DefaultLimits(), logger)

	doc := "# Kafli 1: Efnafræði\n\n## 1.1 Grunnur\n\n" + strings.Repeat("Atóm er efni. ", 50)
	chunks, err := c.Chunk("k1.md", doc)
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	ch := chunks[0]
	assert.Equal(t, "ch1_sec1.1_chunk0", ch.ID)
	assert.Equal(t, 1, ch.Metadata.ChapterNumber)
	assert.Equal(t, "1.1", ch.Metadata.SectionNumber)
	assert.Equal(t, "Efnafræði", ch.Metadata.ChapterTitle)
	assert.Equal(t, "Grunnur", ch.Metadata.SectionTitle)
	assert.Equal(t, 150, ch.Metadata.WordCount)
	assert.Equal(t, "is", ch.Metadata.Language)
	assert.True(t, strings.HasPrefix(ch.Text, "## 1.1 Grunnur\n\nAtóm er efni."))
	assert.Zero(t, logs.FilterMessage("chunk below minimum size").Len(), "trailing chunk is allowed to be short")
}

func TestChunkOversizedParagraph(t *testing.T) {
	logger, logs := observed()
	c := NewMarkdownChunker(DefaultLimits(), logger)

	doc := "# Kafli 2: Lofttegundir\n\n## 2.1 Gaslögmál\n\n" + words(1200) + "\n"
	chunks, err := c.Chunk("k2.md", doc)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 1200, chunks[0].Metadata.WordCount)

	warned := logs.FilterMessage("chunk exceeds maximum size").All()
	require.Len(t, warned, 1)
	assert.Equal(t, zapcore.WarnLevel, warned[0].Level)
}

func TestChunkDenseIndexAcrossSections(t *testing.T) {
	var b strings.Builder
	b.WriteString("Formáli sem ekki er hluti af kafla.\n\n# Kafli 4: Efnahvörf\n\nInngangur.\n\n")
	for _, sec := range []string{"4.1 Hvörf", "4.2 Jafnvægi", "4.3 Hraði"} {
		b.WriteString("## " + sec + "\n\n")
		for i := 0; i < 4; i++ {
			b.WriteString(words(300) + "\n\n")
		}
	}

	c := NewMarkdownChunker(DefaultLimits(), zap.NewNop())
	chunks, err := c.Chunk("k4.md", b.String())
	require.NoError(t, err)
	require.Len(t, chunks, 6)

	for i, ch := range chunks {
		assert.Equal(t, i, ch.Metadata.ChunkIndex)
		assert.Equal(t, domain.ChunkID(4, ch.Metadata.SectionNumber, i), ch.ID)
		assert.NotContains(t, ch.Text, "Formáli")
		assert.NotContains(t, ch.Text, "Inngangur")
	}
	assert.Equal(t, "4.3", chunks[5].Metadata.SectionNumber)

	again, err := c.Chunk("k4.md", b.String())
	require.NoError(t, err)
	if diff := cmp.Diff(chunks, again); diff != "" {
		t.Errorf("re-chunking is not deterministic:\n%s", diff)
	}
}

func TestChunkUndersizedMiddleChunkWarns(t *testing.T) {
	logger, logs := observed()
	c := NewMarkdownChunker(DefaultLimits(), logger)

	doc := "# Kafli 1: Efni\n\n## 1.1 Stutt\n\n" + words(50) + "\n\n## 1.2 Lengra\n\n" + words(300)
	chunks, err := c.Chunk("k1.md", doc)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 1, logs.FilterMessage("chunk below minimum size").Len())
}

func TestChunkMissingChapter(t *testing.T) {
	c := NewMarkdownChunker(DefaultLimits(), zap.NewNop())
	_, err := c.Chunk("bad.md", "## 1.1 Grunnur\n\n"+words(300))

	var pe *domain.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "bad.md", pe.Source)
	assert.True(t, errors.Is(err, domain.ErrMissingChapter))
}

func TestChunkNoSections(t *testing.T) {
	c := NewMarkdownChunker(DefaultLimits(), zap.NewNop())
	_, err := c.Chunk("empty.md", "# Kafli 1: Efni\n\n"+words(300))
	assert.True(t, errors.Is(err, domain.ErrNoSections))
}

func TestChunkCRLF(t *testing.T) {
	c := NewMarkdownChunker(DefaultLimits(), zap.NewNop())
	chunks, err := c.Chunk("win.md", "# Kafli 5: Lausnir\r\n\r\n## 5.1 Styrkur\r\n\r\nLausn er blanda.\r\n")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Lausnir", chunks[0].Metadata.ChapterTitle)
	assert.Equal(t, "## 5.1 Styrkur\n\nLausn er blanda.", chunks[0].Text)
}

func TestExtractChapterFirstMatchWins(t *testing.T) {
	ch, err := ExtractChapter("Texti\n# Kafli 7: Sýrur\n# Kafli 8: Basar\n")
	require.NoError(t, err)
	assert.Equal(t, domain.Chapter{Number: 7, Title: "Sýrur"}, ch)
	assert.Equal(t, 2, CountChapterHeadings("# Kafli 7: Sýrur\n# Kafli 8: Basar"))

	_, err = ExtractChapter("# Kafli 0: Ekkert")
	assert.ErrorIs(t, err, domain.ErrMissingChapter)
}

func TestSplitSections(t *testing.T) {
	doc := "# Kafli 1: A\nformáli\n## 1.1 Fyrsti\nlína a\n\n## 1.2  Annar \nlína b"
	secs := SplitSections(doc)
	require.Len(t, secs, 2)
	assert.Equal(t, "1.1", secs[0].Number)
	assert.Equal(t, "Fyrsti", secs[0].Title)
	assert.Equal(t, "## 1.1 Fyrsti", secs[0].Header)
	assert.Equal(t, "lína a\n", secs[0].Body)
	require.Len(t, secs[0].Blocks, 1)
	assert.Equal(t, domain.BlockParagraph, secs[0].Blocks[0].Kind)
	assert.Equal(t, "lína a", secs[0].Blocks[0].Raw)
	assert.Equal(t, "Annar", secs[1].Title)
	assert.Equal(t, "lína b", secs[1].Body)
	assert.Len(t, secs[1].Blocks, 1)
}

func TestRender(t *testing.T) {
	got := Render("## 1.1 Titill", []domain.ContentBlock{para(2), list(3)})
	assert.Equal(t, "## 1.1 Titill\n\norð orð\n\n- orð orð", got)
}

func TestCheckChunk(t *testing.T) {
	lim := DefaultLimits()
	good := domain.Chunk{
		Text: "## 1.1 T\n\n" + words(300),
		Metadata: domain.ChunkMetadata{
			ChapterNumber: 1, SectionNumber: "1.1", ChapterTitle: "C", SectionTitle: "T", WordCount: 300,
		},
	}
	assert.Empty(t, CheckChunk(good, lim))

	orphan := domain.Chunk{Text: "## 1.1 T", Metadata: domain.ChunkMetadata{WordCount: 0}}
	problems := CheckChunk(orphan, lim)
	assert.Contains(t, problems, "orphaned header (header with no content)")
	assert.Contains(t, problems, "missing chapter title")
	assert.Contains(t, problems, "invalid chapter number")
	assert.Contains(t, problems, "word count 0 below minimum 200")
}
