package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chemtutor/internal/domain"
	"chemtutor/internal/retry"
)

func TestComposeNoEvidence(t *testing.T) {
	gen := &scriptedGenerator{}
	c := NewComposeUseCase(gen, "", fastRetry, zap.NewNop())

	ans, err := c.Compose(context.Background(), "Hvað er mól?", domain.RetrievalResult{}, 4)
	require.NoError(t, err)

	assert.Equal(t, NoEvidenceAnswer, ans.Text)
	assert.NotNil(t, ans.Citations)
	assert.Empty(t, ans.Citations)
	assert.Zero(t, ans.ChunksUsed)
	assert.Zero(t, gen.calls, "generator must not be called without evidence")
}

func TestComposeTruncatesAndCites(t *testing.T) {
	gen := &scriptedGenerator{tokensIn: 120, tokensOut: 30}
	c := NewComposeUseCase(gen, "", fastRetry, zap.NewNop())

	ans, err := c.Compose(context.Background(), "Hvað er atóm?", retrieved(6), 4)
	require.NoError(t, err)

	assert.Equal(t, "Svar", ans.Text)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, 4, ans.ChunksUsed)
	require.Len(t, ans.Citations, 4)
	for i, cit := range ans.Citations {
		want := retrieved(6).Chunks[i].Metadata
		assert.Equal(t, want[domain.MetaSectionNumber], cit.Section)
		assert.Equal(t, want[domain.MetaSectionTitle], cit.Title)
		assert.Equal(t, "1", cit.Chapter)
	}
	assert.Contains(t, gen.lastPrompt, "[Heimild 4 - Kafli 1.4: Hluti 1.4]")
	assert.NotContains(t, gen.lastPrompt, "Heimild 5")
	assert.Equal(t, DefaultSystemPrompt(), gen.lastSystem)
	assert.Equal(t, domain.Usage{TokensIn: 120, TokensOut: 30}, ans.Usage)
}

func TestComposeCustomSystemPrompt(t *testing.T) {
	gen := &scriptedGenerator{}
	c := NewComposeUseCase(gen, "Svaraðu stutt.", fastRetry, zap.NewNop())

	_, err := c.Compose(context.Background(), "Hvað er jón?", retrieved(1), 4)
	require.NoError(t, err)
	assert.Equal(t, "Svaraðu stutt.", gen.lastSystem)
}

func TestComposeRetriesOnce(t *testing.T) {
	gen := &scriptedGenerator{failures: 1}
	c := NewComposeUseCase(gen, "", fastRetry, zap.NewNop())

	ans, err := c.Compose(context.Background(), "Hvað er jón?", retrieved(2), 4)
	require.NoError(t, err)
	assert.Equal(t, "Svar", ans.Text)
	assert.Equal(t, 2, gen.calls)
}

func TestComposeGenerationError(t *testing.T) {
	gen := &scriptedGenerator{failures: -1}
	c := NewComposeUseCase(gen, "", fastRetry, zap.NewNop())

	_, err := c.Compose(context.Background(), "Hvað er jón?", retrieved(2), 4)

	var genErr *domain.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, 2, genErr.Attempts)
	assert.ErrorIs(t, err, errUnavailable)
	assert.Equal(t, 2, gen.calls, "exactly one retry")
}

func TestComposePermanentErrorNotRetried(t *testing.T) {
	gen := &scriptedGenerator{failures: -1, err: retry.Permanent(errors.New("invalid api key"))}
	c := NewComposeUseCase(gen, "", fastRetry, zap.NewNop())

	_, err := c.Compose(context.Background(), "Hvað er jón?", retrieved(2), 4)

	var genErr *domain.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, 1, genErr.Attempts)
	assert.Equal(t, 1, gen.calls)
}

func TestComposeCanceled(t *testing.T) {
	gen := &scriptedGenerator{}
	c := NewComposeUseCase(gen, "", fastRetry, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Compose(ctx, "Hvað er jón?", retrieved(2), 4)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, gen.calls)
}

func TestComposeInputErrors(t *testing.T) {
	gen := &scriptedGenerator{}
	c := NewComposeUseCase(gen, "", fastRetry, zap.NewNop())

	_, err := c.Compose(context.Background(), "  ", retrieved(2), 4)
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)

	_, err = c.Compose(context.Background(), "Hvað?", retrieved(2), 0)
	assert.ErrorIs(t, err, domain.ErrEmptyContext)
	assert.Zero(t, gen.calls)
}

func TestCitationPreview(t *testing.T) {
	long := strings.Repeat("þ", 150)
	c := citationFor(domain.RetrievedChunk{Text: long, Metadata: map[string]string{}})
	assert.Equal(t, strings.Repeat("þ", 100)+"...", c.TextPreview)

	short := citationFor(domain.RetrievedChunk{Text: "Stutt", Metadata: map[string]string{}})
	assert.Equal(t, "Stutt", short.TextPreview)
}
