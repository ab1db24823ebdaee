package usecase

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"chemtutor/internal/domain"
	"chemtutor/internal/port"
	"chemtutor/internal/retry"
)

const previewRunes = 100

type composeState int

const (
	stateIdle composeState = iota
	stateContextBuilt
	stateGenerating
	stateRetryScheduled
	stateSucceeded
	stateFailed
)

func (s composeState) String() string {
	switch s {
	case stateContextBuilt:
		return "context_built"
	case stateGenerating:
		return "generating"
	case stateRetryScheduled:
		return "retry_scheduled"
	case stateSucceeded:
		return "succeeded"
	case stateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// ComposeUseCase turns retrieved chunks and a question into a cited answer.
type ComposeUseCase struct {
	generator    port.Generator
	systemPrompt string
	policy       retry.Policy
	logger       *zap.Logger
}

// NewComposeUseCase creates a composer. An empty systemPrompt selects the
// built-in one.
func NewComposeUseCase(generator port.Generator, systemPrompt string, policy retry.Policy, logger *zap.Logger) *ComposeUseCase {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ComposeUseCase{
		generator:    generator,
		systemPrompt: systemPrompt,
		policy:       policy,
		logger:       logger,
	}
}

// ModelName returns the generator's model.
func (u *ComposeUseCase) ModelName() string {
	return u.generator.ModelName()
}

// Compose answers question from at most maxContextChunks of retrieved. An
// empty retrieval yields NoEvidenceAnswer without calling the generator.
func (u *ComposeUseCase) Compose(ctx context.Context, question string, retrieved domain.RetrievalResult, maxContextChunks int) (domain.Answer, error) {
	state := stateIdle
	transition := func(next composeState) {
		u.logger.Debug("compose state",
			zap.String("stage", "generate"), zap.Stringer("from", state), zap.Stringer("to", next))
		state = next
	}

	if strings.TrimSpace(question) == "" {
		return domain.Answer{}, domain.ErrEmptyQuery
	}
	if retrieved.Empty() {
		u.logger.Info("no relevant chunks found", zap.String("stage", "generate"))
		return domain.Answer{Text: NoEvidenceAnswer, Citations: []domain.Citation{}}, nil
	}
	if maxContextChunks <= 0 {
		return domain.Answer{}, domain.ErrEmptyContext
	}

	chunks := retrieved.Chunks
	if len(chunks) > maxContextChunks {
		chunks = chunks[:maxContextChunks]
	}

	userPrompt, err := UserPrompt(question, chunks)
	if err != nil {
		return domain.Answer{}, err
	}
	citations := make([]domain.Citation, len(chunks))
	for i, c := range chunks {
		citations[i] = citationFor(c)
	}
	transition(stateContextBuilt)

	attempts := 0
	policy := u.policy
	policy.OnRetry = func(attempt int, err error) {
		u.logger.Warn("generation failed, retrying",
			zap.String("stage", "generate"), zap.Int("attempt", attempt), zap.Error(err))
		transition(stateRetryScheduled)
	}
	gen, err := retry.Do(ctx, policy, func(ctx context.Context) (port.Generation, error) {
		attempts++
		transition(stateGenerating)
		return u.generator.Generate(ctx, u.systemPrompt, userPrompt)
	})
	if err != nil {
		transition(stateFailed)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domain.Answer{}, err
		}
		var exhausted *retry.Error
		if errors.As(err, &exhausted) {
			err = exhausted.Err
		}
		return domain.Answer{}, &domain.GenerationError{Attempts: attempts, Err: err}
	}
	transition(stateSucceeded)

	u.logger.Info("generated answer",
		zap.String("stage", "generate"),
		zap.Int("chars", utf8.RuneCountInString(gen.Text)),
		zap.Int("chunks_used", len(chunks)),
		zap.Int("tokens_in", gen.TokensIn),
		zap.Int("tokens_out", gen.TokensOut))

	return domain.Answer{
		Text:       gen.Text,
		Citations:  citations,
		Usage:      domain.Usage{TokensIn: gen.TokensIn, TokensOut: gen.TokensOut},
		ChunksUsed: len(chunks),
	}, nil
}

func citationFor(c domain.RetrievedChunk) domain.Citation {
	return domain.Citation{
		Chapter:     c.Metadata[domain.MetaChapterNumber],
		Section:     c.Metadata[domain.MetaSectionNumber],
		Title:       c.Metadata[domain.MetaSectionTitle],
		TextPreview: preview(c.Text, previewRunes),
	}
}

func preview(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n]) + "..."
}
