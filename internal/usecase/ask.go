package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chemtutor/internal/domain"
	"chemtutor/internal/port"
)

// User-facing messages for failed questions.
const (
	msgEmptyQuestion = "Vinsamlegast sláðu inn spurningu."
	msgUnavailable   = "Því miður tókst ekki að svara spurningunni núna. Vinsamlegast reyndu aftur eftir smá stund."
	msgFailed        = "Villa kom upp við að vinna úr spurningunni. Vinsamlegast reyndu aftur."
)

// AskUseCase runs retrieval and composition for one question.
type AskUseCase struct {
	retriever        port.Retriever
	composer         *ComposeUseCase
	store            port.VectorStore
	topK             int
	maxContextChunks int
	logger           *zap.Logger
	now              func() time.Time
}

func NewAskUseCase(
	retriever port.Retriever,
	composer *ComposeUseCase,
	store port.VectorStore,
	topK, maxContextChunks int,
	logger *zap.Logger,
) *AskUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AskUseCase{
		retriever:        retriever,
		composer:         composer,
		store:            store,
		topK:             topK,
		maxContextChunks: maxContextChunks,
		logger:           logger,
		now:              time.Now,
	}
}

// Ask answers question, optionally restricted by an exact-match metadata filter.
func (u *AskUseCase) Ask(ctx context.Context, question string, filter map[string]string) (domain.AskResponse, error) {
	requestID := uuid.NewString()
	log := u.logger.With(zap.String("request_id", requestID))

	if strings.TrimSpace(question) == "" {
		return domain.AskResponse{}, domain.ErrEmptyQuery
	}

	start := u.now()
	log.Info("processing question", zap.String("question", question), zap.Int("top_k", u.topK))

	retrieved, err := u.retriever.Retrieve(ctx, question, u.topK, filter)
	if err != nil {
		log.Error("retrieval failed", zap.String("stage", "retrieve"), zap.Error(err))
		return domain.AskResponse{}, err
	}

	answer, err := u.composer.Compose(ctx, question, retrieved, u.maxContextChunks)
	if err != nil {
		log.Error("composition failed", zap.String("stage", "generate"), zap.Error(err))
		return domain.AskResponse{}, err
	}

	end := u.now()
	meta := domain.AskMetadata{
		RequestID:      requestID,
		Question:       question,
		Timestamp:      end,
		ChunksFound:    len(retrieved.Chunks),
		ChunksUsed:     answer.ChunksUsed,
		ResponseTimeMs: end.Sub(start).Milliseconds(),
		Usage:          answer.Usage,
	}
	if answer.ChunksUsed > 0 {
		meta.Model = u.composer.ModelName()
	}

	log.Info("answered question",
		zap.Int("chunks_found", meta.ChunksFound),
		zap.Int("chunks_used", meta.ChunksUsed),
		zap.Int64("response_time_ms", meta.ResponseTimeMs))

	return domain.AskResponse{
		Answer:    answer.Text,
		Citations: answer.Citations,
		Metadata:  meta,
	}, nil
}

// UserMessage maps an Ask error onto a message suitable for a student.
func UserMessage(err error) string {
	var transient *domain.TransientServiceError
	var generation *domain.GenerationError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrEmptyQuery):
		return msgEmptyQuestion
	case errors.As(err, &transient), errors.As(err, &generation):
		return msgUnavailable
	default:
		return msgFailed
	}
}

// PipelineStats describes the configured pipeline and the stored index.
type PipelineStats struct {
	TopK             int          `json:"top_k"`
	MaxContextChunks int          `json:"max_context_chunks"`
	Model            string       `json:"model"`
	Database         domain.Stats `json:"database"`
}

func (u *AskUseCase) Stats(ctx context.Context) (PipelineStats, error) {
	st, err := u.store.Stats(ctx)
	if err != nil {
		return PipelineStats{}, serviceError("store", "stats", err)
	}
	var model string
	if u.composer != nil {
		model = u.composer.ModelName()
	}
	return PipelineStats{
		TopK:             u.topK,
		MaxContextChunks: u.maxContextChunks,
		Model:            model,
		Database: domain.Stats{
			TotalChunks:    st.TotalChunks,
			UniqueChapters: st.UniqueChapters,
			UniqueSections: st.UniqueSections,
			Chapters:       st.Chapters,
		},
	}, nil
}

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

type HealthReport struct {
	Status    string          `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
	Checks    map[string]bool `json:"checks,omitempty"`
	Stats     *PipelineStats  `json:"stats,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Health is unhealthy when the store cannot be read and degraded when it is
// empty or no generator is configured.
func (u *AskUseCase) Health(ctx context.Context) HealthReport {
	stats, err := u.Stats(ctx)
	if err != nil {
		return HealthReport{Status: StatusUnhealthy, Timestamp: u.now(), Error: err.Error()}
	}

	checks := map[string]bool{
		"vector_store": stats.Database.TotalChunks > 0,
		"generator":    stats.Model != "",
	}
	status := StatusHealthy
	for _, ok := range checks {
		if !ok {
			status = StatusDegraded
		}
	}
	return HealthReport{Status: status, Timestamp: u.now(), Checks: checks, Stats: &stats}
}
