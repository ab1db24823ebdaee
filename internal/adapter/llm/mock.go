package llm

import (
	"context"
	"strings"
	"sync"

	"chemtutor/internal/port"
)

// MockGenerator answers without a network call. With no Reply set it echoes
// the question line of the user prompt.
type MockGenerator struct {
	Reply string
	Err   error

	mu    sync.Mutex
	calls int
}

func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

func (m *MockGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (port.Generation, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return port.Generation{}, err
	}
	if m.Err != nil {
		return port.Generation{}, m.Err
	}

	text := m.Reply
	if text == "" {
		text = "Svar (prófun): " + questionLine(userPrompt)
	}
	return port.Generation{
		Text:      text,
		TokensIn:  len(strings.Fields(systemPrompt)) + len(strings.Fields(userPrompt)),
		TokensOut: len(strings.Fields(text)),
	}, nil
}

func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockGenerator) ModelName() string {
	return "mock"
}

func questionLine(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		if q, ok := strings.CutPrefix(line, "SPURNING:"); ok {
			return strings.TrimSpace(q)
		}
	}
	return strings.TrimSpace(prompt)
}
