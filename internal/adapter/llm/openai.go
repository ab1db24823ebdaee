package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"chemtutor/internal/port"
	"chemtutor/internal/retry"
)

const DefaultOpenAIURL = "https://api.openai.com/v1"

// OpenAIGenerator calls an OpenAI-compatible chat completions endpoint.
type OpenAIGenerator struct {
	cfg    Config
	client *http.Client
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewOpenAIGenerator(cfg Config) (*OpenAIGenerator, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("openai: model is required")
	}
	cfg = cfg.withDefaults(DefaultOpenAIURL)
	return &OpenAIGenerator{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (g *OpenAIGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (port.Generation, error) {
	messages := make([]message, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, message{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, message{Role: "user", Content: userPrompt})

	payload, err := json.Marshal(chatCompletionRequest{
		Model:       g.cfg.Model,
		Messages:    messages,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	})
	if err != nil {
		return port.Generation{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return port.Generation{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return port.Generation{}, fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return port.Generation{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return port.Generation{}, statusError("openai", resp.StatusCode, body)
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return port.Generation{}, fmt.Errorf("decode response: %w", err)
	}
	if chatResp.Error != nil {
		return port.Generation{}, fmt.Errorf("openai error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return port.Generation{}, fmt.Errorf("openai: no response choices returned")
	}

	return port.Generation{
		Text:      chatResp.Choices[0].Message.Content,
		TokensIn:  chatResp.Usage.PromptTokens,
		TokensOut: chatResp.Usage.CompletionTokens,
	}, nil
}

func (g *OpenAIGenerator) ModelName() string {
	return g.cfg.Model
}

// statusError marks client errors other than rate limiting as permanent.
func statusError(provider string, code int, body []byte) error {
	s := string(body)
	if len(s) > 200 {
		s = s[:200]
	}
	err := fmt.Errorf("%s error (status %d): %s", provider, code, s)
	if code >= 400 && code < 500 && code != http.StatusTooManyRequests && code != http.StatusRequestTimeout {
		return retry.Permanent(err)
	}
	return err
}
