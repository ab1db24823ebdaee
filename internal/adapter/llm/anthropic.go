package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"chemtutor/internal/port"
)

const (
	DefaultAnthropicURL = "https://api.anthropic.com"
	anthropicVersion    = "2023-06-01"
	DefaultTimeout      = 120 * time.Second
)

// Config holds the connection and sampling settings shared by the generators.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

func (c Config) withDefaults(baseURL string) Config {
	if c.BaseURL == "" {
		c.BaseURL = baseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 2048
	}
	return c
}

// AnthropicGenerator calls the Messages API.
type AnthropicGenerator struct {
	cfg    Config
	client *http.Client
}

type messagesRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewAnthropicGenerator(cfg Config) (*AnthropicGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("anthropic: model is required")
	}
	cfg = cfg.withDefaults(DefaultAnthropicURL)
	return &AnthropicGenerator{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (g *AnthropicGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (port.Generation, error) {
	payload, err := json.Marshal(messagesRequest{
		Model:       g.cfg.Model,
		Messages:    []message{{Role: "user", Content: userPrompt}},
		MaxTokens:   g.cfg.MaxTokens,
		System:      systemPrompt,
		Temperature: g.cfg.Temperature,
	})
	if err != nil {
		return port.Generation{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return port.Generation{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", g.cfg.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := g.client.Do(req)
	if err != nil {
		return port.Generation{}, fmt.Errorf("anthropic request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return port.Generation{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return port.Generation{}, statusError("anthropic", resp.StatusCode, body)
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(body, &msgResp); err != nil {
		return port.Generation{}, fmt.Errorf("decode response: %w", err)
	}
	if msgResp.Error != nil {
		return port.Generation{}, fmt.Errorf("anthropic error: %s", msgResp.Error.Message)
	}
	if len(msgResp.Content) == 0 {
		return port.Generation{}, fmt.Errorf("anthropic: no response content returned")
	}

	var text strings.Builder
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return port.Generation{
		Text:      text.String(),
		TokensIn:  msgResp.Usage.InputTokens,
		TokensOut: msgResp.Usage.OutputTokens,
	}, nil
}

func (g *AnthropicGenerator) ModelName() string {
	return g.cfg.Model
}
