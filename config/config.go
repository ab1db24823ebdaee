package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DirName is the per-project data directory holding the index, logs and config.
const DirName = ".tutor"

// MaxAttempts caps calls to an external service: the first try and one retry.
const MaxAttempts = 2

// Config holds all configuration for the tutor pipeline.
type Config struct {
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Validation ValidationConfig `yaml:"validation"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	Generation GenerationConfig `yaml:"generation"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Store      StoreConfig      `yaml:"store"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ChunkingConfig holds the word-count bands used by the chunk assembler.
type ChunkingConfig struct {
	MinWords       int `yaml:"min_words"`
	TargetMinWords int `yaml:"target_min_words"`
	TargetMaxWords int `yaml:"target_max_words"`
	MaxWords       int `yaml:"max_words"`
}

// ValidationConfig holds the admission gate limits.
type ValidationConfig struct {
	Enabled          bool `yaml:"enabled"`
	MaxFileSizeMB    int  `yaml:"max_file_size_mb"`
	MinContentLength int  `yaml:"min_content_length"`
	MinSections      int  `yaml:"min_sections"`
	MaxSections      int  `yaml:"max_sections"`
}

// IngestConfig holds batch ingestion configuration.
type IngestConfig struct {
	Includes     []string `yaml:"includes"`
	Excludes     []string `yaml:"excludes"`
	BatchSize    int      `yaml:"batch_size"`
	BatchDelayMs int      `yaml:"batch_delay_ms"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK             int `yaml:"top_k"`
	MaxContextChunks int `yaml:"max_context_chunks"`
}

// GenerationConfig holds answer generation configuration.
type GenerationConfig struct {
	Provider       string  `yaml:"provider"` // "anthropic", "openai", "mock"
	Model          string  `yaml:"model"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	BaseURL        string  `yaml:"base_url"`
	MaxTokens      int     `yaml:"max_tokens"`
	Temperature    float64 `yaml:"temperature"`
	TimeoutSecs    int     `yaml:"timeout_secs"`
	RetryAttempts  int     `yaml:"retry_attempts"`
	RetryBackoffMs int     `yaml:"retry_backoff_ms"`
	SystemPrompt   string  `yaml:"system_prompt"` // empty = built-in Icelandic tutor prompt
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"` // "openai", "ollama", "gemini", "mock"
	Model          string `yaml:"model"`
	APIKeyEnv      string `yaml:"api_key_env"`
	BaseURL        string `yaml:"base_url"`
	Dimension      int    `yaml:"dimension"`
	BatchSize      int    `yaml:"batch_size"`
	TimeoutSecs    int    `yaml:"timeout_secs"`
	RetryAttempts  int    `yaml:"retry_attempts"`
	RetryBackoffMs int    `yaml:"retry_backoff_ms"`
}

// StoreConfig selects the vector store backend.
type StoreConfig struct {
	Backend string `yaml:"backend"` // "bolt", "sqlite", "memory"
	Path    string `yaml:"path"`    // empty = .tutor/index.db
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Chunking: ChunkingConfig{
			MinWords:       200,
			TargetMinWords: 400,
			TargetMaxWords: 600,
			MaxWords:       1000,
		},
		Validation: ValidationConfig{
			Enabled:          true,
			MaxFileSizeMB:    5,
			MinContentLength: 100,
			MinSections:      1,
			MaxSections:      50,
		},
		Ingest: IngestConfig{
			Includes:     []string{"**/*.md"},
			Excludes:     []string{"**/.git/**", "**/" + DirName + "/**", "**/node_modules/**", "**/README.md"},
			BatchSize:    100,
			BatchDelayMs: 100,
		},
		Retrieve: RetrieveConfig{
			TopK:             5,
			MaxContextChunks: 4,
		},
		Generation: GenerationConfig{
			Provider:       "anthropic",
			Model:          "claude-sonnet-4-20250514",
			APIKeyEnv:      "ANTHROPIC_API_KEY",
			MaxTokens:      2048,
			Temperature:    0.7,
			TimeoutSecs:    120,
			RetryAttempts:  2,
			RetryBackoffMs: 2000,
		},
		Embedding: EmbeddingConfig{
			Provider:       "openai",
			Model:          "text-embedding-3-small",
			APIKeyEnv:      "OPENAI_API_KEY",
			Dimension:      1536,
			BatchSize:      100,
			TimeoutSecs:    60,
			RetryAttempts:  2,
			RetryBackoffMs: 1000,
		},
		Store: StoreConfig{
			Backend: "bolt",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Generation.RetryAttempts = clampAttempts(cfg.Generation.RetryAttempts)
	cfg.Embedding.RetryAttempts = clampAttempts(cfg.Embedding.RetryAttempts)

	return cfg, nil
}

func clampAttempts(n int) int {
	return min(max(n, 1), MaxAttempts)
}

// LoadFromDir loads configuration from a directory (looks for tutor.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "tutor.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, DirName, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// StorePath returns the vector store location for a project directory.
func (c *Config) StorePath(dir string) string {
	if c.Store.Path != "" {
		if filepath.IsAbs(c.Store.Path) {
			return c.Store.Path
		}
		return filepath.Join(dir, c.Store.Path)
	}
	if c.Store.Backend == "sqlite" {
		return filepath.Join(dir, DirName, "index.sqlite")
	}
	return filepath.Join(dir, DirName, "index.db")
}

// LogDir returns the directory batch ingestion reports are written to.
func LogDir(dir string) string {
	return filepath.Join(dir, DirName, "logs")
}

// EnsureDataDir ensures the .tutor directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, DirName), 0755)
}

// GenerationTimeout returns the per-request generation timeout.
func (g GenerationConfig) GenerationTimeout() time.Duration {
	return time.Duration(g.TimeoutSecs) * time.Second
}

// RetryBackoff returns the fixed delay between generation attempts.
func (g GenerationConfig) RetryBackoff() time.Duration {
	return time.Duration(g.RetryBackoffMs) * time.Millisecond
}

// Timeout returns the per-request embedding timeout.
func (e EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSecs) * time.Second
}

// RetryBackoff returns the fixed delay between embedding attempts.
func (e EmbeddingConfig) RetryBackoff() time.Duration {
	return time.Duration(e.RetryBackoffMs) * time.Millisecond
}

// BatchDelay returns the pause inserted between ingestion batches.
func (i IngestConfig) BatchDelay() time.Duration {
	return time.Duration(i.BatchDelayMs) * time.Millisecond
}
