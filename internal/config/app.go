package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/shopbot/pkg/log"
	dotenv "github.com/sandevgo/shopbot/pkg/env"
)

type AppConfig struct {
	RuntimePath string `env:"SHOPBOT_RUNTIME_PATH" envDefault:".shopbot"`

	// Chat provider
	Provider            string `env:"LLM_PROVIDER" envDefault:"openai"`
	Model               string `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIAPIKey        string `env:"OPENAI_API_KEY"`
	AnthropicAPIKey     string `env:"ANTHROPIC_API_KEY"`
	OpenRouterAPIKey    string `env:"OPENROUTER_API_KEY"`
	OllamaAPIKey        string `env:"OLLAMA_API_KEY"`
	OllamaBaseURL       string `env:"OLLAMA_BASE_URL" envDefault:"http://localhost:11434"`
	CustomOpenAIBaseURL string `env:"CUSTOM_OPENAI_BASE_URL"`
	CustomOpenAIAPIKey  string `env:"CUSTOM_OPENAI_API_KEY"`

	// Embeddings and vision. An empty embedding provider picks openai when a key
	// is available and the local hash embedder otherwise.
	EmbeddingProvider  string `env:"EMBEDDING_PROVIDER"`
	EmbeddingModel     string `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	EmbeddingBaseURL   string `env:"EMBEDDING_BASE_URL"`
	EmbeddingDimension int    `env:"EMBEDDING_DIMENSION" envDefault:"384"`
	VisionModel        string `env:"VISION_MODEL" envDefault:"gpt-4o-mini"`
	VisionBaseURL      string `env:"VISION_BASE_URL"`

	// Context management
	MaxHistoryTurns int `env:"MAX_HISTORY_TURNS" envDefault:"4"`
	KeepRecentTurns int `env:"KEEP_RECENT_TURNS" envDefault:"2"`

	// Retrieval
	TextSimilarityThreshold  float64 `env:"TEXT_SIMILARITY_THRESHOLD" envDefault:"0.5"`
	ImageSimilarityThreshold float64 `env:"IMAGE_SIMILARITY_THRESHOLD" envDefault:"0.4"`
	TextTopK                 int     `env:"TEXT_TOP_K" envDefault:"2"`
	ImageTopK                int     `env:"IMAGE_TOP_K" envDefault:"5"`
	MaxTopK                  int     `env:"MAX_TOP_K" envDefault:"10"`
	ToolResultTokenLimit     int     `env:"TOOL_RESULT_TOKEN_LIMIT" envDefault:"2000"`

	RemoteCallTimeout time.Duration `env:"REMOTE_CALL_TIMEOUT" envDefault:"30s"`
	ConversationTTL   time.Duration `env:"CONVERSATION_TTL" envDefault:"30m"`
	JanitorInterval   time.Duration `env:"JANITOR_INTERVAL" envDefault:"1m"`

	SeedCatalogPath string `env:"SEED_CATALOG_PATH"`

	// Transport flags
	EnableHTTP     bool `env:"ENABLE_HTTP" envDefault:"true"`
	EnableTelegram bool `env:"ENABLE_TELEGRAM" envDefault:"false"`

	mu sync.RWMutex
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	c.RuntimePath = resolveRuntimePath(c.RuntimePath)
	return c
}

func (c *AppConfig) GetRuntimePath() string {
	return c.RuntimePath
}

func (c *AppConfig) GetSystemPath() string {
	return filepath.Join(c.RuntimePath, "SYSTEM.md")
}

func (c *AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "shopbot.db")
}

func (c *AppConfig) GetSeedCatalogPath() string {
	if c.SeedCatalogPath != "" {
		return c.SeedCatalogPath
	}
	return filepath.Join(c.RuntimePath, "catalog.yaml")
}

func (c *AppConfig) IsTelegramSelected() bool {
	return c.EnableTelegram
}

func (c *AppConfig) GetModel() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Model
}

// SetModel switches the chat model and persists it into the runtime .env file.
func (c *AppConfig) SetModel(model string) error {
	c.mu.Lock()
	c.Model = model
	c.mu.Unlock()

	return c.persistModel(model)
}

func (c *AppConfig) persistModel(model string) error {
	path := filepath.Join(c.RuntimePath, ".env")

	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read env file: %w", err)
	}

	line, err := dotenv.MarshalEnv(&struct {
		Model string `env:"LLM_MODEL"`
	}{Model: model})
	if err != nil {
		return err
	}

	content := replaceEnvLine(string(existing), "LLM_MODEL", line)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("write env file: %w", err)
	}
	return nil
}

func (c *AppConfig) GetProvider() string            { return c.Provider }
func (c *AppConfig) GetAnthropicAPIKey() string     { return c.AnthropicAPIKey }
func (c *AppConfig) GetOpenAIAPIKey() string        { return c.OpenAIAPIKey }
func (c *AppConfig) GetOpenRouterAPIKey() string    { return c.OpenRouterAPIKey }
func (c *AppConfig) GetOllamaAPIKey() string        { return c.OllamaAPIKey }
func (c *AppConfig) GetOllamaBaseURL() string       { return c.OllamaBaseURL }
func (c *AppConfig) GetCustomOpenAIBaseURL() string { return c.CustomOpenAIBaseURL }
func (c *AppConfig) GetCustomOpenAIAPIKey() string  { return c.CustomOpenAIAPIKey }
