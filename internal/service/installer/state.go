package installer

import (
	"strings"

	dotenv "github.com/sandevgo/shopbot/pkg/env"
)

// Settings mirrors the subset of AppConfig and TelegramConfig the wizard asks
// about. Empty fields are left out of .env so defaults keep applying.
type Settings struct {
	Provider            string  `env:"LLM_PROVIDER"`
	Model               string  `env:"LLM_MODEL"`
	OpenAIAPIKey        string  `env:"OPENAI_API_KEY"`
	AnthropicAPIKey     string  `env:"ANTHROPIC_API_KEY"`
	OpenRouterAPIKey    string  `env:"OPENROUTER_API_KEY"`
	OllamaAPIKey        string  `env:"OLLAMA_API_KEY"`
	OllamaBaseURL       string  `env:"OLLAMA_BASE_URL"`
	CustomOpenAIBaseURL string  `env:"CUSTOM_OPENAI_BASE_URL"`
	CustomOpenAIAPIKey  string  `env:"CUSTOM_OPENAI_API_KEY"`
	SeedCatalogPath     string  `env:"SEED_CATALOG_PATH"`
	EnableTelegram      bool    `env:"ENABLE_TELEGRAM"`
	TelegramToken       string  `env:"TELEGRAM_TOKEN"`
	AllowedUserIDs      []int64 `env:"TELEGRAM_ALLOWED_USER_IDS"`
}

type InstallState struct {
	Settings Settings
}

func NewInstallState() *InstallState {
	return &InstallState{}
}

func (s *InstallState) provider() string {
	return strings.ToLower(s.Settings.Provider)
}

// SetAPIKey stores key in the field of the selected provider.
func (s *InstallState) SetAPIKey(key string) {
	key = strings.TrimSpace(key)
	switch s.provider() {
	case "openai":
		s.Settings.OpenAIAPIKey = key
	case "anthropic":
		s.Settings.AnthropicAPIKey = key
	case "openrouter":
		s.Settings.OpenRouterAPIKey = key
	case "ollama":
		s.Settings.OllamaAPIKey = key
	case "custom":
		s.Settings.CustomOpenAIAPIKey = key
	}
}

// Render produces the .env content.
func (s *InstallState) Render() (string, error) {
	return dotenv.MarshalEnv(&s.Settings)
}
