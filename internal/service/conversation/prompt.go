package conversation

import (
	"os"
	"strings"

	"github.com/sandevgo/shopbot/internal/core"
)

const DefaultSystemPrompt = `You are a helpful shopping assistant for an e-commerce site.

Capabilities:
1) General conversation (for example "What's your name?" or "What can you do?").
2) Text-based product recommendation (for example "Recommend me a t-shirt for sports.").
3) Image-based product search.

Important constraints:
- Product recommendation and search are limited to items in the store catalog.
- Keep responses concise and clear.
- Reply in English.
- When tool results are present, turn them into a natural recommendation such as
  "I recommend the blue t-shirt for you." Do not mention tools or IDs.
  Prefer the most relevant items and refer to product names, with price if helpful.`

// SysPrompt serves the system prompt, preferring an operator-supplied SYSTEM.md
// in the runtime directory over the built-in one.
type SysPrompt struct {
	cfg core.PromptConfig
}

func NewSysPrompt(cfg core.PromptConfig) *SysPrompt {
	return &SysPrompt{
		cfg: cfg,
	}
}

func (p *SysPrompt) Build() string {
	if p.cfg != nil {
		if content, err := os.ReadFile(p.cfg.GetSystemPath()); err == nil {
			if s := strings.TrimSpace(string(content)); s != "" {
				return s
			}
		}
	}
	return DefaultSystemPrompt
}
