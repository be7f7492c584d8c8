package core

import "time"

// Turn is one entry of a conversation history. Turns are never mutated after
// they are appended.
type Turn struct {
	Role      string       `json:"role"`
	Content   string       `json:"content"`
	ToolCalls []ToolRecord `json:"tool_calls,omitempty"`
	Summary   bool         `json:"summary,omitempty"`
	CreatedAt time.Time    `json:"timestamp"`
}

// ToolRecord pairs a tool invocation requested by the model with the result
// that was fed back to it.
type ToolRecord struct {
	Function  string         `json:"function"`
	Arguments map[string]any `json:"arguments"`
	Result    any            `json:"result"`
}

// ContextHints carries optional structured context supplied with a user turn.
type ContextHints struct {
	UserPreferences map[string]any `json:"user_preferences,omitempty"`
	CurrentProducts []int64        `json:"current_products,omitempty"`
	SessionData     map[string]any `json:"session_data,omitempty"`
}

func (h *ContextHints) IsEmpty() bool {
	return h == nil || (len(h.UserPreferences) == 0 && len(h.CurrentProducts) == 0 && len(h.SessionData) == 0)
}

type Product struct {
	ID          int64     `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	Price       float64   `json:"price" yaml:"price"`
	Category    string    `json:"category" yaml:"category"`
	Brand       string    `json:"brand,omitempty" yaml:"brand"`
	ImageURL    string    `json:"image_url,omitempty" yaml:"image_url"`
	Tags        []string  `json:"tags" yaml:"tags"`
	Stock       int       `json:"stock" yaml:"stock"`
	Rating      float64   `json:"rating" yaml:"rating"`
	CreatedAt   time.Time `json:"created_at" yaml:"-"`
}

// RetrievalResult is a catalog product with its cosine similarity to a query.
type RetrievalResult struct {
	Product Product `json:"product"`
	Score   float64 `json:"similarity"`
	Reason  string  `json:"reason,omitempty"`
}
