package conversation

import (
	"slices"
	"time"

	"github.com/sandevgo/shopbot/internal/core"
)

// Conversation is the per-id history. It is only touched while its Store
// entry is locked.
type Conversation struct {
	ID        string             `json:"conversation_id"`
	Turns     []core.Turn        `json:"messages"`
	Hints     *core.ContextHints `json:"context,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func New(id string, now time.Time) *Conversation {
	return &Conversation{ID: id, CreatedAt: now, UpdatedAt: now}
}

// Summary returns the rolling summary turn, which is always first when present.
func (c *Conversation) Summary() (core.Turn, bool) {
	if len(c.Turns) > 0 && c.Turns[0].Summary {
		return c.Turns[0], true
	}
	return core.Turn{}, false
}

// Dialogue returns the turns that are not the summary.
func (c *Conversation) Dialogue() []core.Turn {
	if _, ok := c.Summary(); ok {
		return c.Turns[1:]
	}
	return c.Turns
}

// IsEmpty reports whether nothing has been recorded yet.
func (c *Conversation) IsEmpty() bool {
	return len(c.Turns) == 0 && c.Hints.IsEmpty()
}

func (c *Conversation) Clone() Conversation {
	out := *c
	out.Turns = slices.Clone(c.Turns)
	if c.Hints != nil {
		h := *c.Hints
		out.Hints = &h
	}
	return out
}
