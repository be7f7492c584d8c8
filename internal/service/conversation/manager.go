package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/shopbot/internal/core"
	"github.com/sandevgo/shopbot/pkg/log"
)

const (
	DefaultMaxHistoryTurns = 4
	DefaultKeepRecentTurns = 2

	SummaryPrefix = "Conversation summary: "

	summarizeInstruction = "You are an assistant that produces a brief, neutral conversation summary. " +
		"Capture the user's preferences, constraints (e.g., budget), decisions taken, and any pending questions. " +
		"Keep it under 120 words, in English."

	synthesisInstruction = "Use the tool results above to craft a concise, natural answer in 1-2 sentences. " +
		"Refer to products by name, with price if helpful. " +
		"Never repeat raw JSON, tool names or internal IDs. Reply in English."

	noMatchInstruction = " None of the lookups found a sufficiently similar product: say so plainly " +
		"and suggest how the user could refine the request."
)

type Config struct {
	MaxHistoryTurns int
	KeepRecentTurns int
	Timeout         time.Duration
}

// Manager assembles prompts from a conversation and compacts old history into
// a rolling summary. Compaction is lossy: folded turns survive only in the
// summary text and, when configured, in the archive.
type Manager struct {
	provider core.AIProvider
	archive  core.TurnArchive
	cfg      Config
}

func NewManager(provider core.AIProvider, archive core.TurnArchive, cfg Config) *Manager {
	if cfg.MaxHistoryTurns <= 0 {
		cfg.MaxHistoryTurns = DefaultMaxHistoryTurns
	}
	if cfg.KeepRecentTurns <= 0 {
		cfg.KeepRecentTurns = DefaultKeepRecentTurns
	}
	cfg.KeepRecentTurns = min(cfg.KeepRecentTurns, cfg.MaxHistoryTurns)

	return &Manager{
		provider: provider,
		archive:  archive,
		cfg:      cfg,
	}
}

func (m *Manager) Append(conv *Conversation, turns ...core.Turn) {
	conv.Turns = append(conv.Turns, turns...)
}

// BuildPrompt returns the system prompt (with hints folded in), the summary,
// the last KeepRecentTurns dialogue turns and the user message, in that order.
func (m *Manager) BuildPrompt(conv *Conversation, systemPrompt, userMessage string, hints *core.ContextHints) []core.Message {
	messages := make([]core.Message, 0, m.cfg.KeepRecentTurns+3)
	messages = append(messages, core.Message{
		Role:    core.RoleSystem,
		Content: systemPrompt + formatHints(hints),
	})

	if summary, ok := conv.Summary(); ok {
		messages = append(messages, core.Message{Role: core.RoleSystem, Content: summary.Content})
	}

	dialogue := conv.Dialogue()
	for _, t := range dialogue[max(0, len(dialogue)-m.cfg.KeepRecentTurns):] {
		messages = append(messages, core.Message{Role: t.Role, Content: t.Content})
	}

	return append(messages, core.Message{Role: core.RoleUser, Content: userMessage})
}

// MaybeSummarize folds everything but the most recent turns into one summary
// turn once the dialogue grows past MaxHistoryTurns. It reports whether
// compaction happened. On error the conversation is left untouched.
func (m *Manager) MaybeSummarize(ctx context.Context, conv *Conversation) (bool, error) {
	dialogue := conv.Dialogue()
	if len(dialogue) <= m.cfg.MaxHistoryTurns {
		return false, nil
	}

	logger := log.FromCtx(ctx)
	split := len(conv.Turns) - m.cfg.KeepRecentTurns
	folded, recent := conv.Turns[:split], conv.Turns[split:]

	summary, err := m.summarize(ctx, folded)
	if err != nil {
		logger.Warn().Err(err).Int("turns", len(dialogue)).Msg("summarization failed, history kept")
		return false, fmt.Errorf("summarize: %w", err)
	}

	if m.archive != nil {
		raw := make([]core.Turn, 0, len(folded))
		for _, t := range folded {
			if !t.Summary {
				raw = append(raw, t)
			}
		}
		if err := m.archive.ArchiveTurns(ctx, conv.ID, raw); err != nil {
			logger.Warn().Err(err).Msg("failed to archive folded turns")
		}
	}

	turns := make([]core.Turn, 0, len(recent)+1)
	turns = append(turns, core.Turn{
		Role:      core.RoleSystem,
		Content:   SummaryPrefix + summary,
		Summary:   true,
		CreatedAt: time.Now(),
	})
	conv.Turns = append(turns, recent...)

	logger.Debug().Int("folded", len(folded)).Int("kept", len(recent)).Msg("conversation compacted")
	return true, nil
}

func (m *Manager) summarize(ctx context.Context, turns []core.Turn) (string, error) {
	messages := make([]core.Message, 0, len(turns)+1)
	messages = append(messages, core.Message{Role: core.RoleSystem, Content: summarizeInstruction})
	for _, t := range turns {
		messages = append(messages, core.Message{Role: t.Role, Content: t.Content})
	}

	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.Timeout)
		defer cancel()
	}

	resp, err := m.provider.Chat(ctx, messages, nil, "")
	if err != nil {
		return "", err
	}

	summary := strings.TrimSpace(resp.Content)
	if summary == "" {
		return "", core.ErrEmptyCompletion
	}
	return strings.TrimPrefix(summary, SummaryPrefix), nil
}

// matcher is implemented by tool results that know whether they found anything.
type matcher interface {
	Matched() bool
}

// AddToolSynthesisInstruction appends the system message that steers the
// final answer. When no tool found a match the model is told to say so.
func (m *Manager) AddToolSynthesisInstruction(messages []core.Message, records []core.ToolRecord) []core.Message {
	content := synthesisInstruction
	if len(records) > 0 && !anyMatched(records) {
		content += noMatchInstruction
	}
	return append(messages, core.Message{Role: core.RoleSystem, Content: content})
}

func anyMatched(records []core.ToolRecord) bool {
	for _, r := range records {
		if mr, ok := r.Result.(matcher); ok && mr.Matched() {
			return true
		}
	}
	return false
}

func formatHints(h *core.ContextHints) string {
	if h.IsEmpty() {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\nContext about this user:")
	if len(h.UserPreferences) > 0 {
		data, _ := json.Marshal(h.UserPreferences)
		b.WriteString("\n- Preferences: ")
		b.Write(data)
	}
	if len(h.CurrentProducts) > 0 {
		data, _ := json.Marshal(h.CurrentProducts)
		b.WriteString("\n- Products currently viewed: ")
		b.Write(data)
	}
	if len(h.SessionData) > 0 {
		data, _ := json.Marshal(h.SessionData)
		b.WriteString("\n- Session data: ")
		b.Write(data)
	}
	return b.String()
}
