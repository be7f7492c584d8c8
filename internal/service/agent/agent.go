package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/shopbot/internal/core"
	"github.com/sandevgo/shopbot/internal/service/conversation"
	"github.com/sandevgo/shopbot/pkg/log"
)

type Prompter interface {
	Build() string
}

type Request struct {
	ConversationID string
	Message        string
	Hints          *core.ContextHints
}

type Reply struct {
	ConversationID string            `json:"conversation_id"`
	Message        string            `json:"message"`
	ToolCalls      []core.ToolRecord `json:"tool_calls"`
	Degraded       bool              `json:"-"`
	Timestamp      time.Time         `json:"timestamp"`
}

type Agent struct {
	ai        core.AIProvider
	store     *conversation.Store
	manager   *conversation.Manager
	prompter  Prompter
	executor  *Executor
	tools     []core.Tool
	timeout   time.Duration
	observers []Observer
}

func NewAgent(
	ai core.AIProvider,
	store *conversation.Store,
	manager *conversation.Manager,
	prompter Prompter,
	executor *Executor,
	timeout time.Duration,
	observers ...Observer,
) *Agent {
	return &Agent{
		ai:        ai,
		store:     store,
		manager:   manager,
		prompter:  prompter,
		executor:  executor,
		tools:     Tools(),
		timeout:   timeout,
		observers: observers,
	}
}

// run carries the state of one user turn through the machine.
type run struct {
	agent    *Agent
	conv     *conversation.Conversation
	state    State
	messages []core.Message
	records  []core.ToolRecord
	reply    string
}

// Run answers one user message. The returned Reply is always usable: when a
// remote call fails it carries the fallback text, history is left as it was
// and the cause is returned alongside.
func (a *Agent) Run(ctx context.Context, req Request) (Reply, error) {
	reply := Reply{ConversationID: req.ConversationID}

	runErr := a.store.Do(ctx, req.ConversationID, func(conv *conversation.Conversation) error {
		reply.ConversationID = conv.ID
		ctx := log.WithConversation(ctx, conv.ID)

		r := &run{agent: a, conv: conv, state: StateAwaitingIntent}
		if err := r.execute(ctx, req); err != nil {
			log.FromCtx(ctx).Error().Err(err).Str("state", r.state.String()).Msg("turn failed, sending fallback reply")
			return err
		}

		reply.Message = r.reply
		reply.ToolCalls = r.records
		return nil
	})

	reply.Timestamp = time.Now()
	if reply.ToolCalls == nil {
		reply.ToolCalls = []core.ToolRecord{}
	}
	if runErr != nil {
		reply.Message = core.FallbackReply
		reply.ToolCalls = []core.ToolRecord{}
		reply.Degraded = true
	}
	return reply, runErr
}

func (r *run) execute(ctx context.Context, req Request) error {
	a := r.agent

	hints := r.conv.Hints
	if !req.Hints.IsEmpty() {
		hints = req.Hints
	}
	r.messages = a.manager.BuildPrompt(r.conv, a.prompter.Build(), req.Message, hints)

	intent, err := a.chat(ctx, r.messages, core.ToolChoiceAuto)
	if err != nil {
		return fmt.Errorf("intent: %w", err)
	}

	if len(intent.ToolCalls) == 0 {
		if strings.TrimSpace(intent.Content) == "" {
			return fmt.Errorf("intent: %w", core.ErrEmptyCompletion)
		}
		r.reply = intent.Content
		return r.finish(ctx, req)
	}

	if err := r.transition(ctx, StateExecutingTools); err != nil {
		return err
	}
	intent.ToolCalls = normalizeToolCalls(intent.ToolCalls)
	intent.Role = core.RoleAssistant

	toolMsgs, records := a.executor.Execute(ctx, intent.ToolCalls)
	r.records = records
	r.messages = append(r.messages, intent)
	r.messages = append(r.messages, toolMsgs...)
	r.messages = a.manager.AddToolSynthesisInstruction(r.messages, records)

	if err := r.transition(ctx, StateSynthesizing); err != nil {
		return err
	}
	final, err := a.chat(ctx, r.messages, core.ToolChoiceNone)
	if err != nil {
		return fmt.Errorf("synthesis: %w", err)
	}
	if strings.TrimSpace(final.Content) == "" {
		return fmt.Errorf("synthesis: %w", core.ErrEmptyCompletion)
	}
	r.reply = final.Content

	return r.finish(ctx, req)
}

// finish commits the user and assistant turns together and compacts history.
func (r *run) finish(ctx context.Context, req Request) error {
	if err := r.transition(ctx, StateFinalReply); err != nil {
		return err
	}

	if !req.Hints.IsEmpty() {
		r.conv.Hints = req.Hints
	}

	now := time.Now()
	r.agent.manager.Append(r.conv,
		core.Turn{Role: core.RoleUser, Content: req.Message, CreatedAt: now},
		core.Turn{Role: core.RoleAssistant, Content: r.reply, ToolCalls: r.records, CreatedAt: now},
	)

	// A failed summary is not the user's problem; it is retried next turn.
	_, _ = r.agent.manager.MaybeSummarize(ctx, r.conv)
	return nil
}

func (r *run) transition(ctx context.Context, to State) error {
	from := r.state
	if !canTransition(from, to) {
		return fmt.Errorf("invalid transition %s -> %s", from, to)
	}
	r.state = to

	log.FromCtx(ctx).Debug().Str("from", from.String()).Str("to", to.String()).Msg("agent state")
	for _, obs := range r.agent.observers {
		obs(ctx, r.conv.ID, from, to)
	}
	return nil
}

func (a *Agent) chat(ctx context.Context, messages []core.Message, choice core.ToolChoice) (core.Message, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	msg, err := a.ai.Chat(ctx, messages, a.tools, choice)
	if err != nil {
		if !errors.Is(err, core.ErrRemoteCall) {
			err = fmt.Errorf("%w: %w", core.ErrRemoteCall, err)
		}
		return core.Message{}, err
	}
	return msg, nil
}

// Conversation returns a snapshot of the stored conversation.
func (a *Agent) Conversation(id string) (conversation.Conversation, error) {
	return a.store.Get(id)
}

// Reset forgets the conversation. It reports whether one existed.
func (a *Agent) Reset(id string) bool {
	return a.store.Delete(id)
}

// normalizeToolCalls fills in ids some providers omit, so tool results can
// always be matched to their call.
func normalizeToolCalls(calls []core.ToolCall) []core.ToolCall {
	out := make([]core.ToolCall, len(calls))
	seen := make(map[string]bool, len(calls))
	for i, tc := range calls {
		if tc.ID == "" || seen[tc.ID] {
			tc.ID = fmt.Sprintf("call_%d", i)
		}
		seen[tc.ID] = true
		if tc.Type == "" {
			tc.Type = "function"
		}
		out[i] = tc
	}
	return out
}
