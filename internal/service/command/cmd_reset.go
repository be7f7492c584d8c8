package command

import (
	"context"
)

type resetter interface {
	Reset(id string) bool
}

// ResetCommand forgets the caller's conversation.
type ResetCommand struct {
	conversations resetter
	formatter     *ResponseFormatter
}

func NewResetCommand(conversations resetter) *ResetCommand {
	return &ResetCommand{
		conversations: conversations,
		formatter:     NewResponseFormatter(),
	}
}

func (c *ResetCommand) Name() string {
	return "reset"
}

func (c *ResetCommand) Description() string {
	return "Clear the conversation history"
}

func (c *ResetCommand) Execute(_ context.Context, sessionID string, _ []string) (string, error) {
	if !c.conversations.Reset(sessionID) {
		return c.formatter.Combine(
			c.formatter.Info("Conversation"),
			c.formatter.Tip("Nothing to clear yet. Ask me about a product to get started."),
		), nil
	}
	return c.formatter.Success("Conversation history cleared"), nil
}
