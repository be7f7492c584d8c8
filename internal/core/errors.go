package core

import "errors"

var (
	ErrRemoteCall           = errors.New("remote call failed")
	ErrEmptyCompletion      = errors.New("empty completion")
	ErrToolArguments        = errors.New("invalid tool arguments")
	ErrUnknownTool          = errors.New("unknown tool")
	ErrRetrieval            = errors.New("retrieval failed")
	ErrProductNotFound      = errors.New("product not found")
	ErrConversationNotFound = errors.New("conversation not found")
)

// FallbackReply is what the user sees when a turn cannot be completed.
const FallbackReply = "Sorry, I cannot process your request right now. Please try again later."
