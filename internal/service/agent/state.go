package agent

import "context"

// State is a step of one user turn. Every run starts in AwaitingIntent and
// ends in FinalReply, passing through the tool states only when the model
// asked for tools.
type State int

const (
	StateAwaitingIntent State = iota
	StateExecutingTools
	StateSynthesizing
	StateFinalReply
)

func (s State) String() string {
	switch s {
	case StateAwaitingIntent:
		return "awaiting_intent"
	case StateExecutingTools:
		return "executing_tools"
	case StateSynthesizing:
		return "synthesizing"
	case StateFinalReply:
		return "final_reply"
	default:
		return "unknown"
	}
}

var transitions = map[State][]State{
	StateAwaitingIntent: {StateExecutingTools, StateFinalReply},
	StateExecutingTools: {StateSynthesizing},
	StateSynthesizing:   {StateFinalReply},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Observer is told about every state change of a run.
type Observer func(ctx context.Context, conversationID string, from, to State)
