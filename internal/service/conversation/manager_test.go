package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/shopbot/internal/core"
)

type fakeSummarizer struct {
	calls    int
	received [][]core.Message
	reply    string
	err      error
}

func (f *fakeSummarizer) Chat(_ context.Context, history []core.Message, _ []core.Tool, _ core.ToolChoice) (core.Message, error) {
	f.calls++
	f.received = append(f.received, history)
	if f.err != nil {
		return core.Message{}, f.err
	}
	return core.Message{Role: core.RoleAssistant, Content: f.reply}, nil
}

func (f *fakeSummarizer) Models(context.Context) ([]core.Model, error) { return nil, nil }

type fakeArchive struct {
	turns []core.Turn
}

func (f *fakeArchive) ArchiveTurns(_ context.Context, _ string, turns []core.Turn) error {
	f.turns = append(f.turns, turns...)
	return nil
}

type matchResult bool

func (m matchResult) Matched() bool { return bool(m) }

func exchange(n int) []core.Turn {
	return []core.Turn{
		{Role: core.RoleUser, Content: fmt.Sprintf("question %d", n)},
		{Role: core.RoleAssistant, Content: fmt.Sprintf("answer %d", n)},
	}
}

func newManager(p core.AIProvider, archive core.TurnArchive) *Manager {
	return NewManager(p, archive, Config{MaxHistoryTurns: 4, KeepRecentTurns: 2, Timeout: time.Second})
}

func TestManager_BuildPromptEmptyConversation(t *testing.T) {
	m := newManager(&fakeSummarizer{}, nil)

	msgs := m.BuildPrompt(New("c1", time.Now()), "sys", "hello", nil)

	assert.Equal(t, []core.Message{
		{Role: core.RoleSystem, Content: "sys"},
		{Role: core.RoleUser, Content: "hello"},
	}, msgs)
}

func TestManager_BuildPromptBounded(t *testing.T) {
	m := newManager(&fakeSummarizer{}, nil)

	for n := 0; n <= 12; n++ {
		for _, withSummary := range []bool{false, true} {
			conv := New("c", time.Now())
			if withSummary {
				conv.Turns = append(conv.Turns, core.Turn{Role: core.RoleSystem, Content: SummaryPrefix + "s", Summary: true})
			}
			for i := 0; i < n; i++ {
				conv.Turns = append(conv.Turns, core.Turn{Role: core.RoleUser, Content: fmt.Sprint(i)})
			}

			msgs := m.BuildPrompt(conv, "sys", "now", nil)
			assert.LessOrEqual(t, len(msgs), 2+2+1, "turns=%d summary=%v", n, withSummary)
			assert.Equal(t, "now", msgs[len(msgs)-1].Content)
		}
	}
}

func TestManager_BuildPromptOrder(t *testing.T) {
	m := newManager(&fakeSummarizer{}, nil)
	conv := New("c", time.Now())
	conv.Turns = append([]core.Turn{{Role: core.RoleSystem, Content: SummaryPrefix + "likes blue", Summary: true}}, exchange(1)...)
	conv.Turns = append(conv.Turns, exchange(2)...)

	hints := &core.ContextHints{UserPreferences: map[string]any{"color": "blue"}, CurrentProducts: []int64{7}}
	msgs := m.BuildPrompt(conv, "sys", "next", hints)

	require.Len(t, msgs, 5)
	assert.True(t, strings.HasPrefix(msgs[0].Content, "sys"))
	assert.Contains(t, msgs[0].Content, `"color":"blue"`)
	assert.Contains(t, msgs[0].Content, "[7]")
	assert.Equal(t, SummaryPrefix+"likes blue", msgs[1].Content)
	assert.Equal(t, "question 2", msgs[2].Content)
	assert.Equal(t, "answer 2", msgs[3].Content)
	assert.Equal(t, "next", msgs[4].Content)
}

func TestManager_SixTurnCompaction(t *testing.T) {
	summarizer := &fakeSummarizer{reply: "User wants headphones under 200."}
	archive := &fakeArchive{}
	m := newManager(summarizer, archive)
	conv := New("c", time.Now())

	for i := 1; i <= 3; i++ {
		m.Append(conv, exchange(i)...)
		_, err := m.MaybeSummarize(context.Background(), conv)
		require.NoError(t, err)
	}

	require.Equal(t, 1, summarizer.calls)
	require.Len(t, conv.Turns, 3)

	summary, ok := conv.Summary()
	require.True(t, ok)
	assert.Equal(t, core.RoleSystem, summary.Role)
	assert.Equal(t, SummaryPrefix+"User wants headphones under 200.", summary.Content)
	assert.Equal(t, exchange(3), conv.Dialogue())

	// The summarizer saw the first four turns after its instruction.
	require.Len(t, summarizer.received[0], 5)
	assert.Equal(t, "question 1", summarizer.received[0][1].Content)
	assert.Equal(t, "answer 2", summarizer.received[0][4].Content)
	assert.Len(t, archive.turns, 4)

	msgs := m.BuildPrompt(conv, "sys", "q4", nil)
	require.Len(t, msgs, 5)
	assert.Equal(t, summary.Content, msgs[1].Content)
	assert.Equal(t, "question 3", msgs[2].Content)
}

func TestManager_MaybeSummarizeIdempotent(t *testing.T) {
	summarizer := &fakeSummarizer{reply: "summary"}
	m := newManager(summarizer, nil)
	conv := New("c", time.Now())
	for i := 1; i <= 3; i++ {
		m.Append(conv, exchange(i)...)
	}

	done, err := m.MaybeSummarize(context.Background(), conv)
	require.NoError(t, err)
	require.True(t, done)
	after := conv.Clone()

	done, err = m.MaybeSummarize(context.Background(), conv)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, after.Turns, conv.Turns)
	assert.Equal(t, 1, summarizer.calls)
}

func TestManager_MaybeSummarizeFoldsPreviousSummary(t *testing.T) {
	summarizer := &fakeSummarizer{reply: "second"}
	m := newManager(summarizer, nil)
	conv := New("c", time.Now())
	conv.Turns = []core.Turn{{Role: core.RoleSystem, Content: SummaryPrefix + "first", Summary: true}}
	for i := 1; i <= 3; i++ {
		m.Append(conv, exchange(i)...)
	}

	_, err := m.MaybeSummarize(context.Background(), conv)
	require.NoError(t, err)

	assert.Equal(t, SummaryPrefix+"first", summarizer.received[0][1].Content)
	assert.Len(t, conv.Turns, 3)
	assert.Equal(t, SummaryPrefix+"second", conv.Turns[0].Content)
}

func TestManager_MaybeSummarizeFailureKeepsHistory(t *testing.T) {
	tests := []struct {
		name       string
		summarizer *fakeSummarizer
	}{
		{name: "remote error", summarizer: &fakeSummarizer{err: core.ErrRemoteCall}},
		{name: "empty summary", summarizer: &fakeSummarizer{reply: "  "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newManager(tt.summarizer, nil)
			conv := New("c", time.Now())
			for i := 1; i <= 3; i++ {
				m.Append(conv, exchange(i)...)
			}
			before := conv.Clone()

			done, err := m.MaybeSummarize(context.Background(), conv)
			assert.Error(t, err)
			assert.False(t, done)
			assert.Equal(t, before.Turns, conv.Turns)
		})
	}
}

func TestManager_AddToolSynthesisInstruction(t *testing.T) {
	m := newManager(&fakeSummarizer{}, nil)
	base := []core.Message{{Role: core.RoleUser, Content: "x"}}

	matched := m.AddToolSynthesisInstruction(base, []core.ToolRecord{{Result: matchResult(false)}, {Result: matchResult(true)}})
	require.Len(t, matched, 2)
	assert.Equal(t, core.RoleSystem, matched[1].Role)
	assert.NotContains(t, matched[1].Content, "None of the lookups")

	unmatched := m.AddToolSynthesisInstruction(base, []core.ToolRecord{{Result: matchResult(false)}, {Result: errors.New("x")}})
	assert.Contains(t, unmatched[1].Content, "None of the lookups")
}

func TestManager_SingleTurnCompaction(t *testing.T) {
	summarizer := &fakeSummarizer{reply: "s"}
	m := newManager(summarizer, nil)
	conv := New("c", time.Now())

	tests := []struct {
		turn string
		want []string
	}{
		{turn: "turn1", want: []string{"turn1"}},
		{turn: "turn2", want: []string{"turn1", "turn2"}},
		{turn: "turn3", want: []string{"turn1", "turn2", "turn3"}},
		{turn: "turn4", want: []string{"turn1", "turn2", "turn3", "turn4"}},
		{turn: "turn5", want: []string{SummaryPrefix + "s", "turn4", "turn5"}},
		{turn: "turn6", want: []string{SummaryPrefix + "s", "turn4", "turn5", "turn6"}},
	}

	// Steps share one conversation, so they run in order without t.Run isolation.
	for _, tt := range tests {
		m.Append(conv, core.Turn{Role: core.RoleUser, Content: tt.turn})
		_, err := m.MaybeSummarize(context.Background(), conv)
		require.NoError(t, err, tt.turn)

		got := make([]string, 0, len(conv.Turns))
		for _, turn := range conv.Turns {
			got = append(got, turn.Content)
		}
		assert.Equal(t, tt.want, got, "after %s", tt.turn)
	}
	assert.Equal(t, 1, summarizer.calls)
}
