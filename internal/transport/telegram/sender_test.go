package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"
)

type recordingMessenger struct {
	sent []string
	err  error
}

func (m *recordingMessenger) Send(_ tele.Recipient, what interface{}, _ ...interface{}) (*tele.Message, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.sent = append(m.sent, what.(string))
	return &tele.Message{}, nil
}

func TestSender_SendMarkdown(t *testing.T) {
	m := &recordingMessenger{}
	s := newSender(m)
	to := &tele.User{ID: 1}

	require.NoError(t, s.sendMarkdown(context.Background(), to, "**Sonic Headphones** for ¥199"))
	require.Len(t, m.sent, 1)
	assert.Equal(t, "<strong>Sonic Headphones</strong> for ¥199", m.sent[0])

	m.sent = nil
	require.NoError(t, s.sendMarkdown(context.Background(), to, "   "))
	assert.Empty(t, m.sent)

	m.sent = nil
	long := strings.Repeat("paragraph text\n\n", 600)
	require.NoError(t, s.sendMarkdown(context.Background(), to, long))
	assert.Greater(t, len(m.sent), 1)
	for _, chunk := range m.sent {
		assert.LessOrEqual(t, len(chunk), maxTelegramMsgLen)
	}
}

func TestSender_PropagatesErrors(t *testing.T) {
	s := newSender(&recordingMessenger{err: errors.New("flood wait")})
	err := s.sendMarkdown(context.Background(), &tele.User{ID: 1}, "hi")
	assert.ErrorContains(t, err, "flood wait")
}
