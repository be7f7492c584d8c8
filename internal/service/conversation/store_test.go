package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/shopbot/internal/core"
)

func TestStore_DoCreatesAndGets(t *testing.T) {
	s := NewStore(time.Minute)

	_, err := s.Get("missing")
	assert.ErrorIs(t, err, core.ErrConversationNotFound)

	require.NoError(t, s.Do(context.Background(), "c1", func(conv *Conversation) error {
		conv.Turns = append(conv.Turns, core.Turn{Role: core.RoleUser, Content: "hi"})
		return nil
	}))

	got, err := s.Get("c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", got.ID)
	require.Len(t, got.Turns, 1)

	// Returned copy is detached from the store.
	got.Turns[0].Content = "changed"
	again, _ := s.Get("c1")
	assert.Equal(t, "hi", again.Turns[0].Content)
}

func TestStore_DoGeneratesID(t *testing.T) {
	s := NewStore(time.Minute)

	var id string
	require.NoError(t, s.Do(context.Background(), "", func(conv *Conversation) error {
		id = conv.ID
		return nil
	}))

	assert.Len(t, id, 36)
	_, err := s.Get(id)
	assert.NoError(t, err)
}

func TestStore_DoFailureDropsOnlyEmptyConversations(t *testing.T) {
	s := NewStore(time.Minute)
	boom := errors.New("boom")

	err := s.Do(context.Background(), "fresh", func(conv *Conversation) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	_, err = s.Get("fresh")
	assert.ErrorIs(t, err, core.ErrConversationNotFound)
	assert.Zero(t, s.Len())

	require.NoError(t, s.Do(context.Background(), "kept", func(conv *Conversation) error {
		conv.Turns = append(conv.Turns, core.Turn{Role: core.RoleUser, Content: "hi"})
		return nil
	}))
	err = s.Do(context.Background(), "kept", func(conv *Conversation) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Get("kept")
	require.NoError(t, err)
	assert.Len(t, got.Turns, 1)
}

func TestStore_SerializesSameID(t *testing.T) {
	s := NewStore(time.Minute)
	const workers = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Do(context.Background(), "shared", func(conv *Conversation) error {
				// Read-modify-write with a yield in between; lost updates would show.
				n := len(conv.Turns)
				time.Sleep(time.Millisecond)
				conv.Turns = append(conv.Turns[:n], core.Turn{Role: core.RoleUser})
				return nil
			})
		}()
	}
	wg.Wait()

	got, err := s.Get("shared")
	require.NoError(t, err)
	assert.Len(t, got.Turns, workers)
}

func TestStore_DifferentIDsDoNotBlock(t *testing.T) {
	s := NewStore(time.Minute)
	release := make(chan struct{})
	started := make(chan struct{})

	go func() {
		_ = s.Do(context.Background(), "a", func(conv *Conversation) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	done := make(chan struct{})
	go func() {
		_ = s.Do(context.Background(), "b", func(conv *Conversation) error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("conversation b blocked behind a")
	}
	close(release)
}

func TestStore_Delete(t *testing.T) {
	s := NewStore(time.Minute)
	require.NoError(t, s.Do(context.Background(), "c", func(conv *Conversation) error {
		conv.Turns = append(conv.Turns, core.Turn{Content: "x"})
		return nil
	}))

	assert.True(t, s.Delete("c"))
	assert.False(t, s.Delete("c"))

	_, err := s.Get("c")
	assert.ErrorIs(t, err, core.ErrConversationNotFound)

	// A reset id starts fresh.
	require.NoError(t, s.Do(context.Background(), "c", func(conv *Conversation) error {
		assert.Empty(t, conv.Turns)
		return nil
	}))
}

func TestStore_Evict(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(30 * time.Minute)
	s.now = func() time.Time { return now }

	for _, id := range []string{"old", "fresh"} {
		require.NoError(t, s.Do(context.Background(), id, func(*Conversation) error { return nil }))
		now = now.Add(20 * time.Minute)
	}

	// old idle 40m, fresh idle 20m
	assert.Equal(t, 1, s.Evict())
	_, err := s.Get("old")
	assert.ErrorIs(t, err, core.ErrConversationNotFound)
	_, err = s.Get("fresh")
	assert.NoError(t, err)
}

func TestStore_EvictSkipsBusy(t *testing.T) {
	now := time.Now()
	s := NewStore(time.Minute)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Do(context.Background(), "busy", func(*Conversation) error {
		now = now.Add(time.Hour)
		assert.Equal(t, 0, s.Evict())
		return nil
	}))
	assert.Equal(t, 1, s.Len())
}
