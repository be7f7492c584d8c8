package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sandevgo/shopbot/internal/core"
	"github.com/sandevgo/shopbot/pkg/log"
	"github.com/sandevgo/shopbot/pkg/srv"
)

const DefaultTTL = 30 * time.Minute

type entry struct {
	mu   sync.Mutex
	conv *Conversation

	// guarded by Store.mu
	refs    int
	touched time.Time
	deleted bool
}

// Store keeps conversations in memory. Access to one id is serialized; ids
// never block each other. Idle conversations expire after the TTL.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration
	now     func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Do runs fn with exclusive access to the conversation, creating it when the
// id is unknown. An empty id gets a fresh UUID. A conversation that is still
// empty when fn fails is dropped again. fn must not retain conv.
func (s *Store) Do(ctx context.Context, id string, fn func(conv *Conversation) error) error {
	if id == "" {
		id = uuid.NewString()
	}

	for {
		e := s.acquire(id, true)
		e.mu.Lock()

		if s.isDeleted(e) {
			// Reset raced with us; start over on a fresh entry.
			e.mu.Unlock()
			s.release(e)
			continue
		}

		err := fn(e.conv)
		if err != nil && e.conv.IsEmpty() {
			s.drop(id, e)
		} else {
			e.conv.UpdatedAt = s.now()
		}
		e.mu.Unlock()
		s.release(e)
		return err
	}
}

// Get returns a copy of the conversation.
func (s *Store) Get(id string) (Conversation, error) {
	e := s.acquire(id, false)
	if e == nil {
		return Conversation{}, core.ErrConversationNotFound
	}
	defer s.release(e)

	e.mu.Lock()
	defer e.mu.Unlock()
	if s.isDeleted(e) {
		return Conversation{}, core.ErrConversationNotFound
	}
	return e.conv.Clone(), nil
}

// Delete drops the conversation once any in-flight turn on it has finished.
func (s *Store) Delete(id string) bool {
	e := s.acquire(id, false)
	if e == nil {
		return false
	}
	defer s.release(e)

	e.mu.Lock()
	defer e.mu.Unlock()
	return s.drop(id, e)
}

// drop unlinks e from the store. The caller holds e.mu.
func (s *Store) drop(id string, e *entry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.deleted {
		return false
	}
	e.deleted = true
	if s.entries[id] == e {
		delete(s.entries, id)
	}
	return true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Evict removes conversations idle for longer than the TTL and returns how many went.
func (s *Store) Evict() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	evicted := 0
	for id, e := range s.entries {
		if e.refs == 0 && e.touched.Before(cutoff) {
			e.deleted = true
			delete(s.entries, id)
			evicted++
		}
	}
	return evicted
}

// Janitor returns a background service that evicts expired conversations.
func (s *Store) Janitor(interval time.Duration) srv.Service {
	return srv.NewTicker("conversation-janitor", interval, func(ctx context.Context) error {
		if n := s.Evict(); n > 0 {
			log.FromCtx(ctx).Info().Int("evicted", n).Int("active", s.Len()).Msg("expired conversations evicted")
		}
		return nil
	})
}

func (s *Store) acquire(id string, create bool) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		if !create {
			return nil
		}
		now := s.now()
		e = &entry{conv: New(id, now), touched: now}
		s.entries[id] = e
	}
	e.refs++
	return e
}

func (s *Store) release(e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.refs--
	e.touched = s.now()
}

func (s *Store) isDeleted(e *entry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return e.deleted
}
