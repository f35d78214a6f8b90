// Package session keeps one conversation per browser session in memory.
// Nothing survives a restart.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"webhook-chat/internal/conversation"
)

const defaultTTL = 2 * time.Hour

type Store struct {
	mu       sync.RWMutex
	sessions map[string]*conversation.Conversation
	ttl      time.Duration
	now      func() time.Time
}

// NewStore creates a Store that forgets sessions idle longer than ttl.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{
		sessions: make(map[string]*conversation.Conversation),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the conversation for id.
func (s *Store) Get(id string) (*conversation.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.sessions[id]
	return c, ok
}

// GetOrCreate returns the conversation for id, starting a new session under a
// fresh ID when id is unknown. The returned ID is the one to hand back to the
// client. An existing session is touched before the store lock is released,
// so Evict cannot drop it between lookup and use.
func (s *Store) GetOrCreate(id string) (*conversation.Conversation, string) {
	s.mu.RLock()
	if c, ok := s.sessions[id]; ok {
		c.Touch()
		s.mu.RUnlock()
		return c, id
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.sessions[id]; ok {
		c.Touch()
		return c, id
	}
	id = uuid.NewString()
	c := conversation.New()
	s.sessions[id] = c
	return c, id
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Evict drops idle sessions and returns how many were removed. A session with
// a turn in flight is kept.
func (s *Store) Evict() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, c := range s.sessions {
		if c.LastActive().After(cutoff) || c.Snapshot().IsLoading {
			continue
		}
		delete(s.sessions, id)
		removed++
	}
	return removed
}

// Run evicts idle sessions every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Evict(); n > 0 {
				logger.Info("evicted idle sessions", "count", n, "remaining", s.Len())
			}
		}
	}
}
