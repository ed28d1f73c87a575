package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"sysdesign-quiz-service/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Quiz sessions hold a live state machine, so the entries stay in a local map;
// Redis carries a liveness marker per session (quiz:session:{id} -> user id) that
// expires with the ttl so other instances and operators can see active attempts.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.SessionEntry
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.SessionEntry),
	}
}

func (s *SessionStore) Put(entry *app.SessionEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[entry.ID] = entry
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(entry.ID), entry.UserID, s.ttl).Err()
}

func (s *SessionStore) Get(sessionID string) (*app.SessionEntry, bool) {
	s.mu.RLock()
	entry, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok && s.ttl > 0 {
		_ = s.client.Expire(context.Background(), s.key(sessionID), s.ttl).Err()
	}
	return entry, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return
	}
	delete(s.sessions, sessionID)
	_ = s.client.Del(context.Background(), s.key(sessionID)).Err()
}

func (s *SessionStore) key(sessionID string) string {
	return "quiz:session:" + sessionID
}
