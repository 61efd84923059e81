// Package memory is an in-process session backend for development and
// tests. Sessions are lost when the process exits.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/newstaq/portal/internal/core/domain"
	"github.com/newstaq/portal/internal/core/ports"
)

// record mirrors the two persisted keys. user is kept serialized so reads
// go through the same decoding as the durable backends.
type record struct {
	token string
	user  []byte
}

type SessionBackend struct {
	mu       sync.RWMutex
	profiles map[string]record
}

func NewSessionBackend() *SessionBackend {
	return &SessionBackend{profiles: make(map[string]record)}
}

func (b *SessionBackend) ForProfile(profileID string) ports.SessionStore {
	return &SessionStore{backend: b, profileID: profileID}
}

func (b *SessionBackend) Ping(context.Context) error { return nil }

type SessionStore struct {
	backend   *SessionBackend
	profileID string
}

func (s *SessionStore) Write(_ context.Context, sess domain.Session) error {
	raw, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	s.backend.mu.Lock()
	s.backend.profiles[s.profileID] = record{token: sess.Token, user: raw}
	s.backend.mu.Unlock()
	return nil
}

func (s *SessionStore) Read(_ context.Context) (domain.Session, bool) {
	s.backend.mu.RLock()
	rec, ok := s.backend.profiles[s.profileID]
	s.backend.mu.RUnlock()
	if !ok {
		return domain.Session{}, false
	}
	return domain.DecodeSession(rec.token, rec.user)
}

func (s *SessionStore) Clear(_ context.Context) error {
	s.backend.mu.Lock()
	delete(s.backend.profiles, s.profileID)
	s.backend.mu.Unlock()
	return nil
}
