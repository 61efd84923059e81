package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/newstaq/portal/internal/core/domain"
	"github.com/newstaq/portal/internal/core/ports"
)

// SessionBackend keeps profile sessions in Redis.
// Key format: wms:profile:<profile_id>:token and wms:profile:<profile_id>:user
type SessionBackend struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionBackend wraps client. A zero ttl keeps sessions until cleared.
func NewSessionBackend(client *redis.Client, ttl time.Duration) *SessionBackend {
	return &SessionBackend{client: client, ttl: ttl}
}

// ForProfile returns the store of one browser profile.
func (b *SessionBackend) ForProfile(profileID string) ports.SessionStore {
	prefix := "wms:profile:" + profileID
	return &SessionStore{
		client:   b.client,
		ttl:      b.ttl,
		tokenKey: prefix + ":token",
		userKey:  prefix + ":user",
	}
}

func (b *SessionBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// SessionStore implements ports.SessionStore for a single profile.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	tokenKey string
	userKey  string
}

// Write sets both keys inside one MULTI/EXEC.
func (s *SessionStore) Write(ctx context.Context, sess domain.Session) error {
	raw, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.tokenKey, sess.Token, s.ttl)
		p.Set(ctx, s.userKey, raw, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Read fetches both keys with one MGET. Errors and corrupted values read
// as "no session".
func (s *SessionStore) Read(ctx context.Context) (domain.Session, bool) {
	vals, err := s.client.MGet(ctx, s.tokenKey, s.userKey).Result()
	if err != nil || len(vals) != 2 {
		return domain.Session{}, false
	}
	token, _ := vals[0].(string)
	user, _ := vals[1].(string)
	return domain.DecodeSession(token, []byte(user))
}

func (s *SessionStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.tokenKey, s.userKey).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
