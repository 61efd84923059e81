package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/newstaq/portal/internal/core/domain"
	"github.com/newstaq/portal/internal/core/ports"
)

const collectionSessions = "portal_sessions"

// SessionBackend keeps one document per browser profile. Token and user
// live in the same document, so a single upsert writes both atomically.
type SessionBackend struct {
	db  *mongo.Database
	col *mongo.Collection
}

func NewSessionBackend(db *mongo.Database) *SessionBackend {
	return &SessionBackend{db: db, col: db.Collection(collectionSessions)}
}

func (b *SessionBackend) ForProfile(profileID string) ports.SessionStore {
	return &SessionStore{col: b.col, profileID: profileID}
}

func (b *SessionBackend) Ping(ctx context.Context) error {
	return b.db.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
}

// EnsureIndexes adds the expiry index when ttl is set.
func (b *SessionBackend) EnsureIndexes(ctx context.Context, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := b.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "updated_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(ttl.Seconds())),
	})
	return err
}

type sessionDoc struct {
	ProfileID string    `bson:"_id"`
	Token     string    `bson:"token"`
	User      string    `bson:"user"` // JSON encoded domain.UserProfile
	UpdatedAt time.Time `bson:"updated_at"`
}

// SessionStore implements ports.SessionStore for a single profile.
type SessionStore struct {
	col       *mongo.Collection
	profileID string
}

func (s *SessionStore) Write(ctx context.Context, sess domain.Session) error {
	raw, err := jsonUser(sess.User)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := sessionDoc{ProfileID: s.profileID, Token: sess.Token, User: raw, UpdatedAt: time.Now().UTC()}
	_, err = s.col.ReplaceOne(ctx, bson.M{"_id": s.profileID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

func (s *SessionStore) Read(ctx context.Context) (domain.Session, bool) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc sessionDoc
	if err := s.col.FindOne(ctx, bson.M{"_id": s.profileID}).Decode(&doc); err != nil {
		return domain.Session{}, false
	}
	return domain.DecodeSession(doc.Token, []byte(doc.User))
}

func (s *SessionStore) Clear(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := s.col.DeleteOne(ctx, bson.M{"_id": s.profileID})
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func jsonUser(u domain.UserProfile) (string, error) {
	raw, err := json.Marshal(u)
	if err != nil {
		return "", fmt.Errorf("encode user: %w", err)
	}
	return string(raw), nil
}
