package ports

import (
	"context"

	"github.com/newstaq/portal/internal/core/domain"
)

// SessionStore persists the session of one browser profile.
//
// Write stores token and user atomically; readers never observe one
// without the other. Read reports false when nothing usable is stored,
// including corrupted values. Clear is idempotent.
type SessionStore interface {
	Write(ctx context.Context, s domain.Session) error
	Read(ctx context.Context) (domain.Session, bool)
	Clear(ctx context.Context) error
}

// SessionBackend hands out stores scoped to a profile id.
type SessionBackend interface {
	ForProfile(profileID string) SessionStore
	Ping(ctx context.Context) error
}
