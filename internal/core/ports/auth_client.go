package ports

import (
	"context"

	"github.com/newstaq/portal/internal/core/domain"
)

// AuthClient exchanges credentials for a session against the WMS API.
// Every non-nil error it returns is a *domain.AuthError.
type AuthClient interface {
	Login(ctx context.Context, cred domain.Credential) (domain.Session, error)
}

// PasswordRecovery covers the unauthenticated password reset flow.
type PasswordRecovery interface {
	ForgotPassword(ctx context.Context, email string) (string, error)
	VerifyResetToken(ctx context.Context, token string) error
	ResetPassword(ctx context.Context, token, password string) error
}
