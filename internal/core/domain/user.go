package domain

import "errors"

// Role is the closed set of roles a portal user can hold.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleClient
}

var (
	ErrInvalidProfile     = errors.New("invalid user profile")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)

// UserProfile is the snapshot of the user taken at login time. It is not
// refreshed until the next login.
type UserProfile struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Name       string `json:"name"`
	Role       Role   `json:"role"`
	ClientID   string `json:"client_id,omitempty"`
	ClientName string `json:"client_name,omitempty"`
}

// Validate enforces role == client <=> client_id present.
func (u UserProfile) Validate() error {
	if u.Username == "" || !u.Role.Valid() {
		return ErrInvalidProfile
	}
	switch u.Role {
	case RoleClient:
		if u.ClientID == "" {
			return ErrInvalidProfile
		}
	case RoleAdmin:
		if u.ClientID != "" {
			return ErrInvalidProfile
		}
	}
	return nil
}

// Home is the default landing path for the profile's role.
func (u UserProfile) Home() string {
	return RoleHome(u.Role)
}

// Credential is the transient username/password pair of a login attempt.
// It is never persisted.
type Credential struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}
