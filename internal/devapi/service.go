package devapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/newstaq/portal/internal/core/domain"
)

// Account is a user of the dev API, with its credentials.
type Account struct {
	Profile      domain.UserProfile
	Email        string
	PasswordHash string
	Active       bool
}

// AuthService implements login and password reset over an in-memory
// account table.
type AuthService struct {
	jwtSecret string
	tokenTTL  time.Duration
	now       func() time.Time

	mu       sync.RWMutex
	accounts map[string]*Account // by username
	resets   map[string]resetTicket
}

type resetTicket struct {
	username  string
	expiresAt time.Time
}

const resetTTL = time.Hour

func NewAuthService(jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 7 * 24 * time.Hour
	}
	return &AuthService{
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		now:       time.Now,
		accounts:  make(map[string]*Account),
		resets:    make(map[string]resetTicket),
	}
}

// Register adds an account. The profile must satisfy the role/client
// invariant.
func (s *AuthService) Register(_ context.Context, profile domain.UserProfile, email, password string) error {
	if password == "" {
		return domain.ErrInvalidCredentials
	}
	if err := profile.Validate(); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[profile.Username]; exists {
		return ErrUserExists
	}
	s.accounts[profile.Username] = &Account{
		Profile:      profile,
		Email:        email,
		PasswordHash: string(hash),
		Active:       true,
	}
	return nil
}

// Login checks the password and returns a signed token with the profile.
func (s *AuthService) Login(_ context.Context, username, password string) (string, domain.UserProfile, error) {
	if username == "" || password == "" {
		return "", domain.UserProfile{}, domain.ErrInvalidCredentials
	}

	s.mu.RLock()
	acc, ok := s.accounts[username]
	s.mu.RUnlock()
	if !ok || !acc.Active {
		return "", domain.UserProfile{}, domain.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)) != nil {
		return "", domain.UserProfile{}, domain.ErrInvalidCredentials
	}

	token, err := s.generateToken(acc.Profile)
	if err != nil {
		return "", domain.UserProfile{}, err
	}
	return token, acc.Profile, nil
}

// Profile returns the current profile of username.
func (s *AuthService) Profile(_ context.Context, username string) (domain.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[username]
	if !ok || !acc.Active {
		return domain.UserProfile{}, domain.ErrUserNotFound
	}
	return acc.Profile, nil
}

// Deactivate disables an account; its tokens stop being accepted.
func (s *AuthService) Deactivate(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc, ok := s.accounts[username]; ok {
		acc.Active = false
	}
}

// RequestReset creates a reset ticket for the account with that email.
// It returns an empty ticket when nobody matches.
func (s *AuthService) RequestReset(_ context.Context, email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if acc.Email != "" && acc.Email == email {
			ticket := randomTicket()
			s.resets[ticket] = resetTicket{username: acc.Profile.Username, expiresAt: s.now().Add(resetTTL)}
			return ticket
		}
	}
	return ""
}

// VerifyReset reports whether ticket can still be used.
func (s *AuthService) VerifyReset(_ context.Context, ticket string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rt, ok := s.resets[ticket]
	if !ok || !s.now().Before(rt.expiresAt) {
		return ErrInvalidResetToken
	}
	return nil
}

// ResetPassword consumes ticket and sets a new password.
func (s *AuthService) ResetPassword(_ context.Context, ticket, password string) error {
	if password == "" {
		return domain.ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.resets[ticket]
	if !ok || !s.now().Before(rt.expiresAt) {
		return ErrInvalidResetToken
	}
	delete(s.resets, ticket)
	if acc, ok := s.accounts[rt.username]; ok {
		acc.PasswordHash = string(hash)
	}
	return nil
}

func (s *AuthService) generateToken(u domain.UserProfile) (string, error) {
	claims := jwt.MapClaims{
		"id":        u.ID,
		"username":  u.Username,
		"role":      string(u.Role),
		"client_id": u.ClientID,
		"exp":       s.now().Add(s.tokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}

func randomTicket() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
