package domain

import "encoding/json"

// Session is the durable (token, user) pair of an active login. Token and
// user are always set and cleared together.
type Session struct {
	Token string      `json:"token"`
	User  UserProfile `json:"user"`
}

// Validate reports whether the session is well formed.
func (s Session) Validate() error {
	if s.Token == "" {
		return ErrInvalidProfile
	}
	return s.User.Validate()
}

// AuthError is the normalized failure of a login exchange. Message is
// meant to be shown to the user as is.
type AuthError struct {
	Message string
	Status  int // 0 when the request never got a response
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

const (
	MsgInvalidCredentials = "invalid credentials"
	MsgServiceUnavailable = "unable to reach the server, please try again"
)

// DecodeSession rebuilds a persisted session. Any problem with the stored
// values (missing token, bad JSON, broken profile invariant) yields false.
func DecodeSession(token string, rawUser []byte) (Session, bool) {
	if token == "" || len(rawUser) == 0 {
		return Session{}, false
	}
	var u UserProfile
	if err := json.Unmarshal(rawUser, &u); err != nil {
		return Session{}, false
	}
	s := Session{Token: token, User: u}
	if s.Validate() != nil {
		return Session{}, false
	}
	return s, true
}
