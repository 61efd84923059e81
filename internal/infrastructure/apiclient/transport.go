package apiclient

import (
	"context"
	"net/http"
	"time"
)

// Credentials supplies the bearer token of the current session together
// with the session generation it belongs to.
type Credentials interface {
	Credentials() (token string, generation uint64)
}

// AuthFailureObserver is told about every 401/403 answered to a request
// sent with a session token.
type AuthFailureObserver interface {
	AuthorizationFailed(ctx context.Context, generation uint64, status int) bool
}

// AuthorizedTransport attaches "Authorization: Bearer <token>" and reports
// authorization failures to the observer. It is the only link between the
// data requests and the session: pages never sign the user out themselves.
type AuthorizedTransport struct {
	Base     http.RoundTripper
	Creds    Credentials
	Observer AuthFailureObserver
}

func (t *AuthorizedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, gen := t.Creds.Credentials()

	r := req.Clone(req.Context())
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.base().RoundTrip(r)
	if err != nil {
		return nil, err
	}
	if token != "" && IsAuthFailure(resp.StatusCode) && t.Observer != nil {
		// the caller may give up on req as soon as it sees the status
		t.Observer.AuthorizationFailed(context.WithoutCancel(req.Context()), gen, resp.StatusCode)
	}
	return resp, nil
}

func (t *AuthorizedTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// IsAuthFailure reports whether status means the session is no longer
// accepted.
func IsAuthFailure(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

// NewAuthorizedClient returns an http.Client for data requests on behalf of
// the session behind creds.
func NewAuthorizedClient(creds Credentials, observer AuthFailureObserver, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &AuthorizedTransport{
			Creds:    creds,
			Observer: observer,
		},
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
