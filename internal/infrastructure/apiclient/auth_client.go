// Package apiclient talks to the WMS REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/newstaq/portal/internal/core/domain"
)

const maxErrorBody = 64 << 10

// AuthClient performs the unauthenticated exchanges of the API: login and
// password recovery. Its HTTP client must not carry the authorization
// interceptor, a rejected login is not an expired session.
type AuthClient struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// NewAuthClient builds a client for baseURL (e.g. http://localhost:8001/api).
// timeout bounds each call; zero leaves it to httpClient.
func NewAuthClient(baseURL string, httpClient *http.Client, timeout time.Duration) *AuthClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &AuthClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		timeout: timeout,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string             `json:"token"`
	User  domain.UserProfile `json:"user"`
}

// Login sends the credential to POST /auth/login. It never retries.
func (c *AuthClient) Login(ctx context.Context, cred domain.Credential) (domain.Session, error) {
	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", loginRequest(cred), &resp, domain.MsgInvalidCredentials); err != nil {
		return domain.Session{}, err
	}

	sess := domain.Session{Token: resp.Token, User: resp.User}
	if err := sess.Validate(); err != nil {
		return domain.Session{}, &domain.AuthError{
			Message: domain.MsgServiceUnavailable,
			Status:  http.StatusOK,
			Err:     fmt.Errorf("login response: %w", err),
		}
	}
	return sess, nil
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// ForgotPassword asks the API to send a reset link and returns its
// confirmation message.
func (c *AuthClient) ForgotPassword(ctx context.Context, email string) (string, error) {
	var resp messageResponse
	if err := c.do(ctx, http.MethodPost, "/auth/forgot-password", forgotPasswordRequest{Email: email}, &resp, msgGenericFailure); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// VerifyResetToken checks that a reset link is still usable.
func (c *AuthClient) VerifyResetToken(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodGet, "/auth/verify-reset-token/"+url.PathEscape(token), nil, nil, msgGenericFailure)
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (c *AuthClient) ResetPassword(ctx context.Context, token, password string) error {
	return c.do(ctx, http.MethodPost, "/auth/reset-password", resetPasswordRequest{Token: token, NewPassword: password}, nil, msgGenericFailure)
}

const msgGenericFailure = "an error occurred, please try again"

// do runs one request. Every failure comes back as *domain.AuthError;
// fallback is the message used when the API gives none.
func (c *AuthClient) do(ctx context.Context, method, path string, in, out any, fallback string) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return &domain.AuthError{Message: fallback, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &domain.AuthError{Message: domain.MsgServiceUnavailable, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return &domain.AuthError{Message: domain.MsgServiceUnavailable, Err: fmt.Errorf("%s %s: %w", method, path, err)}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		msg := BoundaryMessage(raw)
		switch {
		case msg != "":
		case res.StatusCode >= http.StatusInternalServerError:
			msg = domain.MsgServiceUnavailable
		default:
			msg = fallback
		}
		return &domain.AuthError{
			Message: msg,
			Status:  res.StatusCode,
			Err:     fmt.Errorf("%s %s: status %d", method, path, res.StatusCode),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return &domain.AuthError{
			Message: domain.MsgServiceUnavailable,
			Status:  res.StatusCode,
			Err:     fmt.Errorf("decode %s response: %w", path, err),
		}
	}
	return nil
}

type errorPayload struct {
	Detail  json.RawMessage `json:"detail"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

// BoundaryMessage extracts the human readable message of an API error
// payload: "detail" (when it is a string), then "error", then "message".
func BoundaryMessage(body []byte) string {
	var p errorPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return ""
	}
	if len(p.Detail) > 0 {
		var s string
		if err := json.Unmarshal(p.Detail, &s); err == nil && s != "" {
			return s
		}
	}
	if p.Error != "" {
		return p.Error
	}
	return p.Message
}
