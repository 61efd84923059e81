package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type stubSession struct {
	token    string
	gen      uint64
	failures []int
	gens     []uint64
}

func (s *stubSession) Credentials() (string, uint64) { return s.token, s.gen }

func (s *stubSession) AuthorizationFailed(_ context.Context, gen uint64, status int) bool {
	s.failures = append(s.failures, status)
	s.gens = append(s.gens, gen)
	return true
}

func TestAuthorizedTransport_AttachesBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Fatalf("unexpected authorization header %q", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sess := &stubSession{token: "tok", gen: 3}
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/orders", nil)
	resp, err := NewAuthorizedClient(sess, sess, time.Second).Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()

	if req.Header.Get("Authorization") != "" {
		t.Fatalf("the caller's request must not be modified")
	}
	if len(sess.failures) != 0 {
		t.Fatalf("unexpected failure notifications: %v", sess.failures)
	}
}

func TestAuthorizedTransport_ReportsAuthFailures(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		sess := &stubSession{token: "tok", gen: 7}
		req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
		resp, err := NewAuthorizedClient(sess, sess, time.Second).Do(req)
		if err != nil {
			t.Fatalf("do: %v", err)
		}
		resp.Body.Close()
		srv.Close()

		if len(sess.failures) != 1 || sess.failures[0] != status || sess.gens[0] != 7 {
			t.Fatalf("status %d: unexpected notifications %v %v", status, sess.failures, sess.gens)
		}
	}
}

func TestAuthorizedTransport_AnonymousFailuresAreNotReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Fatalf("no header expected without a session")
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	sess := &stubSession{}
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := NewAuthorizedClient(sess, sess, time.Second).Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()
	if len(sess.failures) != 0 {
		t.Fatalf("unexpected notifications %v", sess.failures)
	}
}

func TestBoundaryMessage(t *testing.T) {
	cases := map[string]string{
		`{"detail":"Token expiré"}`:  "Token expiré",
		`{"detail":[{"msg":"x"}]}`:   "",
		`{"error":"forbidden"}`:      "forbidden",
		`{"message":"done"}`:         "done",
		`{"detail":"a","error":"b"}`: "a",
		`plain text`:                 "",
	}
	for body, want := range cases {
		if got := BoundaryMessage([]byte(body)); got != want {
			t.Fatalf("%s: expected %q, got %q", body, want, got)
		}
	}
}
