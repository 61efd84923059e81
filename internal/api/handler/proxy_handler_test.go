package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/newstaq/portal/internal/core/domain"
)

func newProxyFixture(t *testing.T, upstream http.HandlerFunc) *fixture {
	t.Helper()
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	f := newFixture(t, demoAuthClient())
	f.e.Any("/api/*", NewProxyHandler(srv.URL+"/api/", time.Second, zerolog.Nop()).Forward)
	return f
}

func decodeSignedOut(t *testing.T, rec *httptest.ResponseRecorder) signedOutResponse {
	t.Helper()
	var body signedOutResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestProxy_ForwardsWithBearer(t *testing.T) {
	f := newProxyFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/dashboard/stats" || r.URL.RawQuery != "client_id=c1" {
			t.Errorf("unexpected upstream request %s", r.URL)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-admin" {
			t.Errorf("unexpected authorization %q", got)
		}
		if r.Header.Get("Cookie") != "" {
			t.Errorf("browser cookies must not be forwarded")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Internal", "secret")
		_, _ = w.Write([]byte(`{"orders":{"total_orders":10}}`))
	})
	f.login("admin", "admin123")

	rec := f.do(http.MethodGet, "/api/dashboard/stats?client_id=c1", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != `{"orders":{"total_orders":10}}` {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != "application/json" || rec.Header().Get("X-Internal") != "" {
		t.Fatalf("unexpected headers %v", rec.Header())
	}
}

func TestProxy_PassesThroughOtherErrors(t *testing.T) {
	f := newProxyFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Commande non trouvée"}`))
	})
	f.login("admin", "admin123")

	rec := f.do(http.MethodGet, "/api/orders/42/details", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !f.ac.State().IsAuthenticated {
		t.Fatalf("a 404 must not sign the user out")
	}
}

func TestProxy_AuthFailureForcesSignOut(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		f := newProxyFixture(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"detail":"Token expiré"}`))
		})
		f.login("techstore", "client123")

		rec := f.do(http.MethodGet, "/api/clients", "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status %d: expected 401, got %d", status, rec.Code)
		}
		body := decodeSignedOut(t, rec)
		if body.Error != "Token expiré" || body.Redirect != domain.PathLogin {
			t.Fatalf("status %d: unexpected body %+v", status, body)
		}
		if f.ac.State().IsAuthenticated {
			t.Fatalf("status %d: expected a forced sign-out", status)
		}
	}
}

func TestProxy_DiscardsResponseOfPreviousSession(t *testing.T) {
	arrived := make(chan struct{})
	release := make(chan struct{})
	f := newProxyFixture(t, func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-release
		_, _ = w.Write([]byte(`{"orders":[{"client_id":"c1"}]}`))
	})
	f.login("techstore", "client123")

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- f.do(http.MethodGet, "/api/orders", "", "")
	}()

	<-arrived
	f.ac.Logout(context.Background())
	f.login("admin", "admin123")
	close(release)

	rec := <-done
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected the stale response to be discarded, got %d %s", rec.Code, rec.Body.String())
	}
	if decodeSignedOut(t, rec).Redirect != domain.PathLogin {
		t.Fatalf("expected a redirect hint")
	}
	if st := f.ac.State(); !st.IsAdmin {
		t.Fatalf("the new session must survive, got %+v", st)
	}
}

func TestProxy_StaleAuthFailureKeepsNewSession(t *testing.T) {
	arrived := make(chan struct{})
	release := make(chan struct{})
	f := newProxyFixture(t, func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-release
		w.WriteHeader(http.StatusUnauthorized)
	})
	f.login("techstore", "client123")

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- f.do(http.MethodGet, "/api/orders", "", "")
	}()

	<-arrived
	f.login("admin", "admin123")
	close(release)
	<-done

	if st := f.ac.State(); !st.IsAdmin {
		t.Fatalf("a 401 from the previous session must not sign out the new one, got %+v", st)
	}
}

func TestProxy_UpstreamUnavailable(t *testing.T) {
	f := newFixture(t, demoAuthClient())
	f.e.Any("/api/*", NewProxyHandler("http://127.0.0.1:1/api", time.Second, zerolog.Nop()).Forward)
	f.login("admin", "admin123")

	rec := f.do(http.MethodGet, "/api/orders", "", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if !f.ac.State().IsAuthenticated {
		t.Fatalf("a network failure must not sign the user out")
	}
}

func TestProxy_AnonymousRequestIsNotSigned(t *testing.T) {
	f := newProxyFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("no token expected")
		}
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Token requis"}`))
	})

	rec := f.do(http.MethodGet, "/api/auth/me", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if body := decodeSignedOut(t, rec); body.Error != "Token requis" || body.Redirect != domain.PathLogin {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestProxy_KeepsEscapedPath(t *testing.T) {
	f := newProxyFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "" || r.URL.EscapedPath() != "/api/orders%3Fclient_id=c2" {
			t.Errorf("escaped characters must stay in the path, got %q ? %q", r.URL.EscapedPath(), r.URL.RawQuery)
		}
		w.WriteHeader(http.StatusNotFound)
	})
	f.login("techstore", "client123")

	if rec := f.do(http.MethodGet, "/api/orders%3Fclient_id=c2", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected the upstream 404, got %d", rec.Code)
	}
}

func TestProxy_RejectsDotSegments(t *testing.T) {
	f := newProxyFixture(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("upstream must not be called for %s", r.URL)
	})
	f.login("admin", "admin123")

	for _, target := range []string{
		"/api/../admin",
		"/api/orders/../../internal",
		"/api/%2e%2e/admin",
		"/api/orders/%2E%2E%2Fsecrets",
		"/api/./orders",
	} {
		if rec := f.do(http.MethodGet, target, "", ""); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rec.Code)
		}
	}
}
