package memory

import (
	"context"
	"testing"

	"github.com/newstaq/portal/internal/core/domain"
)

func TestSessionStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewSessionBackend().ForProfile("p1")

	sessions := []domain.Session{
		{Token: "tok-a", User: domain.UserProfile{ID: "1", Username: "admin", Name: "Administrateur", Role: domain.RoleAdmin}},
		{Token: "tok-c", User: domain.UserProfile{ID: "2", Username: "techstore", Role: domain.RoleClient, ClientID: "C1", ClientName: "TechStore"}},
	}
	for _, sess := range sessions {
		if err := store.Write(ctx, sess); err != nil {
			t.Fatalf("write: %v", err)
		}
		got, ok := store.Read(ctx)
		if !ok || got != sess {
			t.Fatalf("expected %+v, got %+v (ok=%v)", sess, got, ok)
		}
	}
}

func TestSessionStore_EmptyAndClear(t *testing.T) {
	ctx := context.Background()
	backend := NewSessionBackend()
	store := backend.ForProfile("p1")

	if _, ok := store.Read(ctx); ok {
		t.Fatalf("expected no session")
	}
	if err := store.Write(ctx, domain.Session{Token: "t", User: domain.UserProfile{Username: "a", Role: domain.RoleAdmin}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, ok := backend.ForProfile("p2").Read(ctx); ok {
		t.Fatalf("profiles must not share sessions")
	}
	for i := 0; i < 2; i++ {
		if err := store.Clear(ctx); err != nil {
			t.Fatalf("clear #%d: %v", i, err)
		}
	}
	if _, ok := store.Read(ctx); ok {
		t.Fatalf("expected no session after clear")
	}
}

func TestSessionStore_CorruptedValueReadsAsEmpty(t *testing.T) {
	backend := NewSessionBackend()
	backend.profiles["p1"] = record{token: "t", user: []byte("{oops")}
	backend.profiles["p2"] = record{token: "", user: []byte(`{"username":"a","role":"admin"}`)}

	for _, id := range []string{"p1", "p2"} {
		if _, ok := backend.ForProfile(id).Read(context.Background()); ok {
			t.Fatalf("%s: expected corrupted session to read as none", id)
		}
	}
}
