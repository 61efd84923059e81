package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/newstaq/portal/internal/core/domain"
	"github.com/newstaq/portal/internal/core/ports"
)

type stubBackend struct {
	mu     sync.Mutex
	stores map[string]*stubStore
}

func (b *stubBackend) ForProfile(id string) ports.SessionStore {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stores == nil {
		b.stores = make(map[string]*stubStore)
	}
	s, ok := b.stores[id]
	if !ok {
		s = &stubStore{}
		b.stores[id] = s
	}
	return s
}

func (b *stubBackend) Ping(context.Context) error { return nil }

func TestRegistry_OneContextPerProfile(t *testing.T) {
	backend := &stubBackend{}
	backend.ForProfile("p1").(*stubStore).sess = &domain.Session{Token: "t", User: clientProfile}

	reg := NewRegistry(backend, fakeAPI(), zerolog.Nop())

	events := make(chan Event, 4)
	reg.OnCreate(func(id string, ac *AuthContext) {
		ac.Subscribe(func(ev Event) { events <- ev })
	})

	a := reg.Get("p1")
	if b := reg.Get("p1"); a != b {
		t.Fatalf("expected the same context for the same profile")
	}
	if c := reg.Get("p2"); c == a {
		t.Fatalf("expected distinct contexts per profile")
	}
	if reg.Len() != 2 {
		t.Fatalf("expected 2 contexts, got %d", reg.Len())
	}

	select {
	case <-a.Ready():
	case <-time.After(2 * time.Second):
		t.Fatalf("bootstrap did not finish")
	}
	if st := a.State(); !st.IsClient || st.Loading {
		t.Fatalf("expected rehydrated client, got %+v", st)
	}

	seen := 0
	timeout := time.After(2 * time.Second)
	for seen < 2 {
		select {
		case ev := <-events:
			if ev.Reason != ReasonBootstrap {
				t.Fatalf("unexpected event %+v", ev)
			}
			seen++
		case <-timeout:
			t.Fatalf("expected bootstrap events for both profiles, got %d", seen)
		}
	}
}

func TestRegistry_IdleProfileIsEvictedThenRehydrates(t *testing.T) {
	backend := &stubBackend{}
	backend.ForProfile("p1").(*stubStore).sess = &domain.Session{Token: "t", User: clientProfile}

	reg := NewRegistry(backend, fakeAPI(), zerolog.Nop(), WithIdleTTL(200*time.Millisecond))
	evicted := make(chan string, 1)
	reg.OnEvict(func(id string, _ *AuthContext) { evicted <- id })

	first := reg.Get("p1")
	<-first.Ready()

	delivered := 0
	first.Subscribe(func(Event) { delivered++ })

	select {
	case id := <-evicted:
		if id != "p1" {
			t.Fatalf("unexpected eviction of %q", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("idle profile was not evicted")
	}
	if reg.Len() != 0 {
		t.Fatalf("expected an empty registry, got %d", reg.Len())
	}
	first.Logout(context.Background())
	if delivered != 0 {
		t.Fatalf("an evicted context must not deliver events")
	}

	backend.ForProfile("p1").(*stubStore).sess = &domain.Session{Token: "t", User: clientProfile}
	second := reg.Get("p1")
	if second == first {
		t.Fatalf("expected a fresh context after eviction")
	}
	<-second.Ready()
	if st := second.State(); !st.IsClient {
		t.Fatalf("expected the session to rehydrate, got %+v", st)
	}
}

func TestRegistry_CapEvictsLeastRecentlyUsed(t *testing.T) {
	reg := NewRegistry(&stubBackend{}, fakeAPI(), zerolog.Nop(), WithMaxProfiles(2))
	evicted := make(chan string, 4)
	reg.OnEvict(func(id string, _ *AuthContext) { evicted <- id })

	reg.Get("p1")
	reg.Get("p2")
	reg.Get("p1")
	reg.Get("p3")

	select {
	case id := <-evicted:
		if id != "p2" {
			t.Fatalf("expected p2 to be evicted, got %q", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("nothing evicted past the cap")
	}
	if reg.Len() != 2 {
		t.Fatalf("expected 2 contexts, got %d", reg.Len())
	}
}
