package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/newstaq/portal/internal/core/service"
)

type recorder struct {
	mu     sync.Mutex
	events map[string][]service.Reason
	done   chan struct{}
	want   int
	seen   int
}

func newRecorder(want int) *recorder {
	return &recorder{events: make(map[string][]service.Reason), done: make(chan struct{}), want: want}
}

func (r *recorder) handle(_ context.Context, ev AuthEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[ev.ProfileID] = append(r.events[ev.ProfileID], ev.Event.Reason)
	r.seen++
	if r.seen == r.want {
		close(r.done)
	}
}

func TestDispatcher_PreservesPerProfileOrder(t *testing.T) {
	sequence := []service.Reason{service.ReasonBootstrap, service.ReasonLogin, service.ReasonLogout, service.ReasonLogin, service.ReasonForced}
	profiles := 10

	rec := newRecorder(profiles * len(sequence))
	d := NewDispatcher(3, rec.handle, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	for _, reason := range sequence {
		for p := 0; p < profiles; p++ {
			if !d.Enqueue(AuthEvent{ProfileID: fmt.Sprintf("p%d", p), Event: service.Event{Reason: reason}}) {
				t.Fatalf("unexpected drop")
			}
		}
	}

	select {
	case <-rec.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for events")
	}
	cancel()
	d.Wait()

	for p, got := range rec.events {
		if fmt.Sprint(got) != fmt.Sprint(sequence) {
			t.Fatalf("%s: events out of order: %v", p, got)
		}
	}
}

func TestDispatcher_DropsWhenSaturated(t *testing.T) {
	// workers are never started, so the single channel fills up
	d := NewDispatcher(1, func(context.Context, AuthEvent) {}, zerolog.Nop())
	for i := 0; i < channelBuffer; i++ {
		if !d.Enqueue(AuthEvent{ProfileID: "p"}) {
			t.Fatalf("event %d dropped before the buffer was full", i)
		}
	}
	if d.Enqueue(AuthEvent{ProfileID: "p"}) {
		t.Fatalf("expected the event to be dropped")
	}
}

func TestDispatcher_ShardIndexIsStable(t *testing.T) {
	d := NewDispatcher(0, nil, zerolog.Nop())
	if len(d.workers) != defaultWorkers {
		t.Fatalf("expected %d workers, got %d", defaultWorkers, len(d.workers))
	}
	if d.shardIndex("abc") != d.shardIndex("abc") {
		t.Fatalf("shard index must be deterministic")
	}
}
