package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/newstaq/portal/internal/api/metrics"
	"github.com/newstaq/portal/internal/core/service"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// AuthEvent is an auth context transition tagged with its browser profile.
type AuthEvent struct {
	ProfileID string
	Event     service.Event
}

// Handler processes one auth event.
type Handler func(ctx context.Context, ev AuthEvent)

// Dispatcher moves auth events off the request path to a fixed set of
// workers using consistent hashing on the profile id, so the events of one
// profile are handled in order.
type Dispatcher struct {
	workers []chan AuthEvent
	handle  Handler
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, handle Handler, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan AuthEvent, numWorkers),
		handle:  handle,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan AuthEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue hands ev to the worker responsible for its profile. It never
// blocks: when that worker is saturated the event is dropped and counted.
func (d *Dispatcher) Enqueue(ev AuthEvent) bool {
	idx := d.shardIndex(ev.ProfileID)
	select {
	case d.workers[idx] <- ev:
		metrics.AuthEventsQueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
		return true
	default:
		metrics.AuthEventsDroppedTotal.Inc()
		d.log.Warn().Str("profile", ev.ProfileID).Str("reason", string(ev.Event.Reason)).Msg("auth event dropped")
		return false
	}
}

// Attach forwards every event of ac to the dispatcher. It has the shape of
// a service.Registry hook.
func (d *Dispatcher) Attach(profileID string, ac *service.AuthContext) {
	ac.Subscribe(func(ev service.Event) {
		d.Enqueue(AuthEvent{ProfileID: profileID, Event: ev})
	})
}

// shardIndex maps a profile id deterministically to a worker index.
func (d *Dispatcher) shardIndex(profileID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(profileID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan AuthEvent) {
	defer d.wg.Done()
	depth := metrics.AuthEventsQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-ch:
			depth.Dec()
			d.handle(ctx, ev)
		}
	}
}

// AuditHandler logs every transition and feeds the sign-out counter.
func AuditHandler(log zerolog.Logger) Handler {
	return func(_ context.Context, ev AuthEvent) {
		st := ev.Event.State
		entry := log.Info().
			Str("profile", ev.ProfileID).
			Str("reason", string(ev.Event.Reason)).
			Bool("authenticated", st.IsAuthenticated)
		if st.User != nil {
			entry = entry.Str("username", st.User.Username).Str("role", string(st.User.Role))
		}
		entry.Msg("auth transition")

		switch ev.Event.Reason {
		case service.ReasonLogout, service.ReasonForced, service.ReasonExpired:
			metrics.SignOutsTotal.WithLabelValues(string(ev.Event.Reason)).Inc()
		}
	}
}
