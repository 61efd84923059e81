// Package metrics defines and registers the custom Prometheus metrics of
// the portal shell. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "portal"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// LoginAttemptsTotal counts login form submissions.
// Label:
//   - result: "success", "rejected" or "invalid" (form validation failed)
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// SignOutsTotal counts transitions to the signed-out state.
// Label:
//   - reason: "logout", "forced_sign_out" or "expired"
var SignOutsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sign_outs_total",
		Help:      "Total number of sign-outs, by reason.",
	},
	[]string{"reason"},
)

// AuthEventsDroppedTotal counts auth events the audit dispatcher could not
// queue because the worker was saturated.
var AuthEventsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_events_dropped_total",
		Help:      "Total number of auth events dropped by the audit dispatcher.",
	},
)

// AuthEventsQueueDepth tracks the number of events waiting in each audit worker.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuthEventsQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "auth_events_queue_depth",
		Help:      "Current number of auth events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// ActiveProfiles tracks the number of browser profiles with a live auth context.
var ActiveProfiles = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_profiles",
		Help:      "Number of browser profiles with a live auth context.",
	},
)

// ── Routing metrics ───────────────────────────────────────────────────────────

// GuardDecisionsTotal counts route guard outcomes.
// Labels:
//   - guard: "public", "private", "admin", "client", "root" or "fallback"
//   - outcome: "render", "loading" or "redirect"
var GuardDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_decisions_total",
		Help:      "Total number of route guard decisions, by guard and outcome.",
	},
	[]string{"guard", "outcome"},
)

// ── Proxy metrics ─────────────────────────────────────────────────────────────

// ProxyDiscardedTotal counts upstream responses thrown away because the
// session changed while they were in flight.
var ProxyDiscardedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "proxy_discarded_total",
		Help:      "Total number of API responses discarded because the session changed in flight.",
	},
)

// ProxyRequestDuration measures upstream round trips through the data proxy.
// Label:
//   - status: upstream HTTP status code, or "error" when no response arrived
var ProxyRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "proxy_request_duration_seconds",
		Help:      "Duration of upstream API calls made through the data proxy.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"status"},
)
