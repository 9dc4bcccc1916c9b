package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsIngested counts events accepted past the dedup cache, by source.
	EventsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unread_events_ingested_total",
		Help: "Events accepted into the reconciliation engine.",
	}, []string{"source", "category"})

	// EventsDeduplicated counts events suppressed as duplicates.
	EventsDeduplicated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unread_events_deduplicated_total",
		Help: "Events suppressed by the fingerprint cache.",
	}, []string{"source"})

	// EventsDropped counts events dropped at the classifier boundary.
	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unread_events_dropped_total",
		Help: "Malformed or foreign events dropped before classification.",
	}, []string{"reason"})

	// Reconnects counts push-channel reconnect attempts.
	Reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unread_push_reconnects_total",
		Help: "Push channel reconnect attempts.",
	})

	// SessionState tracks the push session state machine (one-hot).
	SessionState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "unread_push_session_state",
		Help: "Current push session state (1 for the active state).",
	}, []string{"state"})

	// Pulls counts pull attempts by outcome.
	Pulls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unread_pulls_total",
		Help: "Pull client calls by outcome.",
	}, []string{"outcome"})

	// BreakerState exposes the pull circuit breaker state as a gauge
	// (0 closed, 1 open, 2 half-open).
	BreakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "unread_pull_breaker_state",
		Help: "Pull circuit breaker state (0=closed, 1=open, 2=half-open).",
	})

	// Recomputes counts reconciliation passes.
	Recomputes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unread_recomputes_total",
		Help: "Reconciliation merge passes.",
	})
)
