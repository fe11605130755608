// Discourse Bridge - CMS to Discourse Forum Synchronization
// Copyright 2026 Quill CMS contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quillcms/discourse-bridge

// Package metrics provides Prometheus instrumentation for the bridge:
// transport request outcomes, circuit breaker state, response cache
// efficiency, reconciliation progress, and aggregator activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Transport Metrics
	TransportRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discourse_transport_requests_total",
			Help: "Total number of requests issued to the Discourse API",
		},
		[]string{"method", "outcome"}, // outcome: "success", "failure", "rejected"
	)

	TransportRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "discourse_transport_request_duration_seconds",
			Help:    "Duration of Discourse API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "discourse_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discourse_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Response Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discourse_cache_hits_total",
			Help: "Total number of response cache hits",
		},
		[]string{"key"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discourse_cache_misses_total",
			Help: "Total number of response cache misses",
		},
		[]string{"key"},
	)

	// Reconciliation Metrics
	ReconcilePages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discourse_reconcile_pages_total",
			Help: "Total number of remote user pages fetched by the reconciliation job",
		},
	)

	ReconcileRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discourse_reconcile_records_total",
			Help: "Total number of local records examined by the reconciliation job",
		},
		[]string{"result"}, // "updated", "mismatch", "in_sync", "no_match", "load_failed", "save_failed"
	)

	ReconcileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "discourse_reconcile_duration_seconds",
			Help:    "Duration of reconciliation job runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
	)

	// Aggregator Metrics
	AggregatorTopicFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discourse_aggregator_topic_fetches_total",
			Help: "Total number of topic post-stream fetches by the comments aggregator",
		},
		[]string{"outcome"}, // "success", "failure"
	)

	AggregatorComments = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discourse_aggregator_comments_total",
			Help: "Total number of comment entries returned by the aggregator",
		},
	)
)
