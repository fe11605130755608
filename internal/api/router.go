// Discourse Bridge - CMS to Discourse Forum Synchronization
// Copyright 2026 Quill CMS contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quillcms/discourse-bridge

// Package api exposes the bridge over HTTP using the Chi router: the
// latest-comments digest, the cached category list, an operator trigger
// for the reconciliation job, health, and Prometheus metrics.
package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quillcms/discourse-bridge/internal/comments"
	"github.com/quillcms/discourse-bridge/internal/discourse"
	"github.com/quillcms/discourse-bridge/internal/logging"
	"github.com/quillcms/discourse-bridge/internal/reconcile"
)

// Router holds the handlers' collaborators.
type Router struct {
	client       *discourse.Client
	aggregator   *comments.Aggregator
	reconciler   *reconcile.Job
	defaultCount int
}

// NewRouter creates a router. defaultCount is the digest size when the
// request does not specify one.
func NewRouter(client *discourse.Client, aggregator *comments.Aggregator, reconciler *reconcile.Job, defaultCount int) *Router {
	return &Router{
		client:       client,
		aggregator:   aggregator,
		reconciler:   reconciler,
		defaultCount: defaultCount,
	}
}

// Setup builds the HTTP handler tree.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", router.Health)
		r.Get("/comments/latest", router.LatestComments)
		r.Get("/categories", router.Categories)
		r.Post("/reconcile", router.Reconcile)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// writeJSON encodes a response body, logging encode failures after the
// status line is already committed.
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error().Err(err).Msg("Failed to encode response")
	}
}

// Health reports liveness.
func (router *Router) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// LatestComments serves the latest-comments digest. The count query
// parameter caps the digest size; invalid or missing values fall back to
// the configured default.
func (router *Router) LatestComments(w http.ResponseWriter, r *http.Request) {
	count := router.defaultCount
	if raw := r.URL.Query().Get("count"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			count = n
		}
	}

	entries := router.aggregator.Latest(r.Context(), count)
	writeJSON(w, http.StatusOK, map[string]interface{}{"comments": entries})
}

// Categories serves the remote category list. The underlying client
// caches it, so repeated requests are cheap.
func (router *Router) Categories(w http.ResponseWriter, r *http.Request) {
	list, ok := router.client.Categories(r.Context())
	if !ok {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "category list unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Reconcile triggers one reconciliation run and reports its summary.
// The run is synchronous; operators call this the way they would a
// maintenance script.
func (router *Router) Reconcile(w http.ResponseWriter, r *http.Request) {
	summary := router.reconciler.Run(r.Context())
	writeJSON(w, http.StatusOK, summary)
}
