// Discourse Bridge - CMS to Discourse Forum Synchronization
// Copyright 2026 Quill CMS contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quillcms/discourse-bridge

// Package main is the entry point for the Discourse bridge.
//
// The bridge syncs a CMS with a Discourse forum: it reconciles locally
// cached forum usernames against the remote user listing, and serves a
// digest of the latest forum comments on recent articles.
//
// # Modes
//
// The binary runs in one of two modes, selected with -mode:
//
//	discourse-bridge -mode reconcile   # one reconciliation pass, then exit
//	discourse-bridge -mode serve       # HTTP API with optional periodic reconciliation
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, an optional config.yaml, and
// built-in defaults. The required settings are the forum connection:
//
//	export DISCOURSE_BASE_URL=https://forum.example.org
//	export DISCOURSE_API_KEY=...
//	export DISCOURSE_API_USERNAME=system
//
// In serve mode, SYNC_INTERVAL (e.g. 30m) enables periodic
// reconciliation; STORE_BACKEND=badger with STORE_PATH persists link
// records across restarts.
//
// # Signal Handling
//
// Serve mode shuts down gracefully on SIGINT and SIGTERM: the listener
// stops accepting connections, in-flight requests get 10 seconds to
// finish, and the store is closed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quillcms/discourse-bridge/internal/api"
	"github.com/quillcms/discourse-bridge/internal/cache"
	"github.com/quillcms/discourse-bridge/internal/comments"
	"github.com/quillcms/discourse-bridge/internal/config"
	"github.com/quillcms/discourse-bridge/internal/discourse"
	"github.com/quillcms/discourse-bridge/internal/host"
	"github.com/quillcms/discourse-bridge/internal/logging"
	"github.com/quillcms/discourse-bridge/internal/reconcile"
)

const shutdownTimeout = 10 * time.Second

func main() {
	mode := flag.String("mode", "serve", "run mode: serve or reconcile")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("mode", *mode).
		Str("base_url", cfg.Discourse.BaseURL).
		Str("store", cfg.Store.Backend).
		Msg("Starting Discourse bridge")

	var (
		users   host.UserStore
		content host.ContentStore
	)
	switch cfg.Store.Backend {
	case "badger":
		db, err := host.OpenBadger(cfg.Store.Path)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to open store")
		}
		defer func() {
			if err := db.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing store")
			}
		}()
		users = host.NewBadgerUserStore(db)
		content = host.NewBadgerContentStore(db)
	default:
		users = host.NewMemoryUserStore()
		content = host.NewMemoryContentStore()
	}

	responseCache := cache.New()
	transport := discourse.NewTransport(cfg.Discourse.BaseURL, cfg.Discourse.APIKey, cfg.Discourse.APIUsername)
	client := discourse.NewClient(transport, responseCache, cfg.Discourse.DefaultAvatar)
	reconciler := reconcile.NewJob(client, users)

	switch *mode {
	case "reconcile":
		summary := reconciler.Run(context.Background())
		if summary.Pages <= 1 && summary.Updated == 0 && summary.InSync == 0 {
			logging.Warn().Msg("Reconciliation saw no remote data; check connection settings")
		}
	case "serve":
		stopCleanup := responseCache.StartCleanup(10 * time.Minute)
		defer stopCleanup()
		aggregator := comments.NewAggregator(client, content, responseCache, cfg.Comments.CacheLifetimeMinutes)
		router := api.NewRouter(client, aggregator, reconciler, cfg.Comments.Count)
		runServer(cfg, router.Setup(), reconciler)
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q (want serve or reconcile)\n", *mode)
		os.Exit(2)
	}
}

// runServer serves the HTTP API until SIGINT/SIGTERM, running the
// reconciliation job on a ticker when an interval is configured.
func runServer(cfg *config.Config, handler http.Handler, reconciler *reconcile.Job) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Sync.Interval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.Sync.Interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					reconciler.Run(ctx)
				}
			}
		}()
		logging.Info().Dur("interval", cfg.Sync.Interval).Msg("Periodic reconciliation enabled")
	}

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.Timeout,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("HTTP server failed")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("Graceful shutdown failed")
	}
	logging.Info().Msg("Shutdown complete")
}
