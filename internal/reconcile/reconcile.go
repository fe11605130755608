// Discourse Bridge - CMS to Discourse Forum Synchronization
// Copyright 2026 Quill CMS contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quillcms/discourse-bridge

/*
Package reconcile repairs locally cached forum usernames against the
remote forum's user listing.

The job pages through the remote admin user listing and, for every local
account linked to a remote user on the page, overwrites the locally cached
username with the remote one. The remote listing is the source of truth
for the cached copy.

One guard is deliberate: when the local account's display name disagrees
with the remote username, the record is logged and left untouched. That
conflict means the link itself may be wrong, and a human should look at it
before the bridge writes anything.

The job is idempotent; a second run over unchanged data writes nothing.
*/
package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quillcms/discourse-bridge/internal/discourse"
	"github.com/quillcms/discourse-bridge/internal/host"
	"github.com/quillcms/discourse-bridge/internal/logging"
	"github.com/quillcms/discourse-bridge/internal/metrics"
)

// Job reconciles cached usernames for linked accounts.
type Job struct {
	client *discourse.Client
	users  host.UserStore
	log    zerolog.Logger
}

// NewJob creates a reconciliation job over the given client and store.
func NewJob(client *discourse.Client, users host.UserStore) *Job {
	return &Job{
		client: client,
		users:  users,
		log:    logging.With().Str("component", "reconcile").Logger(),
	}
}

// SetLogger replaces the job's logger. Useful in tests to capture output.
func (j *Job) SetLogger(l zerolog.Logger) {
	j.log = l
}

// Summary reports what one reconciliation run did.
type Summary struct {
	// Pages is the number of remote listing pages fetched, including the
	// final empty or failed page that terminated the loop.
	Pages int

	// Updated counts records whose cached username was overwritten.
	Updated int

	// Mismatches counts records skipped because the display name
	// disagreed with the remote username.
	Mismatches int

	// InSync counts records whose cached username already matched.
	InSync int

	// NoMatch counts records whose remote id had no entry on the page.
	NoMatch int

	// LoadFailed counts records that could not be loaded from the store.
	LoadFailed int

	// SaveFailed counts records whose updated link could not be saved.
	SaveFailed int
}

// Run executes one reconciliation pass. It pages through the remote user
// listing from page 1 until an empty or failed page, and never returns an
// error: per-record problems are logged and counted.
func (j *Job) Run(ctx context.Context) Summary {
	runID := uuid.NewString()
	log := j.log.With().Str("run_id", runID).Logger()
	start := time.Now()

	var summary Summary
	log.Info().Msg("Starting username reconciliation")

	for page := 1; ; page++ {
		summary.Pages++
		remote, ok := j.client.ListUsers(ctx, page, nil)
		if !ok || len(remote) == 0 {
			break
		}
		metrics.ReconcilePages.Inc()

		byRemoteID := make(map[int64]discourse.RemoteUser, len(remote))
		remoteIDs := make([]int64, 0, len(remote))
		for _, user := range remote {
			byRemoteID[user.ID] = user
			remoteIDs = append(remoteIDs, user.ID)
		}

		localIDs, err := j.users.FindSyncedByRemoteIDs(ctx, remoteIDs)
		if err != nil {
			log.Error().Err(err).Int("page", page).Msg("Failed to query linked accounts")
			continue
		}

		for _, localID := range localIDs {
			j.reconcileOne(ctx, log, localID, byRemoteID, &summary)
		}
	}

	metrics.ReconcileDuration.Observe(time.Since(start).Seconds())
	log.Info().
		Int("pages", summary.Pages).
		Int("updated", summary.Updated).
		Int("mismatches", summary.Mismatches).
		Int("in_sync", summary.InSync).
		Msg("Finished username reconciliation")

	return summary
}

// reconcileOne applies the update rules to a single linked account.
func (j *Job) reconcileOne(ctx context.Context, log zerolog.Logger, localID int64, byRemoteID map[int64]discourse.RemoteUser, summary *Summary) {
	link, err := j.users.Load(ctx, localID)
	if err != nil {
		if errors.Is(err, host.ErrNotFound) {
			log.Info().Int64("uid", localID).Msg("Skip empty account")
		} else {
			log.Error().Err(err).Int64("uid", localID).Msg("Failed to load account")
		}
		summary.LoadFailed++
		metrics.ReconcileRecords.WithLabelValues("load_failed").Inc()
		return
	}

	remote, ok := byRemoteID[link.RemoteID]
	if !ok {
		log.Info().Int64("uid", link.LocalID).Str("username", link.DisplayName).Msg("No remote match found for user")
		summary.NoMatch++
		metrics.ReconcileRecords.WithLabelValues("no_match").Inc()
		return
	}

	// A display name that disagrees with the remote username means the
	// link itself is suspect. Log it and leave the record alone.
	if link.DisplayName != remote.Username {
		log.Warn().
			Int64("uid", link.LocalID).
			Str("username", link.DisplayName).
			Str("remote_username", remote.Username).
			Msg("Remote username does not match local account name")
		summary.Mismatches++
		metrics.ReconcileRecords.WithLabelValues("mismatch").Inc()
		return
	}

	if link.CachedUsername == remote.Username {
		log.Info().Int64("uid", link.LocalID).Str("username", link.DisplayName).Msg("Cached username already in sync")
		summary.InSync++
		metrics.ReconcileRecords.WithLabelValues("in_sync").Inc()
		return
	}

	link.CachedUsername = remote.Username
	if err := j.users.Save(ctx, link); err != nil {
		log.Error().Err(err).Int64("uid", link.LocalID).Msg("Failed to save updated account")
		summary.SaveFailed++
		metrics.ReconcileRecords.WithLabelValues("save_failed").Inc()
		return
	}

	log.Info().Int64("uid", link.LocalID).Str("username", link.DisplayName).Msg("Updated cached username from remote")
	summary.Updated++
	metrics.ReconcileRecords.WithLabelValues("updated").Inc()
}
