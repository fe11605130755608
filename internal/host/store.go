// Discourse Bridge - CMS to Discourse Forum Synchronization
// Copyright 2026 Quill CMS contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quillcms/discourse-bridge

// Package host holds the bridge's view of the CMS side: user link records
// tying local accounts to remote forum accounts, and content items tying
// local articles to remote comment topics. Stores are pluggable; the
// bridge ships a BadgerDB backend for standalone deployments and an
// in-memory backend for tests and embedded use.
package host

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist in the store.
var ErrNotFound = errors.New("host: record not found")

// UserLink ties a local account to its remote forum account.
type UserLink struct {
	// LocalID is the CMS-side account id.
	LocalID int64 `json:"local_id"`

	// DisplayName is the CMS-side account name. Reconciliation compares it
	// against the remote username before touching CachedUsername.
	DisplayName string `json:"display_name"`

	// RemoteID is the forum-side user id, the stable join key.
	RemoteID int64 `json:"remote_id"`

	// CachedUsername is the locally stored copy of the remote username.
	// It can drift when the username changes on the forum side.
	CachedUsername string `json:"cached_username"`

	// SyncEnabled marks the account as participating in forum sync.
	SyncEnabled bool `json:"sync_enabled"`
}

// UserStore persists user link records.
type UserStore interface {
	// FindSyncedByRemoteIDs returns the local ids of records whose
	// RemoteID is in the given set, with sync enabled and a non-empty
	// cached username. Order is unspecified.
	FindSyncedByRemoteIDs(ctx context.Context, remoteIDs []int64) ([]int64, error)

	// Load fetches one record by local id. Returns ErrNotFound when the
	// record does not exist.
	Load(ctx context.Context, localID int64) (*UserLink, error)

	// Save upserts a record keyed by its LocalID.
	Save(ctx context.Context, link *UserLink) error
}

// ContentItem ties a local content item to its remote comment topic.
type ContentItem struct {
	// ID is the CMS-side content id.
	ID int64 `json:"id"`

	// Title is the content item's title, carried over as the topic title.
	Title string `json:"title"`

	// CanonicalURL is the public URL of the content item. The aggregator
	// builds comment links from it.
	CanonicalURL string `json:"canonical_url"`

	// TopicID is the remote topic holding this item's comments. Zero
	// means no topic has been created yet.
	TopicID int64 `json:"topic_id"`

	// CommentCount mirrors the remote topic's comment count.
	CommentCount int `json:"comment_count"`

	// Published marks the item as publicly visible.
	Published bool `json:"published"`

	// Created is the item's creation time, used to rank recent content.
	Created time.Time `json:"created"`
}

// ContentStore persists content items.
type ContentStore interface {
	// TopicIDsWithComments returns the topic ids of the most recently
	// created published items with at least one comment, newest first,
	// at most limit entries.
	TopicIDsWithComments(ctx context.Context, limit int) ([]int64, error)

	// ByTopicID fetches the content item bound to a topic. Returns
	// ErrNotFound when no item carries the topic id.
	ByTopicID(ctx context.Context, topicID int64) (*ContentItem, error)

	// Save upserts a content item keyed by its ID.
	Save(ctx context.Context, item *ContentItem) error
}
