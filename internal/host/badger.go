// Discourse Bridge - CMS to Discourse Forum Synchronization
// Copyright 2026 Quill CMS contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quillcms/discourse-bridge

package host

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// Key prefixes for BadgerDB storage. User links carry a secondary index by
// remote id so reconciliation can join a remote page without a full scan.
const (
	userKeyPrefix       = "user:"
	userRemoteKeyPrefix = "user_remote:"
	contentKeyPrefix    = "content:"
)

// OpenBadger opens (or creates) a BadgerDB at the given path with logging
// disabled; badger's own logger is too chatty for a service log.
func OpenBadger(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return db, nil
}

// BadgerUserStore implements UserStore on BadgerDB for standalone
// deployments that persist link records across restarts.
type BadgerUserStore struct {
	db *badger.DB
}

// NewBadgerUserStore creates a BadgerDB-backed user store.
func NewBadgerUserStore(db *badger.DB) *BadgerUserStore {
	return &BadgerUserStore{db: db}
}

func userKey(localID int64) []byte {
	return []byte(userKeyPrefix + strconv.FormatInt(localID, 10))
}

func userRemoteKey(remoteID, localID int64) []byte {
	return []byte(userRemoteKeyPrefix + strconv.FormatInt(remoteID, 10) + ":" + strconv.FormatInt(localID, 10))
}

// FindSyncedByRemoteIDs resolves remote ids through the secondary index,
// then filters to records with sync enabled and a cached username.
func (s *BadgerUserStore) FindSyncedByRemoteIDs(ctx context.Context, remoteIDs []int64) ([]int64, error) {
	var out []int64

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		for _, remoteID := range remoteIDs {
			prefix := []byte(userRemoteKeyPrefix + strconv.FormatInt(remoteID, 10) + ":")
			it := txn.NewIterator(opts)
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				key := it.Item().Key()
				localID, err := strconv.ParseInt(string(key[len(prefix):]), 10, 64)
				if err != nil {
					continue
				}

				item, err := txn.Get(userKey(localID))
				if errors.Is(err, badger.ErrKeyNotFound) {
					continue
				}
				if err != nil {
					it.Close()
					return fmt.Errorf("get user %d: %w", localID, err)
				}

				var link UserLink
				if err := item.Value(func(val []byte) error {
					return json.Unmarshal(val, &link)
				}); err != nil {
					it.Close()
					return fmt.Errorf("decode user %d: %w", localID, err)
				}

				if link.SyncEnabled && link.CachedUsername != "" {
					out = append(out, link.LocalID)
				}
			}
			it.Close()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Load fetches one record by local id.
func (s *BadgerUserStore) Load(ctx context.Context, localID int64) (*UserLink, error) {
	var link UserLink

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(localID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get user %d: %w", localID, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &link)
		})
	})
	if err != nil {
		return nil, err
	}

	return &link, nil
}

// Save upserts a record and its remote-id index entry.
func (s *BadgerUserStore) Save(ctx context.Context, link *UserLink) error {
	data, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("marshal user %d: %w", link.LocalID, err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		// Drop a stale index entry when the remote id changed.
		if item, err := txn.Get(userKey(link.LocalID)); err == nil {
			var previous UserLink
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &previous)
			}); err == nil && previous.RemoteID != link.RemoteID {
				if err := txn.Delete(userRemoteKey(previous.RemoteID, link.LocalID)); err != nil {
					return fmt.Errorf("delete stale index: %w", err)
				}
			}
		}

		if err := txn.Set(userKey(link.LocalID), data); err != nil {
			return fmt.Errorf("set user: %w", err)
		}
		if err := txn.Set(userRemoteKey(link.RemoteID, link.LocalID), nil); err != nil {
			return fmt.Errorf("set remote index: %w", err)
		}
		return nil
	})
}

// BadgerContentStore implements ContentStore on BadgerDB.
type BadgerContentStore struct {
	db *badger.DB
}

// NewBadgerContentStore creates a BadgerDB-backed content store.
func NewBadgerContentStore(db *badger.DB) *BadgerContentStore {
	return &BadgerContentStore{db: db}
}

func contentKey(id int64) []byte {
	return []byte(contentKeyPrefix + strconv.FormatInt(id, 10))
}

// scan walks all content items. The content set is small (one record per
// article with forum comments), so a full scan is acceptable.
func (s *BadgerContentStore) scan(fn func(item ContentItem) bool) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(contentKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var item ContentItem
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &item)
			}); err != nil {
				return fmt.Errorf("decode content: %w", err)
			}
			if !fn(item) {
				return nil
			}
		}
		return nil
	})
}

// TopicIDsWithComments returns topic ids of published commented items,
// newest first, at most limit entries.
func (s *BadgerContentStore) TopicIDsWithComments(ctx context.Context, limit int) ([]int64, error) {
	var candidates []ContentItem
	err := s.scan(func(item ContentItem) bool {
		if item.Published && item.CommentCount > 0 && item.TopicID != 0 {
			candidates = append(candidates, item)
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Created.After(candidates[j].Created)
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]int64, 0, len(candidates))
	for _, item := range candidates {
		out = append(out, item.TopicID)
	}
	return out, nil
}

// ByTopicID fetches the content item bound to a topic.
func (s *BadgerContentStore) ByTopicID(ctx context.Context, topicID int64) (*ContentItem, error) {
	var found *ContentItem
	err := s.scan(func(item ContentItem) bool {
		if item.TopicID == topicID {
			found = &item
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

// Save upserts a content item keyed by ID.
func (s *BadgerContentStore) Save(ctx context.Context, item *ContentItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal content %d: %w", item.ID, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(contentKey(item.ID), data)
	})
}
