// Discourse Bridge - CMS to Discourse Forum Synchronization
// Copyright 2026 Quill CMS contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quillcms/discourse-bridge

package host

import (
	"context"
	"sort"
	"sync"
)

// MemoryUserStore is an in-memory UserStore for tests and embedded use.
type MemoryUserStore struct {
	mu    sync.RWMutex
	links map[int64]UserLink
}

// NewMemoryUserStore creates an empty in-memory user store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{links: make(map[int64]UserLink)}
}

// FindSyncedByRemoteIDs returns local ids matching the remote id set,
// filtered to records with sync enabled and a cached username. Results are
// sorted by local id for deterministic iteration.
func (s *MemoryUserStore) FindSyncedByRemoteIDs(ctx context.Context, remoteIDs []int64) ([]int64, error) {
	wanted := make(map[int64]struct{}, len(remoteIDs))
	for _, id := range remoteIDs {
		wanted[id] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []int64
	for _, link := range s.links {
		if !link.SyncEnabled || link.CachedUsername == "" {
			continue
		}
		if _, ok := wanted[link.RemoteID]; ok {
			out = append(out, link.LocalID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Load fetches one record by local id.
func (s *MemoryUserStore) Load(ctx context.Context, localID int64) (*UserLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	link, ok := s.links[localID]
	if !ok {
		return nil, ErrNotFound
	}
	return &link, nil
}

// Save upserts a record keyed by LocalID.
func (s *MemoryUserStore) Save(ctx context.Context, link *UserLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[link.LocalID] = *link
	return nil
}

// MemoryContentStore is an in-memory ContentStore for tests and embedded use.
type MemoryContentStore struct {
	mu    sync.RWMutex
	items map[int64]ContentItem
}

// NewMemoryContentStore creates an empty in-memory content store.
func NewMemoryContentStore() *MemoryContentStore {
	return &MemoryContentStore{items: make(map[int64]ContentItem)}
}

// TopicIDsWithComments returns topic ids of published commented items,
// newest first, at most limit entries.
func (s *MemoryContentStore) TopicIDsWithComments(ctx context.Context, limit int) ([]int64, error) {
	s.mu.RLock()
	candidates := make([]ContentItem, 0, len(s.items))
	for _, item := range s.items {
		if item.Published && item.CommentCount > 0 && item.TopicID != 0 {
			candidates = append(candidates, item)
		}
	}
	s.mu.RUnlock()

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
func (s *MemoryContentStore) ByTopicID(ctx context.Context, topicID int64) (*ContentItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if item.TopicID == topicID {
			found := item
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

// Save upserts a content item keyed by ID.
func (s *MemoryContentStore) Save(ctx context.Context, item *ContentItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = *item
	return nil
}
