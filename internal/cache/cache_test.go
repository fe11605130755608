// Discourse Bridge - CMS to Discourse Forum Synchronization
// Copyright 2026 Quill CMS contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quillcms/discourse-bridge

package cache

import (
	"testing"
	"time"
)

func TestGetSet(t *testing.T) {
	t.Parallel()

	c := New()
	c.Set("key", "value", time.Minute)

	got, ok := c.Get("key")
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if got != "value" {
		t.Errorf("Get() = %v, want %q", got, "value")
	}
}

func TestGetMissingKey(t *testing.T) {
	t.Parallel()

	c := New()
	if _, ok := c.Get("absent"); ok {
		t.Error("Get() ok = true for absent key, want false")
	}

	stats := c.GetStats()
	if stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1", stats.Misses)
	}
}

func TestExpiredReadIsMiss(t *testing.T) {
	t.Parallel()

	c := New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := base
	c.SetClock(func() time.Time { return current })

	// 12 hour TTL mirrors the category cache policy.
	c.Set("discourse_category", "data", 43200*time.Second)

	// One second before expiry: hit.
	current = base.Add(43199 * time.Second)
	if _, ok := c.Get("discourse_category"); !ok {
		t.Fatal("Get() at t=43199s miss, want hit")
	}

	// One second past expiry: miss, entry removed.
	current = base.Add(43201 * time.Second)
	if _, ok := c.Get("discourse_category"); ok {
		t.Fatal("Get() at t=43201s hit, want miss")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after expired read, want 0", c.Len())
	}

	stats := c.GetStats()
	if stats.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", stats.Evictions)
	}
}

func TestSetOverwrites(t *testing.T) {
	t.Parallel()

	c := New()
	c.Set("key", "old", time.Minute)
	c.Set("key", "new", time.Minute)

	got, ok := c.Get("key")
	if !ok || got != "new" {
		t.Errorf("Get() = %v, %v; want %q, true", got, ok, "new")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestDeleteAndClear(t *testing.T) {
	t.Parallel()

	c := New()
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("Get() after Delete returned a value")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", c.Len())
	}
}

func TestCleanupSweepsExpiredEntries(t *testing.T) {
	t.Parallel()

	c := New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := base
	c.SetClock(func() time.Time { return current })

	c.Set("short", 1, time.Second)
	c.Set("long", 2, time.Hour)

	current = base.Add(2 * time.Second)
	c.sweep()

	if c.Len() != 1 {
		t.Errorf("Len() = %d after sweep, want 1", c.Len())
	}
	if _, ok := c.Get("long"); !ok {
		t.Error("sweep removed an unexpired entry")
	}

	stop := c.StartCleanup(time.Minute)
	stop()
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()

	c := New()
	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				c.Set("shared", j, time.Minute)
				c.Get("shared")
			}
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}
}
