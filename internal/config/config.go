// Discourse Bridge - CMS to Discourse Forum Synchronization
// Copyright 2026 Quill CMS contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quillcms/discourse-bridge

// Package config loads bridge configuration with Koanf v2 from layered
// sources: built-in defaults, an optional YAML file, and environment
// variables (highest priority).
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config is the root configuration for the bridge.
type Config struct {
	Discourse DiscourseConfig `koanf:"discourse"`
	Comments  CommentsConfig  `koanf:"comments"`
	Groups    GroupsConfig    `koanf:"groups"`
	Sync      SyncConfig      `koanf:"sync"`
	Store     StoreConfig     `koanf:"store"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// DiscourseConfig holds connection settings for the remote forum.
type DiscourseConfig struct {
	// BaseURL is the root URL of the Discourse instance, e.g.
	// https://forum.example.org (no trailing slash).
	BaseURL string `koanf:"base_url"`

	// APIKey and APIUsername are sent as Api-Key / Api-Username headers
	// on every request. APIUsername may be overridden per request for
	// user-scoped calls.
	APIKey      string `koanf:"api_key"`
	APIUsername string `koanf:"api_username"`

	// DefaultCategory is the category id new topics are posted to when
	// the content item does not carry one.
	DefaultCategory int `koanf:"default_category"`

	// DefaultAvatar is the path of the bundled fallback avatar image.
	DefaultAvatar string `koanf:"default_avatar"`
}

// CommentsConfig holds latest-comments aggregator settings.
type CommentsConfig struct {
	// CacheLifetimeMinutes bounds how long the latest-comments digest is
	// served from cache before it is recomputed.
	CacheLifetimeMinutes int `koanf:"cache_lifetime_minutes"`

	// Count is the number of comments the digest returns by default.
	Count int `koanf:"count"`

	// ForumLink and ForumLinkLabel render the "comment on this article"
	// pointer beneath the digest.
	ForumLink      string `koanf:"forum_link"`
	ForumLinkLabel string `koanf:"forum_link_label"`

	// ContentTypesEnabled lists host content types with comment
	// integration enabled by default.
	ContentTypesEnabled []string `koanf:"content_types_enabled"`
}

// GroupsConfig holds group synchronization settings.
type GroupsConfig struct {
	// GroupTypesEnabled lists host group types with Discourse
	// integration enabled by default.
	GroupTypesEnabled []string `koanf:"group_types_enabled"`
}

// SyncConfig holds reconciliation job settings.
type SyncConfig struct {
	// Interval between periodic reconciliation runs in serve mode.
	// Zero disables the ticker.
	Interval time.Duration `koanf:"interval"`
}

// StoreConfig selects the host-record store backing.
type StoreConfig struct {
	// Backend is "badger" for a persistent store or "memory" for an
	// ephemeral one.
	Backend string `koanf:"backend"`

	// Path is the badger data directory. Ignored for memory.
	Path string `koanf:"path"`
}

// ServerConfig holds HTTP serve-mode settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for values the bridge cannot run
// without and for obviously malformed settings.
func (c *Config) Validate() error {
	if c.Discourse.BaseURL == "" {
		return fmt.Errorf("discourse.base_url is required")
	}
	u, err := url.Parse(c.Discourse.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("discourse.base_url %q is not a valid http(s) URL", c.Discourse.BaseURL)
	}
	if strings.HasSuffix(c.Discourse.BaseURL, "/") {
		c.Discourse.BaseURL = strings.TrimRight(c.Discourse.BaseURL, "/")
	}

	if c.Discourse.APIKey == "" {
		return fmt.Errorf("discourse.api_key is required")
	}
	if c.Discourse.APIUsername == "" {
		return fmt.Errorf("discourse.api_username is required")
	}

	if c.Comments.CacheLifetimeMinutes <= 0 {
		return fmt.Errorf("comments.cache_lifetime_minutes must be positive, got %d", c.Comments.CacheLifetimeMinutes)
	}
	if c.Comments.Count <= 0 {
		return fmt.Errorf("comments.count must be positive, got %d", c.Comments.Count)
	}

	switch c.Store.Backend {
	case "badger":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the badger backend")
		}
	case "memory":
	default:
		return fmt.Errorf("store.backend must be \"badger\" or \"memory\", got %q", c.Store.Backend)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}

	return nil
}
