// Discourse Bridge - CMS to Discourse Forum Synchronization
// Copyright 2026 Quill CMS contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quillcms/discourse-bridge

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Discourse.BaseURL = "https://forum.example.org"
	cfg.Discourse.APIKey = "key"
	return cfg
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing base url", func(c *Config) { c.Discourse.BaseURL = "" }, "base_url"},
		{"bad base url scheme", func(c *Config) { c.Discourse.BaseURL = "ftp://forum" }, "base_url"},
		{"missing api key", func(c *Config) { c.Discourse.APIKey = "" }, "api_key"},
		{"missing api username", func(c *Config) { c.Discourse.APIUsername = "" }, "api_username"},
		{"zero cache lifetime", func(c *Config) { c.Comments.CacheLifetimeMinutes = 0 }, "cache_lifetime"},
		{"zero count", func(c *Config) { c.Comments.Count = 0 }, "count"},
		{"unknown store backend", func(c *Config) { c.Store.Backend = "sqlite" }, "store.backend"},
		{"badger without path", func(c *Config) { c.Store.Backend = "badger"; c.Store.Path = "" }, "store.path"},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, "port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateTrimsTrailingSlash(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Discourse.BaseURL = "https://forum.example.org/"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Discourse.BaseURL != "https://forum.example.org" {
		t.Errorf("BaseURL = %q, want trailing slash removed", cfg.Discourse.BaseURL)
	}
}

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
discourse:
  base_url: https://forum.example.org
  api_key: file-key
comments:
  count: 7
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("DISCOURSE_API_KEY", "env-key")
	t.Setenv("COMMENTS_CONTENT_TYPES", "article, page")
	t.Setenv("SYNC_INTERVAL", "15m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Discourse.BaseURL != "https://forum.example.org" {
		t.Errorf("BaseURL = %q, want file value", cfg.Discourse.BaseURL)
	}
	if cfg.Discourse.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want env override", cfg.Discourse.APIKey)
	}
	if cfg.Comments.Count != 7 {
		t.Errorf("Count = %d, want file value 7", cfg.Comments.Count)
	}
	if cfg.Comments.CacheLifetimeMinutes != 60 {
		t.Errorf("CacheLifetimeMinutes = %d, want default 60", cfg.Comments.CacheLifetimeMinutes)
	}
	if len(cfg.Comments.ContentTypesEnabled) != 2 || cfg.Comments.ContentTypesEnabled[0] != "article" || cfg.Comments.ContentTypesEnabled[1] != "page" {
		t.Errorf("ContentTypesEnabled = %v, want [article page]", cfg.Comments.ContentTypesEnabled)
	}
	if cfg.Sync.Interval != 15*time.Minute {
		t.Errorf("Sync.Interval = %v, want 15m", cfg.Sync.Interval)
	}
}

func TestLoadRequiresConnection(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv("DISCOURSE_BASE_URL", "")
	t.Setenv("DISCOURSE_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Error("Load() error = nil with no connection settings, want validation error")
	}
}
