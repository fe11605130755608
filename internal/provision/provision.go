// Discourse Bridge - CMS to Discourse Forum Synchronization
// Copyright 2026 Quill CMS contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quillcms/discourse-bridge

/*
Package provision seeds host configuration objects from YAML templates.

Enabling forum integration for a content or group type requires a handful
of host-side config objects (field attachments, storage definitions) that
only differ by the type's machine name. Rather than hand-writing each,
the bridge ships templates with a PLACEHOLDER token and stamps them out
per type. Application is idempotent by construction: a target key that
already exists is skipped, never overwritten.
*/
package provision

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Placeholder is the token templates carry where the type machine name
// belongs.
const Placeholder = "PLACEHOLDER"

// Store is the host's keyed configuration storage.
type Store interface {
	// Has reports whether a config object exists under key.
	Has(key string) bool

	// Set writes a config object under key.
	Set(key string, value map[string]interface{}) error
}

// MemoryStore is an in-memory Store for tests and embedded use.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]map[string]interface{}
}

// NewMemoryStore creates an empty in-memory config store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]map[string]interface{})}
}

func (s *MemoryStore) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok
}

func (s *MemoryStore) Set(key string, value map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = value
	return nil
}

// Get returns a stored object. Test helper.
func (s *MemoryStore) Get(key string) (map[string]interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.objects[key]
	return value, ok
}

// Apply stamps one template into the store under targetKey. Every
// occurrence of Placeholder in the template (and in targetKey) is replaced
// with typeName before decoding. Returns false without touching the store
// when the target already exists.
func Apply(store Store, targetKey, templateYAML, typeName string) (bool, error) {
	key := strings.ReplaceAll(targetKey, Placeholder, typeName)
	if store.Has(key) {
		return false, nil
	}

	raw := strings.ReplaceAll(templateYAML, Placeholder, typeName)

	var value map[string]interface{}
	if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
		return false, fmt.Errorf("decode template for %s: %w", key, err)
	}
	if value == nil {
		return false, fmt.Errorf("template for %s is empty", key)
	}

	if err := store.Set(key, value); err != nil {
		return false, fmt.Errorf("store %s: %w", key, err)
	}
	return true, nil
}

// ApplyAll stamps a set of templates, keyed by target key, for one type
// name. It returns the keys actually written. Existing targets are
// skipped; the first decode or store error aborts.
func ApplyAll(store Store, templates map[string]string, typeName string) ([]string, error) {
	// Deterministic order keeps logs and tests stable.
	keys := make([]string, 0, len(templates))
	for key := range templates {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var written []string
	for _, key := range keys {
		applied, err := Apply(store, key, templates[key], typeName)
		if err != nil {
			return written, err
		}
		if applied {
			written = append(written, strings.ReplaceAll(key, Placeholder, typeName))
		}
	}
	return written, nil
}
