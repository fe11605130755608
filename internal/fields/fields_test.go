// Discourse Bridge - CMS to Discourse Forum Synchronization
// Copyright 2026 Quill CMS contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quillcms/discourse-bridge

package fields

import (
	"testing"

	"github.com/quillcms/discourse-bridge/internal/discourse"
)

func specByName(specs []FieldSpec, name string) *FieldSpec {
	for i := range specs {
		if specs[i].Name == name {
			return &specs[i]
		}
	}
	return nil
}

func TestVariantEmptiness(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		variant Variant
		value   Value
		want    bool
	}{
		{"user link no value", UserLink{}, Value{}, true},
		{"user link empty id", UserLink{}, Value{"user_id": ""}, true},
		{"user link with id", UserLink{}, Value{"user_id": "101"}, false},
		{"user link numeric id", UserLink{}, Value{"user_id": 101}, false},
		{"user link username only", UserLink{}, Value{"username": "alice"}, true},

		{"group link no value", GroupLink{}, Value{}, true},
		{"group link with category", GroupLink{}, Value{"category_id": "7"}, false},
		{"group link group id only", GroupLink{}, Value{"group_id": "9"}, true},

		{"comments no value", CommentsMeta{}, Value{}, true},
		{"comments with topic", CommentsMeta{}, Value{"topic_id": "42"}, false},
		{"comments count only", CommentsMeta{}, Value{"comment_count": 5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.variant.IsEmpty(tt.value); got != tt.want {
				t.Errorf("IsEmpty(%v) = %t, want %t", tt.value, got, tt.want)
			}
		})
	}
}

func TestUserLinkInputs(t *testing.T) {
	t.Parallel()

	current := Value{"user_id": "101", "username": "alice", "push_to_discourse": true}
	specs := UserLink{}.BuildInputs(current, Context{})

	if len(specs) != 3 {
		t.Fatalf("BuildInputs() returned %d specs, want 3", len(specs))
	}

	userID := specByName(specs, "user_id")
	if userID == nil || userID.Default != "101" || !userID.ReadOnly {
		t.Errorf("user_id spec = %+v, want read-only default 101", userID)
	}
	push := specByName(specs, "push_to_discourse")
	if push == nil || push.Kind != KindCheckbox || push.Default != true {
		t.Errorf("push_to_discourse spec = %+v, want checked checkbox", push)
	}
}

func TestPushFlagDefaultsFromContext(t *testing.T) {
	t.Parallel()

	specs := UserLink{}.BuildInputs(Value{}, Context{SyncDefault: true})
	push := specByName(specs, "push_to_discourse")
	if push == nil || push.Default != true {
		t.Errorf("push_to_discourse default = %+v, want the per-type default", push)
	}

	specs = UserLink{}.BuildInputs(Value{}, Context{SyncDefault: false})
	push = specByName(specs, "push_to_discourse")
	if push == nil || push.Default != false {
		t.Errorf("push_to_discourse default = %+v, want false", push)
	}
}

func TestCommentsMetaCategorySelect(t *testing.T) {
	t.Parallel()

	ctx := Context{
		Categories: []discourse.Category{
			{ID: 5, Name: "General"},
			{ID: 9, Name: "Support"},
		},
		DefaultCategory: 5,
	}

	specs := CommentsMeta{}.BuildInputs(Value{}, ctx)
	category := specByName(specs, "category")
	if category == nil {
		t.Fatal("BuildInputs() has no category spec")
	}
	if category.Kind != KindSelect {
		t.Errorf("category kind = %q, want select", category.Kind)
	}
	if len(category.Options) != 2 || category.Options["5"] != "General" || category.Options["9"] != "Support" {
		t.Errorf("category options = %v, want remote categories", category.Options)
	}
	if category.Default != "5" {
		t.Errorf("category default = %v, want the configured default category", category.Default)
	}

	// A stored value wins over the configured default.
	specs = CommentsMeta{}.BuildInputs(Value{"category": "9"}, ctx)
	category = specByName(specs, "category")
	if category.Default != "9" {
		t.Errorf("category default = %v, want the stored value", category.Default)
	}
}

func TestGroupLinkInputsReadOnly(t *testing.T) {
	t.Parallel()

	specs := GroupLink{}.BuildInputs(Value{"category_id": "7", "group_id": "9", "group_name": "editors"}, Context{})
	for _, name := range []string{"category_id", "group_id", "group_name"} {
		spec := specByName(specs, name)
		if spec == nil || !spec.ReadOnly {
			t.Errorf("%s spec = %+v, want read-only", name, spec)
		}
	}
}
