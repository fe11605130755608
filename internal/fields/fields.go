// Discourse Bridge - CMS to Discourse Forum Synchronization
// Copyright 2026 Quill CMS contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quillcms/discourse-bridge

/*
Package fields describes the CMS-side attachment points of the bridge as
UI-agnostic field variants. Each variant declares the inputs an editing
form should render for it and knows when a stored value counts as empty.

Three variants exist:
  - UserLink: ties an account to a forum user (user id, username, sync flag)
  - GroupLink: ties a group to a forum category and group
  - CommentsMeta: ties a content item to its comment topic

The host renders FieldSpecs however it likes; the bridge only defines
shape and semantics.
*/
package fields

import (
	"strconv"

	"github.com/quillcms/discourse-bridge/internal/discourse"
)

// Value is a stored field value, keyed by input name.
type Value map[string]interface{}

// Kind enumerates the input widgets a FieldSpec can ask for.
type Kind string

const (
	KindText     Kind = "text"
	KindCheckbox Kind = "checkbox"
	KindSelect   Kind = "select"
)

// FieldSpec describes one input of a variant's editing form.
type FieldSpec struct {
	// Name is the value key the input reads and writes.
	Name string

	// Label is the human-readable input label.
	Label string

	Kind Kind

	// Default is the value rendered when the stored value has no entry
	// under Name.
	Default interface{}

	// ReadOnly marks inputs owned by the sync machinery; the form shows
	// them but must not accept edits.
	ReadOnly bool

	// Options holds the choices of a select input, keyed by submitted
	// value.
	Options map[string]string
}

// Context carries host state the variants need to build their inputs.
type Context struct {
	// Categories is the remote category list for category selects.
	Categories []discourse.Category

	// SyncDefault is the per-type default of the push flag.
	SyncDefault bool

	// DefaultCategory preselects the category select when the stored
	// value has none.
	DefaultCategory int64
}

// Variant is one field type the bridge attaches to a host entity.
type Variant interface {
	// Name is the variant's stable machine name.
	Name() string

	// BuildInputs returns the inputs an editing form should render,
	// seeded from the current stored value.
	BuildInputs(current Value, ctx Context) []FieldSpec

	// IsEmpty reports whether a stored value counts as absent. Each
	// variant keys emptiness on its identity property.
	IsEmpty(current Value) bool
}

// stringValue reads a string-ish entry from a value, tolerating numbers
// stored by earlier versions.
func stringValue(v Value, key string) string {
	switch raw := v[key].(type) {
	case string:
		return raw
	case int:
		return strconv.Itoa(raw)
	case int64:
		return strconv.FormatInt(raw, 10)
	case float64:
		return strconv.FormatInt(int64(raw), 10)
	default:
		return ""
	}
}

func boolValue(v Value, key string, fallback bool) bool {
	if raw, ok := v[key].(bool); ok {
		return raw
	}
	return fallback
}

// UserLink ties a CMS account to a forum user.
type UserLink struct{}

func (UserLink) Name() string { return "discourse_user" }

func (UserLink) BuildInputs(current Value, ctx Context) []FieldSpec {
	return []FieldSpec{
		{Name: "user_id", Label: "Discourse User ID", Kind: KindText, Default: stringValue(current, "user_id"), ReadOnly: true},
		{Name: "username", Label: "Discourse username", Kind: KindText, Default: stringValue(current, "username"), ReadOnly: true},
		{Name: "push_to_discourse", Label: "Push User to Discourse", Kind: KindCheckbox, Default: boolValue(current, "push_to_discourse", ctx.SyncDefault)},
	}
}

// IsEmpty keys on the forum user id.
func (UserLink) IsEmpty(current Value) bool {
	return stringValue(current, "user_id") == ""
}

// GroupLink ties a CMS group to a forum category and group.
type GroupLink struct{}

func (GroupLink) Name() string { return "discourse_group" }

func (GroupLink) BuildInputs(current Value, ctx Context) []FieldSpec {
	return []FieldSpec{
		{Name: "category_id", Label: "Discourse Category ID", Kind: KindText, Default: stringValue(current, "category_id"), ReadOnly: true},
		{Name: "group_id", Label: "Discourse Group ID", Kind: KindText, Default: stringValue(current, "group_id"), ReadOnly: true},
		{Name: "group_name", Label: "Discourse Group Name", Kind: KindText, Default: stringValue(current, "group_name"), ReadOnly: true},
		{Name: "push_to_discourse", Label: "Push Group to Discourse", Kind: KindCheckbox, Default: boolValue(current, "push_to_discourse", ctx.SyncDefault)},
	}
}

// IsEmpty keys on the forum category id.
func (GroupLink) IsEmpty(current Value) bool {
	return stringValue(current, "category_id") == ""
}

// CommentsMeta ties a content item to its forum comment topic.
type CommentsMeta struct{}

func (CommentsMeta) Name() string { return "discourse_comments" }

func (CommentsMeta) BuildInputs(current Value, ctx Context) []FieldSpec {
	options := make(map[string]string, len(ctx.Categories))
	for _, category := range ctx.Categories {
		options[strconv.FormatInt(category.ID, 10)] = category.Name
	}

	selected := stringValue(current, "category")
	if selected == "" && ctx.DefaultCategory != 0 {
		selected = strconv.FormatInt(ctx.DefaultCategory, 10)
	}

	return []FieldSpec{
		{Name: "topic_id", Label: "Discourse Topic ID", Kind: KindText, Default: stringValue(current, "topic_id"), ReadOnly: true},
		{Name: "topic_url", Label: "Discourse Topic URL", Kind: KindText, Default: stringValue(current, "topic_url"), ReadOnly: true},
		{Name: "comment_count", Label: "Discourse Comment Count", Kind: KindText, Default: stringValue(current, "comment_count"), ReadOnly: true},
		{Name: "push_to_discourse", Label: "Push to Discourse", Kind: KindCheckbox, Default: boolValue(current, "push_to_discourse", ctx.SyncDefault)},
		{Name: "category", Label: "Category", Kind: KindSelect, Default: selected, Options: options},
	}
}

// IsEmpty keys on the forum topic id.
func (CommentsMeta) IsEmpty(current Value) bool {
	return stringValue(current, "topic_id") == ""
}
