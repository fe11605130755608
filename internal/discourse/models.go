// Discourse Bridge - CMS to Discourse Forum Synchronization
// Copyright 2026 Quill CMS contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quillcms/discourse-bridge

package discourse

import "time"

// RemoteUser is one entry of the admin user listing. Identity key is ID;
// the snapshot is read-only and never persisted by the bridge itself.
type RemoteUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Category is an immutable mirror of a remote category.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CategoryList is the response shape of /categories.json.
type CategoryList struct {
	CategoryList struct {
		Categories []Category `json:"categories"`
	} `json:"category_list"`
}

// Post is one entry of a topic's post stream. The first post in the stream
// is the topic root itself; only subsequent posts are comments.
type Post struct {
	ID             int64     `json:"id"`
	TopicID        int64     `json:"topic_id"`
	Username       string    `json:"username"`
	CreatedAt      time.Time `json:"created_at"`
	Cooked         string    `json:"cooked"`
	UserDeleted    bool      `json:"user_deleted"`
	AvatarTemplate string    `json:"avatar_template"`
}

// Topic is the response shape of /t/{id}.json.
type Topic struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	PostStream struct {
		Posts []Post `json:"posts"`
	} `json:"post_stream"`
}
