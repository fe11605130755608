// Discourse Bridge - CMS to Discourse Forum Synchronization
// Copyright 2026 Quill CMS contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quillcms/discourse-bridge

package discourse

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/quillcms/discourse-bridge/internal/cache"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	transport := NewTransport(server.URL, "test-key", "system")
	return NewClient(transport, cache.New(), "images/user-default.png"), server
}

func TestListUsers(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/users/list/new.json" {
			http.NotFound(w, r)
			return
		}
		switch r.URL.Query().Get("page") {
		case "1":
			w.Write([]byte(`[{"id": 101, "username": "alice"}, {"id": 102, "username": "bob"}]`))
		default:
			w.Write([]byte(`[]`))
		}
	}))

	users, ok := client.ListUsers(context.Background(), 1, nil)
	if !ok {
		t.Fatal("ListUsers() returned ok=false, want true")
	}
	if len(users) != 2 {
		t.Fatalf("ListUsers() returned %d users, want 2", len(users))
	}
	if users[0].ID != 101 || users[0].Username != "alice" {
		t.Errorf("users[0] = %+v, want id=101 username=alice", users[0])
	}

	empty, ok := client.ListUsers(context.Background(), 2, nil)
	if !ok {
		t.Fatal("ListUsers() page 2 returned ok=false, want true")
	}
	if len(empty) != 0 {
		t.Errorf("ListUsers() page 2 returned %d users, want 0", len(empty))
	}
}

func TestListUsersExtraParams(t *testing.T) {
	t.Parallel()

	var gotQuery url.Values
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(`[]`))
	}))

	extra := url.Values{"show_emails": {"true"}}
	_, ok := client.ListUsers(context.Background(), 3, extra)
	if !ok {
		t.Fatal("ListUsers() returned ok=false, want true")
	}
	if gotQuery.Get("page") != "3" {
		t.Errorf("page = %q, want 3", gotQuery.Get("page"))
	}
	if gotQuery.Get("show_emails") != "true" {
		t.Errorf("show_emails = %q, want true", gotQuery.Get("show_emails"))
	}
}

func TestGetTopic(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/t/77.json" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{
			"id": 77,
			"title": "Release notes",
			"post_stream": {"posts": [
				{"id": 1, "topic_id": 77, "username": "system", "cooked": "<p>root</p>"},
				{"id": 2, "topic_id": 77, "username": "alice", "cooked": "<p>nice</p>"}
			]}
		}`))
	}))

	topic, ok := client.GetTopic(context.Background(), 77)
	if !ok {
		t.Fatal("GetTopic() returned ok=false, want true")
	}
	if topic.ID != 77 || topic.Title != "Release notes" {
		t.Errorf("topic = %+v, want id=77 title=Release notes", topic)
	}
	if len(topic.PostStream.Posts) != 2 {
		t.Fatalf("post stream has %d posts, want 2", len(topic.PostStream.Posts))
	}
	if topic.PostStream.Posts[1].Username != "alice" {
		t.Errorf("posts[1].Username = %q, want alice", topic.PostStream.Posts[1].Username)
	}
}

func TestGetTopicDecodeFailure(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))

	_, ok := client.GetTopic(context.Background(), 1)
	if ok {
		t.Error("GetTopic() returned ok=true for malformed body, want false")
	}
}

func TestCategoriesCached(t *testing.T) {
	t.Parallel()

	var calls int64
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.Write([]byte(`{"category_list": {"categories": [{"id": 5, "name": "General"}]}}`))
	}))

	first, ok := client.Categories(context.Background())
	if !ok {
		t.Fatal("Categories() first call returned ok=false, want true")
	}
	second, ok := client.Categories(context.Background())
	if !ok {
		t.Fatal("Categories() second call returned ok=false, want true")
	}

	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Errorf("remote called %d times across two Categories() calls, want 1", got)
	}
	if first != second {
		t.Error("second Categories() call returned a different instance, want cached")
	}
	if len(first.CategoryList.Categories) != 1 || first.CategoryList.Categories[0].Name != "General" {
		t.Errorf("categories = %+v, want one category named General", first.CategoryList.Categories)
	}
}

func TestUserCategoriesNeverCached(t *testing.T) {
	t.Parallel()

	var calls int64
	var gotUsernames []string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		gotUsernames = append(gotUsernames, r.Header.Get("Api-Username"))
		w.Write([]byte(`{"category_list": {"categories": []}}`))
	}))

	for i := 0; i < 2; i++ {
		if _, ok := client.UserCategories(context.Background(), "alice"); !ok {
			t.Fatal("UserCategories() returned ok=false, want true")
		}
	}

	if got := atomic.LoadInt64(&calls); got != 2 {
		t.Errorf("remote called %d times, want 2 (per-user listing is never cached)", got)
	}
	for _, username := range gotUsernames {
		if username != "alice" {
			t.Errorf("Api-Username = %q, want alice", username)
		}
	}
}

func TestUserCategoriesEmptyUsername(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("remote should not be called for an empty username")
	}))

	_, ok := client.UserCategories(context.Background(), "")
	if ok {
		t.Error("UserCategories(\"\") returned ok=true, want false")
	}
}

func TestGroupMembership(t *testing.T) {
	t.Parallel()

	type call struct {
		method    string
		path      string
		usernames string
	}
	var calls []call
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// DELETE bodies are urlencoded and not parsed by ParseForm, so
		// read the body by content type.
		var usernames string
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			r.ParseMultipartForm(1 << 20)
			usernames = r.FormValue("usernames")
		} else {
			body, _ := io.ReadAll(r.Body)
			values, _ := url.ParseQuery(string(body))
			usernames = values.Get("usernames")
		}
		calls = append(calls, call{r.Method, r.URL.Path, usernames})
		w.Write([]byte(`{"success": "OK"}`))
	}))

	if _, ok := client.AddGroupMembers(context.Background(), 9, "alice,bob"); !ok {
		t.Fatal("AddGroupMembers() returned ok=false, want true")
	}
	if _, ok := client.RemoveGroupMembers(context.Background(), 9, "bob"); !ok {
		t.Fatal("RemoveGroupMembers() returned ok=false, want true")
	}

	if len(calls) != 2 {
		t.Fatalf("remote saw %d calls, want 2", len(calls))
	}
	if calls[0].method != "PUT" || calls[0].path != "/groups/9/members.json" || calls[0].usernames != "alice,bob" {
		t.Errorf("add call = %+v, want PUT /groups/9/members.json usernames=alice,bob", calls[0])
	}
	if calls[1].method != "DELETE" || calls[1].path != "/groups/9/members.json" || calls[1].usernames != "bob" {
		t.Errorf("remove call = %+v, want DELETE /groups/9/members.json usernames=bob", calls[1])
	}
}

func TestEndpointPaths(t *testing.T) {
	t.Parallel()

	var gotMethod, gotPath string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.Write([]byte(`{}`))
	}))

	ctx := context.Background()
	form := url.Values{"name": {"x"}}

	tests := []struct {
		name       string
		invoke     func() bool
		wantMethod string
		wantPath   string
	}{
		{"create category", func() bool { _, ok := client.CreateCategory(ctx, form); return ok }, "POST", "/categories.json"},
		{"get category", func() bool { _, ok := client.GetCategory(ctx, 3); return ok }, "GET", "/c/3/show.json"},
		{"update category", func() bool { _, ok := client.UpdateCategory(ctx, 3, form); return ok }, "PUT", "/categories/3.json"},
		{"delete category", func() bool { _, ok := client.DeleteCategory(ctx, 3); return ok }, "DELETE", "/categories/3.json"},
		{"create group", func() bool { _, ok := client.CreateGroup(ctx, form); return ok }, "POST", "/admin/groups.json"},
		{"get group", func() bool { _, ok := client.GetGroup(ctx, "editors"); return ok }, "GET", "/groups/editors.json"},
		{"update group", func() bool { _, ok := client.UpdateGroup(ctx, 4, form); return ok }, "PUT", "/groups/4.json"},
		{"delete group", func() bool { _, ok := client.DeleteGroup(ctx, 4); return ok }, "DELETE", "/admin/groups/4.json"},
		{"create user", func() bool { _, ok := client.CreateUser(ctx, form); return ok }, "POST", "/users.json"},
		{"delete user", func() bool { _, ok := client.DeleteUser(ctx, 12, form); return ok }, "DELETE", "/admin/users/12.json"},
		{"update username", func() bool { _, ok := client.UpdateUserName(ctx, "alice", form); return ok }, "PUT", "/u/alice.json"},
		{"post topic", func() bool { _, ok := client.PostTopic(ctx, form); return ok }, "POST", "/posts.json"},
	}

	for _, tt := range tests {
		if !tt.invoke() {
			t.Errorf("%s: returned ok=false, want true", tt.name)
			continue
		}
		if gotMethod != tt.wantMethod || gotPath != tt.wantPath {
			t.Errorf("%s: saw %s %s, want %s %s", tt.name, gotMethod, gotPath, tt.wantMethod, tt.wantPath)
		}
	}
}
