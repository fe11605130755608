// Discourse Bridge - CMS to Discourse Forum Synchronization
// Copyright 2026 Quill CMS contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quillcms/discourse-bridge

/*
client.go - Typed Discourse API Client

The client wraps the transport with one method per remote operation:
user listing, topic retrieval, category and group management, user
provisioning, and topic posting. Every method preserves the transport's
(result, ok) convention: a false return means the operation failed and was
already logged; no error crosses this boundary.

Caching: only the anonymous category list is cached (12 hours under a
fixed key). Per-user category listings reflect remote permissions and are
never cached.
*/
package discourse

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"github.com/quillcms/discourse-bridge/internal/cache"
	"github.com/quillcms/discourse-bridge/internal/logging"
	"github.com/quillcms/discourse-bridge/internal/metrics"
)

const (
	// categoryCacheKey holds the decoded anonymous category list.
	categoryCacheKey = "discourse_category"

	// categoryCacheTTL is how long the category list is served from cache.
	categoryCacheTTL = 12 * time.Hour
)

// Client is the typed Discourse API client.
//
// Thread Safety: safe for concurrent use.
type Client struct {
	transport     *Transport
	cache         *cache.Cache
	defaultAvatar string
}

// NewClient creates a client over the given transport. responseCache backs
// the category list; defaultAvatar is the bundled fallback avatar path.
func NewClient(transport *Transport, responseCache *cache.Cache, defaultAvatar string) *Client {
	return &Client{
		transport:     transport,
		cache:         responseCache,
		defaultAvatar: defaultAvatar,
	}
}

// BaseURL returns the remote instance's base URL.
func (c *Client) BaseURL() string {
	return c.transport.BaseURL()
}

// DefaultAvatar returns the configured fallback avatar path.
func (c *Client) DefaultAvatar() string {
	return c.defaultAvatar
}

// decodeInto unmarshals a raw API response, logging decode failures with
// the endpoint for context.
func decodeInto[T any](raw []byte, endpoint string) (*T, bool) {
	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		logging.Error().Err(err).Str("endpoint", endpoint).Msg("Failed to decode Discourse response")
		return nil, false
	}
	return out, true
}

// ListUsers fetches one page of the admin "new users" listing, newest
// first. Page numbering starts at 1; a page past the end decodes to an
// empty slice. extra query parameters are appended as-is.
func (c *Client) ListUsers(ctx context.Context, page int, extra url.Values) ([]RemoteUser, bool) {
	path := "/admin/users/list/new.json?page=" + strconv.Itoa(page)
	if len(extra) > 0 {
		path += "&" + extra.Encode()
	}

	raw, ok := c.transport.Do(ctx, "GET", path, nil, nil)
	if !ok {
		return nil, false
	}

	users, ok := decodeInto[[]RemoteUser](raw, path)
	if !ok {
		return nil, false
	}
	return *users, true
}

// GetTopic fetches a topic with its post stream.
func (c *Client) GetTopic(ctx context.Context, topicID int64) (*Topic, bool) {
	path := fmt.Sprintf("/t/%d.json", topicID)
	raw, ok := c.transport.Do(ctx, "GET", path, nil, nil)
	if !ok {
		return nil, false
	}
	return decodeInto[Topic](raw, path)
}

// Categories returns the category list visible to the service account.
// The decoded list is cached for 12 hours; a cache hit never touches the
// remote API.
func (c *Client) Categories(ctx context.Context) (*CategoryList, bool) {
	if cached, ok := c.cache.Get(categoryCacheKey); ok {
		metrics.CacheHits.WithLabelValues(categoryCacheKey).Inc()
		if list, ok := cached.(*CategoryList); ok {
			return list, true
		}
	}
	metrics.CacheMisses.WithLabelValues(categoryCacheKey).Inc()

	raw, ok := c.transport.Do(ctx, "GET", "/categories.json", nil, nil)
	if !ok {
		return nil, false
	}

	list, ok := decodeInto[CategoryList](raw, "/categories.json")
	if !ok {
		return nil, false
	}

	c.cache.Set(categoryCacheKey, list, categoryCacheTTL)
	return list, true
}

// UserCategories returns the category list visible to a specific user by
// overriding the signing username. The result reflects per-user
// permissions and is never cached.
func (c *Client) UserCategories(ctx context.Context, username string) (*CategoryList, bool) {
	if username == "" {
		return nil, false
	}
	headers := map[string]string{headerAPIUsername: username}
	raw, ok := c.transport.Do(ctx, "GET", "/categories.json", headers, nil)
	if !ok {
		return nil, false
	}
	return decodeInto[CategoryList](raw, "/categories.json")
}

// CreateCategory creates a remote category and returns its raw response.
func (c *Client) CreateCategory(ctx context.Context, form url.Values) ([]byte, bool) {
	return c.transport.Do(ctx, "POST", "/categories.json", nil, form)
}

// GetCategory fetches a single category.
func (c *Client) GetCategory(ctx context.Context, categoryID int64) ([]byte, bool) {
	return c.transport.Do(ctx, "GET", fmt.Sprintf("/c/%d/show.json", categoryID), nil, nil)
}

// UpdateCategory updates a remote category.
func (c *Client) UpdateCategory(ctx context.Context, categoryID int64, form url.Values) ([]byte, bool) {
	return c.transport.Do(ctx, "PUT", fmt.Sprintf("/categories/%d.json", categoryID), nil, form)
}

// DeleteCategory deletes a remote category.
func (c *Client) DeleteCategory(ctx context.Context, categoryID int64) ([]byte, bool) {
	return c.transport.Do(ctx, "DELETE", fmt.Sprintf("/categories/%d.json", categoryID), nil, nil)
}

// CreateGroup creates a remote group.
func (c *Client) CreateGroup(ctx context.Context, form url.Values) ([]byte, bool) {
	return c.transport.Do(ctx, "POST", "/admin/groups.json", nil, form)
}

// GetGroup fetches a group by its name (groups are addressed by name on
// read, by id on write).
func (c *Client) GetGroup(ctx context.Context, groupName string) ([]byte, bool) {
	return c.transport.Do(ctx, "GET", fmt.Sprintf("/groups/%s.json", url.PathEscape(groupName)), nil, nil)
}

// UpdateGroup updates a remote group.
func (c *Client) UpdateGroup(ctx context.Context, groupID int64, form url.Values) ([]byte, bool) {
	return c.transport.Do(ctx, "PUT", fmt.Sprintf("/groups/%d.json", groupID), nil, form)
}

// DeleteGroup deletes a remote group.
func (c *Client) DeleteGroup(ctx context.Context, groupID int64) ([]byte, bool) {
	return c.transport.Do(ctx, "DELETE", fmt.Sprintf("/admin/groups/%d.json", groupID), nil, nil)
}

// AddGroupMembers adds users to a group. usernames is a comma-separated
// list as the membership endpoint expects.
func (c *Client) AddGroupMembers(ctx context.Context, groupID int64, usernames string) ([]byte, bool) {
	form := url.Values{"usernames": {usernames}}
	return c.transport.Do(ctx, "PUT", fmt.Sprintf("/groups/%d/members.json", groupID), nil, form)
}

// RemoveGroupMembers removes users from a group. usernames is a
// comma-separated list.
func (c *Client) RemoveGroupMembers(ctx context.Context, groupID int64, usernames string) ([]byte, bool) {
	form := url.Values{"usernames": {usernames}}
	return c.transport.Do(ctx, "DELETE", fmt.Sprintf("/groups/%d/members.json", groupID), nil, form)
}

// CreateUser provisions a remote user account.
func (c *Client) CreateUser(ctx context.Context, form url.Values) ([]byte, bool) {
	return c.transport.Do(ctx, "POST", "/users.json", nil, form)
}

// DeleteUser deletes a remote user account. form carries deletion options
// such as block_email or delete_posts.
func (c *Client) DeleteUser(ctx context.Context, userID int64, form url.Values) ([]byte, bool) {
	return c.transport.Do(ctx, "DELETE", fmt.Sprintf("/admin/users/%d.json", userID), nil, form)
}

// UpdateUserName updates a remote user's profile, addressed by the
// current username.
func (c *Client) UpdateUserName(ctx context.Context, username string, form url.Values) ([]byte, bool) {
	return c.transport.Do(ctx, "PUT", fmt.Sprintf("/u/%s.json", url.PathEscape(username)), nil, form)
}

// PostTopic creates a topic (or reply) on the remote forum. form carries
// title, raw, and category fields.
func (c *Client) PostTopic(ctx context.Context, form url.Values) ([]byte, bool) {
	return c.transport.Do(ctx, "POST", "/posts.json", nil, form)
}
