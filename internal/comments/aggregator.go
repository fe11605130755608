// Discourse Bridge - CMS to Discourse Forum Synchronization
// Copyright 2026 Quill CMS contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quillcms/discourse-bridge

/*
Package comments builds the "latest comments" digest shown on the CMS
side: the newest forum comments across the most recent published articles
that have a comment topic.

The digest walks the post streams of up to 20 recent topics, drops topic
roots and deleted-user posts, ranks the remainder by creation time, and
resolves each surviving entry's avatar and article link. The finished
list is cached under a single key for a configurable lifetime.

Candidates are indexed by their creation timestamp in seconds, so two
comments posted within the same second across different topics occupy one
slot and the later-visited one wins. Same-second collisions across topics
are rare enough in practice that the digest tolerates the dropped entry.
*/
package comments

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/quillcms/discourse-bridge/internal/cache"
	"github.com/quillcms/discourse-bridge/internal/discourse"
	"github.com/quillcms/discourse-bridge/internal/host"
	"github.com/quillcms/discourse-bridge/internal/logging"
	"github.com/quillcms/discourse-bridge/internal/metrics"
)

const (
	// latestCommentsKey holds the finished digest in the response cache.
	latestCommentsKey = "discourse_latest_comments"

	// topicLimit bounds how many recent topics feed one digest.
	topicLimit = 20

	// avatarSize replaces the {size} token in avatar templates.
	avatarSize = "90"

	// commentAnchor is appended to the article URL so the link lands on
	// the embedded comments section.
	commentAnchor = "#discourse-comment"
)

// Entry is one rendered digest item.
type Entry struct {
	// ID is the remote post id.
	ID int64 `json:"id"`

	// Username is the comment author's forum username.
	Username string `json:"username"`

	// AvatarURL is the resolved avatar image URL, or the bundled default
	// when the template's image is unreachable.
	AvatarURL string `json:"avatar_url"`

	// CommentURL is the article's canonical URL with the comment anchor.
	CommentURL string `json:"comment_url"`

	// Excerpt is the truncated plain-text comment body.
	Excerpt string `json:"excerpt"`

	// CreatedAt is the comment's creation time.
	CreatedAt time.Time `json:"created_at"`
}

// Aggregator assembles and caches the latest-comments digest.
type Aggregator struct {
	client  *discourse.Client
	content host.ContentStore
	cache   *cache.Cache

	// cacheLifetime is how long a finished digest is served from cache.
	cacheLifetime time.Duration

	// probe reports whether an avatar URL serves a retrievable image.
	// Replaceable in tests.
	probe func(url string) bool

	log zerolog.Logger
}

// NewAggregator creates an aggregator. cacheLifetimeMinutes follows the
// host setting of the same name.
func NewAggregator(client *discourse.Client, content host.ContentStore, responseCache *cache.Cache, cacheLifetimeMinutes int) *Aggregator {
	return &Aggregator{
		client:        client,
		content:       content,
		cache:         responseCache,
		cacheLifetime: time.Duration(cacheLifetimeMinutes) * time.Minute,
		probe:         probeImage,
		log:           logging.With().Str("component", "comments").Logger(),
	}
}

// SetLogger replaces the aggregator's logger. Useful in tests.
func (a *Aggregator) SetLogger(l zerolog.Logger) {
	a.log = l
}

// SetProbe replaces the avatar reachability probe. Useful in tests.
func (a *Aggregator) SetProbe(probe func(url string) bool) {
	a.probe = probe
}

// candidate is a comment post in the pre-resolution scratch structure.
type candidate struct {
	id             int64
	topicID        int64
	username       string
	userDeleted    bool
	avatarTemplate string
	excerpt        string
	createdAt      time.Time
}

// Latest returns the newest count comments across recent commented
// articles, newest first. A cached digest is returned as-is; otherwise the
// digest is rebuilt and cached. Failures shrink the result, never abort it.
func (a *Aggregator) Latest(ctx context.Context, count int) []Entry {
	if cached, ok := a.cache.Get(latestCommentsKey); ok {
		metrics.CacheHits.WithLabelValues(latestCommentsKey).Inc()
		if entries, ok := cached.([]Entry); ok {
			return entries
		}
	}
	metrics.CacheMisses.WithLabelValues(latestCommentsKey).Inc()

	entries := a.build(ctx, count)
	a.cache.Set(latestCommentsKey, entries, a.cacheLifetime)
	return entries
}

// build assembles a fresh digest.
func (a *Aggregator) build(ctx context.Context, count int) []Entry {
	topicIDs, err := a.content.TopicIDsWithComments(ctx, topicLimit)
	if err != nil {
		a.log.Error().Err(err).Msg("Failed to list commented content")
		return []Entry{}
	}

	// Scratch index keyed by creation time in unix seconds; a same-second
	// collision keeps only the later-visited post.
	byTimestamp := make(map[int64]candidate)
	for _, topicID := range topicIDs {
		topic, ok := a.client.GetTopic(ctx, topicID)
		if !ok {
			metrics.AggregatorTopicFetches.WithLabelValues("failure").Inc()
			continue
		}
		metrics.AggregatorTopicFetches.WithLabelValues("success").Inc()

		for i, post := range topic.PostStream.Posts {
			// The first post is the topic root, not a comment.
			if i == 0 {
				continue
			}
			if post.UserDeleted {
				continue
			}
			byTimestamp[post.CreatedAt.Unix()] = candidate{
				id:             post.ID,
				topicID:        post.TopicID,
				username:       post.Username,
				userDeleted:    post.UserDeleted,
				avatarTemplate: post.AvatarTemplate,
				excerpt:        Excerpt(post.Cooked),
				createdAt:      post.CreatedAt,
			}
		}
	}

	timestamps := make([]int64, 0, len(byTimestamp))
	for ts := range byTimestamp {
		timestamps = append(timestamps, ts)
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] > timestamps[j] })

	entries := make([]Entry, 0, count)
	for _, ts := range timestamps {
		c := byTimestamp[ts]
		if c.userDeleted {
			continue
		}

		content, err := a.content.ByTopicID(ctx, c.topicID)
		if err != nil {
			a.log.Info().Int64("topic_id", c.topicID).Msg("No content item for topic, skipping comment")
			continue
		}

		entries = append(entries, Entry{
			ID:         c.id,
			Username:   c.username,
			AvatarURL:  a.resolveAvatar(c.avatarTemplate),
			CommentURL: content.CanonicalURL + commentAnchor,
			Excerpt:    c.excerpt,
			CreatedAt:  c.createdAt,
		})
		if len(entries) >= count {
			break
		}
	}

	metrics.AggregatorComments.Add(float64(len(entries)))
	return entries
}

// resolveAvatar turns an avatar template into a concrete URL: relative
// templates get the forum base URL prefixed, the size token is substituted,
// and unreachable images fall back to the bundled default.
func (a *Aggregator) resolveAvatar(template string) string {
	var avatarURL string
	if strings.Contains(template, "https://") {
		avatarURL = strings.ReplaceAll(template, "{size}", avatarSize)
	} else {
		avatarURL = a.client.BaseURL() + strings.ReplaceAll(template, "{size}", avatarSize)
	}

	if a.probe(avatarURL) {
		return avatarURL
	}
	return a.client.DefaultAvatar()
}

// probeImage checks that a URL serves an image with a quick GET.
func probeImage(url string) bool {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}
	return strings.HasPrefix(resp.Header.Get("Content-Type"), "image/")
}
