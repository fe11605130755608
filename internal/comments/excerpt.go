// Discourse Bridge - CMS to Discourse Forum Synchronization
// Copyright 2026 Quill CMS contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quillcms/discourse-bridge

package comments

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// excerptMaxLen is the excerpt length cap in runes, including the
	// appended ellipsis.
	excerptMaxLen = 100

	// excerptWordSafeMin is the shortest word-safe cut. A boundary closer
	// to the start than this is ignored and the text is cut hard.
	excerptWordSafeMin = 10

	ellipsis = "…"
)

// Excerpt renders a comment's HTML body as a short plain-text preview:
// tags are stripped, and text longer than the cap is cut at a word
// boundary where one exists and suffixed with an ellipsis.
func Excerpt(html string) string {
	return truncateWordSafe(stripTags(html), excerptMaxLen, excerptWordSafeMin)
}

// stripTags removes HTML tags, keeping only text content. Unclosed tags
// swallow the remainder of the input, matching common strip implementations.
func stripTags(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inTag := false
	for _, r := range s {
		switch {
		case inTag:
			if r == '>' {
				inTag = false
			}
		case r == '<':
			inTag = true
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// truncateWordSafe cuts s to at most maxLen runes including the ellipsis.
// The cut backtracks to the last word boundary, unless that boundary would
// leave fewer than minLen runes.
func truncateWordSafe(s string, maxLen, minLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}

	// Reserve one rune for the ellipsis.
	runes := []rune(s)[:maxLen-1]

	cut := len(runes)
	for i := len(runes) - 1; i >= minLen; i-- {
		if unicode.IsSpace(runes[i]) {
			cut = i
			break
		}
	}

	out := strings.TrimRightFunc(string(runes[:cut]), unicode.IsSpace)
	return out + ellipsis
}
