// Copyright (c) 2026 Whisperwall Contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"bytes"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

// htmlSanitizer strips dangerous markup from rendered confession bodies.
// It uses bluemonday's UGCPolicy which allows safe HTML tags for
// user-generated content while removing scripts and event handlers.
var htmlSanitizer = bluemonday.UGCPolicy()

// Markdown converts untrusted markdown to sanitized HTML.
// On conversion failure the raw text is sanitized and returned as-is,
// so a malformed confession never breaks the feed.
func Markdown(content string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(content), &buf); err != nil {
		return template.HTML(htmlSanitizer.Sanitize(content)) //nolint:gosec // sanitized above
	}
	return template.HTML(htmlSanitizer.SanitizeBytes(buf.Bytes())) //nolint:gosec // sanitized above
}
