// Copyright (c) 2026 Whisperwall Contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"strings"
	"testing"
)

func TestMarkdown_BasicFormatting(t *testing.T) {
	got := string(Markdown("some **bold** text"))
	if !strings.Contains(got, "<strong>bold</strong>") {
		t.Errorf("Markdown() = %q, want bold rendered as <strong>", got)
	}
}

func TestMarkdown_StripsScripts(t *testing.T) {
	got := string(Markdown(`hello <script>alert("xss")</script> world`))
	if strings.Contains(got, "<script") {
		t.Errorf("Markdown() = %q, script tag not stripped", got)
	}
	if !strings.Contains(got, "hello") || !strings.Contains(got, "world") {
		t.Errorf("Markdown() = %q, surrounding text lost", got)
	}
}

func TestMarkdown_StripsEventHandlers(t *testing.T) {
	got := string(Markdown(`<img src="x" onerror="alert(1)">`))
	if strings.Contains(got, "onerror") {
		t.Errorf("Markdown() = %q, event handler not stripped", got)
	}
}

func TestMarkdown_Empty(t *testing.T) {
	if got := string(Markdown("")); strings.TrimSpace(got) != "" {
		t.Errorf("Markdown(\"\") = %q, want empty", got)
	}
}
