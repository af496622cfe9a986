// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 markdown-notes-app contributors
// https://github.com/testbenchcc/markdown-notes-app

package logger

import (
	"testing"
)

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"token", true},
		{"TOKEN", true},
		{"sync_token", true},
		{"Authorization", true},
		{"password", true},
		{"private_key", true},
		{"notes_dir", false},
		{"sync_mode", false},
		{"remote_url", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsSensitiveKey(tt.key); got != tt.want {
			t.Errorf("IsSensitiveKey(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestSanitizeField(t *testing.T) {
	if got := SanitizeField("token", "ghp_secret"); got != RedactValue() {
		t.Errorf("expected redacted token, got %v", got)
	}
	if got := SanitizeField("path", "notes/a.md"); got != "notes/a.md" {
		t.Errorf("expected passthrough, got %v", got)
	}
}

func TestSanitizeStringMap(t *testing.T) {
	in := map[string]string{
		"token":     "ghp_secret",
		"notes_dir": "/data/notes",
	}

	out := SanitizeStringMap(in)

	if out["token"] != RedactValue() {
		t.Errorf("expected token redacted, got %q", out["token"])
	}
	if out["notes_dir"] != "/data/notes" {
		t.Errorf("expected notes_dir untouched, got %q", out["notes_dir"])
	}
	// Input map is not mutated.
	if in["token"] != "ghp_secret" {
		t.Error("input map was mutated")
	}
}

func TestSanitizeMap(t *testing.T) {
	in := map[string]interface{}{
		"secret": 12345,
		"count":  7,
	}

	out := SanitizeMap(in)

	if out["secret"] != RedactValue() {
		t.Errorf("expected secret redacted, got %v", out["secret"])
	}
	if out["count"] != 7 {
		t.Errorf("expected count untouched, got %v", out["count"])
	}
}
