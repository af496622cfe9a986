// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 markdown-notes-app contributors
// https://github.com/testbenchcc/markdown-notes-app

package sync

import "strings"

// redactPlaceholder replaces credential material in reported text.
const redactPlaceholder = "****"

// Redact removes every occurrence of secret from text. Applied to all
// command/API error output before it enters a result value or a log line, so
// an access token embedded in a remote URL can never leak through error
// reporting.
func Redact(text, secret string) string {
	if secret == "" || text == "" {
		return text
	}
	return strings.ReplaceAll(text, secret, redactPlaceholder)
}
