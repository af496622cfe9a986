// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 markdown-notes-app contributors
// https://github.com/testbenchcc/markdown-notes-app

package app

import (
	"fmt"
	"runtime"
)

// Version information, injected at build time via -ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = ""
)

// PrintVersion prints build information to stdout.
func PrintVersion() {
	fmt.Printf("notesd %s\n", Version)
	fmt.Printf("  commit:     %s\n", Commit)
	if BuildTime != "" {
		fmt.Printf("  built:      %s\n", BuildTime)
	}
	fmt.Printf("  go version: %s\n", runtime.Version())
	fmt.Printf("  platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
