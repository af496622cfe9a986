// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 markdown-notes-app contributors
// https://github.com/testbenchcc/markdown-notes-app

// Package gitexec runs git commands for the local sync backend. A non-zero
// exit is a normal, reportable outcome; only launch failures and timeouts
// come back as errors.
package gitexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// DefaultTimeout bounds a single git invocation. Network operations against
// a slow remote are the long pole; everything local completes in well under
// a second.
const DefaultTimeout = 120 * time.Second

// Result is the normalized outcome of one git invocation.
type Result struct {
	OK       bool
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes a git command in a working tree. Implementations must
// encode non-zero exits in the Result, not the error.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (Result, error)
}

// ExecRunner shells out to the git binary.
type ExecRunner struct {
	// GitPath is the git executable to invoke. Defaults to "git" on PATH.
	GitPath string

	// Timeout bounds each invocation when the caller's context has no
	// earlier deadline.
	Timeout time.Duration
}

// New returns an ExecRunner with default binary and timeout.
func New() *ExecRunner {
	return &ExecRunner{
		GitPath: "git",
		Timeout: DefaultTimeout,
	}
}

// Run executes git with the given arguments in dir.
func (r *ExecRunner) Run(ctx context.Context, dir string, args ...string) (Result, error) {
	gitPath := r.GitPath
	if gitPath == "" {
		gitPath = "git"
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, gitPath, args...)
	cmd.Dir = dir
	// Never block on an interactive credential prompt.
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err == nil {
		result.OK = true
		return result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, fmt.Errorf("git %v timed out: %w", args, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}

	// Launch failure (binary missing, permission denied).
	return result, fmt.Errorf("run git %v: %w", args, err)
}
