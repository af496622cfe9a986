// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 markdown-notes-app contributors
// https://github.com/testbenchcc/markdown-notes-app

// Package sync defines the shared contracts of the notes-repository
// synchronization core: the sync-state classification, the structured result
// types returned by the commit/push/pull engines, and the Syncer interface
// implemented by both the local-git and GitHub API backends.
//
// Expected failures (no remote, detached HEAD, nothing to commit, rebase
// conflict) are encoded in the result values, never returned as errors. Only
// fatal environment problems (working tree cannot be created, transport
// cannot launch) surface as Go errors.
package sync

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ============================================================================
// Sync state
// ============================================================================

// State classifies the local working tree relative to its upstream.
type State string

const (
	StateUpToDate   State = "up_to_date"
	StateAhead      State = "ahead"
	StateBehind     State = "behind"
	StateDiverged   State = "diverged"
	StateNoUpstream State = "no_upstream"
	StateUnknown    State = "unknown"
)

// Classify derives the sync state from the local head, upstream head, and
// their merge base. Empty local or upstream identifiers mean the ref could
// not be resolved.
func Classify(local, upstream, mergeBase string) State {
	if local == "" || upstream == "" {
		return StateUnknown
	}
	switch {
	case local == upstream:
		return StateUpToDate
	case mergeBase == "":
		return StateUnknown
	case local == mergeBase && upstream != mergeBase:
		return StateBehind
	case upstream == mergeBase && local != mergeBase:
		return StateAhead
	default:
		return StateDiverged
	}
}

// StateInfo is the full answer of the state accessor: the classification plus
// the refs it was derived from.
type StateInfo struct {
	State     State  `json:"state"`
	Branch    string `json:"branch,omitempty"`
	Local     string `json:"local,omitempty"`
	Upstream  string `json:"upstream,omitempty"`
	MergeBase string `json:"mergeBase,omitempty"`
	Dirty     bool   `json:"dirty"`
	Detail    string `json:"detail,omitempty"`
}

// ============================================================================
// Operation results
// ============================================================================

// Push/pull status values.
const (
	StatusOK       = "ok"
	StatusSkipped  = "skipped"
	StatusError    = "error"
	StatusConflict = "conflict"
)

// Reset outcomes reported by the pull engine after conflict recovery.
const (
	ResetToRemote = "reset-to-remote"
	ResetFailed   = "reset-failed"
	ResetSkipped  = "reset-skipped"
)

// CommitResult describes the outcome of a commit attempt. Committed=false
// with a Summary is the normal "nothing to do" or "commit failed" answer, not
// an error.
type CommitResult struct {
	Committed bool   `json:"committed"`
	Hexsha    string `json:"hexsha,omitempty"`
	Message   string `json:"message,omitempty"`
	Summary   string `json:"summary,omitempty"`
}

// PushResult describes the outcome of a push attempt.
type PushResult struct {
	Pushed bool   `json:"pushed"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
	Remote string `json:"remote,omitempty"`
	Branch string `json:"branch,omitempty"`
}

// PullResult describes the outcome of a pull attempt, including the conflict
// recovery bookkeeping when the integration failed.
type PullResult struct {
	Status         string `json:"status"`
	Branch         string `json:"branch,omitempty"`
	LocalBefore    string `json:"localBefore,omitempty"`
	LocalAfter     string `json:"localAfter,omitempty"`
	RemoteBefore   string `json:"remoteBefore,omitempty"`
	ConflictBranch string `json:"conflictBranch,omitempty"`
	ResetStatus    string `json:"resetStatus,omitempty"`
	Detail         string `json:"detail,omitempty"`
	Error          string `json:"error,omitempty"`
}

// CommitAndPushResult is the composite result of a commit followed by a push.
type CommitAndPushResult struct {
	Committed bool         `json:"committed"`
	Commit    CommitResult `json:"commit"`
	Pushed    bool         `json:"pushed"`
	Push      PushResult   `json:"push"`
}

// ============================================================================
// Syncer
// ============================================================================

// Syncer is the backend contract the engines and the scheduler are written
// against. Both the local-git and the GitHub API backends implement it.
type Syncer interface {
	// State derives the sync classification without mutating the tree.
	State(ctx context.Context) (StateInfo, error)

	// Commit stages all changes and commits them if anything changed.
	// An empty message selects the generated default.
	Commit(ctx context.Context, message string) (CommitResult, error)

	// Push uploads the active branch to the configured remote.
	Push(ctx context.Context) (PushResult, error)

	// Pull integrates the upstream tip, recovering onto a conflict branch
	// on failure.
	Pull(ctx context.Context) (PullResult, error)
}

// CommitAndPush runs a commit followed by a push against the same backend and
// combines the results.
func CommitAndPush(ctx context.Context, s Syncer, message string) (CommitAndPushResult, error) {
	commit, err := s.Commit(ctx, message)
	if err != nil {
		return CommitAndPushResult{Committed: commit.Committed, Commit: commit}, err
	}

	push, err := s.Push(ctx)
	return CommitAndPushResult{
		Committed: commit.Committed,
		Commit:    commit,
		Pushed:    push.Pushed,
		Push:      push,
	}, err
}

// ============================================================================
// Conflict branch naming
// ============================================================================

const conflictBranchPrefix = "conflict"

// ConflictBranchName builds the deterministic snapshot branch name used by
// pull recovery: conflict-<UTC timestamp>-<sanitized host>. Only the first
// DNS label of the hostname is used; characters outside [A-Za-z0-9_-] are
// dropped, and "host" stands in when nothing survives.
func ConflictBranchName(now time.Time, hostname string) string {
	ts := now.UTC().Format("20060102-150405")

	host := hostname
	if i := strings.IndexByte(host, '.'); i >= 0 {
		host = host[:i]
	}

	var b strings.Builder
	for _, ch := range host {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == '-', ch == '_':
			b.WriteRune(ch)
		}
	}

	safe := b.String()
	if safe == "" {
		safe = "host"
	}

	return fmt.Sprintf("%s-%s-%s", conflictBranchPrefix, ts, safe)
}

// CommitInfo is one entry of the notes history listing.
type CommitInfo struct {
	Hexsha  string    `json:"hexsha"`
	Author  string    `json:"author,omitempty"`
	Email   string    `json:"email,omitempty"`
	Date    time.Time `json:"date"`
	Message string    `json:"message"`
}

// GitignoreResult reports a .gitignore pattern add or remove.
type GitignoreResult struct {
	Path    string   `json:"path"`
	Pattern string   `json:"pattern"`
	Added   bool     `json:"added,omitempty"`
	Removed bool     `json:"removed,omitempty"`
	Lines   []string `json:"lines"`
}
