// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 markdown-notes-app contributors
// https://github.com/testbenchcc/markdown-notes-app

// Package local implements the sync backend that operates on a local git
// checkout of the notes tree, shelling out through gitexec.
//
// The access token, when configured, is injected per command as an
// Authorization header override. It is never written into the repository
// configuration and is redacted from every piece of reported output.
package local

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/testbenchcc/markdown-notes-app/internal/pkg/errors"
	"github.com/testbenchcc/markdown-notes-app/internal/pkg/logger"
	notesync "github.com/testbenchcc/markdown-notes-app/internal/sync"
	"github.com/testbenchcc/markdown-notes-app/internal/sync/gitexec"
)

// Default committer identity, set only when the environment has none.
const (
	defaultUserName  = "Markdown Notes App"
	defaultUserEmail = "markdown-notes-app@example.local"
)

// Config holds the backend configuration.
type Config struct {
	// Root is the working tree containing the notes.
	Root string

	// RemoteURL is the optional origin URL (HTTPS form).
	RemoteURL string

	// Token is the optional access token used for network operations.
	// Held in memory only.
	Token string

	// Hostname overrides the local hostname used in conflict branch names.
	// Resolved via os.Hostname when empty.
	Hostname string
}

// Backend is the local-repository Syncer implementation.
type Backend struct {
	config Config
	runner gitexec.Runner
	logger *logger.Logger
}

// New creates a local backend. A nil runner gets the default ExecRunner and
// a nil logger is replaced with a no-op logger.
func New(config Config, runner gitexec.Runner, log *logger.Logger) *Backend {
	if runner == nil {
		runner = gitexec.New()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Backend{
		config: config,
		runner: runner,
		logger: log.Named("sync.local"),
	}
}

// ============================================================================
// Repository setup
// ============================================================================

// ensureRepo initializes the working tree as a git repository if needed and
// keeps the origin remote pointed at the configured URL. The plain URL is
// stored; credentials never enter git config.
func (b *Backend) ensureRepo(ctx context.Context) error {
	if err := os.MkdirAll(b.config.Root, 0o755); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "cannot create notes working tree")
	}

	if fi, err := os.Stat(filepath.Join(b.config.Root, ".git")); err != nil || !fi.IsDir() {
		if _, err := b.runner.Run(ctx, b.config.Root, "init"); err != nil {
			return err
		}
	}

	if b.config.RemoteURL == "" {
		return nil
	}

	res, err := b.runner.Run(ctx, b.config.Root, "remote", "get-url", "origin")
	if err != nil {
		return err
	}
	if !res.OK {
		_, err = b.runner.Run(ctx, b.config.Root, "remote", "add", "origin", b.config.RemoteURL)
	} else if strings.TrimSpace(res.Stdout) != b.config.RemoteURL {
		_, err = b.runner.Run(ctx, b.config.Root, "remote", "set-url", "origin", b.config.RemoteURL)
	}
	return err
}

// ensureIdentity sets a local committer identity when none is configured, so
// commits cannot fail in an unconfigured environment. Existing values win.
func (b *Backend) ensureIdentity(ctx context.Context) error {
	nameRes, err := b.runner.Run(ctx, b.config.Root, "config", "--get", "user.name")
	if err != nil {
		return err
	}
	hasName := nameRes.OK && strings.TrimSpace(nameRes.Stdout) != ""

	emailRes, err := b.runner.Run(ctx, b.config.Root, "config", "--get", "user.email")
	if err != nil {
		return err
	}
	hasEmail := emailRes.OK && strings.TrimSpace(emailRes.Stdout) != ""

	if !hasName {
		if _, err := b.runner.Run(ctx, b.config.Root, "config", "user.name", defaultUserName); err != nil {
			return err
		}
	}
	if !hasEmail {
		if _, err := b.runner.Run(ctx, b.config.Root, "config", "user.email", defaultUserEmail); err != nil {
			return err
		}
	}
	return nil
}

// ============================================================================
// Ref helpers
// ============================================================================

// currentBranch resolves the active branch name, or a reportable reason when
// the repository is detached or has no commits.
func (b *Backend) currentBranch(ctx context.Context) (string, string, error) {
	res, err := b.runner.Run(ctx, b.config.Root, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", "", err
	}
	if !res.OK {
		detail := res.Stderr
		if detail == "" {
			detail = res.Stdout
		}
		return "", b.sanitize(detail), nil
	}

	branch := strings.TrimSpace(res.Stdout)
	if branch == "" || branch == "HEAD" {
		return "", "Repository is in a detached HEAD state; cannot determine branch.", nil
	}
	return branch, "", nil
}

// revParse resolves a ref to a full hash, returning "" when unresolvable.
func (b *Backend) revParse(ctx context.Context, ref string) (string, error) {
	res, err := b.runner.Run(ctx, b.config.Root, "rev-parse", ref)
	if err != nil {
		return "", err
	}
	value := strings.TrimSpace(res.Stdout)
	if !res.OK || value == "" {
		return "", nil
	}
	return value, nil
}

// hasRemote reports whether an origin remote is configured.
func (b *Backend) hasRemote(ctx context.Context) (bool, error) {
	res, err := b.runner.Run(ctx, b.config.Root, "remote", "get-url", "origin")
	if err != nil {
		return false, err
	}
	return res.OK, nil
}

// ============================================================================
// Credential injection
// ============================================================================

// authArgs builds per-command config overrides carrying the token as a basic
// Authorization header for the remote's host. Empty when no token or no
// HTTPS remote is configured.
func (b *Backend) authArgs() []string {
	if b.config.Token == "" || !strings.HasPrefix(b.config.RemoteURL, "https://") {
		return nil
	}

	u, err := url.Parse(b.config.RemoteURL)
	if err != nil || u.Host == "" {
		return nil
	}

	cred := base64.StdEncoding.EncodeToString([]byte("x-access-token:" + b.config.Token))
	key := fmt.Sprintf("http.https://%s/.extraheader", u.Host)
	return []string{"-c", fmt.Sprintf("%s=Authorization: Basic %s", key, cred)}
}

// runNetwork runs a git command with credential injection applied.
func (b *Backend) runNetwork(ctx context.Context, args ...string) (gitexec.Result, error) {
	full := append(b.authArgs(), args...)
	return b.runner.Run(ctx, b.config.Root, full...)
}

// sanitize strips the token (and its encoded form) from reported text.
func (b *Backend) sanitize(text string) string {
	text = notesync.Redact(text, b.config.Token)
	if b.config.Token != "" {
		encoded := base64.StdEncoding.EncodeToString([]byte("x-access-token:" + b.config.Token))
		text = notesync.Redact(text, encoded)
	}
	return strings.TrimSpace(text)
}

// ============================================================================
// State
// ============================================================================

// State derives the sync classification of the working tree against its
// upstream. It never mutates the tree.
func (b *Backend) State(ctx context.Context) (notesync.StateInfo, error) {
	info := notesync.StateInfo{State: notesync.StateUnknown}

	branch, branchErr, err := b.currentBranch(ctx)
	if err != nil {
		return info, err
	}
	if branch == "" {
		info.Detail = branchErr
		return info, nil
	}
	info.Branch = branch

	statusRes, err := b.runner.Run(ctx, b.config.Root, "status", "--porcelain")
	if err != nil {
		return info, err
	}
	info.Dirty = statusRes.OK && strings.TrimSpace(statusRes.Stdout) != ""

	local, err := b.revParse(ctx, "HEAD")
	if err != nil {
		return info, err
	}
	if local == "" {
		return info, nil
	}
	info.Local = local

	upstream, err := b.revParse(ctx, "@{u}")
	if err != nil {
		return info, err
	}
	if upstream == "" {
		info.State = notesync.StateNoUpstream
		return info, nil
	}
	info.Upstream = upstream

	mergeBaseRes, err := b.runner.Run(ctx, b.config.Root, "merge-base", "HEAD", "@{u}")
	if err != nil {
		return info, err
	}
	mergeBase := ""
	if mergeBaseRes.OK {
		mergeBase = strings.TrimSpace(mergeBaseRes.Stdout)
	}
	info.MergeBase = mergeBase

	info.State = notesync.Classify(local, upstream, mergeBase)
	return info, nil
}

// ============================================================================
// Commit
// ============================================================================

// Commit stages all changes under the notes root and commits them when the
// tree is dirty. An empty message selects a generated timestamp message.
func (b *Backend) Commit(ctx context.Context, message string) (notesync.CommitResult, error) {
	if err := b.ensureRepo(ctx); err != nil {
		return notesync.CommitResult{}, err
	}
	if err := b.ensureIdentity(ctx); err != nil {
		return notesync.CommitResult{}, err
	}

	if _, err := b.runner.Run(ctx, b.config.Root, "add", "-A"); err != nil {
		return notesync.CommitResult{}, err
	}

	statusRes, err := b.runner.Run(ctx, b.config.Root, "status", "--porcelain")
	if err != nil {
		return notesync.CommitResult{}, err
	}
	dirty := statusRes.OK && strings.TrimSpace(statusRes.Stdout) != ""
	if !dirty {
		return notesync.CommitResult{
			Committed: false,
			Summary:   "No changes to commit",
		}, nil
	}

	if message == "" {
		message = fmt.Sprintf("Auto-commit notes at %sZ", time.Now().UTC().Format("2006-01-02T15:04:05"))
	}

	commitRes, err := b.runner.Run(ctx, b.config.Root, "commit", "-m", message)
	if err != nil {
		return notesync.CommitResult{}, err
	}
	if !commitRes.OK {
		summary := b.sanitize(commitRes.Stderr)
		if summary == "" {
			summary = "Commit failed"
		}
		return notesync.CommitResult{Committed: false, Summary: summary}, nil
	}

	hexsha, err := b.revParse(ctx, "HEAD")
	if err != nil {
		return notesync.CommitResult{}, err
	}

	b.logger.Info("committed notes", "hexsha", hexsha)
	return notesync.CommitResult{
		Committed: true,
		Hexsha:    hexsha,
		Message:   message,
	}, nil
}

// ============================================================================
// Push
// ============================================================================

// Push uploads the active branch to origin. Missing remote and detached HEAD
// are skips; a failed push is an error result, never a returned error.
func (b *Backend) Push(ctx context.Context) (notesync.PushResult, error) {
	if err := b.ensureRepo(ctx); err != nil {
		return notesync.PushResult{}, err
	}

	hasRemote, err := b.hasRemote(ctx)
	if err != nil {
		return notesync.PushResult{}, err
	}
	if !hasRemote {
		return notesync.PushResult{
			Pushed: false,
			Status: notesync.StatusSkipped,
			Detail: "No 'origin' remote configured.",
		}, nil
	}

	branch, branchErr, err := b.currentBranch(ctx)
	if err != nil {
		return notesync.PushResult{}, err
	}
	if branch == "" {
		detail := branchErr
		if detail == "" {
			detail = "Repository is in a detached HEAD state; cannot determine branch to push."
		}
		return notesync.PushResult{
			Pushed: false,
			Status: notesync.StatusSkipped,
			Detail: detail,
		}, nil
	}

	pushRes, err := b.runNetwork(ctx, "push", "origin", branch)
	if err != nil {
		return notesync.PushResult{}, err
	}
	if !pushRes.OK {
		return notesync.PushResult{
			Pushed: false,
			Status: notesync.StatusError,
			Detail: b.sanitize(pushRes.Stderr),
		}, nil
	}

	b.logger.Info("pushed notes", "branch", branch)
	return notesync.PushResult{
		Pushed: true,
		Status: notesync.StatusOK,
		Remote: "origin",
		Branch: branch,
	}, nil
}

// ============================================================================
// Pull
// ============================================================================

// Pull fetches and rebases onto the upstream tip. On any integration failure
// it aborts the rebase, snapshots the pre-pull head on a conflict branch, and
// resets the working branch to the remote tip — but only once the snapshot
// has preserved the local work.
func (b *Backend) Pull(ctx context.Context) (notesync.PullResult, error) {
	if err := b.ensureRepo(ctx); err != nil {
		return notesync.PullResult{}, err
	}

	hasRemote, err := b.hasRemote(ctx)
	if err != nil {
		return notesync.PullResult{}, err
	}
	if !hasRemote {
		return notesync.PullResult{
			Status: notesync.StatusSkipped,
			Detail: "No 'origin' remote configured.",
		}, nil
	}

	branch, branchErr, err := b.currentBranch(ctx)
	if err != nil {
		return notesync.PullResult{}, err
	}
	if branch == "" {
		detail := branchErr
		if detail == "" {
			detail = "Repository is in a detached HEAD state; cannot pull."
		}
		return notesync.PullResult{
			Status: notesync.StatusError,
			Detail: detail,
		}, nil
	}

	remoteRef := "origin/" + branch

	localBefore, err := b.revParse(ctx, "HEAD")
	if err != nil {
		return notesync.PullResult{}, err
	}
	remoteBefore, err := b.revParse(ctx, remoteRef)
	if err != nil {
		return notesync.PullResult{}, err
	}

	// A failed fetch is non-fatal here; a stale remote ref may still allow
	// a no-op pull, and real trouble surfaces from the pull itself.
	if _, err := b.runNetwork(ctx, "fetch", "origin"); err != nil {
		return notesync.PullResult{}, err
	}

	pullRes, err := b.runNetwork(ctx, "pull", "--rebase", "origin", branch)
	if err != nil {
		return notesync.PullResult{}, err
	}

	if pullRes.OK {
		localAfter, err := b.revParse(ctx, "HEAD")
		if err != nil {
			return notesync.PullResult{}, err
		}
		b.logger.Info("pulled notes", "branch", branch, "localAfter", localAfter)
		return notesync.PullResult{
			Status:       notesync.StatusOK,
			Branch:       branch,
			LocalBefore:  localBefore,
			LocalAfter:   localAfter,
			RemoteBefore: remoteBefore,
		}, nil
	}

	return b.recoverFromPullFailure(ctx, branch, remoteRef, localBefore, remoteBefore, pullRes)
}

// recoverFromPullFailure leaves the tree in a deterministic state after a
// failed rebase: no rebase in progress, local work preserved on a conflict
// branch, and the active branch at the remote tip when that is safe.
func (b *Backend) recoverFromPullFailure(
	ctx context.Context,
	branch, remoteRef, localBefore, remoteBefore string,
	pullRes gitexec.Result,
) (notesync.PullResult, error) {
	// Best effort; there may be no rebase in progress at all.
	_, _ = b.runner.Run(ctx, b.config.Root, "rebase", "--abort")

	hostname := b.config.Hostname
	if hostname == "" {
		hostname, _ = os.Hostname()
	}
	conflictBranch := notesync.ConflictBranchName(time.Now(), hostname)

	created := false
	if localBefore != "" {
		branchRes, err := b.runner.Run(ctx, b.config.Root, "branch", conflictBranch, localBefore)
		if err != nil {
			return notesync.PullResult{}, err
		}
		created = branchRes.OK
	}

	// Reset only after the snapshot proves the local commits are preserved.
	// When there was no local head there is nothing to lose and the reset
	// may proceed.
	resetStatus := ""
	if remoteBefore != "" {
		if localBefore != "" && !created {
			resetStatus = notesync.ResetSkipped
		} else {
			// branch -f cannot move the checked-out branch; a hard reset
			// moves both the ref and the working tree to the remote tip.
			resetRes, err := b.runner.Run(ctx, b.config.Root, "reset", "--hard", remoteRef)
			if err != nil {
				return notesync.PullResult{}, err
			}
			if resetRes.OK {
				resetStatus = notesync.ResetToRemote
			} else {
				resetStatus = notesync.ResetFailed
			}
		}
	}

	pullErr := pullRes.Stderr
	if strings.TrimSpace(pullErr) == "" {
		pullErr = "git pull --rebase failed"
	}

	result := notesync.PullResult{
		Status:       notesync.StatusConflict,
		Branch:       branch,
		LocalBefore:  localBefore,
		RemoteBefore: remoteBefore,
		ResetStatus:  resetStatus,
		Error:        b.sanitize(pullErr),
	}
	if created {
		result.ConflictBranch = conflictBranch
	}

	b.logger.Warn("pull conflict",
		"branch", branch,
		"conflictBranch", result.ConflictBranch,
		"resetStatus", resetStatus,
	)
	return result, nil
}

// ============================================================================
// History
// ============================================================================

// History lists the most recent commits on the active branch.
func (b *Backend) History(ctx context.Context, limit int) ([]notesync.CommitInfo, error) {
	if limit <= 0 {
		limit = 20
	}

	res, err := b.runner.Run(ctx, b.config.Root,
		"log", fmt.Sprintf("-%d", limit),
		"--pretty=format:%H\x1f%an\x1f%ae\x1f%aI\x1f%s")
	if err != nil {
		return nil, err
	}
	if !res.OK {
		// Empty repository: no commits is not an error.
		return []notesync.CommitInfo{}, nil
	}

	var commits []notesync.CommitInfo
	for _, line := range strings.Split(res.Stdout, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Split(line, "\x1f")
		if len(parts) != 5 {
			continue
		}
		date, _ := time.Parse(time.RFC3339, parts[3])
		commits = append(commits, notesync.CommitInfo{
			Hexsha:  parts[0],
			Author:  parts[1],
			Email:   parts[2],
			Date:    date,
			Message: parts[4],
		})
	}
	if commits == nil {
		commits = []notesync.CommitInfo{}
	}
	return commits, nil
}
