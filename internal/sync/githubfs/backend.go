// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 markdown-notes-app contributors
// https://github.com/testbenchcc/markdown-notes-app

// Package githubfs implements the sync backend that keeps a plain notes
// directory in step with a GitHub repository purely through the REST API.
// There is no local git metadata: the remote recursive tree listing is the
// ground truth, and files are compared by their git blob identifier.
package githubfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/testbenchcc/markdown-notes-app/internal/integrations/github"
	"github.com/testbenchcc/markdown-notes-app/internal/pkg/logger"
	notesync "github.com/testbenchcc/markdown-notes-app/internal/sync"
)

// Config holds the backend configuration.
type Config struct {
	// Root is the local notes directory.
	Root string

	// Owner and Repo identify the GitHub repository. Both empty means no
	// remote is configured.
	Owner string
	Repo  string

	// Branch to sync against. The repository default branch is used when
	// empty.
	Branch string

	// Token authenticates API calls. Held in memory only.
	Token string
}

// Backend is the GitHub API Syncer implementation.
type Backend struct {
	config Config
	client *github.Client
	logger *logger.Logger
}

// New creates a GitHub API backend.
func New(config Config, client *github.Client, log *logger.Logger) *Backend {
	if client == nil {
		client = github.NewClient("", config.Token)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Backend{
		config: config,
		client: client,
		logger: log.Named("sync.githubfs"),
	}
}

func (b *Backend) hasRemote() bool {
	return b.config.Owner != "" && b.config.Repo != ""
}

func (b *Backend) sanitize(text string) string {
	return notesync.Redact(text, b.config.Token)
}

// branch resolves the sync branch, falling back to the repository default.
func (b *Backend) branch(ctx context.Context) (string, error) {
	if b.config.Branch != "" {
		return b.config.Branch, nil
	}
	repo, err := b.client.GetRepository(ctx, b.config.Owner, b.config.Repo)
	if err != nil {
		return "", err
	}
	if repo.DefaultBranch == "" {
		return "main", nil
	}
	return repo.DefaultBranch, nil
}

// ============================================================================
// Diff computation
// ============================================================================

// change is one pending difference between the local tree and the remote.
type change struct {
	Path      string
	Action    string // "create", "update", "delete-remote", "download", "delete-local"
	RemoteSHA string
}

// diff captures the full comparison of local and remote managed files.
type diff struct {
	// Local-only files, and files whose content differs.
	Creates []change
	Updates []change
	// Remote-only files.
	RemoteOnly []change
}

func (d *diff) empty() bool {
	return len(d.Creates) == 0 && len(d.Updates) == 0 && len(d.RemoteOnly) == 0
}

func (d *diff) localChanges() int {
	return len(d.Creates) + len(d.Updates)
}

// computeDiff walks the local tree and the remote tree listing and compares
// managed files by blob identifier.
func (b *Backend) computeDiff(ctx context.Context, branch string) (*diff, error) {
	remote, err := b.remoteBlobs(ctx, branch)
	if err != nil {
		return nil, err
	}

	local, err := b.localBlobs()
	if err != nil {
		return nil, err
	}

	d := &diff{}
	for _, path := range sortedKeys(local) {
		remoteSHA, exists := remote[path]
		switch {
		case !exists:
			d.Creates = append(d.Creates, change{Path: path, Action: "create"})
		case remoteSHA != local[path]:
			d.Updates = append(d.Updates, change{Path: path, Action: "update", RemoteSHA: remoteSHA})
		}
	}
	for _, path := range sortedKeys(remote) {
		if _, exists := local[path]; !exists {
			d.RemoteOnly = append(d.RemoteOnly, change{Path: path, Action: "delete-remote", RemoteSHA: remote[path]})
		}
	}
	return d, nil
}

// remoteBlobs lists the managed blobs of the remote branch. An empty
// repository (404/409 from the trees endpoint) is an empty map.
func (b *Backend) remoteBlobs(ctx context.Context, branch string) (map[string]string, error) {
	tree, err := b.client.GetRecursiveTree(ctx, b.config.Owner, b.config.Repo, branch)
	if err != nil {
		if github.IsNotFound(err) || github.IsConflict(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}

	blobs := make(map[string]string)
	for _, entry := range tree.Tree {
		if entry.Type != "blob" {
			continue
		}
		if !IsManagedPath(entry.Path) {
			continue
		}
		blobs[entry.Path] = entry.SHA
	}
	return blobs, nil
}

// localBlobs walks the notes root and hashes every managed file.
func (b *Backend) localBlobs() (map[string]string, error) {
	blobs := make(map[string]string)

	err := filepath.WalkDir(b.config.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(b.config.Root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsManagedPath(rel) {
			return nil
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		blobs[rel] = BlobSHA(data)
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	return blobs, nil
}

// ============================================================================
// State
// ============================================================================

// State derives the classification from the same diff the push and pull
// operations act on.
func (b *Backend) State(ctx context.Context) (notesync.StateInfo, error) {
	if !b.hasRemote() {
		return notesync.StateInfo{State: notesync.StateNoUpstream}, nil
	}

	branch, err := b.branch(ctx)
	if err != nil {
		return notesync.StateInfo{
			State:  notesync.StateUnknown,
			Detail: b.sanitize(err.Error()),
		}, nil
	}

	d, err := b.computeDiff(ctx, branch)
	if err != nil {
		return notesync.StateInfo{
			State:  notesync.StateUnknown,
			Branch: branch,
			Detail: b.sanitize(err.Error()),
		}, nil
	}

	info := notesync.StateInfo{Branch: branch, Dirty: d.localChanges() > 0}
	switch {
	case d.empty():
		info.State = notesync.StateUpToDate
	case len(d.Updates) > 0, d.localChanges() > 0 && len(d.RemoteOnly) > 0:
		info.State = notesync.StateDiverged
	case d.localChanges() > 0:
		info.State = notesync.StateAhead
	default:
		info.State = notesync.StateBehind
	}
	return info, nil
}

// ============================================================================
// Commit / Push
// ============================================================================

// Commit uploads all pending local changes. On this backend every file
// create/update/delete is a server-side commit, so commit and push are the
// same upload pass; Push on a freshly committed tree reports nothing to do.
func (b *Backend) Commit(ctx context.Context, message string) (notesync.CommitResult, error) {
	if !b.hasRemote() {
		return notesync.CommitResult{
			Committed: false,
			Summary:   "No remote repository configured.",
		}, nil
	}

	uploaded, lastSHA, errDetail, conflict := b.upload(ctx, message, true)
	if errDetail != "" {
		summary := errDetail
		if conflict {
			summary = "Remote content changed concurrently: " + errDetail
		}
		return notesync.CommitResult{Committed: false, Summary: summary}, nil
	}
	if uploaded == 0 {
		return notesync.CommitResult{
			Committed: false,
			Summary:   "No changes to commit",
		}, nil
	}

	if message == "" {
		message = fmt.Sprintf("Auto-commit notes at %sZ", time.Now().UTC().Format("2006-01-02T15:04:05"))
	}
	return notesync.CommitResult{
		Committed: true,
		Hexsha:    lastSHA,
		Message:   message,
		Summary:   fmt.Sprintf("%d change(s) uploaded", uploaded),
	}, nil
}

// Push uploads pending local changes to the repository.
func (b *Backend) Push(ctx context.Context) (notesync.PushResult, error) {
	if !b.hasRemote() {
		return notesync.PushResult{
			Pushed: false,
			Status: notesync.StatusSkipped,
			Detail: "No remote repository configured.",
		}, nil
	}

	branch, err := b.branch(ctx)
	if err != nil {
		return notesync.PushResult{
			Pushed: false,
			Status: notesync.StatusError,
			Detail: b.sanitize(err.Error()),
		}, nil
	}

	uploaded, _, errDetail, _ := b.upload(ctx, "", true)
	if errDetail != "" {
		return notesync.PushResult{
			Pushed: false,
			Status: notesync.StatusError,
			Detail: errDetail,
		}, nil
	}
	if uploaded == 0 {
		return notesync.PushResult{
			Pushed: false,
			Status: notesync.StatusSkipped,
			Detail: "No changes to push.",
			Remote: b.config.Owner + "/" + b.config.Repo,
			Branch: branch,
		}, nil
	}

	return notesync.PushResult{
		Pushed: true,
		Status: notesync.StatusOK,
		Detail: fmt.Sprintf("%d change(s) uploaded", uploaded),
		Remote: b.config.Owner + "/" + b.config.Repo,
		Branch: branch,
	}, nil
}

// upload sends every pending local create/update through the contents API,
// and, when deleteRemote is set, removes remote-only files too (push
// semantics; a pull keeps them so they can be downloaded instead). It
// returns the number of applied changes, the last commit identifier, an
// error detail ("" on success), and whether the failure was a conflict.
func (b *Backend) upload(ctx context.Context, message string, deleteRemote bool) (applied int, lastSHA string, errDetail string, conflict bool) {
	branch, err := b.branch(ctx)
	if err != nil {
		return 0, "", b.sanitize(err.Error()), false
	}

	d, err := b.computeDiff(ctx, branch)
	if err != nil {
		return 0, "", b.sanitize(err.Error()), false
	}

	commitMessage := func(action, path string) string {
		if message != "" {
			return message
		}
		return fmt.Sprintf("%s %s", action, path)
	}

	for _, ch := range d.Creates {
		data, readErr := os.ReadFile(filepath.Join(b.config.Root, filepath.FromSlash(ch.Path)))
		if readErr != nil {
			return applied, lastSHA, b.sanitize(readErr.Error()), false
		}
		res, putErr := b.client.PutFile(ctx, b.config.Owner, b.config.Repo, ch.Path, github.PutFileOptions{
			Message: commitMessage("Add", ch.Path),
			Content: data,
			Branch:  branch,
		})
		if putErr != nil {
			return applied, lastSHA, b.sanitize(putErr.Error()), github.IsConflict(putErr)
		}
		applied++
		lastSHA = res.Commit.SHA
	}

	for _, ch := range d.Updates {
		data, readErr := os.ReadFile(filepath.Join(b.config.Root, filepath.FromSlash(ch.Path)))
		if readErr != nil {
			return applied, lastSHA, b.sanitize(readErr.Error()), false
		}
		res, putErr := b.client.PutFile(ctx, b.config.Owner, b.config.Repo, ch.Path, github.PutFileOptions{
			Message: commitMessage("Update", ch.Path),
			Content: data,
			Branch:  branch,
			SHA:     ch.RemoteSHA,
		})
		if putErr != nil {
			return applied, lastSHA, b.sanitize(putErr.Error()), github.IsConflict(putErr)
		}
		applied++
		lastSHA = res.Commit.SHA
	}

	if !deleteRemote {
		if applied > 0 {
			b.logger.Info("uploaded notes changes", "count", applied, "branch", branch)
		}
		return applied, lastSHA, "", false
	}

	for _, ch := range d.RemoteOnly {
		delErr := b.client.DeleteFile(ctx, b.config.Owner, b.config.Repo, ch.Path, github.DeleteFileOptions{
			Message: commitMessage("Delete", ch.Path),
			SHA:     ch.RemoteSHA,
			Branch:  branch,
		})
		if delErr != nil {
			return applied, lastSHA, b.sanitize(delErr.Error()), github.IsConflict(delErr)
		}
		applied++
	}

	if applied > 0 {
		b.logger.Info("uploaded notes changes", "count", applied, "branch", branch)
	}
	return applied, lastSHA, "", false
}

// ============================================================================
// Pull
// ============================================================================

// Pull reconciles in both directions: local changes are uploaded first so
// nothing is lost, then files that differ remotely are downloaded and local
// managed files absent from the remote are removed.
func (b *Backend) Pull(ctx context.Context) (notesync.PullResult, error) {
	if !b.hasRemote() {
		return notesync.PullResult{
			Status: notesync.StatusSkipped,
			Detail: "No remote repository configured.",
		}, nil
	}

	branch, err := b.branch(ctx)
	if err != nil {
		return notesync.PullResult{
			Status: notesync.StatusError,
			Detail: b.sanitize(err.Error()),
		}, nil
	}

	// Preserve local work before overwriting anything. Remote-only files
	// stay put; they are downloads, not deletions.
	_, _, errDetail, conflict := b.upload(ctx, "", false)
	if errDetail != "" {
		status := notesync.StatusError
		if conflict {
			status = notesync.StatusConflict
		}
		return notesync.PullResult{
			Status: status,
			Branch: branch,
			Error:  errDetail,
		}, nil
	}

	remote, err := b.remoteBlobs(ctx, branch)
	if err != nil {
		return notesync.PullResult{
			Status: notesync.StatusError,
			Branch: branch,
			Error:  b.sanitize(err.Error()),
		}, nil
	}
	local, err := b.localBlobs()
	if err != nil {
		return notesync.PullResult{}, err
	}

	downloaded := 0
	for _, path := range sortedKeys(remote) {
		if local[path] == remote[path] {
			continue
		}
		data, getErr := b.client.GetFileContent(ctx, b.config.Owner, b.config.Repo, path, branch)
		if getErr != nil {
			return notesync.PullResult{
				Status: notesync.StatusError,
				Branch: branch,
				Error:  b.sanitize(getErr.Error()),
			}, nil
		}

		target := filepath.Join(b.config.Root, filepath.FromSlash(path))
		if mkErr := os.MkdirAll(filepath.Dir(target), 0o755); mkErr != nil {
			return notesync.PullResult{}, mkErr
		}
		if writeErr := os.WriteFile(target, data, 0o644); writeErr != nil {
			return notesync.PullResult{}, writeErr
		}
		downloaded++
	}

	removed := 0
	for _, path := range sortedKeys(local) {
		if _, exists := remote[path]; exists {
			continue
		}
		if rmErr := os.Remove(filepath.Join(b.config.Root, filepath.FromSlash(path))); rmErr != nil && !os.IsNotExist(rmErr) {
			return notesync.PullResult{}, rmErr
		}
		removed++
	}

	b.logger.Info("pulled notes", "branch", branch, "downloaded", downloaded, "removed", removed)
	return notesync.PullResult{
		Status: notesync.StatusOK,
		Branch: branch,
		Detail: fmt.Sprintf("%d file(s) downloaded, %d removed", downloaded, removed),
	}, nil
}

// ============================================================================
// History
// ============================================================================

// History lists the most recent commits on the sync branch.
func (b *Backend) History(ctx context.Context, limit int) ([]notesync.CommitInfo, error) {
	if !b.hasRemote() {
		return []notesync.CommitInfo{}, nil
	}
	if limit <= 0 {
		limit = 20
	}

	branch, err := b.branch(ctx)
	if err != nil {
		return nil, err
	}

	commits, err := b.client.ListCommits(ctx, b.config.Owner, b.config.Repo, branch, 1, limit)
	if err != nil {
		return nil, err
	}

	out := make([]notesync.CommitInfo, 0, len(commits))
	for _, c := range commits {
		out = append(out, notesync.CommitInfo{
			Hexsha:  c.SHA,
			Author:  c.Commit.Author.Name,
			Email:   c.Commit.Author.Email,
			Date:    c.Commit.Author.Date,
			Message: c.Commit.Message,
		})
	}
	return out, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
