// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 markdown-notes-app contributors
// https://github.com/testbenchcc/markdown-notes-app

// Package autosync runs the background commit/pull/push loop and owns the
// shared bookkeeping of the last run of every operation.
//
// Two locks with different jobs: treeMu serializes every operation against
// the working tree (scheduled and manual alike), and stateMu guards only the
// bookkeeping fields so a status read never waits behind a running git or
// network call.
package autosync

import (
	"context"
	"sync"
	"time"

	"github.com/testbenchcc/markdown-notes-app/internal/pkg/logger"
	notesync "github.com/testbenchcc/markdown-notes-app/internal/sync"
)

// Built-in fallback intervals, in seconds.
const (
	DefaultCommitIntervalSeconds = 300
	DefaultPullIntervalSeconds   = 1800
	DefaultPushIntervalSeconds   = 300
)

// DefaultTick is how often the loop re-reads settings and checks intervals.
const DefaultTick = time.Second

// Settings are the per-operation enable flags and intervals, re-read from
// the settings provider on every tick so edits apply without a restart.
type Settings struct {
	CommitEnabled         bool `json:"autoCommitEnabled"`
	CommitIntervalSeconds int  `json:"autoCommitIntervalSeconds"`
	PullEnabled           bool `json:"autoPullEnabled"`
	PullIntervalSeconds   int  `json:"autoPullIntervalSeconds"`
	PushEnabled           bool `json:"autoPushEnabled"`
	PushIntervalSeconds   int  `json:"autoPushIntervalSeconds"`
}

// SettingsProvider supplies the current settings each tick.
type SettingsProvider func(ctx context.Context) (Settings, error)

// ============================================================================
// Shared state
// ============================================================================

// Operation statuses recorded in the shared state.
const (
	StatusIdle     = "idle"
	StatusRunning  = "running"
	StatusOK       = "ok"
	StatusSkipped  = "skipped"
	StatusError    = "error"
	StatusConflict = "conflict"
)

// OperationState records the last run of one operation.
type OperationState struct {
	LastStartedAt  *time.Time  `json:"lastStartedAt,omitempty"`
	LastFinishedAt *time.Time  `json:"lastFinishedAt,omitempty"`
	Status         string      `json:"status"`
	LastError      string      `json:"lastError,omitempty"`
	LastResult     interface{} `json:"lastResult,omitempty"`
}

// ConflictState records the active conflict, if any. Set when a pull reports
// a conflict, cleared when one completes cleanly.
type ConflictState struct {
	Active         bool       `json:"active"`
	LastConflictAt *time.Time `json:"lastConflictAt,omitempty"`
	ConflictBranch string     `json:"conflictBranch,omitempty"`
	LastError      string     `json:"lastError,omitempty"`
}

// Snapshot is the read-only status answer.
type Snapshot struct {
	Settings Settings      `json:"settings"`
	State    SnapshotState `json:"state"`
}

// SnapshotState groups the per-operation records.
type SnapshotState struct {
	Commit   OperationState `json:"commit"`
	Pull     OperationState `json:"pull"`
	Push     OperationState `json:"push"`
	Conflict ConflictState  `json:"conflict"`
}

// ============================================================================
// Scheduler
// ============================================================================

// Scheduler drives the auto-sync loop and serializes all sync entry points.
type Scheduler struct {
	syncer   notesync.Syncer
	settings SettingsProvider
	logger   *logger.Logger
	tick     time.Duration

	// treeMu serializes every working-tree operation.
	treeMu sync.Mutex

	// stateMu guards everything below. Held only for field copies.
	stateMu      sync.Mutex
	lastSettings Settings
	commit       OperationState
	pull         OperationState
	push         OperationState
	conflict     ConflictState
	lastRun      map[string]time.Time

	running bool
	mu      sync.Mutex
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New creates a scheduler. The provider is consulted every tick.
func New(syncer notesync.Syncer, settings SettingsProvider, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		syncer:   syncer,
		settings: settings,
		logger:   log.Named("autosync"),
		tick:     DefaultTick,
		commit:   OperationState{Status: StatusIdle},
		pull:     OperationState{Status: StatusIdle},
		push:     OperationState{Status: StatusIdle},
		lastRun:  make(map[string]time.Time),
		stopCh:   make(chan struct{}),
	}
}

// ============================================================================
// Lifecycle
// ============================================================================

// Start launches the background loop. Starting twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("starting auto-sync loop", "tick", s.tick)

	s.wg.Add(1)
	go s.loop(ctx)
}

// Stop stops the loop and waits for an in-flight operation to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("auto-sync loop stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runDue(ctx)
		}
	}
}

// runDue runs every operation whose interval has elapsed, in commit -> pull
// -> push order: push validity depends on the outcome of the prior two.
func (s *Scheduler) runDue(ctx context.Context) {
	settings, err := s.settings(ctx)
	if err != nil {
		// Skip the tick; the next one re-reads settings.
		s.logger.Warn("settings unavailable, skipping tick", "error", err)
		return
	}

	s.stateMu.Lock()
	s.lastSettings = settings
	s.stateMu.Unlock()

	now := time.Now()

	if settings.CommitEnabled && s.due("commit", now, settings.CommitIntervalSeconds, DefaultCommitIntervalSeconds) {
		s.markRun("commit", now)
		s.runCommit(ctx)
	}
	if settings.PullEnabled && s.due("pull", now, settings.PullIntervalSeconds, DefaultPullIntervalSeconds) {
		s.markRun("pull", now)
		s.runPull(ctx)
	}
	if settings.PushEnabled && s.due("push", now, settings.PushIntervalSeconds, DefaultPushIntervalSeconds) {
		s.markRun("push", now)
		s.runPush(ctx)
	}
}

func (s *Scheduler) due(op string, now time.Time, intervalSeconds, fallback int) bool {
	if intervalSeconds <= 0 {
		intervalSeconds = fallback
	}

	s.stateMu.Lock()
	last, ok := s.lastRun[op]
	s.stateMu.Unlock()

	return !ok || now.Sub(last) >= time.Duration(intervalSeconds)*time.Second
}

func (s *Scheduler) markRun(op string, at time.Time) {
	s.stateMu.Lock()
	s.lastRun[op] = at
	s.stateMu.Unlock()
}

// ============================================================================
// Scheduled runs
// ============================================================================

func (s *Scheduler) runCommit(ctx context.Context) {
	s.begin(&s.commit)
	result, err := s.Commit(ctx, "")
	s.finish(&s.commit, commitStatus(result, err), errText(err), result)
}

func (s *Scheduler) runPull(ctx context.Context) {
	s.begin(&s.pull)
	result, err := s.Pull(ctx)

	status := result.Status
	if err != nil {
		status = StatusError
	}
	s.finish(&s.pull, status, firstNonEmpty(errText(err), result.Error), result)
}

func (s *Scheduler) runPush(ctx context.Context) {
	if reason := s.pushBlockedReason(); reason != "" {
		// Recorded as a skip; the transport is never touched.
		s.begin(&s.push)
		s.finish(&s.push, StatusSkipped, reason, notesync.PushResult{
			Pushed: false,
			Status: notesync.StatusSkipped,
			Detail: reason,
		})
		s.logger.Info("push gated", "reason", reason)
		return
	}

	s.begin(&s.push)
	result, err := s.Push(ctx)

	status := result.Status
	if err != nil {
		status = StatusError
	}
	s.finish(&s.push, status, firstNonEmpty(errText(err), ""), result)
}

// pushBlockedReason reports why a scheduled push must not run: an active
// conflict, or a commit/pull whose last run did not complete cleanly. An
// operation that has never run does not block.
func (s *Scheduler) pushBlockedReason() string {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	switch {
	case s.conflict.Active:
		return "a sync conflict is active; resolve branch " + s.conflict.ConflictBranch
	case s.pull.Status == StatusError || s.pull.Status == StatusConflict:
		return "last pull did not complete cleanly"
	case s.commit.Status == StatusError:
		return "last commit did not complete cleanly"
	default:
		return ""
	}
}

// ============================================================================
// Manual entry points
// ============================================================================

// Commit runs a commit under the working-tree lock.
func (s *Scheduler) Commit(ctx context.Context, message string) (notesync.CommitResult, error) {
	s.treeMu.Lock()
	defer s.treeMu.Unlock()
	return s.syncer.Commit(ctx, message)
}

// Push runs a push under the working-tree lock.
func (s *Scheduler) Push(ctx context.Context) (notesync.PushResult, error) {
	s.treeMu.Lock()
	defer s.treeMu.Unlock()
	return s.syncer.Push(ctx)
}

// Pull runs a pull under the working-tree lock and updates the conflict
// record from its outcome, whether scheduled or manual.
func (s *Scheduler) Pull(ctx context.Context) (notesync.PullResult, error) {
	s.treeMu.Lock()
	result, err := s.syncer.Pull(ctx)
	s.treeMu.Unlock()

	if err == nil {
		s.recordConflict(result)
	}
	return result, err
}

// CommitAndPush runs commit then push as one serialized unit.
func (s *Scheduler) CommitAndPush(ctx context.Context, message string) (notesync.CommitAndPushResult, error) {
	s.treeMu.Lock()
	defer s.treeMu.Unlock()
	return notesync.CommitAndPush(ctx, s.syncer, message)
}

// State reads the sync state under the working-tree lock.
func (s *Scheduler) State(ctx context.Context) (notesync.StateInfo, error) {
	s.treeMu.Lock()
	defer s.treeMu.Unlock()
	return s.syncer.State(ctx)
}

// Status returns a copy of the shared bookkeeping.
func (s *Scheduler) Status() Snapshot {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	return Snapshot{
		Settings: s.lastSettings,
		State: SnapshotState{
			Commit:   s.commit,
			Pull:     s.pull,
			Push:     s.push,
			Conflict: s.conflict,
		},
	}
}

// ============================================================================
// Bookkeeping
// ============================================================================

func (s *Scheduler) begin(op *OperationState) {
	now := time.Now()
	s.stateMu.Lock()
	op.LastStartedAt = &now
	op.Status = StatusRunning
	op.LastError = ""
	s.stateMu.Unlock()
}

func (s *Scheduler) finish(op *OperationState, status, errMsg string, result interface{}) {
	now := time.Now()
	s.stateMu.Lock()
	op.LastFinishedAt = &now
	op.Status = status
	op.LastError = errMsg
	op.LastResult = result
	s.stateMu.Unlock()
}

func (s *Scheduler) recordConflict(result notesync.PullResult) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	switch result.Status {
	case notesync.StatusConflict:
		now := time.Now()
		s.conflict = ConflictState{
			Active:         true,
			LastConflictAt: &now,
			ConflictBranch: result.ConflictBranch,
			LastError:      result.Error,
		}
	case notesync.StatusOK, notesync.StatusSkipped:
		s.conflict = ConflictState{}
	}
}

func commitStatus(result notesync.CommitResult, err error) string {
	switch {
	case err != nil:
		return StatusError
	case result.Committed:
		return StatusOK
	case result.Summary == "No changes to commit":
		return StatusSkipped
	default:
		return StatusError
	}
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
