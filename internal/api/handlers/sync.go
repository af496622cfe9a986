// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 markdown-notes-app contributors
// https://github.com/testbenchcc/markdown-notes-app

package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/testbenchcc/markdown-notes-app/internal/api/errors"
	"github.com/testbenchcc/markdown-notes-app/internal/pkg/logger"
	notesync "github.com/testbenchcc/markdown-notes-app/internal/sync"
	"github.com/testbenchcc/markdown-notes-app/internal/sync/autosync"
)

// Historian lists recent commits of the notes repository.
type Historian interface {
	History(ctx context.Context, limit int) ([]notesync.CommitInfo, error)
}

// IgnoreManager edits the notes .gitignore. Only the local backend supports
// this; the remote-API backend has no gitignore semantics.
type IgnoreManager interface {
	AddIgnorePattern(pattern string) (notesync.GitignoreResult, error)
	RemoveIgnorePattern(pattern string) (notesync.GitignoreResult, error)
}

// SyncHandler exposes the notes synchronization operations. All mutating
// calls go through the scheduler so manual and scheduled runs share the
// same working-tree lock.
type SyncHandler struct {
	BaseHandler
	scheduler *autosync.Scheduler
	history   Historian
	ignore    IgnoreManager
}

// NewSyncHandler creates a sync handler. history and ignore may be nil when
// the active backend does not support them.
func NewSyncHandler(scheduler *autosync.Scheduler, history Historian, ignore IgnoreManager, log *logger.Logger) *SyncHandler {
	return &SyncHandler{
		BaseHandler: NewBaseHandler(log),
		scheduler:   scheduler,
		history:     history,
		ignore:      ignore,
	}
}

// Routes returns the sync routes.
func (h *SyncHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/state", h.State)
	r.Get("/status", h.Status)
	r.Get("/history", h.History)

	r.Post("/commit", h.Commit)
	r.Post("/push", h.Push)
	r.Post("/pull", h.Pull)
	r.Post("/commit-and-push", h.CommitAndPush)

	r.Post("/gitignore/add", h.GitignoreAdd)
	r.Post("/gitignore/remove", h.GitignoreRemove)

	return r
}

// ============================================================================
// Request types
// ============================================================================

// CommitRequest carries an optional commit message.
type CommitRequest struct {
	Message string `json:"message"`
}

// GitignoreRequest names one pattern to add or remove.
type GitignoreRequest struct {
	Path string `json:"path" validate:"required"`
}

// ============================================================================
// State and status
// ============================================================================

// State handles GET /api/v1/sync/state
// Returns the repository state classification without mutating anything.
func (h *SyncHandler) State(w http.ResponseWriter, r *http.Request) {
	info, err := h.scheduler.State(r.Context())
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.OK(w, info)
}

// Status handles GET /api/v1/sync/status
// Returns the auto-sync snapshot: current settings plus the last run of
// every operation and the conflict record.
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	h.OK(w, h.scheduler.Status())
}

// History handles GET /api/v1/sync/history
func (h *SyncHandler) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.Error(w, apierrors.NotImplemented("History is not available for this backend"))
		return
	}

	limit := h.QueryParamInt(r, "limit", 20)
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	commits, err := h.history.History(r.Context(), limit)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.OK(w, map[string]any{"commits": commits})
}

// ============================================================================
// Operations
// ============================================================================

// Commit handles POST /api/v1/sync/commit
// Expected failures (nothing to commit, commit error) come back inside the
// result body with a 200; only fatal setup failures produce error status.
func (h *SyncHandler) Commit(w http.ResponseWriter, r *http.Request) {
	var req CommitRequest
	if r.ContentLength > 0 {
		if err := h.ParseJSON(r, &req); err != nil {
			h.HandleError(w, err)
			return
		}
	}

	result, err := h.scheduler.Commit(r.Context(), req.Message)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.OK(w, result)
}

// Push handles POST /api/v1/sync/push
func (h *SyncHandler) Push(w http.ResponseWriter, r *http.Request) {
	result, err := h.scheduler.Push(r.Context())
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.OK(w, result)
}

// Pull handles POST /api/v1/sync/pull
// A conflict outcome is a 200 with status "conflict" in the body; the
// caller inspects conflictBranch and resetStatus to recover.
func (h *SyncHandler) Pull(w http.ResponseWriter, r *http.Request) {
	result, err := h.scheduler.Pull(r.Context())
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.OK(w, result)
}

// CommitAndPush handles POST /api/v1/sync/commit-and-push
func (h *SyncHandler) CommitAndPush(w http.ResponseWriter, r *http.Request) {
	var req CommitRequest
	if r.ContentLength > 0 {
		if err := h.ParseJSON(r, &req); err != nil {
			h.HandleError(w, err)
			return
		}
	}

	result, err := h.scheduler.CommitAndPush(r.Context(), req.Message)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.OK(w, result)
}

// ============================================================================
// Gitignore
// ============================================================================

// GitignoreAdd handles POST /api/v1/sync/gitignore/add
func (h *SyncHandler) GitignoreAdd(w http.ResponseWriter, r *http.Request) {
	if h.ignore == nil {
		h.Error(w, apierrors.NotImplemented("Gitignore editing is not available for this backend"))
		return
	}

	var req GitignoreRequest
	if err := h.ParseJSON(r, &req); err != nil {
		h.HandleError(w, err)
		return
	}

	result, err := h.ignore.AddIgnorePattern(req.Path)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.OK(w, result)
}

// GitignoreRemove handles POST /api/v1/sync/gitignore/remove
func (h *SyncHandler) GitignoreRemove(w http.ResponseWriter, r *http.Request) {
	if h.ignore == nil {
		h.Error(w, apierrors.NotImplemented("Gitignore editing is not available for this backend"))
		return
	}

	var req GitignoreRequest
	if err := h.ParseJSON(r, &req); err != nil {
		h.HandleError(w, err)
		return
	}

	result, err := h.ignore.RemoveIgnorePattern(req.Path)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.OK(w, result)
}
