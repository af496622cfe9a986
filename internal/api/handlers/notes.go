// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 markdown-notes-app contributors
// https://github.com/testbenchcc/markdown-notes-app

package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/testbenchcc/markdown-notes-app/internal/api/errors"
	"github.com/testbenchcc/markdown-notes-app/internal/pkg/logger"
	"github.com/testbenchcc/markdown-notes-app/internal/services/notes"
)

// maxImageUploadBytes caps multipart image uploads before the configurable
// per-settings limit applies.
const maxImageUploadBytes = 25 * 1024 * 1024

// NotesHandler handles the note tree, note CRUD, search, and image storage.
type NotesHandler struct {
	BaseHandler
	service *notes.Service
}

// NewNotesHandler creates a notes handler.
func NewNotesHandler(service *notes.Service, log *logger.Logger) *NotesHandler {
	return &NotesHandler{
		BaseHandler: NewBaseHandler(log),
		service:     service,
	}
}

// Routes returns the notes routes.
func (h *NotesHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/tree", h.Tree)
	r.Get("/search", h.Search)

	r.Route("/notes", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/*", h.Get)
		r.Put("/*", h.Save)
	})

	r.Post("/folders", h.CreateFolder)
	r.Post("/rename", h.Rename)
	r.Post("/delete", h.Delete)

	r.Post("/images/paste", h.UploadImage)
	r.Post("/images/cleanup", h.CleanupImages)

	return r
}

// ============================================================================
// Request types
// ============================================================================

// SaveNoteRequest carries the full note content.
type SaveNoteRequest struct {
	Content string `json:"content"`
}

// CreatePathRequest creates a note or folder.
type CreatePathRequest struct {
	Path    string `json:"path" validate:"required"`
	Content string `json:"content"`
}

// RenamePathRequest moves a note or folder.
type RenamePathRequest struct {
	OldPath string `json:"old_path" validate:"required"`
	NewPath string `json:"new_path" validate:"required"`
}

// DeletePathRequest removes a note or folder.
type DeletePathRequest struct {
	Path string `json:"path" validate:"required"`
}

// ============================================================================
// Tree and search
// ============================================================================

// Tree handles GET /api/v1/tree
func (h *NotesHandler) Tree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.service.Tree(r.Context())
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.OK(w, tree)
}

// Search handles GET /api/v1/search?q=
func (h *NotesHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := h.QueryParam(r, "q")
	if query == "" {
		h.BadRequest(w, "Query parameter 'q' is required")
		return
	}
	if len(query) > 200 {
		h.BadRequest(w, "Query too long")
		return
	}

	results, err := h.service.Search(r.Context(), query)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.OK(w, map[string]any{"query": query, "results": results})
}

// ============================================================================
// Note CRUD
// ============================================================================

// Get handles GET /api/v1/notes/{path}
func (h *NotesHandler) Get(w http.ResponseWriter, r *http.Request) {
	note, err := h.service.Get(r.Context(), h.URLParam(r, "*"))
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.OK(w, note)
}

// Save handles PUT /api/v1/notes/{path}
func (h *NotesHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req SaveNoteRequest
	if err := h.ParseJSON(r, &req); err != nil {
		h.HandleError(w, err)
		return
	}

	note, err := h.service.Save(r.Context(), h.URLParam(r, "*"), req.Content)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.OK(w, map[string]any{"ok": true, "path": note.Path, "name": note.Name})
}

// Create handles POST /api/v1/notes
func (h *NotesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePathRequest
	if err := h.ParseJSON(r, &req); err != nil {
		h.HandleError(w, err)
		return
	}

	note, err := h.service.Create(r.Context(), req.Path, req.Content)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.Created(w, map[string]any{"ok": true, "path": note.Path, "name": note.Name})
}

// CreateFolder handles POST /api/v1/folders
func (h *NotesHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req CreatePathRequest
	if err := h.ParseJSON(r, &req); err != nil {
		h.HandleError(w, err)
		return
	}

	rel, err := h.service.CreateFolder(r.Context(), req.Path)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.Created(w, map[string]any{"ok": true, "path": rel})
}

// Rename handles POST /api/v1/rename
func (h *NotesHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req RenamePathRequest
	if err := h.ParseJSON(r, &req); err != nil {
		h.HandleError(w, err)
		return
	}

	result, err := h.service.Rename(r.Context(), req.OldPath, req.NewPath)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.OK(w, map[string]any{"ok": true, "from": result.From, "to": result.To})
}

// Delete handles POST /api/v1/delete
func (h *NotesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req DeletePathRequest
	if err := h.ParseJSON(r, &req); err != nil {
		h.HandleError(w, err)
		return
	}

	rel, err := h.service.Delete(r.Context(), req.Path)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.OK(w, map[string]any{"ok": true, "path": rel})
}

// ============================================================================
// Files and images
// ============================================================================

// ServeFile handles GET /files/{path}
// Serves stored images referenced from rendered notes.
func (h *NotesHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	data, mime, err := h.service.GetImage(r.Context(), h.URLParam(r, "*"))
	if err != nil {
		h.HandleError(w, err)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// UploadImage handles POST /api/v1/images/paste
// Accepts a multipart form with a "file" part and a "note_path" field.
func (h *NotesHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImageUploadBytes); err != nil {
		h.BadRequest(w, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.Error(w, apierrors.MissingField("file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageUploadBytes))
	if err != nil {
		h.InternalError(w, err)
		return
	}

	result, err := h.service.SaveImage(r.Context(), r.FormValue("note_path"), header.Filename, data)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.Created(w, result)
}

// CleanupImages handles POST /api/v1/images/cleanup
// Removes stored images that no note references.
func (h *NotesHandler) CleanupImages(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.CleanupImages(r.Context())
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.OK(w, result)
}
