// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 markdown-notes-app contributors
// https://github.com/testbenchcc/markdown-notes-app

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/testbenchcc/markdown-notes-app/internal/pkg/logger"
	"github.com/testbenchcc/markdown-notes-app/internal/services/settings"
)

// SettingsHandler handles notebook settings endpoints.
type SettingsHandler struct {
	BaseHandler
	service *settings.Service
}

// NewSettingsHandler creates a settings handler.
func NewSettingsHandler(service *settings.Service, log *logger.Logger) *SettingsHandler {
	return &SettingsHandler{
		BaseHandler: NewBaseHandler(log),
		service:     service,
	}
}

// Routes returns the settings routes.
func (h *SettingsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.Get)
	r.Put("/", h.Update)

	return r
}

// Get handles GET /api/v1/settings
// Returns the stored settings merged over the defaults.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.OK(w, h.service.Load(r.Context()))
}

// Update handles PUT /api/v1/settings
// Unknown fields are accepted and dropped; fields missing from the payload
// keep their defaults.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	current := settings.Default()
	if err := h.ParseJSONLenient(r, &current); err != nil {
		h.HandleError(w, err)
		return
	}

	saved, err := h.service.Save(r.Context(), current)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.OK(w, saved)
}
