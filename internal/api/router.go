// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 markdown-notes-app contributors
// https://github.com/testbenchcc/markdown-notes-app

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/testbenchcc/markdown-notes-app/internal/api/handlers"
	"github.com/testbenchcc/markdown-notes-app/internal/api/middleware"
)

// RouterConfig contains configuration for setting up routes.
type RouterConfig struct {
	// CORSConfig is the CORS configuration.
	CORSConfig middleware.CORSConfig

	// RequestTimeout is the timeout for HTTP requests.
	RequestTimeout time.Duration

	// Logger for request logging.
	Logger middleware.RequestLogger

	// EnableDebugLogging enables verbose request logging.
	EnableDebugLogging bool
}

// DefaultRouterConfig returns a default router configuration.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CORSConfig:         middleware.DefaultCORSConfig(),
		RequestTimeout:     30 * time.Second,
		EnableDebugLogging: false,
	}
}

// Handlers contains all API handlers.
// All fields are optional - if nil, the corresponding routes won't be mounted.
type Handlers struct {
	System   *handlers.SystemHandler
	Notes    *handlers.NotesHandler
	Settings *handlers.SettingsHandler
	Sync     *handlers.SyncHandler
}

// NewRouter creates a new chi router with all routes configured.
func NewRouter(config RouterConfig, h *Handlers) chi.Router {
	r := chi.NewRouter()

	// =========================================================================
	// Global Middleware (applied to all routes)
	// =========================================================================

	// Request ID (must be first)
	r.Use(middleware.RequestID)

	// Real IP extraction from proxy headers
	r.Use(middleware.RealIP)

	// Request logging
	if config.Logger != nil {
		if config.EnableDebugLogging {
			r.Use(middleware.DebugLogging(config.Logger))
		} else {
			r.Use(middleware.SimpleLogging(config.Logger))
		}
	}

	// Panic recovery
	r.Use(middleware.Recovery(middleware.RecoveryConfig{
		Logger:     config.Logger,
		PrintStack: true,
	}))

	// CORS
	r.Use(middleware.CORS(config.CORSConfig))

	// =========================================================================
	// Health Check Routes
	// =========================================================================

	if h.System != nil {
		r.Get("/health", h.System.Health)
		r.Get("/healthz", h.System.Liveness)
		r.Get("/ready", h.System.Readiness)
	}

	// =========================================================================
	// Stored files (images referenced from rendered notes)
	// =========================================================================

	if h.Notes != nil {
		r.Get("/files/*", h.Notes.ServeFile)
	}

	// =========================================================================
	// API Routes
	// =========================================================================

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(config.RequestTimeout))

		if h.System != nil {
			r.Mount("/system", h.System.Routes())
		}

		// Notes routes sit at the API root: the tree, search, and path
		// operations span the whole notebook rather than one resource.
		if h.Notes != nil {
			r.Get("/tree", h.Notes.Tree)
			r.Get("/search", h.Notes.Search)

			r.Route("/notes", func(r chi.Router) {
				r.Post("/", h.Notes.Create)
				r.Get("/*", h.Notes.Get)
				r.Put("/*", h.Notes.Save)
			})

			r.Post("/folders", h.Notes.CreateFolder)
			r.Post("/rename", h.Notes.Rename)
			r.Post("/delete", h.Notes.Delete)

			r.Post("/images/paste", h.Notes.UploadImage)
			r.Post("/images/cleanup", h.Notes.CleanupImages)
		}

		if h.Settings != nil {
			r.Mount("/settings", h.Settings.Routes())
		} else {
			r.Route("/settings", func(r chi.Router) {
				r.Get("/", notImplemented)
				r.Put("/", notImplemented)
			})
		}

		if h.Sync != nil {
			r.Mount("/sync", h.Sync.Routes())
		}
	})

	return r
}

// notImplemented is a placeholder handler for routes not yet implemented.
func notImplemented(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotImplemented)
	w.Write([]byte(`{"code":"NOT_IMPLEMENTED","message":"This endpoint is not yet implemented"}`))
}
