// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 markdown-notes-app contributors
// https://github.com/testbenchcc/markdown-notes-app

// Package settings persists notebook settings as a JSON file inside the
// notes root, so the settings travel with the notes through sync.
package settings

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	apperrors "github.com/testbenchcc/markdown-notes-app/internal/pkg/errors"
	"github.com/testbenchcc/markdown-notes-app/internal/pkg/logger"
	"github.com/testbenchcc/markdown-notes-app/internal/sync/autosync"
)

// FileName is the settings file stored at the notes root.
const FileName = ".notebook-settings.json"

// Settings holds every notebook preference. Unknown fields in the file are
// ignored on load; missing fields keep their defaults.
type Settings struct {
	EditorSpellcheck bool   `json:"editorSpellcheck"`
	Theme            string `json:"theme"`
	ExportTheme      string `json:"exportTheme"`

	AutoCommitEnabled         bool `json:"autoCommitEnabled"`
	AutoCommitIntervalSeconds int  `json:"autoCommitIntervalSeconds"`
	AutoPullEnabled           bool `json:"autoPullEnabled"`
	AutoPullIntervalSeconds   int  `json:"autoPullIntervalSeconds"`
	AutoPushEnabled           bool `json:"autoPushEnabled"`
	AutoPushIntervalSeconds   int  `json:"autoPushIntervalSeconds"`

	AutoSaveIntervalSeconds int    `json:"autoSaveIntervalSeconds"`
	TabLength               int    `json:"tabLength"`
	IndexPageTitle          string `json:"indexPageTitle"`

	ImageStoragePath      string `json:"imageStoragePath"`
	ImageMaxPasteBytes    int64  `json:"imageMaxPasteBytes"`
	ImageDisplayMode      string `json:"imageDisplayMode"`
	ImageMaxDisplayWidth  int    `json:"imageMaxDisplayWidth"`
	ImageMaxDisplayHeight int    `json:"imageMaxDisplayHeight"`
	ImageDefaultAlignment string `json:"imageDefaultAlignment"`

	DateFormat string `json:"dateFormat"`
	TimeFormat string `json:"timeFormat"`
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		EditorSpellcheck:          false,
		Theme:                     "gruvbox-dark",
		ExportTheme:               "match-app-theme",
		AutoCommitEnabled:         false,
		AutoCommitIntervalSeconds: autosync.DefaultCommitIntervalSeconds,
		AutoPullEnabled:           false,
		AutoPullIntervalSeconds:   autosync.DefaultPullIntervalSeconds,
		AutoPushEnabled:           false,
		AutoPushIntervalSeconds:   autosync.DefaultPushIntervalSeconds,
		AutoSaveIntervalSeconds:   60,
		TabLength:                 2,
		IndexPageTitle:            "NoteBooks",
		ImageStoragePath:          "images",
		ImageMaxPasteBytes:        5 * 1024 * 1024,
		ImageDisplayMode:          "fit-width",
		ImageMaxDisplayWidth:      0,
		ImageMaxDisplayHeight:     0,
		ImageDefaultAlignment:     "left",
		DateFormat:                "YYYY-MM-DD",
		TimeFormat:                "HH:mm",
	}
}

// Service loads and saves the settings file.
type Service struct {
	root   string
	logger *logger.Logger
	mu     sync.Mutex
}

// NewService creates a settings service rooted at the notes directory.
func NewService(root string, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		root:   root,
		logger: log.Named("settings"),
	}
}

func (s *Service) path() string {
	return filepath.Join(s.root, FileName)
}

// Load reads the settings file merged over the defaults. A missing or
// unreadable or malformed file yields the defaults; loading never fails.
func (s *Service) Load(ctx context.Context) Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Service) loadLocked() Settings {
	base := Default()

	raw, err := os.ReadFile(s.path())
	if err != nil {
		return base
	}

	// Decoding over the defaults gives merge semantics: fields present in
	// the file win, everything else keeps its default, unknown keys drop.
	if err := json.Unmarshal(raw, &base); err != nil {
		s.logger.Warn("settings file malformed, using defaults", "path", s.path(), "error", err)
		return Default()
	}
	return base
}

// Save writes the settings and returns what was persisted.
func (s *Service) Save(ctx context.Context, in Settings) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return Settings{}, apperrors.Wrap(err, apperrors.CodeInternal, "cannot create notes root")
	}

	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return Settings{}, apperrors.Wrap(err, apperrors.CodeInternal, "encode settings")
	}
	data = append(data, '\n')

	if err := os.WriteFile(s.path(), data, 0o644); err != nil {
		return Settings{}, apperrors.Wrap(err, apperrors.CodeInternal, "write settings file")
	}

	s.logger.Info("settings saved", "path", s.path())
	return in, nil
}

// SchedulerSettings adapts the persisted settings to the auto-sync loop.
// It satisfies autosync.SettingsProvider.
func (s *Service) SchedulerSettings(ctx context.Context) (autosync.Settings, error) {
	current := s.Load(ctx)
	return autosync.Settings{
		CommitEnabled:         current.AutoCommitEnabled,
		CommitIntervalSeconds: current.AutoCommitIntervalSeconds,
		PullEnabled:           current.AutoPullEnabled,
		PullIntervalSeconds:   current.AutoPullIntervalSeconds,
		PushEnabled:           current.AutoPushEnabled,
		PushIntervalSeconds:   current.AutoPushIntervalSeconds,
	}, nil
}
