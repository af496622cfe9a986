// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 markdown-notes-app contributors
// https://github.com/testbenchcc/markdown-notes-app

// Package notes manages the Markdown note tree on disk: CRUD, folder
// hierarchy, search, and pasted-image storage under a single notes root.
package notes

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	apperrors "github.com/testbenchcc/markdown-notes-app/internal/pkg/errors"
	"github.com/testbenchcc/markdown-notes-app/internal/pkg/logger"
	"github.com/testbenchcc/markdown-notes-app/internal/services/settings"
)

// Node types in the tree response.
const (
	NodeFolder = "folder"
	NodeNote   = "note"
	NodeImage  = "image"
)

// TreeNode is one entry of the folder hierarchy. Paths are relative to the
// notes root with forward slashes; the root node has an empty name and path.
type TreeNode struct {
	Type     string      `json:"type"`
	Name     string      `json:"name"`
	Path     string      `json:"path"`
	Children []*TreeNode `json:"children,omitempty"`
}

// Note is a single markdown file.
type Note struct {
	Path    string `json:"path"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// SearchMatch is one matching line within a note.
type SearchMatch struct {
	LineNumber int    `json:"line_number"`
	Line       string `json:"line"`
}

// SearchResult groups the matches of one note.
type SearchResult struct {
	Path    string        `json:"path"`
	Name    string        `json:"name"`
	Matches []SearchMatch `json:"matches"`
}

// RenameResult reports a completed rename or move.
type RenameResult struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// maxSearchMatchesPerNote caps the matching lines reported for one note.
const maxSearchMatchesPerNote = 5

// Service operates on the notes directory.
type Service struct {
	root     string
	settings *settings.Service
	logger   *logger.Logger
}

// NewService creates a notes service rooted at dir.
func NewService(dir string, settingsSvc *settings.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		root:     dir,
		settings: settingsSvc,
		logger:   log.Named("notes"),
	}
}

// Root returns the notes root directory.
func (s *Service) Root() string {
	return s.root
}

func (s *Service) ensureRoot() error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "cannot create notes root")
	}
	return nil
}

// ============================================================================
// Path validation
// ============================================================================

// ValidateRelativePath normalizes a caller-supplied path and rejects
// anything empty, absolute, or escaping the notes root. The returned path
// uses forward slashes.
func ValidateRelativePath(rel string) (string, error) {
	cleaned := strings.TrimLeft(strings.TrimSpace(rel), "/\\")
	if cleaned == "" {
		return "", apperrors.InvalidInput("Path must not be empty")
	}

	cleaned = strings.ReplaceAll(cleaned, "\\", "/")
	for _, part := range strings.Split(cleaned, "/") {
		if part == "" || part == "." || part == ".." {
			return "", apperrors.InvalidInput("Invalid path")
		}
	}
	return cleaned, nil
}

// resolve maps a validated relative path to an absolute path under root.
func (s *Service) resolve(rel string) (abs string, safeRel string, err error) {
	safeRel, err = ValidateRelativePath(rel)
	if err != nil {
		return "", "", err
	}
	abs = filepath.Join(s.root, filepath.FromSlash(safeRel))
	return abs, safeRel, nil
}

// ============================================================================
// Tree
// ============================================================================

// Tree builds the folder hierarchy: hidden entries skipped, folders sorted
// before files, names compared case-insensitively.
func (s *Service) Tree(ctx context.Context) (*TreeNode, error) {
	if err := s.ensureRoot(); err != nil {
		return nil, err
	}
	return s.buildNode(s.root, "")
}

func (s *Service) buildNode(abs, rel string) (*TreeNode, error) {
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "read notes directory")
	}

	sort.Slice(entries, func(i, j int) bool {
		di, dj := entries[i].IsDir(), entries[j].IsDir()
		if di != dj {
			return di
		}
		return strings.ToLower(entries[i].Name()) < strings.ToLower(entries[j].Name())
	})

	node := &TreeNode{
		Type:     NodeFolder,
		Name:     baseOrEmpty(rel),
		Path:     rel,
		Children: []*TreeNode{},
	}

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		childRel := name
		if rel != "" {
			childRel = rel + "/" + name
		}

		if entry.IsDir() {
			child, err := s.buildNode(filepath.Join(abs, name), childRel)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, child)
			continue
		}

		ext := strings.ToLower(path.Ext(name))
		switch {
		case ext == ".md":
			node.Children = append(node.Children, &TreeNode{Type: NodeNote, Name: name, Path: childRel})
		case imageExtensions[ext]:
			node.Children = append(node.Children, &TreeNode{Type: NodeImage, Name: name, Path: childRel})
		}
	}

	return node, nil
}

func baseOrEmpty(rel string) string {
	if rel == "" {
		return ""
	}
	return path.Base(rel)
}

// ============================================================================
// Note CRUD
// ============================================================================

// Get reads one markdown note.
func (s *Service) Get(ctx context.Context, rel string) (Note, error) {
	abs, safeRel, err := s.resolve(rel)
	if err != nil {
		return Note{}, err
	}

	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return Note{}, apperrors.NotFound("note")
	}
	if strings.ToLower(filepath.Ext(abs)) != ".md" {
		return Note{}, apperrors.InvalidInput("Not a markdown file")
	}

	raw, err := os.ReadFile(abs)
	if err != nil {
		return Note{}, apperrors.Wrap(err, apperrors.CodeInternal, "read note")
	}

	return Note{Path: safeRel, Name: filepath.Base(abs), Content: string(raw)}, nil
}

// Save creates or overwrites a note, creating parent folders as needed.
func (s *Service) Save(ctx context.Context, rel, content string) (Note, error) {
	if err := s.ensureRoot(); err != nil {
		return Note{}, err
	}
	abs, safeRel, err := s.resolve(rel)
	if err != nil {
		return Note{}, err
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return Note{}, apperrors.Wrap(err, apperrors.CodeInternal, "create note folder")
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return Note{}, apperrors.Wrap(err, apperrors.CodeInternal, "write note")
	}

	return Note{Path: safeRel, Name: filepath.Base(abs), Content: content}, nil
}

// Create makes a new note, appending the markdown extension when missing.
// Creating over an existing note is rejected; Save overwrites instead.
func (s *Service) Create(ctx context.Context, rel, content string) (Note, error) {
	if err := s.ensureRoot(); err != nil {
		return Note{}, err
	}
	if !strings.HasSuffix(strings.ToLower(rel), ".md") {
		rel += ".md"
	}
	abs, safeRel, err := s.resolve(rel)
	if err != nil {
		return Note{}, err
	}

	if _, err := os.Stat(abs); err == nil {
		return Note{}, apperrors.AlreadyExists("note")
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return Note{}, apperrors.Wrap(err, apperrors.CodeInternal, "create note folder")
	}
	s.ensureGitkeep(filepath.Dir(abs))

	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return Note{}, apperrors.Wrap(err, apperrors.CodeInternal, "write note")
	}

	s.logger.Info("note created", "path", safeRel)
	return Note{Path: safeRel, Name: filepath.Base(abs), Content: content}, nil
}

// CreateFolder makes a folder and drops .gitkeep markers so empty folders
// survive a git round trip.
func (s *Service) CreateFolder(ctx context.Context, rel string) (string, error) {
	if err := s.ensureRoot(); err != nil {
		return "", err
	}
	abs, safeRel, err := s.resolve(rel)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeInternal, "create folder")
	}
	s.ensureGitkeep(abs)

	return safeRel, nil
}

// Rename moves a note or folder within the notes root.
func (s *Service) Rename(ctx context.Context, oldRel, newRel string) (RenameResult, error) {
	if err := s.ensureRoot(); err != nil {
		return RenameResult{}, err
	}

	srcAbs, srcRel, err := s.resolve(oldRel)
	if err != nil {
		return RenameResult{}, err
	}
	dstAbs, dstRel, err := s.resolve(newRel)
	if err != nil {
		return RenameResult{}, err
	}

	if _, err := os.Stat(srcAbs); err != nil {
		return RenameResult{}, apperrors.NotFound("source path")
	}
	if _, err := os.Stat(dstAbs); err == nil {
		return RenameResult{}, apperrors.InvalidInput("Destination already exists")
	}

	if err := os.MkdirAll(filepath.Dir(dstAbs), 0o755); err != nil {
		return RenameResult{}, apperrors.Wrap(err, apperrors.CodeInternal, "create destination folder")
	}
	if err := os.Rename(srcAbs, dstAbs); err != nil {
		return RenameResult{}, apperrors.Wrap(err, apperrors.CodeInternal, "rename path")
	}

	s.logger.Info("path renamed", "from", srcRel, "to", dstRel)
	return RenameResult{From: srcRel, To: dstRel}, nil
}

// Delete removes a note, or a folder recursively.
func (s *Service) Delete(ctx context.Context, rel string) (string, error) {
	if err := s.ensureRoot(); err != nil {
		return "", err
	}
	abs, safeRel, err := s.resolve(rel)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", apperrors.NotFound("path")
	}

	if info.IsDir() {
		err = os.RemoveAll(abs)
	} else {
		err = os.Remove(abs)
	}
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeInternal, "delete path")
	}

	s.logger.Info("path deleted", "path", safeRel)
	return safeRel, nil
}

// ensureGitkeep writes .gitkeep in the folder and every ancestor up to the
// notes root, skipping folders that already have one.
func (s *Service) ensureGitkeep(dir string) {
	base := filepath.Clean(s.root)
	current := filepath.Clean(dir)

	for {
		relToBase, err := filepath.Rel(base, current)
		if err != nil || strings.HasPrefix(relToBase, "..") {
			return
		}

		keep := filepath.Join(current, ".gitkeep")
		if _, err := os.Stat(keep); os.IsNotExist(err) {
			_ = os.WriteFile(keep, nil, 0o644)
		}

		if current == base {
			return
		}
		current = filepath.Dir(current)
	}
}

// ============================================================================
// Search
// ============================================================================

// Search scans every markdown note for a case-insensitive substring and
// reports up to five matching lines per note, sorted by path.
func (s *Service) Search(ctx context.Context, query string) ([]SearchResult, error) {
	if err := s.ensureRoot(); err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	results := []SearchResult{}
	if query == "" {
		return results, nil
	}
	lowered := strings.ToLower(query)

	err := filepath.WalkDir(s.root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != s.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || strings.ToLower(filepath.Ext(p)) != ".md" {
			return nil
		}

		raw, err := os.ReadFile(p)
		if err != nil {
			return nil
		}

		var matches []SearchMatch
		for i, line := range strings.Split(string(raw), "\n") {
			if strings.Contains(strings.ToLower(line), lowered) {
				matches = append(matches, SearchMatch{LineNumber: i + 1, Line: strings.TrimSpace(line)})
				if len(matches) >= maxSearchMatchesPerNote {
					break
				}
			}
		}

		if len(matches) > 0 {
			rel, relErr := filepath.Rel(s.root, p)
			if relErr != nil {
				return nil
			}
			results = append(results, SearchResult{
				Path:    filepath.ToSlash(rel),
				Name:    d.Name(),
				Matches: matches,
			})
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "search notes")
	}

	sort.Slice(results, func(i, j int) bool {
		return strings.ToLower(results[i].Path) < strings.ToLower(results[j].Path)
	})
	return results, nil
}
