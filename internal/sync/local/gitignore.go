// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 markdown-notes-app contributors
// https://github.com/testbenchcc/markdown-notes-app

package local

import (
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/testbenchcc/markdown-notes-app/internal/pkg/errors"
	notesync "github.com/testbenchcc/markdown-notes-app/internal/sync"
)

// readIgnoreLines returns the .gitignore lines, or none when the file does
// not exist yet.
func readIgnoreLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "cannot read .gitignore")
	}

	text := strings.TrimRight(string(data), "\n")
	if text == "" {
		return nil, nil
	}
	return strings.Split(text, "\n"), nil
}

// writeIgnoreLines writes the lines back with normalized \n endings.
func writeIgnoreLines(path string, lines []string) error {
	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "cannot write .gitignore")
	}
	return nil
}

// AddIgnorePattern appends a pattern line to the notes .gitignore if it is
// not already present.
func (b *Backend) AddIgnorePattern(pattern string) (notesync.GitignoreResult, error) {
	cleaned := strings.TrimSpace(pattern)
	if cleaned == "" {
		return notesync.GitignoreResult{}, apperrors.InvalidInput("Pattern must not be empty")
	}

	path := filepath.Join(b.config.Root, ".gitignore")
	lines, err := readIgnoreLines(path)
	if err != nil {
		return notesync.GitignoreResult{}, err
	}

	added := false
	if !containsLine(lines, cleaned) {
		lines = append(lines, cleaned)
		if err := writeIgnoreLines(path, lines); err != nil {
			return notesync.GitignoreResult{}, err
		}
		added = true
	}

	return notesync.GitignoreResult{
		Path:    path,
		Pattern: cleaned,
		Added:   added,
		Lines:   nonNil(lines),
	}, nil
}

// RemoveIgnorePattern removes every line equal to the pattern from the notes
// .gitignore.
func (b *Backend) RemoveIgnorePattern(pattern string) (notesync.GitignoreResult, error) {
	cleaned := strings.TrimSpace(pattern)
	if cleaned == "" {
		return notesync.GitignoreResult{}, apperrors.InvalidInput("Pattern must not be empty")
	}

	path := filepath.Join(b.config.Root, ".gitignore")
	lines, err := readIgnoreLines(path)
	if err != nil {
		return notesync.GitignoreResult{}, err
	}

	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if line != cleaned {
			kept = append(kept, line)
		}
	}
	removed := len(kept) < len(lines)

	if err := writeIgnoreLines(path, kept); err != nil {
		return notesync.GitignoreResult{}, err
	}

	return notesync.GitignoreResult{
		Path:    path,
		Pattern: cleaned,
		Removed: removed,
		Lines:   nonNil(kept),
	}, nil
}

func containsLine(lines []string, target string) bool {
	for _, line := range lines {
		if line == target {
			return true
		}
	}
	return false
}

func nonNil(lines []string) []string {
	if lines == nil {
		return []string{}
	}
	return lines
}
