// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 markdown-notes-app contributors
// https://github.com/testbenchcc/markdown-notes-app

package notes

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/testbenchcc/markdown-notes-app/internal/pkg/errors"
	"github.com/testbenchcc/markdown-notes-app/internal/services/settings"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	root := t.TempDir()
	return NewService(root, settings.NewService(root, nil), nil), root
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestValidateRelativePath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"note.md", "note.md", false},
		{"folder/note.md", "folder/note.md", false},
		{"  spaced.md  ", "spaced.md", false},
		{"/leading/slash.md", "leading/slash.md", false},
		{`windows\style.md`, "windows/style.md", false},
		{"", "", true},
		{"   ", "", true},
		{"../escape.md", "", true},
		{"folder/../../escape.md", "", true},
		{"folder//double.md", "", true},
		{"./dot.md", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ValidateRelativePath(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCreateAndGet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "ideas/first", "# First\n")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Path != "ideas/first.md" {
		t.Errorf("path = %q, want extension appended", created.Path)
	}

	got, err := svc.Get(ctx, "ideas/first.md")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Content != "# First\n" || got.Name != "first.md" {
		t.Errorf("Get = %+v", got)
	}
}

func TestCreate_ExistingNoteRejected(t *testing.T) {
	svc, root := newTestService(t)
	writeFile(t, root, "dup.md", "old")

	_, err := svc.Create(context.Background(), "dup.md", "new")
	if err == nil {
		t.Fatal("expected error for existing note")
	}
	if ae, ok := apperrors.GetAppError(err); !ok || ae.Code != apperrors.CodeConflict {
		t.Errorf("error = %v, want conflict", err)
	}
}

func TestCreate_WritesGitkeepMarkers(t *testing.T) {
	svc, root := newTestService(t)

	if _, err := svc.Create(context.Background(), "a/b/note.md", ""); err != nil {
		t.Fatal(err)
	}

	for _, dir := range []string{"", "a", "a/b"} {
		keep := filepath.Join(root, filepath.FromSlash(dir), ".gitkeep")
		if _, err := os.Stat(keep); err != nil {
			t.Errorf(".gitkeep missing in %q: %v", dir, err)
		}
	}
}

func TestGet_Missing(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Get(context.Background(), "absent.md")
	if !apperrors.IsNotFoundError(err) {
		t.Errorf("error = %v, want not found", err)
	}
}

func TestGet_NonMarkdownRejected(t *testing.T) {
	svc, root := newTestService(t)
	writeFile(t, root, "script.sh", "#!/bin/sh")

	_, err := svc.Get(context.Background(), "script.sh")
	if !apperrors.IsValidationError(err) {
		t.Errorf("error = %v, want validation error", err)
	}
}

func TestSave_OverwritesAndCreatesFolders(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Save(ctx, "deep/nested/note.md", "v1"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := svc.Save(ctx, "deep/nested/note.md", "v2"); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}

	got, err := svc.Get(ctx, "deep/nested/note.md")
	if err != nil {
		t.Fatal(err)
	}
	if got.Content != "v2" {
		t.Errorf("content = %q, want %q", got.Content, "v2")
	}
}

func TestTree_OrderingAndFiltering(t *testing.T) {
	svc, root := newTestService(t)
	writeFile(t, root, "Zebra.md", "")
	writeFile(t, root, "apple.md", "")
	writeFile(t, root, "beta/inner.md", "")
	writeFile(t, root, "Alpha/inner.md", "")
	writeFile(t, root, "photo.png", "")
	writeFile(t, root, "skip.txt", "")
	writeFile(t, root, ".hidden/secret.md", "")
	writeFile(t, root, ".notebook-settings.json", "{}")

	tree, err := svc.Tree(context.Background())
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}

	var names []string
	for _, child := range tree.Children {
		names = append(names, child.Name)
	}

	// Folders first, then files, each case-insensitively sorted.
	want := []string{"Alpha", "beta", "apple.md", "photo.png", "Zebra.md"}
	if len(names) != len(want) {
		t.Fatalf("children = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("children = %v, want %v", names, want)
		}
	}

	if tree.Children[0].Type != NodeFolder {
		t.Errorf("Alpha type = %q", tree.Children[0].Type)
	}
	if tree.Children[3].Type != NodeImage {
		t.Errorf("photo.png type = %q", tree.Children[3].Type)
	}
	if tree.Children[0].Children[0].Path != "Alpha/inner.md" {
		t.Errorf("nested path = %q", tree.Children[0].Children[0].Path)
	}
}

func TestRename(t *testing.T) {
	svc, root := newTestService(t)
	writeFile(t, root, "old.md", "content")

	result, err := svc.Rename(context.Background(), "old.md", "moved/new.md")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if result.From != "old.md" || result.To != "moved/new.md" {
		t.Errorf("result = %+v", result)
	}

	if _, err := os.Stat(filepath.Join(root, "old.md")); !os.IsNotExist(err) {
		t.Error("source still exists")
	}
	if _, err := os.Stat(filepath.Join(root, "moved", "new.md")); err != nil {
		t.Errorf("destination missing: %v", err)
	}
}

func TestRename_MissingSourceAndExistingDestination(t *testing.T) {
	svc, root := newTestService(t)
	writeFile(t, root, "a.md", "")
	writeFile(t, root, "b.md", "")

	if _, err := svc.Rename(context.Background(), "absent.md", "x.md"); !apperrors.IsNotFoundError(err) {
		t.Errorf("missing source error = %v", err)
	}
	if _, err := svc.Rename(context.Background(), "a.md", "b.md"); !apperrors.IsValidationError(err) {
		t.Errorf("existing destination error = %v", err)
	}
}

func TestDelete_NoteAndFolder(t *testing.T) {
	svc, root := newTestService(t)
	writeFile(t, root, "gone.md", "")
	writeFile(t, root, "dir/a.md", "")
	writeFile(t, root, "dir/sub/b.md", "")

	if _, err := svc.Delete(context.Background(), "gone.md"); err != nil {
		t.Fatalf("Delete note: %v", err)
	}
	if _, err := svc.Delete(context.Background(), "dir"); err != nil {
		t.Fatalf("Delete folder: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "dir")); !os.IsNotExist(err) {
		t.Error("folder still exists")
	}

	if _, err := svc.Delete(context.Background(), "absent.md"); !apperrors.IsNotFoundError(err) {
		t.Errorf("missing path error = %v", err)
	}
}

func TestSearch(t *testing.T) {
	svc, root := newTestService(t)
	writeFile(t, root, "b/recipes.md", "Pasta\ncarbonara sauce\n")
	writeFile(t, root, "a/todo.md", "buy pasta\nclean house\nmore PASTA here\n")
	writeFile(t, root, "none.md", "nothing relevant\n")
	writeFile(t, root, ".hidden/secret.md", "pasta hidden\n")

	results, err := svc.Search(context.Background(), "pasta")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("results = %d, want 2: %+v", len(results), results)
	}
	// Sorted by path: a/todo.md before b/recipes.md.
	if results[0].Path != "a/todo.md" || results[1].Path != "b/recipes.md" {
		t.Errorf("order = %q, %q", results[0].Path, results[1].Path)
	}
	if len(results[0].Matches) != 2 {
		t.Errorf("todo.md matches = %d, want 2", len(results[0].Matches))
	}
	if results[0].Matches[0].LineNumber != 1 || results[0].Matches[0].Line != "buy pasta" {
		t.Errorf("first match = %+v", results[0].Matches[0])
	}
}

func TestSearch_MatchLimitPerNote(t *testing.T) {
	svc, root := newTestService(t)
	content := ""
	for i := 0; i < 10; i++ {
		content += "needle line\n"
	}
	writeFile(t, root, "many.md", content)

	results, err := svc.Search(context.Background(), "needle")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || len(results[0].Matches) != maxSearchMatchesPerNote {
		t.Errorf("matches = %d, want %d", len(results[0].Matches), maxSearchMatchesPerNote)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	svc, _ := newTestService(t)

	results, err := svc.Search(context.Background(), "   ")
	if err != nil {
		t.Fatal(err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("results = %v, want empty non-nil", results)
	}
}

func TestCreateFolder(t *testing.T) {
	svc, root := newTestService(t)

	rel, err := svc.CreateFolder(context.Background(), "projects/2026")
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	if rel != "projects/2026" {
		t.Errorf("rel = %q", rel)
	}
	if _, err := os.Stat(filepath.Join(root, "projects", "2026", ".gitkeep")); err != nil {
		t.Errorf(".gitkeep missing: %v", err)
	}
}
