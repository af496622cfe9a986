// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 markdown-notes-app contributors
// https://github.com/testbenchcc/markdown-notes-app

package notes

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/testbenchcc/markdown-notes-app/internal/pkg/errors"
	"github.com/testbenchcc/markdown-notes-app/internal/services/settings"
)

func TestSaveImage(t *testing.T) {
	svc, root := newTestService(t)

	result, err := svc.SaveImage(context.Background(), "note.md", "screenshot.PNG", []byte("fakepng"))
	if err != nil {
		t.Fatalf("SaveImage: %v", err)
	}

	if !strings.HasPrefix(result.Path, "images/img-") || !strings.HasSuffix(result.Path, ".png") {
		t.Errorf("path = %q, want generated name under images/", result.Path)
	}
	if result.Markdown != "![image](/files/"+result.Path+")" {
		t.Errorf("markdown = %q", result.Markdown)
	}
	if result.OriginalFilename != "screenshot.PNG" || result.NotePath != "note.md" {
		t.Errorf("result = %+v", result)
	}

	stored, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(result.Path)))
	if err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	if string(stored) != "fakepng" {
		t.Errorf("stored content = %q", stored)
	}
}

func TestSaveImage_Rejections(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.SaveImage(ctx, "n.md", "", []byte("x")); !apperrors.IsValidationError(err) {
		t.Errorf("empty name error = %v", err)
	}
	if _, err := svc.SaveImage(ctx, "n.md", "malware.exe", []byte("x")); !apperrors.IsValidationError(err) {
		t.Errorf("bad extension error = %v", err)
	}
	if _, err := svc.SaveImage(ctx, "n.md", "empty.png", nil); !apperrors.IsValidationError(err) {
		t.Errorf("empty content error = %v", err)
	}
}

func TestSaveImage_SizeLimit(t *testing.T) {
	root := t.TempDir()
	settingsSvc := settings.NewService(root, nil)
	limited := settings.Default()
	limited.ImageMaxPasteBytes = 10
	if _, err := settingsSvc.Save(context.Background(), limited); err != nil {
		t.Fatal(err)
	}
	svc := NewService(root, settingsSvc, nil)

	_, err := svc.SaveImage(context.Background(), "n.md", "big.png", []byte("0123456789AB"))
	if err == nil {
		t.Fatal("oversized image accepted")
	}
	if ae, ok := apperrors.GetAppError(err); !ok || ae.Code != apperrors.CodeLimitExceeded {
		t.Errorf("error = %v, want limit exceeded", err)
	}
}

func TestSaveImage_CustomStoragePath(t *testing.T) {
	root := t.TempDir()
	settingsSvc := settings.NewService(root, nil)
	custom := settings.Default()
	custom.ImageStoragePath = "assets/img"
	if _, err := settingsSvc.Save(context.Background(), custom); err != nil {
		t.Fatal(err)
	}
	svc := NewService(root, settingsSvc, nil)

	result, err := svc.SaveImage(context.Background(), "n.md", "p.png", []byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(result.Path, "assets/img/") {
		t.Errorf("path = %q, want custom storage folder", result.Path)
	}
}

func TestGetImage(t *testing.T) {
	svc, root := newTestService(t)
	writeFile(t, root, "images/pic.png", "pngdata")

	data, mime, err := svc.GetImage(context.Background(), "images/pic.png")
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	if string(data) != "pngdata" || mime != "image/png" {
		t.Errorf("data = %q, mime = %q", data, mime)
	}

	if _, _, err := svc.GetImage(context.Background(), "images/absent.png"); !apperrors.IsNotFoundError(err) {
		t.Errorf("missing image error = %v", err)
	}

	writeFile(t, root, "notes.txt", "text")
	if _, _, err := svc.GetImage(context.Background(), "notes.txt"); !apperrors.IsValidationError(err) {
		t.Errorf("non-image error = %v", err)
	}
}

func TestImageMIMEType(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"a.png", "image/png"},
		{"a.JPG", "image/jpeg"},
		{"a.jpeg", "image/jpeg"},
		{"a.svg", "image/svg+xml"},
		{"a.webp", "image/webp"},
		{"a.bin", "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := ImageMIMEType(tt.name); got != tt.want {
			t.Errorf("ImageMIMEType(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestCleanupImages(t *testing.T) {
	svc, root := newTestService(t)

	writeFile(t, root, "images/used.png", "x")
	writeFile(t, root, "images/orphan.png", "x")
	writeFile(t, root, "images/external.png", "x")
	writeFile(t, root, "note.md", "intro\n![image](/files/images/used.png)\n![ext](https://example.com/images/external.png)\n")

	result, err := svc.CleanupImages(context.Background())
	if err != nil {
		t.Fatalf("CleanupImages: %v", err)
	}

	if result.Total != 3 {
		t.Errorf("total = %d, want 3", result.Total)
	}
	// Only /files/ links count as references; the external URL does not
	// protect its coincidental namesake.
	wantDeleted := []string{"images/external.png", "images/orphan.png"}
	if len(result.Deleted) != 2 || result.Deleted[0] != wantDeleted[0] || result.Deleted[1] != wantDeleted[1] {
		t.Errorf("deleted = %v, want %v", result.Deleted, wantDeleted)
	}
	if len(result.Kept) != 1 || result.Kept[0] != "images/used.png" {
		t.Errorf("kept = %v", result.Kept)
	}

	if _, err := os.Stat(filepath.Join(root, "images", "orphan.png")); !os.IsNotExist(err) {
		t.Error("orphan still on disk")
	}
	if _, err := os.Stat(filepath.Join(root, "images", "used.png")); err != nil {
		t.Error("referenced image removed")
	}
}

func TestCleanupImages_NoStorageFolder(t *testing.T) {
	svc, _ := newTestService(t)

	result, err := svc.CleanupImages(context.Background())
	if err != nil {
		t.Fatalf("CleanupImages: %v", err)
	}
	if result.Total != 0 || len(result.Deleted) != 0 || len(result.Kept) != 0 {
		t.Errorf("result = %+v, want empty", result)
	}
}

func TestCleanupImages_HiddenNotesDoNotCount(t *testing.T) {
	svc, root := newTestService(t)
	writeFile(t, root, "images/ghost.png", "x")
	writeFile(t, root, ".trash/old.md", "![image](/files/images/ghost.png)\n")

	result, err := svc.CleanupImages(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Deleted) != 1 || result.Deleted[0] != "images/ghost.png" {
		t.Errorf("deleted = %v, want the ghost image gone", result.Deleted)
	}
}
