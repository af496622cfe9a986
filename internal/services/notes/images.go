// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 markdown-notes-app contributors
// https://github.com/testbenchcc/markdown-notes-app

package notes

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	apperrors "github.com/testbenchcc/markdown-notes-app/internal/pkg/errors"
)

// imageExtensions are the image formats accepted for upload and serving.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".svg":  true,
	".webp": true,
}

var imageMIMETypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
}

// markdownImageRef matches inline image references: ![alt](url).
var markdownImageRef = regexp.MustCompile(`!\[[^\]]*]\(([^)]+)\)`)

// ImageUpload is the stored result of a pasted image.
type ImageUpload struct {
	Path             string `json:"path"`
	Markdown         string `json:"markdown"`
	OriginalFilename string `json:"original_filename"`
	NotePath         string `json:"note_path"`
}

// CleanupResult lists the orphaned images removed and the referenced ones
// kept.
type CleanupResult struct {
	Deleted []string `json:"deleted"`
	Kept    []string `json:"kept"`
	Total   int      `json:"total"`
}

// ImageMIMEType maps a filename to its content type, defaulting to a binary
// stream for unknown extensions.
func ImageMIMEType(name string) string {
	if mime, ok := imageMIMETypes[strings.ToLower(filepath.Ext(name))]; ok {
		return mime
	}
	return "application/octet-stream"
}

// GetImage reads an image file for serving.
func (s *Service) GetImage(ctx context.Context, rel string) ([]byte, string, error) {
	abs, _, err := s.resolve(rel)
	if err != nil {
		return nil, "", apperrors.NotFound("file")
	}

	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return nil, "", apperrors.NotFound("file")
	}
	if !imageExtensions[strings.ToLower(filepath.Ext(abs))] {
		return nil, "", apperrors.InvalidInput("Unsupported file type")
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, "", apperrors.Wrap(err, apperrors.CodeInternal, "read image")
	}
	return data, ImageMIMEType(abs), nil
}

// storagePath returns the configured image folder, falling back to the
// default when the setting is empty or invalid.
func (s *Service) storagePath(ctx context.Context) string {
	configured := "images"
	if s.settings != nil {
		if v := strings.TrimSpace(s.settings.Load(ctx).ImageStoragePath); v != "" {
			configured = v
		}
	}
	if safe, err := ValidateRelativePath(configured); err == nil {
		return safe
	}
	return "images"
}

// SaveImage stores a pasted image under the configured storage folder with
// a generated collision-free name and returns the markdown to embed it.
func (s *Service) SaveImage(ctx context.Context, notePath, originalName string, data []byte) (ImageUpload, error) {
	if err := s.ensureRoot(); err != nil {
		return ImageUpload{}, err
	}

	if originalName == "" {
		return ImageUpload{}, apperrors.InvalidInput("File is required")
	}
	ext := strings.ToLower(filepath.Ext(originalName))
	if !imageExtensions[ext] {
		return ImageUpload{}, apperrors.InvalidInput("Unsupported image format")
	}
	if len(data) == 0 {
		return ImageUpload{}, apperrors.InvalidInput("File is empty")
	}

	if s.settings != nil {
		if limit := s.settings.Load(ctx).ImageMaxPasteBytes; limit > 0 && int64(len(data)) > limit {
			return ImageUpload{}, apperrors.LimitExceeded("image size", len(data), int(limit))
		}
	}

	suffix := make([]byte, 2)
	if _, err := rand.Read(suffix); err != nil {
		return ImageUpload{}, apperrors.Wrap(err, apperrors.CodeInternal, "generate image name")
	}

	filename := fmt.Sprintf("img-%s-%s%s",
		time.Now().UTC().Format("20060102-150405"),
		hex.EncodeToString(suffix),
		ext,
	)
	rel := s.storagePath(ctx) + "/" + filename

	abs, safeRel, err := s.resolve(rel)
	if err != nil {
		return ImageUpload{}, err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return ImageUpload{}, apperrors.Wrap(err, apperrors.CodeInternal, "create image folder")
	}
	if err := os.WriteFile(abs, data, 0o644); err != nil {
		return ImageUpload{}, apperrors.Wrap(err, apperrors.CodeInternal, "write image")
	}

	s.logger.Info("image stored", "path", safeRel, "bytes", len(data))

	return ImageUpload{
		Path:             safeRel,
		Markdown:         fmt.Sprintf("![image](/files/%s)", safeRel),
		OriginalFilename: originalName,
		NotePath:         notePath,
	}, nil
}

// CleanupImages deletes stored images no markdown note references. A note
// references an image through a /files/<path> link in an inline image tag.
func (s *Service) CleanupImages(ctx context.Context) (CleanupResult, error) {
	if err := s.ensureRoot(); err != nil {
		return CleanupResult{}, err
	}

	result := CleanupResult{Deleted: []string{}, Kept: []string{}}

	storageAbs := filepath.Join(s.root, filepath.FromSlash(s.storagePath(ctx)))
	info, err := os.Stat(storageAbs)
	if err != nil || !info.IsDir() {
		return result, nil
	}

	allImages := map[string]string{} // rel -> abs
	err = filepath.WalkDir(storageAbs, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if imageExtensions[strings.ToLower(filepath.Ext(p))] {
			rel, relErr := filepath.Rel(s.root, p)
			if relErr == nil {
				allImages[filepath.ToSlash(rel)] = p
			}
		}
		return nil
	})
	if err != nil {
		return CleanupResult{}, apperrors.Wrap(err, apperrors.CodeInternal, "scan image storage")
	}

	result.Total = len(allImages)
	if len(allImages) == 0 {
		return result, nil
	}

	referenced := s.referencedImages(allImages)

	for rel, abs := range allImages {
		if referenced[rel] {
			continue
		}
		if err := os.Remove(abs); err != nil {
			continue
		}
		result.Deleted = append(result.Deleted, rel)
	}

	deleted := map[string]bool{}
	for _, rel := range result.Deleted {
		deleted[rel] = true
	}
	for rel := range allImages {
		if !deleted[rel] {
			result.Kept = append(result.Kept, rel)
		}
	}

	sort.Strings(result.Deleted)
	sort.Strings(result.Kept)

	if len(result.Deleted) > 0 {
		s.logger.Info("orphaned images removed", "deleted", len(result.Deleted), "kept", len(result.Kept))
	}
	return result, nil
}

// referencedImages scans every visible markdown note for /files/ links
// pointing at a known stored image.
func (s *Service) referencedImages(allImages map[string]string) map[string]bool {
	referenced := map[string]bool{}

	_ = filepath.WalkDir(s.root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != s.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.ToLower(filepath.Ext(p)) != ".md" {
			return nil
		}

		raw, err := os.ReadFile(p)
		if err != nil {
			return nil
		}

		for _, match := range markdownImageRef.FindAllStringSubmatch(string(raw), -1) {
			url := strings.TrimSpace(match[1])
			if !strings.HasPrefix(url, "/files/") {
				continue
			}
			safeRel, err := ValidateRelativePath(strings.TrimPrefix(url, "/files/"))
			if err != nil {
				continue
			}
			if _, ok := allImages[safeRel]; ok {
				referenced[safeRel] = true
			}
		}
		return nil
	})

	return referenced
}
