// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 markdown-notes-app contributors
// https://github.com/testbenchcc/markdown-notes-app

package githubfs

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
)

// BlobSHA computes the git blob identifier of a file's bytes: the SHA-1 of
// "blob <length>\0" followed by the content. Matching GitHub's tree-listing
// SHAs lets change detection work without downloading file bodies.
func BlobSHA(content []byte) string {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d", len(content))
	h.Write([]byte{0})
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

// managedExtensions are the file types the notes app owns.
var managedExtensions = map[string]bool{
	".md":   true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".svg":  true,
	".webp": true,
}

// managedNames are exact filenames synced regardless of extension.
var managedNames = map[string]bool{
	".notebook-settings.json": true,
	".gitignore":              true,
	".gitkeep":                true,
}

// IsManagedPath reports whether a repository-relative path (slash-separated)
// belongs to the notes app. Files under hidden directories are never
// managed; everything else qualifies by extension or by exact name.
func IsManagedPath(rel string) bool {
	if rel == "" {
		return false
	}

	dir, name := path.Split(rel)
	for _, seg := range strings.Split(strings.TrimSuffix(dir, "/"), "/") {
		if seg != "" && strings.HasPrefix(seg, ".") {
			return false
		}
	}

	if managedNames[name] {
		return true
	}
	return managedExtensions[strings.ToLower(path.Ext(name))]
}
