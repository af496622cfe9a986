// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 markdown-notes-app contributors
// https://github.com/testbenchcc/markdown-notes-app

package github

import "time"

// ============================================================================
// GitHub API response types
// ============================================================================

// APIUser represents a GitHub user.
type APIUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Type  string `json:"type"`
}

// APIRepository represents a GitHub repository.
type APIRepository struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	FullName      string  `json:"full_name"`
	Owner         APIUser `json:"owner"`
	Private       bool    `json:"private"`
	HTMLURL       string  `json:"html_url"`
	CloneURL      string  `json:"clone_url"`
	DefaultBranch string  `json:"default_branch"`
}

// APIBranch represents a branch and its tip.
type APIBranch struct {
	Name      string `json:"name"`
	Protected bool   `json:"protected"`
	Commit    struct {
		SHA string `json:"sha"`
		URL string `json:"url"`
	} `json:"commit"`
}

// APITree is a (possibly recursive) git tree listing.
type APITree struct {
	SHA       string         `json:"sha"`
	Truncated bool           `json:"truncated"`
	Tree      []APITreeEntry `json:"tree"`
}

// APITreeEntry is one entry in a tree listing. Type is "blob" for files and
// "tree" for directories; SHA is the content-addressed blob identifier.
type APITreeEntry struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	Type string `json:"type"`
	SHA  string `json:"sha"`
	Size int64  `json:"size"`
}

// APIContent is a contents-API file object.
type APIContent struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Size     int64  `json:"size"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

// APIFileCommit is the contents-API answer to a create/update.
type APIFileCommit struct {
	Content *APIContent `json:"content"`
	Commit  struct {
		SHA     string `json:"sha"`
		Message string `json:"message"`
	} `json:"commit"`
}

// APICommit is one entry of the commit log.
type APICommit struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
		Author  struct {
			Name  string    `json:"name"`
			Email string    `json:"email"`
			Date  time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
	Author *APIUser `json:"author"`
}

// APIErrorBody is the error payload GitHub returns on failures.
type APIErrorBody struct {
	Message          string `json:"message"`
	DocumentationURL string `json:"documentation_url"`
}

// ============================================================================
// Request option types
// ============================================================================

// PutFileOptions parameterizes a contents-API create or update. Content is
// the raw file bytes; SHA is required when updating an existing file.
type PutFileOptions struct {
	Message string
	Content []byte
	Branch  string
	SHA     string
}

// DeleteFileOptions parameterizes a contents-API delete.
type DeleteFileOptions struct {
	Message string
	SHA     string
	Branch  string
}
