// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 markdown-notes-app contributors
// https://github.com/testbenchcc/markdown-notes-app

// Package github is a minimal GitHub REST client covering the endpoints the
// API sync backend needs: repository metadata, recursive tree listing, the
// contents API for create/update/delete/download, and the commit log.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ============================================================================
// Client
// ============================================================================

// Client is a GitHub API client. The token is held in memory only and sent
// per request; it never appears in returned errors.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new GitHub API client.
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ============================================================================
// Errors
// ============================================================================

// StatusError is an HTTP-level API failure. The sync backend inspects the
// status code to distinguish content conflicts (409) from other failures.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("github api error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("github api error: %d", e.StatusCode)
}

// IsConflict reports whether err is a 409 content conflict.
func IsConflict(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusConflict
}

// IsNotFound reports whether err is a 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// ============================================================================
// HTTP helpers
// ============================================================================

func (c *Client) request(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	u := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	return resp, nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	return c.request(ctx, http.MethodGet, path, nil)
}

func (c *Client) put(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	return c.request(ctx, http.MethodPut, path, body)
}

func (c *Client) deleteReq(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	return c.request(ctx, http.MethodDelete, path, body)
}

func decodeJSON[T any](resp *http.Response) (T, error) {
	var result T
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return result, statusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return result, fmt.Errorf("decode response: %w", err)
	}
	return result, nil
}

func statusError(resp *http.Response) error {
	var apiErr APIErrorBody
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Message != "" {
		return &StatusError{StatusCode: resp.StatusCode, Message: apiErr.Message}
	}
	return &StatusError{StatusCode: resp.StatusCode}
}

// ============================================================================
// User / Auth
// ============================================================================

// GetAuthenticatedUser returns the authenticated user. Used as a cheap
// connectivity and credential check.
func (c *Client) GetAuthenticatedUser(ctx context.Context) (*APIUser, error) {
	resp, err := c.get(ctx, "/user")
	if err != nil {
		return nil, err
	}
	return decodeJSON[*APIUser](resp)
}

// ============================================================================
// Repository metadata
// ============================================================================

// GetRepository gets a repository by owner and name. The default branch is
// what the sync backend pushes and pulls against when none is configured.
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*APIRepository, error) {
	path := fmt.Sprintf("/repos/%s/%s", owner, repo)
	resp, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	return decodeJSON[*APIRepository](resp)
}

// GetBranch gets a branch and its tip commit.
func (c *Client) GetBranch(ctx context.Context, owner, repo, branch string) (*APIBranch, error) {
	path := fmt.Sprintf("/repos/%s/%s/branches/%s", owner, repo, url.PathEscape(branch))
	resp, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	return decodeJSON[*APIBranch](resp)
}

// ============================================================================
// Trees
// ============================================================================

// GetRecursiveTree lists the full tree of a ref in one call. An empty
// repository answers 404/409; callers treat that as an empty tree.
func (c *Client) GetRecursiveTree(ctx context.Context, owner, repo, ref string) (*APITree, error) {
	path := fmt.Sprintf("/repos/%s/%s/git/trees/%s?recursive=1", owner, repo, url.PathEscape(ref))
	resp, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	return decodeJSON[*APITree](resp)
}

// ============================================================================
// Contents
// ============================================================================

// GetFileContent downloads the raw bytes of a file via the contents API.
func (c *Client) GetFileContent(ctx context.Context, owner, repo, path, ref string) ([]byte, error) {
	reqPath := fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, escapePath(path))
	if ref != "" {
		reqPath += "?ref=" + url.QueryEscape(ref)
	}
	resp, err := c.get(ctx, reqPath)
	if err != nil {
		return nil, err
	}

	content, err := decodeJSON[APIContent](resp)
	if err != nil {
		return nil, err
	}
	if content.Type != "file" {
		return nil, fmt.Errorf("path is not a file: %s", path)
	}

	if content.Encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(despace(content.Content))
		if err != nil {
			return nil, fmt.Errorf("decode base64: %w", err)
		}
		return decoded, nil
	}
	return []byte(content.Content), nil
}

// PutFile creates or updates a file through the contents API. SHA must be
// set for updates; a mismatched SHA answers 409.
func (c *Client) PutFile(ctx context.Context, owner, repo, path string, opts PutFileOptions) (*APIFileCommit, error) {
	reqPath := fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, escapePath(path))

	body := map[string]string{
		"message": opts.Message,
		"content": base64.StdEncoding.EncodeToString(opts.Content),
	}
	if opts.Branch != "" {
		body["branch"] = opts.Branch
	}
	if opts.SHA != "" {
		body["sha"] = opts.SHA
	}

	resp, err := c.put(ctx, reqPath, body)
	if err != nil {
		return nil, err
	}
	return decodeJSON[*APIFileCommit](resp)
}

// DeleteFile removes a file through the contents API.
func (c *Client) DeleteFile(ctx context.Context, owner, repo, path string, opts DeleteFileOptions) error {
	reqPath := fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, escapePath(path))

	body := map[string]string{
		"message": opts.Message,
		"sha":     opts.SHA,
	}
	if opts.Branch != "" {
		body["branch"] = opts.Branch
	}

	resp, err := c.deleteReq(ctx, reqPath, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return statusError(resp)
	}
	return nil
}

// ============================================================================
// Commits
// ============================================================================

// ListCommits lists commits for a repository, newest first.
func (c *Client) ListCommits(ctx context.Context, owner, repo, sha string, page, perPage int) ([]APICommit, error) {
	if perPage <= 0 {
		perPage = 30
	}
	path := fmt.Sprintf("/repos/%s/%s/commits?per_page=%d&page=%d", owner, repo, perPage, page)
	if sha != "" {
		path += "&sha=" + url.QueryEscape(sha)
	}
	resp, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	return decodeJSON[[]APICommit](resp)
}

// ============================================================================
// Small helpers
// ============================================================================

// escapePath escapes each path segment while keeping the separators.
func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

// despace strips the whitespace GitHub inserts into base64 content.
func despace(s string) string {
	buf := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\n', '\r', '\t':
		default:
			buf = append(buf, s[i])
		}
	}
	return string(buf)
}
