// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 markdown-notes-app contributors
// https://github.com/testbenchcc/markdown-notes-app

package handlers_test

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/testbenchcc/markdown-notes-app/internal/api"
	"github.com/testbenchcc/markdown-notes-app/internal/api/handlers"
	"github.com/testbenchcc/markdown-notes-app/internal/api/middleware"
)

// testSuite provides shared test infrastructure for handler tests.
type testSuite struct {
	router  chi.Router
	handler *api.Handlers
}

// setupTestSuite creates a test suite with the system handler configured.
func setupTestSuite(t *testing.T) *testSuite {
	t.Helper()

	systemHandler := handlers.NewSystemHandler("test-version", "test-commit", "2026-01-01T00:00:00Z", nil)

	h := &api.Handlers{
		System: systemHandler,
	}

	config := api.RouterConfig{
		CORSConfig:     middleware.DefaultCORSConfig(),
		RequestTimeout: 5 * time.Second,
	}

	router := api.NewRouter(config, h)

	return &testSuite{
		router:  router,
		handler: h,
	}
}

// doRequest performs an HTTP request against the test router.
func doRequest(t *testing.T, router chi.Router, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()

	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// assertJSON checks that the response is valid JSON and returns the parsed body.
func assertJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	contentType := w.Header().Get("Content-Type")
	if !strings.Contains(contentType, "application/json") {
		t.Errorf("expected Content-Type application/json, got %s", contentType)
	}

	var result map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Errorf("failed to parse JSON response: %v. Body: %s", err, w.Body.String())
	}
	return result
}

// assertErrorCode checks the error code in the JSON response.
func assertErrorCode(t *testing.T, w *httptest.ResponseRecorder, expectedCode string) {
	t.Helper()
	var errResp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &errResp); err != nil {
		t.Errorf("failed to parse error response: %v. Body: %s", err, w.Body.String())
		return
	}
	if errResp.Code != expectedCode {
		t.Errorf("expected error code %q, got %q", expectedCode, errResp.Code)
	}
}
