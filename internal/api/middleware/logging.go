// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 markdown-notes-app contributors
// https://github.com/testbenchcc/markdown-notes-app

package middleware

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Context keys
// ============================================================================

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	realIPKey    contextKey = "real_ip"
)

// HeaderRequestID is the header carrying the request ID.
const HeaderRequestID = "X-Request-ID"

// RequestLogger is the logging interface the middleware needs. Satisfied by
// *logger.Logger.
type RequestLogger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ============================================================================
// Request ID
// ============================================================================

// RequestID assigns each request a unique ID, honoring an inbound
// X-Request-ID header when present, and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, id)
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request ID from the context, or "" if absent.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ============================================================================
// Real IP
// ============================================================================

// RealIP resolves the client IP from proxy headers and stores it both in the
// context and in r.RemoteAddr so downstream handlers see the true client.
func RealIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := getRealIP(r)
		ctx := context.WithValue(r.Context(), realIPKey, ip)
		r.RemoteAddr = ip
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRealIP returns the resolved client IP from the context, or "" if absent.
func GetRealIP(ctx context.Context) string {
	if ip, ok := ctx.Value(realIPKey).(string); ok {
		return ip
	}
	return ""
}

// ============================================================================
// Request logging
// ============================================================================

// statusRecorder captures the response status and size for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	n, err := rec.ResponseWriter.Write(b)
	rec.bytes += n
	return n, err
}

// SimpleLogging logs one line per request: method, path, status, duration.
func SimpleLogging(log RequestLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			log.Info("http request",
				"request_id", GetRequestID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

// DebugLogging logs request start and completion with extra detail. Intended
// for development; noisier than SimpleLogging.
func DebugLogging(log RequestLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := GetRequestID(r.Context())

			log.Debug("http request started",
				"request_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"remote_ip", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			log.Debug("http request completed",
				"request_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"bytes", rec.bytes,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

// ============================================================================
// Panic recovery
// ============================================================================

// RecoveryConfig configures the Recovery middleware.
type RecoveryConfig struct {
	// Logger receives the panic report. May be nil.
	Logger RequestLogger

	// PrintStack includes the goroutine stack in the log entry.
	PrintStack bool
}

// Recovery converts panics in downstream handlers into 500 responses.
func Recovery(config RecoveryConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}

					if config.Logger != nil {
						fields := []interface{}{
							"request_id", GetRequestID(r.Context()),
							"method", r.Method,
							"path", r.URL.Path,
							"panic", rec,
						}
						if config.PrintStack {
							fields = append(fields, "stack", string(debug.Stack()))
						}
						config.Logger.Error("panic recovered", fields...)
					}

					w.Header().Set(HeaderContentType, "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(`{"code":"INTERNAL_ERROR","message":"Internal server error"}`))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
