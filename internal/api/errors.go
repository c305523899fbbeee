// Package api provides an authenticated HTTP client for the CloudVault
// REST API: bearer-token request pipeline, transparent single-flight
// access-token refresh, chunked file upload, and typed endpoint wrappers.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, api.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("api: bad request")
	ErrUnauthorized = errors.New("api: unauthorized")
	ErrForbidden    = errors.New("api: forbidden")
	ErrNotFound     = errors.New("api: not found")
	ErrConflict     = errors.New("api: conflict")
	ErrThrottled    = errors.New("api: throttled")
	ErrServerError  = errors.New("api: server error")

	// ErrNotLoggedIn is returned when an operation requires credentials and
	// none are stored.
	ErrNotLoggedIn = errors.New("api: not logged in")

	// ErrNoRefreshToken indicates a refresh was attempted without a stored
	// refresh token. Treated as unrecoverable — credentials are cleared.
	ErrNoRefreshToken = errors.New("api: no refresh token")
)

// Fixed user-facing messages keyed by HTTP status, used by ErrorMessage when
// the backend payload carries no message of its own.
const (
	msgUnauthorized = "Unauthorized. Please login again."
	msgForbidden    = "You do not have permission to perform this action."
	msgNotFound     = "The requested resource was not found."
	msgServerError  = "An internal server error occurred."
	msgFallback     = "An unexpected error occurred"
)

// APIError wraps a sentinel error with the HTTP status code, the request ID
// echoed by the server, and the backend's structured error payload.
type APIError struct {
	StatusCode int
	RequestID  string
	Message    string   // payload "message" field, if any
	Errors     []string // payload "errors" list, if any
	Err        error    // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("api: HTTP %d (request-id: %s): %s", e.StatusCode, e.RequestID, e.text())
	}

	return fmt.Sprintf("api: HTTP %d: %s", e.StatusCode, e.text())
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// text returns the best available description of the failure body.
func (e *APIError) text() string {
	if e.Message != "" {
		return e.Message
	}

	if len(e.Errors) > 0 {
		return strings.Join(e.Errors, ", ")
	}

	return http.StatusText(e.StatusCode)
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// ErrorMessage reduces any failure to a single human-readable string.
// Precedence: payload message, payload errors list joined with ", ",
// a fixed string for 401/403/404/500, the raw error text, then a generic
// fallback. Total over any input — never panics, never returns "".
func ErrorMessage(err error) string {
	if err == nil {
		return msgFallback
	}

	// A chunk failure reports which chunk died, not the transport detail
	// underneath it.
	var chunkErr *ChunkUploadError
	if errors.As(err, &chunkErr) {
		return chunkErr.Error()
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErrorMessage(apiErr)
	}

	if msg := err.Error(); msg != "" {
		return msg
	}

	return msgFallback
}

func apiErrorMessage(e *APIError) string {
	if e.Message != "" {
		return e.Message
	}

	if len(e.Errors) > 0 {
		return strings.Join(e.Errors, ", ")
	}

	switch e.StatusCode {
	case http.StatusUnauthorized:
		return msgUnauthorized
	case http.StatusForbidden:
		return msgForbidden
	case http.StatusNotFound:
		return msgNotFound
	case http.StatusInternalServerError:
		return msgServerError
	}

	return fmt.Sprintf("Request failed with status %d", e.StatusCode)
}

// ChunkUploadError reports a failed chunk within a chunked upload. Its
// message identifies the 1-based chunk and the total count; the underlying
// cause stays reachable through Unwrap.
type ChunkUploadError struct {
	Chunk int // 1-based
	Total int
	Err   error
}

func (e *ChunkUploadError) Error() string {
	return fmt.Sprintf("Failed to upload chunk %d of %d", e.Chunk, e.Total)
}

func (e *ChunkUploadError) Unwrap() error {
	return e.Err
}
