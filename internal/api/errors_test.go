package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusOK, nil},
		{http.StatusCreated, nil},
		{http.StatusBadRequest, ErrBadRequest},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusConflict, ErrConflict},
		{http.StatusTooManyRequests, ErrThrottled},
		{http.StatusInternalServerError, ErrServerError},
		{http.StatusServiceUnavailable, ErrServerError},
		{http.StatusTeapot, nil},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyStatus(tt.code), "status %d", tt.code)
	}
}

// ErrorMessage is total: every input, including nil and empty errors,
// produces a non-empty human-readable string.
func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "nil error",
			err:  nil,
			want: "An unexpected error occurred",
		},
		{
			name: "payload message wins",
			err:  &APIError{StatusCode: 500, Message: "db down", Errors: []string{"a"}},
			want: "db down",
		},
		{
			name: "errors list joined",
			err:  &APIError{StatusCode: 400, Errors: []string{"name required", "size too big"}},
			want: "name required, size too big",
		},
		{
			name: "bare 401",
			err:  &APIError{StatusCode: 401, Err: ErrUnauthorized},
			want: "Unauthorized. Please login again.",
		},
		{
			name: "bare 403",
			err:  &APIError{StatusCode: 403, Err: ErrForbidden},
			want: "You do not have permission to perform this action.",
		},
		{
			name: "bare 404",
			err:  &APIError{StatusCode: 404, Err: ErrNotFound},
			want: "The requested resource was not found.",
		},
		{
			name: "bare 500",
			err:  &APIError{StatusCode: 500, Err: ErrServerError},
			want: "An internal server error occurred.",
		},
		{
			name: "unmapped status",
			err:  &APIError{StatusCode: 418},
			want: "Request failed with status 418",
		},
		{
			name: "wrapped api error",
			err:  fmt.Errorf("listing files: %w", &APIError{StatusCode: 404, Err: ErrNotFound}),
			want: "The requested resource was not found.",
		},
		{
			name: "plain error passes through",
			err:  errors.New("dial tcp: connection refused"),
			want: "dial tcp: connection refused",
		},
		{
			name: "empty error text falls back",
			err:  errors.New(""),
			want: "An unexpected error occurred",
		},
		{
			name: "chunk failure keeps its exact message",
			err:  &ChunkUploadError{Chunk: 3, Total: 7, Err: ErrServerError},
			want: "Failed to upload chunk 3 of 7",
		},
		{
			name: "chunk failure wins over the API payload underneath",
			err:  &ChunkUploadError{Chunk: 2, Total: 4, Err: &APIError{StatusCode: 500, Message: "db down"}},
			want: "Failed to upload chunk 2 of 4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorMessage(tt.err))
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	err := &APIError{StatusCode: 404, RequestID: "abc", Err: ErrNotFound}
	assert.Equal(t, "api: HTTP 404 (request-id: abc): Not Found", err.Error())

	err = &APIError{StatusCode: 500, Message: "boom", Err: ErrServerError}
	assert.Equal(t, "api: HTTP 500: boom", err.Error())

	assert.ErrorIs(t, err, ErrServerError)
}

func TestChunkUploadError_Unwrap(t *testing.T) {
	cause := &APIError{StatusCode: 500, Err: ErrServerError}
	err := &ChunkUploadError{Chunk: 1, Total: 2, Err: cause}

	assert.Equal(t, "Failed to upload chunk 1 of 2", err.Error())
	assert.ErrorIs(t, err, ErrServerError)

	var apiErr *APIError

	assert.ErrorAs(t, err, &apiErr)
}
