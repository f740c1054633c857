package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrLoginFailed is returned when the server rejects the credentials
	// or answers without a usable token.
	ErrLoginFailed = errors.New("login failed")
	// ErrAdminRequired is returned when a write is rejected with 403.
	ErrAdminRequired = errors.New("admin role required")
	// ErrNotFound is returned when a single product does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDecode is returned when a response body is not the expected JSON.
	ErrDecode = errors.New("decode response")
)

// StatusError describes a non-2xx response.
type StatusError struct {
	// Code is the HTTP status code.
	Code int
	// Body is the beginning of the response body, trimmed.
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("unexpected status %d %s: %s", e.Code, http.StatusText(e.Code), e.Body)
}

// StatusCode extracts the HTTP status from err, or 0 if err is not a StatusError.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}
