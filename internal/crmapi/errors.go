package crmapi

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is returned when the backend answers 404 or an empty entity.
var ErrNotFound = errors.New("crmapi: not found")

// TransportError means the request never produced an HTTP response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("crmapi: %s: transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx answer from the backend.
type HTTPError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("crmapi: %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("crmapi: %s: status %d", e.Op, e.StatusCode)
}

// Is lets errors.Is(err, ErrNotFound) match 404 answers.
func (e *HTTPError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// ApplicationError is a 2xx answer whose envelope reports failure or lacks
// the expected payload.
type ApplicationError struct {
	Op      string
	Message string
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("crmapi: %s: %s", e.Op, e.Message)
}

// UserMessage extracts a message fit for an inline notification.
func UserMessage(err error) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Message != "" {
			return httpErr.Message
		}
		return "An error occurred"
	}
	var appErr *ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return "The CRM service is unreachable"
	}
	if err != nil {
		return "An unknown error occurred"
	}
	return ""
}
