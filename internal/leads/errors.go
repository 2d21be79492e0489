package leads

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrLeadNotFound        = errors.New("leads: lead not found")
	ErrNotForward          = errors.New("leads: status can only move forward")
	ErrForbidden           = errors.New("leads: role may not perform this action")
	ErrConfirmationMissing = errors.New("leads: deletion not confirmed")
	ErrNoOrganization      = errors.New("leads: no organization selected")
)

// ValidationError carries field-level messages for a rejected form.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "leads: invalid form: " + strings.Join(names, ", ")
}

func fieldError(name, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{name: msg}}
}
