package services

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrInvalidCredentials is returned when a username/password pair does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthorized is returned when a bearer token is missing, invalid or revoked.
	ErrUnauthorized = errors.New("unauthorized")
)

const nullCharacterMessage = "Null characters are not allowed."

// hasNullCharacter reports whether s contains a NUL byte, which PostgreSQL
// text columns cannot store.
func hasNullCharacter(s string) bool {
	return strings.IndexByte(s, 0) >= 0
}

// ValidationError reports input problems keyed by field name.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string][]string{field: {message}}}
}

// Add records another message for field.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// Empty reports whether no field has a message.
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+strings.Join(e.Fields[field], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
