package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is returned when no API key is available.
	ErrNotConfigured = errors.New("API key not configured")

	// ErrEmptyResponse is returned when the provider answered without any
	// text content.
	ErrEmptyResponse = errors.New("no text in API response")
)

// ProviderError is an HTTP-level failure reported by the model provider.
// Message carries the upstream error message when one was returned.
type ProviderError struct {
	Status  int
	Type    string
	Message string
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Type != "" {
		return e.Type
	}
	return fmt.Sprintf("API error (status %d)", e.Status)
}

// ParseError reports model output from which no JSON object could be
// decoded. NoObject is true when not even a brace-delimited candidate
// containing "overall_score" was found.
type ParseError struct {
	NoObject bool
	Err      error
}

func (e *ParseError) Error() string {
	if e.NoObject {
		return "unexpected response format"
	}
	return "could not parse results"
}

func (e *ParseError) Unwrap() error { return e.Err }

// IncompleteResultError reports a decoded object missing required keys.
type IncompleteResultError struct {
	Missing []string
}

func (e *IncompleteResultError) Error() string { return "incomplete results" }

// InvalidResultError reports a decoded object whose fields have the wrong
// type or are out of range.
type InvalidResultError struct {
	Field  string
	Reason string
}

func (e *InvalidResultError) Error() string {
	return fmt.Sprintf("invalid results: %s %s", e.Field, e.Reason)
}
