// Package search builds validated drug-search descriptors from raw request
// parameters. This file defines the structured validation error returned by
// the builder: one entry per offending field, each with a stable machine
// code, so the HTTP layer can surface every problem in a single response.
package search

import (
	"fmt"
	"strings"
)

// Stable per-field validation codes. Clients branch on these.
const (
	CodeInvalidSortField     = "invalid_sort_field"
	CodeInvalidSortDirection = "invalid_sort_direction"
	CodeInvalidDrugForm      = "invalid_drug_form"
	CodePageSizeExceeded     = "page_size_exceeded"
	CodeInvalidDateRange     = "invalid_date_range"
	CodeInvalidValue         = "invalid_value"
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError aggregates every field rejected while building a Filter.
// It is always detected before any repository access.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

// Error joins the per-field messages into a single human-readable string.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return strings.Join(parts, "; ")
}

// Has reports whether any field was rejected with the given code.
func (e *ValidationError) Has(code string) bool {
	for _, f := range e.Fields {
		if f.Code == code {
			return true
		}
	}
	return false
}

func (e *ValidationError) add(field, code, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Code: code, Message: msg})
}

// orNil returns nil when no field was rejected, so callers can write
// `if err := v.orNil(); err != nil { ... }` without a typed-nil pitfall.
func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
