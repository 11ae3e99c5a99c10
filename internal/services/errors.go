package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ahmetcoskunkizilkaya/yamdb/internal/tokens"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidCode  = tokens.ErrInvalidCode
	ErrMailDelivery = errors.New("failed to deliver confirmation code")
)

// ValidationError maps request fields to what is wrong with them.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Invalid builds a single-field ValidationError.
func Invalid(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func notFound(resource string) error {
	return fmt.Errorf("%s %w", resource, ErrNotFound)
}
