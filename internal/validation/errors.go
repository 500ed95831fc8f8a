// Package validation checks taxonomy documents, methods and relationships
// against the structural schema rules.
package validation

import (
	"errors"
	"fmt"
)

// ErrStructuralViolation is wrapped by every validation failure.
var ErrStructuralViolation = errors.New("structural violation")

// Error names the offending field and, where known, the
// category/subcategory/methods[i] context it was found at.
type Error struct {
	Field   string
	Context string
	Message string
}

func (e *Error) Error() string {
	if e.Context == "" {
		return e.Message
	}
	return fmt.Sprintf("%s at %s", e.Message, e.Context)
}

func (e *Error) Unwrap() error {
	return ErrStructuralViolation
}

func violation(field, context, format string, args ...any) *Error {
	return &Error{Field: field, Context: context, Message: fmt.Sprintf(format, args...)}
}
