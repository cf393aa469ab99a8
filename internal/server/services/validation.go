package services

import (
	"strings"

	"github.com/dmitrijs2005/nizamla/internal/common"
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every problem found in a request. It matches
// common.ErrorValidation with errors.Is.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return "validation error: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error { return common.ErrorValidation }

// Messages returns the field messages in the order they were found.
func (e *ValidationError) Messages() []string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return msgs
}

type validator struct {
	fields []FieldError
}

func (v *validator) check(ok bool, field, message string) {
	if !ok {
		v.fields = append(v.fields, FieldError{Field: field, Message: message})
	}
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}
