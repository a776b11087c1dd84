// Package errorutil holds the closed error taxonomy shared by every layer and
// the helpers that classify and serialize failures at the HTTP boundary.
package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of the fixed error categories exposed to clients.
type Kind string

const (
	KindBadRequest        Kind = "BadRequest"
	KindUnauthorized      Kind = "Unauthorized"
	KindForbidden         Kind = "Forbidden"
	KindNotFound          Kind = "NotFound"
	KindConflict          Kind = "Conflict"
	KindValidationFailure Kind = "ValidationFailure"
	KindInternal          Kind = "InternalError"
	KindNotImplemented    Kind = "NotImplemented"
	KindUnavailable       Kind = "Unavailable"
)

type kindSpec struct {
	status      int
	operational bool
}

var kinds = map[Kind]kindSpec{
	KindBadRequest:        {http.StatusBadRequest, true},
	KindUnauthorized:      {http.StatusUnauthorized, true},
	KindForbidden:         {http.StatusForbidden, true},
	KindNotFound:          {http.StatusNotFound, true},
	KindConflict:          {http.StatusConflict, true},
	KindValidationFailure: {http.StatusUnprocessableEntity, true},
	KindInternal:          {http.StatusInternalServerError, false},
	KindNotImplemented:    {http.StatusNotImplemented, true},
	KindUnavailable:       {http.StatusServiceUnavailable, true},
}

// Status returns the HTTP status bound to the kind. Unknown kinds map to 500.
func (k Kind) Status() int {
	if spec, ok := kinds[k]; ok {
		return spec.status
	}
	return http.StatusInternalServerError
}

// Operational reports whether errors of this kind are safe to show clients verbatim.
func (k Kind) Operational() bool {
	return kinds[k].operational
}

// KindForStatus picks the taxonomy entry for an HTTP status code.
func KindForStatus(status int) Kind {
	for kind, spec := range kinds {
		if spec.status == status {
			return kind
		}
	}
	switch {
	case status >= 500:
		return KindInternal
	case status >= 400:
		return KindBadRequest
	default:
		return KindInternal
	}
}

// FieldError describes one offending input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// StructuredError is the normalized form of any failure.
type StructuredError struct {
	Kind        Kind
	Status      int
	Message     string
	Operational bool
	Details     []FieldError
	Err         error
}

func (e *StructuredError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *StructuredError) Unwrap() error {
	return e.Err
}

// WithCause returns a copy of e carrying err as its internal cause.
func (e *StructuredError) WithCause(err error) *StructuredError {
	cp := *e
	cp.Err = err
	return &cp
}

// New builds a StructuredError of the given kind.
func New(kind Kind, message string, details ...FieldError) *StructuredError {
	if _, ok := kinds[kind]; !ok {
		kind = KindInternal
	}
	return &StructuredError{
		Kind:        kind,
		Status:      kind.Status(),
		Message:     message,
		Operational: kind.Operational(),
		Details:     details,
	}
}

func NewBadRequest(message string, details ...FieldError) *StructuredError {
	return New(KindBadRequest, message, details...)
}

func NewUnauthorized(message string) *StructuredError {
	return New(KindUnauthorized, message)
}

func NewForbidden(message string) *StructuredError {
	return New(KindForbidden, message)
}

func NewNotFound(resource string) *StructuredError {
	return New(KindNotFound, fmt.Sprintf("%s not found", resource))
}

func NewConflict(message string, details ...FieldError) *StructuredError {
	return New(KindConflict, message, details...)
}

func NewValidationFailure(message string, details []FieldError) *StructuredError {
	return New(KindValidationFailure, message, details...)
}

func NewNotImplemented(message string) *StructuredError {
	return New(KindNotImplemented, message)
}

func NewUnavailable(message string) *StructuredError {
	return New(KindUnavailable, message)
}

// NewInternalError wraps an unexpected failure. The message is never shown
// to clients outside development mode.
func NewInternalError(err error) *StructuredError {
	se := New(KindInternal, "Internal server error")
	se.Err = err
	return se
}

// IsKind reports whether err normalizes to kind.
func IsKind(err error, kind Kind) bool {
	var se *StructuredError
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return Normalize(err).Kind == kind
}
