package errorutil

import (
	"time"

	"github.com/samber/oops"
)

const maskedMessage = "Internal server error"

// Body is the JSON error envelope. Its `status` key intentionally differs from
// the success envelope's `success` key; existing clients read both.
type Body struct {
	Status    string         `json:"status"`
	Message   string         `json:"message"`
	ErrorType Kind           `json:"errorType"`
	Details   []FieldError   `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Error     string         `json:"error,omitempty"`
	Stack     string         `json:"stack,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
}

// Serialize renders se for the client. In development every internal detail
// is included; otherwise non-operational errors are reduced to a masked body.
func Serialize(se *StructuredError, development bool, now time.Time) Body {
	if se == nil {
		se = NewInternalError(nil)
	}

	if !development && !se.Operational {
		return Body{
			Status:    statusLabel(KindInternal.Status()),
			Message:   maskedMessage,
			ErrorType: KindInternal,
			Timestamp: now,
		}
	}

	body := Body{
		Status:    statusLabel(se.Status),
		Message:   se.Message,
		ErrorType: se.Kind,
		Details:   scrubDetails(se.Details),
		Timestamp: now,
	}

	if development {
		if se.Err != nil {
			body.Error = se.Err.Error()
		}
		if oopsErr, ok := oops.AsOops(se.Err); ok {
			body.Stack = oopsErr.Stacktrace()
			body.Context = oopsErr.Context()
		}
	}
	return body
}

func statusLabel(status int) string {
	if status >= 500 {
		return "error"
	}
	return "fail"
}

func scrubDetails(details []FieldError) []FieldError {
	if len(details) == 0 {
		return nil
	}
	out := make([]FieldError, len(details))
	for i, d := range details {
		d.Value = redact(d.Field, d.Value)
		out[i] = d
	}
	return out
}
