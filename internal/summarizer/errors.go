package summarizer

import (
	"errors"
	"fmt"

	"pdfagent/internal/models"
)

// ErrEndpointMissing is returned when no service URL is configured for the
// active environment.
var ErrEndpointMissing = errors.New("summarizer endpoint is not configured")

// Error carries the failure classification of one summarize call.
type Error struct {
	Kind models.FailureKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failure: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind models.FailureKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf classifies err. Unclassified errors count as transport failures.
func KindOf(err error) models.FailureKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return models.FailureTransport
}
