package export

import (
	"context"
	"errors"
	"fmt"

	"github.com/starford/lumina/internal/apperr"
)

// Phase names a pipeline stage.
type Phase string

const (
	PhaseRendering Phase = "rendering"
	PhaseEncoding  Phase = "encoding"
	PhaseSaving    Phase = "saving"
)

// Kind tells a caller how to react to a failed export.
type Kind int

const (
	// KindInternal is an unexpected failure.
	KindInternal Kind = iota
	// KindConfiguration means the request cannot succeed as given.
	KindConfiguration
	// KindTransient is an I/O failure worth retrying.
	KindTransient
	// KindCancelled means the caller cancelled the export.
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindTransient:
		return "transient"
	case KindCancelled:
		return "cancelled"
	default:
		return "internal"
	}
}

// Error is a failed export tagged with the phase it failed in.
type Error struct {
	Phase Phase
	Kind  Kind
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("export %s [%s]: %v", e.Phase, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage is safe to show to an end user.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindConfiguration:
		return "This export format or size is not supported."
	case KindTransient:
		return fmt.Sprintf("Export failed while %s. Please try again.", e.Phase)
	case KindCancelled:
		return "Export cancelled."
	default:
		return "Something went wrong while exporting."
	}
}

// fail tags err with phase, classifying it by its sentinel.
func fail(phase Phase, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	kind := KindInternal
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		kind = KindCancelled
	case errors.Is(err, apperr.ErrInvalidInput), errors.Is(err, apperr.ErrSurfaceAllocation):
		kind = KindConfiguration
	case errors.Is(err, apperr.ErrPersist):
		kind = KindTransient
	}
	return &Error{Phase: phase, Kind: kind, Err: err}
}
