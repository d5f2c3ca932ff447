package arrivals

import (
	"errors"
	"fmt"

	"nextstop.transit.org/internal/realtime"
)

var (
	// ErrUnmatchedTripRun means a descriptor names no trip, or a trip whose
	// service does not run on the inferred service day.
	ErrUnmatchedTripRun = errors.New("no trip occurrence matches descriptor")
	ErrUnknownStop      = errors.New("unknown stop")
	ErrInvalidLimit     = errors.New("limit must be positive")
	// ErrInvalidDescriptor covers descriptors too incomplete to key a run.
	ErrInvalidDescriptor       = errors.New("invalid trip descriptor")
	ErrUnsupportedRelationship = errors.New("unsupported schedule relationship")
	ErrMalformedFeed           = realtime.ErrMalformedFeed
)

// TickError reports a tick that was rolled back as a whole.
type TickError struct {
	TickID string
	Feed   string
	Err    error
}

func (e *TickError) Error() string {
	return fmt.Sprintf("tick %s for feed %s failed: %v", e.TickID, e.Feed, e.Err)
}

func (e *TickError) Unwrap() error {
	return e.Err
}

// entityError reports whether err only invalidates the entity being
// applied, leaving the rest of the tick intact.
func entityError(err error) bool {
	return errors.Is(err, ErrUnmatchedTripRun) ||
		errors.Is(err, ErrUnknownStop) ||
		errors.Is(err, ErrInvalidDescriptor) ||
		errors.Is(err, ErrUnsupportedRelationship)
}
