package radio

import (
	"context"

	"github.com/go-errors/errors"
)

var (
	// ErrModeConflict is returned when a request is incompatible with the
	// current operating mode. The caller may inspect the state and retry.
	ErrModeConflict = errors.New("mode conflict")

	// ErrRadioUnavailable is returned when the radio cannot honor a request,
	// for example because the hardware is absent or switched off.
	ErrRadioUnavailable = errors.New("radio unavailable")

	// ErrInvalidState marks an out-of-range or unrecognized state reported
	// by the radio. Such states are logged and dropped.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidDescriptor is returned for network descriptors that cannot
	// possibly be used to join or host a network.
	ErrInvalidDescriptor = errors.New("invalid network descriptor")
)

// Normalize maps an error returned by a radio driver onto the error taxonomy.
// Errors that already belong to the taxonomy are returned unchanged, context
// errors are kept so callers can detect cancellation, and anything else is
// reported as the radio being unavailable.
func Normalize(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrModeConflict),
		errors.Is(err, ErrRadioUnavailable),
		errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrInvalidDescriptor),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return errors.Errorf("%w: %v", ErrRadioUnavailable, err)
	}
}

func IsModeConflict(err error) bool {
	return errors.Is(err, ErrModeConflict)
}

func IsUnavailable(err error) bool {
	return errors.Is(err, ErrRadioUnavailable)
}

// IsInvalid reports whether err was caused by malformed input.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidDescriptor) || errors.Is(err, ErrInvalidState)
}
