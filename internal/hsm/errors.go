package hsm

import "errors"

// Sentinel errors for prediction failures. A failure is fatal for the
// recording being predicted but must not abort a batch; callers are
// expected to record it and continue.
var (
	// ErrNoMatchingSPF reports a coefficient lookup miss. The wrapping
	// error carries the attempted lookup key for diagnosis.
	ErrNoMatchingSPF = errors.New("no matching SPF coefficients")

	// ErrInvalidGeometry reports non-physical length or lane inputs.
	ErrInvalidGeometry = errors.New("invalid segment geometry")

	// ErrInvalidVolume reports a non-positive AADT input.
	ErrInvalidVolume = errors.New("invalid traffic volume")
)
