// Package carver implements a concurrent forensic file-carving engine: it
// scans a raw evidence stream for known file signatures, reconstructs
// candidates through per-format carve handlers, and emits carved files
// alongside structured metadata.
package carver

import "errors"

var (
	// ErrRunClosed is returned when attempting to use a closed run.
	ErrRunClosed = errors.New("carver: run is closed")

	// ErrLimitReached indicates the max-files cap has already been reached.
	ErrLimitReached = errors.New("carver: max-files cap reached")

	// ErrChecksumMismatch indicates a recomputed hash did not match a carved record.
	ErrChecksumMismatch = errors.New("carver: checksum mismatch")

	// ErrEvidenceOutOfBounds indicates a read was attempted past the evidence length.
	ErrEvidenceOutOfBounds = errors.New("carver: read out of bounds")

	// ErrConfigInvalid indicates the run configuration failed validation.
	ErrConfigInvalid = errors.New("carver: invalid configuration")

	// ErrChannelClosed indicates a pipeline stage observed a closed channel unexpectedly.
	ErrChannelClosed = errors.New("carver: pipeline channel closed")

	// ErrLockPoisoned indicates a coordination primitive was left in an inconsistent state.
	ErrLockPoisoned = errors.New("carver: lock poisoned")
)
