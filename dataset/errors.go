package dataset

import "errors"

var (
	// ErrAmbiguousTimeMapping reports a reconstruction ingestion call
	// that supplied both a frame-time function and a frame rate, or
	// neither. Exactly one mapping from frame numbers to seconds must
	// be in force.
	ErrAmbiguousTimeMapping = errors.New("dataset: need exactly one of frame-time function or camera fps")

	// ErrMalformedGyro reports a gyroscope stream whose shape or
	// timing makes it unusable: sample/timestamp count mismatch, too
	// few samples, or timestamps that are not uniformly spaced.
	ErrMalformedGyro = errors.New("dataset: malformed gyro stream")

	// ErrDuplicateSource reports a second registration of a source the
	// builder already holds.
	ErrDuplicateSource = errors.New("dataset: source already added")

	// ErrUnknownSource reports a source selector outside the supported
	// set for that slot.
	ErrUnknownSource = errors.New("dataset: unknown source")

	// ErrIncompleteConfig reports a build attempt with unselected
	// sources or with a selected source whose data was never added.
	ErrIncompleteConfig = errors.New("dataset: incomplete build configuration")
)
