// Package timeseries pairs sample values with strictly increasing
// timestamps. Every data stream in the ground truth pipeline (camera
// positions, camera orientations, integrated gyro attitudes) is carried
// as a Series so that downstream consumers can rely on ordering and
// alignment having been checked once, at construction.
package timeseries

import (
	"errors"
	"fmt"
)

var (
	// ErrLengthMismatch reports a timestamp slice and value slice of
	// different lengths.
	ErrLengthMismatch = errors.New("timeseries: timestamp and value counts differ")

	// ErrEmpty reports an attempt to build a series with no samples.
	ErrEmpty = errors.New("timeseries: no samples")

	// ErrNotIncreasing reports timestamps that are not strictly increasing.
	ErrNotIncreasing = errors.New("timeseries: timestamps must be strictly increasing")
)

// Series is an immutable sequence of (timestamp, value) samples.
// Timestamps are seconds and strictly increase. A Series is replaced
// wholesale rather than mutated; accessors hand out copies so callers
// cannot corrupt a stored series.
type Series[T any] struct {
	times  []float64
	values []T
}

// New validates and copies the given samples into a Series. It fails if
// the slices differ in length, are empty, or the timestamps are not
// strictly increasing.
func New[T any](times []float64, values []T) (*Series[T], error) {
	if len(times) != len(values) {
		return nil, fmt.Errorf("%w: %d timestamps, %d values", ErrLengthMismatch, len(times), len(values))
	}
	if len(times) == 0 {
		return nil, ErrEmpty
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			return nil, fmt.Errorf("%w: times[%d]=%v follows times[%d]=%v",
				ErrNotIncreasing, i, times[i], i-1, times[i-1])
		}
	}
	return &Series[T]{
		times:  append([]float64(nil), times...),
		values: append([]T(nil), values...),
	}, nil
}

// Len returns the number of samples.
func (s *Series[T]) Len() int { return len(s.times) }

// StartTime returns the first timestamp.
func (s *Series[T]) StartTime() float64 { return s.times[0] }

// EndTime returns the last timestamp.
func (s *Series[T]) EndTime() float64 { return s.times[len(s.times)-1] }

// At returns the i'th sample.
func (s *Series[T]) At(i int) (float64, T) { return s.times[i], s.values[i] }

// Timestamps returns a copy of the sample timestamps.
func (s *Series[T]) Timestamps() []float64 {
	return append([]float64(nil), s.times...)
}

// Values returns a copy of the sample values.
func (s *Series[T]) Values() []T {
	return append([]T(nil), s.values...)
}
