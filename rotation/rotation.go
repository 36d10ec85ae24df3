// Package rotation provides unit-quaternion utilities for orientation
// streams: sign-continuity repair, spherical interpolation, resampling
// onto uniform time grids, and gyroscope integration. Quaternions use
// gonum's quat.Number with the scalar part in Real and follow the
// Hamilton convention.
package rotation

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/num/quat"
)

// Timestamp comparison tolerances, in seconds. Two sample times are
// considered the same instant when they agree within these bounds
// (absolute OR relative). Resampling uses this to return the original
// quaternion at grid points that land on an input sample instead of
// interpolating across it.
const (
	// TimeEqualAbsTol is the absolute tolerance for timestamp equality.
	TimeEqualAbsTol = 1e-8
	// TimeEqualRelTol is the relative tolerance for timestamp equality.
	TimeEqualRelTol = 1e-5
)

// ErrOutOfRange reports an interpolation query outside the valid
// half-open window [first, last) of the sample timestamps.
var ErrOutOfRange = errors.New("rotation: query time outside sample range")

// sameInstant reports whether two timestamps are close enough to be
// treated as the same instant.
func sameInstant(a, b float64) bool {
	return scalar.EqualWithinAbsOrRel(a, b, TimeEqualAbsTol, TimeEqualRelTol)
}

// Dot returns the four-component inner product of two quaternions.
// Its sign indicates whether the quaternions lie on the same side of
// the double cover: q and -q encode the same rotation but have
// opposite-signed dot products with a common neighbour.
func Dot(a, b quat.Number) float64 {
	return a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
}

// normalize scales q to unit length. The zero quaternion maps to the
// identity rotation.
func normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, q)
}

// Unflip returns a copy of qs with signs chosen so consecutive
// quaternions stay on the same side of the double cover: whenever a
// sample's dot product with its (already corrected) predecessor is
// negative the sample is negated. The first sample is kept as given,
// and the input is never modified. Orientation streams coming out of
// per-frame solvers routinely alternate signs; interpolating across
// such a flip takes the long way around the rotation group.
func Unflip(qs []quat.Number) []quat.Number {
	out := make([]quat.Number, len(qs))
	if len(qs) == 0 {
		return out
	}
	out[0] = qs[0]
	for i := 1; i < len(qs); i++ {
		q := qs[i]
		if Dot(q, out[i-1]) < 0 {
			q = quat.Scale(-1, q)
		}
		out[i] = q
	}
	return out
}

// Slerp spherically interpolates between q0 (tau=0) and q1 (tau=1)
// along the shorter arc. When the inputs are nearly parallel it falls
// back to normalized linear interpolation, which is numerically stable
// where the sin terms of the slerp formula degenerate.
func Slerp(q0, q1 quat.Number, tau float64) quat.Number {
	d := Dot(q0, q1)
	if d < 0 {
		q1 = quat.Scale(-1, q1)
		d = -d
	}
	const parallel = 1 - 1e-9
	if d >= parallel {
		q := quat.Add(quat.Scale(1-tau, q0), quat.Scale(tau, q1))
		return normalize(q)
	}
	theta := math.Acos(d)
	sin := math.Sin(theta)
	a := math.Sin((1-tau)*theta) / sin
	b := math.Sin(tau*theta) / sin
	return quat.Add(quat.Scale(a, q0), quat.Scale(b, q1))
}

// InterpolateAt evaluates the quaternion stream at time t by slerping
// between the samples bracketing t. times must be strictly increasing
// and the same length as qs. Queries before the first sample or at and
// after the last return ErrOutOfRange: the lookup finds the first
// sample strictly later than t, so the final timestamp has no
// successor to interpolate toward.
func InterpolateAt(qs []quat.Number, times []float64, t float64) (quat.Number, error) {
	if len(qs) != len(times) {
		return quat.Number{}, fmt.Errorf("rotation: %d quaternions, %d timestamps", len(qs), len(times))
	}
	if len(qs) == 0 {
		return quat.Number{}, fmt.Errorf("%w: no samples", ErrOutOfRange)
	}
	i := sort.Search(len(times), func(j int) bool { return times[j] > t })
	if i == 0 || i == len(times) {
		return quat.Number{}, fmt.Errorf("%w: t=%v not in [%v, %v)",
			ErrOutOfRange, t, times[0], times[len(times)-1])
	}
	t0, t1 := times[i-1], times[i]
	tau := (t - t0) / (t1 - t0)
	if tau < 0 {
		tau = 0
	} else if tau > 1 {
		tau = 1
	}
	return Slerp(qs[i-1], qs[i], tau), nil
}

// Resample interpolates the quaternion stream onto count evenly spaced
// timestamps spanning [times[0], times[len-1]]. count <= 0 keeps the
// input sample count. Grid points that coincide with an input
// timestamp (within the package tolerances) copy that sample verbatim;
// all others slerp between their bracketing samples. At least two
// input samples are required. The returned grid starts exactly at the
// first input time and ends exactly at the last.
func Resample(qs []quat.Number, times []float64, count int) ([]quat.Number, []float64, error) {
	if len(qs) != len(times) {
		return nil, nil, fmt.Errorf("rotation: %d quaternions, %d timestamps", len(qs), len(times))
	}
	if len(qs) < 2 {
		return nil, nil, fmt.Errorf("rotation: resample needs at least two samples, got %d", len(qs))
	}
	if count <= 0 {
		count = len(qs)
	}

	grid := linspace(times[0], times[len(times)-1], count)
	out := make([]quat.Number, count)
	for k, t := range grid {
		i := sort.Search(len(times), func(j int) bool { return times[j] >= t })
		if i == len(times) {
			i = len(times) - 1
		}
		if sameInstant(times[i], t) {
			out[k] = qs[i]
			continue
		}
		if i == 0 {
			// Grid rounds below the first sample only through float
			// noise; the first grid point is the first sample exactly.
			out[k] = qs[0]
			continue
		}
		t0, t1 := times[i-1], times[i]
		tau := (t - t0) / (t1 - t0)
		out[k] = Slerp(qs[i-1], qs[i], tau)
	}
	return out, grid, nil
}

// IsUniformlySpaced reports whether consecutive timestamps all advance
// by the same positive step, compared with the package timestamp
// tolerances. Fewer than two samples have no spacing to check and
// report false.
func IsUniformlySpaced(times []float64) bool {
	if len(times) < 2 {
		return false
	}
	dt := times[1] - times[0]
	if dt <= 0 {
		return false
	}
	for i := 2; i < len(times); i++ {
		if !sameInstant(times[i]-times[i-1], dt) {
			return false
		}
	}
	return true
}

// linspace returns n points from start to stop inclusive. The
// endpoints are exact so resampled series keep the source window.
func linspace(start, stop float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}
