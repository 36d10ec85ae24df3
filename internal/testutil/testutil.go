// Package testutil provides shared test utilities and fixtures.
//
// This package centralises the quaternion and vector closeness checks
// used across the geometry-heavy test files so tolerance handling stays
// consistent.
package testutil

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ZRotation returns the unit quaternion for a rotation of angle radians
// about the z axis.
func ZRotation(angle float64) quat.Number {
	return quat.Number{Real: math.Cos(angle / 2), Kmag: math.Sin(angle / 2)}
}

// QuatNear reports whether two quaternions match component-wise within
// tol.
func QuatNear(a, b quat.Number, tol float64) bool {
	return math.Abs(a.Real-b.Real) <= tol &&
		math.Abs(a.Imag-b.Imag) <= tol &&
		math.Abs(a.Jmag-b.Jmag) <= tol &&
		math.Abs(a.Kmag-b.Kmag) <= tol
}

// SameRotation reports whether two quaternions represent the same
// rotation, treating q and -q as equal.
func SameRotation(a, b quat.Number, tol float64) bool {
	return QuatNear(a, b, tol) || QuatNear(a, quat.Scale(-1, b), tol)
}

// VecNear reports whether two vectors match component-wise within tol.
func VecNear(a, b r3.Vec, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol &&
		math.Abs(a.Y-b.Y) <= tol &&
		math.Abs(a.Z-b.Z) <= tol
}

// AssertQuatNear fails the test when got and want differ by more than
// tol in any component.
func AssertQuatNear(t *testing.T, got, want quat.Number, tol float64) {
	t.Helper()
	if !QuatNear(got, want, tol) {
		t.Errorf("quaternion = %v, want %v (tol %g)", got, want, tol)
	}
}

// AssertSameRotation fails the test when got and want differ as
// rotations, treating q and -q as equal.
func AssertSameRotation(t *testing.T, got, want quat.Number, tol float64) {
	t.Helper()
	if !SameRotation(got, want, tol) {
		t.Errorf("rotation = %v, want ±%v (tol %g)", got, want, tol)
	}
}

// AssertVecNear fails the test when got and want differ by more than
// tol in any component.
func AssertVecNear(t *testing.T, got, want r3.Vec, tol float64) {
	t.Helper()
	if !VecNear(got, want, tol) {
		t.Errorf("vector = %v, want %v (tol %g)", got, want, tol)
	}
}
