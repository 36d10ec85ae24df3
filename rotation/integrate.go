package rotation

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrNoSamples reports an integration request with an empty rate stream.
var ErrNoSamples = errors.New("rotation: no angular rate samples")

// IntegrateGyro integrates body-frame angular rates (rad/s) sampled at
// a fixed interval dt into an orientation stream of the same length.
// The i'th output is the attitude after applying sample i:
//
//	q[0] = initial
//	q[i] = q[i-1] * exp(dt/2 * w[i])
//
// Each step applies the exact rotation for a rate held constant over
// the interval, so a constant input rate integrates without drift. The
// zero quaternion as initial means "start at identity". Outputs are
// renormalized every step to keep round-off from accumulating.
func IntegrateGyro(rates []r3.Vec, dt float64, initial quat.Number) ([]quat.Number, error) {
	if len(rates) == 0 {
		return nil, ErrNoSamples
	}
	if dt <= 0 || math.IsNaN(dt) {
		return nil, fmt.Errorf("rotation: sample interval must be positive, got %v", dt)
	}

	q := initial
	if q == (quat.Number{}) {
		q = quat.Number{Real: 1}
	}
	q = normalize(q)

	out := make([]quat.Number, len(rates))
	out[0] = q
	for i := 1; i < len(rates); i++ {
		w := rates[i]
		if !isFinite(w) {
			return nil, fmt.Errorf("rotation: non-finite rate at sample %d: %v", i, w)
		}
		step := quat.Exp(quat.Number{
			Imag: 0.5 * dt * w.X,
			Jmag: 0.5 * dt * w.Y,
			Kmag: 0.5 * dt * w.Z,
		})
		q = normalize(quat.Mul(q, step))
		out[i] = q
	}
	return out, nil
}

// AngularVelocity recovers the constant body-frame rate (rad/s) that
// rotates q0 into q1 over dt seconds. It is the exact inverse of one
// IntegrateGyro step: w = 2/dt * log(conj(q0) * q1). dt must be
// positive and the inputs unit quaternions.
func AngularVelocity(q0, q1 quat.Number, dt float64) r3.Vec {
	rel := quat.Mul(quat.Conj(q0), q1)
	// Stay on the short arc; q and -q are the same rotation.
	if rel.Real < 0 {
		rel = quat.Scale(-1, rel)
	}
	rel = normalize(rel)
	if rel.Imag == 0 && rel.Jmag == 0 && rel.Kmag == 0 {
		return r3.Vec{}
	}
	l := quat.Log(rel)
	return r3.Vec{
		X: 2 * l.Imag / dt,
		Y: 2 * l.Jmag / dt,
		Z: 2 * l.Kmag / dt,
	}
}

func isFinite(v r3.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}
