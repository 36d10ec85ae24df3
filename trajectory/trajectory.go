// Package trajectory turns discrete pose samples into a continuous-time
// rigid body trajectory. Positions are interpolated with one natural
// cubic spline per coordinate; orientations follow the shortest arc
// between neighbouring quaternion samples, which keeps the angular rate
// constant within each segment. Velocity, acceleration and angular
// velocity are derived from the same curves so all queries agree with
// each other.
package trajectory

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/groundtruth/rotation"
	"github.com/banshee-data/groundtruth/timeseries"
)

var (
	// ErrOutOfRange reports a query outside the sampled time window.
	ErrOutOfRange = errors.New("trajectory: query time outside the sampled window")

	// ErrNoPosition reports a positional query on a rotation-only trajectory.
	ErrNoPosition = errors.New("trajectory: no position samples")

	// ErrNoRotation reports a rotational query on a position-only trajectory.
	ErrNoRotation = errors.New("trajectory: no orientation samples")

	// ErrNoSeries reports construction without any sample series.
	ErrNoSeries = errors.New("trajectory: need position or orientation samples")
)

// Trajectory evaluates a continuous rigid body motion built from
// sampled positions, sampled orientations, or both. Positional queries
// cover the closed position window; rotational queries cover the
// half-open orientation window, since the final orientation sample has
// no successor to interpolate toward.
type Trajectory struct {
	pos *positionSpline
	rot *rotationCurve
}

// New fits a trajectory to the given series. Either series may be nil,
// but not both, and a present series needs at least two samples to
// define a curve.
func New(pos *timeseries.Series[r3.Vec], rot *timeseries.Series[quat.Number]) (*Trajectory, error) {
	if pos == nil && rot == nil {
		return nil, ErrNoSeries
	}

	tr := &Trajectory{}
	if pos != nil {
		sp, err := newPositionSpline(pos)
		if err != nil {
			return nil, err
		}
		tr.pos = sp
	}
	if rot != nil {
		rc, err := newRotationCurve(rot)
		if err != nil {
			return nil, err
		}
		tr.rot = rc
	}
	return tr, nil
}

// StartTime returns the beginning of the window covered by every
// fitted component: the later of the series start times.
func (tr *Trajectory) StartTime() float64 {
	switch {
	case tr.pos == nil:
		return tr.rot.times[0]
	case tr.rot == nil:
		return tr.pos.times[0]
	default:
		return max(tr.pos.times[0], tr.rot.times[0])
	}
}

// EndTime returns the end of the window covered by every fitted
// component: the earlier of the series end times.
func (tr *Trajectory) EndTime() float64 {
	switch {
	case tr.pos == nil:
		return tr.rot.times[len(tr.rot.times)-1]
	case tr.rot == nil:
		return tr.pos.times[len(tr.pos.times)-1]
	default:
		return min(tr.pos.times[len(tr.pos.times)-1], tr.rot.times[len(tr.rot.times)-1])
	}
}

// Position returns the interpolated position at time t.
func (tr *Trajectory) Position(t float64) (r3.Vec, error) {
	if tr.pos == nil {
		return r3.Vec{}, ErrNoPosition
	}
	if err := tr.pos.checkRange(t); err != nil {
		return r3.Vec{}, err
	}
	return tr.pos.position(t), nil
}

// Velocity returns the first derivative of the position spline at t,
// in units per second.
func (tr *Trajectory) Velocity(t float64) (r3.Vec, error) {
	if tr.pos == nil {
		return r3.Vec{}, ErrNoPosition
	}
	if err := tr.pos.checkRange(t); err != nil {
		return r3.Vec{}, err
	}
	return tr.pos.velocity(t), nil
}

// Acceleration returns the second derivative of the position spline at
// t, estimated by differencing the analytic first derivative across a
// short, range-clamped stencil.
func (tr *Trajectory) Acceleration(t float64) (r3.Vec, error) {
	if tr.pos == nil {
		return r3.Vec{}, ErrNoPosition
	}
	if err := tr.pos.checkRange(t); err != nil {
		return r3.Vec{}, err
	}
	return tr.pos.acceleration(t), nil
}

// Rotation returns the interpolated orientation at time t.
func (tr *Trajectory) Rotation(t float64) (quat.Number, error) {
	if tr.rot == nil {
		return quat.Number{}, ErrNoRotation
	}
	return tr.rot.rotation(t)
}

// AngularVelocity returns the body-frame angular rate at time t in
// rad/s. Within a sample segment the shortest-arc interpolation spins
// at a constant rate, so the value is exact for the fitted curve.
func (tr *Trajectory) AngularVelocity(t float64) (r3.Vec, error) {
	if tr.rot == nil {
		return r3.Vec{}, ErrNoRotation
	}
	return tr.rot.angularVelocity(t)
}

// positionSpline fits one natural cubic spline per world coordinate.
type positionSpline struct {
	times   []float64
	x, y, z interp.NaturalCubic
}

func newPositionSpline(s *timeseries.Series[r3.Vec]) (*positionSpline, error) {
	if s.Len() < 2 {
		return nil, fmt.Errorf("trajectory: need at least two position samples, got %d", s.Len())
	}

	times := s.Timestamps()
	vals := s.Values()
	xs := make([]float64, len(vals))
	ys := make([]float64, len(vals))
	zs := make([]float64, len(vals))
	for i, v := range vals {
		xs[i] = v.X
		ys[i] = v.Y
		zs[i] = v.Z
	}

	sp := &positionSpline{times: times}
	if err := sp.x.Fit(times, xs); err != nil {
		return nil, fmt.Errorf("trajectory: fit x spline: %w", err)
	}
	if err := sp.y.Fit(times, ys); err != nil {
		return nil, fmt.Errorf("trajectory: fit y spline: %w", err)
	}
	if err := sp.z.Fit(times, zs); err != nil {
		return nil, fmt.Errorf("trajectory: fit z spline: %w", err)
	}
	return sp, nil
}

func (sp *positionSpline) checkRange(t float64) error {
	start, end := sp.times[0], sp.times[len(sp.times)-1]
	if t < start || t > end {
		return fmt.Errorf("%w: t=%v not in [%v, %v]", ErrOutOfRange, t, start, end)
	}
	return nil
}

func (sp *positionSpline) position(t float64) r3.Vec {
	return r3.Vec{X: sp.x.Predict(t), Y: sp.y.Predict(t), Z: sp.z.Predict(t)}
}

func (sp *positionSpline) velocity(t float64) r3.Vec {
	return r3.Vec{
		X: sp.x.PredictDerivative(t),
		Y: sp.y.PredictDerivative(t),
		Z: sp.z.PredictDerivative(t),
	}
}

func (sp *positionSpline) acceleration(t float64) r3.Vec {
	start, end := sp.times[0], sp.times[len(sp.times)-1]
	h := (end - start) * 1e-6
	lo := max(start, t-h)
	hi := min(end, t+h)
	v0 := sp.velocity(lo)
	v1 := sp.velocity(hi)
	return r3.Scale(1/(hi-lo), r3.Sub(v1, v0))
}

// rotationCurve interpolates through orientation samples along minor
// arcs.
type rotationCurve struct {
	times []float64
	quats []quat.Number
}

func newRotationCurve(s *timeseries.Series[quat.Number]) (*rotationCurve, error) {
	if s.Len() < 2 {
		return nil, fmt.Errorf("trajectory: need at least two orientation samples, got %d", s.Len())
	}
	return &rotationCurve{times: s.Timestamps(), quats: s.Values()}, nil
}

func (rc *rotationCurve) checkRange(t float64) error {
	start, end := rc.times[0], rc.times[len(rc.times)-1]
	if t < start || t >= end {
		return fmt.Errorf("%w: t=%v not in [%v, %v)", ErrOutOfRange, t, start, end)
	}
	return nil
}

func (rc *rotationCurve) rotation(t float64) (quat.Number, error) {
	if err := rc.checkRange(t); err != nil {
		return quat.Number{}, err
	}
	return rotation.InterpolateAt(rc.quats, rc.times, t)
}

func (rc *rotationCurve) angularVelocity(t float64) (r3.Vec, error) {
	if err := rc.checkRange(t); err != nil {
		return r3.Vec{}, err
	}
	i := segmentIndex(rc.times, t)
	dt := rc.times[i+1] - rc.times[i]
	return rotation.AngularVelocity(rc.quats[i], rc.quats[i+1], dt), nil
}

// segmentIndex returns i such that times[i] <= t < times[i+1]. The
// caller has already bounds-checked t.
func segmentIndex(times []float64, t float64) int {
	lo, hi := 0, len(times)-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if times[mid] <= t {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}
