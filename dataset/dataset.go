// Package dataset assembles ground-truth motion datasets for camera/IMU
// simulation: a continuous camera trajectory plus a sparse world
// structure, built from a visual reconstruction, a gyroscope stream, or
// both. The Dataset type holds the ingested sample series and the
// trajectory fitted to them; the Builder type handles source selection
// and the temporal/rotational alignment between reconstruction and
// gyroscope data.
package dataset

import (
	"fmt"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/groundtruth/nvm"
	"github.com/banshee-data/groundtruth/rotation"
	"github.com/banshee-data/groundtruth/timeseries"
	"github.com/banshee-data/groundtruth/trajectory"
)

// FrameTimeFunc maps a camera frame number to its timestamp in seconds.
type FrameTimeFunc func(frame int) float64

// Landmark is a static world point a simulated camera can observe.
type Landmark struct {
	Position r3.Vec
	// VisibleInFrames lists the frame numbers whose cameras observed
	// the point in the source reconstruction. Empty means
	// no visibility information was recorded.
	VisibleInFrames []int
}

// Dataset carries the ground truth for one recording: sampled position
// and orientation series, the trajectory fitted to them, and the
// landmark cloud. Series are replaced wholesale by the ingestion
// methods; the trajectory is rebuilt only on an explicit
// RebuildTrajectory call, so several series can be swapped in before
// paying for a refit.
type Dataset struct {
	positions    *timeseries.Series[r3.Vec]
	orientations *timeseries.Series[quat.Number]
	traj         *trajectory.Trajectory
	landmarks    []Landmark
}

// New returns an empty dataset.
func New() *Dataset {
	return &Dataset{}
}

// PositionSeries returns the current position samples, or nil.
func (d *Dataset) PositionSeries() *timeseries.Series[r3.Vec] { return d.positions }

// OrientationSeries returns the current orientation samples, or nil.
func (d *Dataset) OrientationSeries() *timeseries.Series[quat.Number] { return d.orientations }

// Trajectory returns the trajectory from the last RebuildTrajectory
// call, or nil if none has happened yet.
func (d *Dataset) Trajectory() *trajectory.Trajectory { return d.traj }

// Landmarks returns the landmark cloud.
func (d *Dataset) Landmarks() []Landmark { return d.landmarks }

// cameraTimes orders the model's cameras by frame number and maps each
// frame to seconds. Exactly one of frameTime and fps must be supplied;
// fps <= 0 means "no frame rate given".
func cameraTimes(m *nvm.Model, frameTime FrameTimeFunc, fps float64) ([]nvm.Camera, []float64, error) {
	if m == nil {
		return nil, nil, fmt.Errorf("dataset: nil reconstruction model")
	}
	hasFunc := frameTime != nil
	hasFPS := fps > 0
	if hasFunc == hasFPS {
		return nil, nil, fmt.Errorf("%w: got frame-time function=%v, fps=%v", ErrAmbiguousTimeMapping, hasFunc, fps)
	}
	if !hasFunc {
		frameTime = func(frame int) float64 { return float64(frame) / fps }
	}

	cams := m.SortedCameras()
	times := make([]float64, len(cams))
	for i, c := range cams {
		times[i] = frameTime(c.FrameNumber)
	}
	return cams, times, nil
}

// SetPositionFromReconstruction replaces the position series with the
// camera centers of the reconstruction, ordered by frame number and
// timestamped through the frame-time mapping. Duplicate frame numbers
// surface as a non-increasing timestamp error.
func (d *Dataset) SetPositionFromReconstruction(m *nvm.Model, frameTime FrameTimeFunc, fps float64) error {
	cams, times, err := cameraTimes(m, frameTime, fps)
	if err != nil {
		return err
	}
	vals := make([]r3.Vec, len(cams))
	for i, c := range cams {
		vals[i] = c.Position
	}
	s, err := timeseries.New(times, vals)
	if err != nil {
		return fmt.Errorf("dataset: position series: %w", err)
	}
	d.positions = s
	return nil
}

// SetOrientationFromReconstruction replaces the orientation series with
// the camera rotations of the reconstruction. The quaternions are made
// sign-continuous and then resampled onto a uniform grid spanning the
// same window with the same sample count; per-frame solvers deliver
// ragged timestamps when frames are missing, and downstream consumers
// assume an even grid.
func (d *Dataset) SetOrientationFromReconstruction(m *nvm.Model, frameTime FrameTimeFunc, fps float64) error {
	cams, times, err := cameraTimes(m, frameTime, fps)
	if err != nil {
		return err
	}
	qs := make([]quat.Number, len(cams))
	for i, c := range cams {
		qs[i] = c.Orientation
	}

	qs = rotation.Unflip(qs)
	qs, grid, err := rotation.Resample(qs, times, 0)
	if err != nil {
		return fmt.Errorf("dataset: resample orientations: %w", err)
	}

	s, err := timeseries.New(grid, qs)
	if err != nil {
		return fmt.Errorf("dataset: orientation series: %w", err)
	}
	d.orientations = s
	return nil
}

// SetOrientationFromGyro replaces the orientation series by integrating
// body-frame angular rates (rad/s). The stream must pair each rate with
// a timestamp, contain at least two samples, and be uniformly sampled;
// integration starts from the identity attitude. The integrated
// quaternions are made sign-continuous before storage.
func (d *Dataset) SetOrientationFromGyro(rates []r3.Vec, times []float64) error {
	if len(rates) != len(times) {
		return fmt.Errorf("%w: %d rate samples, %d timestamps", ErrMalformedGyro, len(rates), len(times))
	}
	if len(rates) < 2 {
		return fmt.Errorf("%w: need at least two samples, got %d", ErrMalformedGyro, len(rates))
	}
	if !rotation.IsUniformlySpaced(times) {
		return fmt.Errorf("%w: timestamps must be uniformly spaced", ErrMalformedGyro)
	}

	dt := times[1] - times[0]
	qs, err := rotation.IntegrateGyro(rates, dt, quat.Number{})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedGyro, err)
	}
	return d.setOrientationSamples(qs, times)
}

// SetOrientationFromQuaternions replaces the orientation series with
// pre-integrated attitudes, for streams whose integration happened
// upstream (aligned gyro tails, external estimators). Only the pairing
// of samples to timestamps is validated; the quaternions are made
// sign-continuous before storage.
func (d *Dataset) SetOrientationFromQuaternions(qs []quat.Number, times []float64) error {
	if len(qs) != len(times) {
		return fmt.Errorf("%w: %d quaternions, %d timestamps", ErrMalformedGyro, len(qs), len(times))
	}
	if len(qs) == 0 {
		return fmt.Errorf("%w: empty stream", ErrMalformedGyro)
	}
	return d.setOrientationSamples(qs, times)
}

func (d *Dataset) setOrientationSamples(qs []quat.Number, times []float64) error {
	s, err := timeseries.New(times, rotation.Unflip(qs))
	if err != nil {
		return fmt.Errorf("dataset: orientation series: %w", err)
	}
	d.orientations = s
	return nil
}

// SetPositionSeries replaces the position series wholesale. Used when
// reloading a persisted dataset; live ingestion goes through the
// reconstruction methods.
func (d *Dataset) SetPositionSeries(s *timeseries.Series[r3.Vec]) {
	d.positions = s
}

// SetOrientationSeries replaces the orientation series wholesale.
func (d *Dataset) SetOrientationSeries(s *timeseries.Series[quat.Number]) {
	d.orientations = s
}

// AddLandmarksFromReconstruction appends the reconstruction's sparse
// points to the landmark cloud, keeping their visibility lists.
func (d *Dataset) AddLandmarksFromReconstruction(m *nvm.Model) {
	for _, p := range m.Points {
		d.landmarks = append(d.landmarks, Landmark{
			Position:        p.Position,
			VisibleInFrames: append([]int(nil), p.VisibleInFrames...),
		})
	}
}

// AddLandmarks appends landmarks directly, for persistence reloads and
// synthetic scenes.
func (d *Dataset) AddLandmarks(lms ...Landmark) {
	d.landmarks = append(d.landmarks, lms...)
}

// LandmarksVisibleInFrame returns the landmarks whose visibility lists
// include the given frame number.
func (d *Dataset) LandmarksVisibleInFrame(frame int) []Landmark {
	var out []Landmark
	for _, lm := range d.landmarks {
		for _, f := range lm.VisibleInFrames {
			if f == frame {
				out = append(out, lm)
				break
			}
		}
	}
	return out
}

// RebuildTrajectory refits the trajectory to the current series. It
// fails if no series is present or a present series is too short to
// define a curve; on failure the previous trajectory is kept.
func (d *Dataset) RebuildTrajectory() error {
	tr, err := trajectory.New(d.positions, d.orientations)
	if err != nil {
		return fmt.Errorf("dataset: rebuild trajectory: %w", err)
	}
	d.traj = tr
	return nil
}
