package dataset

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/groundtruth/nvm"
	"github.com/banshee-data/groundtruth/rotation"
)

// Source identifies where a dataset component comes from.
type Source uint8

const (
	// SourceUnset is the zero value; builds reject it.
	SourceUnset Source = iota
	// SourceGyro selects the integrated gyroscope stream.
	SourceGyro
	// SourceReconstruction selects the visual reconstruction.
	SourceReconstruction
)

// sourceNames holds the external spellings used by config files and
// CLI flags.
var sourceNames = map[Source]string{
	SourceUnset:          "unset",
	SourceGyro:           "imu",
	SourceReconstruction: "nvm",
}

func (s Source) String() string {
	if n, ok := sourceNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Source(%d)", uint8(s))
}

// ParseSource maps the external spellings "imu" and "nvm" onto the
// Source enum.
func ParseSource(name string) (Source, error) {
	switch name {
	case "imu":
		return SourceGyro, nil
	case "nvm":
		return SourceReconstruction, nil
	default:
		return SourceUnset, fmt.Errorf("%w: %q", ErrUnknownSource, name)
	}
}

// Builder accumulates raw sources and source selections, then builds a
// Dataset. Each source can be added once; gyro streams are validated
// and integrated at add time so shape errors surface before any
// selection logic runs.
type Builder struct {
	model     *nvm.Model
	cameraFPS float64

	gyroRates []r3.Vec
	gyroTimes []float64
	gyroQuats []quat.Number

	orientationSource Source
	positionSource    Source
	landmarkSource    Source
}

// NewBuilder returns a builder with no sources and no selections.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddReconstruction registers the visual reconstruction and the frame
// rate that maps its frame numbers to seconds. A second registration
// fails with ErrDuplicateSource and leaves the first in place.
func (b *Builder) AddReconstruction(m *nvm.Model, cameraFPS float64) error {
	if m == nil {
		return fmt.Errorf("dataset: nil reconstruction model")
	}
	if cameraFPS <= 0 || math.IsNaN(cameraFPS) {
		return fmt.Errorf("dataset: camera fps must be positive, got %v", cameraFPS)
	}
	if b.model != nil {
		return fmt.Errorf("%w: reconstruction", ErrDuplicateSource)
	}
	b.model = m
	b.cameraFPS = cameraFPS
	return nil
}

// AddGyro registers a body-frame angular rate stream (rad/s) with its
// timestamps. The stream must pair every sample with a timestamp, hold
// at least two samples, and be uniformly sampled. The stream is
// integrated from identity immediately; the result is kept for
// inspection and replaced by the camera-aligned integration during
// Build. Validation happens before any state changes, so a failed call
// leaves the builder untouched.
func (b *Builder) AddGyro(rates []r3.Vec, times []float64) error {
	if b.gyroRates != nil {
		return fmt.Errorf("%w: gyro stream", ErrDuplicateSource)
	}
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

	b.gyroRates = append([]r3.Vec(nil), rates...)
	b.gyroTimes = append([]float64(nil), times...)
	b.gyroQuats = qs
	return nil
}

// HasReconstruction reports whether a reconstruction has been added.
func (b *Builder) HasReconstruction() bool { return b.model != nil }

// HasGyro reports whether a gyro stream has been added.
func (b *Builder) HasGyro() bool { return b.gyroRates != nil }

// IntegratedGyroOrientations returns a copy of the identity-seeded
// integration of the registered gyro stream, or nil if none was added.
func (b *Builder) IntegratedGyroOrientations() []quat.Number {
	if b.gyroQuats == nil {
		return nil
	}
	return append([]quat.Number(nil), b.gyroQuats...)
}

// SetOrientationSource selects where orientations come from.
func (b *Builder) SetOrientationSource(s Source) error {
	if s != SourceGyro && s != SourceReconstruction {
		return fmt.Errorf("%w: %v cannot provide orientations", ErrUnknownSource, s)
	}
	b.orientationSource = s
	return nil
}

// SetPositionSource selects where positions come from.
func (b *Builder) SetPositionSource(s Source) error {
	if s != SourceGyro && s != SourceReconstruction {
		return fmt.Errorf("%w: %v cannot provide positions", ErrUnknownSource, s)
	}
	b.positionSource = s
	return nil
}

// SetLandmarkSource selects where landmarks come from. Only the
// reconstruction carries world structure.
func (b *Builder) SetLandmarkSource(s Source) error {
	if s != SourceReconstruction {
		return fmt.Errorf("%w: %v cannot provide landmarks", ErrUnknownSource, s)
	}
	b.landmarkSource = s
	return nil
}

// SelectedSources returns the current selections in orientation,
// position, landmark order.
func (b *Builder) SelectedSources() (orientation, position, landmark Source) {
	return b.orientationSource, b.positionSource, b.landmarkSource
}

// Build assembles the dataset from the selected sources and fits its
// trajectory:
//
//   - All selectors set to the reconstruction: both series come from
//     the camera poses.
//   - Orientation from the gyro: the stream is re-integrated seeded
//     from the camera pose nearest its start (see
//     alignedGyroOrientations), positions still come from the
//     reconstruction. Positions cannot come from a gyro, so a gyro
//     position selection keeps using the reconstruction.
//
// The builder state is not consumed; Build can run again after further
// selection changes.
func (b *Builder) Build() (*Dataset, error) {
	if b.orientationSource == SourceUnset || b.positionSource == SourceUnset || b.landmarkSource == SourceUnset {
		return nil, fmt.Errorf("%w: orientation, position and landmark sources must all be selected", ErrIncompleteConfig)
	}
	if b.landmarkSource != SourceReconstruction {
		return nil, fmt.Errorf("%w: %v cannot provide landmarks", ErrUnknownSource, b.landmarkSource)
	}
	if b.model == nil {
		return nil, fmt.Errorf("%w: no reconstruction added", ErrIncompleteConfig)
	}
	if b.orientationSource == SourceGyro && b.gyroRates == nil {
		return nil, fmt.Errorf("%w: orientation selected from gyro but no gyro stream added", ErrIncompleteConfig)
	}

	ds := New()
	ds.AddLandmarksFromReconstruction(b.model)

	allReconstruction := b.orientationSource == SourceReconstruction &&
		b.positionSource == SourceReconstruction
	if allReconstruction {
		if err := ds.SetOrientationFromReconstruction(b.model, nil, b.cameraFPS); err != nil {
			return nil, err
		}
	} else if b.orientationSource == SourceGyro {
		qs, times, err := b.alignedGyroOrientations()
		if err != nil {
			return nil, err
		}
		if err := ds.SetOrientationFromQuaternions(qs, times); err != nil {
			return nil, err
		}
	}
	if err := ds.SetPositionFromReconstruction(b.model, nil, b.cameraFPS); err != nil {
		return nil, err
	}

	if err := ds.RebuildTrajectory(); err != nil {
		return nil, err
	}
	return ds, nil
}

// alignedGyroOrientations re-integrates the gyro stream in the
// reconstruction's world frame:
//
//  1. find the first camera (by frame order) whose time lies at or
//     after the gyro stream's start,
//  2. find the gyro sample nearest that camera's time,
//  3. integrate from that sample onward, seeded with the conjugate of
//     the camera's rotation (NVM rotations map world to camera; the
//     integrator propagates camera-to-world),
//  4. conjugate the results back into the reconstruction's convention.
//
// Gyro samples before the alignment point are discarded: there is no
// camera pose to anchor them to.
func (b *Builder) alignedGyroOrientations() ([]quat.Number, []float64, error) {
	cams := b.model.SortedCameras()
	if len(cams) == 0 {
		return nil, nil, fmt.Errorf("dataset: reconstruction has no cameras")
	}

	gyroStart := b.gyroTimes[0]
	refIdx := -1
	var refTime float64
	for i, c := range cams {
		t := float64(c.FrameNumber) / b.cameraFPS
		if t >= gyroStart {
			refIdx = i
			refTime = t
			break
		}
	}
	if refIdx < 0 {
		return nil, nil, fmt.Errorf("dataset: no camera at or after gyro start %v; cannot align", gyroStart)
	}

	startIdx := nearestIndex(b.gyroTimes, refTime)
	tail := b.gyroRates[startIdx:]
	tailTimes := b.gyroTimes[startIdx:]
	if len(tail) < 2 {
		return nil, nil, fmt.Errorf("dataset: only %d gyro samples at or after camera time %v", len(tail), refTime)
	}

	initial := quat.Conj(cams[refIdx].Orientation)
	dt := tailTimes[1] - tailTimes[0]
	qs, err := rotation.IntegrateGyro(tail, dt, initial)
	if err != nil {
		return nil, nil, fmt.Errorf("dataset: integrate aligned gyro stream: %w", err)
	}
	for i, q := range qs {
		qs[i] = quat.Conj(q)
	}
	return qs, append([]float64(nil), tailTimes...), nil
}

// nearestIndex returns the index of the time closest to t.
func nearestIndex(times []float64, t float64) int {
	best := 0
	bestDist := math.Abs(times[0] - t)
	for i, v := range times[1:] {
		if d := math.Abs(v - t); d < bestDist {
			best = i + 1
			bestDist = d
		}
	}
	return best
}
