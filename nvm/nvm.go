// Package nvm reads VisualSFM NVM_V3 reconstruction files: the camera
// list with per-frame poses and the sparse 3-D point cloud with its
// visibility measurements. Camera rotations in an NVM file map world
// coordinates into the camera frame; positions are camera centers in
// the world frame.
package nvm

import (
	"sort"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Camera is one reconstructed view.
type Camera struct {
	// FrameNumber is parsed from the digits of the image filename
	// (frame0031.jpg -> 31) and orders cameras on the video timeline.
	FrameNumber int
	Name        string
	FocalLength float64
	// Orientation rotates world coordinates into this camera's frame.
	Orientation quat.Number
	// Position is the camera center in world coordinates.
	Position r3.Vec
	// RadialDistortion is the single-parameter distortion coefficient.
	RadialDistortion float64
}

// Point is one sparse world point with the frames that observed it.
type Point struct {
	Position r3.Vec
	R, G, B  uint8
	// VisibleInFrames lists the frame numbers of the cameras that
	// measured this point, in file order.
	VisibleInFrames []int
}

// Model is a parsed reconstruction.
type Model struct {
	Cameras []Camera
	Points  []Point
}

// SortedCameras returns the cameras ordered by ascending frame number.
// The file order follows whatever order images were added to the
// reconstruction, which rarely matches the video timeline.
func (m *Model) SortedCameras() []Camera {
	out := append([]Camera(nil), m.Cameras...)
	sort.Slice(out, func(i, j int) bool { return out[i].FrameNumber < out[j].FrameNumber })
	return out
}
