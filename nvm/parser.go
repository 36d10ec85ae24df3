package nvm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrBadFormat reports a file that does not follow the NVM_V3 layout.
var ErrBadFormat = errors.New("nvm: malformed file")

// ParseFile reads and parses the NVM file at path.
func ParseFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("nvm: open %s: %w", path, err)
	}
	defer f.Close()
	m, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("nvm: parse %s: %w", path, err)
	}
	return m, nil
}

// Parse reads an NVM_V3 reconstruction from r. The camera section is
// required; the point section is optional (a reconstruction exported
// without points parses to a Model with no landmarks). Trailing
// sections after the point list (full model PLY data) are ignored.
func Parse(r io.Reader) (*Model, error) {
	lr := newLineReader(r)

	header, ok := lr.next()
	if !ok {
		return nil, fmt.Errorf("%w: empty file", ErrBadFormat)
	}
	if !strings.HasPrefix(header, "NVM_V3") {
		return nil, fmt.Errorf("%w: line %d: expected NVM_V3 header, got %q", ErrBadFormat, lr.line, header)
	}

	nCameras, err := lr.nextInt("camera count")
	if err != nil {
		return nil, err
	}
	if nCameras < 0 {
		return nil, fmt.Errorf("%w: line %d: negative camera count %d", ErrBadFormat, lr.line, nCameras)
	}

	m := &Model{Cameras: make([]Camera, 0, nCameras)}
	for i := 0; i < nCameras; i++ {
		line, ok := lr.next()
		if !ok {
			return nil, fmt.Errorf("%w: expected %d cameras, file ends after %d", ErrBadFormat, nCameras, i)
		}
		cam, err := parseCameraLine(line, lr.line)
		if err != nil {
			return nil, err
		}
		m.Cameras = append(m.Cameras, cam)
	}

	// The point section is optional.
	line, ok := lr.next()
	if !ok {
		return m, nil
	}
	nPoints, err := strconv.Atoi(line)
	if err != nil || nPoints < 0 {
		return nil, fmt.Errorf("%w: line %d: bad point count %q", ErrBadFormat, lr.line, line)
	}

	m.Points = make([]Point, 0, nPoints)
	for i := 0; i < nPoints; i++ {
		line, ok := lr.next()
		if !ok {
			return nil, fmt.Errorf("%w: expected %d points, file ends after %d", ErrBadFormat, nPoints, i)
		}
		p, err := parsePointLine(line, lr.line, m.Cameras)
		if err != nil {
			return nil, err
		}
		m.Points = append(m.Points, p)
	}

	return m, nil
}

// parseCameraLine decodes one camera entry:
//
//	<name> <focal> <qw> <qx> <qy> <qz> <cx> <cy> <cz> <distortion> 0
func parseCameraLine(line string, lineNo int) (Camera, error) {
	fields := strings.Fields(line)
	if len(fields) < 11 {
		return Camera{}, fmt.Errorf("%w: line %d: camera needs 11 fields, got %d", ErrBadFormat, lineNo, len(fields))
	}
	vals, err := parseFloats(fields[1:11])
	if err != nil {
		return Camera{}, fmt.Errorf("%w: line %d: %v", ErrBadFormat, lineNo, err)
	}

	name := fields[0]
	frame, err := FrameNumber(name)
	if err != nil {
		return Camera{}, fmt.Errorf("%w: line %d: %v", ErrBadFormat, lineNo, err)
	}

	return Camera{
		FrameNumber:      frame,
		Name:             name,
		FocalLength:      vals[0],
		Orientation:      quat.Number{Real: vals[1], Imag: vals[2], Jmag: vals[3], Kmag: vals[4]},
		Position:         r3.Vec{X: vals[5], Y: vals[6], Z: vals[7]},
		RadialDistortion: vals[8],
	}, nil
}

// parsePointLine decodes one point entry:
//
//	<x> <y> <z> <r> <g> <b> <nmeas> (<image> <feature> <u> <v>)*
//
// Measurement image indices refer to camera file order and are mapped
// to frame numbers here.
func parsePointLine(line string, lineNo int, cameras []Camera) (Point, error) {
	fields := strings.Fields(line)
	if len(fields) < 7 {
		return Point{}, fmt.Errorf("%w: line %d: point needs at least 7 fields, got %d", ErrBadFormat, lineNo, len(fields))
	}
	xyz, err := parseFloats(fields[0:3])
	if err != nil {
		return Point{}, fmt.Errorf("%w: line %d: %v", ErrBadFormat, lineNo, err)
	}

	var rgb [3]uint8
	for i, f := range fields[3:6] {
		v, err := strconv.Atoi(f)
		if err != nil || v < 0 || v > 255 {
			return Point{}, fmt.Errorf("%w: line %d: bad color component %q", ErrBadFormat, lineNo, f)
		}
		rgb[i] = uint8(v)
	}

	nMeas, err := strconv.Atoi(fields[6])
	if err != nil || nMeas < 0 {
		return Point{}, fmt.Errorf("%w: line %d: bad measurement count %q", ErrBadFormat, lineNo, fields[6])
	}
	if want := 7 + 4*nMeas; len(fields) < want {
		return Point{}, fmt.Errorf("%w: line %d: %d measurements need %d fields, got %d",
			ErrBadFormat, lineNo, nMeas, want, len(fields))
	}

	p := Point{
		Position:        r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]},
		R:               rgb[0],
		G:               rgb[1],
		B:               rgb[2],
		VisibleInFrames: make([]int, 0, nMeas),
	}
	for k := 0; k < nMeas; k++ {
		idxField := fields[7+4*k]
		idx, err := strconv.Atoi(idxField)
		if err != nil {
			return Point{}, fmt.Errorf("%w: line %d: bad image index %q", ErrBadFormat, lineNo, idxField)
		}
		if idx < 0 || idx >= len(cameras) {
			return Point{}, fmt.Errorf("%w: line %d: image index %d outside camera list (%d cameras)",
				ErrBadFormat, lineNo, idx, len(cameras))
		}
		p.VisibleInFrames = append(p.VisibleInFrames, cameras[idx].FrameNumber)
	}
	return p, nil
}

// FrameNumber extracts the frame number from an image filename by
// concatenating its digit runs: "frame_0123.jpg" -> 123. Directories
// and extensions are stripped first so numbered parent paths do not
// leak in.
func FrameNumber(name string) (int, error) {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	var digits strings.Builder
	for _, r := range base {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0, fmt.Errorf("no frame number in image name %q", name)
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0, fmt.Errorf("frame number in %q overflows: %v", name, err)
	}
	return n, nil
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", f)
		}
		out[i] = v
	}
	return out, nil
}

// lineReader yields trimmed, non-empty lines with their line numbers.
type lineReader struct {
	sc   *bufio.Scanner
	line int
}

func newLineReader(r io.Reader) *lineReader {
	sc := bufio.NewScanner(r)
	// Point lines grow with their measurement lists; the default token
	// limit is too small for dense reconstructions.
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	return &lineReader{sc: sc}
}

func (lr *lineReader) next() (string, bool) {
	for lr.sc.Scan() {
		lr.line++
		s := strings.TrimSpace(lr.sc.Text())
		if s == "" {
			continue
		}
		return s, true
	}
	return "", false
}

func (lr *lineReader) nextInt(what string) (int, error) {
	line, ok := lr.next()
	if !ok {
		return 0, fmt.Errorf("%w: missing %s", ErrBadFormat, what)
	}
	n, err := strconv.Atoi(line)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d: bad %s %q", ErrBadFormat, lr.line, what, line)
	}
	return n, nil
}
