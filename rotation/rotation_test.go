package rotation

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/num/quat"
)

// zRotation returns the unit quaternion for a rotation of angle radians
// about the z axis.
func zRotation(angle float64) quat.Number {
	return quat.Number{Real: math.Cos(angle / 2), Kmag: math.Sin(angle / 2)}
}

func quatNear(a, b quat.Number, tol float64) bool {
	return math.Abs(a.Real-b.Real) <= tol &&
		math.Abs(a.Imag-b.Imag) <= tol &&
		math.Abs(a.Jmag-b.Jmag) <= tol &&
		math.Abs(a.Kmag-b.Kmag) <= tol
}

// sameRotation compares quaternions up to the double-cover sign.
func sameRotation(a, b quat.Number, tol float64) bool {
	return quatNear(a, b, tol) || quatNear(a, quat.Scale(-1, b), tol)
}

func TestUnflip(t *testing.T) {
	q := zRotation(0.4)
	neg := quat.Scale(-1, q)

	testCases := []struct {
		name string
		in   []quat.Number
		want []quat.Number
	}{
		{"empty", nil, []quat.Number{}},
		{"single", []quat.Number{q}, []quat.Number{q}},
		{"already_continuous", []quat.Number{q, q, q}, []quat.Number{q, q, q}},
		{"middle_flip", []quat.Number{q, neg, q}, []quat.Number{q, q, q}},
		{"alternating", []quat.Number{q, neg, q, neg}, []quat.Number{q, q, q, q}},
		// The first sample's sign is preserved, later ones follow it.
		{"negative_start", []quat.Number{neg, q, neg}, []quat.Number{neg, neg, neg}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in := append([]quat.Number(nil), tc.in...)
			got := Unflip(tc.in)
			if len(got) != len(tc.want) {
				t.Fatalf("Unflip() length = %d, want %d", len(got), len(tc.want))
			}
			for i := range got {
				if !quatNear(got[i], tc.want[i], 0) {
					t.Errorf("Unflip()[%d] = %+v, want %+v", i, got[i], tc.want[i])
				}
			}
			for i := range in {
				if !quatNear(tc.in[i], in[i], 0) {
					t.Errorf("Unflip() modified its input at index %d", i)
				}
			}
		})
	}
}

func TestUnflipIdempotent(t *testing.T) {
	q := zRotation(0.4)
	in := []quat.Number{q, quat.Scale(-1, q), q, quat.Scale(-1, q)}

	once := Unflip(in)
	twice := Unflip(once)
	for i := range once {
		if !quatNear(twice[i], once[i], 0) {
			t.Errorf("Unflip(Unflip())[%d] = %+v, want %+v", i, twice[i], once[i])
		}
	}
}

func TestSlerpEndpoints(t *testing.T) {
	q0 := zRotation(0)
	q1 := zRotation(math.Pi / 2)

	if got := Slerp(q0, q1, 0); !quatNear(got, q0, 1e-12) {
		t.Errorf("Slerp(tau=0) = %+v, want %+v", got, q0)
	}
	if got := Slerp(q0, q1, 1); !quatNear(got, q1, 1e-12) {
		t.Errorf("Slerp(tau=1) = %+v, want %+v", got, q1)
	}
}

func TestSlerpIdenticalInputs(t *testing.T) {
	q := zRotation(1.1)
	for _, tau := range []float64{0, 0.25, 0.5, 0.99, 1} {
		if got := Slerp(q, q, tau); !quatNear(got, q, 1e-12) {
			t.Errorf("Slerp(q, q, %v) = %+v, want %+v", tau, got, q)
		}
	}
}

func TestSlerpConstantAngularSpeed(t *testing.T) {
	const total = 1.6 // radians about z
	q0 := zRotation(0)
	q1 := zRotation(total)

	for _, tau := range []float64{0.1, 0.25, 0.5, 0.75, 0.9} {
		want := zRotation(total * tau)
		if got := Slerp(q0, q1, tau); !quatNear(got, want, 1e-12) {
			t.Errorf("Slerp(tau=%v) = %+v, want %+v", tau, got, want)
		}
	}
}

func TestSlerpTakesShortArc(t *testing.T) {
	// q1 carries a flipped sign; the interpolant must still move along
	// the 0.8 rad arc instead of the 2*pi-0.8 complement.
	q0 := zRotation(0)
	q1 := quat.Scale(-1, zRotation(0.8))

	got := Slerp(q0, q1, 0.5)
	want := zRotation(0.4)
	if !sameRotation(got, want, 1e-12) {
		t.Errorf("Slerp() across a sign flip = %+v, want %+v up to sign", got, want)
	}
}

func TestInterpolateAt(t *testing.T) {
	times := []float64{0, 1, 2}
	qs := []quat.Number{zRotation(0), zRotation(1), zRotation(2)}

	testCases := []struct {
		name    string
		t       float64
		want    quat.Number
		wantErr bool
	}{
		{"at_first_sample", 0, zRotation(0), false},
		{"interior_sample", 1, zRotation(1), false},
		{"between_samples", 0.5, zRotation(0.5), false},
		{"second_segment", 1.75, zRotation(1.75), false},
		{"before_first", -0.1, quat.Number{}, true},
		{"at_last", 2, quat.Number{}, true},
		{"after_last", 2.5, quat.Number{}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := InterpolateAt(qs, times, tc.t)
			if tc.wantErr {
				if !errors.Is(err, ErrOutOfRange) {
					t.Errorf("InterpolateAt(%v) error = %v, want ErrOutOfRange", tc.t, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("InterpolateAt(%v) unexpected error: %v", tc.t, err)
			}
			if !quatNear(got, tc.want, 1e-12) {
				t.Errorf("InterpolateAt(%v) = %+v, want %+v", tc.t, got, tc.want)
			}
		})
	}
}

func TestInterpolateAtLengthMismatch(t *testing.T) {
	_, err := InterpolateAt([]quat.Number{zRotation(0)}, []float64{0, 1}, 0.5)
	if err == nil {
		t.Error("InterpolateAt() with mismatched lengths: expected error, got nil")
	}
}

func TestResampleSameCountRoundTrips(t *testing.T) {
	times := []float64{0, 0.5, 1.0, 1.5}
	qs := []quat.Number{zRotation(0), zRotation(0.3), zRotation(0.6), zRotation(0.9)}

	got, gotTimes, err := Resample(qs, times, 0)
	if err != nil {
		t.Fatalf("Resample() unexpected error: %v", err)
	}
	for i := range qs {
		if !quatNear(got[i], qs[i], 0) {
			t.Errorf("Resample()[%d] = %+v, want original %+v", i, got[i], qs[i])
		}
		if gotTimes[i] != times[i] {
			t.Errorf("Resample() time[%d] = %v, want %v", i, gotTimes[i], times[i])
		}
	}
}

func TestResampleUpsamples(t *testing.T) {
	// Non-uniform input: 3 samples over [0, 2] resampled onto 5 even steps.
	times := []float64{0, 0.5, 2.0}
	qs := []quat.Number{zRotation(0), zRotation(0.5), zRotation(2.0)}

	got, gotTimes, err := Resample(qs, times, 5)
	if err != nil {
		t.Fatalf("Resample() unexpected error: %v", err)
	}
	if len(got) != 5 || len(gotTimes) != 5 {
		t.Fatalf("Resample() lengths = %d, %d, want 5", len(got), len(gotTimes))
	}

	wantTimes := []float64{0, 0.5, 1.0, 1.5, 2.0}
	for i, wt := range wantTimes {
		if math.Abs(gotTimes[i]-wt) > 1e-12 {
			t.Errorf("Resample() time[%d] = %v, want %v", i, gotTimes[i], wt)
		}
	}

	// The source stream spins about z at 1 rad/s, so every resampled
	// quaternion is the rotation by its own timestamp.
	for i, wt := range wantTimes {
		want := zRotation(wt)
		if !quatNear(got[i], want, 1e-9) {
			t.Errorf("Resample()[%d] = %+v, want %+v", i, got[i], want)
		}
	}

	// Grid points landing on input samples are copied bit for bit.
	if !quatNear(got[0], qs[0], 0) || !quatNear(got[1], qs[1], 0) || !quatNear(got[4], qs[2], 0) {
		t.Error("Resample() did not copy coincident samples verbatim")
	}
}

func TestResampleDownToEndpoints(t *testing.T) {
	times := []float64{0, 1, 2, 3}
	qs := []quat.Number{zRotation(0), zRotation(0.1), zRotation(0.2), zRotation(0.3)}

	got, gotTimes, err := Resample(qs, times, 2)
	if err != nil {
		t.Fatalf("Resample() unexpected error: %v", err)
	}
	if !quatNear(got[0], qs[0], 0) || !quatNear(got[1], qs[3], 0) {
		t.Errorf("Resample(count=2) = %+v, want the endpoint samples", got)
	}
	if gotTimes[0] != 0 || gotTimes[1] != 3 {
		t.Errorf("Resample(count=2) times = %v, want [0 3]", gotTimes)
	}
}

func TestResampleTooFewSamples(t *testing.T) {
	_, _, err := Resample([]quat.Number{zRotation(0)}, []float64{0}, 10)
	if err == nil {
		t.Error("Resample() with one sample: expected error, got nil")
	}
}

func TestIsUniformlySpaced(t *testing.T) {
	testCases := []struct {
		name  string
		times []float64
		want  bool
	}{
		{"uniform", []float64{0, 0.01, 0.02, 0.03}, true},
		{"two_samples", []float64{0, 1}, true},
		{"jitter_within_tolerance", []float64{0, 0.01, 0.02 + 1e-12, 0.03}, true},
		{"ragged", []float64{0, 0.01, 0.025, 0.03}, false},
		{"decreasing", []float64{0, -0.01, -0.02}, false},
		{"single_sample", []float64{0.5}, false},
		{"empty", nil, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsUniformlySpaced(tc.times); got != tc.want {
				t.Errorf("IsUniformlySpaced(%v) = %v, want %v", tc.times, got, tc.want)
			}
		})
	}
}
