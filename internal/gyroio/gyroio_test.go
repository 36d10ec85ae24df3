package gyroio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestRead(t *testing.T) {
	input := `t,wx,wy,wz
# device: synthetic
0,0.1,0.2,0.3
0.01,0.11,0.21,0.31
0.02,0.12,0.22,0.32
`
	times, rates, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	wantTimes := []float64{0, 0.01, 0.02}
	if diff := cmp.Diff(wantTimes, times); diff != "" {
		t.Errorf("times mismatch (-want +got):\n%s", diff)
	}
	wantRates := []r3.Vec{
		{X: 0.1, Y: 0.2, Z: 0.3},
		{X: 0.11, Y: 0.21, Z: 0.31},
		{X: 0.12, Y: 0.22, Z: 0.32},
	}
	if diff := cmp.Diff(wantRates, rates); diff != "" {
		t.Errorf("rates mismatch (-want +got):\n%s", diff)
	}
}

func TestReadWithoutHeader(t *testing.T) {
	input := "0,1,0,0\n1,0,1,0\n"

	times, rates, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(times) != 2 || len(rates) != 2 {
		t.Fatalf("expected 2 samples, got %d times and %d rates", len(times), len(rates))
	}
	if times[0] != 0 || rates[1].Y != 1 {
		t.Errorf("unexpected samples: times=%v rates=%v", times, rates)
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"header_only", "t,wx,wy,wz\n"},
		{"wrong_field_count", "0,1,2\n"},
		{"non_numeric_value", "0,1,2,spin\n"},
		{"ragged_rows", "0,1,2,3\n1,2,3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Read(strings.NewReader(tt.input)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestReadFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gyro.csv")
	wantTimes := []float64{0, 0.25, 0.5, 0.75}
	wantRates := []r3.Vec{
		{Z: 1},
		{X: 0.5, Z: 1},
		{X: 1, Z: 0.5},
		{X: 1},
	}

	if err := WriteFile(path, wantTimes, wantRates); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	times, rates, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if diff := cmp.Diff(wantTimes, times); diff != "" {
		t.Errorf("times mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantRates, rates); diff != "" {
		t.Errorf("rates mismatch (-want +got):\n%s", diff)
	}
}

func TestReadFileMissing(t *testing.T) {
	if _, _, err := ReadFile(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("expected error for missing file, got nil")
	}
}

func TestWriteFileLengthMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gyro.csv")
	err := WriteFile(path, []float64{0, 1}, []r3.Vec{{Z: 1}})
	if err == nil {
		t.Error("expected error for mismatched lengths, got nil")
	}
	if _, statErr := os.Stat(path); statErr == nil {
		t.Error("expected no file to be created on mismatch")
	}
}
