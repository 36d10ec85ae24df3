// Package gyroio reads gyroscope sample streams from CSV files.
//
// The expected layout is one sample per row as t,wx,wy,wz with time in
// seconds and angular velocity in rad/s. A header row and '#' comment
// lines are skipped.
package gyroio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"gonum.org/v1/gonum/spatial/r3"
)

const fieldsPerSample = 4

// ReadFile reads gyroscope samples from the CSV file at path.
func ReadFile(path string) (times []float64, rates []r3.Vec, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open gyro file: %w", err)
	}
	defer file.Close()

	times, rates, err = Read(file)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return times, rates, nil
}

// Read reads gyroscope samples from CSV data.
func Read(r io.Reader) (times []float64, rates []r3.Vec, err error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read gyro CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("gyro CSV contains no samples")
	}

	// An optional header row is detected by its non-numeric first field.
	start := 0
	if _, err := strconv.ParseFloat(records[0][0], 64); err != nil {
		start = 1
	}

	for i, record := range records[start:] {
		line := i + start + 1
		if len(record) != fieldsPerSample {
			return nil, nil, fmt.Errorf("invalid record at line %d: expected %d fields t,wx,wy,wz, got %d",
				line, fieldsPerSample, len(record))
		}

		var values [fieldsPerSample]float64
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid value %q at line %d: %w", field, line, err)
			}
			values[j] = v
		}

		times = append(times, values[0])
		rates = append(rates, r3.Vec{X: values[1], Y: values[2], Z: values[3]})
	}

	if len(times) == 0 {
		return nil, nil, fmt.Errorf("gyro CSV contains no samples")
	}
	return times, rates, nil
}

// WriteFile writes gyroscope samples to a CSV file at path, one
// t,wx,wy,wz row per sample with a header.
func WriteFile(path string, times []float64, rates []r3.Vec) error {
	if len(times) != len(rates) {
		return fmt.Errorf("sample count mismatch: %d times, %d rates", len(times), len(rates))
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create gyro file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"t", "wx", "wy", "wz"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i := range times {
		row := []string{
			strconv.FormatFloat(times[i], 'g', -1, 64),
			strconv.FormatFloat(rates[i].X, 'g', -1, 64),
			strconv.FormatFloat(rates[i].Y, 'g', -1, 64),
			strconv.FormatFloat(rates[i].Z, 'g', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write sample %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush gyro CSV: %w", err)
	}
	return nil
}
