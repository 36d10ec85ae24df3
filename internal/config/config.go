// Package config loads build configuration for the dataset tools.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/groundtruth/dataset"
)

// BuildConfig describes one dataset build: where the inputs live, how
// camera frames map to time, and which source feeds each dataset
// component. The schema is shared by the build and report commands so
// a single JSON file drives both.
type BuildConfig struct {
	// Inputs
	NVMPath   string  `json:"nvm_path"`
	GyroPath  string  `json:"gyro_path,omitempty"`
	CameraFPS float64 `json:"camera_fps"`

	// Source selection, one of "imu" or "nvm" per component.
	// Landmarks only ever come from the reconstruction.
	OrientationSource string `json:"orientation_source"`
	PositionSource    string `json:"position_source"`
	LandmarkSource    string `json:"landmark_source"`

	// Outputs
	DatasetName string `json:"dataset_name,omitempty"`
	OutputDB    string `json:"output_db,omitempty"`
	ReportHTML  string `json:"report_html,omitempty"`
	PlotDir     string `json:"plot_dir,omitempty"`
}

// Default returns a BuildConfig with every component sourced from the
// reconstruction and output going to datasets.db. Loading a config file
// overlays onto these values, so partial configs are safe.
func Default() *BuildConfig {
	return &BuildConfig{
		OrientationSource: "nvm",
		PositionSource:    "nvm",
		LandmarkSource:    "nvm",
		OutputDB:          "datasets.db",
	}
}

// maxConfigFileSize caps config reads at 1MB.
const maxConfigFileSize = 1 * 1024 * 1024

// Load reads a BuildConfig from a JSON file. Fields omitted from the
// JSON keep their Default values.
func Load(path string) (*BuildConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxConfigFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration describes a buildable dataset.
func (c *BuildConfig) Validate() error {
	if c.NVMPath == "" {
		return fmt.Errorf("nvm_path is required")
	}
	if c.CameraFPS <= 0 {
		return fmt.Errorf("camera_fps must be positive, got %v", c.CameraFPS)
	}

	orientation, err := dataset.ParseSource(c.OrientationSource)
	if err != nil {
		return fmt.Errorf("orientation_source: %w", err)
	}
	if _, err := dataset.ParseSource(c.PositionSource); err != nil {
		return fmt.Errorf("position_source: %w", err)
	}
	landmark, err := dataset.ParseSource(c.LandmarkSource)
	if err != nil {
		return fmt.Errorf("landmark_source: %w", err)
	}
	if landmark != dataset.SourceReconstruction {
		return fmt.Errorf("landmark_source must be %q, got %q", dataset.SourceReconstruction, c.LandmarkSource)
	}

	if orientation == dataset.SourceGyro && c.GyroPath == "" {
		return fmt.Errorf("orientation_source %q requires gyro_path", c.OrientationSource)
	}

	return nil
}

// Name returns the configured dataset name, falling back to the NVM
// file's base name.
func (c *BuildConfig) Name() string {
	if c.DatasetName != "" {
		return c.DatasetName
	}
	base := filepath.Base(c.NVMPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
