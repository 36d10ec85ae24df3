// Command dataset-build assembles a ground-truth dataset from a visual
// reconstruction and an optional gyroscope stream, then stores it in a
// SQLite database.
//
// Inputs come either from a JSON config file (-config) or from the
// individual flags. When -config is given the other input flags are
// ignored.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/banshee-data/groundtruth/dataset"
	"github.com/banshee-data/groundtruth/internal/config"
	"github.com/banshee-data/groundtruth/internal/gyroio"
	"github.com/banshee-data/groundtruth/internal/report"
	"github.com/banshee-data/groundtruth/internal/version"
	"github.com/banshee-data/groundtruth/nvm"
	"github.com/banshee-data/groundtruth/storage/sqlite"
)

func main() {
	var configPath string
	var nvmPath string
	var gyroPath string
	var cameraFPS float64
	var orientationSource string
	var positionSource string
	var landmarkSource string
	var datasetName string
	var outputDB string
	var reportHTML string
	var plotDir string
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "path to JSON build config (overrides other input flags)")
	flag.StringVar(&nvmPath, "nvm", "", "path to NVM reconstruction file")
	flag.StringVar(&gyroPath, "gyro", "", "path to gyroscope CSV file (t,wx,wy,wz)")
	flag.Float64Var(&cameraFPS, "fps", 0, "camera frame rate used to map frame numbers to time")
	flag.StringVar(&orientationSource, "orientation", "nvm", "orientation source: imu or nvm")
	flag.StringVar(&positionSource, "position", "nvm", "position source: imu or nvm")
	flag.StringVar(&landmarkSource, "landmarks", "nvm", "landmark source: nvm")
	flag.StringVar(&datasetName, "name", "", "dataset name (default: NVM file base name)")
	flag.StringVar(&outputDB, "db", "datasets.db", "path to output SQLite database")
	flag.StringVar(&reportHTML, "report", "", "write an HTML report to this path")
	flag.StringVar(&plotDir, "plots", "", "write PNG plots into this directory")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("dataset-build %s\n", version.String())
		return
	}

	var cfg *config.BuildConfig
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	} else {
		cfg = config.Default()
		cfg.NVMPath = nvmPath
		cfg.GyroPath = gyroPath
		cfg.CameraFPS = cameraFPS
		cfg.OrientationSource = orientationSource
		cfg.PositionSource = positionSource
		cfg.LandmarkSource = landmarkSource
		cfg.DatasetName = datasetName
		cfg.OutputDB = outputDB
		cfg.ReportHTML = reportHTML
		cfg.PlotDir = plotDir
		if err := cfg.Validate(); err != nil {
			log.Fatalf("invalid flags: %v", err)
		}
	}

	ds, err := build(cfg)
	if err != nil {
		log.Fatalf("build dataset: %v", err)
	}

	traj := ds.Trajectory()
	fmt.Printf("built dataset %q: %d positions, %d orientations, %d landmarks, trajectory [%g, %g]\n",
		cfg.Name(),
		seriesLen(ds),
		orientationLen(ds),
		len(ds.Landmarks()),
		traj.StartTime(), traj.EndTime(),
	)

	db, err := sqlite.Open(cfg.OutputDB)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	store := sqlite.NewDatasetStore(db.DB)
	id, err := store.Save(ds, cfg.Name(), cfg.CameraFPS)
	if err != nil {
		log.Fatalf("save dataset: %v", err)
	}
	fmt.Printf("saved dataset %s to %s\n", id, cfg.OutputDB)

	if cfg.ReportHTML != "" {
		if err := report.WriteHTMLFile(cfg.ReportHTML, ds, cfg.Name()); err != nil {
			log.Fatalf("write report: %v", err)
		}
		fmt.Printf("wrote report %s\n", cfg.ReportHTML)
	}

	if cfg.PlotDir != "" {
		written, err := report.SavePNGs(cfg.PlotDir, ds)
		if err != nil {
			log.Fatalf("write plots: %v", err)
		}
		fmt.Printf("wrote %d plots to %s\n", len(written), cfg.PlotDir)
	}
}

// build runs the full pipeline described by cfg: parse inputs, select
// sources, and assemble the dataset.
func build(cfg *config.BuildConfig) (*dataset.Dataset, error) {
	model, err := nvm.ParseFile(cfg.NVMPath)
	if err != nil {
		return nil, fmt.Errorf("parse reconstruction: %w", err)
	}
	log.Printf("parsed %s: %d cameras, %d points", cfg.NVMPath, len(model.Cameras), len(model.Points))

	builder := dataset.NewBuilder()
	if err := builder.AddReconstruction(model, cfg.CameraFPS); err != nil {
		return nil, fmt.Errorf("add reconstruction: %w", err)
	}

	if cfg.GyroPath != "" {
		times, rates, err := gyroio.ReadFile(cfg.GyroPath)
		if err != nil {
			return nil, fmt.Errorf("read gyro: %w", err)
		}
		if err := builder.AddGyro(rates, times); err != nil {
			return nil, fmt.Errorf("add gyro: %w", err)
		}
		log.Printf("parsed %s: %d gyro samples over [%g, %g]", cfg.GyroPath, len(times), times[0], times[len(times)-1])
	}

	orientation, err := dataset.ParseSource(cfg.OrientationSource)
	if err != nil {
		return nil, err
	}
	position, err := dataset.ParseSource(cfg.PositionSource)
	if err != nil {
		return nil, err
	}
	landmark, err := dataset.ParseSource(cfg.LandmarkSource)
	if err != nil {
		return nil, err
	}
	if err := builder.SetOrientationSource(orientation); err != nil {
		return nil, err
	}
	if err := builder.SetPositionSource(position); err != nil {
		return nil, err
	}
	if err := builder.SetLandmarkSource(landmark); err != nil {
		return nil, err
	}

	return builder.Build()
}

func seriesLen(ds *dataset.Dataset) int {
	if s := ds.PositionSeries(); s != nil {
		return s.Len()
	}
	return 0
}

func orientationLen(ds *dataset.Dataset) int {
	if s := ds.OrientationSeries(); s != nil {
		return s.Len()
	}
	return 0
}
