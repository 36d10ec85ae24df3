// Command dataset-report lists stored datasets and renders HTML
// reports and PNG plots from them.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/banshee-data/groundtruth/internal/report"
	"github.com/banshee-data/groundtruth/internal/version"
	"github.com/banshee-data/groundtruth/storage/sqlite"
)

func main() {
	var dbPath string
	var list bool
	var datasetID string
	var outHTML string
	var plotDir string
	var showVersion bool

	flag.StringVar(&dbPath, "db", "datasets.db", "path to SQLite dataset database")
	flag.BoolVar(&list, "list", false, "list stored datasets and exit")
	flag.StringVar(&datasetID, "id", "", "dataset ID to report on")
	flag.StringVar(&outHTML, "out", "report.html", "path for the HTML report")
	flag.StringVar(&plotDir, "plots", "", "write PNG plots into this directory")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("dataset-report %s\n", version.String())
		return
	}

	db, err := sqlite.Open(dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	store := sqlite.NewDatasetStore(db.DB)

	if list {
		infos, err := store.List()
		if err != nil {
			log.Fatalf("list datasets: %v", err)
		}
		if len(infos) == 0 {
			fmt.Println("no datasets stored")
			return
		}
		for _, info := range infos {
			fmt.Printf("%s  %-20s  fps=%-5g  positions=%-6d orientations=%-6d landmarks=%-6d  %s\n",
				info.DatasetID, info.Name, info.CameraFPS,
				info.PositionCount, info.OrientationCount, info.LandmarkCount,
				time.Unix(0, info.CreatedAt).Format(time.RFC3339),
			)
		}
		return
	}

	if datasetID == "" {
		log.Fatalf("either -list or -id is required")
	}

	info, err := store.Info(datasetID)
	if err != nil {
		log.Fatalf("load dataset info: %v", err)
	}
	ds, err := store.Load(datasetID)
	if err != nil {
		log.Fatalf("load dataset: %v", err)
	}

	if ds.PositionSeries() != nil || ds.OrientationSeries() != nil {
		if err := ds.RebuildTrajectory(); err != nil {
			log.Printf("trajectory unavailable: %v", err)
		}
	}

	if err := report.WriteHTMLFile(outHTML, ds, info.Name); err != nil {
		log.Fatalf("write report: %v", err)
	}
	fmt.Printf("wrote report %s\n", outHTML)

	if plotDir != "" {
		written, err := report.SavePNGs(plotDir, ds)
		if err != nil {
			log.Fatalf("write plots: %v", err)
		}
		fmt.Printf("wrote %d plots to %s\n", len(written), plotDir)
	}
}
