package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/groundtruth/dataset"
	"github.com/banshee-data/groundtruth/timeseries"
)

// DatasetInfo summarises a persisted dataset without loading its samples.
type DatasetInfo struct {
	DatasetID        string  `json:"dataset_id"`
	Name             string  `json:"name"`
	CameraFPS        float64 `json:"camera_fps"`
	CreatedAt        int64   `json:"created_at"`
	PositionCount    int     `json:"position_count"`
	OrientationCount int     `json:"orientation_count"`
	LandmarkCount    int     `json:"landmark_count"`
}

// DatasetStore provides persistence for built ground-truth datasets.
type DatasetStore struct {
	db *sql.DB
}

// NewDatasetStore creates a new DatasetStore.
func NewDatasetStore(db *sql.DB) *DatasetStore {
	return &DatasetStore{db: db}
}

// Save persists a dataset under a generated ID and returns it. Whatever
// components the dataset carries are stored; absent series simply write
// no sample rows.
func (s *DatasetStore) Save(ds *dataset.Dataset, name string, cameraFPS float64) (string, error) {
	datasetID := uuid.New().String()
	createdAt := time.Now().UnixNano()

	err := retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`
			INSERT INTO datasets (dataset_id, name, camera_fps, created_unix_nanos)
			VALUES (?, ?, ?, ?)`,
			datasetID, name, cameraFPS, createdAt,
		); err != nil {
			return fmt.Errorf("insert dataset: %w", err)
		}

		if err := insertPositions(tx, datasetID, ds.PositionSeries()); err != nil {
			return err
		}
		if err := insertOrientations(tx, datasetID, ds.OrientationSeries()); err != nil {
			return err
		}
		if err := insertLandmarks(tx, datasetID, ds.Landmarks()); err != nil {
			return err
		}

		return tx.Commit()
	})
	if err != nil {
		return "", err
	}
	return datasetID, nil
}

func insertPositions(tx *sql.Tx, datasetID string, series *timeseries.Series[r3.Vec]) error {
	if series == nil {
		return nil
	}
	stmt, err := tx.Prepare(`
		INSERT INTO dataset_positions (dataset_id, sample_idx, t, x, y, z)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare position insert: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < series.Len(); i++ {
		t, v := series.At(i)
		if _, err := stmt.Exec(datasetID, i, t, v.X, v.Y, v.Z); err != nil {
			return fmt.Errorf("insert position %d: %w", i, err)
		}
	}
	return nil
}

func insertOrientations(tx *sql.Tx, datasetID string, series *timeseries.Series[quat.Number]) error {
	if series == nil {
		return nil
	}
	stmt, err := tx.Prepare(`
		INSERT INTO dataset_orientations (dataset_id, sample_idx, t, qw, qx, qy, qz)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare orientation insert: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < series.Len(); i++ {
		t, q := series.At(i)
		if _, err := stmt.Exec(datasetID, i, t, q.Real, q.Imag, q.Jmag, q.Kmag); err != nil {
			return fmt.Errorf("insert orientation %d: %w", i, err)
		}
	}
	return nil
}

func insertLandmarks(tx *sql.Tx, datasetID string, landmarks []dataset.Landmark) error {
	if len(landmarks) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`
		INSERT INTO dataset_landmarks (dataset_id, landmark_idx, x, y, z, visible_frames_json)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare landmark insert: %w", err)
	}
	defer stmt.Close()

	for i, lm := range landmarks {
		frames := lm.VisibleInFrames
		if frames == nil {
			frames = []int{}
		}
		visJSON, err := json.Marshal(frames)
		if err != nil {
			return fmt.Errorf("marshal landmark %d visibility: %w", i, err)
		}
		if _, err := stmt.Exec(datasetID, i, lm.Position.X, lm.Position.Y, lm.Position.Z, string(visJSON)); err != nil {
			return fmt.Errorf("insert landmark %d: %w", i, err)
		}
	}
	return nil
}

// Load reads a dataset back by ID. The returned dataset carries the
// stored series and landmarks but no trajectory; call RebuildTrajectory
// once the components are in place.
func (s *DatasetStore) Load(datasetID string) (*dataset.Dataset, error) {
	var exists int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM datasets WHERE dataset_id = ?`, datasetID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("query dataset: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("dataset %s not found", datasetID)
	}

	ds := dataset.New()

	positions, err := s.loadPositions(datasetID)
	if err != nil {
		return nil, err
	}
	if positions != nil {
		ds.SetPositionSeries(positions)
	}

	orientations, err := s.loadOrientations(datasetID)
	if err != nil {
		return nil, err
	}
	if orientations != nil {
		ds.SetOrientationSeries(orientations)
	}

	landmarks, err := s.loadLandmarks(datasetID)
	if err != nil {
		return nil, err
	}
	ds.AddLandmarks(landmarks...)

	return ds, nil
}

func (s *DatasetStore) loadPositions(datasetID string) (*timeseries.Series[r3.Vec], error) {
	rows, err := s.db.Query(`
		SELECT t, x, y, z
		FROM dataset_positions
		WHERE dataset_id = ?
		ORDER BY sample_idx`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	defer rows.Close()

	var times []float64
	var values []r3.Vec
	for rows.Next() {
		var t float64
		var v r3.Vec
		if err := rows.Scan(&t, &v.X, &v.Y, &v.Z); err != nil {
			return nil, fmt.Errorf("scan position row: %w", err)
		}
		times = append(times, t)
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate positions: %w", err)
	}
	if len(times) == 0 {
		return nil, nil
	}

	series, err := timeseries.New(times, values)
	if err != nil {
		return nil, fmt.Errorf("rebuild position series: %w", err)
	}
	return series, nil
}

func (s *DatasetStore) loadOrientations(datasetID string) (*timeseries.Series[quat.Number], error) {
	rows, err := s.db.Query(`
		SELECT t, qw, qx, qy, qz
		FROM dataset_orientations
		WHERE dataset_id = ?
		ORDER BY sample_idx`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("query orientations: %w", err)
	}
	defer rows.Close()

	var times []float64
	var values []quat.Number
	for rows.Next() {
		var t float64
		var q quat.Number
		if err := rows.Scan(&t, &q.Real, &q.Imag, &q.Jmag, &q.Kmag); err != nil {
			return nil, fmt.Errorf("scan orientation row: %w", err)
		}
		times = append(times, t)
		values = append(values, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orientations: %w", err)
	}
	if len(times) == 0 {
		return nil, nil
	}

	series, err := timeseries.New(times, values)
	if err != nil {
		return nil, fmt.Errorf("rebuild orientation series: %w", err)
	}
	return series, nil
}

func (s *DatasetStore) loadLandmarks(datasetID string) ([]dataset.Landmark, error) {
	rows, err := s.db.Query(`
		SELECT x, y, z, visible_frames_json
		FROM dataset_landmarks
		WHERE dataset_id = ?
		ORDER BY landmark_idx`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("query landmarks: %w", err)
	}
	defer rows.Close()

	var landmarks []dataset.Landmark
	for rows.Next() {
		var lm dataset.Landmark
		var visJSON string
		if err := rows.Scan(&lm.Position.X, &lm.Position.Y, &lm.Position.Z, &visJSON); err != nil {
			return nil, fmt.Errorf("scan landmark row: %w", err)
		}
		if err := json.Unmarshal([]byte(visJSON), &lm.VisibleInFrames); err != nil {
			return nil, fmt.Errorf("unmarshal landmark visibility: %w", err)
		}
		landmarks = append(landmarks, lm)
	}
	return landmarks, rows.Err()
}

// Info returns the stored metadata and sample counts for one dataset.
func (s *DatasetStore) Info(datasetID string) (*DatasetInfo, error) {
	row := s.db.QueryRow(`
		SELECT d.dataset_id, d.name, d.camera_fps, d.created_unix_nanos,
		       (SELECT COUNT(*) FROM dataset_positions p WHERE p.dataset_id = d.dataset_id),
		       (SELECT COUNT(*) FROM dataset_orientations o WHERE o.dataset_id = d.dataset_id),
		       (SELECT COUNT(*) FROM dataset_landmarks l WHERE l.dataset_id = d.dataset_id)
		FROM datasets d
		WHERE d.dataset_id = ?`, datasetID)

	var info DatasetInfo
	err := row.Scan(
		&info.DatasetID, &info.Name, &info.CameraFPS, &info.CreatedAt,
		&info.PositionCount, &info.OrientationCount, &info.LandmarkCount,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("dataset %s not found", datasetID)
		}
		return nil, fmt.Errorf("scan dataset info: %w", err)
	}
	return &info, nil
}

// List returns metadata for all stored datasets, newest first.
func (s *DatasetStore) List() ([]*DatasetInfo, error) {
	rows, err := s.db.Query(`
		SELECT d.dataset_id, d.name, d.camera_fps, d.created_unix_nanos,
		       (SELECT COUNT(*) FROM dataset_positions p WHERE p.dataset_id = d.dataset_id),
		       (SELECT COUNT(*) FROM dataset_orientations o WHERE o.dataset_id = d.dataset_id),
		       (SELECT COUNT(*) FROM dataset_landmarks l WHERE l.dataset_id = d.dataset_id)
		FROM datasets d
		ORDER BY d.created_unix_nanos DESC`)
	if err != nil {
		return nil, fmt.Errorf("query datasets: %w", err)
	}
	defer rows.Close()

	var infos []*DatasetInfo
	for rows.Next() {
		var info DatasetInfo
		if err := rows.Scan(
			&info.DatasetID, &info.Name, &info.CameraFPS, &info.CreatedAt,
			&info.PositionCount, &info.OrientationCount, &info.LandmarkCount,
		); err != nil {
			return nil, fmt.Errorf("scan dataset info row: %w", err)
		}
		infos = append(infos, &info)
	}
	return infos, rows.Err()
}

// Delete removes a dataset and its samples by ID. Sample rows are
// deleted explicitly so the result does not depend on foreign_keys
// being enabled on the connection that runs it.
func (s *DatasetStore) Delete(datasetID string) error {
	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer tx.Rollback()

		for _, table := range []string{"dataset_positions", "dataset_orientations", "dataset_landmarks"} {
			if _, err := tx.Exec(`DELETE FROM `+table+` WHERE dataset_id = ?`, datasetID); err != nil {
				return fmt.Errorf("delete from %s: %w", table, err)
			}
		}

		result, err := tx.Exec(`DELETE FROM datasets WHERE dataset_id = ?`, datasetID)
		if err != nil {
			return fmt.Errorf("delete dataset: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("dataset %s not found", datasetID)
		}

		return tx.Commit()
	})
}

// retryOnBusy retries fn when SQLite reports the database is locked,
// which happens when a build and a report run share a file. Callers
// wrap whole transactions so retries never see partial writes.
func retryOnBusy(fn func() error) error {
	const maxAttempts = 5
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = fn()
		if err == nil || !isBusyError(err) {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
	}
	return err
}

func isBusyError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
