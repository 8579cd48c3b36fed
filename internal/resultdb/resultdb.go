// Package resultdb persists batch outcomes to a single sqlite file. Each
// batch invocation is a run; every recording lands in exactly one of
// recording_results or recording_failures. Rows are append-only.
package resultdb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/safety.report/internal/pipeline"
)

type DB struct {
	*sql.DB
}

// Open opens (or creates) the result database at path and ensures the
// base schema exists.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id            TEXT PRIMARY KEY,
			data_root         TEXT,
			area_type         TEXT,
			direction_mode    TEXT,
			started_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS recording_results (
			run_id            TEXT,
			recording_id      TEXT,
			result_json       TEXT,
			created_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);
		CREATE TABLE IF NOT EXISTS recording_failures (
			run_id            TEXT,
			recording_dir     TEXT,
			error             TEXT,
			created_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

// BeginRun registers a new batch run and returns its generated id.
func (db *DB) BeginRun(dataRoot, areaType, directionMode string) (string, error) {
	runID := uuid.NewString()
	_, err := db.Exec(
		`INSERT INTO runs (run_id, data_root, area_type, direction_mode) VALUES (?, ?, ?, ?)`,
		runID, dataRoot, areaType, directionMode,
	)
	if err != nil {
		return "", fmt.Errorf("failed to register run: %w", err)
	}
	return runID, nil
}

// RecordResult appends one successful recording outcome to the run. The
// full result bundle is stored as JSON so the schema never chases the
// estimate structs.
func (db *DB) RecordResult(runID string, result *pipeline.Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result for recording %s: %w", result.RecordingID, err)
	}
	_, err = db.Exec(
		`INSERT INTO recording_results (run_id, recording_id, result_json) VALUES (?, ?, ?)`,
		runID, result.RecordingID, string(payload),
	)
	return err
}

// RecordFailure appends one abandoned recording to the run.
func (db *DB) RecordFailure(runID, recordingDir string, procErr error) error {
	_, err := db.Exec(
		`INSERT INTO recording_failures (run_id, recording_dir, error) VALUES (?, ?, ?)`,
		runID, recordingDir, procErr.Error(),
	)
	return err
}

// StoredResult is one decoded recording_results row.
type StoredResult struct {
	RunID       string
	RecordingID string
	Result      *pipeline.Result
	CreatedAt   time.Time
}

// Results returns every stored result for a run, oldest first.
func (db *DB) Results(runID string) ([]StoredResult, error) {
	rows, err := db.Query(
		`SELECT run_id, recording_id, result_json, created_at
		 FROM recording_results WHERE run_id = ? ORDER BY created_at, recording_id`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []StoredResult
	for rows.Next() {
		var sr StoredResult
		var payload string
		if err := rows.Scan(&sr.RunID, &sr.RecordingID, &payload, &sr.CreatedAt); err != nil {
			return nil, err
		}
		sr.Result = &pipeline.Result{}
		if err := json.Unmarshal([]byte(payload), sr.Result); err != nil {
			return nil, fmt.Errorf("corrupt result row for recording %s: %w", sr.RecordingID, err)
		}
		results = append(results, sr)
	}
	return results, rows.Err()
}

// FailureCount returns the number of abandoned recordings in a run.
func (db *DB) FailureCount(runID string) (int, error) {
	var n int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM recording_failures WHERE run_id = ?`, runID,
	).Scan(&n)
	return n, err
}
