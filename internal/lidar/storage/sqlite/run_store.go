package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/terrain.report/internal/lidar/l1records"
	"github.com/banshee-data/terrain.report/internal/lidar/l5ground"
)

// ErrRunNotFound is returned by GetRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Run is one pipeline execution over a waveform source.
type Run struct {
	RunID       string           `json:"run_id"`
	SourcePath  string           `json:"source_path"`
	CreatedAtNs int64            `json:"created_at_ns"`
	Bounds      l1records.Bounds `json:"bounds"`
	BinCount    int              `json:"bin_count"`
	Footprints  int              `json:"footprints"`
	ValidGround int              `json:"valid_ground"`
	ParamsJSON  json.RawMessage  `json:"params_json,omitempty"`
}

// RunStore provides persistence for runs and their footprints.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a RunStore on a migrated database.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db.DB}
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// InsertRun creates a run. An empty RunID gets a new UUID and a zero
// CreatedAtNs is set to now. Infinite bounds are stored as NULL.
func (s *RunStore) InsertRun(ctx context.Context, run *Run) error {
	return insertRun(ctx, s.db, run)
}

func insertRun(ctx context.Context, e execer, run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAtNs == 0 {
		run.CreatedAtNs = time.Now().UnixNano()
	}

	query := `
		INSERT INTO ground_runs (
			run_id, source_path, created_at_ns, min_x, min_y, max_x, max_y,
			bin_count, footprints, valid_ground, params_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := e.ExecContext(ctx, query,
		run.RunID,
		run.SourcePath,
		run.CreatedAtNs,
		finiteOrNull(run.Bounds.MinX),
		finiteOrNull(run.Bounds.MinY),
		finiteOrNull(run.Bounds.MaxX),
		finiteOrNull(run.Bounds.MaxY),
		run.BinCount,
		run.Footprints,
		run.ValidGround,
		nullString(string(run.ParamsJSON)),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordRun inserts run and its footprints in one transaction, so a failed
// footprint insert leaves no run behind.
func (s *RunStore) RecordRun(ctx context.Context, run *Run, points []l5ground.GroundPoint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertRun(ctx, tx, run); err != nil {
		return err
	}
	if err := insertFootprints(ctx, tx, run.RunID, points); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

const runColumns = `run_id, source_path, created_at_ns, min_x, min_y, max_x, max_y,
	bin_count, footprints, valid_ground, params_json`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(sc rowScanner) (*Run, error) {
	var run Run
	var minX, minY, maxX, maxY sql.NullFloat64
	var params sql.NullString
	err := sc.Scan(
		&run.RunID,
		&run.SourcePath,
		&run.CreatedAtNs,
		&minX, &minY, &maxX, &maxY,
		&run.BinCount,
		&run.Footprints,
		&run.ValidGround,
		&params,
	)
	if err != nil {
		return nil, err
	}
	run.Bounds = l1records.Bounds{
		MinX: floatOr(minX, math.Inf(-1)),
		MinY: floatOr(minY, math.Inf(-1)),
		MaxX: floatOr(maxX, math.Inf(1)),
		MaxY: floatOr(maxY, math.Inf(1)),
	}
	if params.Valid && params.String != "" {
		run.ParamsJSON = json.RawMessage(params.String)
	}
	return &run, nil
}

// GetRun retrieves a run by ID.
func (s *RunStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM ground_runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns all runs, newest first.
func (s *RunStore) ListRuns(ctx context.Context) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM ground_runs ORDER BY created_at_ns DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// InsertFootprints stores the output rows of a run in one transaction.
// Missing ground elevations are stored as NULL.
func (s *RunStore) InsertFootprints(ctx context.Context, runID string, points []l5ground.GroundPoint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertFootprints(ctx, tx, runID, points); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit footprints: %w", err)
	}
	return nil
}

func insertFootprints(ctx context.Context, e execer, runID string, points []l5ground.GroundPoint) error {
	stmt, err := e.PrepareContext(ctx, `
		INSERT INTO ground_footprints (
			run_id, idx, flight_id, shot_number, lon, lat, ground_elevation
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare footprint insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range points {
		var ground sql.NullFloat64
		if p.Elevation.Valid {
			ground = sql.NullFloat64{Float64: p.Elevation.Value, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, runID, i, p.FlightID, p.ShotNumber, p.Lon, p.Lat, ground); err != nil {
			return fmt.Errorf("insert footprint %d: %w", i, err)
		}
	}
	return nil
}

// Footprints returns the stored rows of a run in load order.
func (s *RunStore) Footprints(ctx context.Context, runID string) ([]l5ground.GroundPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT flight_id, shot_number, lon, lat, ground_elevation
		FROM ground_footprints
		WHERE run_id = ?
		ORDER BY idx
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query footprints: %w", err)
	}
	defer rows.Close()

	var pts []l5ground.GroundPoint
	for rows.Next() {
		var p l5ground.GroundPoint
		var ground sql.NullFloat64
		if err := rows.Scan(&p.FlightID, &p.ShotNumber, &p.Lon, &p.Lat, &ground); err != nil {
			return nil, fmt.Errorf("scan footprint: %w", err)
		}
		if ground.Valid {
			p.Elevation = l5ground.Elevation{Value: ground.Float64, Valid: true}
		}
		pts = append(pts, p)
	}
	return pts, rows.Err()
}

// DeleteRun removes a run and, through the foreign key, its footprints.
func (s *RunStore) DeleteRun(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM ground_runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

func finiteOrNull(v float64) sql.NullFloat64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func floatOr(v sql.NullFloat64, def float64) float64 {
	if v.Valid {
		return v.Float64
	}
	return def
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
