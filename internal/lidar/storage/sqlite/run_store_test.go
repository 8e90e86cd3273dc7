package sqlite

import (
	"context"
	"encoding/json"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/terrain.report/internal/lidar/l1records"
	"github.com/banshee-data/terrain.report/internal/lidar/l5ground"
)

// setupRunTestDB opens a fresh migrated database in a temp dir.
func setupRunTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.MigrateUp())
	return db
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := setupRunTestDB(t)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	require.NoError(t, db.MigrateUp(), "second MigrateUp should be a no-op")
}

func TestMigrateVersion_Fresh(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "fresh.db"))
	require.NoError(t, err)
	defer db.Close()

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)
}

func TestRunStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewRunStore(setupRunTestDB(t))

	params, err := json.Marshal(map[string]float64{"sigma_threshold": 5})
	require.NoError(t, err)

	run := &Run{
		SourcePath:  "/data/ILVIS1B_AQ2015_1017_R1605_058419.wfdb",
		Bounds:      l1records.Bounds{MinX: -60, MinY: -75, MaxX: -59, MaxY: -74},
		BinCount:    528,
		Footprints:  3,
		ValidGround: 2,
		ParamsJSON:  params,
	}
	require.NoError(t, store.InsertRun(ctx, run))
	assert.NotEmpty(t, run.RunID)
	assert.NotZero(t, run.CreatedAtNs)

	got, err := store.GetRun(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, run.SourcePath, got.SourcePath)
	assert.Equal(t, run.Bounds, got.Bounds)
	assert.Equal(t, 528, got.BinCount)
	assert.Equal(t, 2, got.ValidGround)
	assert.JSONEq(t, string(params), string(got.ParamsJSON))

	points := []l5ground.GroundPoint{
		{Lon: -59.5, Lat: -74.5, FlightID: 1, ShotNumber: 10, Elevation: l5ground.Elevation{Value: 120.25, Valid: true}},
		{Lon: -59.4, Lat: -74.5, FlightID: 1, ShotNumber: 11, Elevation: l5ground.Missing},
		{Lon: -59.3, Lat: -74.5, FlightID: 1, ShotNumber: 12, Elevation: l5ground.Elevation{Value: 119.5, Valid: true}},
	}
	require.NoError(t, store.InsertFootprints(ctx, run.RunID, points))

	back, err := store.Footprints(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, points, back)
}

func TestRunStore_InfiniteBoundsStoredAsNull(t *testing.T) {
	ctx := context.Background()
	db := setupRunTestDB(t)
	store := NewRunStore(db)

	run := &Run{SourcePath: "all.wfdb", Bounds: l1records.Everywhere(), BinCount: 10}
	require.NoError(t, store.InsertRun(ctx, run))

	var nulls int
	require.NoError(t, db.QueryRow(`
		SELECT (min_x IS NULL) + (min_y IS NULL) + (max_x IS NULL) + (max_y IS NULL)
		FROM ground_runs WHERE run_id = ?`, run.RunID).Scan(&nulls))
	assert.Equal(t, 4, nulls)

	got, err := store.GetRun(ctx, run.RunID)
	require.NoError(t, err)
	assert.True(t, math.IsInf(got.Bounds.MinX, -1))
	assert.True(t, math.IsInf(got.Bounds.MaxY, 1))
	assert.Nil(t, got.ParamsJSON)
}

func TestRunStore_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewRunStore(setupRunTestDB(t))

	older := &Run{RunID: "run-a", SourcePath: "a.wfdb", CreatedAtNs: 100, BinCount: 1}
	newer := &Run{RunID: "run-b", SourcePath: "b.wfdb", CreatedAtNs: 200, BinCount: 1}
	require.NoError(t, store.InsertRun(ctx, older))
	require.NoError(t, store.InsertRun(ctx, newer))
	require.NoError(t, store.InsertFootprints(ctx, "run-a", []l5ground.GroundPoint{{Lon: 1, Lat: 2}}))

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-b", runs[0].RunID)
	assert.Equal(t, "run-a", runs[1].RunID)

	require.NoError(t, store.DeleteRun(ctx, "run-a"))
	pts, err := store.Footprints(ctx, "run-a")
	require.NoError(t, err)
	assert.Empty(t, pts, "footprints cascade with their run")

	assert.ErrorIs(t, store.DeleteRun(ctx, "run-a"), ErrRunNotFound)
	_, err = store.GetRun(ctx, "run-a")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRunStore_FootprintsRequireRun(t *testing.T) {
	ctx := context.Background()
	store := NewRunStore(setupRunTestDB(t))

	err := store.InsertFootprints(ctx, "no-such-run", []l5ground.GroundPoint{{Lon: 1, Lat: 2}})
	assert.Error(t, err)
}

func TestRunStore_RecordRun(t *testing.T) {
	ctx := context.Background()
	store := NewRunStore(setupRunTestDB(t))

	run := &Run{SourcePath: "a.wfdb", BinCount: 4, Footprints: 2, ValidGround: 1}
	pts := []l5ground.GroundPoint{
		{FlightID: 7, ShotNumber: 1, Lon: 1, Lat: 2, Elevation: l5ground.Elevation{Value: 12.5, Valid: true}},
		{FlightID: 7, ShotNumber: 2, Lon: 1.1, Lat: 2.1},
	}
	require.NoError(t, store.RecordRun(ctx, run, pts))
	require.NotEmpty(t, run.RunID)

	got, err := store.Footprints(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, pts, got)
}

func TestRunStore_RecordRunRollsBackOnFootprintError(t *testing.T) {
	ctx := context.Background()
	store := NewRunStore(setupRunTestDB(t))

	// SQLite stores NaN as NULL, which the lon NOT NULL constraint rejects.
	run := &Run{RunID: "run-bad", SourcePath: "a.wfdb", BinCount: 4}
	pts := []l5ground.GroundPoint{
		{Lon: 1, Lat: 2},
		{Lon: math.NaN(), Lat: 2},
	}
	require.Error(t, store.RecordRun(ctx, run, pts))

	_, err := store.GetRun(ctx, "run-bad")
	assert.ErrorIs(t, err, ErrRunNotFound)
	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
