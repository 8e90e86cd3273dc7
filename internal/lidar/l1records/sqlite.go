package l1records

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"
)

//go:embed container.sql
var containerSchema string

// rowBatch bounds the number of bound parameters in one IN (...) query.
const rowBatch = 500

// SQLiteSource reads a waveform container stored as a SQLite file.
//
// Layout: meta(key, value) carries bin_count; shots holds one row per
// footprint keyed by a dense idx starting at 0; waves holds the RXWAVE
// samples for the same idx as little-endian float32.
type SQLiteSource struct {
	db       *sql.DB
	path     string
	binCount int
}

// OpenSQLite opens an existing waveform container. A missing file or a
// container without a valid bin_count is an error.
func OpenSQLite(path string) (*SQLiteSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open waveform container: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open waveform container: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}

	var raw string
	err = db.QueryRow(`SELECT value FROM meta WHERE key = 'bin_count'`).Scan(&raw)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %s: read bin_count: %v", ErrMalformedSource, path, err)
	}
	bins, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || bins <= 0 {
		db.Close()
		return nil, fmt.Errorf("%w: %s: bad bin_count %q", ErrMalformedSource, path, raw)
	}

	diagf("opened %s with %d bins", path, bins)
	return &SQLiteSource{db: db, path: path, binCount: bins}, nil
}

func (s *SQLiteSource) BinCount() int {
	return s.binCount
}

// Coordinates reads the four coordinate columns of every shot. Shot indices
// must be dense and start at 0.
func (s *SQLiteSource) Coordinates(ctx context.Context) (*Coords, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT idx, lon0, lat0, lon_n, lat_n FROM shots ORDER BY idx`)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: query shots: %v", ErrMalformedSource, s.path, err)
	}
	defer rows.Close()

	c := &Coords{}
	for rows.Next() {
		var idx int
		var lon0, lat0, lonN, latN float64
		if err := rows.Scan(&idx, &lon0, &lat0, &lonN, &latN); err != nil {
			return nil, fmt.Errorf("scan shot: %w", err)
		}
		if idx != len(c.Lon0) {
			return nil, fmt.Errorf("%w: %s: shot idx %d out of sequence (want %d)",
				ErrMalformedSource, s.path, idx, len(c.Lon0))
		}
		c.Lon0 = append(c.Lon0, lon0)
		c.Lat0 = append(c.Lat0, lat0)
		c.LonN = append(c.LonN, lonN)
		c.LatN = append(c.LatN, latN)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shots: %w", err)
	}
	return c, nil
}

// Rows reads labels, elevations and waveforms for idx in batches.
func (s *SQLiteSource) Rows(ctx context.Context, idx []int) (*Rows, error) {
	out := &Rows{
		FlightID:   make([]int64, len(idx)),
		ShotNumber: make([]int64, len(idx)),
		Waveform:   make([][]float64, len(idx)),
		Top:        make([]float64, len(idx)),
		Bottom:     make([]float64, len(idx)),
	}
	pos := make(map[int]int, len(idx))
	for k, i := range idx {
		pos[i] = k
	}

	for start := 0; start < len(idx); start += rowBatch {
		end := min(start+rowBatch, len(idx))
		if err := s.readBatch(ctx, idx[start:end], pos, out); err != nil {
			return nil, err
		}
		tracef("read rows %d-%d of %d", start, end, len(idx))
	}
	for k, w := range out.Waveform {
		if w == nil {
			return nil, fmt.Errorf("%w: %s: shot %d has no waveform", ErrMalformedSource, s.path, idx[k])
		}
	}
	return out, nil
}

func (s *SQLiteSource) readBatch(ctx context.Context, batch []int, pos map[int]int, out *Rows) error {
	args := make([]any, len(batch))
	for i, v := range batch {
		args[i] = v
	}
	q := `SELECT s.idx, s.lfid, s.shot_number, s.z0, s.z_n, w.rxwave
		FROM shots s LEFT JOIN waves w ON w.idx = s.idx
		WHERE s.idx IN (` + placeholders(len(batch)) + `)`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("query waveforms: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var idx int
		var lfid, shot int64
		var z0, zN float64
		var blob []byte
		if err := rows.Scan(&idx, &lfid, &shot, &z0, &zN, &blob); err != nil {
			return fmt.Errorf("scan waveform row: %w", err)
		}
		k, ok := pos[idx]
		if !ok {
			continue
		}
		wave, err := decodeWave(blob, s.binCount)
		if err != nil {
			return fmt.Errorf("%w: %s: shot %d: %v", ErrMalformedSource, s.path, idx, err)
		}
		out.FlightID[k] = lfid
		out.ShotNumber[k] = shot
		out.Top[k] = z0
		out.Bottom[k] = zN
		out.Waveform[k] = wave
	}
	return rows.Err()
}

func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

func decodeWave(blob []byte, bins int) ([]float64, error) {
	if blob == nil {
		return nil, errors.New("missing rxwave")
	}
	if len(blob) != 4*bins {
		return nil, fmt.Errorf("rxwave has %d bytes, want %d", len(blob), 4*bins)
	}
	wave := make([]float64, bins)
	for i := range wave {
		wave[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:])))
	}
	return wave, nil
}

func encodeWave(wave []float64) []byte {
	blob := make([]byte, 4*len(wave))
	for i, v := range wave {
		binary.LittleEndian.PutUint32(blob[4*i:], math.Float32bits(float32(v)))
	}
	return blob
}

// WriteSQLite writes rec to a new waveform container at path. It refuses
// to overwrite an existing file.
func WriteSQLite(ctx context.Context, path string, rec *Records) (err error) {
	if err := rec.Validate(); err != nil {
		return err
	}
	if _, statErr := os.Stat(path); statErr == nil {
		return fmt.Errorf("waveform container %s already exists", path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("create waveform container: %w", err)
	}
	defer func() {
		if cerr := db.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	if _, err := db.ExecContext(ctx, containerSchema); err != nil {
		return fmt.Errorf("create container schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES ('bin_count', ?)`,
		strconv.Itoa(rec.BinCount)); err != nil {
		return fmt.Errorf("insert bin_count: %w", err)
	}

	shotStmt, err := tx.PrepareContext(ctx, `INSERT INTO shots
		(idx, lon0, lat0, lon_n, lat_n, lfid, shot_number, z0, z_n)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare shot insert: %w", err)
	}
	defer shotStmt.Close()

	waveStmt, err := tx.PrepareContext(ctx, `INSERT INTO waves (idx, rxwave) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare wave insert: %w", err)
	}
	defer waveStmt.Close()

	for i := range rec.Lon0 {
		if _, err := shotStmt.ExecContext(ctx, i,
			rec.Lon0[i], rec.Lat0[i], rec.LonN[i], rec.LatN[i],
			rec.FlightID[i], rec.ShotNumber[i], rec.Top[i], rec.Bottom[i]); err != nil {
			return fmt.Errorf("insert shot %d: %w", i, err)
		}
		if _, err := waveStmt.ExecContext(ctx, i, encodeWave(rec.Waveform[i])); err != nil {
			return fmt.Errorf("insert wave %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	diagf("wrote %d footprints to %s", len(rec.Lon0), path)
	return nil
}
