// Package record persists step reports of a coupled run to SQL.
package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver

	"mixcrop/internal/coupling"
)

// Drivers understood by Open.
const (
	DriverSQLite = "sqlite"
	DriverPGX    = "pgx"
)

// ErrDriver marks an unsupported driver name.
var ErrDriver = errors.New("record: unsupported driver")

var sqlOpen = sql.Open

// Row is one stored step.
type Row struct {
	Run           string
	T             int
	DOY           int
	Light         bool
	Soil          bool
	Bare          bool
	Plants        int
	Energy        float64
	Intercepted   float64
	SoilEnergy    float64
	Transpiration float64
	Evaporation   float64
	Uptake        float64
	Water         float64
}

// FromReport flattens a step report.
func FromReport(run string, r coupling.StepReport) Row {
	return Row{
		Run:           run,
		T:             r.T,
		DOY:           r.DOY,
		Light:         r.Light,
		Soil:          r.Soil,
		Bare:          r.Bare,
		Plants:        r.Plants,
		Energy:        r.Energy,
		Intercepted:   r.Intercepted,
		SoilEnergy:    r.SoilEnergy,
		Transpiration: r.Transpiration,
		Evaporation:   r.Evaporation,
		Uptake:        r.Uptake,
		Water:         r.Water,
	}
}

// Store writes the steps of one run into the steps table.
type Store struct {
	db     *sql.DB
	driver string
	run    string
	mu     sync.Mutex
}

var _ coupling.Recorder = (*Store)(nil)

// Open connects to dsn and creates the steps table when missing. For sqlite
// the dsn is a file path whose directory is created.
func Open(ctx context.Context, driver, dsn, run string) (*Store, error) {
	switch driver {
	case DriverSQLite:
		if dsn == "" {
			dsn = "mixcrop.db"
		}
		if err := os.MkdirAll(filepath.Dir(dsn), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	case DriverPGX:
	default:
		return nil, fmt.Errorf("%w: %q", ErrDriver, driver)
	}
	db, err := sqlOpen(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS steps (
		run TEXT NOT NULL,
		t INTEGER NOT NULL,
		doy INTEGER NOT NULL,
		light BOOLEAN NOT NULL,
		soil BOOLEAN NOT NULL,
		bare BOOLEAN NOT NULL,
		plants INTEGER NOT NULL,
		energy DOUBLE PRECISION NOT NULL,
		intercepted DOUBLE PRECISION NOT NULL,
		soil_energy DOUBLE PRECISION NOT NULL,
		transpiration DOUBLE PRECISION NOT NULL,
		evaporation DOUBLE PRECISION NOT NULL,
		uptake DOUBLE PRECISION NOT NULL,
		water DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run, t)
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create steps table: %w", err)
	}
	return &Store{db: db, driver: driver, run: run}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Run returns the run identifier written with every row.
func (s *Store) Run() string { return s.run }

// bind rewrites ? placeholders for drivers numbering their parameters.
func (s *Store) bind(q string) string {
	if s.driver != DriverPGX {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const columns = "run, t, doy, light, soil, bare, plants, energy, intercepted, soil_energy, transpiration, evaporation, uptake, water"

// Record stores one step, replacing a previous row of the same step.
func (s *Store) Record(ctx context.Context, r coupling.StepReport) (retErr error) {
	row := FromReport(s.run, r)
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, s.bind(`DELETE FROM steps WHERE run = ? AND t = ?`), row.Run, row.T); err != nil {
		return fmt.Errorf("delete step %d: %w", row.T, err)
	}
	q := s.bind(`INSERT INTO steps (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := tx.ExecContext(ctx, q,
		row.Run, row.T, row.DOY, row.Light, row.Soil, row.Bare, row.Plants,
		row.Energy, row.Intercepted, row.SoilEnergy,
		row.Transpiration, row.Evaporation, row.Uptake, row.Water,
	); err != nil {
		return fmt.Errorf("insert step %d: %w", row.T, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rows returns the stored steps of the run ordered by step.
func (s *Store) Rows(ctx context.Context) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, s.bind(`SELECT `+columns+` FROM steps WHERE run = ? ORDER BY t`), s.run)
	if err != nil {
		return nil, fmt.Errorf("select steps: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Run, &r.T, &r.DOY, &r.Light, &r.Soil, &r.Bare, &r.Plants,
			&r.Energy, &r.Intercepted, &r.SoilEnergy,
			&r.Transpiration, &r.Evaporation, &r.Uptake, &r.Water); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
