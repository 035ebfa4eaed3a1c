package lumped

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/san-kum/hydrosim/internal/swmm"
	"github.com/san-kum/hydrosim/internal/timecodec"

	_ "modernc.org/sqlite"
)

const resultsSchema = `
CREATE TABLE IF NOT EXISTS project (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS objects (
	kind INTEGER NOT NULL,
	idx  INTEGER NOT NULL,
	name TEXT NOT NULL,
	PRIMARY KEY (kind, idx)
);

CREATE TABLE IF NOT EXISTS periods (
	period INTEGER PRIMARY KEY,
	date   REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS saved_values (
	period   INTEGER NOT NULL REFERENCES periods(period),
	kind     INTEGER NOT NULL,
	idx      INTEGER NOT NULL,
	property INTEGER NOT NULL,
	value    REAL NOT NULL,
	PRIMARY KEY (period, kind, idx, property)
);

CREATE TABLE IF NOT EXISTS mass_balance (
	runoff  REAL NOT NULL,
	flow    REAL NOT NULL,
	quality REAL NOT NULL
);
`

// savedProperties are written for every object at each reporting period.
var savedProperties = map[swmm.ObjectKind][]swmm.Property{
	swmm.Gage:     {swmm.GageRainfall},
	swmm.Subcatch: {swmm.SubcatchRainfall, swmm.SubcatchEvap, swmm.SubcatchInfil, swmm.SubcatchRunoff},
	swmm.Node:     {swmm.NodeDepth, swmm.NodeHead, swmm.NodeVolume, swmm.NodeLatFlow, swmm.NodeInflow, swmm.NodeOverflow},
	swmm.Link:     {swmm.LinkFlow, swmm.LinkDepth, swmm.LinkVelocity},
}

type savedValue struct {
	kind  swmm.ObjectKind
	index int
	prop  swmm.Property
	value float64
}

func (e *Engine) snapshot() []savedValue {
	var out []savedValue
	for _, kind := range []swmm.ObjectKind{swmm.Gage, swmm.Subcatch, swmm.Node, swmm.Link} {
		n, _ := e.count(kind)
		for i := 0; i < n; i++ {
			for _, p := range savedProperties[kind] {
				v, _ := e.Value(int(kind), int(p), i)
				out = append(out, savedValue{kind, i, p, v})
			}
		}
	}
	return out
}

type resultWriter struct {
	db *sql.DB
}

func createResults(path string) (*resultWriter, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(DELETE)&_pragma=synchronous(OFF)")
	if err != nil {
		return nil, fmt.Errorf("open results: %w", err)
	}
	db.SetMaxOpenConns(1)
	for _, stmt := range []string{
		"DROP TABLE IF EXISTS saved_values",
		"DROP TABLE IF EXISTS periods",
		"DROP TABLE IF EXISTS objects",
		"DROP TABLE IF EXISTS project",
		"DROP TABLE IF EXISTS mass_balance",
		resultsSchema,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init results: %w", err)
		}
	}
	return &resultWriter{db: db}, nil
}

func (w *resultWriter) begin(e *Engine) error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	project := map[string]string{
		"title":       e.model.Title,
		"flow_units":  e.model.Options.FlowUnits,
		"start_date":  fmt.Sprint(e.start),
		"end_date":    fmt.Sprint(e.end),
		"report_step": fmt.Sprint(e.reportStep),
		"version":     fmt.Sprint(Version),
	}
	for k, v := range project {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO project (key, value) VALUES (?, ?)`, k, v); err != nil {
			return err
		}
	}
	for kind := range savedProperties {
		list, _ := e.objectNames(kind)
		for i, name := range list {
			if _, err := tx.Exec(`INSERT OR REPLACE INTO objects (kind, idx, name) VALUES (?, ?, ?)`, int(kind), i, name); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func (w *resultWriter) savePeriod(period int, date float64, values []savedValue) error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO periods (period, date) VALUES (?, ?)`, period, date); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO saved_values (period, kind, idx, property, value) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, v := range values {
		if _, err := stmt.Exec(period, int(v.kind), v.index, int(v.prop), v.value); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (w *resultWriter) finish(mb swmm.MassBalance) error {
	_, err := w.db.Exec(`INSERT INTO mass_balance (runoff, flow, quality) VALUES (?, ?, ?)`, mb.Runoff, mb.Flow, mb.Quality)
	return err
}

func (w *resultWriter) close() error { return w.db.Close() }

// ErrNoResult is returned when a results file holds no value for the
// requested object, property and period.
var ErrNoResult = errors.New("lumped: no saved result")

// Results reads a results file written by a finished run.
type Results struct {
	db *sql.DB
}

func OpenResults(path string) (*Results, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open results: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open results: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open results: %w", err)
	}
	return &Results{db: db}, nil
}

func (r *Results) Close() error { return r.db.Close() }

// Periods returns the number of saved reporting periods.
func (r *Results) Periods() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM periods`).Scan(&n)
	return n, err
}

// PeriodTime returns the simulation date of a 1-based reporting period.
func (r *Results) PeriodTime(period int) (time.Time, error) {
	var date float64
	err := r.db.QueryRow(`SELECT date FROM periods WHERE period = ?`, period).Scan(&date)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, fmt.Errorf("%w: period %d", ErrNoResult, period)
	}
	if err != nil {
		return time.Time{}, err
	}
	return timecodec.Decode(date), nil
}

// SavedValue returns the value of prop on object index of kind at the end
// of a 1-based reporting period.
func (r *Results) SavedValue(kind swmm.ObjectKind, prop swmm.Property, index, period int) (float64, error) {
	var v float64
	err := r.db.QueryRow(
		`SELECT value FROM saved_values WHERE period = ? AND kind = ? AND idx = ? AND property = ?`,
		period, int(kind), index, int(prop),
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s.%s[%d] period %d", ErrNoResult, kind, prop.Name(kind), index, period)
	}
	return v, err
}

// Series returns the saved values of prop on one object in period order.
func (r *Results) Series(kind swmm.ObjectKind, prop swmm.Property, index int) ([]float64, error) {
	rows, err := r.db.Query(
		`SELECT value FROM saved_values WHERE kind = ? AND idx = ? AND property = ? ORDER BY period`,
		int(kind), index, int(prop),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Names returns saved object names of kind in index order.
func (r *Results) Names(kind swmm.ObjectKind) ([]string, error) {
	rows, err := r.db.Query(`SELECT name FROM objects WHERE kind = ? ORDER BY idx`, int(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (r *Results) MassBalance() (swmm.MassBalance, error) {
	var mb swmm.MassBalance
	err := r.db.QueryRow(`SELECT runoff, flow, quality FROM mass_balance LIMIT 1`).Scan(&mb.Runoff, &mb.Flow, &mb.Quality)
	if errors.Is(err, sql.ErrNoRows) {
		return mb, fmt.Errorf("%w: mass balance", ErrNoResult)
	}
	return mb, err
}
