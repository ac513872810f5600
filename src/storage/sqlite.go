package storage

import (
	"database/sql"
	"fmt"
	"time"

	"watershed-sync/src/helpers"
	"watershed-sync/src/logger"
	"watershed-sync/src/models"
	"watershed-sync/src/series"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------
// SQLite store. Series metadata and points live in separate tables keyed by
// the range-less pathname; the concrete range part is rendered into catalog
// listings from the stored start and end. Tables persist across runs, the
// cached extents are what later runs trim their windows against.
// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	return &AsyncSQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000;"); err != nil {
		d.Logger.Warning("Failed to set busy timeout: %v", err)
	}

	return d.ensureTables()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) ensureTables() error {
	// Series metadata, one row per pathname
	query := `
		CREATE TABLE IF NOT EXISTS series (
			pathname TEXT PRIMARY KEY,
			a_part TEXT,
			b_part TEXT,
			c_part TEXT,
			e_part TEXT,
			f_part TEXT,
			site_number TEXT,
			site_name TEXT,
			code TEXT,
			parameter TEXT,
			unit TEXT,
			data_type TEXT,
			version TEXT,
			interval_minutes INTEGER,
			start_time INTEGER,
			end_time INTEGER,
			points INTEGER,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create series: %w", err)
	}

	// Points, one row per timestamp
	query = `
		CREATE TABLE IF NOT EXISTS series_points (
			pathname TEXT,
			ts INTEGER,
			value REAL,
			PRIMARY KEY (pathname, ts)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create series_points: %w", err)
	}

	// Grid coverage, range bookkeeping for artifact-backed data
	query = `
		CREATE TABLE IF NOT EXISTS grid_coverage (
			pathname TEXT,
			b_part TEXT,
			f_part TEXT,
			start_time INTEGER,
			end_time INTEGER,
			recorded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (pathname, start_time, end_time)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create grid_coverage: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

// PutSeries upserts every point of the series, then refreshes the metadata
// row from what the points table now holds, all in one transaction.
func (d *AsyncSQLiteDB) PutSeries(s *models.MRegularSeries) error {
	if s == nil || len(s.Times) == 0 {
		return nil
	}

	parts, err := series.ParsePathname(s.Pathname)
	if err != nil {
		return helpers.NewStoreWriteError(fmt.Sprintf("cannot store series %s", s.Pathname), err)
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return helpers.NewStoreWriteError("cannot begin series transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO series_points (pathname, ts, value)
		VALUES (?, ?, ?)
		ON CONFLICT (pathname, ts) DO UPDATE SET value = excluded.value
	`)
	if err != nil {
		return helpers.NewStoreWriteError("cannot prepare point insert", err)
	}
	defer stmt.Close()

	for i, t := range s.Times {
		if _, err := stmt.Exec(s.Pathname, t.UTC().Unix(), s.Values[i]); err != nil {
			return helpers.NewStoreWriteError(fmt.Sprintf("cannot write point %s", t), err)
		}
	}

	query := `
		INSERT INTO series (
			pathname, a_part, b_part, c_part, e_part, f_part,
			site_number, site_name, code, parameter, unit, data_type, version,
			interval_minutes, start_time, end_time, points, updated_at
		)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, MIN(ts), MAX(ts), COUNT(*), CURRENT_TIMESTAMP
		FROM series_points WHERE pathname = ?
		ON CONFLICT (pathname) DO UPDATE SET
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			points = excluded.points,
			updated_at = excluded.updated_at
	`
	_, err = tx.Exec(query,
		s.Pathname, parts.A, parts.B, parts.C, parts.E, parts.F,
		s.SiteNumber, s.SiteName, s.Code, s.Parameter, s.Unit, s.DataType, s.Version,
		s.IntervalMinutes, s.Pathname)
	if err != nil {
		return helpers.NewStoreWriteError(fmt.Sprintf("cannot update series %s", s.Pathname), err)
	}

	if err := tx.Commit(); err != nil {
		return helpers.NewStoreWriteError("cannot commit series transaction", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// GetSeries loads the series stored under a pathname, points in time order.
// Returns nil when nothing is stored under it.
func (d *AsyncSQLiteDB) GetSeries(pathname string) (*models.MRegularSeries, error) {
	row := d.DB.QueryRow(`
		SELECT site_number, site_name, code, parameter, unit, data_type, version, interval_minutes
		FROM series WHERE pathname = ?
	`, pathname)

	s := &models.MRegularSeries{Pathname: pathname}
	err := row.Scan(&s.SiteNumber, &s.SiteName, &s.Code, &s.Parameter, &s.Unit, &s.DataType, &s.Version, &s.IntervalMinutes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read series %s: %w", pathname, err)
	}

	rows, err := d.DB.Query(`SELECT ts, value FROM series_points WHERE pathname = ? ORDER BY ts`, pathname)
	if err != nil {
		return nil, fmt.Errorf("failed to read points for %s: %w", pathname, err)
	}
	defer rows.Close()

	for rows.Next() {
		var ts int64
		var value float64
		if err := rows.Scan(&ts, &value); err != nil {
			return nil, fmt.Errorf("failed to scan point for %s: %w", pathname, err)
		}
		s.Times = append(s.Times, time.Unix(ts, 0).UTC())
		s.Values = append(s.Values, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read points for %s: %w", pathname, err)
	}
	return s, nil
}

// -----------------------------------------------------------------------------

// Catalog lists stored pathnames for a site and version label, with the
// concrete range rendered into the D part.
func (d *AsyncSQLiteDB) Catalog(bPart string, fPart string) ([]string, error) {
	var entries []string

	rows, err := d.DB.Query(`
		SELECT a_part, b_part, c_part, e_part, f_part, start_time, end_time
		FROM series
		WHERE b_part = UPPER(?) AND f_part = UPPER(?)
		ORDER BY pathname
	`, bPart, fPart)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a, b, c, e, f string
		var start, end int64
		if err := rows.Scan(&a, &b, &c, &e, &f, &start, &end); err != nil {
			return nil, fmt.Errorf("failed to scan catalog row: %w", err)
		}
		dPart := series.FormatRangePart(time.Unix(start, 0).UTC(), time.Unix(end, 0).UTC())
		entries = append(entries, fmt.Sprintf("/%s/%s/%s/%s/%s/%s/", a, b, c, dPart, e, f))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	rows, err = d.DB.Query(`
		SELECT pathname FROM grid_coverage
		WHERE b_part = UPPER(?) AND f_part = UPPER(?)
		ORDER BY pathname
	`, bPart, fPart)
	if err != nil {
		return nil, fmt.Errorf("failed to read coverage catalog: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pathname string
		if err := rows.Scan(&pathname); err != nil {
			return nil, fmt.Errorf("failed to scan coverage row: %w", err)
		}
		entries = append(entries, pathname)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read coverage catalog: %w", err)
	}

	return entries, nil
}

// -----------------------------------------------------------------------------

// Extent summarizes everything stored for a site and version label as a
// single earliest-start to latest-end span. Gaps inside the span do not
// show up here, so a window inside the span is treated as already held.
func (d *AsyncSQLiteDB) Extent(bPart string, fPart string) (*models.MStoredExtent, error) {
	var extent *models.MStoredExtent

	merge := func(start, end sql.NullInt64) {
		if !start.Valid || !end.Valid {
			return
		}
		s := time.Unix(start.Int64, 0).UTC()
		e := time.Unix(end.Int64, 0).UTC()
		if extent == nil {
			extent = &models.MStoredExtent{Start: s, End: e}
			return
		}
		if s.Before(extent.Start) {
			extent.Start = s
		}
		if e.After(extent.End) {
			extent.End = e
		}
	}

	var start, end sql.NullInt64
	err := d.DB.QueryRow(`
		SELECT MIN(start_time), MAX(end_time) FROM series
		WHERE b_part = UPPER(?) AND f_part = UPPER(?)
	`, bPart, fPart).Scan(&start, &end)
	if err != nil {
		return nil, fmt.Errorf("failed to read series extent: %w", err)
	}
	merge(start, end)

	err = d.DB.QueryRow(`
		SELECT MIN(start_time), MAX(end_time) FROM grid_coverage
		WHERE b_part = UPPER(?) AND f_part = UPPER(?)
	`, bPart, fPart).Scan(&start, &end)
	if err != nil {
		return nil, fmt.Errorf("failed to read coverage extent: %w", err)
	}
	merge(start, end)

	return extent, nil
}

// -----------------------------------------------------------------------------

// PutCoverage records a stored range for an artifact-backed pathname. The
// pathname arrives with its range part already set; the site and version
// labels are lifted out of it for catalog matching.
func (d *AsyncSQLiteDB) PutCoverage(pathname string, start time.Time, end time.Time) error {
	parts, err := series.ParsePathname(pathname)
	if err != nil {
		return helpers.NewStoreWriteError(fmt.Sprintf("cannot record coverage for %s", pathname), err)
	}

	_, err = d.DB.Exec(`
		INSERT INTO grid_coverage (pathname, b_part, f_part, start_time, end_time)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (pathname, start_time, end_time) DO UPDATE SET recorded_at = CURRENT_TIMESTAMP
	`, pathname, parts.B, parts.F, start.UTC().Unix(), end.UTC().Unix())
	if err != nil {
		return helpers.NewStoreWriteError(fmt.Sprintf("cannot record coverage for %s", pathname), err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
