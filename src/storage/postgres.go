package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"watershed-sync/src/helpers"
	"watershed-sync/src/logger"
	"watershed-sync/src/models"
	"watershed-sync/src/series"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------
// Postgres store. Same contract as the SQLite store, with every table living
// in a schema named after the executable so several deployments can share
// one database.
// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	// Use reflection/os to get executable name for schema
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return &PostgresDB{
		Config: cfg,
		Schema: name,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	// Create Schema
	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	if err := d.ensureTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) ensureTables() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."series" (
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
			start_time BIGINT,
			end_time BIGINT,
			points INTEGER,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create series: %w", err)
	}

	query = fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."series_points" (
			pathname TEXT,
			ts BIGINT,
			value DOUBLE PRECISION,
			PRIMARY KEY (pathname, ts)
		);
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create series_points: %w", err)
	}

	query = fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."grid_coverage" (
			pathname TEXT,
			b_part TEXT,
			f_part TEXT,
			start_time BIGINT,
			end_time BIGINT,
			recorded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (pathname, start_time, end_time)
		);
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create grid_coverage: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) PutSeries(s *models.MRegularSeries) error {
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

	query := fmt.Sprintf(`
		INSERT INTO "%s"."series_points" (pathname, ts, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (pathname, ts) DO UPDATE SET value = EXCLUDED.value
	`, d.Schema)
	stmt, err := tx.Prepare(query)
	if err != nil {
		return helpers.NewStoreWriteError("cannot prepare point insert", err)
	}
	defer stmt.Close()

	for i, t := range s.Times {
		if _, err := stmt.Exec(s.Pathname, t.UTC().Unix(), s.Values[i]); err != nil {
			return helpers.NewStoreWriteError(fmt.Sprintf("cannot write point %s", t), err)
		}
	}

	query = fmt.Sprintf(`
		INSERT INTO "%s"."series" (
			pathname, a_part, b_part, c_part, e_part, f_part,
			site_number, site_name, code, parameter, unit, data_type, version,
			interval_minutes, start_time, end_time, points, updated_at
		)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, MIN(ts), MAX(ts), COUNT(*), CURRENT_TIMESTAMP
		FROM "%s"."series_points" WHERE pathname = $15
		ON CONFLICT (pathname) DO UPDATE SET
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			points = EXCLUDED.points,
			updated_at = EXCLUDED.updated_at
	`, d.Schema, d.Schema)
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

func (d *PostgresDB) GetSeries(pathname string) (*models.MRegularSeries, error) {
	query := fmt.Sprintf(`
		SELECT site_number, site_name, code, parameter, unit, data_type, version, interval_minutes
		FROM "%s"."series" WHERE pathname = $1
	`, d.Schema)
	row := d.DB.QueryRow(query, pathname)

	s := &models.MRegularSeries{Pathname: pathname}
	err := row.Scan(&s.SiteNumber, &s.SiteName, &s.Code, &s.Parameter, &s.Unit, &s.DataType, &s.Version, &s.IntervalMinutes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read series %s: %w", pathname, err)
	}

	query = fmt.Sprintf(`SELECT ts, value FROM "%s"."series_points" WHERE pathname = $1 ORDER BY ts`, d.Schema)
	rows, err := d.DB.Query(query, pathname)
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

func (d *PostgresDB) Catalog(bPart string, fPart string) ([]string, error) {
	var entries []string

	query := fmt.Sprintf(`
		SELECT a_part, b_part, c_part, e_part, f_part, start_time, end_time
		FROM "%s"."series"
		WHERE b_part = UPPER($1) AND f_part = UPPER($2)
		ORDER BY pathname
	`, d.Schema)
	rows, err := d.DB.Query(query, bPart, fPart)
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

	query = fmt.Sprintf(`
		SELECT pathname FROM "%s"."grid_coverage"
		WHERE b_part = UPPER($1) AND f_part = UPPER($2)
		ORDER BY pathname
	`, d.Schema)
	rows, err = d.DB.Query(query, bPart, fPart)
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

func (d *PostgresDB) Extent(bPart string, fPart string) (*models.MStoredExtent, error) {
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
	query := fmt.Sprintf(`
		SELECT MIN(start_time), MAX(end_time) FROM "%s"."series"
		WHERE b_part = UPPER($1) AND f_part = UPPER($2)
	`, d.Schema)
	if err := d.DB.QueryRow(query, bPart, fPart).Scan(&start, &end); err != nil {
		return nil, fmt.Errorf("failed to read series extent: %w", err)
	}
	merge(start, end)

	query = fmt.Sprintf(`
		SELECT MIN(start_time), MAX(end_time) FROM "%s"."grid_coverage"
		WHERE b_part = UPPER($1) AND f_part = UPPER($2)
	`, d.Schema)
	if err := d.DB.QueryRow(query, bPart, fPart).Scan(&start, &end); err != nil {
		return nil, fmt.Errorf("failed to read coverage extent: %w", err)
	}
	merge(start, end)

	return extent, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) PutCoverage(pathname string, start time.Time, end time.Time) error {
	parts, err := series.ParsePathname(pathname)
	if err != nil {
		return helpers.NewStoreWriteError(fmt.Sprintf("cannot record coverage for %s", pathname), err)
	}

	query := fmt.Sprintf(`
		INSERT INTO "%s"."grid_coverage" (pathname, b_part, f_part, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (pathname, start_time, end_time) DO UPDATE SET recorded_at = CURRENT_TIMESTAMP
	`, d.Schema)
	_, err = d.DB.Exec(query, pathname, parts.B, parts.F, start.UTC().Unix(), end.UTC().Unix())
	if err != nil {
		return helpers.NewStoreWriteError(fmt.Sprintf("cannot record coverage for %s", pathname), err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
