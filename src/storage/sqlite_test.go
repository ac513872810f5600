package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"watershed-sync/src/helpers"
	"watershed-sync/src/logger"
	"watershed-sync/src/models"
)

// -----------------------------------------------------------------------------

func newTestDB(t *testing.T) *AsyncSQLiteDB {
	t.Helper()
	cfg := &models.MConfig{
		Storage: models.MStorageConfig{
			DBType: "sqlite",
			DBPath: filepath.Join(t.TempDir(), "test.db"),
		},
	}
	db, err := NewAsyncSQLiteDB(cfg, logger.NewLogger("ERROR", "test"))
	if err != nil {
		t.Fatalf("NewAsyncSQLiteDB() err = %v; want nil", err)
	}
	if err := db.Initialize(); err != nil {
		t.Fatalf("Initialize() err = %v; want nil", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func stageSeries(offsets ...int) *models.MRegularSeries {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	s := &models.MRegularSeries{
		SiteNumber:      "02198500",
		SiteName:        "Savannah River",
		Code:            "00065",
		Parameter:       "Stage",
		Unit:            "feet",
		DataType:        "INST-VAL",
		Version:         "a2w",
		IntervalMinutes: 15,
		IntervalCode:    "15MIN",
		Pathname:        "/A2W/02198500/STAGE//15MIN/A2W/",
	}
	for _, m := range offsets {
		s.Times = append(s.Times, base.Add(time.Duration(m)*time.Minute))
		s.Values = append(s.Values, float64(m))
	}
	return s
}

// -----------------------------------------------------------------------------

func TestPutGetSeries(t *testing.T) {
	t.Run("round trip keeps metadata and point order", func(t *testing.T) {
		db := newTestDB(t)
		if err := db.PutSeries(stageSeries(0, 15, 30)); err != nil {
			t.Fatalf("PutSeries() err = %v; want nil", err)
		}

		got, err := db.GetSeries("/A2W/02198500/STAGE//15MIN/A2W/")
		if err != nil {
			t.Fatalf("GetSeries() err = %v; want nil", err)
		}
		if got == nil {
			t.Fatal("GetSeries() = nil; want the stored series")
		}
		if got.SiteNumber != "02198500" || got.Parameter != "Stage" || got.IntervalMinutes != 15 {
			t.Errorf("metadata = %s/%s/%d; want 02198500/Stage/15", got.SiteNumber, got.Parameter, got.IntervalMinutes)
		}
		if len(got.Times) != 3 {
			t.Fatalf("got %d points; want 3", len(got.Times))
		}
		for i := 1; i < len(got.Times); i++ {
			if !got.Times[i].After(got.Times[i-1]) {
				t.Errorf("points out of order at %d: %v then %v", i, got.Times[i-1], got.Times[i])
			}
		}
	})

	t.Run("second write extends and overwrites by timestamp", func(t *testing.T) {
		db := newTestDB(t)
		if err := db.PutSeries(stageSeries(0, 15, 30)); err != nil {
			t.Fatalf("PutSeries() err = %v; want nil", err)
		}

		update := stageSeries(30, 45, 60)
		update.Values[0] = 999
		if err := db.PutSeries(update); err != nil {
			t.Fatalf("PutSeries() err = %v; want nil", err)
		}

		got, err := db.GetSeries(update.Pathname)
		if err != nil {
			t.Fatalf("GetSeries() err = %v; want nil", err)
		}
		if len(got.Times) != 5 {
			t.Fatalf("got %d points; want the union of 5", len(got.Times))
		}
		if got.Values[2] != 999 {
			t.Errorf("overlapping point value = %v; want the newer 999", got.Values[2])
		}
	})

	t.Run("missing pathname reads as nil without error", func(t *testing.T) {
		db := newTestDB(t)
		got, err := db.GetSeries("/A2W/NOWHERE/STAGE//15MIN/A2W/")
		if err != nil {
			t.Fatalf("GetSeries() err = %v; want nil", err)
		}
		if got != nil {
			t.Errorf("GetSeries() = %+v; want nil", got)
		}
	})

	t.Run("empty series write is a no-op", func(t *testing.T) {
		db := newTestDB(t)
		if err := db.PutSeries(stageSeries()); err != nil {
			t.Fatalf("PutSeries() err = %v; want nil", err)
		}
		got, err := db.GetSeries("/A2W/02198500/STAGE//15MIN/A2W/")
		if err != nil || got != nil {
			t.Errorf("GetSeries() = %v, %v; want nil, nil", got, err)
		}
	})

	t.Run("malformed pathname is rejected", func(t *testing.T) {
		db := newTestDB(t)
		bad := stageSeries(0, 15)
		bad.Pathname = "not-a-pathname"
		err := db.PutSeries(bad)
		var write *helpers.StoreWriteError
		if !errors.As(err, &write) {
			t.Fatalf("PutSeries() err = %v; want StoreWriteError", err)
		}
	})
}

// -----------------------------------------------------------------------------

func TestExtent(t *testing.T) {
	t.Run("nothing stored reads as nil", func(t *testing.T) {
		db := newTestDB(t)
		extent, err := db.Extent("02198500", "a2w")
		if err != nil {
			t.Fatalf("Extent() err = %v; want nil", err)
		}
		if extent != nil {
			t.Errorf("Extent() = %+v; want nil", extent)
		}
	})

	t.Run("series rows report earliest to latest", func(t *testing.T) {
		db := newTestDB(t)
		if err := db.PutSeries(stageSeries(0, 15, 30)); err != nil {
			t.Fatalf("PutSeries() err = %v; want nil", err)
		}

		extent, err := db.Extent("02198500", "a2w")
		if err != nil {
			t.Fatalf("Extent() err = %v; want nil", err)
		}
		if extent == nil {
			t.Fatal("Extent() = nil; want the stored span")
		}
		base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
		if !extent.Start.Equal(base) || !extent.End.Equal(base.Add(30*time.Minute)) {
			t.Errorf("extent = %v - %v; want %v - %v", extent.Start, extent.End, base, base.Add(30*time.Minute))
		}
	})

	t.Run("coverage rows widen the span", func(t *testing.T) {
		db := newTestDB(t)
		if err := db.PutSeries(stageSeries(0, 15, 30)); err != nil {
			t.Fatalf("PutSeries() err = %v; want nil", err)
		}

		start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
		coverage := "/A2W/02198500/PRECIP/01FEB2025:0000-01APR2025:0000//A2W/"
		if err := db.PutCoverage(coverage, start, end); err != nil {
			t.Fatalf("PutCoverage() err = %v; want nil", err)
		}

		extent, err := db.Extent("02198500", "a2w")
		if err != nil {
			t.Fatalf("Extent() err = %v; want nil", err)
		}
		if !extent.Start.Equal(start) || !extent.End.Equal(end) {
			t.Errorf("extent = %v - %v; want widened to %v - %v", extent.Start, extent.End, start, end)
		}
	})

	t.Run("site match ignores case", func(t *testing.T) {
		db := newTestDB(t)
		named := stageSeries(0, 15)
		named.Pathname = "/A2W/SAVANNAH RIVER/STAGE//15MIN/A2W/"
		if err := db.PutSeries(named); err != nil {
			t.Fatalf("PutSeries() err = %v; want nil", err)
		}

		extent, err := db.Extent("Savannah River", "a2w")
		if err != nil {
			t.Fatalf("Extent() err = %v; want nil", err)
		}
		if extent == nil {
			t.Fatal("Extent() = nil; want a match for the mixed case site label")
		}
	})

	t.Run("other sites do not leak in", func(t *testing.T) {
		db := newTestDB(t)
		if err := db.PutSeries(stageSeries(0, 15)); err != nil {
			t.Fatalf("PutSeries() err = %v; want nil", err)
		}
		extent, err := db.Extent("02197000", "a2w")
		if err != nil {
			t.Fatalf("Extent() err = %v; want nil", err)
		}
		if extent != nil {
			t.Errorf("Extent() = %+v; want nil for an unrelated site", extent)
		}
	})
}

// -----------------------------------------------------------------------------

func TestCatalog(t *testing.T) {
	t.Run("series entries carry the rendered range part", func(t *testing.T) {
		db := newTestDB(t)
		if err := db.PutSeries(stageSeries(0, 15, 30)); err != nil {
			t.Fatalf("PutSeries() err = %v; want nil", err)
		}

		entries, err := db.Catalog("02198500", "a2w")
		if err != nil {
			t.Fatalf("Catalog() err = %v; want nil", err)
		}
		if len(entries) != 1 {
			t.Fatalf("got %d entries; want 1", len(entries))
		}
		want := "/A2W/02198500/STAGE/01MAR2025:0000-01MAR2025:0030/15MIN/A2W/"
		if entries[0] != want {
			t.Errorf("entry = %q; want %q", entries[0], want)
		}
	})

	t.Run("coverage pathnames are listed after series", func(t *testing.T) {
		db := newTestDB(t)
		if err := db.PutSeries(stageSeries(0, 15)); err != nil {
			t.Fatalf("PutSeries() err = %v; want nil", err)
		}
		coverage := "/A2W/02198500/PRECIP/01FEB2025:0000-01APR2025:0000//A2W/"
		start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
		if err := db.PutCoverage(coverage, start, end); err != nil {
			t.Fatalf("PutCoverage() err = %v; want nil", err)
		}

		entries, err := db.Catalog("02198500", "a2w")
		if err != nil {
			t.Fatalf("Catalog() err = %v; want nil", err)
		}
		if len(entries) != 2 {
			t.Fatalf("got %d entries; want 2", len(entries))
		}
		if entries[1] != coverage {
			t.Errorf("entries[1] = %q; want the coverage pathname", entries[1])
		}
	})

	t.Run("empty catalog for unknown site", func(t *testing.T) {
		db := newTestDB(t)
		entries, err := db.Catalog("02198500", "a2w")
		if err != nil {
			t.Fatalf("Catalog() err = %v; want nil", err)
		}
		if len(entries) != 0 {
			t.Errorf("got %d entries; want 0", len(entries))
		}
	})
}

// -----------------------------------------------------------------------------

func TestPutCoverage(t *testing.T) {
	t.Run("same range twice stays one row", func(t *testing.T) {
		db := newTestDB(t)
		coverage := "/A2W/02198500/PRECIP/01FEB2025:0000-01APR2025:0000//A2W/"
		start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

		if err := db.PutCoverage(coverage, start, end); err != nil {
			t.Fatalf("PutCoverage() err = %v; want nil", err)
		}
		if err := db.PutCoverage(coverage, start, end); err != nil {
			t.Fatalf("repeat PutCoverage() err = %v; want nil", err)
		}

		entries, err := db.Catalog("02198500", "a2w")
		if err != nil {
			t.Fatalf("Catalog() err = %v; want nil", err)
		}
		if len(entries) != 1 {
			t.Errorf("got %d entries; want 1 after the duplicate write", len(entries))
		}
	})

	t.Run("malformed pathname is rejected", func(t *testing.T) {
		db := newTestDB(t)
		err := db.PutCoverage("bogus", time.Now(), time.Now())
		var write *helpers.StoreWriteError
		if !errors.As(err, &write) {
			t.Fatalf("PutCoverage() err = %v; want StoreWriteError", err)
		}
	})
}
