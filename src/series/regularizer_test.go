package series

import (
	"errors"
	"testing"
	"time"

	"watershed-sync/src/helpers"
	"watershed-sync/src/models"
)

func minuteStamps(base time.Time, offsets ...int) []models.MFlexTime {
	out := make([]models.MFlexTime, len(offsets))
	for i, m := range offsets {
		out[i] = models.MFlexTime{Time: base.Add(time.Duration(m) * time.Minute)}
	}
	return out
}

func stageRecord(times []models.MFlexTime, values []float64) *models.MSiteRecord {
	return &models.MSiteRecord{
		Code:       "00065",
		SiteNumber: "02198500",
		Name:       "Savannah River",
		Times:      times,
		Values:     values,
	}
}

func TestRegularize(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	stage, _ := LookupParameter("00065")
	reg := NewRegularizer("a2w", "site_number")

	t.Run("irregular readings snap to the inferred grid", func(t *testing.T) {
		rec := stageRecord(minuteStamps(base, 0, 5, 10, 21), []float64{1, 2, 3, 4})
		series, err := reg.Regularize(rec, stage)
		if err != nil {
			t.Fatalf("Regularize() err = %v; want nil", err)
		}
		if series.IntervalMinutes != 5 {
			t.Fatalf("IntervalMinutes = %d; want 5", series.IntervalMinutes)
		}
		if series.IntervalCode != "5MIN" {
			t.Errorf("IntervalCode = %q; want 5MIN", series.IntervalCode)
		}
		wantOffsets := []int{0, 5, 10, 20}
		if len(series.Times) != len(wantOffsets) {
			t.Fatalf("got %d readings; want %d", len(series.Times), len(wantOffsets))
		}
		for i, m := range wantOffsets {
			want := base.Add(time.Duration(m) * time.Minute)
			if !series.Times[i].Equal(want) {
				t.Errorf("Times[%d] = %v; want %v", i, series.Times[i], want)
			}
		}
	})

	t.Run("regular readings pass through unchanged", func(t *testing.T) {
		rec := stageRecord(minuteStamps(base, 0, 15, 30, 45), []float64{1, 2, 3, 4})
		series, err := reg.Regularize(rec, stage)
		if err != nil {
			t.Fatalf("Regularize() err = %v; want nil", err)
		}
		if series.IntervalCode != "15MIN" {
			t.Errorf("IntervalCode = %q; want 15MIN", series.IntervalCode)
		}
		for i := range rec.Times {
			if !series.Times[i].Equal(rec.Times[i].Time) {
				t.Errorf("Times[%d] = %v; want %v untouched", i, series.Times[i], rec.Times[i].Time)
			}
			if series.Values[i] != rec.Values[i] {
				t.Errorf("Values[%d] = %v; want %v untouched", i, series.Values[i], rec.Values[i])
			}
		}
	})

	t.Run("smallest gap wins over the common gap", func(t *testing.T) {
		rec := stageRecord(minuteStamps(base, 0, 60, 61, 120), []float64{1, 2, 3, 4})
		series, err := reg.Regularize(rec, stage)
		if err != nil {
			t.Fatalf("Regularize() err = %v; want nil", err)
		}
		if series.IntervalMinutes != 1 {
			t.Fatalf("IntervalMinutes = %d; want 1", series.IntervalMinutes)
		}
		// Whole-minute readings all sit on the one minute grid already, so
		// every reading survives the snap.
		if len(series.Times) != 4 {
			t.Errorf("got %d readings; want 4", len(series.Times))
		}
	})

	t.Run("unknown interval is rejected", func(t *testing.T) {
		rec := stageRecord(minuteStamps(base, 0, 7, 14), []float64{1, 2, 3})
		_, err := reg.Regularize(rec, stage)
		var malformed *helpers.MalformedSeriesError
		if !errors.As(err, &malformed) {
			t.Fatalf("Regularize() err = %v; want MalformedSeriesError", err)
		}
	})

	t.Run("empty record is rejected", func(t *testing.T) {
		rec := stageRecord(nil, nil)
		_, err := reg.Regularize(rec, stage)
		var malformed *helpers.MalformedSeriesError
		if !errors.As(err, &malformed) {
			t.Fatalf("Regularize() err = %v; want MalformedSeriesError", err)
		}
	})

	t.Run("length mismatch is rejected", func(t *testing.T) {
		rec := stageRecord(minuteStamps(base, 0, 15), []float64{1})
		_, err := reg.Regularize(rec, stage)
		var malformed *helpers.MalformedSeriesError
		if !errors.As(err, &malformed) {
			t.Fatalf("Regularize() err = %v; want MalformedSeriesError", err)
		}
	})

	t.Run("single reading is rejected", func(t *testing.T) {
		rec := stageRecord(minuteStamps(base, 0), []float64{1})
		_, err := reg.Regularize(rec, stage)
		var malformed *helpers.MalformedSeriesError
		if !errors.As(err, &malformed) {
			t.Fatalf("Regularize() err = %v; want MalformedSeriesError", err)
		}
	})
}

func TestRegularizePathname(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	stage, _ := LookupParameter("00065")

	t.Run("site number label", func(t *testing.T) {
		reg := NewRegularizer("a2w", "site_number")
		rec := stageRecord(minuteStamps(base, 0, 15, 30), []float64{1, 2, 3})
		series, err := reg.Regularize(rec, stage)
		if err != nil {
			t.Fatalf("Regularize() err = %v; want nil", err)
		}
		want := "/A2W/02198500/STAGE//15MIN/A2W/"
		if series.Pathname != want {
			t.Errorf("Pathname = %q; want %q", series.Pathname, want)
		}
	})

	t.Run("site name label", func(t *testing.T) {
		reg := NewRegularizer("a2w", "name")
		rec := stageRecord(minuteStamps(base, 0, 15, 30), []float64{1, 2, 3})
		series, err := reg.Regularize(rec, stage)
		if err != nil {
			t.Fatalf("Regularize() err = %v; want nil", err)
		}
		want := "/A2W/SAVANNAH RIVER/STAGE//15MIN/A2W/"
		if series.Pathname != want {
			t.Errorf("Pathname = %q; want %q", series.Pathname, want)
		}
	})
}
