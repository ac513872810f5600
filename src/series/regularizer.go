package series

import (
	"fmt"
	"math"
	"time"

	"watershed-sync/src/helpers"
	"watershed-sync/src/models"
)

// -----------------------------------------------------------------------------
// Regularizer converts raw site records into regular interval series ready
// for storage. The interval is inferred from the data itself: the smallest
// gap between adjacent readings decides the grid, and readings that sit off
// the grid are snapped to their nearest grid point.
// -----------------------------------------------------------------------------

type Regularizer struct {
	location  string
	siteLabel string
}

// -----------------------------------------------------------------------------

func NewRegularizer(location string, siteLabel string) *Regularizer {
	return &Regularizer{
		location:  location,
		siteLabel: siteLabel,
	}
}

// -----------------------------------------------------------------------------

// Regularize validates a record, infers its interval and returns the series
// aligned to that interval. The record must carry at least two readings.
func (r *Regularizer) Regularize(rec *models.MSiteRecord, spec ParameterSpec) (*models.MRegularSeries, error) {
	// 1. Validate shape
	if len(rec.Times) == 0 {
		return nil, helpers.NewMalformedSeriesError(
			fmt.Sprintf("site %s has no readings", rec.SiteNumber), nil)
	}
	if len(rec.Times) != len(rec.Values) {
		return nil, helpers.NewMalformedSeriesError(
			fmt.Sprintf("site %s has %d times but %d values", rec.SiteNumber, len(rec.Times), len(rec.Values)), nil)
	}
	if len(rec.Times) < 2 {
		return nil, helpers.NewMalformedSeriesError(
			fmt.Sprintf("site %s has a single reading, interval cannot be inferred", rec.SiteNumber), nil)
	}

	times := rec.TimeSlice()

	// 2. Infer the interval and map it to a code
	intervalMinutes := detectIntervalMinutes(times)
	intervalCode, err := IntervalCode(intervalMinutes)
	if err != nil {
		return nil, err
	}

	// 3. Align readings to the interval grid
	step := time.Duration(intervalMinutes) * time.Minute
	var outTimes []time.Time
	var outValues []float64
	if isRegular(times, step) {
		outTimes = times
		outValues = append([]float64(nil), rec.Values...)
	} else {
		outTimes, outValues = snapToGrid(times, rec.Values, step)
	}

	// 4. Assemble the series
	site := rec.SiteNumber
	if r.siteLabel == "name" {
		site = rec.Name
	}

	return &models.MRegularSeries{
		SiteNumber:      rec.SiteNumber,
		SiteName:        rec.Name,
		Code:            rec.Code,
		Parameter:       spec.Parameter,
		Unit:            spec.Unit,
		DataType:        spec.DataType,
		Version:         spec.Version,
		IntervalMinutes: intervalMinutes,
		IntervalCode:    intervalCode,
		Pathname:        BuildPathname(r.location, site, spec.Parameter, intervalCode, spec.Version),
		Times:           outTimes,
		Values:          outValues,
	}, nil
}

// -----------------------------------------------------------------------------

// detectIntervalMinutes returns the smallest gap between adjacent readings,
// in whole minutes. Ties keep the first gap found.
func detectIntervalMinutes(times []time.Time) int {
	best := -1
	for i := 1; i < len(times); i++ {
		gap := times[i].Sub(times[i-1])
		if gap < 0 {
			gap = -gap
		}
		minutes := int(gap / time.Minute)
		if best < 0 || minutes < best {
			best = minutes
		}
	}
	return best
}

// -----------------------------------------------------------------------------

func isRegular(times []time.Time, step time.Duration) bool {
	for i := 1; i < len(times); i++ {
		if times[i].Sub(times[i-1]) != step {
			return false
		}
	}
	return true
}

// -----------------------------------------------------------------------------

// snapToGrid moves each reading to its nearest grid point on the grid
// anchored at the first timestamp. When two readings land on the same grid
// point the first one wins.
func snapToGrid(times []time.Time, values []float64, step time.Duration) ([]time.Time, []float64) {
	anchor := times[0]
	outTimes := make([]time.Time, 0, len(times))
	outValues := make([]float64, 0, len(values))

	for i, t := range times {
		n := math.Round(float64(t.Sub(anchor)) / float64(step))
		snapped := anchor.Add(time.Duration(n) * step)
		if len(outTimes) > 0 && !snapped.After(outTimes[len(outTimes)-1]) {
			continue
		}
		outTimes = append(outTimes, snapped)
		outValues = append(outValues, values[i])
	}
	return outTimes, outValues
}
