package series

import (
	"fmt"

	"watershed-sync/src/helpers"
)

// -----------------------------------------------------------------------------
// Interval codes. Only these minute counts map to a named regular interval;
// a detected interval outside the table means the series cannot be stored.
// -----------------------------------------------------------------------------

var intervalCodes = map[int]string{
	1:     "1MIN",
	2:     "2MIN",
	3:     "3MIN",
	4:     "4MIN",
	5:     "5MIN",
	6:     "6MIN",
	10:    "10MIN",
	12:    "12MIN",
	15:    "15MIN",
	20:    "20MIN",
	30:    "30MIN",
	60:    "1HOUR",
	120:   "2HOUR",
	180:   "3HOUR",
	240:   "4HOUR",
	360:   "6HOUR",
	480:   "8HOUR",
	720:   "12HOUR",
	1440:  "1DAY",
	10080: "1WEEK",
}

// -----------------------------------------------------------------------------

// IntervalCode maps a whole-minute interval to its pathname E part.
func IntervalCode(minutes int) (string, error) {
	code, ok := intervalCodes[minutes]
	if !ok {
		return "", helpers.NewMalformedSeriesError(
			fmt.Sprintf("no interval code for %d minute timestep", minutes), nil)
	}
	return code, nil
}
