package series

import (
	"fmt"
	"strings"
	"time"

	"watershed-sync/src/helpers"
)

// -----------------------------------------------------------------------------
// Pathname handling. A series is addressed by six slash-delimited parts
// /A/B/C/D/E/F/ where A is the project location, B the site label, C the
// parameter, D the stored time range, E the interval code and F the version.
// Pathnames are uppercase throughout the store.
// -----------------------------------------------------------------------------

const rangePartLayout = "02Jan2006:1504"

type PathnameParts struct {
	A string
	B string
	C string
	D string
	E string
	F string
}

// -----------------------------------------------------------------------------

// BuildPathname assembles an uppercase pathname with an empty D part.
// The store fills D when the series is written.
func BuildPathname(location string, site string, parameter string, intervalCode string, version string) string {
	return strings.ToUpper(fmt.Sprintf("/%s/%s/%s//%s/%s/", location, site, parameter, intervalCode, version))
}

// -----------------------------------------------------------------------------

// ParsePathname splits a pathname into its six parts.
func ParsePathname(pathname string) (PathnameParts, error) {
	segments := strings.Split(pathname, "/")
	if len(segments) != 8 || segments[0] != "" || segments[7] != "" {
		return PathnameParts{}, helpers.NewMalformedSeriesError(
			fmt.Sprintf("pathname %q does not have six parts", pathname), nil)
	}
	return PathnameParts{
		A: segments[1],
		B: segments[2],
		C: segments[3],
		D: segments[4],
		E: segments[5],
		F: segments[6],
	}, nil
}

// -----------------------------------------------------------------------------

// FormatRangePart renders the D part for a stored range, for example
// 01JUN2022:0000-15JUN2022:1800.
func FormatRangePart(start time.Time, end time.Time) string {
	return strings.ToUpper(start.Format(rangePartLayout) + "-" + end.Format(rangePartLayout))
}

// -----------------------------------------------------------------------------

// ParseRangePart reads a D part back into its start and end times.
// A 2400 clock reading means midnight at the end of the day, which rolls
// over to 0000 on the following day.
func ParseRangePart(dPart string) (time.Time, time.Time, error) {
	tokens := strings.Split(dPart, "-")
	if len(tokens) != 2 {
		return time.Time{}, time.Time{}, helpers.NewMalformedSeriesError(
			fmt.Sprintf("range part %q is not a start-end pair", dPart), nil)
	}

	start, err := parseRangeStamp(tokens[0])
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseRangeStamp(tokens[1])
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// -----------------------------------------------------------------------------

func parseRangeStamp(stamp string) (time.Time, error) {
	rollover := false
	if strings.HasSuffix(stamp, ":2400") {
		stamp = strings.TrimSuffix(stamp, ":2400") + ":0000"
		rollover = true
	}

	t, err := time.Parse(rangePartLayout, stamp)
	if err != nil {
		return time.Time{}, helpers.NewMalformedSeriesError(
			fmt.Sprintf("cannot parse range stamp %q", stamp), err)
	}
	if rollover {
		t = t.AddDate(0, 0, 1)
	}
	return t.UTC(), nil
}
