package models

import "time"

// ISOFormat is the wire format for window bounds (UTC, second precision).
const ISOFormat = "2006-01-02T15:04:05Z"

// -----------------------------------------------------------------------------

// MFetchWindow is a half-open time range [After, Before). An empty or
// inverted window means there is nothing left to fetch.
type MFetchWindow struct {
	After  time.Time `json:"after"`
	Before time.Time `json:"before"`
}

// -----------------------------------------------------------------------------

func (w MFetchWindow) IsEmpty() bool {
	return !w.After.Before(w.Before)
}

// -----------------------------------------------------------------------------

// Span returns the window duration, zero for empty windows.
func (w MFetchWindow) Span() time.Duration {
	if w.IsEmpty() {
		return 0
	}
	return w.Before.Sub(w.After)
}

// -----------------------------------------------------------------------------

// MStoredExtent is the first-to-last coverage of existing data for one
// (watershed, product) pair. It is derived from a catalog scan and does not
// account for gaps between the first and last record.
type MStoredExtent struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// -----------------------------------------------------------------------------

// Contains reports whether the extent fully covers the window.
func (e *MStoredExtent) Contains(w MFetchWindow) bool {
	return !e.Start.After(w.After) && !w.Before.After(e.End)
}
