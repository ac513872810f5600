package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// -----------------------------------------------------------------------------
// MFlexTime accepts both provider timestamp encodings: RFC3339 strings and
// integer epoch seconds.
// -----------------------------------------------------------------------------

type MFlexTime struct {
	time.Time
}

// -----------------------------------------------------------------------------

func (t *MFlexTime) UnmarshalJSON(data []byte) error {
	// Try integer epoch seconds first
	var epoch int64
	if err := json.Unmarshal(data, &epoch); err == nil {
		t.Time = time.Unix(epoch, 0).UTC()
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp is neither integer nor string: %s", string(data))
	}

	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		// Second-precision form without offset designator variants
		parsed, err = time.Parse(ISOFormat, s)
		if err != nil {
			return fmt.Errorf("unparseable timestamp %q", s)
		}
	}
	t.Time = parsed.UTC()
	return nil
}

// -----------------------------------------------------------------------------

func (t MFlexTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.UTC().Format(ISOFormat))
}

// -----------------------------------------------------------------------------
// MSiteRecord is one fetched series for a site/parameter combination, exactly
// as the provider frames it on the record stream.
// -----------------------------------------------------------------------------

type MSiteRecord struct {
	Code       string      `json:"code"`
	SiteNumber string      `json:"site_number"`
	Name       string      `json:"name"`
	Times      []MFlexTime `json:"times"`
	Values     []float64   `json:"values"`
}

// -----------------------------------------------------------------------------

// TimeSlice returns the record timestamps as plain time values.
func (r *MSiteRecord) TimeSlice() []time.Time {
	out := make([]time.Time, len(r.Times))
	for i, t := range r.Times {
		out[i] = t.Time
	}
	return out
}
