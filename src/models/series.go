package models

import "time"

// MRegularSeries is a site record after regularization: evenly spaced
// timestamps on the detected interval grid, plus the derived store metadata.
// It exists only between the regularizer and the store write.
type MRegularSeries struct {
	SiteNumber      string      `json:"site_number"`
	SiteName        string      `json:"site_name"`
	Code            string      `json:"code"`
	Parameter       string      `json:"parameter"`
	Unit            string      `json:"unit"`
	DataType        string      `json:"data_type"`
	Version         string      `json:"version"`
	IntervalMinutes int         `json:"interval_minutes"`
	IntervalCode    string      `json:"interval_code"`
	Pathname        string      `json:"pathname"`
	Times           []time.Time `json:"times"`
	Values          []float64   `json:"values"`
}

// -----------------------------------------------------------------------------

func (s *MRegularSeries) Start() time.Time {
	if len(s.Times) == 0 {
		return time.Time{}
	}
	return s.Times[0]
}

// -----------------------------------------------------------------------------

func (s *MRegularSeries) End() time.Time {
	if len(s.Times) == 0 {
		return time.Time{}
	}
	return s.Times[len(s.Times)-1]
}
