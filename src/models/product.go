package models

import "time"

// MProduct represents one provider data feed. A product with a recorded
// forecast version is a versioned snapshot and is never treated as already
// covered by the local store; observed products are append-only streams.
type MProduct struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Slug                string     `json:"slug"`
	StoreVersion        string     `json:"dss_fpart"`
	LastForecastVersion *time.Time `json:"last_forecast_version"`
}

// -----------------------------------------------------------------------------

func (p *MProduct) IsForecast() bool {
	return p.LastForecastVersion != nil
}

// -----------------------------------------------------------------------------

// MWatershed identifies a named hydrologic study area.
type MWatershed struct {
	ID           string `json:"id"`
	OfficeSymbol string `json:"office_symbol"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
}
