package models

import "time"

// -----------------------------------------------------------------------------
// Run request (validated before any worker spawn)
// -----------------------------------------------------------------------------

const (
	ModeExtract = "extract"
	ModeGrid    = "grid"
)

// MRunRequest is the immutable per-run input. It is built fresh for every run
// and threaded through the resolver and the orchestrator; nothing mutates it
// after validation.
type MRunRequest struct {
	Job         string    `json:"job"`
	Mode        string    `json:"mode" validate:"required,oneof=extract grid"`
	WatershedID string    `json:"watershed_id" validate:"required"`
	ProductIDs  []string  `json:"product_ids" validate:"required_if=Mode grid"`
	After       time.Time `json:"after" validate:"required"`
	Before      time.Time `json:"before" validate:"required,gtfield=After"`
}

// -----------------------------------------------------------------------------

func (r *MRunRequest) Window() MFetchWindow {
	return MFetchWindow{After: r.After, Before: r.Before}
}

// -----------------------------------------------------------------------------
// Worker request (wire form)
// -----------------------------------------------------------------------------

// MWorkerRequest is the flat object written once to the worker's input
// channel, followed by channel close. Field names are the worker's contract.
type MWorkerRequest struct {
	Subcommand string   `json:"Subcommand"`
	Endpoint   string   `json:"Endpoint"`
	ID         string   `json:"ID,omitempty"`
	Products   []string `json:"Products,omitempty"`
	After      string   `json:"After"`
	Before     string   `json:"Before"`
	Timeout    int      `json:"Timeout"`
	StdOut     bool     `json:"StdOut"`
}
