package models

// -----------------------------------------------------------------------------
// Monitor hub payloads
// -----------------------------------------------------------------------------

// MHubMessage is the frame pushed to websocket clients. New clients get an
// INITIAL frame carrying the recent event snapshot; after that they receive
// EVENT and SUMMARY frames as the run produces them.
type MHubMessage struct {
	Type      string           `json:"type"` // "INITIAL", "EVENT" or "SUMMARY"
	Event     *MProgressEvent  `json:"event,omitempty"`
	Events    []MProgressEvent `json:"events,omitempty"`
	Summary   *MRunSummary     `json:"summary,omitempty"`
	Timestamp int64            `json:"timestamp"`
}

// -----------------------------------------------------------------------------

// MStatusSnapshot is the REST status view.
type MStatusSnapshot struct {
	Running     bool             `json:"running"`
	CurrentRun  string           `json:"current_run,omitempty"`
	Events      []MProgressEvent `json:"events"`
	LastSummary *MRunSummary     `json:"last_summary,omitempty"`
}

// -----------------------------------------------------------------------------

// MClientCommand is the only upstream message websocket clients send.
type MClientCommand struct {
	Command string `json:"command"`
}
