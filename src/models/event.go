package models

import "time"

// -----------------------------------------------------------------------------
// Progress event kinds
// -----------------------------------------------------------------------------

const (
	EventLog       = "log"
	EventProgress  = "progress"
	EventStarted   = "started"
	EventCompleted = "completed"
	EventFailed    = "failed"
)

// -----------------------------------------------------------------------------

// MProgressEvent is one normalized status update from a fetch run, delivered
// in arrival order while the worker is still running.
type MProgressEvent struct {
	Kind    string    `json:"kind"`
	Message string    `json:"message,omitempty"`
	Percent int       `json:"percent,omitempty"`
	RunID   string    `json:"run_id,omitempty"`
	At      time.Time `json:"at"`
}

// -----------------------------------------------------------------------------

func LogEvent(msg string) MProgressEvent {
	return MProgressEvent{Kind: EventLog, Message: msg, At: time.Now().UTC()}
}

func ProgressEvent(percent int) MProgressEvent {
	return MProgressEvent{Kind: EventProgress, Percent: percent, At: time.Now().UTC()}
}
