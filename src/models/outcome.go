package models

import "time"

// -----------------------------------------------------------------------------
// Per-record ingestion outcomes
// -----------------------------------------------------------------------------

const (
	OutcomeOk      = "ok"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// MIngestOutcome records how one site record fared. Failures here are local
// to the record and never abort the run.
type MIngestOutcome struct {
	SiteNumber string `json:"site_number"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
}

// -----------------------------------------------------------------------------

// MRunSummary is the caller-facing result of one sync run: either a run-level
// failure, or the outcome list with an overall success flag.
type MRunSummary struct {
	RunID        string           `json:"run_id"`
	Job          string           `json:"job"`
	Watershed    string           `json:"watershed"`
	Mode         string           `json:"mode"`
	After        time.Time        `json:"after"`
	Before       time.Time        `json:"before"`
	StartedAt    time.Time        `json:"started_at"`
	FinishedAt   time.Time        `json:"finished_at"`
	Outcomes     []MIngestOutcome `json:"outcomes"`
	Saved        int              `json:"saved"`
	Total        int              `json:"total"`
	Success      bool             `json:"success"`
	Error        string           `json:"error,omitempty"`
	ArtifactPath string           `json:"artifact_path,omitempty"`
}

// -----------------------------------------------------------------------------

// CountOutcomes fills Saved and Total from the outcome list.
func (s *MRunSummary) CountOutcomes() {
	s.Total = len(s.Outcomes)
	s.Saved = 0
	for _, o := range s.Outcomes {
		if o.Status == OutcomeOk {
			s.Saved++
		}
	}
}
