package interfaces

import "watershed-sync/src/models"

// -----------------------------------------------------------------------------
// IDataExchanger defining the interface for sharing run activity with
// external systems (Server/Push).
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	// -----------------------------------------------------------------------------
	// PublishEvent pushes a single run event to external listeners.
	PublishEvent(event models.MProgressEvent)

	// -----------------------------------------------------------------------------
	// PublishSummary pushes the final result of a run and retains it as state.
	PublishSummary(summary models.MRunSummary)

	// -----------------------------------------------------------------------------
	// Start the server
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop() error
}
