package interfaces

import (
	"time"

	"watershed-sync/src/models"
)

// -----------------------------------------------------------------------------
// IDatabase defines the contract for time series storage operations.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// PutSeries writes a regularized series under its pathname.
	// Existing points at the same timestamp are overwritten.
	PutSeries(series *models.MRegularSeries) error

	// -----------------------------------------------------------------------------

	// GetSeries reads back the full series stored under a pathname.
	GetSeries(pathname string) (*models.MRegularSeries, error)

	// -----------------------------------------------------------------------------

	// Catalog lists the pathnames matching a site label (B part) and
	// version label (F part). Other parts are not constrained.
	Catalog(bPart string, fPart string) ([]string, error)

	// -----------------------------------------------------------------------------

	// Extent returns the earliest start and latest end across every
	// catalog entry matching the labels, or nil when nothing matches.
	// Interior gaps are invisible to this summary.
	Extent(bPart string, fPart string) (*models.MStoredExtent, error)

	// -----------------------------------------------------------------------------

	// PutCoverage records that gridded data for a pathname covers a range,
	// without storing the points themselves (the artifact file holds those).
	PutCoverage(pathname string, start time.Time, end time.Time) error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
