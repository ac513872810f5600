package ingest

import (
	"fmt"

	"watershed-sync/src/interfaces"
	"watershed-sync/src/logger"
	"watershed-sync/src/models"
	"watershed-sync/src/series"
)

// -----------------------------------------------------------------------------
// Ingester saves decoded site records one at a time. A record that cannot
// be saved never stops the ones behind it: every record leaves the loop
// with an outcome, and only the upstream stream failing can cut a run short.
// -----------------------------------------------------------------------------

type Ingester struct {
	regularizer *series.Regularizer
	store       interfaces.IDatabase
	log         *logger.Logger
}

// -----------------------------------------------------------------------------

func NewIngester(regularizer *series.Regularizer, store interfaces.IDatabase, log *logger.Logger) *Ingester {
	return &Ingester{
		regularizer: regularizer,
		store:       store,
		log:         log,
	}
}

// -----------------------------------------------------------------------------

// Ingest drains the record channel until it closes and returns one outcome
// per record, in arrival order.
func (in *Ingester) Ingest(records <-chan *models.MSiteRecord) []models.MIngestOutcome {
	var outcomes []models.MIngestOutcome
	for rec := range records {
		outcomes = append(outcomes, in.ingestOne(rec))
	}
	return outcomes
}

// -----------------------------------------------------------------------------

func (in *Ingester) ingestOne(rec *models.MSiteRecord) models.MIngestOutcome {
	spec, known := series.LookupParameter(rec.Code)
	if !known {
		in.log.Debug("Skipping site %s, parameter code %s is not mapped", rec.SiteNumber, rec.Code)
		return models.MIngestOutcome{
			SiteNumber: rec.SiteNumber,
			Status:     models.OutcomeSkipped,
			Reason:     fmt.Sprintf("unknown parameter code %s", rec.Code),
		}
	}

	regular, err := in.regularizer.Regularize(rec, spec)
	if err != nil {
		in.log.Warning("Site %s not saved: %v", rec.SiteNumber, err)
		return models.MIngestOutcome{
			SiteNumber: rec.SiteNumber,
			Status:     models.OutcomeFailed,
			Reason:     err.Error(),
		}
	}

	if err := in.store.PutSeries(regular); err != nil {
		in.log.Warning("Site %s not saved: %v", rec.SiteNumber, err)
		return models.MIngestOutcome{
			SiteNumber: rec.SiteNumber,
			Status:     models.OutcomeFailed,
			Reason:     err.Error(),
		}
	}

	in.log.Debug("Saved %s (%d points)", regular.Pathname, len(regular.Times))
	return models.MIngestOutcome{
		SiteNumber: rec.SiteNumber,
		Status:     models.OutcomeOk,
	}
}
