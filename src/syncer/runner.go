package syncer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"watershed-sync/src/fetch"
	"watershed-sync/src/helpers"
	"watershed-sync/src/ingest"
	"watershed-sync/src/interfaces"
	"watershed-sync/src/logger"
	"watershed-sync/src/models"
	"watershed-sync/src/provider"
	"watershed-sync/src/series"
	"watershed-sync/src/window"
)

// -----------------------------------------------------------------------------
// Runner executes one sync run end to end: validate the request, trim the
// window against what the store already holds, drive the fetch worker, and
// land every record with a per-record outcome. Run always hands back a
// summary; run-level failures are carried inside it.
// -----------------------------------------------------------------------------

const (
	observedParameter = "OBSERVED"
	observedVersion   = "a2w"

	gridEndpoint = "deprecated/anonymous_downloads"
)

type Runner struct {
	Config       *models.MConfig
	Store        interfaces.IDatabase
	Catalog      *provider.Catalog
	Orchestrator *fetch.Orchestrator
	Ingester     *ingest.Ingester
	Exchanger    interfaces.IDataExchanger
	Logger       *logger.Logger

	validate *validator.Validate
}

// -----------------------------------------------------------------------------

func NewRunner(
	cfg *models.MConfig,
	store interfaces.IDatabase,
	catalog *provider.Catalog,
	orchestrator *fetch.Orchestrator,
	ingester *ingest.Ingester,
	exchanger interfaces.IDataExchanger,
	log *logger.Logger,
) *Runner {
	return &Runner{
		Config:       cfg,
		Store:        store,
		Catalog:      catalog,
		Orchestrator: orchestrator,
		Ingester:     ingester,
		Exchanger:    exchanger,
		Logger:       log,
		validate:     validator.New(),
	}
}

// -----------------------------------------------------------------------------

// Run performs one sync run. The request is immutable here, every derived
// value lives in locals and the returned summary.
func (r *Runner) Run(ctx context.Context, req *models.MRunRequest) *models.MRunSummary {
	runID := uuid.New().String()

	summary := &models.MRunSummary{
		RunID:     runID,
		Job:       req.Job,
		Mode:      req.Mode,
		After:     req.After,
		Before:    req.Before,
		StartedAt: time.Now().UTC(),
	}

	publish := func(event models.MProgressEvent) {
		event.RunID = runID
		if r.Exchanger != nil {
			r.Exchanger.PublishEvent(event)
		}
	}
	report := func(format string, args ...interface{}) {
		msg := fmt.Sprintf(format, args...)
		r.Logger.Info("%s", msg)
		publish(models.LogEvent(msg))
	}
	finish := func(err error) *models.MRunSummary {
		if err != nil {
			summary.Error = err.Error()
			r.Logger.Error("Run %s failed: %v", runID, err)
		} else {
			summary.Success = true
		}
		summary.FinishedAt = time.Now().UTC()
		if r.Exchanger != nil {
			r.Exchanger.PublishSummary(*summary)
		}
		return summary
	}

	// 1. Validate the request before anything is spawned
	if err := r.validate.Struct(req); err != nil {
		return finish(helpers.NewConfigurationError("invalid run request", err))
	}

	// 2. Resolve watershed and products from the provider catalog
	watershed, err := r.Catalog.WatershedByID(req.WatershedID)
	if err != nil {
		return finish(err)
	}
	summary.Watershed = watershed.Name

	products, err := r.jobProducts(req, watershed)
	if err != nil {
		return finish(err)
	}

	requested := req.Window()
	report("Requested time window: %s - %s", requested.After.Format(models.ISOFormat), requested.Before.Format(models.ISOFormat))

	// 3. Trim the window against the store
	report("Updating time window based on cached/existing data...")
	resolved, remaining, err := window.Resolve(requested, products, r.extentLookup(watershed))
	if err != nil {
		return finish(err)
	}

	if len(remaining) == 0 {
		report("All requested observed data has been previously downloaded.")
		report("No product downloads required.  Aborting...")
		return finish(nil)
	}

	if resolved.IsEmpty() {
		report("All requested observed data has been previously downloaded.")
		report("Removing observed products...")
		remaining = forecastsOnly(remaining)
		if len(remaining) == 0 {
			report("No product downloads required.  Aborting...")
			return finish(nil)
		}
		// Forecasts are always new data, fetch them over the full request.
		resolved = requested
	}

	if resolved != requested {
		report("Updated time window: %s - %s", resolved.After.Format(models.ISOFormat), resolved.Before.Format(models.ISOFormat))
	}

	// 4. Derive the worker deadline and freeze the request
	timeout := window.DeriveTimeout(resolved)
	report("Updated timeout value: %d seconds", int(timeout/time.Second))

	workerReq := &models.MWorkerRequest{
		Subcommand: req.Mode,
		ID:         watershed.ID,
		After:      resolved.After.Format(models.ISOFormat),
		Before:     resolved.Before.Format(models.ISOFormat),
		Timeout:    int(timeout / time.Second),
		StdOut:     true,
	}
	if req.Mode == models.ModeGrid {
		workerReq.Endpoint = gridEndpoint
		workerReq.Products = productIDs(remaining)
	} else {
		workerReq.Endpoint = r.Catalog.ExtractEndpoint(watershed)
	}

	// 5. Run the worker
	banner := strings.ToUpper(req.Mode)
	report("---BEGIN %s DOWNLOAD SUBROUTINE---", banner)

	var runErr error
	if req.Mode == models.ModeGrid {
		runErr = r.runGrid(ctx, workerReq, publish, watershed, remaining, resolved, summary)
	} else {
		runErr = r.runExtract(ctx, workerReq, publish, watershed, resolved, summary)
	}

	report("---%s DOWNLOAD SUBROUTINE COMPLETE---", banner)

	if runErr != nil {
		report("Program Error: %s", runErr.Error())
		return finish(runErr)
	}

	report("Download completed successfully.")
	if req.Mode == models.ModeExtract {
		report("%d of %d records saved", summary.Saved, summary.Total)
	}
	return finish(nil)
}

// -----------------------------------------------------------------------------

// runExtract streams records from the worker straight into the ingestion
// loop. Records that arrived before a stream failure keep their outcomes.
func (r *Runner) runExtract(
	ctx context.Context,
	workerReq *models.MWorkerRequest,
	publish fetch.EventFunc,
	watershed *models.MWatershed,
	resolved models.MFetchWindow,
	summary *models.MRunSummary,
) error {
	records := make(chan *models.MSiteRecord, 64)
	done := make(chan []models.MIngestOutcome, 1)

	go func() {
		done <- r.Ingester.Ingest(records)
	}()

	streamErr := r.Orchestrator.RunStream(ctx, workerReq, publish, func(rec *models.MSiteRecord) error {
		records <- rec
		return nil
	})
	close(records)

	summary.Outcomes = <-done
	summary.CountOutcomes()

	if streamErr != nil {
		return streamErr
	}

	// Remember the covered window so the next run can trim against it.
	pathname := coveragePathname(r.Config.Storage.Location, watershed.Name, observedParameter, resolved, observedVersion)
	if err := r.Store.PutCoverage(pathname, resolved.After, resolved.Before); err != nil {
		r.Logger.Warning("Coverage not recorded for %s: %v", pathname, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// runGrid collects the worker's artifact, files it under the artifact
// directory and records the covered range for every fetched product.
func (r *Runner) runGrid(
	ctx context.Context,
	workerReq *models.MWorkerRequest,
	publish fetch.EventFunc,
	watershed *models.MWatershed,
	products []models.MProduct,
	resolved models.MFetchWindow,
	summary *models.MRunSummary,
) error {
	artifact, err := r.Orchestrator.RunArtifact(ctx, workerReq, publish)
	if err != nil {
		return err
	}

	finalPath := artifact
	if dir := r.Config.Storage.ArtifactDir; dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return helpers.NewStoreWriteError(fmt.Sprintf("cannot create artifact directory %s", dir), err)
		}
		finalPath = filepath.Join(dir, filepath.Base(artifact))
		if err := os.Rename(artifact, finalPath); err != nil {
			return helpers.NewStoreWriteError(fmt.Sprintf("cannot move artifact to %s", finalPath), err)
		}
	}
	summary.ArtifactPath = finalPath

	for _, product := range products {
		pathname := coveragePathname(r.Config.Storage.Location, watershed.Name, product.Name, resolved, product.StoreVersion)
		if err := r.Store.PutCoverage(pathname, resolved.After, resolved.Before); err != nil {
			return err
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

// jobProducts maps the request onto catalog products. A grid request names
// its products; an extract request treats the watershed's observed data as
// a single observed product.
func (r *Runner) jobProducts(req *models.MRunRequest, watershed *models.MWatershed) ([]models.MProduct, error) {
	if req.Mode == models.ModeGrid {
		products := make([]models.MProduct, 0, len(req.ProductIDs))
		for _, id := range req.ProductIDs {
			product, err := r.Catalog.ProductByID(id)
			if err != nil {
				return nil, err
			}
			products = append(products, *product)
		}
		return products, nil
	}

	return []models.MProduct{{
		ID:           watershed.ID,
		Name:         watershed.Name,
		Slug:         watershed.Slug,
		StoreVersion: observedVersion,
	}}, nil
}

// -----------------------------------------------------------------------------

// extentLookup keys stored extents by watershed name and product version,
// which is how both grid coverage and extract coverage are labelled.
func (r *Runner) extentLookup(watershed *models.MWatershed) window.ExtentLookup {
	return func(product models.MProduct) (*models.MStoredExtent, error) {
		return r.Store.Extent(watershed.Name, product.StoreVersion)
	}
}

// -----------------------------------------------------------------------------

func forecastsOnly(products []models.MProduct) []models.MProduct {
	var forecasts []models.MProduct
	for _, p := range products {
		if p.IsForecast() {
			forecasts = append(forecasts, p)
		}
	}
	return forecasts
}

// -----------------------------------------------------------------------------

func productIDs(products []models.MProduct) []string {
	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	return ids
}

// -----------------------------------------------------------------------------

func coveragePathname(location string, bPart string, cPart string, w models.MFetchWindow, fPart string) string {
	dPart := series.FormatRangePart(w.After, w.Before)
	return strings.ToUpper(fmt.Sprintf("/%s/%s/%s/%s//%s/", location, bPart, cPart, dPart, fPart))
}
