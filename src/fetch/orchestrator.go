package fetch

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"watershed-sync/src/helpers"
	"watershed-sync/src/interfaces"
	"watershed-sync/src/logger"
	"watershed-sync/src/models"
	"watershed-sync/src/stream"
)

// -----------------------------------------------------------------------------
// Orchestrator drives one fetch worker per run: it launches the process,
// hands it the request, relays its diagnostics as events while it runs, and
// resolves the outcome from the exit state. The two run modes differ only
// in what happens to the worker's output channel.
// -----------------------------------------------------------------------------

type WorkerFactory func() interfaces.IFetchWorker

type EventFunc func(models.MProgressEvent)

type RecordSink func(*models.MSiteRecord) error

// -----------------------------------------------------------------------------

var progressPattern = regexp.MustCompile(`Progress:\s*(\d+)`)

const statusInitiated = "Status: INITIATED"

// Site inventory dumps can push a single diagnostic line well past bufio's
// default 64KB token limit.
const maxDiagnosticLine = 1 << 20

// -----------------------------------------------------------------------------

type Orchestrator struct {
	factory WorkerFactory
	log     *logger.Logger
}

// -----------------------------------------------------------------------------

func NewOrchestrator(factory WorkerFactory, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		factory: factory,
		log:     log,
	}
}

// -----------------------------------------------------------------------------

// RunArtifact executes a grid request. The worker writes records to an
// artifact file on disk and reports its location on the output channel as
// an id::path pair. Returns the artifact path.
func (o *Orchestrator) RunArtifact(ctx context.Context, req *models.MWorkerRequest, onEvent EventFunc) (string, error) {
	onEvent = ensureEventFunc(onEvent)

	var raw string
	err := o.run(ctx, req, onEvent, func(r io.Reader) error {
		b, readErr := io.ReadAll(r)
		raw = string(b)
		if readErr != nil {
			return helpers.NewProviderError("cannot read fetch worker output", readErr)
		}
		return nil
	})
	if err != nil {
		onEvent(failedEvent(err))
		return "", err
	}

	path, err := parseArtifactReference(raw)
	if err != nil {
		onEvent(failedEvent(err))
		return "", err
	}
	onEvent(completedEvent())
	return path, nil
}

// -----------------------------------------------------------------------------

// RunStream executes an extract request. The worker streams records on its
// output channel and each one is decoded and handed to the sink while the
// worker is still running.
func (o *Orchestrator) RunStream(ctx context.Context, req *models.MWorkerRequest, onEvent EventFunc, sink RecordSink) error {
	onEvent = ensureEventFunc(onEvent)

	scanner := stream.NewRecordScanner(sink)
	err := o.run(ctx, req, onEvent, func(r io.Reader) error {
		buf := make([]byte, 4096)
		for {
			n, readErr := r.Read(buf)
			if n > 0 {
				if feedErr := scanner.Feed(buf[:n]); feedErr != nil {
					// Keep draining so the worker never blocks on a full pipe.
					io.Copy(io.Discard, r)
					return feedErr
				}
			}
			if readErr == io.EOF {
				return scanner.Close()
			}
			if readErr != nil {
				return helpers.NewProviderError("cannot read fetch worker output", readErr)
			}
		}
	})
	if err != nil {
		onEvent(failedEvent(err))
		return err
	}
	onEvent(completedEvent())
	return nil
}

// -----------------------------------------------------------------------------

// run owns the worker lifecycle common to both modes. Pipe readers must
// finish before Wait reaps the process, so the goroutines are joined first.
func (o *Orchestrator) run(ctx context.Context, req *models.MWorkerRequest, onEvent EventFunc, consumeOutput func(io.Reader) error) error {
	timeout := time.Duration(req.Timeout) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := json.Marshal(req)
	if err != nil {
		return helpers.NewConfigurationError("cannot serialize worker request", err)
	}

	worker := o.factory()
	if err := worker.Start(runCtx); err != nil {
		return err
	}
	o.log.Debug("Fetch worker started in %s mode, timeout %s", req.Subcommand, timeout)
	onEvent(startedEvent(req.Subcommand))

	if err := worker.WriteRequest(payload); err != nil {
		worker.Terminate()
		worker.Wait()
		return err
	}

	var wg sync.WaitGroup
	var diag strings.Builder
	var outErr error
	var diagErr error

	// 1. Relay diagnostic lines as they arrive
	wg.Add(1)
	go func() {
		defer wg.Done()
		source := worker.Diagnostics()
		lines := bufio.NewScanner(source)
		lines.Buffer(make([]byte, 0, 64*1024), maxDiagnosticLine)
		for lines.Scan() {
			line := lines.Text()
			diag.WriteString(line)
			diag.WriteByte('\n')
			classifyDiagnosticLine(line, onEvent)
		}
		diagErr = lines.Err()
		if diagErr != nil {
			// Keep draining so the worker never blocks on a full pipe.
			io.Copy(io.Discard, source)
		}
	}()

	// 2. Consume the output channel per run mode
	wg.Add(1)
	go func() {
		defer wg.Done()
		outErr = consumeOutput(worker.Output())
	}()

	// 3. Kill the worker if the deadline passes before it finishes
	watchdogDone := make(chan struct{})
	go func() {
		select {
		case <-runCtx.Done():
			worker.Terminate()
		case <-watchdogDone:
		}
	}()

	wg.Wait()
	waitErr := worker.Wait()
	close(watchdogDone)

	// 4. Resolve the outcome
	if runCtx.Err() == context.DeadlineExceeded {
		return helpers.NewTimeoutError(
			fmt.Sprintf("fetch worker exceeded its %s deadline", timeout), runCtx.Err())
	}
	if runCtx.Err() != nil {
		return helpers.NewProviderError("fetch worker cancelled", runCtx.Err())
	}
	if msg, found := diagnosticsFailure(diag.String()); found {
		return helpers.NewProviderError(msg, nil)
	}
	if diagErr != nil {
		// Truncated diagnostics may hide an error marker.
		return helpers.NewProviderError("cannot read fetch worker diagnostics", diagErr)
	}
	if waitErr != nil {
		return helpers.NewProviderError("fetch worker exited abnormally", waitErr)
	}
	return outErr
}

// -----------------------------------------------------------------------------

// classifyDiagnosticLine turns one diagnostic line into an event. Progress
// markers become progress events, the initiation marker is dropped and
// everything else passes through as a log event.
func classifyDiagnosticLine(line string, onEvent EventFunc) {
	if m := progressPattern.FindStringSubmatch(line); m != nil {
		percent, err := strconv.Atoi(m[1])
		if err == nil {
			onEvent(models.ProgressEvent(percent))
			return
		}
	}
	if strings.Contains(line, statusInitiated) {
		return
	}
	onEvent(models.LogEvent(line))
}

// -----------------------------------------------------------------------------

// diagnosticsFailure checks the accumulated diagnostics for a reported
// failure. The worker flags failures with the literal lowercase marker
// "error" and formats them as context::context::message, so the text after
// the last separator is the human readable part. Case variants ("Errors")
// are ordinary progress chatter, not failures.
func diagnosticsFailure(diagnostics string) (string, bool) {
	if !strings.Contains(diagnostics, "error") {
		return "", false
	}
	parts := strings.Split(strings.TrimSpace(diagnostics), "::")
	return strings.TrimSpace(parts[len(parts)-1]), true
}

// -----------------------------------------------------------------------------

func parseArtifactReference(raw string) (string, error) {
	parts := strings.Split(strings.TrimSpace(raw), "::")
	if len(parts) != 2 || strings.TrimSpace(parts[1]) == "" {
		return "", helpers.NewProviderError("fetch worker output is missing the artifact reference", nil)
	}
	return strings.TrimSpace(parts[1]), nil
}

// -----------------------------------------------------------------------------

func ensureEventFunc(onEvent EventFunc) EventFunc {
	if onEvent == nil {
		return func(models.MProgressEvent) {}
	}
	return onEvent
}

// -----------------------------------------------------------------------------

func startedEvent(mode string) models.MProgressEvent {
	return models.MProgressEvent{
		Kind:    models.EventStarted,
		Message: fmt.Sprintf("fetch worker started in %s mode", mode),
		At:      time.Now().UTC(),
	}
}

func completedEvent() models.MProgressEvent {
	return models.MProgressEvent{
		Kind: models.EventCompleted,
		At:   time.Now().UTC(),
	}
}

func failedEvent(err error) models.MProgressEvent {
	return models.MProgressEvent{
		Kind:    models.EventFailed,
		Message: err.Error(),
		At:      time.Now().UTC(),
	}
}
