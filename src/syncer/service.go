package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"watershed-sync/src/helpers"
	"watershed-sync/src/logger"
	"watershed-sync/src/models"
)

// -----------------------------------------------------------------------------
// Service owns the configured jobs: it schedules periodic runs in watch mode
// and serializes them against the shared store. Every job writes through the
// one store handle the process holds, so at most one run may be in flight at
// a time regardless of which job asks. Overlapping ticks are skipped, never
// queued; the skipped job catches up on its next tick because each run
// re-derives its window from the lookback and trims what is already stored.
// -----------------------------------------------------------------------------

const (
	defaultScheduleMinutes = 60
	defaultLookbackHours   = 24
)

type Service struct {
	Config *models.MConfig
	Runner *Runner
	Logger *logger.Logger

	scheduler *gocron.Scheduler
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	mutex     sync.Mutex
	busy      bool
	activeJob string
	stopped   bool
}

// -----------------------------------------------------------------------------

func NewService(cfg *models.MConfig, runner *Runner, log *logger.Logger) *Service {
	return &Service{
		Config:    cfg,
		Runner:    runner,
		Logger:    log,
		scheduler: gocron.NewScheduler(time.UTC),
	}
}

// -----------------------------------------------------------------------------

// Start schedules every configured job and launches the scheduler. Runs
// triggered by ticks inherit the parent context, so cancelling it aborts
// any in-flight worker.
func (s *Service) Start(parent context.Context) error {
	s.ctx, s.cancel = context.WithCancel(parent)

	for i := range s.Config.Jobs {
		job := s.Config.Jobs[i]
		minutes := job.ScheduleMinutes
		if minutes <= 0 {
			minutes = defaultScheduleMinutes
		}
		name := job.Name
		if _, err := s.scheduler.Every(minutes).Minutes().Do(func() { s.tick(name) }); err != nil {
			return helpers.NewConfigurationError(fmt.Sprintf("cannot schedule job %s", name), err)
		}
		s.Logger.Info("Scheduled job %s every %d minutes", name, minutes)
	}
	if len(s.Config.Jobs) == 0 {
		s.Logger.Warning("No jobs configured, scheduler is idle")
	}

	s.scheduler.StartAsync()
	return nil
}

// -----------------------------------------------------------------------------

// Stop refuses new runs, halts the tickers, aborts any in-flight run and
// waits for it to settle. After Stop returns no run can touch the store or
// publish another event.
func (s *Service) Stop() {
	s.mutex.Lock()
	s.stopped = true
	s.mutex.Unlock()

	s.scheduler.Stop()
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.Logger.Info("Sync service stopped")
}

// -----------------------------------------------------------------------------

// RunJob executes one named job immediately. It returns an error without
// running when the job is unknown, the service is stopped, or another run
// already holds the store.
func (s *Service) RunJob(ctx context.Context, name string) (*models.MRunSummary, error) {
	job, err := s.jobByName(name)
	if err != nil {
		return nil, err
	}

	if err := s.acquireStore(job.Name); err != nil {
		return nil, err
	}
	defer s.releaseStore()

	return s.Runner.Run(ctx, s.buildRequest(job)), nil
}

// -----------------------------------------------------------------------------

// acquireStore claims the single run slot. The slot is store-wide, not
// per-job: two jobs writing the same store file must never overlap. The
// WaitGroup registration happens under the same lock as the stopped check,
// so Stop cannot pass wg.Wait while a claim is in progress.
func (s *Service) acquireStore(jobName string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.stopped {
		return helpers.NewConfigurationError("sync service is stopped", nil)
	}
	if s.busy {
		return helpers.NewConfigurationError(
			fmt.Sprintf("store is busy: job %s is already running", s.activeJob), nil)
	}
	s.busy = true
	s.activeJob = jobName
	s.wg.Add(1)
	return nil
}

func (s *Service) releaseStore() {
	s.mutex.Lock()
	s.busy = false
	s.activeJob = ""
	s.mutex.Unlock()
	s.wg.Done()
}

// -----------------------------------------------------------------------------

func (s *Service) tick(name string) {
	summary, err := s.RunJob(s.ctx, name)
	if err != nil {
		s.Logger.Warning("Job %s skipped: %v", name, err)
		return
	}
	if !summary.Success {
		s.Logger.Error("Job %s failed: %s", name, summary.Error)
	}
}

// -----------------------------------------------------------------------------

func (s *Service) jobByName(name string) (*models.MJobConfig, error) {
	for i := range s.Config.Jobs {
		if s.Config.Jobs[i].Name == name {
			return &s.Config.Jobs[i], nil
		}
	}
	return nil, helpers.NewConfigurationError(fmt.Sprintf("unknown job %s", name), nil)
}

// -----------------------------------------------------------------------------

// buildRequest derives the per-run window from the job's lookback, anchored
// at the current minute so repeated runs line up against stored coverage.
func (s *Service) buildRequest(job *models.MJobConfig) *models.MRunRequest {
	lookback := job.LookbackHours
	if lookback <= 0 {
		lookback = defaultLookbackHours
	}

	now := time.Now().UTC().Truncate(time.Minute)
	return &models.MRunRequest{
		Job:         job.Name,
		Mode:        job.Mode,
		WatershedID: job.WatershedID,
		ProductIDs:  job.ProductIDs,
		After:       now.Add(-time.Duration(lookback) * time.Hour),
		Before:      now,
	}
}
