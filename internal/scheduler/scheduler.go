// Package scheduler drives the periodic reconciliation of schedule items,
// engagement statuses, course statuses and reminders.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mentora-api/internal/civiltime"
	"github.com/noah-isme/mentora-api/internal/models"
	"github.com/noah-isme/mentora-api/internal/observability"
	"github.com/noah-isme/mentora-api/internal/repository"
	"github.com/noah-isme/mentora-api/internal/service"
)

// Job names a unit of periodic work.
type Job string

const (
	// JobReconcile advances items by time and re-evaluates engagements and courses.
	JobReconcile Job = "reconcile"
	// JobReminders sends due "starting soon" reminders.
	JobReminders Job = "reminders"
	// JobBoundary unlocks items when the civil date changes.
	JobBoundary Job = "boundary"
)

const defaultQueueSize = 8

// Config controls tick intervals.
type Config struct {
	ReconcileInterval time.Duration
	ReminderInterval  time.Duration
	BoundaryInterval  time.Duration
	// MeetingDuration bounds the boundary unlock to meetings that have not ended.
	MeetingDuration time.Duration
	QueueSize       int
}

// Deps are the collaborators the jobs call into.
type Deps struct {
	Engagements repository.EngagementRepository
	Items       repository.ScheduleItemRepository
	Reconciler  service.ScheduleReconciler
	Evaluator   service.EngagementStatusEvaluator
	Courses     service.CourseStatusService
	Reminders   service.ReminderService
	Zone        *civiltime.Zone
}

// Scheduler turns cron ticks into jobs consumed by a single worker, so two
// sweeps never run concurrently inside one process.
type Scheduler struct {
	deps   Deps
	cfg    Config
	cron   *cron.Cron
	jobs   chan Job
	logger zerolog.Logger

	mu       sync.Mutex
	lastDate string
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	running  bool
}

// New constructs a scheduler. Non-positive intervals take their defaults.
func New(deps Deps, cfg Config, logger zerolog.Logger) *Scheduler {
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = 5 * time.Minute
	}
	if cfg.ReminderInterval <= 0 {
		cfg.ReminderInterval = 10 * time.Minute
	}
	if cfg.BoundaryInterval <= 0 {
		cfg.BoundaryInterval = time.Minute
	}
	if cfg.MeetingDuration <= 0 {
		cfg.MeetingDuration = time.Hour
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}

	return &Scheduler{
		deps:   deps,
		cfg:    cfg,
		jobs:   make(chan Job, cfg.QueueSize),
		logger: logger.With().Str("component", "scheduler").Logger(),
	}
}

// newCron builds a fresh cron with the tick entries registered. A stopped
// cron keeps its entries, so every Start gets its own instance.
func (s *Scheduler) newCron(entries []tickEntry) (*cron.Cron, error) {
	c := cron.New(
		cron.WithLocation(s.deps.Zone.Location()),
		cron.WithChain(cron.Recover(cronLogger{logger: s.logger})),
	)
	for _, entry := range entries {
		job := entry.job
		if _, err := c.AddFunc(fmt.Sprintf("@every %s", entry.interval), func() { s.Trigger(job) }); err != nil {
			return nil, fmt.Errorf("schedule %s job: %w", job, err)
		}
	}
	return c, nil
}

type tickEntry struct {
	job      Job
	interval time.Duration
}

// Start launches the worker, runs every job once and starts the cron ticks.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	entries := []tickEntry{
		{JobBoundary, s.cfg.BoundaryInterval},
		{JobReconcile, s.cfg.ReconcileInterval},
		{JobReminders, s.cfg.ReminderInterval},
	}
	ticker, err := s.newCron(entries)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	workerCtx, cancel := context.WithCancel(ctx)
	s.cron = ticker
	s.cancel = cancel
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.work(workerCtx)

	for _, entry := range entries {
		s.Trigger(entry.job)
	}
	ticker.Start()

	s.logger.Info().
		Dur("reconcile_interval", s.cfg.ReconcileInterval).
		Dur("reminder_interval", s.cfg.ReminderInterval).
		Dur("boundary_interval", s.cfg.BoundaryInterval).
		Str("timezone", s.deps.Zone.Location().String()).
		Msg("scheduler started")
	return nil
}

// Stop halts the cron ticks and waits for the worker to finish its current job.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	ticker := s.cron
	s.mu.Unlock()

	<-ticker.Stop().Done()
	cancel()
	s.wg.Wait()
	s.logger.Info().Msg("scheduler stopped")
}

// Trigger enqueues a job without blocking. A full queue drops the tick.
func (s *Scheduler) Trigger(job Job) bool {
	select {
	case s.jobs <- job:
		return true
	default:
		s.logger.Warn().Str("job", string(job)).Msg("job queue full, tick dropped")
		return false
	}
}

func (s *Scheduler) work(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.jobs:
			if err := s.Run(ctx, job); err != nil {
				s.logger.Error().Err(err).Str("job", string(job)).Msg("job failed")
			}
		}
	}
}

// Run executes one job inline.
func (s *Scheduler) Run(ctx context.Context, job Job) error {
	started := time.Now()
	observability.SweepRuns().WithLabelValues(string(job)).Inc()
	defer func() {
		observability.SweepDuration().WithLabelValues(string(job)).Observe(time.Since(started).Seconds())
	}()

	var err error
	switch job {
	case JobReconcile:
		err = s.reconcile(ctx)
	case JobReminders:
		if s.deps.Reminders != nil {
			_, err = s.deps.Reminders.SendDue(ctx)
		}
	case JobBoundary:
		_, err = s.checkBoundary(ctx)
	default:
		err = fmt.Errorf("unknown job %q", job)
	}
	if err != nil {
		observability.SweepFailures().WithLabelValues(string(job)).Inc()
	}
	return err
}

// reconcile walks every paid engagement. One engagement failing never stops
// the sweep; it is retried on the next tick.
func (s *Scheduler) reconcile(ctx context.Context) error {
	engagements, err := s.deps.Engagements.ListByStatus(ctx, models.EngagementStatusActive, models.EngagementStatusCompleted)
	if err != nil {
		return err
	}

	seen := make(map[models.CourseKey]struct{}, len(engagements))
	failed := 0
	for _, engagement := range engagements {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if _, err := s.deps.Reconciler.Reconcile(ctx, engagement.ID); err != nil {
			failed++
			s.logger.Error().Err(err).Uint("engagement_id", engagement.ID).Msg("schedule reconciliation failed")
			continue
		}
		if _, err := s.deps.Evaluator.Evaluate(ctx, engagement.ID); err != nil {
			failed++
			s.logger.Error().Err(err).Uint("engagement_id", engagement.ID).Msg("engagement evaluation failed")
			continue
		}

		key := engagement.Triple()
		if _, done := seen[key]; done || s.deps.Courses == nil {
			continue
		}
		seen[key] = struct{}{}
		if _, err := s.deps.Courses.Recalculate(ctx, key); err != nil {
			failed++
			s.logger.Error().Err(err).Uint("engagement_id", engagement.ID).Msg("course status recalculation failed")
		}
	}

	if failed > 0 {
		observability.SweepFailures().WithLabelValues(string(JobReconcile)).Add(float64(failed))
	}
	s.logger.Debug().Int("engagements", len(engagements)).Int("failed", failed).Msg("reconciliation sweep finished")
	return nil
}

// checkBoundary unlocks today's items the first time it observes a new civil
// date and reports whether a boundary was crossed. Items whose meeting already
// ended stay locked and a reconcile is queued to complete them.
func (s *Scheduler) checkBoundary(ctx context.Context) (bool, error) {
	now := s.deps.Zone.Now()
	today := s.deps.Zone.DateOf(now)

	s.mu.Lock()
	previous := s.lastDate
	s.mu.Unlock()
	if previous == today {
		return false, nil
	}

	startsAfter := ""
	if endedBefore := now.Add(-s.cfg.MeetingDuration); s.deps.Zone.DateOf(endedBefore) == today {
		startsAfter = s.deps.Zone.ClockOf(endedBefore)
	}

	unlocked, err := s.deps.Items.UnlockForDate(ctx, today, startsAfter)
	if err != nil {
		return false, err
	}
	if unlocked > 0 {
		observability.ScheduleTransitions().WithLabelValues(string(models.ScheduleItemStatusUpcoming), "boundary").Add(float64(unlocked))
	}

	stale, err := s.deps.Items.CountStaleBefore(ctx, today)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	s.lastDate = today
	s.mu.Unlock()

	event := s.logger.Info()
	if stale > 0 {
		event = s.logger.Warn()
	}
	event.Str("previous_date", previous).
		Str("date", today).
		Int64("unlocked", unlocked).
		Int64("stale_items", stale).
		Msg("civil date boundary crossed")

	s.Trigger(JobReconcile)
	return true, nil
}

// cronLogger routes cron's own messages through zerolog.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
