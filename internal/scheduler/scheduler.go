package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/i474232898/site-analytics/internal/importer"
	"github.com/i474232898/site-analytics/internal/metrics"
	"github.com/i474232898/site-analytics/internal/store"
)

// SessionOracle tells whether a session still exists in the session store.
type SessionOracle interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Scheduler periodically evicts cached views of expired sessions and reports
// the cache size.
type Scheduler struct {
	scheduler *gocron.Scheduler
	cache     *store.SessionCache
	oracle    SessionOracle
	tracker   *importer.Tracker
	metrics   *metrics.Collector
	log       zerolog.Logger

	reconcileInterval time.Duration
	reportInterval    time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// Options configures a Scheduler.
type Options struct {
	Cache   *store.SessionCache
	Oracle  SessionOracle
	Tracker *importer.Tracker
	Metrics *metrics.Collector
	Log     zerolog.Logger

	ReconcileInterval time.Duration
	ReportInterval    time.Duration
}

// New creates a new Scheduler.
func New(opts Options) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler:         gocron.NewScheduler(time.UTC),
		cache:             opts.Cache,
		oracle:            opts.Oracle,
		tracker:           opts.Tracker,
		metrics:           opts.Metrics,
		log:               opts.Log.With().Str("component", "scheduler").Logger(),
		reconcileInterval: opts.ReconcileInterval,
		reportInterval:    opts.ReportInterval,
		ctx:               ctx,
		cancel:            cancel,
	}
}

// Start schedules the periodic jobs and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.reconcileInterval <= 0 {
		return fmt.Errorf("scheduler: reconcile interval must be positive, got %s", s.reconcileInterval)
	}

	_, err := s.scheduler.Every(s.reconcileInterval).WaitForSchedule().SingletonMode().Do(func() {
		s.Reconcile(s.ctx)
	})
	if err != nil {
		return fmt.Errorf("scheduler: schedule reconciliation: %w", err)
	}

	if s.reportInterval > 0 {
		_, err = s.scheduler.Every(s.reportInterval).SingletonMode().Do(s.Report)
		if err != nil {
			return fmt.Errorf("scheduler: schedule cache report: %w", err)
		}
	}

	s.scheduler.StartAsync()
	s.log.Info().
		Dur("reconcile_every", s.reconcileInterval).
		Dur("report_every", s.reportInterval).
		Msg("scheduler started")
	return nil
}

// Reconcile checks every cached session against the oracle and evicts the
// ones that are affirmatively gone. A failed check keeps the entry. It
// returns the evicted session ids.
func (s *Scheduler) Reconcile(ctx context.Context) []string {
	snap := s.cache.Snapshot()
	if len(snap.IDs) == 0 {
		return nil
	}

	var probeErrs *multierror.Error
	existing := make(map[string]struct{}, len(snap.IDs))
	for _, id := range snap.IDs {
		if ctx.Err() != nil {
			s.log.Debug().Msg("reconciliation canceled")
			return nil
		}
		ok, err := s.oracle.Exists(ctx, id)
		if err != nil {
			s.metrics.ProbeFailed()
			probeErrs = multierror.Append(probeErrs, fmt.Errorf("session %s: %w", id, err))
			existing[id] = struct{}{}
			continue
		}
		if ok {
			existing[id] = struct{}{}
		}
	}

	if err := probeErrs.ErrorOrNil(); err != nil {
		s.log.Warn().Err(err).Int("failed", probeErrs.Len()).Msg("session probes failed, keeping their cached views")
	}

	removed := s.cache.Reconcile(snap, existing)
	if len(removed) > 0 {
		s.tracker.Forget(removed...)
		s.metrics.Evicted(len(removed))
		s.log.Info().Strs("sessions", removed).Msg("evicted views of expired sessions")
	}
	s.metrics.CachedViews(s.cache.Len())
	return removed
}

// Report logs the number of cached views.
func (s *Scheduler) Report() {
	n := s.cache.Len()
	s.metrics.CachedViews(n)
	s.log.Debug().Int("views", n).Msg("session cache size")
}

// Stop cancels a running reconciliation and stops the scheduler.
func (s *Scheduler) Stop() {
	s.cancel()
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
