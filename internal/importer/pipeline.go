package importer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/i474232898/site-analytics/internal/enrich"
	"github.com/i474232898/site-analytics/internal/ingest"
	"github.com/i474232898/site-analytics/internal/metrics"
	"github.com/i474232898/site-analytics/internal/pagination"
	"github.com/i474232898/site-analytics/internal/statistics"
	"github.com/i474232898/site-analytics/internal/store"
	"github.com/i474232898/site-analytics/internal/weather"
)

// Pipeline runs imports: ingest, enrich, build the view, cache it under the
// session and notify subscribers. Steps run strictly in order; a failed step
// ends the import and leaves the cache untouched.
type Pipeline struct {
	ingestor *ingest.Ingestor
	enricher *enrich.Enricher
	cache    *store.SessionCache
	tracker  *Tracker
	hub      *Hub
	metrics  *metrics.Collector
	log      zerolog.Logger

	timeout time.Duration

	// ctx is the parent of every submitted import; cancel stops them all.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Deps are the collaborators of a Pipeline.
type Deps struct {
	Ingestor *ingest.Ingestor
	Enricher *enrich.Enricher
	Cache    *store.SessionCache
	Tracker  *Tracker
	Hub      *Hub
	Metrics  *metrics.Collector
	Log      zerolog.Logger

	// Timeout bounds one import; zero means no bound.
	Timeout time.Duration
}

func NewPipeline(d Deps) *Pipeline {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		ingestor: d.Ingestor,
		enricher: d.Enricher,
		cache:    d.Cache,
		tracker:  d.Tracker,
		hub:      d.Hub,
		metrics:  d.Metrics,
		log:      d.Log.With().Str("component", "importer").Logger(),
		timeout:  d.Timeout,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Submit registers an import of up for session and runs it in the
// background. It returns the job id.
func (p *Pipeline) Submit(session string, up ingest.Upload) string {
	jobID := uuid.NewString()
	p.tracker.Add(session, jobID, up.Filename)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ctx := p.ctx
		if p.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, p.timeout)
			defer cancel()
		}
		_, _ = p.run(ctx, session, jobID, up)
	}()
	return jobID
}

// Run imports up for session synchronously and returns the snapshot of the
// first page of the new view.
func (p *Pipeline) Run(ctx context.Context, session string, up ingest.Upload) (pagination.Snapshot, error) {
	jobID := uuid.NewString()
	p.tracker.Add(session, jobID, up.Filename)
	return p.run(ctx, session, jobID, up)
}

func (p *Pipeline) run(ctx context.Context, session, jobID string, up ingest.Upload) (pagination.Snapshot, error) {
	log := p.log.With().Str("session", session).Str("job", jobID).Str("file", up.Filename).Logger()
	log.Info().Msg("import started")
	p.tracker.Start(session, jobID)

	snap, ingested, err := p.steps(ctx, log, session, up)
	if err != nil {
		kind := failureKind(err)
		log.Error().Err(err).Str("kind", kind).Msg("import failed")
		p.tracker.Fail(session, jobID, err)
		p.metrics.ImportFinished(metrics.OutcomeFailed, kind)
		p.hub.Publish(Event{Type: EventImportFailed, Session: session, JobID: jobID, Error: err.Error()})
		return pagination.Snapshot{}, err
	}

	p.tracker.Succeed(session, jobID, ingested.Accepted, ingested.Dropped)
	p.metrics.ImportFinished(metrics.OutcomeSucceeded, "")
	p.metrics.CachedViews(p.cache.Len())
	n := p.hub.Publish(Event{Type: EventEnriched, Session: session, JobID: jobID, Snapshot: &snap})
	log.Info().Int("days", snap.TotalDays).Int("subscribers", n).Msg("import finished")
	return snap, nil
}

func (p *Pipeline) steps(ctx context.Context, log zerolog.Logger, session string, up ingest.Upload) (pagination.Snapshot, ingest.Result, error) {
	set := statistics.NewSet()

	ingested, err := p.ingestor.Ingest(ctx, up, set)
	if err != nil {
		return pagination.Snapshot{}, ingested, fmt.Errorf("ingest %s: %w", up.Filename, err)
	}
	p.metrics.Ingested(ingested.Accepted, ingested.Dropped)

	enriched, err := p.enricher.Enrich(ctx, set)
	p.metrics.Enriched(enriched.Duration, enriched.Applied, enriched.Placeholders)
	if err != nil {
		return pagination.Snapshot{}, ingested, fmt.Errorf("enrich: %w", err)
	}

	view, err := pagination.Build(set)
	if err != nil {
		return pagination.Snapshot{}, ingested, fmt.Errorf("build view: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return pagination.Snapshot{}, ingested, err
	}
	view.First()
	p.cache.Put(session, view)
	log.Debug().Int("records", set.Len()).Msg("view cached")

	return view.Snapshot(), ingested, nil
}

// failureKind names the error class for metrics and logs.
func failureKind(err error) string {
	var (
		fe *statistics.FormatError
		re *enrich.RangeError
		ee *weather.EnrichmentError
		ve *pagination.ValidationError
	)
	switch {
	case errors.As(err, &fe):
		return "format"
	case errors.As(err, &re):
		return "range"
	case errors.Is(err, enrich.ErrNoStatistics), errors.Is(err, pagination.ErrEmptySet):
		return "empty"
	case errors.As(err, &ee):
		return "enrichment"
	case errors.As(err, &ve):
		return "validation"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "other"
	}
}

// Close cancels running imports and waits for them to return.
func (p *Pipeline) Close() {
	p.cancel()
	p.wg.Wait()
}

// Wait blocks until every submitted import has finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}
