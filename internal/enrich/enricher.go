package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/i474232898/site-analytics/internal/statistics"
	"github.com/i474232898/site-analytics/internal/weather"
)

// ErrNoStatistics is returned when asked to enrich an empty set.
var ErrNoStatistics = errors.New("no statistics to enrich")

// RangeError is returned when a set covers more than one year.
type RangeError struct {
	First statistics.TimePoint
	Last  statistics.TimePoint
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("statistics from %s to %s span more than a year", e.First, e.Last)
}

// Result summarizes one enrichment.
type Result struct {
	Applied      int           `json:"applied"`
	Placeholders int           `json:"placeholders"`
	Duration     time.Duration `json:"duration"`
}

// Enricher attaches hourly weather to the records of a set.
type Enricher struct {
	source weather.HourlySource
	log    zerolog.Logger
}

// New creates an Enricher reading from source.
func New(source weather.HourlySource, log zerolog.Logger) *Enricher {
	return &Enricher{
		source: source,
		log:    log.With().Str("component", "enrich").Str("source", source.Name()).Logger(),
	}
}

// Query derives the weather request covering every hour of set.
func Query(set *statistics.Set) (weather.HistoricalQuery, error) {
	if set.Len() == 0 {
		return weather.HistoricalQuery{}, ErrNoStatistics
	}
	first, last := set.First().Point, set.Last().Point
	if set.SpansMoreThanAYear() {
		return weather.HistoricalQuery{}, &RangeError{First: first, Last: last}
	}
	return weather.NewHistoricalQuery(
		weather.DateParts{Year: first.Year, Month: first.Month, Day: first.Day}, first.Hour,
		weather.DateParts{Year: last.Year, Month: last.Month, Day: last.Day}, last.Hour,
	)
}

// Enrich fetches weather for the span of set and attaches each returned hour
// to its record, creating a zero-count record for hours without visits. On
// failure the records updated so far keep their weather.
func (e *Enricher) Enrich(ctx context.Context, set *statistics.Set) (Result, error) {
	q, err := Query(set)
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	var res Result
	err = e.source.FetchHourly(ctx, q, func(o weather.Observation) error {
		tp, err := statistics.NewTimePoint(o.Year, o.Month, o.Day, o.Hour)
		if err != nil {
			e.log.Debug().Err(err).Msg("skipping weather observation")
			return nil
		}
		rec, created := set.FindOrCreate(tp)
		rec.AttachWeather(o.Sample)
		res.Applied++
		if created {
			res.Placeholders++
		}
		return nil
	})
	res.Duration = time.Since(start)

	if err != nil {
		var ee *weather.EnrichmentError
		if !errors.As(err, &ee) {
			err = &weather.EnrichmentError{Source: e.source.Name(), Message: err.Error(), Err: err}
		}
		e.log.Warn().Err(err).Int("applied", res.Applied).Msg("enrichment failed")
		return res, err
	}

	e.log.Info().
		Int("applied", res.Applied).
		Int("placeholders", res.Placeholders).
		Dur("took", res.Duration).
		Msg("statistics enriched")
	return res, nil
}
