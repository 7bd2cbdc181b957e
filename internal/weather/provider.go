package weather

import (
	"context"
)

// HourlySource abstracts a historical hourly weather service (e.g. the KNMI
// hourly data endpoint). FetchHourly streams the response and calls fn once
// per valid record, in response order. Returning an error from fn stops the
// stream and FetchHourly returns that error.
type HourlySource interface {
	Name() string
	FetchHourly(ctx context.Context, q HistoricalQuery, fn func(Observation) error) error
}
