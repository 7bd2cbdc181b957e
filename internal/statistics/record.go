package statistics

import (
	"github.com/google/uuid"

	"github.com/i474232898/site-analytics/internal/weather"
)

// Record is one hour of site visits, optionally enriched with weather.
type Record struct {
	ID       string          `json:"id"`
	Point    TimePoint       `json:"point"`
	Users    uint64          `json:"users"`
	NewUsers uint64          `json:"newUsers"`
	Sessions uint64          `json:"sessions"`
	Weather  *weather.Sample `json:"weather,omitempty"`
}

// NewRecord creates a record with a freshly generated id.
func NewRecord(tp TimePoint, users, newUsers, sessions uint64) *Record {
	return &Record{
		ID:       uuid.NewString(),
		Point:    tp,
		Users:    users,
		NewUsers: newUsers,
		Sessions: sessions,
	}
}

// AttachWeather sets the weather sample, replacing any previous one.
func (r *Record) AttachWeather(s weather.Sample) {
	r.Weather = &s
}

// Temperature returns the attached temperature in tenths of a degree,
// or 0 when the record has not been enriched.
func (r *Record) Temperature() int {
	if r.Weather == nil {
		return 0
	}
	return r.Weather.Temperature
}
