package weather

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	// StationDeBilt is the KNMI station used for every query.
	StationDeBilt = "260"
	// LanguageDutch is the response language requested from KNMI.
	LanguageDutch = "nl"
)

// HourlyVariables are the variables requested for every query, in column order.
var HourlyVariables = []string{"T", "T10N", "SQ", "DR", "RH", "N", "U", "M", "R", "S", "O", "Y"}

var validate = validator.New()

// HistoricalQuery carries the parameters of one hourly history request.
// Hours use the KNMI convention 1-24.
type HistoricalQuery struct {
	Language  string `validate:"required"`
	StartDate DateParts
	EndDate   DateParts
	StartHour int      `validate:"min=1,max=24"`
	EndHour   int      `validate:"min=1,max=24"`
	Station   string   `validate:"required,numeric"`
	Variables []string `validate:"required,min=1,dive,required"`
}

// DateParts is a calendar date as sent to the weather service.
type DateParts struct {
	Year  int `validate:"min=1900"`
	Month int `validate:"min=1,max=12"`
	Day   int `validate:"min=1,max=31"`
}

func (d DateParts) time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// NewHistoricalQuery builds a query for the inclusive range between two
// slots. Hours are given as 0-23 and forwarded as 1-24.
func NewHistoricalQuery(start DateParts, startHour int, end DateParts, endHour int) (HistoricalQuery, error) {
	q := HistoricalQuery{
		Language:  LanguageDutch,
		StartDate: start,
		EndDate:   end,
		StartHour: startHour + 1,
		EndHour:   endHour + 1,
		Station:   StationDeBilt,
		Variables: append([]string(nil), HourlyVariables...),
	}
	if err := q.Validate(); err != nil {
		return HistoricalQuery{}, err
	}
	return q, nil
}

// Validate checks field ranges and that the start does not come after the end.
func (q HistoricalQuery) Validate() error {
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("invalid historical query: %w", err)
	}
	if q.StartDate.time().After(q.EndDate.time()) {
		return errors.New("invalid historical query: start date is after end date")
	}
	return nil
}
