package pagination

import (
	"errors"
	"fmt"

	"github.com/i474232898/site-analytics/internal/statistics"
)

// ErrEmptySet is returned when building a view from a set without records.
var ErrEmptySet = errors.New("cannot build a view from an empty set")

// ValidationError reports a day that cannot be rendered as a bucket.
type ValidationError struct {
	Date   statistics.Date
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid day %s: %s", e.Date, e.Reason)
}
