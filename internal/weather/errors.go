package weather

import "fmt"

// EnrichmentError reports a failed request to, or read from, the weather
// source. Status is the upstream HTTP status, or 0 when no response was
// received (transport error, timeout, open circuit).
type EnrichmentError struct {
	Source  string
	Status  int
	Message string
	Err     error
}

func (e *EnrichmentError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("weather enrichment via %s failed with status %d: %s", e.Source, e.Status, e.Message)
	}
	return fmt.Sprintf("weather enrichment via %s failed: %s", e.Source, e.Message)
}

func (e *EnrichmentError) Unwrap() error {
	return e.Err
}
