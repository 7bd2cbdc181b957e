package statistics

import "fmt"

// FormatError is returned when an accepted statistics line or stamp cannot
// be turned into a valid TimePoint or Record.
type FormatError struct {
	Line  int // 1-based line number, 0 when not read from a file
	Input string
	Err   error
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("format error on line %d (%q): %v", e.Line, e.Input, e.Err)
	}
	return fmt.Sprintf("format error in %q: %v", e.Input, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}
