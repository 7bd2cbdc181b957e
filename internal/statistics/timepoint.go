package statistics

import (
	"fmt"
	"strconv"
	"time"
)

// TimePoint identifies one hourly slot. It is a comparable value and is used
// as the unique key of a Record within one import.
type TimePoint struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
	Hour  int `json:"hour"`
}

// NewTimePoint validates the fields and returns a TimePoint.
// Days are range checked only (1-31), not against the calendar.
func NewTimePoint(year, month, day, hour int) (TimePoint, error) {
	tp := TimePoint{Year: year, Month: month, Day: day, Hour: hour}
	if err := tp.validate(); err != nil {
		return TimePoint{}, &FormatError{Input: tp.String(), Err: err}
	}
	return tp, nil
}

// ParseTimePoint parses a yyyyMMddHH stamp.
func ParseTimePoint(stamp string) (TimePoint, error) {
	if len(stamp) != 10 {
		return TimePoint{}, &FormatError{Input: stamp, Err: fmt.Errorf("expected 10 digits, got %d characters", len(stamp))}
	}
	n := make([]int, 0, 4)
	for _, part := range []string{stamp[0:4], stamp[4:6], stamp[6:8], stamp[8:10]} {
		v, err := strconv.Atoi(part)
		if err != nil {
			return TimePoint{}, &FormatError{Input: stamp, Err: err}
		}
		n = append(n, v)
	}
	tp := TimePoint{Year: n[0], Month: n[1], Day: n[2], Hour: n[3]}
	if err := tp.validate(); err != nil {
		return TimePoint{}, &FormatError{Input: stamp, Err: err}
	}
	return tp, nil
}

func (t TimePoint) validate() error {
	switch {
	case t.Year < 1900:
		return fmt.Errorf("year %d is before 1900", t.Year)
	case t.Month < 1 || t.Month > 12:
		return fmt.Errorf("invalid month %d", t.Month)
	case t.Day < 1 || t.Day > 31:
		return fmt.Errorf("invalid day of month %d", t.Day)
	case t.Hour < 0 || t.Hour > 23:
		return fmt.Errorf("invalid hour of day %d", t.Hour)
	}
	return nil
}

// Compare orders time points chronologically: year, month, day, then hour.
// It returns -1, 0 or +1.
func (t TimePoint) Compare(o TimePoint) int {
	for _, d := range [4]int{t.Year - o.Year, t.Month - o.Month, t.Day - o.Day, t.Hour - o.Hour} {
		if d < 0 {
			return -1
		}
		if d > 0 {
			return 1
		}
	}
	return 0
}

// Before reports whether t sorts before o.
func (t TimePoint) Before(o TimePoint) bool {
	return t.Compare(o) < 0
}

// IsMidnight reports whether the slot is the first hour of its day.
func (t TimePoint) IsMidnight() bool {
	return t.Hour == 0
}

// Date drops the hour.
func (t TimePoint) Date() Date {
	return Date{Year: t.Year, Month: t.Month, Day: t.Day}
}

// Time returns the start of the slot in UTC. Out-of-calendar days
// (e.g. February 30) are normalized by time.Date.
func (t TimePoint) Time() time.Time {
	return time.Date(t.Year, time.Month(t.Month), t.Day, t.Hour, 0, 0, 0, time.UTC)
}

func (t TimePoint) String() string {
	return fmt.Sprintf("%04d%02d%02d%02d", t.Year, t.Month, t.Day, t.Hour)
}

// Date is the calendar portion of a TimePoint.
type Date struct {
	Year  int
	Month int
	Day   int
}

// DateOf truncates a time to its UTC calendar date.
func DateOf(t time.Time) Date {
	t = t.UTC()
	return Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

// Key returns the integer day key, e.g. 20180101.
func (d Date) Key() int {
	return d.Year*10000 + d.Month*100 + d.Day
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// IsCalendarDay reports whether the date exists in the calendar. Feb 30
// passes TimePoint validation but is not a calendar day.
func (d Date) IsCalendarDay() bool {
	return DateOf(d.Time()) == d
}

// AddDays moves the date by n calendar days.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// Before reports whether d is an earlier calendar day than o.
func (d Date) Before(o Date) bool {
	return d.Key() < o.Key()
}

// After reports whether d is a later calendar day than o.
func (d Date) After(o Date) bool {
	return d.Key() > o.Key()
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// MarshalText renders the date as YYYY-MM-DD.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
