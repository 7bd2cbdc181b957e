package pagination

import (
	"fmt"

	"github.com/i474232898/site-analytics/internal/statistics"
)

// HoursPerDay is the maximum number of records in one bucket.
const HoursPerDay = 24

// LabelLayout formats the label of a bucket's first hour.
const LabelLayout = "02 Jan 2006 15"

// DayBucket is one calendar day rendered as parallel chart series. All
// series have the same length.
type DayBucket struct {
	Date         statistics.Date `json:"date"`
	Labels       []string        `json:"labels"`
	TempData     []int           `json:"tempData"`
	UsersData    []uint64        `json:"usersData"`
	NewUsersData []uint64        `json:"newUsersData"`
	SessionData  []uint64        `json:"sessionData"`
}

// BuildDayBucket renders the records of one date. The date must be a
// calendar day, the records in hour order, at most 24 of them, and the first
// must be the midnight hour.
func BuildDayBucket(g statistics.DayGroup) (DayBucket, error) {
	if !g.Date.IsCalendarDay() {
		return DayBucket{}, &ValidationError{Date: g.Date, Reason: "not a calendar day"}
	}
	n := len(g.Records)
	if n == 0 {
		return DayBucket{}, &ValidationError{Date: g.Date, Reason: "no records"}
	}
	if n > HoursPerDay {
		return DayBucket{}, &ValidationError{Date: g.Date, Reason: fmt.Sprintf("%d records, at most %d allowed", n, HoursPerDay)}
	}
	if first := g.Records[0].Point; !first.IsMidnight() {
		return DayBucket{}, &ValidationError{Date: g.Date, Reason: fmt.Sprintf("first hour is %02d, expected 00", first.Hour)}
	}

	b := DayBucket{
		Date:         g.Date,
		Labels:       make([]string, 0, n),
		TempData:     make([]int, 0, n),
		UsersData:    make([]uint64, 0, n),
		NewUsersData: make([]uint64, 0, n),
		SessionData:  make([]uint64, 0, n),
	}
	for i, r := range g.Records {
		if i == 0 {
			b.Labels = append(b.Labels, r.Point.Time().Format(LabelLayout))
		} else {
			b.Labels = append(b.Labels, fmt.Sprintf("%02d", r.Point.Hour))
		}
		b.TempData = append(b.TempData, r.Temperature())
		b.UsersData = append(b.UsersData, r.Users)
		b.NewUsersData = append(b.NewUsersData, r.NewUsers)
		b.SessionData = append(b.SessionData, r.Sessions)
	}
	return b, nil
}
