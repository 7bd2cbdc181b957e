package statistics

import "sort"

// Set holds the records of one import, unique by TimePoint and kept in
// chronological order. A Set is not safe for concurrent use; it is owned by
// a single import pipeline until a view is built from it.
type Set struct {
	records []*Record
	index   map[TimePoint]*Record
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{index: make(map[TimePoint]*Record)}
}

// Len returns the number of records.
func (s *Set) Len() int {
	return len(s.records)
}

// Add inserts r in order. It returns false and leaves the set unchanged when
// a record with the same TimePoint is already present.
func (s *Set) Add(r *Record) bool {
	if _, ok := s.index[r.Point]; ok {
		return false
	}
	i := sort.Search(len(s.records), func(i int) bool {
		return !s.records[i].Point.Before(r.Point)
	})
	s.records = append(s.records, nil)
	copy(s.records[i+1:], s.records[i:])
	s.records[i] = r
	s.index[r.Point] = r
	return true
}

// Find returns the record stored for tp.
func (s *Set) Find(tp TimePoint) (*Record, bool) {
	r, ok := s.index[tp]
	return r, ok
}

// FindOrCreate returns the record for tp, inserting a zero-count placeholder
// when none exists. created reports whether a placeholder was inserted.
func (s *Set) FindOrCreate(tp TimePoint) (r *Record, created bool) {
	if r, ok := s.index[tp]; ok {
		return r, false
	}
	r = NewRecord(tp, 0, 0, 0)
	s.Add(r)
	return r, true
}

// First returns the earliest record, or nil when the set is empty.
func (s *Set) First() *Record {
	if len(s.records) == 0 {
		return nil
	}
	return s.records[0]
}

// Last returns the latest record, or nil when the set is empty.
func (s *Set) Last() *Record {
	if len(s.records) == 0 {
		return nil
	}
	return s.records[len(s.records)-1]
}

// Records returns the records in chronological order. The slice is a copy;
// the records are shared.
func (s *Set) Records() []*Record {
	out := make([]*Record, len(s.records))
	copy(out, s.records)
	return out
}

// SpansMoreThanAYear reports whether the calendar period between the dates
// of the first and last records is longer than one year. Hours are ignored.
func (s *Set) SpansMoreThanAYear() bool {
	if len(s.records) == 0 {
		return false
	}
	f, l := s.First().Point.Date(), s.Last().Point.Date()

	months := (l.Year-f.Year)*12 + (l.Month - f.Month)
	days := l.Day - f.Day
	if months > 0 && days < 0 {
		// borrow a month; only the sign of the remainder matters
		months--
		days = 1
	}
	return months > 12 || (months == 12 && days > 0)
}

// DayGroup is the run of records falling on one calendar date.
type DayGroup struct {
	Date    Date
	Records []*Record
}

// GroupByDate splits the set into per-date groups, in date order. Records
// inside a group keep their hour order.
func (s *Set) GroupByDate() []DayGroup {
	var groups []DayGroup
	for _, r := range s.records {
		d := r.Point.Date()
		if n := len(groups); n > 0 && groups[n-1].Date == d {
			groups[n-1].Records = append(groups[n-1].Records, r)
			continue
		}
		groups = append(groups, DayGroup{Date: d, Records: []*Record{r}})
	}
	return groups
}
