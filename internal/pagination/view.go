package pagination

import (
	"sync"

	"github.com/i474232898/site-analytics/internal/statistics"
)

const (
	// PageSize is the number of days in a full window.
	PageSize = 3
	// Increment is the number of days next and previous move the window.
	Increment = 1
)

// View is a day-windowed cursor over the buckets built from one set. The
// bucket map is fixed at construction; only the window moves. A View is safe
// for concurrent use.
type View struct {
	buckets  map[int]DayBucket
	firstDay statistics.Date
	lastDay  statistics.Date

	mu          sync.Mutex
	hasWindow   bool
	windowStart statistics.Date
	windowEnd   statistics.Date
	current     []DayBucket
}

// Snapshot is the read-only state handed to the rendering layer.
type Snapshot struct {
	TotalDays   int              `json:"totalDays"`
	FirstDay    statistics.Date  `json:"firstDay"`
	LastDay     statistics.Date  `json:"lastDay"`
	WindowStart *statistics.Date `json:"windowStart,omitempty"`
	WindowEnd   *statistics.Date `json:"windowEnd,omitempty"`
	Page        []DayBucket      `json:"page"`
}

// Build renders every day of set into a bucket. The set is not referenced
// after Build returns.
func Build(set *statistics.Set) (*View, error) {
	if set.Len() == 0 {
		return nil, ErrEmptySet
	}
	groups := set.GroupByDate()
	buckets := make(map[int]DayBucket, len(groups))
	for _, g := range groups {
		b, err := BuildDayBucket(g)
		if err != nil {
			return nil, err
		}
		buckets[g.Date.Key()] = b
	}
	return &View{
		buckets:  buckets,
		firstDay: set.First().Point.Date(),
		lastDay:  set.Last().Point.Date(),
	}, nil
}

// First moves the window to the first PageSize days.
func (v *View) First() []DayBucket {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.first()
}

func (v *View) first() []DayBucket {
	end := v.firstDay.AddDays(PageSize - 1)
	if end.After(v.lastDay) {
		end = v.lastDay
	}
	v.setWindow(v.firstDay, end)
	return v.page()
}

// Last moves the window to the last PageSize days.
func (v *View) Last() []DayBucket {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.last()
}

func (v *View) last() []DayBucket {
	start := v.lastDay.AddDays(-(PageSize - 1))
	if start.Before(v.firstDay) {
		start = v.firstDay
	}
	v.setWindow(start, v.lastDay)
	return v.page()
}

// Next slides the window one day forward. Without a window it behaves as
// First. When the window already ends on the last day it returns an empty
// page and stays put.
func (v *View) Next() []DayBucket {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.next()
}

func (v *View) next() []DayBucket {
	if !v.hasWindow {
		return v.first()
	}
	if v.windowEnd == v.lastDay {
		return []DayBucket{}
	}
	truncated := v.truncated()
	oldStart := v.windowStart
	start := v.windowStart.AddDays(Increment)
	end := v.windowEnd.AddDays(Increment)
	if end.After(v.lastDay) {
		end = v.lastDay
	}
	if truncated {
		v.setWindow(start, end)
		return v.page()
	}
	v.windowStart, v.windowEnd = start, end

	if len(v.current) > 0 && v.current[0].Date == oldStart {
		v.current = v.current[1:]
	}
	if b, ok := v.buckets[v.windowEnd.Key()]; ok {
		v.current = append(v.current, b)
	}
	return v.page()
}

// Previous slides the window one day back. Without a window it returns an
// empty page and does not establish one. When the window already starts on
// the first day it returns an empty page and stays put.
func (v *View) Previous() []DayBucket {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.previous()
}

func (v *View) previous() []DayBucket {
	if !v.hasWindow || v.windowStart == v.firstDay {
		return []DayBucket{}
	}
	truncated := v.truncated()
	oldEnd := v.windowEnd
	start := v.windowStart.AddDays(-Increment)
	if start.Before(v.firstDay) {
		start = v.firstDay
	}
	end := v.windowEnd.AddDays(-Increment)
	if truncated {
		v.setWindow(start, end)
		return v.page()
	}
	v.windowStart, v.windowEnd = start, end

	if n := len(v.current); n > 0 && v.current[n-1].Date == oldEnd {
		v.current = v.current[:n-1]
	}
	if b, ok := v.buckets[v.windowStart.Key()]; ok {
		v.current = append([]DayBucket{b}, v.current...)
	}
	return v.page()
}

// Navigation names a window move for Navigate.
type Navigation int

const (
	NavFirst Navigation = iota
	NavLast
	NavNext
	NavPrevious
)

// Navigate applies nav and snapshots the result under one lock. The
// snapshot's page is the page the move returned, so next and previous at an
// edge yield an empty page with the unchanged window edges.
func (v *View) Navigate(nav Navigation) Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	var page []DayBucket
	switch nav {
	case NavFirst:
		page = v.first()
	case NavLast:
		page = v.last()
	case NavNext:
		page = v.next()
	case NavPrevious:
		page = v.previous()
	default:
		page = v.page()
	}
	s := v.snapshot()
	s.Page = page
	return s
}

// Current returns the materialized window without moving it.
func (v *View) Current() []DayBucket {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.page()
}

// Snapshot returns the bounds, the window edges and the current page.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshot()
}

func (v *View) snapshot() Snapshot {
	s := Snapshot{
		TotalDays: len(v.buckets),
		FirstDay:  v.firstDay,
		LastDay:   v.lastDay,
		Page:      v.page(),
	}
	if v.hasWindow {
		start, end := v.windowStart, v.windowEnd
		s.WindowStart, s.WindowEnd = &start, &end
	}
	return s
}

// setWindow resets the window and materializes it from its start, stopping
// at the first day without a bucket.
func (v *View) setWindow(start, end statistics.Date) {
	v.hasWindow = true
	v.windowStart, v.windowEnd = start, end
	v.current = v.current[:0:0]
	for d := start; !d.After(end); d = d.AddDays(1) {
		b, ok := v.buckets[d.Key()]
		if !ok {
			break
		}
		v.current = append(v.current, b)
	}
}

// truncated reports whether materialization stopped at a gap before the
// window end.
func (v *View) truncated() bool {
	days := 0
	for d := v.windowStart; !d.After(v.windowEnd); d = d.AddDays(1) {
		days++
	}
	return len(v.current) < days
}

// page copies the window so callers never share the backing array.
func (v *View) page() []DayBucket {
	out := make([]DayBucket, len(v.current))
	copy(out, v.current)
	return out
}
