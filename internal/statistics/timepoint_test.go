package statistics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimePoint(t *testing.T) {
	p, err := ParseTimePoint("2018013123")
	require.NoError(t, err)
	assert.Equal(t, TimePoint{Year: 2018, Month: 1, Day: 31, Hour: 23}, p)
	assert.Equal(t, "2018013123", p.String())
}

func TestParseTimePointRejects(t *testing.T) {
	for _, stamp := range []string{
		"201801012",  // too short
		"1899123100", // before 1900
		"2018130100", // month 13
		"2018010000", // day 0
		"2018013200", // day 32
		"2018010124", // hour 24
	} {
		t.Run(stamp, func(t *testing.T) {
			_, err := ParseTimePoint(stamp)
			var fe *FormatError
			require.True(t, errors.As(err, &fe), "want FormatError, got %v", err)
			assert.Equal(t, stamp, fe.Input)
		})
	}
}

func TestTimePointAcceptsNonCalendarDay(t *testing.T) {
	p, err := NewTimePoint(2018, 2, 30, 0)
	require.NoError(t, err)
	assert.Equal(t, 30, p.Day)
	assert.False(t, p.Date().IsCalendarDay())
	assert.True(t, Date{2016, 2, 29}.IsCalendarDay())
	assert.False(t, Date{2018, 2, 29}.IsCalendarDay())
}

func TestTimePointCompareIsChronological(t *testing.T) {
	a := TimePoint{2018, 1, 1, 23}
	b := TimePoint{2018, 1, 2, 0}
	c := TimePoint{2019, 1, 1, 0}

	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, c.Compare(b))
	assert.Equal(t, 0, a.Compare(a))
	assert.True(t, a.Before(c))
	assert.True(t, a == TimePoint{2018, 1, 1, 23})
}

func TestDateArithmetic(t *testing.T) {
	d := Date{2018, 12, 31}
	assert.Equal(t, Date{2019, 1, 1}, d.AddDays(1))
	assert.Equal(t, Date{2018, 12, 29}, d.AddDays(-2))
	assert.Equal(t, 20181231, d.Key())
	assert.True(t, d.After(Date{2018, 12, 30}))
	assert.Equal(t, "2018-12-31", d.String())
}
