package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCell = NewCellID(-12.25, 34.75)

// dailyRecords returns one record per day of month with the given value.
func dailyRecords(year, month, days int, precip float64) []DailyRecord {
	out := make([]DailyRecord, days)
	for d := range out {
		out[d] = DailyRecord{Year: year, Month: month, Day: d + 1, Precip: precip}
	}
	return out
}

func reduceAll(t *testing.T, recs ...[]DailyRecord) Climatology {
	t.Helper()
	r := NewTemporalReducer(testCell)
	for _, batch := range recs {
		for _, rec := range batch {
			require.NoError(t, r.Add(rec))
		}
	}
	return r.Finish()
}

func TestTemporalReducer_LeapYearScaling(t *testing.T) {
	// Same 2 mm/day in February of a leap and a non-leap year.
	leap := NewTemporalReducer(testCell)
	for _, rec := range dailyRecords(2004, 2, 29, 2) {
		require.NoError(t, leap.Add(rec))
	}
	nonLeap := NewTemporalReducer(testCell)
	for _, rec := range dailyRecords(2005, 2, 28, 2) {
		require.NoError(t, nonLeap.Add(rec))
	}

	feb2004, err := leap.Finish().Month(2)
	require.NoError(t, err)
	feb2005, err := nonLeap.Finish().Month(2)
	require.NoError(t, err)

	assert.InDelta(t, 58.0, feb2004, 1e-9)
	assert.InDelta(t, 56.0, feb2005, 1e-9)
	assert.NotEqual(t, feb2004, feb2005)
}

func TestTemporalReducer_LeapYearAcrossYears(t *testing.T) {
	c := reduceAll(t,
		dailyRecords(2004, 2, 29, 2),
		dailyRecords(2005, 2, 28, 2),
	)
	feb, err := c.Month(2)
	require.NoError(t, err)
	assert.InDelta(t, (58.0+56.0)/2, feb, 1e-9)
	assert.Equal(t, 2, c.Years[1])
}

func TestTemporalReducer_DecemberStaysInCompletedYear(t *testing.T) {
	// Year 1 has only December, year 2 has only January.
	c := reduceAll(t,
		dailyRecords(2003, 12, 31, 4),
		dailyRecords(2004, 1, 31, 1),
	)

	dec, err := c.Month(12)
	require.NoError(t, err)
	jan, err := c.Month(1)
	require.NoError(t, err)

	assert.InDelta(t, 124.0, dec, 1e-9)
	assert.InDelta(t, 31.0, jan, 1e-9)
	assert.Equal(t, 1, c.Years[11], "december counted once, for 2003")
	assert.Equal(t, 1, c.Years[0], "january counted once, for 2004")
	assert.Equal(t, []int{2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, c.MissingMonths())
}

func TestTemporalReducer_FlushUsesCompletedYearForFebruary(t *testing.T) {
	// February 2004 (leap) is flushed when the 2005 record arrives; scaling
	// must use 29 days, not 2005's 28.
	c := reduceAll(t,
		[]DailyRecord{{Year: 2004, Month: 2, Day: 1, Precip: 1}},
		[]DailyRecord{{Year: 2005, Month: 3, Day: 1, Precip: 1}},
	)
	feb, err := c.Month(2)
	require.NoError(t, err)
	assert.InDelta(t, 29.0, feb, 1e-9)
}

func TestTemporalReducer_MissingMonth(t *testing.T) {
	var recs [][]DailyRecord
	for _, year := range []int{2001, 2002} {
		for m := 1; m <= 12; m++ {
			if m == 7 {
				continue
			}
			recs = append(recs, dailyRecords(year, m, 3, 1))
		}
	}
	c := reduceAll(t, recs...)

	assert.False(t, c.Present[6])
	assert.Equal(t, []int{7}, c.MissingMonths())
	assert.False(t, c.Complete())

	_, err := c.Month(7)
	require.ErrorIs(t, err, ErrMissingMonth)

	aug, err := c.Month(8)
	require.NoError(t, err)
	assert.InDelta(t, 31.0, aug, 1e-9)
}

func TestTemporalReducer_PartialMonthUsesDailyMean(t *testing.T) {
	// Two days averaging 3 mm scale to a full 30-day April.
	c := reduceAll(t, []DailyRecord{
		{Year: 2010, Month: 4, Day: 1, Precip: 2},
		{Year: 2010, Month: 4, Day: 2, Precip: 4},
	})
	apr, err := c.Month(4)
	require.NoError(t, err)
	assert.InDelta(t, 90.0, apr, 1e-9)
}

func TestTemporalReducer_ZeroIsNotMissing(t *testing.T) {
	c := reduceAll(t, dailyRecords(2010, 5, 31, 0))
	may, err := c.Month(5)
	require.NoError(t, err)
	assert.Equal(t, 0.0, may)
	assert.True(t, c.Present[4])
}

func TestTemporalReducer_Empty(t *testing.T) {
	c := NewTemporalReducer(testCell).Finish()
	assert.Len(t, c.MissingMonths(), 12)
	assert.Equal(t, testCell, c.Cell)
}

func TestTemporalReducer_YearRegression(t *testing.T) {
	r := NewTemporalReducer(testCell)
	require.NoError(t, r.Add(DailyRecord{Year: 2005, Month: 1, Day: 1}))
	err := r.Add(DailyRecord{Year: 2004, Month: 12, Day: 31})
	require.ErrorIs(t, err, ErrYearRegression)
	assert.Equal(t, 1, r.Records())
}

func TestTemporalReducer_RejectsBadMonth(t *testing.T) {
	r := NewTemporalReducer(testCell)
	require.ErrorIs(t, r.Add(DailyRecord{Year: 2005, Month: 13, Day: 1}), ErrMonthRange)
}

func TestMonthlyAccumulator(t *testing.T) {
	var a MonthlyAccumulator
	a.Add(2, 1)
	a.Add(2, 3)
	assert.Equal(t, 2, a.Days(2))

	// 1900 is a leap year under the 4-year rule.
	totals, ok := a.Totals(1900)
	assert.True(t, ok[1])
	assert.False(t, ok[0])
	assert.InDelta(t, 58.0, totals[1], 1e-9)

	a.Reset()
	assert.Equal(t, 0, a.Days(2))
}
