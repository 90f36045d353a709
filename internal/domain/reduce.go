package domain

import "fmt"

// monthSum is a running (sum, count) pair.
type monthSum struct {
	sum   float64
	count int
}

func (m *monthSum) add(v float64) {
	m.sum += v
	m.count++
}

// mean returns sum/count and false when nothing was added.
func (m monthSum) mean() (float64, bool) {
	if m.count == 0 {
		return 0, false
	}
	return m.sum / float64(m.count), true
}

// MonthlyAccumulator holds one year of daily precipitation per month.
type MonthlyAccumulator struct {
	months [12]monthSum
}

// Add folds one day's precipitation into month (1..12).
func (a *MonthlyAccumulator) Add(month int, precip float64) {
	a.months[month-1].add(precip)
}

// Days returns how many days were accumulated for month (1..12).
func (a *MonthlyAccumulator) Days(month int) int {
	return a.months[month-1].count
}

// Totals scales each month's daily mean to a monthly total for year. Months
// without days are reported as not ok.
func (a *MonthlyAccumulator) Totals(year int) (totals [12]float64, ok [12]bool) {
	for i := range a.months {
		mean, has := a.months[i].mean()
		if !has {
			continue
		}
		totals[i] = mean * float64(DaysInMonth(i+1, year))
		ok[i] = true
	}
	return totals, ok
}

// Reset clears all months.
func (a *MonthlyAccumulator) Reset() {
	a.months = [12]monthSum{}
}

// TemporalReducer turns one cell's chronologically ordered daily records into
// a Climatology. A reducer is single use and not safe for concurrent use.
type TemporalReducer struct {
	cell    CellID
	current MonthlyAccumulator
	year    int
	started bool
	yearly  [12]monthSum
	records int
}

// NewTemporalReducer creates a reducer for cell.
func NewTemporalReducer(cell CellID) *TemporalReducer {
	return &TemporalReducer{cell: cell}
}

// Add consumes one record. Crossing into a new year flushes the completed year.
func (r *TemporalReducer) Add(rec DailyRecord) error {
	if rec.Month < 1 || rec.Month > 12 {
		return fmt.Errorf("%w: %d", ErrMonthRange, rec.Month)
	}
	switch {
	case !r.started:
		r.year = rec.Year
		r.started = true
	case rec.Year < r.year:
		return fmt.Errorf("%w: %d after %d", ErrYearRegression, rec.Year, r.year)
	case rec.Year != r.year:
		r.flush()
		r.year = rec.Year
	}
	r.current.Add(rec.Month, rec.Precip)
	r.records++
	return nil
}

// flush folds the year in progress into the across-year estimates. Days in
// month come from r.year, the year just completed.
func (r *TemporalReducer) flush() {
	totals, ok := r.current.Totals(r.year)
	for i := range totals {
		if ok[i] {
			r.yearly[i].add(totals[i])
		}
	}
	r.current.Reset()
}

// Records returns the number of records consumed so far.
func (r *TemporalReducer) Records() int { return r.records }

// Finish flushes the final year and returns the cell climatology.
func (r *TemporalReducer) Finish() Climatology {
	if r.started {
		r.flush()
		r.started = false
	}
	c := Climatology{Cell: r.cell}
	for i := range r.yearly {
		c.Years[i] = r.yearly[i].count
		c.Values[i], c.Present[i] = r.yearly[i].mean()
	}
	return c
}
