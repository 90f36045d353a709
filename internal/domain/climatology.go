package domain

import (
	"errors"
	"fmt"
)

// ErrMissingMonth reports a month with no contributing days in any year.
var ErrMissingMonth = errors.New("month has no data")

// Climatology is a cell's mean monthly precipitation total across all observed
// years. Index 0 is January.
type Climatology struct {
	Cell    CellID
	Values  [12]float64
	Present [12]bool
	// Years counts, per month, the years that contributed at least one day.
	Years [12]int
}

// Month returns the value for month (1..12), or an error wrapping
// ErrMissingMonth when the month had no data.
func (c Climatology) Month(month int) (float64, error) {
	if month < 1 || month > 12 {
		return 0, fmt.Errorf("%w: %d", ErrMonthRange, month)
	}
	if !c.Present[month-1] {
		return 0, fmt.Errorf("cell %s month %d: %w", c.Cell, month, ErrMissingMonth)
	}
	return c.Values[month-1], nil
}

// MissingMonths lists the 1-based months without data.
func (c Climatology) MissingMonths() []int {
	var out []int
	for i, ok := range c.Present {
		if !ok {
			out = append(out, i+1)
		}
	}
	return out
}

// Complete reports whether every month has data.
func (c Climatology) Complete() bool {
	return len(c.MissingMonths()) == 0
}
