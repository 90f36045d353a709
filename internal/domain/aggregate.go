package domain

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ErrNoCells reports an aggregation with nothing to weight.
var ErrNoCells = errors.New("no cell climatologies to aggregate")

// RegionalAverage is the area-weighted monthly mean over all cells. A month
// that no cell had data for is not Present and its value is NaN.
type RegionalAverage struct {
	Values    [12]float64
	Present   [12]bool
	TotalArea float64
	Cells     int
}

// MonthValue pairs a 1-based month with its regional value.
type MonthValue struct {
	Month int
	Value float64
}

// Rows returns the twelve (month, value) pairs in month order.
func (r RegionalAverage) Rows() []MonthValue {
	rows := make([]MonthValue, 12)
	for i := range rows {
		rows[i] = MonthValue{Month: i + 1, Value: r.Values[i]}
	}
	return rows
}

// SpatialAggregator folds cell climatologies into a running area-weighted sum.
// Cells may be added in any order.
type SpatialAggregator struct {
	area      AreaCalculator
	weighted  [12]float64
	monthArea [12]float64
	totalArea float64
	cells     int
}

// NewSpatialAggregator creates an aggregator using area for cell weights.
func NewSpatialAggregator(area AreaCalculator) *SpatialAggregator {
	return &SpatialAggregator{area: area}
}

// Add weights c by its cell area and returns that area. Missing months add
// neither value nor area for that month.
func (a *SpatialAggregator) Add(c Climatology) float64 {
	cellArea := a.area.CellArea(c.Cell.Lat)

	var values, mask [12]float64
	for i := range values {
		if c.Present[i] {
			values[i] = c.Values[i]
			mask[i] = 1
		}
	}
	floats.AddScaled(a.weighted[:], cellArea, values[:])
	floats.AddScaled(a.monthArea[:], cellArea, mask[:])

	a.totalArea += cellArea
	a.cells++
	return cellArea
}

// Cells returns the number of cells added.
func (a *SpatialAggregator) Cells() int { return a.cells }

// Result divides the weighted sums by area. It returns ErrNoCells when no
// cell was added.
func (a *SpatialAggregator) Result() (RegionalAverage, error) {
	if a.cells == 0 {
		return RegionalAverage{}, ErrNoCells
	}
	r := RegionalAverage{TotalArea: a.totalArea, Cells: a.cells}
	for i := range r.Values {
		if a.monthArea[i] == 0 {
			r.Values[i] = math.NaN()
			continue
		}
		r.Values[i] = a.weighted[i] / a.monthArea[i]
		r.Present[i] = true
	}
	return r, nil
}
