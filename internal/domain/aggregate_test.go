package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func uniform(cell CellID, v float64) Climatology {
	c := Climatology{Cell: cell}
	for i := range c.Values {
		c.Values[i] = v
		c.Present[i] = true
		c.Years[i] = 1
	}
	return c
}

func TestSphere_Defaults(t *testing.T) {
	s := DefaultSphere()
	assert.InDelta(t, 40030, s.Circumference(), 1)
	assert.Equal(t, 720.0, s.CellsPerCircle())
	assert.InDelta(t, 40030.14/720, s.CellHeight(), 1e-4)
	assert.InDelta(t, s.CellHeight()*s.CellHeight(), s.CellArea(0), 1e-9)
}

func TestSphere_AreaMonotonicity(t *testing.T) {
	s := DefaultSphere()
	equator := s.CellArea(0)
	sixty := s.CellArea(60)

	assert.Greater(t, equator, sixty)
	assert.InDelta(t, 0.5, sixty/equator, 1e-5)
	assert.Equal(t, s.CellArea(-60), sixty, "hemisphere symmetric")
}

func TestSpatialAggregator_WeightsByArea(t *testing.T) {
	s := DefaultSphere()
	agg := NewSpatialAggregator(s)
	agg.Add(uniform(NewCellID(0, 10), 100))
	agg.Add(uniform(NewCellID(60, 10), 0))

	r, err := agg.Result()
	require.NoError(t, err)

	// Equator weight 1, 60 degrees weight ~0.5: 100 * 1 / 1.5.
	for _, row := range r.Rows() {
		assert.InDelta(t, 100/1.5, row.Value, 1e-3, "month %d", row.Month)
	}
	assert.Greater(t, r.Values[0], 50.0, "equatorial cell dominates")
	assert.Equal(t, 2, r.Cells)
	assert.InDelta(t, s.CellArea(0)+s.CellArea(60), r.TotalArea, 1e-9)
}

func TestSpatialAggregator_OrderIndependent(t *testing.T) {
	cells := []Climatology{
		uniform(NewCellID(0, 0), 12.5),
		uniform(NewCellID(33.25, 0), 80),
		uniform(NewCellID(-71.75, 0), 3),
	}
	forward := NewSpatialAggregator(DefaultSphere())
	backward := NewSpatialAggregator(DefaultSphere())
	for i := range cells {
		forward.Add(cells[i])
		backward.Add(cells[len(cells)-1-i])
	}
	a, err := forward.Result()
	require.NoError(t, err)
	b, err := backward.Result()
	require.NoError(t, err)
	assert.True(t, floats.EqualApprox(a.Values[:], b.Values[:], 1e-12))
}

func TestSpatialAggregator_MissingMonthExcludedFromArea(t *testing.T) {
	a := uniform(NewCellID(0, 0), 10)
	b := uniform(NewCellID(0, 0.5), 30)
	b.Present[6] = false
	b.Values[6] = 0

	agg := NewSpatialAggregator(DefaultSphere())
	agg.Add(a)
	agg.Add(b)
	r, err := agg.Result()
	require.NoError(t, err)

	assert.InDelta(t, 20.0, r.Values[0], 1e-9)
	assert.InDelta(t, 10.0, r.Values[6], 1e-9, "july uses only cell a")
	assert.True(t, r.Present[6])
}

func TestSpatialAggregator_MonthMissingEverywhere(t *testing.T) {
	c := uniform(NewCellID(10, 10), 5)
	c.Present[1] = false

	agg := NewSpatialAggregator(DefaultSphere())
	agg.Add(c)
	r, err := agg.Result()
	require.NoError(t, err)
	assert.False(t, r.Present[1])
	assert.True(t, math.IsNaN(r.Values[1]))
}

func TestSpatialAggregator_NoCells(t *testing.T) {
	_, err := NewSpatialAggregator(DefaultSphere()).Result()
	require.ErrorIs(t, err, ErrNoCells)
}

type countingArea struct {
	calls int
}

func (c *countingArea) CellArea(lat float64) float64 {
	c.calls++
	return lat + 1
}

func TestAreaCache(t *testing.T) {
	inner := &countingArea{}
	cache, err := NewAreaCache(inner, 2)
	require.NoError(t, err)

	assert.Equal(t, 1.5, cache.CellArea(0.5))
	assert.Equal(t, 1.5, cache.CellArea(0.5))
	assert.Equal(t, 1, inner.calls)

	cache.CellArea(1)
	cache.CellArea(2) // evicts 0.5
	assert.Equal(t, 2, cache.Len())
	cache.CellArea(0.5)
	assert.Equal(t, 4, inner.calls)
}

func TestAreaCache_InvalidSize(t *testing.T) {
	_, err := NewAreaCache(DefaultSphere(), 0)
	require.Error(t, err)
}
