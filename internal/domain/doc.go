// Package domain models daily precipitation output from gridded land-surface
// model runs (VIC "fluxes" files) and the two reductions applied to it.
//
// # Data Source
//
// Each grid cell is written as one flux file named after the cell center:
//
//	fluxes_<lat>_<lon>   e.g. fluxes_-12.25_34.75
//
// Every line holds one day, whitespace separated, with no header:
//
//	year month day precipitation_mm [other fluxes ...]
//
// Only columns 0, 1 and 3 are read. Lines are assumed chronologically ordered.
//
// # Temporal Reduction
//
// A [TemporalReducer] accumulates (sum, count) per calendar month for the
// current year. When the year changes, each month with data is scaled to a
// monthly total, (sum/count) * days_in_month(month, completed_year), and
// folded into that month's across-year estimate. The last year is flushed when
// the stream ends. The resulting [Climatology] holds 12 monthly means; a month
// that never had data is flagged missing rather than reported as zero.
//
// Leap years are every year divisible by 4 ([IsLeap]).
//
// # Spatial Aggregation
//
// Cells are treated as flat rectangles on a sphere of radius 6371 km, with pi
// approximated as 3.14159. For a 0.5 degree grid:
//
//	edge  = 2*pi*R / 720
//	area  = edge * cos(pi/180 * |lat|) * edge
//
// The [SpatialAggregator] combines cell climatologies into an area-weighted
// regional mean per month. Cells are not weighted by how many years of data
// they contributed.
package domain
