package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrTooFewColumns reports a flux line with fewer than four fields.
	ErrTooFewColumns = errors.New("expected at least 4 columns")
	// ErrMonthRange reports a month outside 1..12.
	ErrMonthRange = errors.New("month out of range")
	// ErrNegativePrecip reports a negative precipitation value.
	ErrNegativePrecip = errors.New("negative precipitation")
	// ErrNonFinite reports a NaN or infinite value where a number is required.
	ErrNonFinite = errors.New("value is not finite")
	// ErrYearRegression reports a record whose year is earlier than the one
	// being accumulated.
	ErrYearRegression = errors.New("year goes backwards")
)

// DailyRecord is one day of a cell's flux file.
type DailyRecord struct {
	Year   int
	Month  int // 1..12
	Day    int
	Precip float64 // mm
}

// ParseError locates a malformed input in a file. Line is 1-based; zero means
// the error is not tied to a single line.
type ParseError struct {
	File string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseRecord parses one whitespace-separated flux line:
// year month day precipitation [ignored ...].
func ParseRecord(line string) (DailyRecord, error) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return DailyRecord{}, fmt.Errorf("%w, got %d", ErrTooFewColumns, len(fields))
	}

	year, err := strconv.Atoi(fields[0])
	if err != nil {
		return DailyRecord{}, fmt.Errorf("year %q: %w", fields[0], err)
	}
	month, err := strconv.Atoi(fields[1])
	if err != nil {
		return DailyRecord{}, fmt.Errorf("month %q: %w", fields[1], err)
	}
	if month < 1 || month > 12 {
		return DailyRecord{}, fmt.Errorf("%w: %d", ErrMonthRange, month)
	}
	day, err := strconv.Atoi(fields[2])
	if err != nil {
		return DailyRecord{}, fmt.Errorf("day %q: %w", fields[2], err)
	}
	precip, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return DailyRecord{}, fmt.Errorf("precipitation %q: %w", fields[3], err)
	}
	if math.IsNaN(precip) || math.IsInf(precip, 0) {
		return DailyRecord{}, fmt.Errorf("precipitation %q: %w", fields[3], ErrNonFinite)
	}
	if precip < 0 {
		return DailyRecord{}, fmt.Errorf("%w: %g", ErrNegativePrecip, precip)
	}

	return DailyRecord{Year: year, Month: month, Day: day, Precip: precip}, nil
}
