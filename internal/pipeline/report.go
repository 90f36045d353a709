package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/flux-climatology/internal/domain"
)

// Report summarizes a full run.
type Report struct {
	StartedAt    time.Time
	FinishedAt   time.Time
	Discovered   int
	Reduced      int
	Failed       int
	Aggregated   int
	TotalAreaKM2 float64
	Regional     domain.RegionalAverage
}

// Duration is the wall time between start and finish.
func (r Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// LogAttrs flattens the report into slog key/value pairs.
func (r Report) LogAttrs() []any {
	return []any{
		"discovered", r.Discovered,
		"reduced", r.Reduced,
		"failed", r.Failed,
		"aggregated", r.Aggregated,
		"area_km2", r.TotalAreaKM2,
		"started_at", r.StartedAt.Format(time.RFC3339),
		"duration", r.Duration(),
	}
}

// FileError ties a failure to the flux file that caused it.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	var pe *domain.ParseError
	if errors.As(e.Err, &pe) {
		return pe.Error()
	}
	return e.Path + ": " + e.Err.Error()
}

func (e FileError) Unwrap() error { return e.Err }

// RunError reports the flux files that could not be reduced.
type RunError struct {
	Total    int
	Failures []FileError
}

func (e *RunError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("%d of %d flux files failed: %s", len(e.Failures), e.Total, strings.Join(msgs, "; "))
}

// Unwrap exposes each file failure to errors.Is and errors.As.
func (e *RunError) Unwrap() []error {
	out := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		out[i] = f
	}
	return out
}
