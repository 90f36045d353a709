package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/flux-climatology/internal/domain"
	"github.com/couchcryptid/flux-climatology/internal/observability"
)

var (
	// ErrNoFluxFiles reports an input directory without any flux files.
	ErrNoFluxFiles = errors.New("no flux files found")
	// ErrEmptyFlux reports a flux file without a single record.
	ErrEmptyFlux = errors.New("flux file has no records")
	// ErrStoreWrite marks intermediate storage failures, which abort the run.
	ErrStoreWrite = errors.New("intermediate store write failed")
)

// FluxSource discovers raw cell files and streams their records.
type FluxSource interface {
	Discover() ([]domain.FluxFile, error)
	ReadRecords(path string, fn func(domain.DailyRecord) error) (int, error)
}

// ClimatologyStore is the durable hand-off between the reduce and aggregate stages.
type ClimatologyStore interface {
	Prepare() error
	Write(c domain.Climatology) error
	Remove(cell domain.CellID) error
	ReadAll() ([]domain.Climatology, error)
}

// RegionalWriter persists the final regional average.
type RegionalWriter interface {
	WriteRegional(r domain.RegionalAverage) error
}

// Publisher ships results to a downstream consumer.
type Publisher interface {
	Publish(ctx context.Context, cells []domain.Climatology, regional domain.RegionalAverage) error
}

// Options tunes the reduce stage.
type Options struct {
	Workers  int
	FailFast bool
}

// Pipeline orchestrates the reduce, aggregate, and publish stages.
type Pipeline struct {
	source    FluxSource
	store     ClimatologyStore
	writer    RegionalWriter
	area      domain.AreaCalculator
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	opts      Options
	ready     atomic.Bool

	progress struct {
		discovered atomic.Int64
		reduced    atomic.Int64
		failed     atomic.Int64
		done       atomic.Bool
	}
}

// New creates a Pipeline with the given stages and observability.
func New(source FluxSource, store ClimatologyStore, writer RegionalWriter, area domain.AreaCalculator, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Pipeline{
		source:  source,
		store:   store,
		writer:  writer,
		area:    area,
		logger:  logger,
		metrics: metrics,
		opts:    opts,
	}
}

// WithPublisher enables the publish stage. A nil publisher disables it.
func (p *Pipeline) WithPublisher(pub Publisher) *Pipeline {
	p.publisher = pub
	return p
}

// CheckReadiness returns nil once at least one cell has been reduced.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no cell has been reduced yet")
	}
	return nil
}

// Progress is a point-in-time view of a run for status endpoints.
type Progress struct {
	Discovered int  `json:"discovered"`
	Reduced    int  `json:"reduced"`
	Failed     int  `json:"failed"`
	Done       bool `json:"done"`
}

// Progress reports how far the current run has got. Safe for concurrent use.
func (p *Pipeline) Progress() Progress {
	return Progress{
		Discovered: int(p.progress.discovered.Load()),
		Reduced:    int(p.progress.reduced.Load()),
		Failed:     int(p.progress.failed.Load()),
		Done:       p.progress.done.Load(),
	}
}

// ReduceSummary describes one reduce stage.
type ReduceSummary struct {
	Discovered int
	Reduced    int
	Failures   []FileError
}

// Reduce turns every discovered flux file into a stored cell climatology.
// Malformed files, including unrecognized names, are logged, their stale
// climatology removed, and the remaining files processed; the failures come back as a *RunError. With
// FailFast the first failure aborts the stage.
func (p *Pipeline) Reduce(ctx context.Context) (ReduceSummary, error) {
	start := domain.Now()
	defer func() {
		p.metrics.StageDuration.WithLabelValues("reduce").Observe(domain.Since(start).Seconds())
	}()

	files, err := p.source.Discover()
	if err != nil {
		return ReduceSummary{}, err
	}
	if len(files) == 0 {
		return ReduceSummary{}, ErrNoFluxFiles
	}
	p.metrics.FilesDiscovered.Add(float64(len(files)))
	p.progress.discovered.Store(int64(len(files)))
	p.logger.Info("reduce started", "files", len(files), "workers", p.opts.Workers)

	if err := p.store.Prepare(); err != nil {
		return ReduceSummary{Discovered: len(files)}, err
	}

	var (
		mu       sync.Mutex
		failures []FileError
		reduced  atomic.Int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for _, f := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := p.reduceFile(f); err != nil {
				p.metrics.FilesFailed.Inc()
				p.progress.failed.Add(1)
				p.logger.Error("flux file rejected", "file", f.Path, "error", err)
				if p.opts.FailFast || errors.Is(err, ErrStoreWrite) {
					return err
				}
				mu.Lock()
				failures = append(failures, FileError{Path: f.Path, Err: err})
				mu.Unlock()
				return nil
			}
			reduced.Add(1)
			p.progress.reduced.Add(1)
			p.ready.Store(true)
			return nil
		})
	}
	waitErr := g.Wait()

	sort.Slice(failures, func(i, j int) bool { return failures[i].Path < failures[j].Path })
	summary := ReduceSummary{
		Discovered: len(files),
		Reduced:    int(reduced.Load()),
		Failures:   failures,
	}

	if waitErr != nil {
		return summary, waitErr
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	p.logger.Info("reduce finished", "reduced", summary.Reduced, "failed", len(failures))
	if len(failures) > 0 {
		return summary, &RunError{Total: len(files), Failures: failures}
	}
	return summary, nil
}

// reduceFile streams one flux file through a fresh TemporalReducer.
func (p *Pipeline) reduceFile(f domain.FluxFile) error {
	if f.Err != nil {
		return f.Err
	}

	start := domain.Now()
	defer func() { p.metrics.FileDuration.Observe(domain.Since(start).Seconds()) }()

	reducer := domain.NewTemporalReducer(f.Cell)
	n, err := p.source.ReadRecords(f.Path, reducer.Add)
	p.metrics.RecordsRead.Add(float64(n))
	if err == nil && n == 0 {
		err = &domain.ParseError{File: f.Path, Err: ErrEmptyFlux}
	}
	if err != nil {
		// A climatology left over from an earlier run must not reach aggregation.
		if rmErr := p.store.Remove(f.Cell); rmErr != nil {
			p.logger.Warn("remove stale climatology failed", "cell", f.Cell.String(), "error", rmErr)
		}
		return err
	}

	clim := reducer.Finish()
	if missing := clim.MissingMonths(); len(missing) > 0 {
		p.metrics.MissingMonths.Add(float64(len(missing)))
		p.logger.Warn("cell has months without data",
			"cell", f.Cell.String(),
			"file", f.Path,
			"missing_months", missing,
		)
	}

	if err := p.store.Write(clim); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	p.metrics.FilesReduced.Inc()
	p.logger.Debug("cell reduced", "cell", f.Cell.String(), "records", n, "years", clim.Years)
	return nil
}

// Aggregate reads every stored climatology, weights it by cell area, and
// writes the regional average. It returns the cells it read so callers can
// publish them without a second pass over storage.
func (p *Pipeline) Aggregate(ctx context.Context) (domain.RegionalAverage, []domain.Climatology, error) {
	start := domain.Now()
	defer func() {
		p.metrics.StageDuration.WithLabelValues("aggregate").Observe(domain.Since(start).Seconds())
	}()

	cells, err := p.store.ReadAll()
	if err != nil {
		return domain.RegionalAverage{}, nil, err
	}

	agg := domain.NewSpatialAggregator(p.area)
	for _, c := range cells {
		if err := ctx.Err(); err != nil {
			return domain.RegionalAverage{}, nil, err
		}
		area := agg.Add(c)
		p.metrics.CellsAggregated.Inc()
		p.logger.Debug("cell weighted", "cell", c.Cell.String(), "area_km2", area)
	}

	regional, err := agg.Result()
	if err != nil {
		return domain.RegionalAverage{}, nil, err
	}
	if err := p.writer.WriteRegional(regional); err != nil {
		return regional, cells, fmt.Errorf("write regional average: %w", err)
	}
	p.metrics.RegionArea.Set(regional.TotalArea)
	p.logger.Info("aggregate finished", "cells", regional.Cells, "area_km2", regional.TotalArea)
	return regional, cells, nil
}

// Publish ships cells and the regional average downstream. It is a no-op
// without a publisher.
func (p *Pipeline) Publish(ctx context.Context, cells []domain.Climatology, regional domain.RegionalAverage) error {
	if p.publisher == nil {
		return nil
	}
	start := domain.Now()
	if err := p.publisher.Publish(ctx, cells, regional); err != nil {
		return fmt.Errorf("publish results: %w", err)
	}
	p.metrics.StageDuration.WithLabelValues("publish").Observe(domain.Since(start).Seconds())
	return nil
}

// Run executes reduce, aggregate, and (when configured) publish. Per-file
// failures do not stop aggregation of the good cells but are still returned
// as a *RunError once the outputs are written.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	p.metrics.RunActive.Set(1)
	defer p.metrics.RunActive.Set(0)
	defer p.progress.done.Store(true)

	report := Report{StartedAt: domain.Now()}

	summary, err := p.Reduce(ctx)
	report.Discovered = summary.Discovered
	report.Reduced = summary.Reduced
	report.Failed = len(summary.Failures)

	var runErr *RunError
	if err != nil && !errors.As(err, &runErr) {
		return report, err
	}

	regional, cells, err := p.Aggregate(ctx)
	if err != nil {
		if runErr != nil {
			return report, errors.Join(err, runErr)
		}
		return report, err
	}
	report.Aggregated = regional.Cells
	report.TotalAreaKM2 = regional.TotalArea
	report.Regional = regional

	if err := p.Publish(ctx, cells, regional); err != nil {
		return report, err
	}

	report.FinishedAt = domain.Now()
	p.logger.Info("run complete", report.LogAttrs()...)

	if runErr != nil {
		return report, runErr
	}
	return report, nil
}
