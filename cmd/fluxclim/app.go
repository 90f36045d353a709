package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	fsadapter "github.com/couchcryptid/flux-climatology/internal/adapter/fs"
	httpadapter "github.com/couchcryptid/flux-climatology/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/flux-climatology/internal/adapter/kafka"
	"github.com/couchcryptid/flux-climatology/internal/config"
	"github.com/couchcryptid/flux-climatology/internal/domain"
	"github.com/couchcryptid/flux-climatology/internal/observability"
	"github.com/couchcryptid/flux-climatology/internal/pipeline"
)

// app is one fully wired pipeline plus its optional side services.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	registry  *prometheus.Registry
	pipeline  *pipeline.Pipeline
	publisher *kafkaadapter.Publisher
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetricsWith(reg)

	area, err := domain.NewAreaCache(cfg.Sphere(), cfg.AreaCacheSize)
	if err != nil {
		return nil, err
	}

	p := pipeline.New(
		fsadapter.NewFluxReader(cfg.InputDir, logger),
		fsadapter.NewClimatologyStore(cfg.IntermediatePath()),
		fsadapter.NewRegionalWriter(cfg.RegionalPath()),
		area,
		logger,
		metrics,
		pipeline.Options{
			Workers:  cfg.Workers,
			FailFast: cfg.FailFast,
		},
	)

	a := &app{cfg: cfg, logger: logger, registry: reg, pipeline: p}
	if cfg.KafkaEnabled() {
		a.publisher = kafkaadapter.NewPublisher(cfg, logger)
		p.WithPublisher(a.publisher)
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}
	return a, nil
}

// loggedError marks an error already written to the configured logger.
type loggedError struct{ error }

func (e loggedError) Unwrap() error { return e.error }

// withApp wires an app for cmd, runs stage, and tears the side services down.
// A failure is logged through the configured logger before the log output
// is closed.
func withApp(cmd *cobra.Command, cfg *config.Config, stage func(context.Context, *app) error) error {
	logger, logOut := observability.NewLogger(cfg, cmd.ErrOrStderr())
	defer logOut.Close() //nolint:errcheck // nothing left to log to

	a, err := newApp(cfg, logger)
	if err != nil {
		return logFailure(logger, cmd, err)
	}
	logger.Info("starting",
		"command", cmd.Name(),
		"input_dir", cfg.InputDir,
		"intermediate_dir", cfg.IntermediatePath(),
		"regional_file", cfg.RegionalPath(),
		"workers", cfg.Workers,
	)

	var srv *httpadapter.Server
	if cfg.MetricsAddr != "" {
		srv = httpadapter.NewServer(cfg.MetricsAddr, a.pipeline, a.registry, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	stageErr := stage(cmd.Context(), a)
	a.close(srv)
	if stageErr != nil {
		return logFailure(logger, cmd, stageErr)
	}
	return nil
}

func logFailure(logger *slog.Logger, cmd *cobra.Command, err error) error {
	logger.Error("fluxclim failed", "command", cmd.Name(), "error", err)
	return loggedError{err}
}

func (a *app) close(srv *httpadapter.Server) {
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			a.logger.Error("http server shutdown error", "error", err)
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Error("kafka publisher close error", "error", err)
		}
	}
	if a.cfg.MetricsTextfile != "" {
		if err := observability.WriteTextfile(a.cfg.MetricsTextfile, a.registry); err != nil {
			a.logger.Error("metrics textfile write error", "path", a.cfg.MetricsTextfile, "error", err)
		}
	}
}
