package main

import (
	"fmt"
	"strconv"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/couchcryptid/flux-climatology/internal/config"
)

func newRootCmd() *cobra.Command {
	var cfg *config.Config

	root := &cobra.Command{
		Use:   "fluxclim",
		Short: "Build monthly precipitation climatologies from daily flux files",
		Long: `fluxclim reads fluxes_<lat>_<lon> files, reduces each to twelve
across-year monthly totals, and writes the area-weighted regional average.

Settings come from the environment (FLUX_INPUT_DIR, WORKERS, ...); flags
override them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := applyFlags(loaded, cmd.Flags()); err != nil {
				return err
			}
			if err := loaded.Validate(); err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringP("input-dir", "i", "", "directory holding fluxes_<lat>_<lon> files (FLUX_INPUT_DIR)")
	pf.StringP("output-dir", "o", "", "directory for all outputs (FLUX_OUTPUT_DIR)")
	pf.String("intermediate-dir", "", "per-cell climatology directory, relative to the output dir (FLUX_INTERMEDIATE_DIR)")
	pf.String("regional-file", "", "regional average file, relative to the output dir (FLUX_REGIONAL_FILE)")
	pf.IntP("workers", "w", 1, "flux files reduced concurrently (WORKERS)")
	pf.Bool("fail-fast", false, "abort on the first malformed flux file (FAIL_FAST)")
	pf.String("log-level", "info", "debug, info, warn, or error (LOG_LEVEL)")
	pf.String("log-format", "json", "json or text (LOG_FORMAT)")
	pf.String("log-file", "", "write logs to this rotated file instead of stderr (LOG_FILE)")
	pf.String("metrics-addr", "", "serve /metrics, /healthz, /readyz, and /status on this address (METRICS_ADDR)")
	pf.String("metrics-textfile", "", "write metrics here when the run ends (METRICS_TEXTFILE)")
	pf.String("kafka-brokers", "", "comma-separated brokers; enables publishing (KAFKA_BROKERS)")
	pf.String("kafka-topic", "", "topic for published results (KAFKA_TOPIC)")

	configOf := func() *config.Config { return cfg }
	run := newRunCmd(configOf)
	root.AddCommand(run, newReduceCmd(configOf), newAggregateCmd(configOf), newValidateCmd(configOf))
	root.RunE = run.RunE

	return root
}

// applyFlags copies explicitly set flags over the environment configuration.
func applyFlags(cfg *config.Config, flags *pflag.FlagSet) error {
	var err error
	flags.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		v := f.Value.String()
		switch f.Name {
		case "input-dir":
			cfg.InputDir = v
		case "output-dir":
			cfg.OutputDir = v
		case "intermediate-dir":
			cfg.IntermediateDir = v
		case "regional-file":
			cfg.RegionalFile = v
		case "workers":
			cfg.Workers, err = strconv.Atoi(v)
		case "fail-fast":
			cfg.FailFast, err = strconv.ParseBool(v)
		case "log-level":
			cfg.LogLevel = v
		case "log-format":
			cfg.LogFormat = v
		case "log-file":
			cfg.LogFile = v
		case "metrics-addr":
			cfg.MetricsAddr = v
		case "metrics-textfile":
			cfg.MetricsTextfile = v
		case "kafka-brokers":
			cfg.KafkaBrokers = nil
			if v != "" {
				cfg.KafkaBrokers = sharedcfg.ParseBrokers(v)
			}
		case "kafka-topic":
			cfg.KafkaTopic = v
		}
		if err != nil {
			err = fmt.Errorf("--%s: %w", f.Name, err)
		}
	})
	return err
}
