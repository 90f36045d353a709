package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/flux-climatology/internal/domain"
)

// Config holds all run settings, populated from environment variables.
type Config struct {
	InputDir        string
	OutputDir       string
	IntermediateDir string
	RegionalFile    string

	EarthRadiusKM float64
	Pi            float64
	ResolutionDeg float64

	Workers       int
	FailFast      bool
	AreaCacheSize int

	LogLevel  string
	LogFormat string
	// LogFile, when set, sends logs to a size-rotated file instead of stderr.
	LogFile string

	MetricsAddr     string
	MetricsTextfile string
	ShutdownTimeout time.Duration

	// Kafka publishing is enabled when KafkaBrokers is non-empty.
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	radius, err := parsePositiveFloat("EARTH_RADIUS_KM", domain.DefaultEarthRadiusKM)
	if err != nil {
		return nil, err
	}
	pi, err := parsePositiveFloat("PI_APPROX", domain.DefaultPi)
	if err != nil {
		return nil, err
	}
	resolution, err := parsePositiveFloat("GRID_RESOLUTION_DEG", domain.DefaultResolutionDeg)
	if err != nil {
		return nil, err
	}

	workers, err := parseIntInRange("WORKERS", 1, 1, 256)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseIntInRange("AREA_CACHE_SIZE", 4096, 1, 1<<20)
	if err != nil {
		return nil, err
	}

	failFast := false
	if v := os.Getenv("FAIL_FAST"); v != "" {
		failFast, err = strconv.ParseBool(v)
		if err != nil {
			return nil, errors.New("invalid FAIL_FAST")
		}
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		InputDir:        sharedcfg.EnvOrDefault("FLUX_INPUT_DIR", "."),
		OutputDir:       sharedcfg.EnvOrDefault("FLUX_OUTPUT_DIR", "."),
		IntermediateDir: sharedcfg.EnvOrDefault("FLUX_INTERMEDIATE_DIR", "monthly_precipitation"),
		RegionalFile:    sharedcfg.EnvOrDefault("FLUX_REGIONAL_FILE", "Regional_Weighted_Monthly_Average_Precipitation"),
		EarthRadiusKM:   radius,
		Pi:              pi,
		ResolutionDeg:   resolution,
		Workers:         workers,
		FailFast:        failFast,
		AreaCacheSize:   cacheSize,
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		LogFile:         os.Getenv("LOG_FILE"),
		MetricsAddr:     os.Getenv("METRICS_ADDR"),
		MetricsTextfile: os.Getenv("METRICS_TEXTFILE"),
		ShutdownTimeout: shutdownTimeout,
		KafkaBrokers:    brokers,
		KafkaTopic:      sharedcfg.EnvOrDefault("KAFKA_TOPIC", "precipitation-climatology"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants that flag overrides can also break.
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return errors.New("FLUX_INPUT_DIR is required")
	}
	if c.OutputDir == "" {
		return errors.New("FLUX_OUTPUT_DIR is required")
	}
	if c.IntermediateDir == "" {
		return errors.New("FLUX_INTERMEDIATE_DIR is required")
	}
	if c.RegionalFile == "" {
		return errors.New("FLUX_REGIONAL_FILE is required")
	}
	if cells := 360 / c.ResolutionDeg; math.Abs(cells-math.Round(cells)) > 1e-9 {
		return fmt.Errorf("GRID_RESOLUTION_DEG %g does not divide 360", c.ResolutionDeg)
	}
	if c.Workers < 1 {
		return errors.New("WORKERS must be at least 1")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return errors.New("KAFKA_BROKERS is set but KAFKA_TOPIC is empty")
	}
	return nil
}

// Sphere returns the area model described by the configuration.
func (c *Config) Sphere() domain.Sphere {
	return domain.Sphere{RadiusKM: c.EarthRadiusKM, Pi: c.Pi, ResolutionDeg: c.ResolutionDeg}
}

// IntermediatePath resolves the intermediate directory against OutputDir.
func (c *Config) IntermediatePath() string {
	return c.resolve(c.IntermediateDir)
}

// RegionalPath resolves the regional output file against OutputDir.
func (c *Config) RegionalPath() string {
	return c.resolve(c.RegionalFile)
}

// KafkaEnabled reports whether results are published to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.OutputDir, p)
}

func parsePositiveFloat(name string, def float64) (float64, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return v, nil
}

func parseIntInRange(name string, def, lo, hi int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be between %d and %d", name, lo, hi)
	}
	return n, nil
}
