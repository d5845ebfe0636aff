package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/sirupsen/logrus"
)

const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

type Config struct {
	Server struct {
		Port string `env:"PORT" envDefault:"5250"`

		// Origins allowed by CORS; "*" allows any
		AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

		ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	}

	Database struct {
		// Store backend: sqlite or mongo
		Driver string `env:"STORE_DRIVER" envDefault:"sqlite"`

		Path string `env:"DATABASE_PATH" envDefault:"database/neighborfit.db"`

		MongoURI        string        `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
		MongoDatabase   string        `env:"MONGO_DATABASE" envDefault:"neighborfit"`
		MongoCollection string        `env:"MONGO_COLLECTION" envDefault:"neighborhoods"`
		ConnectTimeout  time.Duration `env:"MONGO_CONNECT_TIMEOUT" envDefault:"10s"`

		// Load the bundled sample neighborhoods at startup
		SeedOnStart bool `env:"SEED_ON_START" envDefault:"false"`
	}

	// BatchProcessing configures the bulk import pipeline
	BatchProcessing struct {
		// Maximum number of neighborhoods accepted in one import request
		MaxBatchSize int `env:"BATCH_MAX_SIZE" envDefault:"100"`

		// Number of import batches that may wait in the queue
		QueueSize int `env:"BATCH_QUEUE_SIZE" envDefault:"16"`

		// Number of concurrent batch processors
		ProcessorCount int `env:"BATCH_PROCESSOR_COUNT" envDefault:"2"`

		// Maximum number of retries for a record that fails on a store error
		MaxRetries int `env:"BATCH_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"BATCH_RETRY_DELAY" envDefault:"5"`
	}

	Scheduler struct {
		// Cron spec for the statistics report; empty disables it
		StatsReportCron string `env:"STATS_REPORT_CRON" envDefault:"@every 1h"`
	}

	Geocoding struct {
		// Fill missing coordinates in the background at startup
		OnStart bool `env:"GEOCODE_ON_START" envDefault:"false"`

		BaseURL string `env:"GEOCODER_URL" envDefault:"https://nominatim.openstreetmap.org"`

		// Directory of the JSON lookup cache; empty keeps it in memory only
		CacheDir string `env:"GEOCODE_CACHE_DIR"`

		// Minimum spacing between requests to the geocoding service
		Interval time.Duration `env:"GEOCODE_INTERVAL" envDefault:"1s"`
	}

	Search struct {
		DefaultLimit int `env:"SEARCH_DEFAULT_LIMIT" envDefault:"20"`
	}

	Logging struct {
		Level string `env:"LOG_LEVEL" envDefault:"info"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Database.Driver) {
	case DriverSQLite, DriverMongo:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Database.Driver)
	}
	if c.BatchProcessing.ProcessorCount < 1 {
		return fmt.Errorf("BATCH_PROCESSOR_COUNT must be at least 1")
	}
	if c.BatchProcessing.MaxBatchSize < 1 {
		return fmt.Errorf("BATCH_MAX_SIZE must be at least 1")
	}
	if c.BatchProcessing.MaxRetries < 0 || c.BatchProcessing.RetryDelay < 0 {
		return fmt.Errorf("batch retries and retry delay must not be negative")
	}
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	return nil
}

// NewLogger returns the JSON logger used across the server at the configured level.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(c.Logging.Level); err == nil {
		logger.SetLevel(level)
	}
	return logger
}
