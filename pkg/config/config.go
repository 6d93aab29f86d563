// Package config loads runtime defaults for ctingest from the environment.
// CLI flags override these values; see internal/cli.
package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures tunable runtime settings. Required run parameters
// (bucket, account, region, dates) are CLI-only and live in ingest.Params.
type Config struct {
	// DataDir is the root of the local data layout (raw/, processed/, reports/).
	DataDir string `env:"CTINGEST_DATA_DIR" envDefault:"data"`

	// Concurrency is the number of pipeline workers. 0 means auto (NumCPU,
	// clamped to [4,16] like the download path).
	Concurrency int `env:"CTINGEST_CONCURRENCY" envDefault:"0"`

	// ValidateRecords enables structural validation of decompressed payloads.
	ValidateRecords bool `env:"CTINGEST_VALIDATE_RECORDS" envDefault:"true"`

	// Retry tuning for listing and fetching.
	MaxAttempts       int           `env:"CTINGEST_MAX_ATTEMPTS" envDefault:"4"`
	RetryInitialDelay time.Duration `env:"CTINGEST_RETRY_INITIAL_DELAY" envDefault:"500ms"`
	RetryMaxDelay     time.Duration `env:"CTINGEST_RETRY_MAX_DELAY" envDefault:"30s"`

	// Logging.
	Debug     bool `env:"CTINGEST_DEBUG" envDefault:"false"`
	HumanLogs bool `env:"CTINGEST_HUMAN_LOGS" envDefault:"false"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// EffectiveConcurrency resolves the worker count, applying the auto default.
func (c *Config) EffectiveConcurrency() int {
	if c.Concurrency > 0 {
		return c.Concurrency
	}
	n := runtime.NumCPU()
	if n < 4 {
		n = 4
	}
	if n > 16 {
		n = 16
	}
	return n
}
