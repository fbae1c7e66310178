package scheduler

import (
	"time"

	"github.com/smallbiznis/karat/internal/config"
)

const (
	JobRateRefresh     = "rate_refresh"
	JobAlertEvaluation = "alert_evaluation"
)

// Config controls how often the run loop wakes and how often each job is due.
type Config struct {
	RunInterval             time.Duration
	RateRefreshInterval     time.Duration
	RateRefreshTimeout      time.Duration
	AlertEvaluationInterval time.Duration
	AlertEvaluationTimeout  time.Duration
	// EnabledJobs limits the jobs this process runs. Empty runs all of them.
	EnabledJobs []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval:             time.Minute,
		RateRefreshInterval:     24 * time.Hour,
		RateRefreshTimeout:      5 * time.Minute,
		AlertEvaluationInterval: time.Hour,
		AlertEvaluationTimeout:  10 * time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval:             cfg.Scheduler.RunInterval,
		RateRefreshInterval:     cfg.Scheduler.RateRefreshInterval,
		AlertEvaluationInterval: cfg.Scheduler.AlertEvaluationInterval,
		EnabledJobs:             cfg.Scheduler.EnabledJobs,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.RateRefreshInterval <= 0 {
		c.RateRefreshInterval = defaults.RateRefreshInterval
	}
	if c.RateRefreshTimeout <= 0 {
		c.RateRefreshTimeout = defaults.RateRefreshTimeout
	}
	if c.AlertEvaluationInterval <= 0 {
		c.AlertEvaluationInterval = defaults.AlertEvaluationInterval
	}
	if c.AlertEvaluationTimeout <= 0 {
		c.AlertEvaluationTimeout = defaults.AlertEvaluationTimeout
	}
	return c
}
