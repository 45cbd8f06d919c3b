// internal/workers/analytics/detect-coverage-drift/config.go
package detectcoveragedrift

import (
	"time"

	"risk-analytics/internal/analytics/coverage"
	"risk-analytics/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// Threshold is the lowest severity that raises an alert.
	Threshold coverage.DriftSeverity
	// SampleSize caps how many completed records are compared.
	SampleSize int
}

func LoadConfig(wcfg config.WorkerConfig, acfg config.AnalyticsConfig) *Config {
	timeout := config.GetDuration(wcfg.Timeout)
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	threshold := coverage.DriftSeverity(acfg.DriftAlertSeverity)
	if threshold == "" {
		threshold = coverage.DriftHigh
	}
	size := acfg.MaxPageSize
	if size <= 0 {
		size = 1000
	}
	return &Config{Timeout: timeout, Threshold: threshold, SampleSize: size}
}
