// internal/workers/analytics/calculate-portfolio-analytics/config.go
package calculateportfolioanalytics

import (
	"time"

	"risk-analytics/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(wcfg config.WorkerConfig) *Config {
	timeout := config.GetDuration(wcfg.Timeout)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Config{Timeout: timeout}
}
