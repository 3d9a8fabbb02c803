// internal/workers/application/send-notification/config.go
package sendnotification

import (
	"time"

	"hiring-notifier/internal/common/config"
)

type Config struct {
	MaxJobsActive int
	Timeout       time.Duration
}

// LoadConfig reads the send-notification entry of the workers section.
func LoadConfig(cfg *config.Config) *Config {
	wc := config.GetWorkerConfig(cfg, TaskType)
	out := &Config{
		MaxJobsActive: wc.MaxJobsActive,
		Timeout:       config.GetDuration(wc.Timeout),
	}
	if out.MaxJobsActive <= 0 {
		out.MaxJobsActive = 5
	}
	if out.Timeout <= 0 {
		out.Timeout = 30 * time.Second
	}
	return out
}
