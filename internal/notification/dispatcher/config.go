package dispatcher

import (
	"time"

	"hiring-notifier/internal/common/config"
)

type Config struct {
	// MaxAttempts counts the first try.
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Jitter         float64
	// Budget bounds all attempts and the waits between them.
	Budget   time.Duration
	DedupTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		Jitter:         0.2,
		Budget:         10 * time.Second,
		DedupTTL:       10 * time.Minute,
	}
}

// ConfigFrom converts the millisecond-based file configuration.
func ConfigFrom(cfg config.DispatchConfig) Config {
	out := Config{
		MaxAttempts:    cfg.MaxAttempts,
		InitialBackoff: config.GetDuration(cfg.InitialBackoff),
		MaxBackoff:     config.GetDuration(cfg.MaxBackoff),
		Jitter:         cfg.Jitter,
		Budget:         config.GetDuration(cfg.Budget),
		DedupTTL:       config.GetDuration(cfg.DedupTTL),
	}
	return out.withDefaults()
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxAttempts < 1 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = def.InitialBackoff
	}
	if c.MaxBackoff < c.InitialBackoff {
		c.MaxBackoff = c.InitialBackoff
	}
	if c.Budget <= 0 {
		c.Budget = def.Budget
	}
	if c.DedupTTL <= 0 {
		c.DedupTTL = def.DedupTTL
	}
	return c
}
