// Package retry adapts env-driven retry settings to retry-go options.
package retry

import (
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	defaultAttempts = 5
	defaultDelay    = 2 * time.Second
	defaultMaxDelay = 60 * time.Second
)

type RetryConfig struct {
	Attempts uint          `env:"ATTEMPTS" envDefault:"5"`
	Delay    time.Duration `env:"DELAY" envDefault:"2s"`
	MaxDelay time.Duration `env:"MAX_DELAY" envDefault:"60s"`
}

// ToRetryOptions translates the config into retry-go options: exponential
// backoff from Delay, capped at MaxDelay when one is set.
func (rc *RetryConfig) ToRetryOptions() []retry.Option {
	opts := []retry.Option{
		retry.Attempts(rc.Attempts),
		retry.Delay(rc.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	}
	if rc.MaxDelay > 0 {
		opts = append(opts, retry.MaxDelay(rc.MaxDelay))
	}
	return opts
}

// DefaultRetryConfig fills in settings for callers wired without env config.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		Attempts: defaultAttempts,
		Delay:    defaultDelay,
		MaxDelay: defaultMaxDelay,
	}
}
