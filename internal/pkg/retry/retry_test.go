package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToRetryOptions_OmitsUnsetMaxDelay(t *testing.T) {
	cfg := RetryConfig{Attempts: 4, Delay: time.Second}
	assert.Len(t, cfg.ToRetryOptions(), 4)

	cfg.MaxDelay = 10 * time.Second
	assert.Len(t, cfg.ToRetryOptions(), 5)
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	assert.Equal(t, uint(5), cfg.Attempts)
	assert.Equal(t, 2*time.Second, cfg.Delay)
	assert.Equal(t, 60*time.Second, cfg.MaxDelay)
}
