package session

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/danmuck/edgerelay/internal/protocol/frame"
)

var ErrInvalidConfig = errors.New("session: invalid config")

// BackoffConfig defines retry backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config defines relay transport knobs shared by sender and receiver.
type Config struct {
	ChunkSize         int
	IdleTimeout       time.Duration
	ConnectTimeout    time.Duration
	RetryInterval     time.Duration
	BindRetryInterval time.Duration
	// WriteTimeout bounds each frame write on the sender. Zero leaves
	// backpressure entirely to TCP.
	WriteTimeout time.Duration
	Backoff      BackoffConfig
}

func DefaultConfig() Config {
	return Config{
		ChunkSize:         frame.DefaultChunkSize,
		IdleTimeout:       5 * time.Second,
		ConnectTimeout:    5 * time.Second,
		RetryInterval:     10 * time.Millisecond,
		BindRetryInterval: 10 * time.Millisecond,
		Backoff: BackoffConfig{
			InitialDelay: 10 * time.Millisecond,
			Multiplier:   1.0,
		},
	}
}

// WithDefaults fills unset fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.ChunkSize == 0 {
		c.ChunkSize = def.ChunkSize
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = def.IdleTimeout
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.RetryInterval == 0 {
		c.RetryInterval = def.RetryInterval
	}
	if c.BindRetryInterval == 0 {
		c.BindRetryInterval = def.BindRetryInterval
	}
	if c.Backoff.InitialDelay == 0 {
		c.Backoff = BackoffConfig{InitialDelay: c.RetryInterval, Multiplier: 1.0}
	}
	return c
}

func (c Config) Validate() error {
	if c.ChunkSize <= 0 || c.ChunkSize > math.MaxInt32 {
		return fmt.Errorf("%w: chunk_size %d out of range", ErrInvalidConfig, c.ChunkSize)
	}
	for name, d := range map[string]time.Duration{
		"idle_timeout":        c.IdleTimeout,
		"connect_timeout":     c.ConnectTimeout,
		"retry_interval":      c.RetryInterval,
		"bind_retry_interval": c.BindRetryInterval,
		"write_timeout":       c.WriteTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidConfig, name)
		}
	}
	return nil
}

// MaxConnectAttempts is the number of dial attempts that fit in the connect
// window at RetryInterval spacing.
func (c Config) MaxConnectAttempts() int {
	if c.RetryInterval <= 0 {
		return 1
	}
	n := int(c.ConnectTimeout / c.RetryInterval)
	if n < 1 {
		return 1
	}
	return n
}

func (c Config) Limits() frame.Limits {
	return frame.Limits{MaxPayloadBytes: c.ChunkSize}
}
