package session

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/danmuck/edgerelay/internal/protocol/frame"
	"github.com/danmuck/edgerelay/internal/testutil/testlog"
)

func TestNextBackoffDelayDeterministicNoJitter(t *testing.T) {
	testlog.Start(t)
	cfg := BackoffConfig{
		InitialDelay: 250 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
		Jitter:       false,
	}
	if got := NextBackoffDelay(cfg, 1, nil); got != 250*time.Millisecond {
		t.Fatalf("attempt1 got=%v", got)
	}
	if got := NextBackoffDelay(cfg, 2, nil); got != 500*time.Millisecond {
		t.Fatalf("attempt2 got=%v", got)
	}
	if got := NextBackoffDelay(cfg, 3, nil); got != time.Second {
		t.Fatalf("attempt3 got=%v", got)
	}
	if got := NextBackoffDelay(cfg, 6, nil); got != 5*time.Second {
		t.Fatalf("attempt6 got=%v", got)
	}
}

func TestNextBackoffDelayJitterBounds(t *testing.T) {
	testlog.Start(t)
	cfg := BackoffConfig{InitialDelay: 100 * time.Millisecond, Multiplier: 2.0, Jitter: true}
	rng := rand.New(rand.NewSource(7))
	for attempt := 2; attempt < 6; attempt++ {
		base := float64(100*time.Millisecond) * float64(int(1)<<(attempt-1))
		got := NextBackoffDelay(cfg, attempt, rng)
		if float64(got) < base*0.5 || float64(got) > base*1.5 {
			t.Fatalf("attempt%d delay=%v outside jitter bounds of %v", attempt, got, time.Duration(base))
		}
	}
}

func TestDefaultBackoffIsConstantRetryInterval(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig()
	for attempt := 1; attempt < 10; attempt++ {
		if got := NextBackoffDelay(cfg.Backoff, attempt, nil); got != cfg.RetryInterval {
			t.Fatalf("attempt%d got=%v want=%v", attempt, got, cfg.RetryInterval)
		}
	}
}

func TestDefaultConfigMatchesRelayContract(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig()
	if cfg.ChunkSize != 5*1024*1024 {
		t.Fatalf("chunk size=%d", cfg.ChunkSize)
	}
	if cfg.IdleTimeout != 5*time.Second || cfg.ConnectTimeout != 5*time.Second {
		t.Fatalf("unexpected timeouts idle=%v connect=%v", cfg.IdleTimeout, cfg.ConnectTimeout)
	}
	if got := cfg.MaxConnectAttempts(); got != 500 {
		t.Fatalf("max connect attempts=%d want=500", got)
	}
	if got := cfg.Limits(); got != frame.DefaultLimits() {
		t.Fatalf("limits=%+v", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestWithDefaultsKeepsOverrides(t *testing.T) {
	testlog.Start(t)
	cfg := Config{ChunkSize: 1024, RetryInterval: 5 * time.Millisecond}.WithDefaults()
	if cfg.ChunkSize != 1024 {
		t.Fatalf("chunk size override lost: %d", cfg.ChunkSize)
	}
	if cfg.IdleTimeout != 5*time.Second {
		t.Fatalf("idle timeout not defaulted: %v", cfg.IdleTimeout)
	}
	if cfg.Backoff.InitialDelay != 5*time.Millisecond {
		t.Fatalf("backoff should follow retry interval, got %v", cfg.Backoff.InitialDelay)
	}
	if got := cfg.MaxConnectAttempts(); got != 1000 {
		t.Fatalf("max connect attempts=%d", got)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	testlog.Start(t)
	cases := []Config{
		{ChunkSize: -1},
		{ChunkSize: 1 << 31},
		{ChunkSize: 1, IdleTimeout: -time.Second},
		{ChunkSize: 1, WriteTimeout: -time.Millisecond},
	}
	for i, cfg := range cases {
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("case %d: expected ErrInvalidConfig, got %v", i, err)
		}
	}
}
