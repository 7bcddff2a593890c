package ratelimit

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(limit int) *Config {
	return &Config{
		Enabled:       true,
		DefaultLimit:  limit,
		DefaultWindow: time.Minute,
		Whitelist:     map[string]bool{},
		Blacklist:     map[string]bool{},
	}
}

// frozen pins the limiter clock so refill never happens mid-test.
func frozen(l *Limiter, at time.Time) {
	l.now = func() time.Time { return at }
}

func TestLimiter_Allow(t *testing.T) {
	l := NewLimiter(testConfig(5))
	defer l.Stop()
	frozen(l, time.Unix(1_700_000_000, 0))

	for i := 0; i < 5; i++ {
		allowed, info := l.Allow("10.0.0.1", "/jobs", "GET")
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 5, info.Limit)
		assert.Equal(t, 4-i, info.Remaining)
	}

	allowed, info := l.Allow("10.0.0.1", "/jobs", "GET")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Greater(t, info.RetryAfter, time.Duration(0))
	assert.True(t, info.ResetTime.After(time.Unix(1_700_000_000, 0)))

	// Other clients have their own buckets.
	allowed, _ = l.Allow("10.0.0.2", "/jobs", "GET")
	assert.True(t, allowed)
}

func TestLimiter_Refill(t *testing.T) {
	l := NewLimiter(testConfig(60)) // one token per second
	defer l.Stop()
	start := time.Unix(1_700_000_000, 0)
	frozen(l, start)

	for i := 0; i < 60; i++ {
		l.Allow("c", "/x", "GET")
	}
	allowed, _ := l.Allow("c", "/x", "GET")
	require.False(t, allowed)

	frozen(l, start.Add(1100*time.Millisecond))
	allowed, _ = l.Allow("c", "/x", "GET")
	assert.True(t, allowed)
}

func TestLimiter_Whitelist(t *testing.T) {
	cfg := testConfig(1).WithLists("127.0.0.1, 10.0.0.9", "")
	l := NewLimiter(cfg)
	defer l.Stop()

	for i := 0; i < 10; i++ {
		allowed, info := l.Allow("127.0.0.1", "/autopilot/run", "POST")
		assert.True(t, allowed)
		assert.True(t, info.Allowed)
	}
}

func TestLimiter_Blacklist(t *testing.T) {
	l := NewLimiter(testConfig(100).WithLists("", "192.168.1.1"))
	defer l.Stop()

	allowed, _ := l.Allow("192.168.1.1", "/health", "GET")
	assert.False(t, allowed)

	allowed, _ = l.Allow("192.168.1.2", "/health", "GET")
	assert.True(t, allowed)
}

func TestLimiter_Disabled(t *testing.T) {
	cfg := testConfig(1)
	cfg.Enabled = false
	l := NewLimiter(cfg)
	defer l.Stop()

	for i := 0; i < 5; i++ {
		allowed, _ := l.Allow("c", "/autopilot/run", "POST")
		assert.True(t, allowed)
	}
}

func TestLimiter_EndpointSpecific(t *testing.T) {
	cfg := testConfig(100)
	cfg.EndpointConfigs = DefaultEndpointConfigs()
	l := NewLimiter(cfg)
	defer l.Stop()
	frozen(l, time.Unix(1_700_000_000, 0))

	// The run endpoint has a burst of 2.
	for i := 0; i < 2; i++ {
		allowed, info := l.Allow("c", "/autopilot/run", "POST")
		require.True(t, allowed)
		assert.Equal(t, 10, info.Limit)
	}
	allowed, _ := l.Allow("c", "/autopilot/run", "POST")
	assert.False(t, allowed)

	// Import endpoints share the /jobs/ prefix config but keep separate buckets per path.
	allowed, info := l.Allow("c", "/jobs/import", "POST")
	assert.True(t, allowed)
	assert.Equal(t, 60, info.Limit)

	// Health is never limited.
	for i := 0; i < 200; i++ {
		allowed, _ := l.Allow("c", "/health", "GET")
		require.True(t, allowed)
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	l := NewLimiter(testConfig(100))
	defer l.Stop()
	frozen(l, time.Unix(1_700_000_000, 0))

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if ok, _ := l.Allow("shared", "/jobs", "GET"); ok {
					allowed.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(100), allowed.Load())
}

func TestLimiter_Cleanup(t *testing.T) {
	l := NewLimiter(testConfig(10))
	defer l.Stop()
	start := time.Unix(1_700_000_000, 0)
	frozen(l, start)

	for i := 0; i < 5; i++ {
		l.Allow(fmt.Sprintf("client-%d", i), "/jobs", "GET")
	}
	require.Len(t, l.buckets, 5)

	frozen(l, start.Add(30*time.Minute))
	l.Allow("client-0", "/jobs", "GET")

	frozen(l, start.Add(idleTTL+time.Minute))
	l.cleanupBuckets()

	assert.Len(t, l.buckets, 1)
	assert.Contains(t, l.buckets, "client-0:/jobs:GET")
}

func TestNewLimiter_NilConfig(t *testing.T) {
	l := NewLimiter(nil)
	defer l.Stop()

	require.NotNil(t, l.config)
	assert.True(t, l.config.Enabled)
	allowed, _ := l.Allow("c", "/health", "GET")
	assert.True(t, allowed)
}

func TestLimiter_StopIsIdempotent(t *testing.T) {
	l := NewLimiter(DefaultConfig())
	l.Stop()
	assert.NotPanics(t, l.Stop)
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs()

	tests := []struct {
		name      string
		path      string
		method    string
		wantPath  string
		wantLimit int
		wantNil   bool
	}{
		{"exact run", "/autopilot/run", "POST", "/autopilot/run", 10, false},
		{"exact stream", "/autopilot/run/stream", "POST", "/autopilot/run/stream", 10, false},
		{"prefix import", "/jobs/import-board", "POST", "/jobs/", 60, false},
		{"method mismatch", "/autopilot/run", "GET", "", 0, true},
		{"health unlimited", "/health", "GET", "", 0, false},
		{"metrics unlimited", "/metrics", "GET", "", 0, false},
		{"unknown", "/other", "POST", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantPath, got.Path)
			assert.Equal(t, tt.wantLimit, got.Limit)
		})
	}
}
