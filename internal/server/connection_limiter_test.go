package server

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestGlobalConnectionLimiter_AcquireRelease(t *testing.T) {
	limiter := NewGlobalConnectionLimiter(3)

	assert.True(t, limiter.Acquire())
	assert.True(t, limiter.Acquire())
	assert.True(t, limiter.Acquire())
	assert.Equal(t, int64(3), limiter.Current())

	// 4th acquire should fail
	assert.False(t, limiter.Acquire())
	assert.Equal(t, int64(3), limiter.Current())

	limiter.Release()
	assert.Equal(t, int64(2), limiter.Current())

	assert.True(t, limiter.Acquire())
	assert.Equal(t, int64(3), limiter.Current())
}

func TestGlobalConnectionLimiter_Concurrent(t *testing.T) {
	limiter := NewGlobalConnectionLimiter(100)
	var successCount, failCount int64

	start := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if limiter.Acquire() {
				atomic.AddInt64(&successCount, 1)
			} else {
				atomic.AddInt64(&failCount, 1)
			}
		}()
	}

	close(start)
	wg.Wait()

	assert.Equal(t, int64(100), atomic.LoadInt64(&successCount))
	assert.Equal(t, int64(100), atomic.LoadInt64(&failCount))
	assert.Equal(t, int64(100), limiter.Current())
}

func TestGlobalConnectionLimiter_ZeroIsUnlimited(t *testing.T) {
	limiter := NewGlobalConnectionLimiter(0)
	for range 1000 {
		assert.True(t, limiter.Acquire())
	}
	assert.Equal(t, int64(1000), limiter.Current())
	assert.Zero(t, limiter.Max())
}

func TestIPConnectionLimiter_AcquireRelease(t *testing.T) {
	limiter := NewIPConnectionLimiter(2)

	assert.True(t, limiter.Acquire("192.168.1.1"))
	assert.True(t, limiter.Acquire("192.168.1.1"))
	assert.Equal(t, 2, limiter.Count("192.168.1.1"))

	assert.False(t, limiter.Acquire("192.168.1.1"))

	assert.True(t, limiter.Acquire("192.168.1.2"))
	assert.Equal(t, 2, limiter.UniqueIPs())

	limiter.Release("192.168.1.1")
	assert.Equal(t, 1, limiter.Count("192.168.1.1"))

	assert.True(t, limiter.Acquire("192.168.1.1"))
}

func TestIPConnectionLimiter_ReleaseRemovesEmptyIP(t *testing.T) {
	limiter := NewIPConnectionLimiter(5)

	assert.True(t, limiter.Acquire("192.168.1.1"))
	limiter.Release("192.168.1.1")
	limiter.Release("192.168.1.1")

	assert.Equal(t, 0, limiter.UniqueIPs())
	assert.Equal(t, 0, limiter.Count("192.168.1.1"))
}

func TestIPConnectionLimiter_ZeroIsUnlimited(t *testing.T) {
	limiter := NewIPConnectionLimiter(0)
	for range 100 {
		assert.True(t, limiter.Acquire("127.0.0.1"))
	}
	assert.Equal(t, 100, limiter.Count("127.0.0.1"))
}

func TestConnectionRateLimiter_Allow(t *testing.T) {
	limiter := NewConnectionRateLimiter(2.0, 2, clockwork.NewFakeClock())

	assert.True(t, limiter.Allow("192.168.1.1"))
	assert.True(t, limiter.Allow("192.168.1.1"))

	// Burst exhausted, clock has not moved
	assert.False(t, limiter.Allow("192.168.1.1"))

	assert.True(t, limiter.Allow("192.168.1.2"))
	assert.Equal(t, 2, limiter.ActiveLimiters())
}

func TestConnectionRateLimiter_TokenRefill(t *testing.T) {
	clock := clockwork.NewFakeClock()
	limiter := NewConnectionRateLimiter(10.0, 5, clock)

	for range 5 {
		assert.True(t, limiter.Allow("192.168.1.1"))
	}
	assert.False(t, limiter.Allow("192.168.1.1"))

	// 100ms = 1 token at 10/sec
	clock.Advance(100 * time.Millisecond)
	assert.True(t, limiter.Allow("192.168.1.1"))
	assert.False(t, limiter.Allow("192.168.1.1"))
}

func TestConnectionRateLimiter_ZeroRateDisabled(t *testing.T) {
	limiter := NewConnectionRateLimiter(0, 0, clockwork.NewFakeClock())
	for range 100 {
		assert.True(t, limiter.Allow("192.168.1.1"))
	}
	assert.Zero(t, limiter.ActiveLimiters())
}

func TestConnectionRateLimiter_Cleanup(t *testing.T) {
	clock := clockwork.NewFakeClock()
	limiter := NewConnectionRateLimiter(10.0, 5, clock)

	limiter.Allow("192.168.1.1")
	limiter.Allow("192.168.1.2")
	assert.Equal(t, 2, limiter.ActiveLimiters())

	clock.Advance(rateLimiterIdleTTL + time.Second)
	limiter.Allow("192.168.1.3")

	// Idle entries dropped on the next Allow after the cleanup interval
	assert.Equal(t, 1, limiter.ActiveLimiters())
}

func TestConnectionLimits_Acquire(t *testing.T) {
	limits := NewConnectionLimits(Limits{MaxConnections: 100, MaxConnectionsPerIP: 10, ConnectionRate: 5, ConnectionBurst: 5}, clockwork.NewFakeClock())

	ok, reason := limits.Acquire("192.168.1.1")
	assert.True(t, ok)
	assert.Equal(t, LimitReason(""), reason)

	limits.Release("192.168.1.1")
	assert.Zero(t, limits.Global().Current())
}

func TestConnectionLimits_Reasons(t *testing.T) {
	tests := []struct {
		name   string
		limits Limits
		ips    []string
		want   LimitReason
	}{
		{"global", Limits{MaxConnections: 2}, []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}, LimitReasonGlobal},
		{"per ip", Limits{MaxConnectionsPerIP: 2}, []string{"10.0.0.1", "10.0.0.1", "10.0.0.1"}, LimitReasonPerIP},
		{"rate", Limits{ConnectionRate: 2, ConnectionBurst: 2}, []string{"10.0.0.1", "10.0.0.1", "10.0.0.1"}, LimitReasonRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limits := NewConnectionLimits(tt.limits, clockwork.NewFakeClock())

			last := len(tt.ips) - 1
			for i, ip := range tt.ips[:last] {
				ok, _ := limits.Acquire(ip)
				assert.True(t, ok, "acquire %d", i)
			}

			ok, reason := limits.Acquire(tt.ips[last])
			assert.False(t, ok)
			assert.Equal(t, tt.want, reason)
		})
	}
}

func TestConnectionLimits_RollbackOnFailure(t *testing.T) {
	limits := NewConnectionLimits(Limits{MaxConnections: 100, MaxConnectionsPerIP: 1}, clockwork.NewFakeClock())

	ok1, _ := limits.Acquire("192.168.1.1")
	assert.True(t, ok1)
	assert.Equal(t, int64(1), limits.Global().Current())

	ok2, reason := limits.Acquire("192.168.1.1")
	assert.False(t, ok2)
	assert.Equal(t, LimitReasonPerIP, reason)

	// Global counter rolled back
	assert.Equal(t, int64(1), limits.Global().Current())

	limits.Release("192.168.1.1")
	assert.Equal(t, int64(0), limits.Global().Current())
	assert.Zero(t, limits.PerIP().UniqueIPs())
}

func TestConnectionLimits_Concurrent(t *testing.T) {
	limits := NewConnectionLimits(Limits{MaxConnections: 50, MaxConnectionsPerIP: 5}, clockwork.NewFakeClock())

	var wg sync.WaitGroup
	var successCount atomic.Int64
	start := make(chan struct{})

	// 10 IPs x 10 attempts, held until all have tried: exactly 5 per IP succeed
	held := make(chan string, 100)
	for ip := 1; ip <= 10; ip++ {
		for range 10 {
			wg.Add(1)
			go func(ip string) {
				defer wg.Done()
				<-start
				if ok, _ := limits.Acquire(ip); ok {
					successCount.Add(1)
					held <- ip
				}
			}(fmt.Sprintf("192.168.1.%d", ip))
		}
	}
	close(start)
	wg.Wait()
	close(held)

	assert.Equal(t, int64(50), successCount.Load())
	for ip := range held {
		limits.Release(ip)
	}
	assert.Equal(t, int64(0), limits.Global().Current())
}
