// Package ratelimit caps how often a client may call the /planes endpoint.
// Two windows apply at once: requests per hour and requests per month.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/time/rate"
)

// Month is the length of the monthly window.
const Month = 30 * 24 * time.Hour

// Limits configures both windows. A zero limit disables that window.
type Limits struct {
	PerHour  int
	PerMonth int
}

// Limiter decides whether the client identified by key may proceed.
type Limiter interface {
	// Allow consumes one request for key. When it returns false, retryAfter
	// estimates when the next request would be allowed.
	Allow(ctx context.Context, key string) (ok bool, retryAfter time.Duration, err error)
}

// Memory is a per-process token bucket limiter keyed by client.
type Memory struct {
	mu      sync.Mutex
	limits  Limits
	clients map[string]*clientBuckets
	now     func() time.Time
}

type clientBuckets struct {
	hourly   *rate.Limiter
	monthly  *rate.Limiter
	lastSeen time.Time
}

// NewMemory creates an in-memory limiter.
func NewMemory(limits Limits) *Memory {
	return &Memory{
		limits:  limits,
		clients: make(map[string]*clientBuckets),
		now:     time.Now,
	}
}

func newBucket(limit int, window time.Duration) *rate.Limiter {
	if limit <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit)
}

// Allow implements Limiter.
func (m *Memory) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	c, ok := m.clients[key]
	if !ok {
		c = &clientBuckets{
			hourly:  newBucket(m.limits.PerHour, time.Hour),
			monthly: newBucket(m.limits.PerMonth, Month),
		}
		m.clients[key] = c
	}
	c.lastSeen = now

	hourly := c.hourly.ReserveN(now, 1)
	if wait := hourly.DelayFrom(now); wait > 0 {
		hourly.CancelAt(now)
		return false, wait, nil
	}

	monthly := c.monthly.ReserveN(now, 1)
	if wait := monthly.DelayFrom(now); wait > 0 {
		monthly.CancelAt(now)
		hourly.CancelAt(now)
		return false, wait, nil
	}

	return true, 0, nil
}

// Sweep forgets clients idle for longer than idle and returns how many were
// dropped.
func (m *Memory) Sweep(idle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-idle)
	n := 0
	for key, c := range m.clients {
		if c.lastSeen.Before(cutoff) {
			delete(m.clients, key)
			n++
		}
	}
	return n
}

// Redis is a fixed-window limiter shared by every server using the same
// redis instance.
type Redis struct {
	client *redis.Client
	limits Limits
	prefix string
	now    func() time.Time
}

// NewRedis creates a limiter storing counters under "ratelimit:".
func NewRedis(client *redis.Client, limits Limits) *Redis {
	return &Redis{
		client: client,
		limits: limits,
		prefix: "ratelimit:",
		now:    time.Now,
	}
}

type window struct {
	name  string
	limit int
	size  time.Duration
}

// Allow implements Limiter.
func (r *Redis) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	now := r.now()
	windows := []window{
		{"h", r.limits.PerHour, time.Hour},
		{"m", r.limits.PerMonth, Month},
	}

	var active []window
	for _, w := range windows {
		if w.limit > 0 {
			active = append(active, w)
		}
	}
	if len(active) == 0 {
		return true, 0, nil
	}

	counts := make([]*redis.IntCmd, len(active))
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, w := range active {
			k := r.counterKey(key, w, now)
			counts[i] = pipe.Incr(ctx, k)
			pipe.Expire(ctx, k, w.size)
		}
		return nil
	})
	if err != nil {
		return false, 0, fmt.Errorf("failed to update rate limit counters: %w", err)
	}

	for i, w := range active {
		if counts[i].Val() > int64(w.limit) {
			return false, windowRemaining(now, w.size), nil
		}
	}
	return true, 0, nil
}

func (r *Redis) counterKey(key string, w window, now time.Time) string {
	return fmt.Sprintf("%s%s:%s:%d", r.prefix, key, w.name, now.UnixNano()/int64(w.size))
}

// windowRemaining is the time left in the fixed window containing now.
func windowRemaining(now time.Time, size time.Duration) time.Duration {
	elapsed := time.Duration(now.UnixNano() % int64(size))
	return size - elapsed
}
