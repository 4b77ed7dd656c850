// Package flowcontrol provides the shared ingress controls for task
// traffic: a priority-tiered rate limiter and payload deduplication.
// One instance serves all teams.
package flowcontrol

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Tier is a rate limiting band. Lower tiers carry more urgent traffic
// and get more generous budgets.
type Tier string

const (
	TierP0 Tier = "P0"
	TierP1 Tier = "P1"
	TierP2 Tier = "P2"
	TierP3 Tier = "P3"
)

// TierLimit is the token bucket shape for one tier.
type TierLimit struct {
	PerSecond float64
	Burst     int
}

// DefaultTierLimits is the built-in budget per tier.
func DefaultTierLimits() map[Tier]TierLimit {
	return map[Tier]TierLimit{
		TierP0: {PerSecond: 50, Burst: 100},
		TierP1: {PerSecond: 20, Burst: 40},
		TierP2: {PerSecond: 10, Burst: 20},
		TierP3: {PerSecond: 5, Burst: 10},
	}
}

// TierForPriority maps a task priority to its rate tier. Priority 1 is
// the most urgent.
func TierForPriority(priority int) Tier {
	switch {
	case priority <= 2:
		return TierP0
	case priority <= 5:
		return TierP1
	case priority <= 8:
		return TierP2
	default:
		return TierP3
	}
}

// Limiter applies per-key, per-tier token buckets. Keys are typically
// tenant ids so one noisy tenant cannot starve the rest.
type Limiter struct {
	limits map[Tier]TierLimit

	mu       sync.RWMutex
	limiters map[string]*rate.Limiter // key: "<key>/<tier>"
}

// NewLimiter creates a limiter. A nil limits map uses
// DefaultTierLimits.
func NewLimiter(limits map[Tier]TierLimit) *Limiter {
	if limits == nil {
		limits = DefaultTierLimits()
	}
	return &Limiter{
		limits:   limits,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether one submission for the key at the priority may
// proceed now. Tiers without a configured limit are unrestricted.
func (l *Limiter) Allow(key string, priority int) bool {
	tier := TierForPriority(priority)
	limit, ok := l.limits[tier]
	if !ok {
		return true
	}
	return l.getOrCreateLimiter(key, tier, limit).Allow()
}

// RetryAfter returns how long the key's tier bucket needs before it
// would admit one submission.
func (l *Limiter) RetryAfter(key string, priority int) time.Duration {
	tier := TierForPriority(priority)
	limit, ok := l.limits[tier]
	if !ok {
		return 0
	}
	reservation := l.getOrCreateLimiter(key, tier, limit).Reserve()
	delay := reservation.Delay()
	reservation.Cancel()
	return delay
}

func (l *Limiter) getOrCreateLimiter(key string, tier Tier, limit TierLimit) *rate.Limiter {
	bucketKey := key + "/" + string(tier)

	l.mu.RLock()
	limiter, exists := l.limiters[bucketKey]
	l.mu.RUnlock()
	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, exists = l.limiters[bucketKey]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(rate.Limit(limit.PerSecond), limit.Burst)
	l.limiters[bucketKey] = limiter
	return limiter
}
