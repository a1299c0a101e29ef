package ratelimit

import (
	"math"
	"sync"
	"time"

	"github.com/triage-ai/toolgate/internal/registry"
)

// Budget configures one token bucket.
type Budget struct {
	Capacity   float64 // maximum tokens (burst size)
	RefillRate float64 // tokens added per second
}

// DefaultBudgets returns the per-tier budgets used when nothing is
// configured. The low tier is effectively unlimited; tiers above it get
// progressively tighter.
func DefaultBudgets() map[registry.Classification]Budget {
	return map[registry.Classification]Budget{
		registry.ClassLow:      {Capacity: 1000, RefillRate: 100},
		registry.ClassMedium:   {Capacity: 60, RefillRate: 1},
		registry.ClassHigh:     {Capacity: 20, RefillRate: 0.25},
		registry.ClassCritical: {Capacity: 5, RefillRate: 0.05},
	}
}

// Decision is the outcome of one consumption attempt.
type Decision struct {
	Allowed           bool
	RetryAfterSeconds int // 0 when allowed
}

// bucket holds the mutable state of one token bucket. tokens stays within
// [0, capacity] under all interleavings; every mutation happens under mu.
type bucket struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	refillRate float64
	lastRefill time.Time
}

// Limiter owns one bucket per classification. Consumption is a single
// atomic check-and-decrement; there is no separate reserve step.
type Limiter struct {
	buckets map[registry.Classification]*bucket
	now     func() time.Time
}

// New creates a Limiter with the given budgets. Tiers absent from budgets
// fall back to the default budget for that tier. The clock defaults to
// time.Now.
func New(budgets map[registry.Classification]Budget) *Limiter {
	return newWithClock(budgets, time.Now)
}

// newWithClock creates a Limiter with a custom clock (for testing).
func newWithClock(budgets map[registry.Classification]Budget, now func() time.Time) *Limiter {
	defaults := DefaultBudgets()
	l := &Limiter{
		buckets: make(map[registry.Classification]*bucket, 4),
		now:     now,
	}
	for _, class := range registry.Classifications() {
		b, ok := budgets[class]
		if !ok {
			b = defaults[class]
		}
		l.buckets[class] = &bucket{
			tokens:     b.Capacity,
			capacity:   b.Capacity,
			refillRate: b.RefillRate,
			lastRefill: now(),
		}
	}
	return l
}

// TryConsume attempts to take cost tokens from the bucket for class.
// Unknown classifications draw from the critical bucket. Never blocks.
func (l *Limiter) TryConsume(class registry.Classification, cost float64) Decision {
	b := l.buckets[class.Normalize()]

	b.mu.Lock()
	defer b.mu.Unlock()

	now := l.now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens = math.Min(b.capacity, b.tokens+elapsed*b.refillRate)
		b.lastRefill = now
	}

	if b.tokens >= cost {
		b.tokens -= cost
		return Decision{Allowed: true}
	}

	retry := 0
	if b.refillRate > 0 {
		retry = int(math.Ceil((cost - b.tokens) / b.refillRate))
	}
	if retry < 1 {
		retry = 1
	}
	return Decision{Allowed: false, RetryAfterSeconds: retry}
}

// Tokens reports the current token count for class after refill, for
// health/stats reporting. Does not consume.
func (l *Limiter) Tokens(class registry.Classification) float64 {
	b := l.buckets[class.Normalize()]

	b.mu.Lock()
	defer b.mu.Unlock()

	elapsed := l.now().Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens = math.Min(b.capacity, b.tokens+elapsed*b.refillRate)
		b.lastRefill = l.now()
	}
	return b.tokens
}
