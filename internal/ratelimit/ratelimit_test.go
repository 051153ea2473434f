package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func TestLimiterAllowsUpToMax(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	limiter := NewLimiter(NewMemoryStore(), time.Minute, 10).WithClock(clock)

	for i := 0; i < 10; i++ {
		assert.True(t, limiter.Allow("1.2.3.4"), "request %d should pass", i)
		clock.advance(time.Second)
	}
	assert.False(t, limiter.Allow("1.2.3.4"))
}

func TestLimiterWindowSlides(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	limiter := NewLimiter(NewMemoryStore(), time.Minute, 10).WithClock(clock)

	for i := 0; i < 10; i++ {
		assert.True(t, limiter.Allow("1.2.3.4"))
	}
	assert.False(t, limiter.Allow("1.2.3.4"))

	// the whole burst expires together
	clock.advance(61 * time.Second)
	assert.True(t, limiter.Allow("1.2.3.4"))
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	limiter := NewLimiter(NewMemoryStore(), time.Minute, 2).WithClock(clock)

	assert.True(t, limiter.Allow("1.2.3.4"))
	assert.True(t, limiter.Allow("1.2.3.4"))
	assert.False(t, limiter.Allow("1.2.3.4"))

	assert.True(t, limiter.Allow("5.6.7.8"))
}

func TestLimiterRejectionDoesNotConsumeSlot(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	limiter := NewLimiter(NewMemoryStore(), time.Minute, 1).WithClock(clock)

	assert.True(t, limiter.Allow("1.2.3.4"))
	clock.advance(30 * time.Second)
	assert.False(t, limiter.Allow("1.2.3.4"))

	// the first hit expires exactly one window after it was admitted,
	// regardless of the rejected attempt in between
	clock.advance(31 * time.Second)
	assert.True(t, limiter.Allow("1.2.3.4"))
}
