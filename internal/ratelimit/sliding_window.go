package ratelimit

import (
	"sync"
	"time"
)

// SlidingWindowCounter approximates a rolling window with two fixed windows.
//
// The effective count is the current window's count plus the previous
// window's count weighted by how much of it still overlaps the rolling window:
//
//	effective = curr + prev × (window − elapsed) / window
//
// A nil counter is disabled and allows everything.
type SlidingWindowCounter struct {
	mu          sync.Mutex
	curr        int
	prev        int
	start       time.Time
	window      time.Duration
	maxRequests int
}

// NewSlidingWindowCounter returns nil when maxRequests <= 0.
func NewSlidingWindowCounter(maxRequests int, window time.Duration) *SlidingWindowCounter {
	if maxRequests <= 0 {
		return nil
	}
	return &SlidingWindowCounter{
		start:       time.Now(),
		window:      window,
		maxRequests: maxRequests,
	}
}

// Allow counts the request if the window has room.
func (c *SlidingWindowCounter) Allow() bool {
	if c == nil {
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.effective() >= float64(c.maxRequests) {
		return false
	}
	c.curr++
	return true
}

func (c *SlidingWindowCounter) check() bool {
	if c == nil {
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.effective() < float64(c.maxRequests)
}

func (c *SlidingWindowCounter) consume() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.effective() < float64(c.maxRequests) {
		c.curr++
	}
}

// Remaining returns the approximate remaining quota, or -1 when disabled.
func (c *SlidingWindowCounter) Remaining() int {
	if c == nil {
		return -1
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return max(0, int(float64(c.maxRequests)-c.effective()))
}

// effective rotates expired windows and returns the weighted count.
// Must be called with mu held.
func (c *SlidingWindowCounter) effective() float64 {
	elapsed := time.Since(c.start)
	if elapsed >= c.window {
		passed := elapsed / c.window
		if passed == 1 {
			c.prev = c.curr
		} else {
			c.prev = 0
		}
		c.curr = 0
		c.start = c.start.Add(passed * c.window)
		elapsed = time.Since(c.start)
	}

	overlap := float64(c.window-elapsed) / float64(c.window)
	overlap = max(0, min(1, overlap))
	return float64(c.curr) + float64(c.prev)*overlap
}
