package ratelimit

import (
	"sync"
	"time"

	"github.com/garyellow/course-advisor/internal/metrics"
)

// KeyedConfig configures a KeyedLimiter.
type KeyedConfig struct {
	// Name labels the limiter in metrics (e.g. "chat", "line").
	Name string

	Burst      float64 // Token bucket capacity
	RefillRate float64 // Tokens per second

	// DailyLimit caps requests per rolling 24h; 0 disables it.
	DailyLimit int

	// CleanupPeriod is how often idle keys are dropped.
	CleanupPeriod time.Duration

	Metrics *metrics.Metrics
}

// KeyedLimiter keeps one token bucket (and optional daily window) per key,
// such as a chat session id or LINE chat id.
type KeyedLimiter struct {
	mu      sync.RWMutex
	entries map[string]*keyedEntry
	config  KeyedConfig
	stopCh  chan struct{}
	once    sync.Once
}

// keyedEntry's mutex makes the two-layer check-then-consume atomic.
type keyedEntry struct {
	mu     sync.Mutex
	bucket *Limiter
	daily  *SlidingWindowCounter
}

// NewKeyedLimiter starts a limiter. Call Stop to end its cleanup goroutine.
func NewKeyedLimiter(cfg KeyedConfig) *KeyedLimiter {
	if cfg.CleanupPeriod <= 0 {
		cfg.CleanupPeriod = 5 * time.Minute
	}
	kl := &KeyedLimiter{
		entries: make(map[string]*keyedEntry),
		config:  cfg,
		stopCh:  make(chan struct{}),
	}
	go kl.cleanupLoop()
	return kl
}

// Allow reports whether key may make a request, charging it if so.
// Both the bucket and the daily window must have room; neither is charged otherwise.
// The empty key is never limited.
func (kl *KeyedLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}

	entry := kl.entry(key)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if !entry.daily.check() || !entry.bucket.check() {
		kl.config.Metrics.RecordRateLimiterDrop(kl.config.Name)
		return false
	}
	entry.daily.consume()
	entry.bucket.consume()
	return true
}

// RetryAfter estimates when key's bucket will next allow a request.
func (kl *KeyedLimiter) RetryAfter(key string) time.Duration {
	kl.mu.RLock()
	entry, ok := kl.entries[key]
	kl.mu.RUnlock()
	if !ok {
		return 0
	}
	return entry.bucket.RetryAfter()
}

func (kl *KeyedLimiter) entry(key string) *keyedEntry {
	kl.mu.RLock()
	entry, ok := kl.entries[key]
	kl.mu.RUnlock()
	if ok {
		return entry
	}

	kl.mu.Lock()
	defer kl.mu.Unlock()

	if entry, ok = kl.entries[key]; ok {
		return entry
	}
	entry = &keyedEntry{
		bucket: New(kl.config.Burst, kl.config.RefillRate),
		daily:  NewSlidingWindowCounter(kl.config.DailyLimit, 24*time.Hour),
	}
	kl.entries[key] = entry
	return entry
}

// Available returns key's current tokens, or Burst for an unseen key.
func (kl *KeyedLimiter) Available(key string) float64 {
	kl.mu.RLock()
	entry, ok := kl.entries[key]
	kl.mu.RUnlock()
	if !ok {
		return kl.config.Burst
	}
	return entry.bucket.Available()
}

// DailyRemaining returns key's remaining daily quota, or -1 when disabled.
func (kl *KeyedLimiter) DailyRemaining(key string) int {
	if kl.config.DailyLimit <= 0 {
		return -1
	}

	kl.mu.RLock()
	entry, ok := kl.entries[key]
	kl.mu.RUnlock()
	if !ok {
		return kl.config.DailyLimit
	}
	return entry.daily.Remaining()
}

// ActiveCount returns the number of tracked keys.
func (kl *KeyedLimiter) ActiveCount() int {
	kl.mu.RLock()
	defer kl.mu.RUnlock()
	return len(kl.entries)
}

func (kl *KeyedLimiter) cleanupLoop() {
	ticker := time.NewTicker(kl.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-kl.stopCh:
			return
		case <-ticker.C:
			kl.cleanup()
		}
	}
}

// cleanup drops keys whose bucket has refilled. Keys still inside a daily
// window are kept so the daily cap cannot be reset by idling.
func (kl *KeyedLimiter) cleanup() {
	kl.mu.Lock()
	for key, entry := range kl.entries {
		if entry.bucket.IsFull() && (entry.daily == nil || entry.daily.Remaining() == kl.config.DailyLimit) {
			delete(kl.entries, key)
		}
	}
	n := len(kl.entries)
	kl.mu.Unlock()

	kl.config.Metrics.SetRateLimiterKeys(kl.config.Name, n)
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (kl *KeyedLimiter) Stop() {
	kl.once.Do(func() { close(kl.stopCh) })
}
