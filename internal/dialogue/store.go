package dialogue

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/garyellow/course-advisor/internal/metrics"
)

// DefaultSessionTTL is how long an idle session is kept.
const DefaultSessionTTL = 30 * time.Minute

// Store keeps sessions in memory and expires them after a period without
// activity. Each access refreshes the expiry.
type Store struct {
	cache   *cache.Cache
	metrics *metrics.Metrics
}

// NewStore creates a session store with the given idle TTL.
func NewStore(ttl time.Duration, m *metrics.Metrics) *Store {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	s := &Store{
		cache:   cache.New(ttl, ttl/2),
		metrics: m,
	}
	s.cache.OnEvicted(func(string, any) {
		s.metrics.SetSessionsActive(s.cache.ItemCount())
	})
	return s
}

// GetOrCreate returns the session for id, creating it when absent.
// An empty id gets a fresh random id.
func (s *Store) GetOrCreate(id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	if sess, ok := s.Get(id); ok {
		return sess
	}

	sess := NewSession(id)
	if err := s.cache.Add(id, sess, cache.DefaultExpiration); err != nil {
		// Lost a race with a concurrent creator.
		if existing, ok := s.Get(id); ok {
			return existing
		}
		s.cache.SetDefault(id, sess)
	}
	s.metrics.SetSessionsActive(s.cache.ItemCount())
	return sess
}

// Get returns the session for id and refreshes its expiry.
func (s *Store) Get(id string) (*Session, bool) {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*Session)
	if !ok {
		return nil, false
	}
	s.cache.SetDefault(id, sess)
	return sess, true
}

// Delete removes the session for id. It reports whether one existed.
func (s *Store) Delete(id string) bool {
	_, ok := s.cache.Get(id)
	s.cache.Delete(id)
	s.metrics.SetSessionsActive(s.cache.ItemCount())
	return ok
}

// Count returns the number of live sessions, including expired sessions
// that have not been cleaned up yet.
func (s *Store) Count() int {
	n := s.cache.ItemCount()
	s.metrics.SetSessionsActive(n)
	return n
}

// Flush removes every session.
func (s *Store) Flush() {
	s.cache.Flush()
	s.metrics.SetSessionsActive(0)
}
