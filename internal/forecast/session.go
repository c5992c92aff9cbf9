package forecast

import (
	"sync"
	"time"
)

// Session holds the forecast currently shown to one user. Each generation is
// numbered; a result may only be committed by the newest generation started,
// so a slow earlier request can never overwrite a later one.
type Session struct {
	mu       sync.Mutex
	latest   uint64
	current  *Result
	lastUsed time.Time
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{lastUsed: time.Now()}
}

// Begin starts a new generation and returns its number.
func (s *Session) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest++
	s.lastUsed = time.Now()
	return s.latest
}

// Commit publishes r as the session's current result. It returns
// ErrStaleGeneration if a newer generation has been started since gen.
func (s *Session) Commit(gen uint64, r *Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.latest {
		return ErrStaleGeneration
	}
	r.Generation = gen
	s.current = r
	s.lastUsed = time.Now()
	return nil
}

// Current returns the last committed result, or nil.
func (s *Session) Current() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// SessionStore keeps one Session per key (user or client id) and forgets
// sessions idle for longer than its TTL.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	lastScan time.Time
}

// NewSessionStore creates a store. A zero ttl means 12 hours.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl == 0 {
		ttl = 12 * time.Hour
	}
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		lastScan: time.Now(),
	}
}

// Get returns the session for key, creating it if needed.
func (st *SessionStore) Get(key string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := time.Now()
	if now.Sub(st.lastScan) > st.ttl/4 {
		st.lastScan = now
		for k, s := range st.sessions {
			if now.Sub(s.idleSince()) > st.ttl {
				delete(st.sessions, k)
			}
		}
	}

	s, ok := st.sessions[key]
	if !ok {
		s = NewSession()
		st.sessions[key] = s
	}
	return s
}

// Peek returns the session for key without creating one.
func (st *SessionStore) Peek(key string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[key]
	return s, ok
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
