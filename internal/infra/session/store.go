// Package session persists the authentication pair for each browser
// session: the upstream bearer token and the serialized user profile.
// The pair is written and cleared atomically; there is never a session with
// only one half. Pure key-value persistence, no network access.
package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/pharmabridge/pharma-bridge-bff-go/internal/domain"
)

type record struct {
	token     string
	profile   []byte // serialized UserProfile
	expiresAt time.Time
}

// Store is a thread-safe in-memory session store with TTL.
// In production this could be backed by Redis; the contract is plain KV.
type Store struct {
	mu    sync.RWMutex
	items map[string]record
	ttl   time.Duration
	stop  chan struct{}
}

// New creates a session store. Sessions idle longer than ttl are dropped by
// a background sweep.
func New(ttl time.Duration) *Store {
	s := &Store{
		items: make(map[string]record),
		ttl:   ttl,
		stop:  make(chan struct{}),
	}
	go s.cleanup()
	return s
}

// Save persists the token/profile pair under sid, overwriting any prior
// session wholesale.
func (s *Store) Save(sid, token string, profile domain.UserProfile) {
	raw, err := json.Marshal(profile)
	if err != nil {
		// UserProfile contains only marshalable fields; treat failure as a
		// no-session write rather than storing a partial pair.
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[sid] = record{
		token:     token,
		profile:   raw,
		expiresAt: time.Now().Add(s.ttl),
	}
}

// Load returns the persisted pair. A missing, expired, half-missing or
// corrupt record reads as no session — never as an error.
// A successful load slides the expiry forward (session keepalive).
func (s *Store) Load(sid string) (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.items[sid]
	if !ok || time.Now().After(rec.expiresAt) {
		return domain.Session{}, false
	}
	if rec.token == "" || len(rec.profile) == 0 {
		return domain.Session{}, false
	}

	var profile domain.UserProfile
	if err := json.Unmarshal(rec.profile, &profile); err != nil {
		delete(s.items, sid)
		return domain.Session{}, false
	}

	rec.expiresAt = time.Now().Add(s.ttl)
	s.items[sid] = rec

	return domain.Session{Token: rec.token, Profile: profile}, true
}

// Clear removes the pair. Idempotent.
func (s *Store) Clear(sid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, sid)
}

// Len reports the number of live sessions (metrics gauge).
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Close stops the background sweep.
func (s *Store) Close() {
	close(s.stop)
}

func (s *Store) cleanup() {
	ticker := time.NewTicker(s.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			now := time.Now()
			for k, v := range s.items {
				if now.After(v.expiresAt) {
					delete(s.items, k)
				}
			}
			s.mu.Unlock()
		}
	}
}

// put stores a raw record directly. Test hook for corrupt-profile scenarios.
func (s *Store) put(sid, token string, profile []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[sid] = record{token: token, profile: profile, expiresAt: time.Now().Add(s.ttl)}
}
