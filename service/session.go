package service

import (
	"sync"
	"time"
)

// PdfSession holds the pending media reference while the user navigates
// the numbered menu.
type PdfSession struct {
	MediaURL   string
	ReceivedAt time.Time
}

// SessionStore is a keyed ephemeral store with explicit TTL, used for
// multi-step menu navigation. Entries expire lazily on read and are also
// reaped by a background janitor.
type SessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]sessionEntry
	stop     chan struct{}
	stopOnce sync.Once
}

type sessionEntry struct {
	session   PdfSession
	expiresAt time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	s := &SessionStore{
		ttl:      ttl,
		sessions: make(map[string]sessionEntry),
		stop:     make(chan struct{}),
	}
	go s.janitor()
	return s
}

// Put stores a session under the given key for the store's TTL.
func (s *SessionStore) Put(key string, session PdfSession) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[key] = sessionEntry{
		session:   session,
		expiresAt: time.Now().Add(s.ttl),
	}
}

// Get returns the session for the key, or false when absent or expired.
func (s *SessionStore) Get(key string) (PdfSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[key]
	if !ok {
		return PdfSession{}, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.sessions, key)
		return PdfSession{}, false
	}
	return entry.session, true
}

// Forget removes the session for the key.
func (s *SessionStore) Forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
}

// Len returns the number of live entries, expired ones included until reaped.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close stops the janitor goroutine.
func (s *SessionStore) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *SessionStore) janitor() {
	interval := s.ttl
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for key, entry := range s.sessions {
				if now.After(entry.expiresAt) {
					delete(s.sessions, key)
				}
			}
			s.mu.Unlock()
		case <-s.stop:
			return
		}
	}
}
