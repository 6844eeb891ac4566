package services

import (
	"log"
	"sync"
	"time"
)

// ViewAsSession is an active admin impersonation session. Sessions are
// short-lived and re-derivable by re-authenticating, so keeping them in
// process memory is acceptable; they do not survive a restart.
type ViewAsSession struct {
	AdminID           uint
	TargetUserID      uint
	TargetRole        string
	TargetFranchiseID *uint
	ExpiresAt         time.Time
}

// ViewAsStore holds view-as sessions keyed by admin user ID, with a
// periodic sweep that purges expired entries.
type ViewAsStore struct {
	mu       sync.Mutex
	sessions map[uint]ViewAsSession
	ttl      time.Duration

	stopOnce sync.Once
	stop     chan struct{}
}

// NewViewAsStore creates a store with the given session TTL
func NewViewAsStore(ttl time.Duration) *ViewAsStore {
	return &ViewAsStore{
		sessions: make(map[uint]ViewAsSession),
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
}

// Start begins a view-as session for the admin, replacing any existing one
func (s *ViewAsStore) Start(adminID, targetUserID uint, targetRole string, targetFranchiseID *uint) ViewAsSession {
	session := ViewAsSession{
		AdminID:           adminID,
		TargetUserID:      targetUserID,
		TargetRole:        targetRole,
		TargetFranchiseID: targetFranchiseID,
		ExpiresAt:         time.Now().Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[adminID] = session
	s.mu.Unlock()

	return session
}

// Stop ends the admin's view-as session, if any
func (s *ViewAsStore) Stop(adminID uint) {
	s.mu.Lock()
	delete(s.sessions, adminID)
	s.mu.Unlock()
}

// Resolve returns the effective actor for the admin's view-as session.
// Expired sessions are removed and report no session.
func (s *ViewAsStore) Resolve(adminID uint) (Actor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[adminID]
	if !ok {
		return Actor{}, false
	}
	if time.Now().After(session.ExpiresAt) {
		delete(s.sessions, adminID)
		return Actor{}, false
	}

	return Actor{
		UserID:      session.TargetUserID,
		Role:        session.TargetRole,
		FranchiseID: session.TargetFranchiseID,
	}, true
}

// Sweep removes all expired sessions and returns how many were purged
func (s *ViewAsStore) Sweep() int {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for adminID, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, adminID)
			purged++
		}
	}
	return purged
}

// StartSweeper runs Sweep on the given interval until Close is called
func (s *ViewAsStore) StartSweeper(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if purged := s.Sweep(); purged > 0 {
					log.Printf("Purged %d expired view-as sessions", purged)
				}
			case <-s.stop:
				return
			}
		}
	}()
}

// Close stops the sweeper goroutine
func (s *ViewAsStore) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}
