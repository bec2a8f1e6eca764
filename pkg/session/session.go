package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/null-create/logger"

	"github.com/heizer23/Atlas/pkg/auth"
	"github.com/heizer23/Atlas/pkg/mcp"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

const DefaultIdleTimeout = 30 * time.Minute

// Session binds one verified identity to one opaque identifier for a
// bounded idle window. The identity never changes for the session's
// lifetime.
type Session struct {
	ID              string
	Identity        auth.Identity
	ProtocolVersion string
	Capabilities    mcp.ClientCapabilities
	CreatedAt       time.Time
	LastSeen        time.Time
}

// Manager tracks live sessions. The map is the only hot mutable shared
// structure in the gateway; access is guarded by an RWMutex and no lock is
// held while a tool executes.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	idleTimeout time.Duration
	log         *logger.Logger
}

func NewManager(idleTimeout time.Duration) *Manager {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Manager{
		sessions:    make(map[string]*Session),
		idleTimeout: idleTimeout,
		log:         logger.NewLogger("SESSION_MANAGER", uuid.NewString()),
	}
}

// Create registers a new session for the given identity and returns it.
// Session ids are v4 UUIDs, drawn from crypto/rand.
func (m *Manager) Create(identity auth.Identity, caps mcp.ClientCapabilities, protocolVersion string) Session {
	now := time.Now()
	sess := &Session{
		ID:              uuid.NewString(),
		Identity:        identity,
		ProtocolVersion: protocolVersion,
		Capabilities:    caps,
		CreatedAt:       now,
		LastSeen:        now,
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	m.log.Info("session %s created for subject '%s'", sess.ID, identity.Subject)
	return *sess
}

// Get looks up a session by id. Expired sessions are evicted on first
// failed lookup, so a subsequent Get reports ErrSessionNotFound.
// The read lock stays held across the expiry check and the value copy so
// a concurrent Touch cannot write LastSeen mid-read.
func (m *Manager) Get(id string) (Session, error) {
	now := time.Now()

	m.mu.RLock()
	sess, exists := m.sessions[id]
	if !exists {
		m.mu.RUnlock()
		return Session{}, ErrSessionNotFound
	}
	expired := m.expired(sess, now)
	snapshot := *sess
	m.mu.RUnlock()

	if expired {
		m.mu.Lock()
		// Re-check under the write lock: a concurrent Touch may have
		// revived the session between the two lock acquisitions.
		if cur, ok := m.sessions[id]; ok && m.expired(cur, time.Now()) {
			delete(m.sessions, id)
			m.log.Info("session %s evicted (expired)", id)
		}
		m.mu.Unlock()
		return Session{}, ErrSessionExpired
	}
	return snapshot, nil
}

// Touch updates the session's last-seen timestamp. Called on every
// successfully routed request.
func (m *Manager) Touch(id string) {
	m.mu.Lock()
	if sess, exists := m.sessions[id]; exists {
		sess.LastSeen = time.Now()
	}
	m.mu.Unlock()
}

// Destroy removes a session immediately. Idempotent.
func (m *Manager) Destroy(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Count returns the number of tracked sessions, expired or not.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops every expired session. Lazy eviction keeps the manager
// correct without it; the sweep only bounds memory under heavy churn.
func (m *Manager) Sweep() int {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int
	for id, sess := range m.sessions {
		if m.expired(sess, now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep on the given interval until the returned stop
// function is called.
func (m *Manager) StartSweeper(interval time.Duration) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if removed := m.Sweep(); removed > 0 {
					m.log.Info("sweeper removed %d expired sessions", removed)
				}
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}

// expired reports whether the idle window or the identity's credential
// lifetime has run out. Callers hold at least a read lock.
func (m *Manager) expired(sess *Session, now time.Time) bool {
	if now.Sub(sess.LastSeen) > m.idleTimeout {
		return true
	}
	return sess.Identity.Expired(now)
}
