// Package session issues and resolves login sessions. Sessions live in
// process memory: a restart logs everyone out, which matches the
// single-node deployment model.
package session

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/gardenops/grounds/internal/account"
)

// CookieName carries the session token between requests.
const CookieName = "grounds_session"

type entry struct {
	viewer    account.Viewer
	expiresAt time.Time
}

type Manager struct {
	mu       sync.RWMutex
	ttl      time.Duration
	sessions map[string]entry
	now      func() time.Time
}

func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		ttl:      ttl,
		sessions: make(map[string]entry),
		now:      time.Now,
	}
}

// Create issues a token for the given identity.
func (m *Manager) Create(v account.Viewer) string {
	token := ulid.Make().String()
	m.mu.Lock()
	m.sessions[token] = entry{
		viewer:    v,
		expiresAt: m.now().Add(m.ttl),
	}
	m.mu.Unlock()
	return token
}

// Resolve returns the viewer behind a token. Expired sessions are removed
// on access.
func (m *Manager) Resolve(token string) (account.Viewer, bool) {
	m.mu.RLock()
	e, ok := m.sessions[token]
	m.mu.RUnlock()
	if !ok {
		return account.Viewer{}, false
	}
	if m.now().After(e.expiresAt) {
		m.Destroy(token)
		return account.Viewer{}, false
	}
	return e.viewer, true
}

func (m *Manager) Destroy(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}

// DestroyAccount drops every session belonging to an account, used when
// the account is deleted.
func (m *Manager) DestroyAccount(accountID string) {
	m.mu.Lock()
	for token, e := range m.sessions {
		if e.viewer.AccountID == accountID {
			delete(m.sessions, token)
		}
	}
	m.mu.Unlock()
}
