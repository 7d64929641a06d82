// Package csrf issues and checks anti-forgery tokens bound to a coarse
// caller fingerprint.
//
// The fingerprint is derived from the client address and User-Agent, both of
// which a determined attacker can spoof. The guard raises the bar against
// cross-origin form posts; it does not authenticate anyone.
package csrf

import (
	"crypto/subtle"
	"sync"
	"time"

	"timesheets/internal/security"
)

const tokenBytes = 32

type entry struct {
	token     string
	expiresAt time.Time
}

type Guard struct {
	mu      sync.Mutex
	entries map[string]entry
	secret  string
	ttl     time.Duration
	now     func() time.Time
}

func NewGuard(secret string, ttl time.Duration) *Guard {
	return &Guard{
		entries: make(map[string]entry),
		secret:  secret,
		ttl:     ttl,
		now:     time.Now,
	}
}

// WithClock replaces the time source; intended for tests.
func (g *Guard) WithClock(now func() time.Time) *Guard {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.now = now
	return g
}

// Fingerprint derives the map key for a caller from its address and agent.
func Fingerprint(secret string, clientIP string, userAgent string) string {
	return security.SignResource(secret, clientIP, userAgent)
}

func (g *Guard) Fingerprint(clientIP string, userAgent string) string {
	return Fingerprint(g.secret, clientIP, userAgent)
}

// Issue stores a fresh token for the fingerprint, replacing any previous one.
func (g *Guard) Issue(fingerprint string) (string, error) {
	token, _, err := security.GenerateOpaqueToken(tokenBytes)
	if err != nil {
		return "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.entries[fingerprint] = entry{
		token:     token,
		expiresAt: g.now().Add(g.ttl),
	}
	return token, nil
}

func (g *Guard) Validate(fingerprint string, presented string) bool {
	if presented == "" {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	current, ok := g.entries[fingerprint]
	if !ok {
		return false
	}
	if !g.now().Before(current.expiresAt) {
		delete(g.entries, fingerprint)
		return false
	}
	return subtle.ConstantTimeCompare([]byte(current.token), []byte(presented)) == 1
}

// Sweep drops every expired entry and reports how many were removed.
func (g *Guard) Sweep() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	removed := 0
	for key, current := range g.entries {
		if !now.Before(current.expiresAt) {
			delete(g.entries, key)
			removed++
		}
	}
	return removed
}

func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}
