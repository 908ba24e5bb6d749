package middleware

import (
	"sync"
	"time"
)

// LockoutConfig defines when repeated authentication failures lock a client out
type LockoutConfig struct {
	// MaxFailures is the number of failures inside Window that triggers a lockout
	MaxFailures int
	// Window is how far back failures are counted
	Window time.Duration
	// Lockout is how long a client stays locked after its last failure
	Lockout time.Duration
}

// DefaultLockoutConfig locks a client for 15 minutes after 3 failures in 5 minutes
var DefaultLockoutConfig = LockoutConfig{
	MaxFailures: 3,
	Window:      5 * time.Minute,
	Lockout:     15 * time.Minute,
}

// LoginGuard tracks failed admin logins per client key
type LoginGuard struct {
	config   LockoutConfig
	failures map[string][]time.Time
	mu       sync.Mutex
	now      func() time.Time
}

// NewLoginGuard creates a guard with the given configuration
func NewLoginGuard(config LockoutConfig) *LoginGuard {
	return &LoginGuard{
		config:   config,
		failures: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// recent drops failures that can no longer affect a lockout. Caller holds mu.
func (g *LoginGuard) recent(key string, now time.Time) []time.Time {
	cutoff := now.Add(-(g.config.Window + g.config.Lockout))
	kept := g.failures[key][:0]
	for _, t := range g.failures[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(g.failures, key)
		return nil
	}
	g.failures[key] = kept
	return kept
}

// Locked reports whether key is locked out and until when
func (g *LoginGuard) Locked(key string) (bool, time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	failures := g.recent(key, now)
	if len(failures) < g.config.MaxFailures {
		return false, time.Time{}
	}

	last := failures[len(failures)-1]
	inWindow := 0
	for _, t := range failures {
		if !t.Before(last.Add(-g.config.Window)) {
			inWindow++
		}
	}
	if inWindow < g.config.MaxFailures {
		return false, time.Time{}
	}
	until := last.Add(g.config.Lockout)
	return now.Before(until), until
}

// RecordFailure counts a failed attempt
func (g *LoginGuard) RecordFailure(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[key] = append(g.failures[key], g.now())
}

// RecordSuccess clears the failures of key
func (g *LoginGuard) RecordSuccess(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.failures, key)
}
