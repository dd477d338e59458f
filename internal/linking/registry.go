// Package linking issues the short-lived one-time codes that bind a game
// player to an external chat identity.
package linking

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lithammer/shortuuid"

	"github.com/progression-hub/internal/domain"
)

// Code format
const (
	CodeLength = 6
	DefaultTTL = 10 * time.Minute

	maxIssueAttempts = 16
	sweepThreshold   = 1024
)

// Identity is the external account a code was issued for
type Identity struct {
	ExternalID string `json:"discordId"`
	Username   string `json:"discordUsername"`
	Avatar     string `json:"discordAvatar,omitempty"`
}

// Code is a pending link code
type Code struct {
	Code      string    `json:"code"`
	Identity  Identity  `json:"identity"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ExpiresIn returns the remaining lifetime, rounded down to whole seconds
func (c Code) ExpiresIn(now time.Time) int {
	d := c.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

// Registry holds pending codes. Expired codes are dropped lazily.
type Registry struct {
	mu       sync.Mutex
	codes    map[string]Code
	ttl      time.Duration
	now      func() time.Time
	generate func() string
}

// Option configures a Registry
type Option func(*Registry)

// WithClock overrides the registry clock
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithGenerator overrides code generation
func WithGenerator(gen func() string) Option {
	return func(r *Registry) { r.generate = gen }
}

// NewRegistry creates a registry whose codes live for ttl
func NewRegistry(ttl time.Duration, opts ...Option) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	r := &Registry{
		codes:    make(map[string]Code),
		ttl:      ttl,
		now:      time.Now,
		generate: generateCode,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// generateCode upper-cases a prefix of a base57 random UUID. The base57
// alphabet has no 0 or 1, so the result is always [A-Z2-9].
func generateCode() string {
	return strings.ToUpper(shortuuid.New()[:CodeLength])
}

// Issue creates a new code for the identity
func (r *Registry) Issue(id Identity) (Code, error) {
	if id.ExternalID == "" || id.Username == "" {
		return Code{}, domain.InvalidInput("discordId and discordUsername are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if len(r.codes) >= sweepThreshold {
		r.sweepLocked(now)
	}
	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		code := r.generate()
		if existing, ok := r.codes[code]; ok && now.Before(existing.ExpiresAt) {
			continue
		}
		c := Code{
			Code:      code,
			Identity:  id,
			CreatedAt: now,
			ExpiresAt: now.Add(r.ttl),
		}
		r.codes[code] = c
		return c, nil
	}
	return Code{}, fmt.Errorf("issuing link code: no free code after %d attempts", maxIssueAttempts)
}

// Take consumes a code. Absent, expired and already used codes all fail with
// ErrInvalidOrExpiredCode.
func (r *Registry) Take(code string) (Identity, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.codes[code]
	if !ok {
		return Identity{}, domain.ErrInvalidOrExpiredCode
	}
	delete(r.codes, code)
	if !r.now().Before(c.ExpiresAt) {
		return Identity{}, domain.ErrInvalidOrExpiredCode
	}
	return c.Identity, nil
}

// Sweep drops expired codes and returns how many were removed
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweepLocked(r.now())
}

func (r *Registry) sweepLocked(now time.Time) int {
	removed := 0
	for code, c := range r.codes {
		if !now.Before(c.ExpiresAt) {
			delete(r.codes, code)
			removed++
		}
	}
	return removed
}

// Clear drops every pending code
func (r *Registry) Clear() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.codes)
	r.codes = make(map[string]Code)
	return n
}

// Pending returns the number of codes that have not expired
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	n := 0
	for _, c := range r.codes {
		if now.Before(c.ExpiresAt) {
			n++
		}
	}
	return n
}

// TTL returns the code lifetime
func (r *Registry) TTL() time.Duration {
	return r.ttl
}
