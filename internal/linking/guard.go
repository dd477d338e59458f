package linking

import (
	"net"
	"strings"
	"sync"
	"time"

	"github.com/progression-hub/internal/domain"
)

// Guard defaults
const (
	DefaultMaxFailures = 15
	DefaultBanDuration = 30 * time.Minute
)

// Guard counts failed code redemptions per client address and temporarily
// bans addresses that keep failing. Loopback clients are never banned.
type Guard struct {
	mu          sync.Mutex
	failures    map[string]int
	bans        map[string]time.Time
	maxFailures int
	banFor      time.Duration
	now         func() time.Time
}

// NewGuard creates a guard that bans for banFor after maxFailures failures
func NewGuard(maxFailures int, banFor time.Duration, now func() time.Time) *Guard {
	if maxFailures <= 0 {
		maxFailures = DefaultMaxFailures
	}
	if banFor <= 0 {
		banFor = DefaultBanDuration
	}
	if now == nil {
		now = time.Now
	}
	return &Guard{
		failures:    make(map[string]int),
		bans:        make(map[string]time.Time),
		maxFailures: maxFailures,
		banFor:      banFor,
		now:         now,
	}
}

// Check fails with ErrTemporarilyBanned while the client is banned
func (g *Guard) Check(client string) error {
	client = normalizeClient(client)
	if exempt(client) {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	until, ok := g.bans[client]
	if !ok {
		return nil
	}
	if g.now().Before(until) {
		return domain.ErrTemporarilyBanned
	}
	delete(g.bans, client)
	delete(g.failures, client)
	return nil
}

// Fail records a failed attempt and reports whether the client is now banned
func (g *Guard) Fail(client string) bool {
	client = normalizeClient(client)
	if exempt(client) {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.failures[client]++
	if g.failures[client] < g.maxFailures {
		return false
	}
	g.bans[client] = g.now().Add(g.banFor)
	return true
}

// Succeed forgets the client's failures
func (g *Guard) Succeed(client string) {
	client = normalizeClient(client)
	g.mu.Lock()
	delete(g.failures, client)
	g.mu.Unlock()
}

// Banned returns the number of active bans
func (g *Guard) Banned() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	n := 0
	for client, until := range g.bans {
		if now.Before(until) {
			n++
			continue
		}
		delete(g.bans, client)
		delete(g.failures, client)
	}
	return n
}

func normalizeClient(client string) string {
	client = strings.TrimSpace(client)
	if host, _, err := net.SplitHostPort(client); err == nil {
		return host
	}
	return client
}

func exempt(client string) bool {
	if client == "" || client == "localhost" {
		return true
	}
	ip := net.ParseIP(client)
	return ip != nil && ip.IsLoopback()
}
