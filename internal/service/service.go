package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/progression-hub/internal/config"
	"github.com/progression-hub/internal/domain"
	"github.com/progression-hub/internal/linking"
	"github.com/progression-hub/internal/progression"
	"github.com/progression-hub/internal/projection"
	"github.com/progression-hub/internal/roster"
	"github.com/progression-hub/internal/store"
)

// EventRecorder keeps an audit trail of applied events. Implementations must not block.
type EventRecorder interface {
	RecordEvent(ctx context.Context, ev domain.Event, out progression.Outcome)
}

// Notifier is told about noteworthy progression changes
type Notifier interface {
	LevelUp(p *domain.Player, up progression.LevelUp)
	Transfer(from, to *domain.Player, amount int64)
	Linked(p *domain.Player)
}

// PlayerService provides the business operations over player records
type PlayerService struct {
	store    *store.Store
	codes    *linking.Registry
	guard    *linking.Guard
	recorder EventRecorder
	notifier Notifier
	config   Config
	logger   *slog.Logger
	now      func() time.Time
}

// Config groups the settings the service reads
type Config struct {
	Leaderboard config.LeaderboardConfig
	Presence    config.PresenceConfig
}

// Option configures a PlayerService
type Option func(*PlayerService)

// WithRecorder sets the event audit recorder
func WithRecorder(r EventRecorder) Option {
	return func(s *PlayerService) { s.recorder = r }
}

// WithNotifier sets the change notifier
func WithNotifier(n Notifier) Option {
	return func(s *PlayerService) { s.notifier = n }
}

// WithClock overrides the service clock
func WithClock(now func() time.Time) Option {
	return func(s *PlayerService) { s.now = now }
}

// NewPlayerService creates a new player service
func NewPlayerService(
	st *store.Store,
	codes *linking.Registry,
	guard *linking.Guard,
	cfg Config,
	logger *slog.Logger,
	opts ...Option,
) *PlayerService {
	s := &PlayerService{
		store:  st,
		codes:  codes,
		guard:  guard,
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// snapshot returns every player ordered by join time
func (s *PlayerService) snapshot() []*domain.Player {
	return projection.ByFirstJoin(s.store.All())
}

// findByName returns the record matching name ignoring case. When several
// records share the name the one duplicate resolution would keep is returned.
func (s *PlayerService) findByName(name string) (*domain.Player, bool) {
	var group []*domain.Player
	for _, p := range s.store.All() {
		if roster.SameName(p.PlayerName, name) {
			group = append(group, p)
		}
	}
	keep, _ := roster.Resolve(group, "")
	return keep, keep != nil
}

func (s *PlayerService) notifyLevelUp(p *domain.Player, up *progression.LevelUp) {
	if s.notifier != nil && up != nil {
		s.notifier.LevelUp(p, *up)
	}
}
