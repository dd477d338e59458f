package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/progression-hub/internal/config"
	"github.com/progression-hub/internal/domain"
	"github.com/progression-hub/internal/progression"
	"github.com/progression-hub/internal/store"
)

// flushBatchSize bounds a single SavePlayers call during a full flush
const flushBatchSize = 500

// Persister receives player snapshots after they change in memory
type Persister interface {
	Name() string
	SavePlayer(ctx context.Context, p domain.Player) error
	SavePlayers(ctx context.Context, players []domain.Player) error
	DeletePlayer(ctx context.Context, playerID string) error
}

// Loader reads persisted snapshots back at startup
type Loader interface {
	Name() string
	LoadPlayers(ctx context.Context) ([]domain.Player, error)
}

// EventLog stores the audit trail of applied events
type EventLog interface {
	RecordEvent(ctx context.Context, ev domain.Event, out progression.Outcome, at time.Time) error
}

// Source is the in-memory store the worker copies from
type Source interface {
	Get(playerID string) (*domain.Player, bool)
	All() []*domain.Player
	Restore(players []domain.Player) int
}

type auditEntry struct {
	event   domain.Event
	outcome progression.Outcome
	at      time.Time
}

// SyncWorker writes changed players through to the persistence backends.
// Changes are coalesced per player id and the latest snapshot is written, so
// persistence never blocks the request that caused the change. A periodic
// full flush rewrites every player.
type SyncWorker struct {
	source     Source
	persisters []Persister
	events     EventLog
	config     *config.SyncConfig
	logger     *slog.Logger

	pendingMu sync.Mutex
	pending   map[string]struct{}
	notify    chan struct{}
	audit     chan auditEntry

	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewSyncWorker creates a new sync worker. events may be nil.
func NewSyncWorker(
	source Source,
	persisters []Persister,
	events EventLog,
	cfg *config.SyncConfig,
	logger *slog.Logger,
) *SyncWorker {
	return &SyncWorker{
		source:     source,
		persisters: persisters,
		events:     events,
		config:     cfg,
		logger:     logger,
		pending:    make(map[string]struct{}),
		notify:     make(chan struct{}, 1),
		audit:      make(chan auditEntry, cfg.QueueSize),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Observe is a store.Observer marking a player for write-through
func (w *SyncWorker) Observe(c store.Change) {
	w.pendingMu.Lock()
	w.pending[c.PlayerID] = struct{}{}
	w.pendingMu.Unlock()

	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// RecordEvent queues an applied event for the audit log. It never blocks.
func (w *SyncWorker) RecordEvent(ctx context.Context, ev domain.Event, out progression.Outcome) {
	if w.events == nil {
		return
	}
	select {
	case w.audit <- auditEntry{event: ev, outcome: out, at: time.Now()}:
	default:
		w.logger.Warn("audit queue full, dropping event",
			"player_id", ev.Data.PlayerID,
			"action", ev.Action,
		)
	}
}

// Start begins the background sync process
func (w *SyncWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("sync worker started",
		"interval", w.config.Interval,
		"backends", len(w.persisters),
	)

	go w.run(ctx)
	return nil
}

// Stop stops the background sync process after writing pending changes
func (w *SyncWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("sync worker stopped")
	return nil
}

// run is the main worker loop
func (w *SyncWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.shutdown()
			return
		case <-w.stopCh:
			w.shutdown()
			return
		case <-w.notify:
			w.Flush(ctx)
		case entry := <-w.audit:
			w.writeAudit(ctx, entry)
		case <-ticker.C:
			w.syncAll(ctx)
		}
	}
}

// shutdown writes whatever is still queued with a fresh context
func (w *SyncWorker) shutdown() {
	ctx := context.Background()
	w.Flush(ctx)
	for {
		select {
		case entry := <-w.audit:
			w.writeAudit(ctx, entry)
		default:
			return
		}
	}
}

// Flush writes every pending player to all backends. A player that no longer
// exists in memory is deleted from them.
func (w *SyncWorker) Flush(ctx context.Context) {
	w.pendingMu.Lock()
	ids := w.pending
	w.pending = make(map[string]struct{}, len(ids))
	w.pendingMu.Unlock()

	for id := range ids {
		p, ok := w.source.Get(id)
		for _, b := range w.persisters {
			opCtx, cancel := context.WithTimeout(ctx, w.config.WriteTimeout)
			var err error
			if ok {
				err = b.SavePlayer(opCtx, *p)
			} else {
				err = b.DeletePlayer(opCtx, id)
			}
			cancel()
			if err != nil {
				w.logger.Error("write-through failed",
					"backend", b.Name(),
					"player_id", id,
					"deleted", !ok,
					"error", errors.Join(domain.ErrUnavailable, err),
				)
			}
		}
	}
}

func (w *SyncWorker) writeAudit(ctx context.Context, entry auditEntry) {
	opCtx, cancel := context.WithTimeout(ctx, w.config.WriteTimeout)
	defer cancel()
	if err := w.events.RecordEvent(opCtx, entry.event, entry.outcome, entry.at); err != nil {
		w.logger.Warn("failed to record event",
			"player_id", entry.event.Data.PlayerID,
			"action", entry.event.Action,
			"error", err,
		)
	}
}

// syncAll rewrites every player to every backend
func (w *SyncWorker) syncAll(ctx context.Context) {
	w.logger.Info("starting sync cycle")
	startTime := time.Now()

	all := w.source.All()
	players := make([]domain.Player, len(all))
	for i, p := range all {
		players[i] = *p
	}

	syncedCount := 0
	errorCount := 0
	for _, b := range w.persisters {
		if err := w.syncBackend(ctx, b, players); err != nil {
			w.logger.Error("failed to sync backend",
				"backend", b.Name(),
				"error", err,
			)
			errorCount++
		} else {
			syncedCount++
		}
	}

	w.logger.Info("sync cycle completed",
		"duration", time.Since(startTime),
		"players", len(players),
		"synced", syncedCount,
		"errors", errorCount,
	)
}

// syncBackend writes players to one backend in batches
func (w *SyncWorker) syncBackend(ctx context.Context, b Persister, players []domain.Player) error {
	for start := 0; start < len(players); start += flushBatchSize {
		end := min(start+flushBatchSize, len(players))
		opCtx, cancel := context.WithTimeout(ctx, w.config.WriteTimeout)
		err := b.SavePlayers(opCtx, players[start:end])
		cancel()
		if err != nil {
			return err
		}
	}
	return nil
}

// Rehydrate fills the store from the first loader that returns players.
// Records already in memory are kept.
func (w *SyncWorker) Rehydrate(ctx context.Context, loaders ...Loader) (int, error) {
	var errs []error
	for _, l := range loaders {
		players, err := l.LoadPlayers(ctx)
		if err != nil {
			w.logger.Warn("failed to load players", "backend", l.Name(), "error", err)
			errs = append(errs, err)
			continue
		}
		if len(players) == 0 {
			continue
		}
		restored := w.source.Restore(players)
		w.logger.Info("rehydrated players", "backend", l.Name(), "restored", restored)
		return restored, nil
	}
	return 0, errors.Join(errs...)
}

// IsRunning returns whether the worker is currently running
func (w *SyncWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// RunOnce runs a single full sync cycle
func (w *SyncWorker) RunOnce(ctx context.Context) {
	w.syncAll(ctx)
}
