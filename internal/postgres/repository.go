package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/progression-hub/internal/config"
	"github.com/progression-hub/internal/domain"
	"github.com/progression-hub/internal/progression"
)

// Repository provides PostgreSQL-based data access
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// Name identifies the backend in logs and readiness output
func (r *Repository) Name() string {
	return "postgres"
}

// Ping checks the database connection
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS players (
			player_id VARCHAR(128) PRIMARY KEY,
			player_name VARCHAR(128) NOT NULL,
			level INT NOT NULL DEFAULT 1,
			xp INT NOT NULL DEFAULT 0,
			coins BIGINT NOT NULL DEFAULT 0,
			discord_id VARCHAR(64),
			last_seen BIGINT NOT NULL DEFAULT 0,
			data JSONB NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS player_events (
			id BIGSERIAL PRIMARY KEY,
			player_id VARCHAR(128) NOT NULL,
			action VARCHAR(32) NOT NULL,
			payload JSONB,
			outcome JSONB,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_players_discord ON players(discord_id)`,
		`CREATE INDEX IF NOT EXISTS idx_players_level ON players(level DESC, xp DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_player_events_player ON player_events(player_id, created_at DESC)`,
	}

	for _, migration := range migrations {
		_, err := r.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

const upsertPlayerQuery = `
	INSERT INTO players (player_id, player_name, level, xp, coins, discord_id, last_seen, data, updated_at)
	VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9)
	ON CONFLICT (player_id)
	DO UPDATE SET
		player_name = $2,
		level = $3,
		xp = $4,
		coins = $5,
		discord_id = NULLIF($6, ''),
		last_seen = $7,
		data = $8,
		updated_at = $9
`

func upsertArgs(p domain.Player, now time.Time) ([]any, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshaling player %s: %w", p.PlayerID, err)
	}
	return []any{
		p.PlayerID,
		p.PlayerName,
		p.Level,
		p.Experience,
		p.Coins,
		p.Discord.ID,
		p.LastSeen,
		data,
		now,
	}, nil
}

// decodePlayer reads the JSONB document of a players row. The row key wins over
// the id stored inside the document.
func decodePlayer(id string, data []byte) (domain.Player, error) {
	var p domain.Player
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Player{}, fmt.Errorf("decoding player %s: %w", id, err)
	}
	p.PlayerID = id
	return p, nil
}

// SavePlayer inserts or replaces a player snapshot
func (r *Repository) SavePlayer(ctx context.Context, p domain.Player) error {
	args, err := upsertArgs(p, time.Now())
	if err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, upsertPlayerQuery, args...); err != nil {
		return fmt.Errorf("upserting player: %w", err)
	}
	return nil
}

// SavePlayers writes many snapshots in one round trip
func (r *Repository) SavePlayers(ctx context.Context, players []domain.Player) error {
	if len(players) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	now := time.Now()
	for _, p := range players {
		args, err := upsertArgs(p, now)
		if err != nil {
			return err
		}
		batch.Queue(upsertPlayerQuery, args...)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range players {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch upserting players: %w", err)
		}
	}
	return nil
}

// DeletePlayer removes a player row. Deleting a missing row is not an error.
func (r *Repository) DeletePlayer(ctx context.Context, playerID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM players WHERE player_id = $1`, playerID); err != nil {
		return fmt.Errorf("deleting player: %w", err)
	}
	return nil
}

// LoadPlayers reads every stored snapshot
func (r *Repository) LoadPlayers(ctx context.Context) ([]domain.Player, error) {
	rows, err := r.pool.Query(ctx, `SELECT player_id, data FROM players`)
	if err != nil {
		return nil, fmt.Errorf("loading players: %w", err)
	}
	defer rows.Close()

	var players []domain.Player
	for rows.Next() {
		var (
			id   string
			data []byte
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scanning player: %w", err)
		}
		p, err := decodePlayer(id, data)
		if err != nil {
			r.logger.Warn("skipping unreadable player row", "player_id", id, "error", err)
			continue
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating players: %w", err)
	}
	return players, nil
}

// RecordEvent records an applied gameplay event for auditing
func (r *Repository) RecordEvent(ctx context.Context, ev domain.Event, out progression.Outcome, at time.Time) error {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}
	outcome, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshaling outcome: %w", err)
	}

	query := `
		INSERT INTO player_events (player_id, action, payload, outcome, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = r.pool.Exec(ctx, query,
		ev.Data.PlayerID,
		string(ev.Action),
		payload,
		outcome,
		at,
	)
	if err != nil {
		return fmt.Errorf("recording event: %w", err)
	}
	return nil
}

// PlayerCount returns the number of stored players
func (r *Repository) PlayerCount(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM players`).Scan(&count); err != nil {
		return 0, fmt.Errorf("getting player count: %w", err)
	}
	return count, nil
}
