// Package sqlite persists player snapshots to a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/progression-hub/internal/domain"
)

// Store writes player snapshots to the users table
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens or creates the database file and its schema
func Open(path string, logger *slog.Logger) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		level INTEGER NOT NULL DEFAULT 1,
		xp INTEGER NOT NULL DEFAULT 0,
		coins INTEGER NOT NULL DEFAULT 0,
		data TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Name identifies the backend in logs and readiness output
func (s *Store) Name() string {
	return "sqlite"
}

// Ping checks the database
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const upsertUser = `
	INSERT INTO users (id, username, level, xp, coins, data, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(id) DO UPDATE SET
		username = excluded.username,
		level = excluded.level,
		xp = excluded.xp,
		coins = excluded.coins,
		data = excluded.data,
		updated_at = CURRENT_TIMESTAMP
`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveUser(ctx context.Context, e execer, p domain.Player) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling player %s: %w", p.PlayerID, err)
	}
	_, err = e.ExecContext(ctx, upsertUser,
		p.PlayerID,
		p.PlayerName,
		p.Level,
		p.Experience,
		p.Coins,
		string(data),
	)
	if err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}
	return nil
}

// SavePlayer inserts or replaces a player snapshot
func (s *Store) SavePlayer(ctx context.Context, p domain.Player) error {
	return saveUser(ctx, s.db, p)
}

// SavePlayers writes many snapshots in one transaction
func (s *Store) SavePlayers(ctx context.Context, players []domain.Player) error {
	if len(players) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, p := range players {
		if err := saveUser(ctx, tx, p); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing users: %w", err)
	}
	return nil
}

// DeletePlayer removes a user row
func (s *Store) DeletePlayer(ctx context.Context, playerID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, playerID); err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return nil
}

// LoadPlayers reads every stored snapshot. Rows written without a JSON
// document keep their columns on top of default values.
func (s *Store) LoadPlayers(ctx context.Context) ([]domain.Player, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, username, level, xp, coins, data FROM users`)
	if err != nil {
		return nil, fmt.Errorf("loading users: %w", err)
	}
	defer rows.Close()

	var players []domain.Player
	for rows.Next() {
		var (
			p         domain.Player
			id, name  string
			level, xp int
			coins     int64
			data      sql.NullString
		)
		if err := rows.Scan(&id, &name, &level, &xp, &coins, &data); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		if data.Valid && data.String != "" {
			if err := json.Unmarshal([]byte(data.String), &p); err != nil {
				s.logger.Warn("ignoring unreadable user document", "player_id", id, "error", err)
			}
		}
		p.PlayerID = id
		p.PlayerName = name
		p.Level = level
		p.Experience = xp
		p.Coins = coins
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return players, nil
}
