package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/progression-hub/internal/config"
	"github.com/progression-hub/internal/domain"
	"github.com/progression-hub/internal/projection"
)

// Mirror keeps a sorted set per leaderboard metric and a player info hash in Redis,
// so dashboards can read rankings without touching the service.
type Mirror struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewMirror creates a new Redis leaderboard mirror
func NewMirror(cfg *config.RedisConfig, logger *slog.Logger) (*Mirror, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return newMirror(client, cfg.KeyPrefix, logger), nil
}

func newMirror(client *redis.Client, prefix string, logger *slog.Logger) *Mirror {
	return &Mirror{client: client, prefix: prefix, logger: logger}
}

// Close closes the Redis connection
func (m *Mirror) Close() error {
	return m.client.Close()
}

// Name identifies the backend in logs and readiness output
func (m *Mirror) Name() string {
	return "redis"
}

// Ping checks the Redis connection
func (m *Mirror) Ping(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}

// leaderboardKey returns the Redis key for a metric's sorted set
func (m *Mirror) leaderboardKey(metric domain.Metric) string {
	return fmt.Sprintf("%s:leaderboard:%s", m.prefix, metric)
}

// playerInfoKey returns the Redis key for player info cache
func (m *Mirror) playerInfoKey(playerID string) string {
	return fmt.Sprintf("%s:player:%s:info", m.prefix, playerID)
}

func (m *Mirror) queuePlayer(ctx context.Context, pipe redis.Pipeliner, p *domain.Player) {
	for _, metric := range domain.Metrics {
		pipe.ZAdd(ctx, m.leaderboardKey(metric), redis.Z{
			Score:  projection.OrderKey(p, metric),
			Member: p.PlayerID,
		})
	}
	pipe.HSet(ctx, m.playerInfoKey(p.PlayerID),
		"name", p.PlayerName,
		"level", p.Level,
		"xp", p.Experience,
		"coins", p.Coins,
		"server", p.Server,
		"discord_id", p.Discord.ID,
		"last_seen", p.LastSeen,
	)
}

// SavePlayer updates every metric of a player
func (m *Mirror) SavePlayer(ctx context.Context, p domain.Player) error {
	pipe := m.client.Pipeline()
	m.queuePlayer(ctx, pipe, &p)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mirroring player: %w", err)
	}
	return nil
}

// SavePlayers mirrors many players using pipelining
func (m *Mirror) SavePlayers(ctx context.Context, players []domain.Player) error {
	if len(players) == 0 {
		return nil
	}

	pipe := m.client.Pipeline()
	for i := range players {
		m.queuePlayer(ctx, pipe, &players[i])
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("batch mirroring players: %w", err)
	}
	return nil
}

func (m *Mirror) queueDelete(ctx context.Context, pipe redis.Pipeliner, playerID string) {
	for _, metric := range domain.Metrics {
		pipe.ZRem(ctx, m.leaderboardKey(metric), playerID)
	}
	pipe.Del(ctx, m.playerInfoKey(playerID))
}

// DeletePlayer removes a player from every sorted set and drops its info hash
func (m *Mirror) DeletePlayer(ctx context.Context, playerID string) error {
	pipe := m.client.Pipeline()
	m.queueDelete(ctx, pipe, playerID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("removing player: %w", err)
	}
	return nil
}
