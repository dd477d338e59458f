// Package projection derives read-only views from player snapshots:
// presence lists and per-metric leaderboards.
package projection

import (
	"cmp"
	"slices"
	"time"

	"github.com/progression-hub/internal/domain"
	"github.com/progression-hub/internal/progression"
)

// Presence windows
const (
	// RecentActivityWindow backs the online player lists
	RecentActivityWindow = 120 * time.Second
	// PresenceWindow backs the profile online flag and server stats
	PresenceWindow = 300 * time.Second
)

// DefaultLimit is the leaderboard size when none is requested
const DefaultLimit = 10

// IsOnline reports whether the player was seen within window before now
func IsOnline(p *domain.Player, now time.Time, window time.Duration) bool {
	return now.Sub(p.LastSeenTime()) < window
}

// Online returns the players seen within window, highest level first.
// Players on the same level keep their input order.
func Online(players []*domain.Player, now time.Time, window time.Duration) []*domain.Player {
	online := make([]*domain.Player, 0)
	for _, p := range players {
		if IsOnline(p, now, window) {
			online = append(online, p)
		}
	}
	slices.SortStableFunc(online, func(a, b *domain.Player) int {
		return cmp.Compare(b.Level, a.Level)
	})
	return online
}

// OnlinePlayer is the detailed presence row
type OnlinePlayer struct {
	PlayerID        string  `json:"playerId"`
	PlayerName      string  `json:"playerName"`
	Level           int     `json:"level"`
	Experience      int     `json:"xp"`
	Coins           int64   `json:"coins"`
	Kills           int     `json:"kills"`
	Deaths          int     `json:"deaths"`
	KDR             float64 `json:"kdr"`
	LastSeen        int64   `json:"lastSeen"`
	Server          string  `json:"server"`
	PlaytimeMinutes int     `json:"playtimeMinutes"`
	OnlineFor       int     `json:"onlineFor"`
	domain.DiscordLink
}

// Detail builds the detailed presence row for p
func Detail(p *domain.Player, now time.Time) OnlinePlayer {
	return OnlinePlayer{
		PlayerID:        p.PlayerID,
		PlayerName:      p.PlayerName,
		Level:           p.Level,
		Experience:      p.Experience,
		Coins:           p.Coins,
		Kills:           p.Stats.PlayerKills,
		Deaths:          p.Stats.PlayerDeaths,
		KDR:             progression.KDR(p.Stats.PlayerKills, p.Stats.PlayerDeaths),
		LastSeen:        p.LastSeen,
		Server:          p.Server,
		PlaytimeMinutes: p.PlaytimeMinutes,
		OnlineFor:       int(now.Sub(p.LastSeenTime()) / time.Minute),
		DiscordLink:     p.Discord,
	}
}

// OrderKey returns the sort key of p for metric. Higher ranks first.
func OrderKey(p *domain.Player, metric domain.Metric) float64 {
	switch metric {
	case domain.MetricLevel:
		return float64(p.Level)
	case domain.MetricCoins:
		return float64(p.Coins)
	case domain.MetricXP:
		return float64(p.TotalExperience())
	case domain.MetricKills:
		return float64(p.Stats.PlayerKills)
	case domain.MetricDeaths:
		return float64(p.Stats.PlayerDeaths)
	case domain.MetricKDR:
		return progression.RawKDR(p.Stats.PlayerKills, p.Stats.PlayerDeaths)
	}
	return 0
}

// Value returns the displayed leaderboard value of p for metric
func Value(p *domain.Player, metric domain.Metric) float64 {
	if metric == domain.MetricKDR {
		return progression.KDR(p.Stats.PlayerKills, p.Stats.PlayerDeaths)
	}
	return OrderKey(p, metric)
}

// Leaderboard ranks players by metric and returns the first limit rows.
// Ranks start at 1 and ties keep their input order.
func Leaderboard(players []*domain.Player, metric domain.Metric, limit int, now time.Time) domain.Leaderboard {
	if limit <= 0 {
		limit = DefaultLimit
	}

	sorted := slices.Clone(players)
	slices.SortStableFunc(sorted, func(a, b *domain.Player) int {
		return cmp.Compare(OrderKey(b, metric), OrderKey(a, metric))
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	entries := make([]domain.LeaderboardEntry, len(sorted))
	for i, p := range sorted {
		entries[i] = Entry(p, metric, int64(i+1))
	}

	return domain.Leaderboard{
		Category:     metric,
		Players:      entries,
		TotalPlayers: len(players),
		Timestamp:    now.UnixMilli(),
	}
}

// Entry builds a leaderboard row
func Entry(p *domain.Player, metric domain.Metric, rank int64) domain.LeaderboardEntry {
	return domain.LeaderboardEntry{
		Rank:        rank,
		PlayerID:    p.PlayerID,
		PlayerName:  p.PlayerName,
		Value:       Value(p, metric),
		Level:       p.Level,
		Experience:  p.Experience,
		Coins:       p.Coins,
		TotalEarned: p.TotalCoinsEarned,
		TotalSpent:  p.TotalCoinsSpent,
		Kills:       p.Stats.PlayerKills,
		Deaths:      p.Stats.PlayerDeaths,
		KDR:         progression.KDR(p.Stats.PlayerKills, p.Stats.PlayerDeaths),
		Server:      p.Server,
	}
}

// ByFirstJoin orders players by join time, then id, so that projections over
// an unordered snapshot are deterministic.
func ByFirstJoin(players []*domain.Player) []*domain.Player {
	slices.SortFunc(players, func(a, b *domain.Player) int {
		if c := cmp.Compare(a.FirstJoin, b.FirstJoin); c != 0 {
			return c
		}
		return cmp.Compare(a.PlayerID, b.PlayerID)
	})
	return players
}
