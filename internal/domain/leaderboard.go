package domain

import "strings"

// Metric is a leaderboard ordering
type Metric string

const (
	MetricLevel  Metric = "level"
	MetricCoins  Metric = "coins"
	MetricXP     Metric = "xp"
	MetricKills  Metric = "kills"
	MetricDeaths Metric = "deaths"
	MetricKDR    Metric = "kdr"
)

// Metrics lists every leaderboard metric
var Metrics = []Metric{MetricLevel, MetricCoins, MetricXP, MetricKills, MetricDeaths, MetricKDR}

// ParseMetric resolves a leaderboard category name. "coin" is accepted as an alias of "coins".
func ParseMetric(s string) (Metric, error) {
	switch m := Metric(strings.ToLower(s)); m {
	case "coin":
		return MetricCoins, nil
	case MetricLevel, MetricCoins, MetricXP, MetricKills, MetricDeaths, MetricKDR:
		return m, nil
	}
	return "", InvalidInput("unknown leaderboard category %q (level, coin, xp, kills, deaths or kdr)", s)
}

// LeaderboardEntry represents a single entry in the leaderboard
type LeaderboardEntry struct {
	Rank        int64   `json:"rank"`
	PlayerID    string  `json:"playerId"`
	PlayerName  string  `json:"playerName"`
	Value       float64 `json:"value"`
	Level       int     `json:"level"`
	Experience  int     `json:"xp"`
	Coins       int64   `json:"coins"`
	TotalEarned int64   `json:"totalEarned"`
	TotalSpent  int64   `json:"totalSpent"`
	Kills       int     `json:"kills"`
	Deaths      int     `json:"deaths"`
	KDR         float64 `json:"kdr"`
	Server      string  `json:"server"`
}

// Leaderboard is a ranked view over all players for one metric
type Leaderboard struct {
	Category     Metric             `json:"category"`
	Players      []LeaderboardEntry `json:"players"`
	TotalPlayers int                `json:"totalPlayers"`
	Timestamp    int64              `json:"timestamp"`
}
