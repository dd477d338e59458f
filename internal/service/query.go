package service

import (
	"context"
	"fmt"
	"time"

	"github.com/progression-hub/internal/domain"
	"github.com/progression-hub/internal/progression"
	"github.com/progression-hub/internal/projection"
)

// Profile is the player card shown by the bot
type Profile struct {
	PlayerID        string `json:"playerId"`
	PlayerName      string `json:"playerName"`
	Level           int    `json:"level"`
	Experience      int    `json:"xp"`
	TotalCoins      int64  `json:"totalCoins"`
	JoinDate        string `json:"joinDate"`
	LastSeen        string `json:"lastSeen"`
	PlaytimeMinutes int    `json:"playtimeMinutes"`
	Server          string `json:"server"`
	IsOnline        bool   `json:"isOnline"`
}

// CoinDetail is a player's balance and last coin movement
type CoinDetail struct {
	PlayerID        string              `json:"playerId"`
	PlayerName      string              `json:"playerName"`
	Coins           int64               `json:"coins"`
	TotalEarned     int64               `json:"totalEarned"`
	TotalSpent      int64               `json:"totalSpent"`
	LastTransaction *domain.Transaction `json:"lastTransaction"`
}

// LevelDetail is a player's progress through the current level
type LevelDetail struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	progression.LevelDetail
}

// PvPStats holds the PvP counters
type PvPStats struct {
	PlayerKills  int     `json:"playerKills"`
	PlayerDeaths int     `json:"playerDeaths"`
	KDR          float64 `json:"kdr"`
}

// XPSources breaks experience down by source
type XPSources struct {
	FromKills  int `json:"fromKills"`
	FromTime   int `json:"fromTime"`
	FromQuests int `json:"fromQuests"`
}

// StatsDetail is the combat and session summary of a player
type StatsDetail struct {
	PlayerID          string             `json:"playerId"`
	PlayerName        string             `json:"playerName"`
	Kills             int                `json:"kills"`
	Deaths            int                `json:"deaths"`
	KDR               float64            `json:"kdr"`
	PlaytimeMinutes   int                `json:"playtimeMinutes"`
	PlaytimeFormatted string             `json:"playtimeFormatted"`
	Achievements      int                `json:"achievements"`
	LoginCount        int                `json:"loginCount"`
	LastLogin         string             `json:"lastLogin"`
	PvPStats          PvPStats           `json:"pvpStats"`
	XPSources         XPSources          `json:"xpSources"`
	RecentKills       domain.KillHistory `json:"recentKills"`
}

// LinkLookup is the reverse lookup of an external identity
type LinkLookup struct {
	Found           bool   `json:"found"`
	PlayerID        string `json:"playerId"`
	PlayerName      string `json:"playerName"`
	DiscordUsername string `json:"discordUsername"`
	DiscordLinked   bool   `json:"discordLinked"`
	DiscordLinkDate int64  `json:"discordLinkDate"`
}

// OnlineEntry is a row of the summary online list
type OnlineEntry struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	LastSeen   int64  `json:"lastSeen"`
}

// OnlineSummary lists who is online
type OnlineSummary struct {
	OnlineCount   int           `json:"onlineCount"`
	TotalPlayers  int           `json:"totalPlayers"`
	OnlinePlayers []OnlineEntry `json:"onlinePlayers"`
	LastUpdate    int64         `json:"lastUpdate"`
}

// OnlineDetailed lists who is online with their progression
type OnlineDetailed struct {
	OnlineCount  int                       `json:"onlineCount"`
	TotalPlayers int                       `json:"totalPlayers"`
	Players      []projection.OnlinePlayer `json:"players"`
	LastUpdate   int64                     `json:"lastUpdate"`
	ServerStatus string                    `json:"serverStatus"`
}

// LinkEntry is one linked player
type LinkEntry struct {
	PlayerID        string `json:"playerId"`
	PlayerName      string `json:"playerName"`
	DiscordID       string `json:"discordId"`
	DiscordUsername string `json:"discordUsername"`
	LinkDate        int64  `json:"linkDate"`
}

// LinkList lists every linked player
type LinkList struct {
	TotalLinks int         `json:"totalLinks"`
	Links      []LinkEntry `json:"links"`
}

// ServerStats are totals over all players
type ServerStats struct {
	TotalPlayers  int   `json:"totalPlayers"`
	LinkedPlayers int   `json:"linkedPlayers"`
	OnlinePlayers int   `json:"onlinePlayers"`
	PendingCodes  int   `json:"pendingCodes"`
	BannedClients int   `json:"bannedClients"`
	Timestamp     int64 `json:"timestamp"`
}

// GetPlayer returns the full player record
func (s *PlayerService) GetPlayer(ctx context.Context, playerID string) (*domain.Player, error) {
	p, ok := s.store.Get(playerID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrPlayerNotFound, playerID)
	}
	return p, nil
}

// GetProfile returns the player card
func (s *PlayerService) GetProfile(ctx context.Context, playerID string) (*Profile, error) {
	p, err := s.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return &Profile{
		PlayerID:        p.PlayerID,
		PlayerName:      p.PlayerName,
		Level:           p.Level,
		Experience:      p.Experience,
		TotalCoins:      p.Coins,
		JoinDate:        isoTime(p.FirstJoin),
		LastSeen:        isoTime(p.LastSeen),
		PlaytimeMinutes: p.PlaytimeMinutes,
		Server:          p.Server,
		IsOnline:        projection.IsOnline(p, now, s.config.Presence.Window),
	}, nil
}

// GetCoins returns the player's coin detail
func (s *PlayerService) GetCoins(ctx context.Context, playerID string) (*CoinDetail, error) {
	p, err := s.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	return &CoinDetail{
		PlayerID:        p.PlayerID,
		PlayerName:      p.PlayerName,
		Coins:           p.Coins,
		TotalEarned:     p.TotalCoinsEarned,
		TotalSpent:      p.TotalCoinsSpent,
		LastTransaction: p.LastTransaction,
	}, nil
}

// GetLevel returns the player's level progress
func (s *PlayerService) GetLevel(ctx context.Context, playerID string) (*LevelDetail, error) {
	p, err := s.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	return &LevelDetail{
		PlayerID:    p.PlayerID,
		PlayerName:  p.PlayerName,
		LevelDetail: progression.Progress(p),
	}, nil
}

// GetStats returns the player's combat summary
func (s *PlayerService) GetStats(ctx context.Context, playerID string) (*StatsDetail, error) {
	p, err := s.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	kdr := progression.KDR(p.Stats.PlayerKills, p.Stats.PlayerDeaths)
	return &StatsDetail{
		PlayerID:          p.PlayerID,
		PlayerName:        p.PlayerName,
		Kills:             p.Stats.PlayerKills,
		Deaths:            p.Stats.PlayerDeaths,
		KDR:               kdr,
		PlaytimeMinutes:   p.PlaytimeMinutes,
		PlaytimeFormatted: formatPlaytime(p.PlaytimeMinutes),
		Achievements:      len(p.Achievements),
		LoginCount:        p.Stats.LoginCount,
		LastLogin:         isoTime(p.LastSeen),
		PvPStats: PvPStats{
			PlayerKills:  p.Stats.PlayerKills,
			PlayerDeaths: p.Stats.PlayerDeaths,
			KDR:          kdr,
		},
		XPSources: XPSources{
			FromKills:  p.Stats.XPFromKills,
			FromTime:   p.Stats.XPFromTime,
			FromQuests: p.Stats.XPFromQuests,
		},
		RecentKills: p.KillHistory,
	}, nil
}

// FindByDiscord returns the player linked to the external id
func (s *PlayerService) FindByDiscord(ctx context.Context, discordID string) (*LinkLookup, error) {
	if discordID == "" {
		return nil, domain.InvalidInput("discordId is required")
	}
	for _, p := range s.snapshot() {
		if p.Discord.ID == discordID {
			return &LinkLookup{
				Found:           true,
				PlayerID:        p.PlayerID,
				PlayerName:      p.PlayerName,
				DiscordUsername: p.Discord.Username,
				DiscordLinked:   p.Discord.Linked,
				DiscordLinkDate: p.Discord.LinkDate,
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: no player linked to %s", domain.ErrPlayerNotFound, discordID)
}

// GetLeaderboard ranks players by the named category. A non-positive limit uses
// the configured default and limits above the configured maximum are capped.
func (s *PlayerService) GetLeaderboard(ctx context.Context, category string, limit int) (*domain.Leaderboard, error) {
	metric, err := domain.ParseMetric(category)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.config.Leaderboard.DefaultLimit
	}
	if limit > s.config.Leaderboard.MaxLimit {
		limit = s.config.Leaderboard.MaxLimit
	}

	lb := projection.Leaderboard(s.snapshot(), metric, limit, s.now())
	return &lb, nil
}

// Online returns the players active within the recent activity window
func (s *PlayerService) Online(ctx context.Context) []*domain.Player {
	return projection.Online(s.snapshot(), s.now(), s.config.Presence.RecentWindow)
}

// GetOnlineSummary lists the players active within the recent activity window
func (s *PlayerService) GetOnlineSummary(ctx context.Context) *OnlineSummary {
	all := s.snapshot()
	now := s.now()
	online := projection.Online(all, now, s.config.Presence.RecentWindow)

	entries := make([]OnlineEntry, len(online))
	for i, p := range online {
		entries[i] = OnlineEntry{PlayerID: p.PlayerID, PlayerName: p.PlayerName, LastSeen: p.LastSeen}
	}
	return &OnlineSummary{
		OnlineCount:   len(entries),
		TotalPlayers:  len(all),
		OnlinePlayers: entries,
		LastUpdate:    now.UnixMilli(),
	}
}

// GetOnlineDetailed lists active players with progression and link details
func (s *PlayerService) GetOnlineDetailed(ctx context.Context) *OnlineDetailed {
	all := s.snapshot()
	now := s.now()
	online := projection.Online(all, now, s.config.Presence.RecentWindow)

	rows := make([]projection.OnlinePlayer, len(online))
	for i, p := range online {
		rows[i] = projection.Detail(p, now)
	}
	status := "waiting"
	if len(rows) > 0 {
		status = "online"
	}
	return &OnlineDetailed{
		OnlineCount:  len(rows),
		TotalPlayers: len(all),
		Players:      rows,
		LastUpdate:   now.UnixMilli(),
		ServerStatus: status,
	}
}

// ListLinks returns every linked player
func (s *PlayerService) ListLinks(ctx context.Context) *LinkList {
	links := make([]LinkEntry, 0)
	for _, p := range s.snapshot() {
		if !p.Discord.IsLinked() {
			continue
		}
		links = append(links, LinkEntry{
			PlayerID:        p.PlayerID,
			PlayerName:      p.PlayerName,
			DiscordID:       p.Discord.ID,
			DiscordUsername: p.Discord.Username,
			LinkDate:        p.Discord.LinkDate,
		})
	}
	return &LinkList{TotalLinks: len(links), Links: links}
}

// GetServerStats returns totals over all players
func (s *PlayerService) GetServerStats(ctx context.Context) *ServerStats {
	all := s.snapshot()
	now := s.now()
	linked := 0
	for _, p := range all {
		if p.Discord.IsLinked() {
			linked++
		}
	}
	return &ServerStats{
		TotalPlayers:  len(all),
		LinkedPlayers: linked,
		OnlinePlayers: len(projection.Online(all, now, s.config.Presence.Window)),
		PendingCodes:  s.codes.Pending(),
		BannedClients: s.guard.Banned(),
		Timestamp:     now.UnixMilli(),
	}
}

func isoTime(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05.000Z")
}

func formatPlaytime(minutes int) string {
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
