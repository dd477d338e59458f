package domain

import "time"

// Progression defaults for freshly created players
const (
	DefaultLevel       = 1
	DefaultServer      = "hytale-server-1"
	ExperiencePerLevel = 100
)

// Player is the authoritative progression record for one player
type Player struct {
	PlayerID         string        `json:"playerId"`
	PlayerName       string        `json:"playerName"`
	Server           string        `json:"server"`
	Level            int           `json:"level"`
	Experience       int           `json:"xp"`
	Coins            int64         `json:"coins"`
	TotalCoinsEarned int64         `json:"totalCoinsEarned"`
	TotalCoinsSpent  int64         `json:"totalCoinsSpent"`
	FirstJoin        int64         `json:"firstJoin"`
	LastSeen         int64         `json:"lastSeen"`
	PlaytimeMinutes  int           `json:"playtimeMinutes"`
	Stats            PlayerStats   `json:"stats"`
	Achievements     []Achievement `json:"achievements"`
	KillHistory      KillHistory   `json:"killHistory"`
	LastTransaction  *Transaction  `json:"lastTransaction"`
	Discord          DiscordLink   `json:"discord"`
}

// PlayerStats holds combat and session counters.
// Kills and Deaths are legacy aggregates; PlayerKills and PlayerDeaths count PvP only.
type PlayerStats struct {
	Kills        int `json:"kills"`
	Deaths       int `json:"deaths"`
	PlayerKills  int `json:"playerKills"`
	PlayerDeaths int `json:"playerDeaths"`
	XPFromKills  int `json:"xpFromKills"`
	XPFromTime   int `json:"xpFromTime"`
	XPFromQuests int `json:"xpFromQuests"`
	LoginCount   int `json:"loginCount"`
}

// Achievement is an unlocked achievement
type Achievement struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	RewardCoins int64  `json:"rewardCoins"`
	Timestamp   int64  `json:"timestamp"`
}

// Transaction types
const (
	TransactionEarn            = "earn"
	TransactionSpend           = "spend"
	TransactionTransferSend    = "transfer_send"
	TransactionTransferReceive = "transfer_receive"
)

// Transaction is the most recent coin movement of a player
type Transaction struct {
	Type      string `json:"type"`
	Amount    int64  `json:"amount"`
	Reason    string `json:"reason,omitempty"`
	Target    string `json:"target,omitempty"`
	From      string `json:"from,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// DiscordLink binds a player to a Discord account
type DiscordLink struct {
	ID       string `json:"discordId,omitempty"`
	Username string `json:"discordUsername,omitempty"`
	Avatar   string `json:"discordAvatar,omitempty"`
	Linked   bool   `json:"discordLinked"`
	LinkDate int64  `json:"discordLinkDate,omitempty"`
}

// IsLinked reports whether the link carries an external identity
func (d DiscordLink) IsLinked() bool {
	return d.Linked && d.ID != ""
}

// NewPlayer returns a player with default progression values
func NewPlayer(playerID, playerName string, now time.Time) *Player {
	ms := now.UnixMilli()
	return &Player{
		PlayerID:   playerID,
		PlayerName: playerName,
		Server:     DefaultServer,
		Level:      DefaultLevel,
		FirstJoin:  ms,
		LastSeen:   ms,
	}
}

// Clone returns a deep copy of the player
func (p *Player) Clone() *Player {
	c := *p
	if p.Achievements != nil {
		c.Achievements = make([]Achievement, len(p.Achievements))
		copy(c.Achievements, p.Achievements)
	}
	if p.LastTransaction != nil {
		tx := *p.LastTransaction
		c.LastTransaction = &tx
	}
	return &c
}

// TotalExperience returns the cumulative experience implied by level and in-level progress
func (p *Player) TotalExperience() int {
	return (p.Level-1)*ExperiencePerLevel + p.Experience
}

// LastSeenTime returns LastSeen as a time.Time
func (p *Player) LastSeenTime() time.Time {
	return time.UnixMilli(p.LastSeen)
}

// PlayerSummary is a lightweight view used for push notifications
type PlayerSummary struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Level      int    `json:"level"`
	Experience int    `json:"xp"`
	Coins      int64  `json:"coins"`
	LastSeen   int64  `json:"lastSeen"`
}

// Summary returns the summary view of the player
func (p *Player) Summary() PlayerSummary {
	return PlayerSummary{
		PlayerID:   p.PlayerID,
		PlayerName: p.PlayerName,
		Level:      p.Level,
		Experience: p.Experience,
		Coins:      p.Coins,
		LastSeen:   p.LastSeen,
	}
}
