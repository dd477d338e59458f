package domain

import (
	"fmt"
	"time"
)

// EventKind identifies a gameplay event reported by the server plugin
type EventKind string

const (
	EventJoin        EventKind = "join"
	EventLeave       EventKind = "leave"
	EventKill        EventKind = "kill"
	EventLevelUp     EventKind = "levelup"
	EventCoinEarn    EventKind = "coin_earn"
	EventCoinSpend   EventKind = "coin_spend"
	EventAchievement EventKind = "achievement"
	EventDeath       EventKind = "death"
	EventDiscordAuth EventKind = "discord_auth"
	EventStatsUpdate EventKind = "stats_update"
)

// Known reports whether the kind is one the ingestion handler acts on
func (k EventKind) Known() bool {
	switch k {
	case EventJoin, EventLeave, EventKill, EventLevelUp, EventCoinEarn, EventCoinSpend,
		EventAchievement, EventDeath, EventDiscordAuth, EventStatsUpdate:
		return true
	}
	return false
}

// Event is a single gameplay event as sent by the plugin
type Event struct {
	Player string    `json:"player"`
	Action EventKind `json:"action"`
	Data   EventData `json:"data"`
}

// EventData is the union of all event payload fields.
// Numeric fields that are required by some kinds are pointers so absence can be detected.
type EventData struct {
	PlayerID  string `json:"playerId"`
	Server    string `json:"server,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`

	// kill
	MobType    string `json:"mobType,omitempty"`
	Location   string `json:"location,omitempty"`
	VictimName string `json:"victimName,omitempty"`

	// leave
	PlayTimeMinutes *int `json:"playTimeMinutes,omitempty"`

	// levelup
	NewLevel *int `json:"newLevel,omitempty"`
	XPGained *int `json:"xpGained,omitempty"`

	// coin_earn / coin_spend
	TotalCoins  *int64 `json:"totalCoins,omitempty"`
	CoinsEarned *int64 `json:"coinsEarned,omitempty"`
	CoinsSpent  *int64 `json:"coinsSpent,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Item        string `json:"item,omitempty"`

	// achievement
	Achievement string `json:"achievement,omitempty"`
	Description string `json:"description,omitempty"`
	RewardCoins int64  `json:"rewardCoins,omitempty"`

	// discord_auth
	DiscordID       string `json:"discordId,omitempty"`
	DiscordUsername string `json:"discordUsername,omitempty"`
	DiscordAvatar   string `json:"discordAvatar,omitempty"`

	// stats_update
	StatType string `json:"statType,omitempty"`
	NewValue *int   `json:"newValue,omitempty"`
}

// Stat types accepted by stats_update
const (
	StatKills  = "kills"
	StatDeaths = "deaths"
)

// TimestampOr returns the event timestamp, or now when the plugin omitted it
func (d *EventData) TimestampOr(now time.Time) int64 {
	if d.Timestamp > 0 {
		return d.Timestamp
	}
	return now.UnixMilli()
}

// Validate checks the payload shape required by the event kind.
// Unknown kinds only need a player id.
func (e *Event) Validate() error {
	d := &e.Data
	if d.PlayerID == "" {
		return invalid("data.playerId is required")
	}
	if d.Timestamp < 0 {
		return invalid("data.timestamp must not be negative")
	}

	switch e.Action {
	case EventLeave:
		if d.PlayTimeMinutes != nil && *d.PlayTimeMinutes < 0 {
			return invalid("data.playTimeMinutes must not be negative")
		}
	case EventLevelUp:
		if d.NewLevel == nil || *d.NewLevel < DefaultLevel {
			return invalid("data.newLevel must be at least 1")
		}
		if d.XPGained != nil && *d.XPGained < 0 {
			return invalid("data.xpGained must not be negative")
		}
	case EventCoinEarn:
		if err := requireAmount("totalCoins", d.TotalCoins); err != nil {
			return err
		}
		if err := requireAmount("coinsEarned", d.CoinsEarned); err != nil {
			return err
		}
	case EventCoinSpend:
		if err := requireAmount("totalCoins", d.TotalCoins); err != nil {
			return err
		}
		if err := requireAmount("coinsSpent", d.CoinsSpent); err != nil {
			return err
		}
	case EventAchievement:
		if d.Achievement == "" {
			return invalid("data.achievement is required")
		}
		if d.RewardCoins < 0 {
			return invalid("data.rewardCoins must not be negative")
		}
	case EventDiscordAuth:
		if d.DiscordID == "" {
			return invalid("data.discordId is required")
		}
	case EventStatsUpdate:
		if d.StatType != StatKills && d.StatType != StatDeaths {
			return invalid("data.statType must be kills or deaths")
		}
		if d.NewValue == nil || *d.NewValue < 0 {
			return invalid("data.newValue must be a non-negative number")
		}
	}
	return nil
}

func requireAmount(field string, v *int64) error {
	if v == nil {
		return invalid(fmt.Sprintf("data.%s is required", field))
	}
	if *v < 0 {
		return invalid(fmt.Sprintf("data.%s must not be negative", field))
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

// InvalidInput wraps ErrInvalidInput with a message
func InvalidInput(format string, args ...any) error {
	return invalid(fmt.Sprintf(format, args...))
}
