// Package progression holds the pure rules that turn gameplay events into
// experience, level and currency changes on a player record.
package progression

import (
	"math"
	"strings"
	"time"

	"github.com/progression-hub/internal/domain"
)

// Progression rules
const (
	PvPKillReward        = 10
	LevelUpBonusPerLevel = 50
	DeathPenaltyPercent  = 5
	DefaultTransferNote  = "Transfer"
	unknownValue         = "Unknown"
)

// LevelUp describes a level transition and the coins it awarded
type LevelUp struct {
	From  int   `json:"from"`
	To    int   `json:"to"`
	Bonus int64 `json:"bonus"`
}

// Outcome summarises what an event did to a player
type Outcome struct {
	Kind     domain.EventKind `json:"kind"`
	Ignored  bool             `json:"ignored,omitempty"`
	PvP      bool             `json:"pvp,omitempty"`
	XPGained int              `json:"xpGained,omitempty"`
	XPLost   int              `json:"xpLost,omitempty"`
	LevelUp  *LevelUp         `json:"levelUp,omitempty"`
}

// IsPvP reports whether a kill of the given mob type was a player kill
func IsPvP(mobType string) bool {
	switch strings.ToLower(mobType) {
	case "player", "pvp":
		return true
	}
	return false
}

// Apply dispatches an already validated event onto the player.
// Unknown kinds leave the player untouched and report Ignored.
func Apply(p *domain.Player, ev domain.Event, now time.Time) Outcome {
	d := &ev.Data
	out := Outcome{Kind: ev.Action}

	switch ev.Action {
	case domain.EventJoin:
		p.Stats.LoginCount++
	case domain.EventLeave:
		ApplyLeave(p, d)
	case domain.EventKill:
		out = ApplyKill(p, d, now)
	case domain.EventLevelUp:
		xp := 0
		if d.XPGained != nil {
			xp = *d.XPGained
		}
		out.XPGained = xp
		out.LevelUp = ApplyLevelUp(p, *d.NewLevel, xp)
	case domain.EventCoinEarn:
		ApplyCoinEarn(p, *d.TotalCoins, *d.CoinsEarned, d.Reason, d.TimestampOr(now))
	case domain.EventCoinSpend:
		ApplyCoinSpend(p, *d.TotalCoins, *d.CoinsSpent, d.Item, d.TimestampOr(now))
	case domain.EventAchievement:
		p.Achievements = append(p.Achievements, domain.Achievement{
			Name:        d.Achievement,
			Description: d.Description,
			RewardCoins: d.RewardCoins,
			Timestamp:   d.TimestampOr(now),
		})
	case domain.EventDeath:
		out.XPLost = ApplyDeath(p)
	case domain.EventDiscordAuth:
		Link(p, domain.DiscordLink{
			ID:       d.DiscordID,
			Username: d.DiscordUsername,
			Avatar:   d.DiscordAvatar,
		}, d.TimestampOr(now))
	case domain.EventStatsUpdate:
		switch d.StatType {
		case domain.StatKills:
			p.Stats.Kills = *d.NewValue
		case domain.StatDeaths:
			p.Stats.Deaths = *d.NewValue
		}
	default:
		out.Ignored = true
	}
	return out
}

// ApplyKill records a kill. Only PvP kills grant experience and enter the kill history;
// other kills only bump the legacy kill counter.
func ApplyKill(p *domain.Player, d *domain.EventData, now time.Time) Outcome {
	out := Outcome{Kind: domain.EventKill}
	p.Stats.Kills++
	if !IsPvP(d.MobType) {
		return out
	}

	out.PvP = true
	out.XPGained = PvPKillReward
	p.Stats.PlayerKills++
	p.Experience += PvPKillReward
	p.Stats.XPFromKills += PvPKillReward
	p.KillHistory.Push(domain.KillRecord{
		MobType:    "player",
		XPGained:   PvPKillReward,
		Timestamp:  d.TimestampOr(now),
		Location:   orUnknown(d.Location),
		VictimName: orUnknown(d.VictimName),
	})
	out.LevelUp = Reconcile(p)
	return out
}

// Reconcile promotes the player one level per full ExperiencePerLevel held in the
// in-level counter. Each promotion to level N awards N*LevelUpBonusPerLevel coins.
// It returns nil when the level did not change.
func Reconcile(p *domain.Player) *LevelUp {
	if p.Experience < domain.ExperiencePerLevel {
		return nil
	}
	up := &LevelUp{From: p.Level}
	for p.Experience >= domain.ExperiencePerLevel {
		p.Experience -= domain.ExperiencePerLevel
		p.Level++
		bonus := int64(p.Level) * LevelUpBonusPerLevel
		p.Coins += bonus
		p.TotalCoinsEarned += bonus
		up.Bonus += bonus
	}
	up.To = p.Level
	return up
}

// ApplyDeath counts a PvP death and removes DeathPenaltyPercent of the in-level
// experience, rounded down. Levels are never lost. It returns the experience removed.
func ApplyDeath(p *domain.Player) int {
	p.Stats.Deaths++
	p.Stats.PlayerDeaths++
	penalty := DeathPenalty(p.Experience)
	p.Experience = max(0, p.Experience-penalty)
	return penalty
}

// DeathPenalty returns floor(DeathPenaltyPercent% of xp)
func DeathPenalty(xp int) int {
	if xp <= 0 {
		return 0
	}
	return xp * DeathPenaltyPercent / 100
}

// ApplyLeave adds the session playtime and backdates LastSeen to the reported leave time
func ApplyLeave(p *domain.Player, d *domain.EventData) {
	if d.PlayTimeMinutes == nil || *d.PlayTimeMinutes == 0 {
		return
	}
	p.PlaytimeMinutes += *d.PlayTimeMinutes
	if d.Timestamp > 0 {
		p.LastSeen = d.Timestamp
	}
}

// ApplyLevelUp takes a plugin-reported level (never lowering the current one),
// adds the reported experience and reconciles.
func ApplyLevelUp(p *domain.Player, newLevel, xpGained int) *LevelUp {
	from := p.Level
	if newLevel > p.Level {
		p.Level = newLevel
	}
	p.Experience += xpGained
	up := Reconcile(p)
	if up != nil {
		up.From = from
		return up
	}
	if p.Level != from {
		return &LevelUp{From: from, To: p.Level}
	}
	return nil
}

// ApplyCoinEarn sets the plugin-reported balance and accumulates the earned amount
func ApplyCoinEarn(p *domain.Player, total, earned int64, reason string, ts int64) {
	p.Coins = total
	p.TotalCoinsEarned += earned
	p.LastTransaction = &domain.Transaction{
		Type:      domain.TransactionEarn,
		Amount:    earned,
		Reason:    reason,
		Timestamp: ts,
	}
}

// ApplyCoinSpend sets the plugin-reported balance and accumulates the spent amount
func ApplyCoinSpend(p *domain.Player, total, spent int64, item string, ts int64) {
	p.Coins = total
	p.TotalCoinsSpent += spent
	p.LastTransaction = &domain.Transaction{
		Type:      domain.TransactionSpend,
		Amount:    spent,
		Reason:    item,
		Timestamp: ts,
	}
}

// Debit removes coins for a transfer. It fails with ErrInsufficientBalance without
// touching the player when the balance is too small.
func Debit(p *domain.Player, amount int64, target, reason string, ts int64) error {
	if amount <= 0 {
		return domain.InvalidInput("amount must be positive")
	}
	if p.Coins < amount {
		return domain.ErrInsufficientBalance
	}
	p.Coins -= amount
	p.TotalCoinsSpent += amount
	p.LastTransaction = &domain.Transaction{
		Type:      domain.TransactionTransferSend,
		Amount:    amount,
		Target:    target,
		Reason:    transferReason(reason),
		Timestamp: ts,
	}
	return nil
}

// Credit adds transferred coins
func Credit(p *domain.Player, amount int64, from, reason string, ts int64) {
	p.Coins += amount
	p.TotalCoinsEarned += amount
	p.LastTransaction = &domain.Transaction{
		Type:      domain.TransactionTransferReceive,
		Amount:    amount,
		From:      from,
		Reason:    transferReason(reason),
		Timestamp: ts,
	}
}

// Link attaches an external identity to the player
func Link(p *domain.Player, link domain.DiscordLink, ts int64) {
	link.Linked = true
	link.LinkDate = ts
	p.Discord = link
}

// KDR returns kills per death rounded to two decimals, or kills when there are no deaths
func KDR(kills, deaths int) float64 {
	if deaths <= 0 {
		return float64(kills)
	}
	return math.Round(float64(kills)/float64(deaths)*100) / 100
}

// RawKDR is the unrounded ratio used for ordering
func RawKDR(kills, deaths int) float64 {
	if deaths <= 0 {
		return float64(kills)
	}
	return float64(kills) / float64(deaths)
}

// LevelDetail describes progress through the current level
type LevelDetail struct {
	Level         int     `json:"level"`
	CurrentXP     int     `json:"currentXp"`
	XPToNextLevel int     `json:"xpToNextLevel"`
	TotalXP       int     `json:"totalXp"`
	LevelProgress float64 `json:"levelProgress"`
}

// Progress computes level progress with the same fixed threshold used by Reconcile
func Progress(p *domain.Player) LevelDetail {
	current := p.Experience
	if current > domain.ExperiencePerLevel {
		// records restored from older snapshots may hold unreconciled experience
		current = domain.ExperiencePerLevel
	}
	return LevelDetail{
		Level:         p.Level,
		CurrentXP:     p.Experience,
		XPToNextLevel: domain.ExperiencePerLevel - current,
		TotalXP:       p.TotalExperience(),
		LevelProgress: math.Round(float64(current)/domain.ExperiencePerLevel*10000) / 100,
	}
}

func transferReason(reason string) string {
	if reason == "" {
		return DefaultTransferNote
	}
	return reason
}

func orUnknown(s string) string {
	if s == "" {
		return unknownValue
	}
	return s
}
