package progression

import (
	"errors"
	"testing"
	"time"

	"github.com/progression-hub/internal/domain"
)

var testNow = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func newTestPlayer() *domain.Player {
	return domain.NewPlayer("p1", "Hunter", testNow)
}

func TestApplyKill_LevelUpScenario(t *testing.T) {
	p := newTestPlayer()
	p.Experience = 95

	out := ApplyKill(p, &domain.EventData{PlayerID: "p1", MobType: "player"}, testNow)

	if !out.PvP || out.XPGained != PvPKillReward {
		t.Fatalf("expected PvP kill worth %d xp, got %+v", PvPKillReward, out)
	}
	if p.Level != 2 {
		t.Errorf("level = %d, want 2", p.Level)
	}
	if p.Experience != 5 {
		t.Errorf("experience = %d, want 5", p.Experience)
	}
	if p.Coins != 100 || p.TotalCoinsEarned != 100 {
		t.Errorf("coins = %d earned = %d, want 100/100", p.Coins, p.TotalCoinsEarned)
	}
	if out.LevelUp == nil || out.LevelUp.From != 1 || out.LevelUp.To != 2 || out.LevelUp.Bonus != 100 {
		t.Errorf("unexpected level up %+v", out.LevelUp)
	}
}

func TestApplyKill_NonPvPGrantsNoExperience(t *testing.T) {
	tests := []string{"skeleton", "zombie", "", "unknown"}
	for _, mob := range tests {
		t.Run(mob, func(t *testing.T) {
			p := newTestPlayer()
			out := ApplyKill(p, &domain.EventData{MobType: mob}, testNow)
			if out.PvP || out.XPGained != 0 {
				t.Fatalf("mob %q should not grant xp: %+v", mob, out)
			}
			if p.Experience != 0 || p.Stats.PlayerKills != 0 || p.KillHistory.Len() != 0 {
				t.Errorf("non-PvP kill changed PvP state: %+v", p)
			}
			if p.Stats.Kills != 1 {
				t.Errorf("legacy kills = %d, want 1", p.Stats.Kills)
			}
		})
	}
}

func TestIsPvP(t *testing.T) {
	for _, mob := range []string{"player", "PVP", "Player", "pvp"} {
		if !IsPvP(mob) {
			t.Errorf("IsPvP(%q) = false", mob)
		}
	}
	if IsPvP("players") {
		t.Error("IsPvP(players) = true")
	}
}

func TestApplyKill_HistoryDefaults(t *testing.T) {
	p := newTestPlayer()
	ApplyKill(p, &domain.EventData{MobType: "pvp"}, testNow)

	got := p.KillHistory.At(0)
	if got.Location != "Unknown" || got.VictimName != "Unknown" {
		t.Errorf("expected Unknown defaults, got %+v", got)
	}
	if got.Timestamp != testNow.UnixMilli() {
		t.Errorf("timestamp = %d, want %d", got.Timestamp, testNow.UnixMilli())
	}
	if got.MobType != "player" {
		t.Errorf("mobType = %q, want player", got.MobType)
	}
}

func TestApplyDeath(t *testing.T) {
	tests := []struct {
		xp, want int
	}{
		{0, 0},
		{1, 1},
		{19, 19},
		{20, 19},
		{99, 95},
		{100, 95},
		{250, 238},
	}
	for _, tt := range tests {
		p := newTestPlayer()
		p.Level = 4
		p.Experience = tt.xp
		ApplyDeath(p)
		if p.Experience != tt.want {
			t.Errorf("xp %d: after death = %d, want %d", tt.xp, p.Experience, tt.want)
		}
		if p.Level != 4 {
			t.Errorf("xp %d: level changed to %d", tt.xp, p.Level)
		}
		if p.Stats.PlayerDeaths != 1 || p.Stats.Deaths != 1 {
			t.Errorf("xp %d: deaths not counted: %+v", tt.xp, p.Stats)
		}
	}
}

func TestReconcile_MultipleLevels(t *testing.T) {
	p := newTestPlayer()
	p.Experience = 250

	up := Reconcile(p)

	if up == nil || up.From != 1 || up.To != 3 {
		t.Fatalf("unexpected level up %+v", up)
	}
	if p.Experience != 50 {
		t.Errorf("experience = %d, want 50", p.Experience)
	}
	// level 2 awards 100, level 3 awards 150
	if up.Bonus != 250 || p.Coins != 250 {
		t.Errorf("bonus = %d coins = %d, want 250", up.Bonus, p.Coins)
	}
}

func TestApplyLevelUp_NeverLowersLevel(t *testing.T) {
	p := newTestPlayer()
	p.Level = 5

	up := ApplyLevelUp(p, 3, 20)
	if p.Level != 5 {
		t.Errorf("level = %d, want 5", p.Level)
	}
	if up != nil {
		t.Errorf("expected no level change, got %+v", up)
	}
	if p.Experience != 20 {
		t.Errorf("experience = %d, want 20", p.Experience)
	}

	up = ApplyLevelUp(p, 7, 0)
	if up == nil || up.From != 5 || up.To != 7 || up.Bonus != 0 {
		t.Errorf("unexpected level up %+v", up)
	}
}

func TestCoinEvents(t *testing.T) {
	p := newTestPlayer()

	Apply(p, domain.Event{Action: domain.EventCoinEarn, Data: domain.EventData{
		PlayerID: "p1", TotalCoins: int64Ptr(500), CoinsEarned: int64Ptr(200), Reason: "quest", Timestamp: 42,
	}}, testNow)
	if p.Coins != 500 || p.TotalCoinsEarned != 200 {
		t.Fatalf("after earn: coins=%d earned=%d", p.Coins, p.TotalCoinsEarned)
	}
	if p.LastTransaction == nil || p.LastTransaction.Type != domain.TransactionEarn || p.LastTransaction.Reason != "quest" {
		t.Fatalf("unexpected transaction %+v", p.LastTransaction)
	}

	Apply(p, domain.Event{Action: domain.EventCoinSpend, Data: domain.EventData{
		PlayerID: "p1", TotalCoins: int64Ptr(450), CoinsSpent: int64Ptr(50), Item: "sword",
	}}, testNow)
	if p.Coins != 450 || p.TotalCoinsSpent != 50 {
		t.Fatalf("after spend: coins=%d spent=%d", p.Coins, p.TotalCoinsSpent)
	}
	if p.LastTransaction.Type != domain.TransactionSpend || p.LastTransaction.Reason != "sword" {
		t.Fatalf("unexpected transaction %+v", p.LastTransaction)
	}
	if p.LastTransaction.Timestamp != testNow.UnixMilli() {
		t.Errorf("timestamp default not applied: %d", p.LastTransaction.Timestamp)
	}
}

func TestDebitCredit(t *testing.T) {
	src := newTestPlayer()
	src.Coins = 30
	before := *src

	if err := Debit(src, 50, "Bob", "", 1); !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if src.Coins != before.Coins || src.TotalCoinsSpent != 0 || src.LastTransaction != nil {
		t.Fatalf("failed debit mutated player: %+v", src)
	}
	if err := Debit(src, 0, "Bob", "", 1); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero amount, got %v", err)
	}

	if err := Debit(src, 20, "Bob", "", 1); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if src.Coins != 10 || src.TotalCoinsSpent != 20 {
		t.Errorf("coins=%d spent=%d", src.Coins, src.TotalCoinsSpent)
	}
	if tx := src.LastTransaction; tx.Type != domain.TransactionTransferSend || tx.Target != "Bob" || tx.Reason != DefaultTransferNote {
		t.Errorf("unexpected send transaction %+v", tx)
	}

	dst := newTestPlayer()
	Credit(dst, 20, "Hunter", "gift", 1)
	if dst.Coins != 20 || dst.TotalCoinsEarned != 20 {
		t.Errorf("coins=%d earned=%d", dst.Coins, dst.TotalCoinsEarned)
	}
	if tx := dst.LastTransaction; tx.Type != domain.TransactionTransferReceive || tx.From != "Hunter" || tx.Reason != "gift" {
		t.Errorf("unexpected receive transaction %+v", tx)
	}
}

func TestApply_LeaveBackdatesLastSeen(t *testing.T) {
	p := newTestPlayer()
	p.LastSeen = testNow.UnixMilli()
	backdated := testNow.Add(-10 * time.Minute).UnixMilli()

	Apply(p, domain.Event{Action: domain.EventLeave, Data: domain.EventData{
		PlayerID: "p1", PlayTimeMinutes: intPtr(42), Timestamp: backdated,
	}}, testNow)

	if p.PlaytimeMinutes != 42 {
		t.Errorf("playtime = %d, want 42", p.PlaytimeMinutes)
	}
	if p.LastSeen != backdated {
		t.Errorf("lastSeen = %d, want %d", p.LastSeen, backdated)
	}
}

func TestApply_OtherKinds(t *testing.T) {
	p := newTestPlayer()

	Apply(p, domain.Event{Action: domain.EventJoin, Data: domain.EventData{PlayerID: "p1"}}, testNow)
	Apply(p, domain.Event{Action: domain.EventJoin, Data: domain.EventData{PlayerID: "p1"}}, testNow)
	if p.Stats.LoginCount != 2 {
		t.Errorf("loginCount = %d, want 2", p.Stats.LoginCount)
	}

	Apply(p, domain.Event{Action: domain.EventAchievement, Data: domain.EventData{
		PlayerID: "p1", Achievement: "First Blood", RewardCoins: 25,
	}}, testNow)
	if len(p.Achievements) != 1 || p.Achievements[0].Name != "First Blood" {
		t.Errorf("achievements = %+v", p.Achievements)
	}

	Apply(p, domain.Event{Action: domain.EventDiscordAuth, Data: domain.EventData{
		PlayerID: "p1", DiscordID: "E1", DiscordUsername: "Foo#0001", Timestamp: 7,
	}}, testNow)
	if !p.Discord.IsLinked() || p.Discord.Username != "Foo#0001" || p.Discord.LinkDate != 7 {
		t.Errorf("discord = %+v", p.Discord)
	}

	Apply(p, domain.Event{Action: domain.EventStatsUpdate, Data: domain.EventData{
		PlayerID: "p1", StatType: domain.StatDeaths, NewValue: intPtr(9),
	}}, testNow)
	if p.Stats.Deaths != 9 || p.Stats.PlayerDeaths != 0 {
		t.Errorf("stats = %+v", p.Stats)
	}

	before := *p
	out := Apply(p, domain.Event{Action: "teleport", Data: domain.EventData{PlayerID: "p1"}}, testNow)
	if !out.Ignored {
		t.Error("unknown kind not reported as ignored")
	}
	if p.Stats != before.Stats || p.Experience != before.Experience || p.Coins != before.Coins {
		t.Error("unknown kind mutated the player")
	}
}

func TestKDR(t *testing.T) {
	tests := []struct {
		kills, deaths int
		want          float64
	}{
		{0, 0, 0},
		{7, 0, 7},
		{10, 4, 2.5},
		{2, 3, 0.67},
		{1, 3, 0.33},
		{45, 12, 3.75},
	}
	for _, tt := range tests {
		if got := KDR(tt.kills, tt.deaths); got != tt.want {
			t.Errorf("KDR(%d, %d) = %v, want %v", tt.kills, tt.deaths, got, tt.want)
		}
	}
}

func TestProgress(t *testing.T) {
	p := newTestPlayer()
	p.Level = 3
	p.Experience = 40

	got := Progress(p)
	want := LevelDetail{Level: 3, CurrentXP: 40, XPToNextLevel: 60, TotalXP: 240, LevelProgress: 40}
	if got != want {
		t.Errorf("Progress = %+v, want %+v", got, want)
	}
}
