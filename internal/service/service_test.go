package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/progression-hub/internal/config"
	"github.com/progression-hub/internal/domain"
	"github.com/progression-hub/internal/linking"
	"github.com/progression-hub/internal/progression"
	"github.com/progression-hub/internal/store"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recorder struct {
	mu       sync.Mutex
	levelUps []progression.LevelUp
	amounts  []int64
	linked   []string
	events   []domain.EventKind
}

func (r *recorder) LevelUp(p *domain.Player, up progression.LevelUp) {
	r.mu.Lock()
	r.levelUps = append(r.levelUps, up)
	r.mu.Unlock()
}

func (r *recorder) Transfer(from, to *domain.Player, amount int64) {
	r.mu.Lock()
	r.amounts = append(r.amounts, amount)
	r.mu.Unlock()
}

func (r *recorder) Linked(p *domain.Player) {
	r.mu.Lock()
	r.linked = append(r.linked, p.PlayerID)
	r.mu.Unlock()
}

func (r *recorder) RecordEvent(ctx context.Context, ev domain.Event, out progression.Outcome) {
	r.mu.Lock()
	r.events = append(r.events, ev.Action)
	r.mu.Unlock()
}

type fixture struct {
	svc   *PlayerService
	store *store.Store
	clock *clock
	rec   *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := &clock{now: time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)}
	rec := &recorder{}
	st := store.New(store.WithClock(clk.Now))
	codes := linking.NewRegistry(10*time.Minute, linking.WithClock(clk.Now))
	guard := linking.NewGuard(3, 30*time.Minute, clk.Now)
	cfg := Config{
		Leaderboard: config.LeaderboardConfig{DefaultLimit: 2, MaxLimit: 3},
		Presence:    config.PresenceConfig{RecentWindow: 2 * time.Minute, Window: 5 * time.Minute},
	}
	svc := NewPlayerService(st, codes, guard, cfg,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithClock(clk.Now),
		WithNotifier(rec),
		WithRecorder(rec),
	)
	return &fixture{svc: svc, store: st, clock: clk, rec: rec}
}

func (f *fixture) seed(t *testing.T, id, name string, mutate func(p *domain.Player)) {
	t.Helper()
	_, err := f.store.Upsert(id, func(p *domain.Player, _ bool) error {
		p.PlayerName = name
		if mutate != nil {
			mutate(p)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seeding %s: %v", id, err)
	}
}

func (f *fixture) player(t *testing.T, id string) *domain.Player {
	t.Helper()
	p, ok := f.store.Get(id)
	if !ok {
		t.Fatalf("player %s not found", id)
	}
	return p
}

func TestHandleEvent_PvPKillLevelsUp(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "p1", "Hunter", func(p *domain.Player) { p.Experience = 95 })

	out, err := f.svc.HandleEvent(context.Background(), domain.Event{
		Player: "Hunter",
		Action: domain.EventKill,
		Data:   domain.EventData{PlayerID: "p1", MobType: "player", VictimName: "Archer"},
	})
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	p := f.player(t, "p1")
	if p.Level != 2 || p.Experience != 5 || p.Coins != 100 {
		t.Errorf("level=%d xp=%d coins=%d, want 2/5/100", p.Level, p.Experience, p.Coins)
	}
	if out.LevelUp == nil || *out.LevelUp != (progression.LevelUp{From: 1, To: 2, Bonus: 100}) {
		t.Errorf("outcome level up = %+v", out.LevelUp)
	}
	if len(f.rec.levelUps) != 1 {
		t.Errorf("level up notifications = %d", len(f.rec.levelUps))
	}
	if len(f.rec.events) != 1 || f.rec.events[0] != domain.EventKill {
		t.Errorf("recorded events = %v", f.rec.events)
	}
	if got := p.KillHistory.At(0).VictimName; got != "Archer" {
		t.Errorf("kill history victim = %q", got)
	}
}

func TestHandleEvent_InvalidEventChangesNothing(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.HandleEvent(context.Background(), domain.Event{
		Player: "Hunter",
		Action: domain.EventCoinEarn,
		Data:   domain.EventData{PlayerID: "p1"},
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if f.store.Len() != 0 {
		t.Error("invalid event created a player")
	}
	if len(f.rec.events) != 0 {
		t.Error("invalid event was recorded")
	}
}

func TestHandleEvent_UnknownKindOnlyRefreshesPresence(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "p1", "Hunter", func(p *domain.Player) {
		p.Coins = 42
		p.LastSeen = 0
	})
	before := f.player(t, "p1")
	f.clock.Advance(time.Minute)

	out, err := f.svc.HandleEvent(context.Background(), domain.Event{
		Player: "Hunter",
		Action: "emote",
		Data:   domain.EventData{PlayerID: "p1"},
	})
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if !out.Ignored {
		t.Error("unknown kind not reported as ignored")
	}

	after := f.player(t, "p1")
	if after.LastSeen != f.clock.Now().UnixMilli() {
		t.Errorf("lastSeen = %d, want %d", after.LastSeen, f.clock.Now().UnixMilli())
	}
	after.LastSeen = before.LastSeen
	if after.Coins != before.Coins || after.Level != before.Level || after.Experience != before.Experience {
		t.Errorf("unknown kind changed progression: %+v", after)
	}
}

func TestHandleEvent_NewPlayerNamedAfterEvent(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.HandleEvent(context.Background(), domain.Event{
		Player: "Archer",
		Action: domain.EventJoin,
		Data:   domain.EventData{PlayerID: "p1", Server: "eu-1"},
	}); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if _, err := f.svc.HandleEvent(context.Background(), domain.Event{
		Action: domain.EventJoin,
		Data:   domain.EventData{PlayerID: "p2"},
	}); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if p := f.player(t, "p1"); p.PlayerName != "Archer" || p.Server != "eu-1" || p.Stats.LoginCount != 1 {
		t.Errorf("p1 = %+v", p)
	}
	if p := f.player(t, "p2"); p.PlayerName != "p2" || p.Server != domain.DefaultServer {
		t.Errorf("p2 name=%q server=%q", p.PlayerName, p.Server)
	}
}

func TestHandleEvent_ServerFollowsLatestEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.HandleEvent(ctx, domain.Event{
		Action: domain.EventJoin,
		Data:   domain.EventData{PlayerID: "p1", Server: "eu-1"},
	}); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if _, err := f.svc.HandleEvent(ctx, domain.Event{
		Action: domain.EventDeath,
		Data:   domain.EventData{PlayerID: "p1"},
	}); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if p := f.player(t, "p1"); p.Server != domain.DefaultServer {
		t.Errorf("server = %q, want %q", p.Server, domain.DefaultServer)
	}
}

func TestHandleEventBatch(t *testing.T) {
	f := newFixture(t)
	events := []domain.Event{
		{Player: "Hunter", Action: domain.EventJoin, Data: domain.EventData{PlayerID: "p1"}},
		{Player: "Hunter", Action: domain.EventStatsUpdate, Data: domain.EventData{PlayerID: "p1", StatType: "mana"}},
		{Player: "Hunter", Action: domain.EventDeath, Data: domain.EventData{PlayerID: "p1"}},
	}

	res := f.svc.HandleEventBatch(context.Background(), events)
	if res.Received != 3 || res.Applied != 2 || res.Failed != 1 || len(res.Errors) != 1 {
		t.Errorf("result = %+v", res)
	}
	if p := f.player(t, "p1"); p.Stats.PlayerDeaths != 1 {
		t.Errorf("player deaths = %d", p.Stats.PlayerDeaths)
	}
}

func TestHandleEventBatch_CancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := f.svc.HandleEventBatch(ctx, []domain.Event{
		{Action: domain.EventJoin, Data: domain.EventData{PlayerID: "p1"}},
		{Action: domain.EventJoin, Data: domain.EventData{PlayerID: "p2"}},
	})
	if res.Applied != 0 || res.Failed != 2 {
		t.Errorf("result = %+v", res)
	}
}

func TestTransfer_InsufficientBalanceLeavesBothUnchanged(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "a", "Alice", func(p *domain.Player) { p.Coins = 10 })
	f.seed(t, "b", "Bob", func(p *domain.Player) { p.Coins = 5 })

	_, err := f.svc.Transfer(context.Background(), TransferRequest{From: "alice", To: "Bob", Amount: 50})
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	if a := f.player(t, "a"); a.Coins != 10 || a.LastTransaction != nil {
		t.Errorf("sender changed: %+v", a)
	}
	if b := f.player(t, "b"); b.Coins != 5 || b.LastTransaction != nil {
		t.Errorf("recipient changed: %+v", b)
	}
	if len(f.rec.amounts) != 0 {
		t.Error("failed transfer was announced")
	}
}

func TestTransfer_CreatesRecipient(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "a", "Alice", func(p *domain.Player) { p.Coins = 100 })

	res, err := f.svc.Transfer(context.Background(), TransferRequest{From: "Alice", To: "Newbie", Amount: 40, Reason: "gift"})
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if res.ToPlayerID != "hytale-newbie" || res.FromBalance != 60 || res.ToBalance != 40 {
		t.Errorf("result = %+v", res)
	}

	to := f.player(t, "hytale-newbie")
	if to.PlayerName != "Newbie" || to.LastTransaction.Type != domain.TransactionTransferReceive || to.LastTransaction.From != "Alice" {
		t.Errorf("recipient = %+v", to)
	}
	from := f.player(t, "a")
	if from.LastTransaction.Type != domain.TransactionTransferSend || from.LastTransaction.Reason != "gift" {
		t.Errorf("sender transaction = %+v", from.LastTransaction)
	}
	if len(f.rec.amounts) != 1 || f.rec.amounts[0] != 40 {
		t.Errorf("announced transfers = %v", f.rec.amounts)
	}
}

func TestTransfer_Validation(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "a", "Alice", func(p *domain.Player) { p.Coins = 100 })

	tests := []struct {
		name string
		req  TransferRequest
		want error
	}{
		{"missing names", TransferRequest{From: " ", To: "Bob", Amount: 1}, domain.ErrInvalidInput},
		{"zero amount", TransferRequest{From: "Alice", To: "Bob"}, domain.ErrInvalidInput},
		{"negative amount", TransferRequest{From: "Alice", To: "Bob", Amount: -5}, domain.ErrInvalidInput},
		{"same player", TransferRequest{From: "Alice", To: "ALICE", Amount: 1}, domain.ErrInvalidInput},
		{"unknown sender", TransferRequest{From: "Ghost", To: "Alice", Amount: 1}, domain.ErrPlayerNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Transfer(context.Background(), tt.req); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if a := f.player(t, "a"); a.Coins != 100 {
		t.Errorf("sender balance changed to %d", a.Coins)
	}
}

func TestRedeemCode_LinksAndRemovesNamesake(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "p-old", "hunter", func(p *domain.Player) { p.Coins = 30 })
	f.seed(t, "p-other", "Archer", nil)

	issued, err := f.svc.IssueLinkCode(context.Background(), linking.Identity{
		ExternalID: "d1",
		Username:   "hunter#0001",
	})
	if err != nil {
		t.Fatalf("IssueLinkCode: %v", err)
	}
	if issued.ExpiresIn != 600 {
		t.Errorf("expiresIn = %d, want 600", issued.ExpiresIn)
	}

	res, err := f.svc.RedeemCode(context.Background(), RedeemRequest{
		PlayerName: "Hunter",
		Code:       strings.ToLower(issued.Code),
		Client:     "203.0.113.7:4000",
	})
	if err != nil {
		t.Fatalf("RedeemCode: %v", err)
	}
	if res.PlayerID != "d1" || res.DiscordUsername != "hunter#0001" {
		t.Errorf("result = %+v", res)
	}
	if len(res.Removed) != 1 || res.Removed[0] != "p-old" {
		t.Errorf("removed = %v", res.Removed)
	}

	if f.store.Exists("p-old") {
		t.Error("unlinked namesake still present")
	}
	if !f.store.Exists("p-other") {
		t.Error("unrelated player removed")
	}
	linked := f.player(t, "d1")
	if linked.PlayerName != "Hunter" || !linked.Discord.IsLinked() {
		t.Errorf("linked player = %+v", linked)
	}
	if len(f.rec.linked) != 1 {
		t.Errorf("link notifications = %v", f.rec.linked)
	}

	lookup, err := f.svc.FindByDiscord(context.Background(), "d1")
	if err != nil || !lookup.Found || lookup.PlayerID != "d1" {
		t.Errorf("FindByDiscord = %+v, %v", lookup, err)
	}

	_, err = f.svc.RedeemCode(context.Background(), RedeemRequest{PlayerName: "Hunter", Code: issued.Code})
	if !errors.Is(err, domain.ErrInvalidOrExpiredCode) {
		t.Errorf("second redemption err = %v", err)
	}
}

func TestRedeemCode_ExpiredCode(t *testing.T) {
	f := newFixture(t)
	issued, err := f.svc.IssueLinkCode(context.Background(), linking.Identity{ExternalID: "d1", Username: "u"})
	if err != nil {
		t.Fatalf("IssueLinkCode: %v", err)
	}
	f.clock.Advance(10 * time.Minute)

	_, err = f.svc.RedeemCode(context.Background(), RedeemRequest{PlayerName: "Hunter", Code: issued.Code})
	if !errors.Is(err, domain.ErrInvalidOrExpiredCode) {
		t.Errorf("err = %v, want ErrInvalidOrExpiredCode", err)
	}
}

func TestRedeemCode_GuardBansRepeatedFailures(t *testing.T) {
	f := newFixture(t)
	client := "198.51.100.4:51000"

	for i := 0; i < 3; i++ {
		_, err := f.svc.RedeemCode(context.Background(), RedeemRequest{PlayerName: "Hunter", Code: "ZZZZZZ", Client: client})
		if !errors.Is(err, domain.ErrInvalidOrExpiredCode) {
			t.Fatalf("attempt %d err = %v", i+1, err)
		}
	}

	issued, err := f.svc.IssueLinkCode(context.Background(), linking.Identity{ExternalID: "d1", Username: "u"})
	if err != nil {
		t.Fatalf("IssueLinkCode: %v", err)
	}
	_, err = f.svc.RedeemCode(context.Background(), RedeemRequest{PlayerName: "Hunter", Code: issued.Code, Client: client})
	if !errors.Is(err, domain.ErrTemporarilyBanned) {
		t.Fatalf("banned client err = %v", err)
	}
	if stats := f.svc.GetServerStats(context.Background()); stats.BannedClients != 1 {
		t.Errorf("banned clients = %d", stats.BannedClients)
	}

	f.clock.Advance(31 * time.Minute)
	issued, err = f.svc.IssueLinkCode(context.Background(), linking.Identity{ExternalID: "d1", Username: "u"})
	if err != nil {
		t.Fatalf("IssueLinkCode: %v", err)
	}
	if _, err := f.svc.RedeemCode(context.Background(), RedeemRequest{PlayerName: "Hunter", Code: issued.Code, Client: client}); err != nil {
		t.Errorf("redeem after ban expiry: %v", err)
	}
}

func TestRedeemCode_MalformedInputIsNotCounted(t *testing.T) {
	f := newFixture(t)
	client := "198.51.100.9"

	for i := 0; i < 5; i++ {
		_, err := f.svc.RedeemCode(context.Background(), RedeemRequest{
			PlayerName: `<script>alert(1)</script>`,
			Code:       "ABC123",
			Client:     client,
		})
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("err = %v, want ErrInvalidInput", err)
		}
	}
	for _, code := range []string{"ABC", "ABC-12", "ABCDEFG"} {
		_, err := f.svc.RedeemCode(context.Background(), RedeemRequest{PlayerName: "Hunter", Code: code, Client: client})
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("code %q err = %v", code, err)
		}
	}

	_, err := f.svc.RedeemCode(context.Background(), RedeemRequest{PlayerName: "Hunter", Code: "ZZZZZZ", Client: client})
	if !errors.Is(err, domain.ErrInvalidOrExpiredCode) {
		t.Errorf("err = %v, want ErrInvalidOrExpiredCode", err)
	}
}

func TestCleanDuplicates_Idempotent(t *testing.T) {
	f := newFixture(t)
	base := f.clock.Now().UnixMilli()
	f.seed(t, "a1", "Archer", func(p *domain.Player) { p.LastSeen = base - 5000 })
	f.seed(t, "a2", "archer", func(p *domain.Player) { p.LastSeen = base })
	f.seed(t, "a3", "ARCHER", func(p *domain.Player) { p.LastSeen = base - 1000 })
	f.seed(t, "h1", "Hunter", nil)

	first := f.svc.CleanDuplicates(context.Background())
	if first.RemovedCount != 2 || first.RemainingPlayers != 2 {
		t.Errorf("first sweep = %+v", first)
	}
	if !f.store.Exists("a2") {
		t.Error("most recently seen duplicate was not kept")
	}

	second := f.svc.CleanDuplicates(context.Background())
	if second.RemovedCount != 0 || second.RemainingPlayers != 2 {
		t.Errorf("second sweep = %+v", second)
	}
}

func TestClearTestData(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "test-123", "Bob", nil)
	f.seed(t, "p2", "PvPMaster", nil)
	f.seed(t, "p3", "Hunter", nil)
	if _, err := f.svc.IssueLinkCode(context.Background(), linking.Identity{ExternalID: "d1", Username: "u"}); err != nil {
		t.Fatalf("IssueLinkCode: %v", err)
	}

	if _, err := f.svc.ClearTestData(context.Background(), PurgeRequest{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("unconfirmed purge err = %v", err)
	}
	if f.store.Len() != 3 {
		t.Fatal("unconfirmed purge removed players")
	}

	res, err := f.svc.ClearTestData(context.Background(), PurgeRequest{Confirm: true})
	if err != nil {
		t.Fatalf("ClearTestData: %v", err)
	}
	if res.RemovedPlayers != 2 || res.RemainingPlayers != 1 || res.ClearedCodes != 1 {
		t.Errorf("result = %+v", res)
	}
	if !f.store.Exists("p3") {
		t.Error("regular player removed")
	}
}

func TestGetLeaderboard_Limits(t *testing.T) {
	f := newFixture(t)
	for i, name := range []string{"One", "Two", "Three", "Four"} {
		level := i + 1
		f.seed(t, strings.ToLower(name), name, func(p *domain.Player) { p.Level = level })
	}

	tests := []struct {
		limit int
		want  int
	}{
		{0, 2},
		{1, 1},
		{10, 3},
	}
	for _, tt := range tests {
		lb, err := f.svc.GetLeaderboard(context.Background(), "level", tt.limit)
		if err != nil {
			t.Fatalf("GetLeaderboard: %v", err)
		}
		if len(lb.Players) != tt.want {
			t.Errorf("limit %d returned %d rows, want %d", tt.limit, len(lb.Players), tt.want)
		}
		if lb.TotalPlayers != 4 {
			t.Errorf("totalPlayers = %d", lb.TotalPlayers)
		}
		if lb.Players[0].PlayerName != "Four" || lb.Players[0].Rank != 1 {
			t.Errorf("top row = %+v", lb.Players[0])
		}
	}

	if _, err := f.svc.GetLeaderboard(context.Background(), "wins", 0); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("unknown category err = %v", err)
	}
	if lb, err := f.svc.GetLeaderboard(context.Background(), "coin", 0); err != nil || lb.Category != domain.MetricCoins {
		t.Errorf("coin alias = %+v, %v", lb, err)
	}
}

func TestPresenceWindows(t *testing.T) {
	f := newFixture(t)
	now := f.clock.Now()
	f.seed(t, "recent", "Recent", func(p *domain.Player) { p.LastSeen = now.Add(-time.Minute).UnixMilli() })
	f.seed(t, "idle", "Idle", func(p *domain.Player) { p.LastSeen = now.Add(-3 * time.Minute).UnixMilli() })
	f.seed(t, "gone", "Gone", func(p *domain.Player) { p.LastSeen = now.Add(-time.Hour).UnixMilli() })

	summary := f.svc.GetOnlineSummary(context.Background())
	if summary.OnlineCount != 1 || summary.TotalPlayers != 3 || summary.OnlinePlayers[0].PlayerID != "recent" {
		t.Errorf("summary = %+v", summary)
	}
	detailed := f.svc.GetOnlineDetailed(context.Background())
	if detailed.OnlineCount != 1 || detailed.ServerStatus != "online" {
		t.Errorf("detailed = %+v", detailed)
	}

	profile, err := f.svc.GetProfile(context.Background(), "idle")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if !profile.IsOnline {
		t.Error("player seen 3 minutes ago should count as online on the profile")
	}
	if profile, _ := f.svc.GetProfile(context.Background(), "gone"); profile.IsOnline {
		t.Error("player seen an hour ago shown online")
	}

	if stats := f.svc.GetServerStats(context.Background()); stats.OnlinePlayers != 2 || stats.TotalPlayers != 3 {
		t.Errorf("server stats = %+v", stats)
	}
}

func TestQueries_NotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.GetProfile(ctx, "nobody"); !domain.IsNotFoundError(err) {
		t.Errorf("GetProfile err = %v", err)
	}
	if _, err := f.svc.GetCoins(ctx, "nobody"); !domain.IsNotFoundError(err) {
		t.Errorf("GetCoins err = %v", err)
	}
	if _, err := f.svc.GetLevel(ctx, "nobody"); !domain.IsNotFoundError(err) {
		t.Errorf("GetLevel err = %v", err)
	}
	if _, err := f.svc.GetStats(ctx, "nobody"); !domain.IsNotFoundError(err) {
		t.Errorf("GetStats err = %v", err)
	}
	if _, err := f.svc.FindByDiscord(ctx, "nobody"); !domain.IsNotFoundError(err) {
		t.Errorf("FindByDiscord err = %v", err)
	}
	if links := f.svc.ListLinks(ctx); links.TotalLinks != 0 || links.Links == nil {
		t.Errorf("links = %+v", links)
	}
}

func TestGetStats(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "p1", "Hunter", func(p *domain.Player) {
		p.PlaytimeMinutes = 135
		p.Stats.PlayerKills = 7
		p.Stats.PlayerDeaths = 3
	})

	stats, err := f.svc.GetStats(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.PlaytimeFormatted != "2h 15m" {
		t.Errorf("playtime = %q", stats.PlaytimeFormatted)
	}
	if stats.PvPStats.KDR != 2.33 || stats.KDR != 2.33 {
		t.Errorf("kdr = %v / %v", stats.PvPStats.KDR, stats.KDR)
	}
}
