package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/progression-hub/internal/domain"
	"github.com/progression-hub/internal/progression"
	"github.com/progression-hub/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(testLogger())
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

// newTestClient registers a connectionless client subscribed to topics
func newTestClient(t *testing.T, hub *Hub, topics ...string) *Client {
	t.Helper()
	c := &Client{id: t.Name(), hub: hub, send: make(chan []byte, 16), logger: testLogger()}
	hub.Register(c)
	for _, topic := range topics {
		hub.Subscribe(c, topic)
	}
	for _, topic := range topics {
		waitFor(t, func() bool { return hub.GetSubscriberCount(topic) > 0 })
	}
	return c
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.send:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decoding message: %v", err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
	return Message{}
}

func expectNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Errorf("unexpected message %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestValidTopic(t *testing.T) {
	tests := []struct {
		topic string
		want  bool
	}{
		{"events", true},
		{"online", true},
		{"player:abc", true},
		{"player:", false},
		{"leaderboard:kdr", true},
		{"leaderboard:coin", true},
		{"leaderboard:wins", false},
		{"leaderboard", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidTopic(tt.topic); got != tt.want {
			t.Errorf("ValidTopic(%q) = %v, want %v", tt.topic, got, tt.want)
		}
	}
}

func TestOriginAllowed(t *testing.T) {
	dashboard := []string{"https://dashboard.example"}
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"listed origin", dashboard, "https://dashboard.example", true},
		{"case differs", dashboard, "HTTPS://Dashboard.example", true},
		{"unlisted origin", dashboard, "https://evil.example", false},
		{"no origin header", dashboard, "", true},
		{"wildcard", []string{"*"}, "https://evil.example", true},
		{"nothing configured", nil, "https://evil.example", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OriginAllowed(tt.allowed, tt.origin); got != tt.want {
				t.Errorf("OriginAllowed(%v, %q) = %v, want %v", tt.allowed, tt.origin, got, tt.want)
			}
		})
	}
}

func TestHub_PublishReachesOnlyTopicSubscribers(t *testing.T) {
	hub := startHub(t)
	events := newTestClient(t, hub, TopicEvents)
	other := newTestClient(t, hub, TopicOnline)

	hub.LevelUp(&domain.Player{PlayerID: "p1", PlayerName: "Hunter"}, progression.LevelUp{From: 1, To: 2, Bonus: 100})

	msg := receive(t, events)
	if msg.Type != MessageTypeLevelUp || msg.Topic != TopicEvents {
		t.Errorf("message = %+v", msg)
	}
	expectNothing(t, other)

	if hub.GetTotalConnections() != 2 || hub.GetTopicCount() != 2 {
		t.Errorf("connections=%d topics=%d", hub.GetTotalConnections(), hub.GetTopicCount())
	}
}

func TestHub_UnregisterDropsSubscriptions(t *testing.T) {
	hub := startHub(t)
	c := newTestClient(t, hub, TopicEvents, PlayerTopic("p1"))

	hub.Unregister(c)
	waitFor(t, func() bool { return hub.GetTotalConnections() == 0 })
	if hub.GetTopicCount() != 0 {
		t.Errorf("topics left after unregister: %d", hub.GetTopicCount())
	}
	if _, ok := <-c.send; ok {
		t.Error("send channel not closed")
	}
}

type fakeViews struct {
	mu         sync.Mutex
	categories []string
	onlineHits int
}

func (v *fakeViews) GetLeaderboard(ctx context.Context, category string, limit int) (*domain.Leaderboard, error) {
	v.mu.Lock()
	v.categories = append(v.categories, category)
	v.mu.Unlock()
	return &domain.Leaderboard{Category: domain.Metric(category), Players: []domain.LeaderboardEntry{}}, nil
}

func (v *fakeViews) Online(ctx context.Context) []*domain.Player {
	v.mu.Lock()
	v.onlineHits++
	v.mu.Unlock()
	return nil
}

func TestFeed_PublishesSubscribedTopicsOnly(t *testing.T) {
	hub := startHub(t)
	views := &fakeViews{}
	feed := NewFeed(hub, views, testLogger())
	c := newTestClient(t, hub, PlayerTopic("p1"), LeaderboardTopic(domain.MetricKDR))

	feed.Observe(store.Change{
		Kind:     store.ChangeUpsert,
		PlayerID: "p1",
		Player:   &domain.Player{PlayerID: "p1", PlayerName: "Hunter", Level: 3},
	})

	got := map[string]string{}
	for i := 0; i < 2; i++ {
		msg := receive(t, c)
		got[msg.Topic] = msg.Type
	}
	if got[PlayerTopic("p1")] != MessageTypePlayerUpdate {
		t.Errorf("player topic got %q", got[PlayerTopic("p1")])
	}
	if got[LeaderboardTopic(domain.MetricKDR)] != MessageTypeLeaderboardUpdate {
		t.Errorf("leaderboard topic got %q", got[LeaderboardTopic(domain.MetricKDR)])
	}

	views.mu.Lock()
	defer views.mu.Unlock()
	if len(views.categories) != 1 || views.categories[0] != "kdr" {
		t.Errorf("leaderboards built = %v", views.categories)
	}
	if views.onlineHits != 0 {
		t.Error("online list built without subscribers")
	}
}

func TestFeed_DeleteSendsRemoval(t *testing.T) {
	hub := startHub(t)
	feed := NewFeed(hub, &fakeViews{}, testLogger())
	c := newTestClient(t, hub, PlayerTopic("p1"))

	feed.Observe(store.Change{Kind: store.ChangeDelete, PlayerID: "p1"})

	if msg := receive(t, c); msg.Type != MessageTypePlayerRemoved {
		t.Errorf("message type = %q", msg.Type)
	}
}
