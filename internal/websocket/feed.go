package websocket

import (
	"context"
	"log/slog"

	"github.com/progression-hub/internal/domain"
	"github.com/progression-hub/internal/store"
)

// Views supplies the projections pushed to subscribers
type Views interface {
	GetLeaderboard(ctx context.Context, category string, limit int) (*domain.Leaderboard, error)
	Online(ctx context.Context) []*domain.Player
}

// Feed turns committed store changes into pushes for the topics that have subscribers
type Feed struct {
	hub    *Hub
	views  Views
	logger *slog.Logger
}

// NewFeed creates a feed publishing through hub
func NewFeed(hub *Hub, views Views, logger *slog.Logger) *Feed {
	return &Feed{hub: hub, views: views, logger: logger}
}

// Observe is a store.Observer
func (f *Feed) Observe(c store.Change) {
	topic := PlayerTopic(c.PlayerID)
	if f.hub.GetSubscriberCount(topic) > 0 {
		if c.Kind == store.ChangeDelete {
			f.hub.Publish(topic, MessageTypePlayerRemoved, map[string]string{"playerId": c.PlayerID})
		} else {
			f.hub.Publish(topic, MessageTypePlayerUpdate, c.Player.Summary())
		}
	}

	ctx := context.Background()
	for _, metric := range domain.Metrics {
		topic := LeaderboardTopic(metric)
		if f.hub.GetSubscriberCount(topic) == 0 {
			continue
		}
		lb, err := f.views.GetLeaderboard(ctx, string(metric), 0)
		if err != nil {
			f.logger.Warn("failed to build leaderboard push", "metric", metric, "error", err)
			continue
		}
		f.hub.Publish(topic, MessageTypeLeaderboardUpdate, lb)
	}

	if f.hub.GetSubscriberCount(TopicOnline) > 0 {
		online := f.views.Online(ctx)
		summaries := make([]domain.PlayerSummary, len(online))
		for i, p := range online {
			summaries[i] = p.Summary()
		}
		f.hub.Publish(TopicOnline, MessageTypeOnlineUpdate, summaries)
	}
}
