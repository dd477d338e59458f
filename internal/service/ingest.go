package service

import (
	"context"

	"github.com/progression-hub/internal/domain"
	"github.com/progression-hub/internal/progression"
)

// BatchResult summarises a batch ingestion
type BatchResult struct {
	Received int      `json:"received"`
	Applied  int      `json:"applied"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// HandleEvent validates an event and applies it to the player keyed by data.playerId.
// Every valid event refreshes lastSeen and server, the latter falling back to
// DefaultServer when the payload omits it. Invalid events fail with ErrInvalidInput
// and change nothing. Unknown kinds are accepted: they only refresh presence.
func (s *PlayerService) HandleEvent(ctx context.Context, ev domain.Event) (progression.Outcome, error) {
	if err := ev.Validate(); err != nil {
		return progression.Outcome{}, err
	}

	now := s.now()
	var out progression.Outcome
	p, err := s.store.Upsert(ev.Data.PlayerID, func(p *domain.Player, created bool) error {
		if created || p.PlayerName == "" {
			p.PlayerName = ev.Player
			if p.PlayerName == "" {
				p.PlayerName = ev.Data.PlayerID
			}
		}
		p.LastSeen = now.UnixMilli()
		p.Server = ev.Data.Server
		if p.Server == "" {
			p.Server = domain.DefaultServer
		}
		out = progression.Apply(p, ev, now)
		return nil
	})
	if err != nil {
		return progression.Outcome{}, err
	}

	if out.Ignored {
		s.logger.Debug("ignoring unknown event kind",
			"player_id", ev.Data.PlayerID,
			"action", ev.Action,
		)
	} else {
		s.logger.Debug("applied player event",
			"player_id", p.PlayerID,
			"action", ev.Action,
			"level", p.Level,
			"xp", p.Experience,
		)
	}

	if out.LevelUp != nil {
		s.logger.Info("player levelled up",
			"player_id", p.PlayerID,
			"from", out.LevelUp.From,
			"to", out.LevelUp.To,
			"bonus", out.LevelUp.Bonus,
		)
		s.notifyLevelUp(p, out.LevelUp)
	}
	if ev.Action == domain.EventDiscordAuth && s.notifier != nil {
		s.notifier.Linked(p)
	}
	if s.recorder != nil {
		s.recorder.RecordEvent(ctx, ev, out)
	}
	return out, nil
}

// HandleEventBatch applies events in order. Failures are logged and skipped.
func (s *PlayerService) HandleEventBatch(ctx context.Context, events []domain.Event) BatchResult {
	res := BatchResult{Received: len(events)}
	for _, ev := range events {
		if ctx.Err() != nil {
			res.Failed += res.Received - res.Applied - res.Failed
			res.Errors = append(res.Errors, ctx.Err().Error())
			break
		}
		if _, err := s.HandleEvent(ctx, ev); err != nil {
			s.logger.Warn("failed to apply event in batch",
				"player_id", ev.Data.PlayerID,
				"action", ev.Action,
				"error", err,
			)
			res.Failed++
			res.Errors = append(res.Errors, err.Error())
			continue
		}
		res.Applied++
	}
	return res
}
