package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/progression-hub/internal/domain"
	"github.com/progression-hub/internal/progression"
	"github.com/progression-hub/internal/roster"
)

// TransferPlayerPrefix prefixes ids of players created by an incoming transfer
const TransferPlayerPrefix = "hytale-"

// TransferRequest moves coins between two players named by display name
type TransferRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
	Reason string `json:"reason,omitempty"`
}

// TransferResult reports both balances after a transfer
type TransferResult struct {
	FromPlayerID string `json:"fromPlayerId"`
	ToPlayerID   string `json:"toPlayerId"`
	Amount       int64  `json:"amount"`
	FromBalance  int64  `json:"fromBalance"`
	ToBalance    int64  `json:"toBalance"`
}

// Transfer debits the sender and then credits the recipient, creating the recipient
// when no player carries that name. The two steps are not atomic with respect to each
// other, but a failed debit leaves both players untouched.
func (s *PlayerService) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	req.From = strings.TrimSpace(req.From)
	req.To = strings.TrimSpace(req.To)
	if req.From == "" || req.To == "" {
		return nil, domain.InvalidInput("from and to are required")
	}
	if req.Amount <= 0 {
		return nil, domain.InvalidInput("amount must be positive")
	}
	if roster.SameName(req.From, req.To) {
		return nil, domain.InvalidInput("cannot transfer coins to the same player")
	}

	src, ok := s.findByName(req.From)
	if !ok {
		return nil, fmt.Errorf("%w: sender %s", domain.ErrPlayerNotFound, req.From)
	}

	ts := s.now().UnixMilli()
	from, err := s.store.Update(src.PlayerID, func(p *domain.Player, _ bool) error {
		return progression.Debit(p, req.Amount, req.To, req.Reason, ts)
	})
	if err != nil {
		return nil, err
	}

	dstID := TransferPlayerPrefix + strings.ToLower(req.To)
	if dst, ok := s.findByName(req.To); ok {
		dstID = dst.PlayerID
	}
	to, err := s.store.Upsert(dstID, func(p *domain.Player, created bool) error {
		if created {
			p.PlayerName = req.To
		}
		progression.Credit(p, req.Amount, req.From, req.Reason, ts)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("crediting %s: %w", dstID, err)
	}

	s.logger.Info("coin transfer",
		"from", from.PlayerID,
		"to", to.PlayerID,
		"amount", req.Amount,
	)
	if s.notifier != nil {
		s.notifier.Transfer(from, to, req.Amount)
	}

	return &TransferResult{
		FromPlayerID: from.PlayerID,
		ToPlayerID:   to.PlayerID,
		Amount:       req.Amount,
		FromBalance:  from.Coins,
		ToBalance:    to.Coins,
	}, nil
}
