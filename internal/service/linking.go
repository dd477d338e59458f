package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/progression-hub/internal/domain"
	"github.com/progression-hub/internal/linking"
	"github.com/progression-hub/internal/progression"
	"github.com/progression-hub/internal/roster"
)

var (
	scriptTag    = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	scriptScheme = regexp.MustCompile(`(?i)javascript:`)
	inlineEvent  = regexp.MustCompile(`(?i)on\w+\s*=`)

	playerNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,50}$`)
	linkCodePattern   = regexp.MustCompile(`^[A-Z0-9]{6}$`)
)

// IssuedCode is returned to the web page that displays a link code
type IssuedCode struct {
	Code      string `json:"code"`
	ExpiresIn int    `json:"expiresIn"`
}

// RedeemRequest redeems a link code for a game player
type RedeemRequest struct {
	PlayerName string `json:"playerName"`
	Code       string `json:"code"`
	// Client is the caller's network address, used by the failed-attempt guard
	Client string `json:"-"`
}

// RedeemResult describes a completed link
type RedeemResult struct {
	PlayerID        string   `json:"playerId"`
	PlayerName      string   `json:"playerName"`
	DiscordID       string   `json:"discordId"`
	DiscordUsername string   `json:"discordUsername"`
	Removed         []string `json:"removedPlayerIds,omitempty"`
}

// IssueLinkCode creates a one-time code for an external identity
func (s *PlayerService) IssueLinkCode(ctx context.Context, id linking.Identity) (*IssuedCode, error) {
	id.ExternalID = strings.TrimSpace(id.ExternalID)
	id.Username = strings.TrimSpace(id.Username)

	code, err := s.codes.Issue(id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("issued link code", "discord_id", id.ExternalID, "expires_at", code.ExpiresAt)
	return &IssuedCode{Code: code.Code, ExpiresIn: code.ExpiresIn(s.now())}, nil
}

// RedeemCode binds the identity behind code to the player record keyed by the
// external id. Other records carrying the same name are removed.
func (s *PlayerService) RedeemCode(ctx context.Context, req RedeemRequest) (*RedeemResult, error) {
	if err := s.guard.Check(req.Client); err != nil {
		return nil, err
	}

	name, code, err := cleanRedeemInput(req.PlayerName, req.Code)
	if err != nil {
		return nil, err
	}

	identity, err := s.codes.Take(code)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidOrExpiredCode) && s.guard.Fail(req.Client) {
			s.logger.Warn("client banned after repeated failed redemptions", "client", req.Client)
		}
		return nil, err
	}
	s.guard.Succeed(req.Client)

	now := s.now()
	p, err := s.store.Upsert(identity.ExternalID, func(p *domain.Player, _ bool) error {
		p.PlayerName = name
		p.LastSeen = now.UnixMilli()
		progression.Link(p, domain.DiscordLink{
			ID:       identity.ExternalID,
			Username: identity.Username,
			Avatar:   identity.Avatar,
		}, now.UnixMilli())
		return nil
	})
	if err != nil {
		return nil, err
	}

	removed := s.removeNamesakes(p)
	s.logger.Info("linked player",
		"player_id", p.PlayerID,
		"player_name", p.PlayerName,
		"removed", len(removed),
	)
	if s.notifier != nil {
		s.notifier.Linked(p)
	}

	return &RedeemResult{
		PlayerID:        p.PlayerID,
		PlayerName:      p.PlayerName,
		DiscordID:       p.Discord.ID,
		DiscordUsername: p.Discord.Username,
		Removed:         removed,
	}, nil
}

// removeNamesakes deletes every other record sharing keep's name
func (s *PlayerService) removeNamesakes(keep *domain.Player) []string {
	group := []*domain.Player{keep}
	for _, p := range s.store.All() {
		if p.PlayerID != keep.PlayerID && roster.SameName(p.PlayerName, keep.PlayerName) {
			group = append(group, p)
		}
	}
	_, remove := roster.Resolve(group, keep.PlayerID)

	var ids []string
	for _, p := range remove {
		if s.store.Delete(p.PlayerID) {
			ids = append(ids, p.PlayerID)
		}
	}
	return ids
}

// cleanRedeemInput strips markup from the name and upper-cases the code before
// checking their shape.
func cleanRedeemInput(playerName, code string) (string, string, error) {
	name := scriptTag.ReplaceAllString(playerName, "")
	name = scriptScheme.ReplaceAllString(name, "")
	name = inlineEvent.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)
	if !playerNamePattern.MatchString(name) {
		return "", "", domain.InvalidInput("playerName must be 1-50 letters, digits, '_' or '-'")
	}

	code = strings.ToUpper(strings.TrimSpace(code))
	if !linkCodePattern.MatchString(code) {
		return "", "", domain.InvalidInput("code must be 6 letters or digits")
	}
	return name, code, nil
}
