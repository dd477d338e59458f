package service

import (
	"context"

	"github.com/progression-hub/internal/domain"
	"github.com/progression-hub/internal/roster"
)

// CleanupResult reports a duplicate sweep
type CleanupResult struct {
	Removed          []string `json:"removedPlayerIds"`
	RemovedCount     int      `json:"removedCount"`
	RemainingPlayers int      `json:"remainingPlayers"`
}

// PurgeRequest selects test records to delete
type PurgeRequest struct {
	Confirm bool `json:"confirm"`
	// Pattern replaces the built-in test data rules with a case-insensitive substring match
	Pattern string `json:"pattern,omitempty"`
}

// PurgeResult reports a test data purge
type PurgeResult struct {
	RemovedPlayers   int `json:"removedPlayers"`
	RemainingPlayers int `json:"remainingPlayers"`
	ClearedCodes     int `json:"clearedCodes"`
}

// CleanDuplicates keeps one record per case-insensitive name and deletes the rest.
// Running it twice in a row removes nothing the second time.
func (s *PlayerService) CleanDuplicates(ctx context.Context) *CleanupResult {
	ids := roster.Sweep(s.snapshot())

	removed := make([]string, 0, len(ids))
	for _, id := range ids {
		if s.store.Delete(id) {
			removed = append(removed, id)
		}
	}

	s.logger.Info("cleaned duplicate players", "removed", len(removed), "remaining", s.store.Len())
	return &CleanupResult{
		Removed:          removed,
		RemovedCount:     len(removed),
		RemainingPlayers: s.store.Len(),
	}
}

// ClearTestData deletes test records and every pending link code
func (s *PlayerService) ClearTestData(ctx context.Context, req PurgeRequest) (*PurgeResult, error) {
	if !req.Confirm {
		return nil, domain.InvalidInput("confirm must be true")
	}

	ids := roster.Select(s.snapshot(), roster.MatchPattern(req.Pattern))
	removed := 0
	for _, id := range ids {
		if s.store.Delete(id) {
			removed++
		}
	}
	codes := s.codes.Clear()

	s.logger.Info("cleared test data",
		"removed", removed,
		"codes", codes,
		"pattern", req.Pattern,
	)
	return &PurgeResult{
		RemovedPlayers:   removed,
		RemainingPlayers: s.store.Len(),
		ClearedCodes:     codes,
	}, nil
}
