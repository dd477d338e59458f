package roster

import (
	"slices"
	"strings"

	"github.com/progression-hub/internal/domain"
)

// DemoPlayerNames are the seeded demo records removed by the default test-data purge
var DemoPlayerNames = []string{"PvPMaster", "WarriorKing", "ShadowHunter", "BattleAxe", "StealthNinja"}

// Matcher selects records for purging
type Matcher func(p *domain.Player) bool

// DefaultTestData matches ids containing "test", names containing "test" or "Test"
// and the demo player names.
func DefaultTestData(p *domain.Player) bool {
	return strings.Contains(p.PlayerID, "test") ||
		strings.Contains(p.PlayerName, "test") ||
		strings.Contains(p.PlayerName, "Test") ||
		slices.Contains(DemoPlayerNames, p.PlayerName)
}

// MatchPattern matches records whose id or name contains pattern, ignoring case.
// An empty pattern falls back to DefaultTestData.
func MatchPattern(pattern string) Matcher {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return DefaultTestData
	}
	key := NameKey(pattern)
	return func(p *domain.Player) bool {
		return strings.Contains(NameKey(p.PlayerID), key) || strings.Contains(NameKey(p.PlayerName), key)
	}
}

// Select returns the ids of the players matched by m
func Select(players []*domain.Player, m Matcher) []string {
	var ids []string
	for _, p := range players {
		if m(p) {
			ids = append(ids, p.PlayerID)
		}
	}
	slices.Sort(ids)
	return ids
}
