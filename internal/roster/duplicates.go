// Package roster decides which player records survive when several records
// claim the same display name, and which records count as test data.
package roster

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/progression-hub/internal/domain"
)

// NameKey folds a display name for case-insensitive comparison
func NameKey(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// SameName reports whether two display names are equal ignoring case
func SameName(a, b string) bool {
	return NameKey(a) == NameKey(b)
}

// Resolve picks the record to keep out of a group of records sharing a name.
// preferID wins when it is in the group. Otherwise a linked record wins, and
// failing that the most recently seen one. Ties go to the smaller player id.
func Resolve(group []*domain.Player, preferID string) (keep *domain.Player, remove []*domain.Player) {
	if len(group) == 0 {
		return nil, nil
	}

	for _, p := range group {
		if preferID != "" && p.PlayerID == preferID {
			keep = p
			break
		}
	}
	if keep == nil {
		for _, p := range group {
			if better(p, keep) {
				keep = p
			}
		}
	}

	for _, p := range group {
		if p != keep {
			remove = append(remove, p)
		}
	}
	return keep, remove
}

func better(p, current *domain.Player) bool {
	if current == nil {
		return true
	}
	if pl, cl := p.Discord.IsLinked(), current.Discord.IsLinked(); pl != cl {
		return pl
	}
	if p.LastSeen != current.LastSeen {
		return p.LastSeen > current.LastSeen
	}
	return p.PlayerID < current.PlayerID
}

// Duplicates groups players by folded name and returns only groups with more than one
// record, ordered by name key. Players without a name are never grouped.
func Duplicates(players []*domain.Player) [][]*domain.Player {
	byName := make(map[string][]*domain.Player)
	for _, p := range players {
		key := NameKey(p.PlayerName)
		if key == "" {
			continue
		}
		byName[key] = append(byName[key], p)
	}

	keys := make([]string, 0, len(byName))
	for key, group := range byName {
		if len(group) > 1 {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)

	groups := make([][]*domain.Player, 0, len(keys))
	for _, key := range keys {
		groups = append(groups, byName[key])
	}
	return groups
}

// Sweep resolves every duplicate group and returns the ids to delete
func Sweep(players []*domain.Player) []string {
	var ids []string
	for _, group := range Duplicates(players) {
		_, remove := Resolve(group, "")
		for _, p := range remove {
			ids = append(ids, p.PlayerID)
		}
	}
	return ids
}
