package models

import (
	"strings"
	"time"
)

// MaxFavoriteTeams bounds the favorite team history.
const MaxFavoriteTeams = 20

// Preferences are learned from chat text and only ever grow.
type Preferences struct {
	FavoriteTeams     []string  `json:"favorite_teams"`
	PreferredBetTypes []string  `json:"preferred_bet_types"`
	SportsInterests   []string  `json:"sports_interests"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Merge adds the entries of other that are not present yet (case-insensitive)
// and reports whether anything changed. Favorite teams keep the most recent MaxFavoriteTeams.
func (p *Preferences) Merge(other Preferences) bool {
	changed := false
	p.FavoriteTeams, changed = appendUnique(p.FavoriteTeams, other.FavoriteTeams, changed)
	p.PreferredBetTypes, changed = appendUnique(p.PreferredBetTypes, other.PreferredBetTypes, changed)
	p.SportsInterests, changed = appendUnique(p.SportsInterests, other.SportsInterests, changed)
	if len(p.FavoriteTeams) > MaxFavoriteTeams {
		p.FavoriteTeams = append([]string(nil), p.FavoriteTeams[len(p.FavoriteTeams)-MaxFavoriteTeams:]...)
	}
	return changed
}

// Empty reports whether nothing has been learned.
func (p Preferences) Empty() bool {
	return len(p.FavoriteTeams) == 0 && len(p.PreferredBetTypes) == 0 && len(p.SportsInterests) == 0
}

func appendUnique(dst, src []string, changed bool) ([]string, bool) {
	seen := make(map[string]struct{}, len(dst))
	for _, v := range dst {
		seen[strings.ToLower(v)] = struct{}{}
	}
	for _, v := range src {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		dst = append(dst, v)
		changed = true
	}
	return dst, changed
}
