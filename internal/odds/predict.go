package odds

import (
	"fmt"
	"strings"
)

const NoMatchupFound = "⚠️ No odds found for that matchup. Try exact team names (e.g. 'Lakers' vs 'Celtics') or ask for current matchups."

// Favorite picks the side with the lower moneyline price. Ties go to the home team.
// Prices come from the first bookmaker quoting both sides.
func Favorite(e Event) (team string, home, away float64, ok bool) {
	for _, b := range e.Bookmakers {
		for _, m := range b.Markets {
			if m.Key != MarketH2H {
				continue
			}
			hp, hok := m.Price(e.HomeTeam)
			ap, aok := m.Price(e.AwayTeam)
			if !hok || !aok {
				continue
			}
			if hp <= ap {
				return e.HomeTeam, hp, ap, true
			}
			return e.AwayTeam, hp, ap, true
		}
	}
	return "", 0, 0, false
}

// FindMatchup returns the first event whose teams contain the two names, in either orientation.
func FindMatchup(events []Event, team1, team2 string) (Event, bool) {
	t1 := strings.ToLower(strings.TrimSpace(team1))
	t2 := strings.ToLower(strings.TrimSpace(team2))
	if t1 == "" && t2 == "" {
		return Event{}, false
	}
	contains := func(s, sub string) bool {
		return sub != "" && strings.Contains(s, sub)
	}
	for _, e := range events {
		home := strings.ToLower(strings.TrimSpace(e.HomeTeam))
		away := strings.ToLower(strings.TrimSpace(e.AwayTeam))
		if contains(home, t1) || contains(away, t2) || contains(home, t2) || contains(away, t1) {
			if _, _, _, ok := Favorite(e); ok {
				return e, true
			}
		}
	}
	return Event{}, false
}

// Predict names the favorite of the team1 vs team2 matchup.
func Predict(team1, team2 string, events []Event) string {
	e, ok := FindMatchup(events, team1, team2)
	if !ok {
		return NoMatchupFound
	}
	winner, hp, ap, _ := Favorite(e)
	return fmt.Sprintf("🏆 **%s** is the favorite. Odds — %s: %s, %s: %s",
		winner, e.HomeTeam, FormatPrice(hp), e.AwayTeam, FormatPrice(ap))
}
