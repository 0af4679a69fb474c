package odds

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	liveGamesPerSport    = 5
	contextSports        = 8
	contextGamesPerSport = 3
)

const noMatchups = "No matchups available for this sport right now."

// FormatPrice renders a decimal price without trailing zeros.
func FormatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

// FormatMatchups renders one line per event using the first bookmaker that offers a moneyline.
func FormatMatchups(events []Event) string {
	var lines []string
	for _, e := range events {
		_, m, ok := e.FirstMarket(MarketH2H)
		if !ok {
			continue
		}
		parts := []string{fmt.Sprintf("**%s** vs **%s**", e.HomeTeam, e.AwayTeam)}
		for _, o := range m.Outcomes {
			parts = append(parts, o.Name+": "+FormatPrice(o.Price))
		}
		lines = append(lines, strings.Join(parts, " — "))
	}
	if len(lines) == 0 {
		return noMatchups
	}
	return strings.Join(lines, "\n")
}

// FormatLive renders the live/upcoming board as a chat reply.
func FormatLive(groups []LiveGroup) string {
	if len(groups) == 0 {
		return "There are no **live or upcoming** games with odds in the feed right now. " +
			"Try asking for matchups for a specific sport (e.g. *Show NBA matchups*), " +
			"or *Milano Cortina 2026* Olympics when available."
	}
	lines := []string{"Here’s what’s **live or coming up** across sports:\n"}
	for _, g := range groups {
		lines = append(lines, "**"+g.Title+"**")
		for i, game := range g.Games {
			if i == liveGamesPerSport {
				break
			}
			lines = append(lines, "• "+game.Match+" — "+game.Odds)
		}
		if extra := len(g.Games) - liveGamesPerSport; extra > 0 {
			lines = append(lines, fmt.Sprintf("  _…and %d more_", extra))
		}
		lines = append(lines, "")
	}
	lines = append(lines, "_Want odds for one sport only? Pick it from the selector or ask e.g. *Show NBA matchups*. "+
		"You can also ask for **Milano Cortina 2026** Olympics._")
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// FormatLiveContext is the compact board handed to the LLM.
func FormatLiveContext(groups []LiveGroup) string {
	lines := []string{"Live or upcoming games:"}
	for i, g := range groups {
		if i == contextSports {
			break
		}
		for j, game := range g.Games {
			if j == contextGamesPerSport {
				break
			}
			lines = append(lines, "  "+g.Title+": "+game.Match+" — "+game.Odds)
		}
	}
	return strings.Join(lines, "\n")
}

func outcomeList(outcomes []Outcome, sep string) string {
	parts := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		parts = append(parts, o.Name+": "+FormatPrice(o.Price))
	}
	return strings.Join(parts, sep)
}
