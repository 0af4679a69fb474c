package advisor

import (
	"context"
	"fmt"
	"strings"

	"betai/internal/odds"
)

const defaultSport = "basketball"

const (
	olympicsUnavailable = "**Milano Cortina 2026** Winter Olympics odds aren’t in the feed yet (or the API key doesn’t have access). " +
		"As the Games get closer (Feb 6–22, 2026), bookmakers will list outrights and event odds — I’ll show them here when available. " +
		"Meanwhile, ask for **live odds** or matchups for NBA, NFL, soccer, etc."
	olympicsEmpty = "No Milano Cortina 2026 odds available right now. Try *Live odds* or matchups for other sports."
	askTwoTeams   = "Please ask with two teams, e.g. *Who will win Lakers vs Celtics?*"
)

// matchupFillers are stripped from the left side of "A vs B", longest first.
var matchupFillers = []string{"who should i bet on", "should i bet on", "who will win", "predict"}

// Responder answers from odds data alone.
type Responder struct {
	odds OddsSource
}

func NewResponder(oddsSource OddsSource) *Responder {
	return &Responder{odds: oddsSource}
}

// Respond builds a deterministic reply for message. Upstream failures become reply text.
func (r *Responder) Respond(ctx context.Context, message, sport string) string {
	sport = odds.NormalizeSport(sport)
	if sport == "" {
		sport = defaultSport
	}

	switch Classify(message) {
	case IntentLive:
		groups, err := r.odds.FetchLive(ctx)
		if err != nil {
			return fmt.Sprintf("Couldn’t load live odds: %v. I can still show **upcoming matchups** for a sport — try *Show matchups* or pick a sport above.", err)
		}
		return odds.FormatLive(groups)
	case IntentOlympics:
		events, err := r.odds.FetchOdds(ctx, odds.ResolveSportKey(odds.SportOlympics))
		if err != nil {
			return olympicsUnavailable
		}
		if len(events) == 0 {
			return olympicsEmpty
		}
		return odds.FormatMatchups(events)
	case IntentPrediction:
		t1, t2, ok := ParseMatchup(message)
		if !ok {
			return askTwoTeams
		}
		events, err := r.odds.FetchOdds(ctx, odds.ResolveSportKey(sport))
		if err != nil {
			return fmt.Sprintf("⚠️ Error fetching odds: %v", err)
		}
		return odds.Predict(t1, t2, events)
	case IntentMatchups, IntentCompare:
		return r.matchups(ctx, sport)
	default:
		return helpText(sport)
	}
}

func (r *Responder) matchups(ctx context.Context, sport string) string {
	events, err := r.odds.FetchOdds(ctx, odds.ResolveSportKey(sport))
	if err != nil {
		return fmt.Sprintf("Could not load odds: %v", err)
	}
	return odds.FormatMatchups(events)
}

func helpText(sport string) string {
	return "I’m your **betting agent** for " + odds.Label(sport) + " and more. Here’s what I can do:\n\n" +
		"• **Live odds** — *Show live odds* or *What’s on now?* for games in progress and next up across sports.\n" +
		"• **Matchups** — *Show matchups* for upcoming games in your current sport.\n" +
		"• **Predictions** — *Who will win [Team A] vs [Team B]?* for a quick take and odds.\n" +
		"• **Milano Cortina 2026** — Ask *Olympics odds* or *Milano Cortina* for Winter Games when available.\n\n" +
		"What would you like to look at?"
}

// ParseMatchup extracts the two team names from "... A vs B ...".
// The left side keeps its last two words after filler phrases are removed.
func ParseMatchup(message string) (team1, team2 string, ok bool) {
	left, right, found := strings.Cut(strings.ToLower(message), "vs")
	if !found {
		return "", "", false
	}
	for _, filler := range matchupFillers {
		left = strings.ReplaceAll(left, filler, "")
	}
	words := strings.Fields(left)
	if len(words) > 2 {
		words = words[len(words)-2:]
	}
	team1 = strings.Join(words, " ")
	team2 = strings.TrimSpace(strings.Trim(strings.TrimSpace(right), ".?!,;:"))
	if team1 == "" || team2 == "" {
		return "", "", false
	}
	return team1, team2, true
}
