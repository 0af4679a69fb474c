package advisor

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"betai/internal/espn"
	"betai/internal/logger"
	"betai/internal/odds"
)

// Trigger selects one block of the LLM context.
type Trigger string

const (
	TriggerLive       Trigger = "live"
	TriggerOlympics   Trigger = "olympics"
	TriggerMatchups   Trigger = "matchups"
	TriggerHeadToHead Trigger = "head_to_head"
	TriggerFantasy    Trigger = "fantasy"
)

const (
	contextHeader     = "Current odds data (use this when answering):\n"
	headToHeadHint    = "(Use the odds data above to say who is the favorite and at what odds.)"
	olympicsMissing   = "(Milano Cortina 2026 odds are not in the feed yet.)"
	fantasyFreeAgents = 10
)

var (
	contextLiveKeywords     = []string{"live", "in play", "what's on", "whats on", "games on now", "live odds", "any games"}
	contextOlympicsKeywords = []string{"olympics", "milano", "cortina", "2026 winter"}
	contextMatchupKeywords  = []string{"matchups", "match ups", "show games", "upcoming", "odds", "compare", "analysis", "analyze", "value"}
	headToHeadKeywords      = []string{"bet", "win", "predict", "who"}
	fantasyKeywords         = []string{"fantasy", "free agent", "waiver", "standings"}
)

// OddsSource is the odds gateway as seen by the advisor.
type OddsSource interface {
	FetchOdds(ctx context.Context, sportKey string, markets ...string) ([]odds.Event, error)
	FetchLive(ctx context.Context) ([]odds.LiveGroup, error)
}

// ScoresSource supplies in-progress games.
type ScoresSource interface {
	LiveScores(ctx context.Context, sport string) ([]espn.Game, error)
}

// FantasySource supplies fantasy league data.
type FantasySource interface {
	Configured() bool
	Standings(ctx context.Context) ([]espn.Standing, error)
	FreeAgents(ctx context.Context, limit int) ([]espn.Player, error)
}

// Triggers lists the context blocks a message asks for, in evaluation order.
// Matchups is included as the fallback when neither live nor olympics fired.
func Triggers(message string) []Trigger {
	msg := strings.ToLower(strings.TrimSpace(message))
	var out []Trigger
	if containsAny(msg, contextLiveKeywords...) {
		out = append(out, TriggerLive)
	}
	if containsAny(msg, contextOlympicsKeywords...) {
		out = append(out, TriggerOlympics)
	}
	if containsAny(msg, contextMatchupKeywords...) || len(out) == 0 {
		out = append(out, TriggerMatchups)
	}
	if strings.Contains(msg, "vs") && containsAny(msg, headToHeadKeywords...) {
		out = append(out, TriggerHeadToHead)
	}
	if containsAny(msg, fantasyKeywords...) {
		out = append(out, TriggerFantasy)
	}
	return out
}

// Builder gathers live data for the LLM. Scores and fantasy sources are optional.
type Builder struct {
	odds    OddsSource
	scores  ScoresSource
	fantasy FantasySource
	log     *zap.Logger
}

func NewBuilder(oddsSource OddsSource, scores ScoresSource, fantasy FantasySource, log *zap.Logger) *Builder {
	return &Builder{odds: oddsSource, scores: scores, fantasy: fantasy, log: logger.OrNop(log)}
}

// Build returns the context block for message, or "" when nothing could be loaded.
func (b *Builder) Build(ctx context.Context, message, sport string) string {
	sport = odds.NormalizeSport(sport)
	if sport == "" {
		sport = defaultSport
	}
	sportOdds := b.sportOddsOnce(ctx, sport)

	var parts []string
	for _, t := range Triggers(message) {
		switch t {
		case TriggerLive:
			parts = append(parts, b.liveBlocks(ctx, sport)...)
		case TriggerOlympics:
			parts = append(parts, b.olympicsBlock(ctx))
		case TriggerMatchups:
			if events, err := sportOdds(); err == nil && len(events) > 0 {
				parts = append(parts, fmt.Sprintf("Upcoming %s matchups:\n%s", strings.ReplaceAll(sport, "_", " "), odds.FormatMatchups(events)))
			}
		case TriggerHeadToHead:
			events, err := sportOdds()
			if err != nil {
				continue
			}
			if t1, t2, ok := ParseMatchup(message); ok {
				if _, found := odds.FindMatchup(events, t1, t2); found {
					parts = append(parts, odds.Predict(t1, t2, events))
				}
			}
			parts = append(parts, headToHeadHint)
		case TriggerFantasy:
			if block := b.fantasyBlock(ctx); block != "" {
				parts = append(parts, block)
			}
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return contextHeader + strings.Join(parts, "\n\n")
}

// sportOddsOnce fetches the current sport at most once per Build.
func (b *Builder) sportOddsOnce(ctx context.Context, sport string) func() ([]odds.Event, error) {
	var (
		done   bool
		events []odds.Event
		err    error
	)
	return func() ([]odds.Event, error) {
		if !done {
			events, err = b.odds.FetchOdds(ctx, odds.ResolveSportKey(sport))
			done = true
		}
		return events, err
	}
}

func (b *Builder) liveBlocks(ctx context.Context, sport string) []string {
	var parts []string
	groups, err := b.odds.FetchLive(ctx)
	switch {
	case err != nil:
		parts = append(parts, fmt.Sprintf("(Live odds could not be loaded: %v)", err))
	case len(groups) > 0:
		parts = append(parts, odds.FormatLiveContext(groups))
	}

	if b.scores == nil {
		return parts
	}
	_, title, ok := espn.League(sport)
	if !ok {
		return parts
	}
	games, err := b.scores.LiveScores(ctx, sport)
	if err != nil {
		b.log.Warn("live scores unavailable", zap.String("sport", sport), zap.Error(err))
		return parts
	}
	if block := espn.FormatScores(title, games); block != "" {
		parts = append(parts, block)
	}
	return parts
}

func (b *Builder) olympicsBlock(ctx context.Context) string {
	events, err := b.odds.FetchOdds(ctx, odds.ResolveSportKey(odds.SportOlympics))
	if err != nil || len(events) == 0 {
		return olympicsMissing
	}
	return "Milano Cortina 2026 / Olympics odds:\n" + odds.FormatMatchups(events)
}

func (b *Builder) fantasyBlock(ctx context.Context) string {
	if b.fantasy == nil || !b.fantasy.Configured() {
		return ""
	}
	standings, err := b.fantasy.Standings(ctx)
	if err != nil {
		return fmt.Sprintf("(Fantasy league data could not be loaded: %v)", err)
	}
	agents, err := b.fantasy.FreeAgents(ctx, fantasyFreeAgents)
	if err != nil {
		b.log.Warn("fantasy free agents unavailable", zap.Error(err))
	}
	return espn.FormatFantasy(standings, agents)
}
