package advisor

import "strings"

// Intent is the rule-based responder's reading of a message.
type Intent string

const (
	IntentLive       Intent = "live"
	IntentOlympics   Intent = "olympics"
	IntentMatchups   Intent = "matchups"
	IntentPrediction Intent = "prediction"
	IntentCompare    Intent = "compare"
	IntentHelp       Intent = "help"
)

var (
	liveKeywords       = []string{"live", "in play", "in-play", "right now", "currently playing", "what's on", "whats on", "games on now", "live odds", "any games"}
	olympicsKeywords   = []string{"olympics", "milano", "cortina", "milano cortina", "2026 winter"}
	predictionKeywords = []string{"bet on", "who will win", "who should i bet", "predict"}
)

// Classify returns the first matching intent, checked in priority order.
func Classify(message string) Intent {
	msg := strings.ToLower(strings.TrimSpace(message))
	switch {
	case containsAny(msg, liveKeywords...):
		return IntentLive
	case containsAny(msg, olympicsKeywords...):
		return IntentOlympics
	case strings.Contains(msg, "matchups") || strings.Contains(msg, "show games") ||
		(strings.Contains(msg, "upcoming") && !strings.Contains(msg, "live")):
		return IntentMatchups
	case strings.Contains(msg, "vs") && containsAny(msg, predictionKeywords...):
		return IntentPrediction
	case containsAny(msg, "odds", "compare"):
		return IntentCompare
	default:
		return IntentHelp
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
