package advisor

import (
	"regexp"
	"strings"

	"betai/internal/models"
)

const minNicknameLength = 4

// genericNicknames are trailing words shared by too many clubs to identify one.
var genericNicknames = map[string]struct{}{
	"city":     {},
	"united":   {},
	"club":     {},
	"county":   {},
	"athletic": {},
}

type keywordSet struct {
	value    string
	patterns []*regexp.Regexp
}

func words(terms ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(terms))
	for i, t := range terms {
		out[i] = regexp.MustCompile(`(^|[^a-z0-9])` + regexp.QuoteMeta(t) + `($|[^a-z0-9])`)
	}
	return out
}

var betTypes = []keywordSet{
	{"moneyline", words("moneyline", "money line", "ml")},
	{"spread", words("spread", "point spread", "against the spread", "ats", "handicap")},
	{"total", words("total", "totals", "over/under", "over under", "o/u")},
	{"parlay", words("parlay", "parlays", "accumulator", "acca")},
	{"prop", words("prop", "props", "player prop")},
	{"futures", words("futures", "future bet", "outright", "outrights")},
	{"live", words("live bet", "live betting", "in-play bet", "in play bet")},
}

var sportMentions = []keywordSet{
	{"basketball", words("basketball", "nba")},
	{"american_football", words("nfl", "american football", "super bowl")},
	{"soccer", words("soccer", "champions league", "premier league", "mls")},
	{"baseball", words("baseball", "mlb")},
	{"hockey", words("hockey", "nhl")},
	{"tennis", words("tennis", "atp", "wta")},
	{"mma", words("mma", "ufc")},
	{"olympics", words("olympics", "milano cortina")},
}

// ExtractPreferences reads teams, bet types and sport interests from one chat message.
// knownTeams are matched by full name or by their last word.
func ExtractPreferences(text, sport string, knownTeams []string) models.Preferences {
	msg := strings.ToLower(text)
	var prefs models.Preferences

	seen := make(map[string]struct{})
	for _, team := range knownTeams {
		team = strings.TrimSpace(team)
		key := strings.ToLower(team)
		if team == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		if teamMentioned(msg, key) {
			seen[key] = struct{}{}
			prefs.FavoriteTeams = append(prefs.FavoriteTeams, team)
		}
	}

	for _, bt := range betTypes {
		if matchesAny(msg, bt.patterns) {
			prefs.PreferredBetTypes = append(prefs.PreferredBetTypes, bt.value)
		}
	}

	if sport != "" && sport != "other" {
		prefs.SportsInterests = append(prefs.SportsInterests, sport)
	}
	for _, s := range sportMentions {
		if s.value != sport && matchesAny(msg, s.patterns) {
			prefs.SportsInterests = append(prefs.SportsInterests, s.value)
		}
	}
	return prefs
}

func teamMentioned(msg, team string) bool {
	if matchesAny(msg, words(team)) {
		return true
	}
	fields := strings.Fields(team)
	if len(fields) < 2 {
		return false
	}
	nickname := fields[len(fields)-1]
	if _, generic := genericNicknames[nickname]; generic || len(nickname) < minNicknameLength {
		return false
	}
	return matchesAny(msg, words(nickname))
}

func matchesAny(s string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}
