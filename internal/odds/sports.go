package odds

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	SportUpcoming = "upcoming"
	SportOlympics = "olympics"
)

// Sports lists the frontend sport categories in display order.
var Sports = []string{
	"basketball",
	"soccer",
	"american_football",
	"baseball",
	"hockey",
	"tennis",
	"mma",
	"olympics",
	"other",
}

var sportKeys = map[string]string{
	"basketball":        "basketball_nba",
	"soccer":            "soccer_uefa_champs_league",
	"american_football": "americanfootball_nfl",
	"baseball":          "baseball_mlb",
	"hockey":            "icehockey_nhl",
	"tennis":            "tennis_atp",
	"mma":               "mma_mixed_martial_arts",
	"olympics":          "olympics_winter_2026",
	"other":             "basketball_nba",
}

var sportTitles = map[string]string{
	"basketball_nba":            "NBA",
	"soccer_uefa_champs_league": "Champions League",
	"soccer_usa_mls":            "MLS",
	"americanfootball_nfl":      "NFL",
	"americanfootball_ncaaf":    "NCAAF",
	"baseball_mlb":              "MLB",
	"icehockey_nhl":             "NHL",
	"tennis_atp":                "Tennis ATP",
	"tennis_wta":                "Tennis WTA",
	"mma_mixed_martial_arts":    "MMA",
	"olympics_winter_2026":      "Milano Cortina 2026",
}

// ResolveSportKey maps a frontend category to the provider key.
// Unknown values are passed through so provider keys can be used directly.
func ResolveSportKey(sport string) string {
	sport = NormalizeSport(sport)
	if key, ok := sportKeys[sport]; ok {
		return key
	}
	if sport == "" {
		return sportKeys["basketball"]
	}
	return sport
}

// NormalizeSport lower-cases and replaces spaces with underscores.
func NormalizeSport(sport string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(sport)), " ", "_")
}

// Title returns the display name for a provider sport key.
func Title(sportKey string) string {
	if t, ok := sportTitles[sportKey]; ok {
		return t
	}
	return Label(sportKey)
}

// Label turns snake_case into title-cased words, e.g. "american_football" -> "American Football".
func Label(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}
