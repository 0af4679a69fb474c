package odds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func h2hEvent(home, away string, homePrice, awayPrice float64) Event {
	return Event{
		ID:       "e",
		SportKey: "basketball_nba",
		HomeTeam: home,
		AwayTeam: away,
		Bookmakers: []Bookmaker{{
			Key:   "fanduel",
			Title: "FanDuel",
			Markets: []Market{{Key: MarketH2H, Outcomes: []Outcome{
				{Name: home, Price: homePrice},
				{Name: away, Price: awayPrice},
			}}},
		}},
	}
}

func TestFavoriteIsSymmetricUnderPriceSwap(t *testing.T) {
	team, _, _, ok := Favorite(h2hEvent("Lakers", "Celtics", 2.3, 1.65))
	require.True(t, ok)
	assert.Equal(t, "Celtics", team)

	team, _, _, ok = Favorite(h2hEvent("Lakers", "Celtics", 1.65, 2.3))
	require.True(t, ok)
	assert.Equal(t, "Lakers", team)
}

func TestFavoriteTieGoesHome(t *testing.T) {
	team, _, _, ok := Favorite(h2hEvent("Lakers", "Celtics", 1.9, 1.9))
	require.True(t, ok)
	assert.Equal(t, "Lakers", team)
}

func TestFavoriteWithoutMoneyline(t *testing.T) {
	e := h2hEvent("Lakers", "Celtics", 1.9, 2.0)
	e.Bookmakers[0].Markets[0].Key = "spreads"
	_, _, _, ok := Favorite(e)
	assert.False(t, ok)
}

func TestPredictNamesFavoriteAndBothPrices(t *testing.T) {
	events := []Event{h2hEvent("Los Angeles Lakers", "Boston Celtics", 2.3, 1.65)}

	reply := Predict("lakers", "celtics", events)
	assert.Contains(t, reply, "**Boston Celtics** is the favorite")
	assert.Contains(t, reply, "2.3")
	assert.Contains(t, reply, "1.65")

	assert.Equal(t, reply, Predict("celtics", "lakers", events))
}

func TestPredictNoMatch(t *testing.T) {
	events := []Event{h2hEvent("Los Angeles Lakers", "Boston Celtics", 2.3, 1.65)}
	assert.Equal(t, NoMatchupFound, Predict("knicks", "heat", events))
	assert.Equal(t, NoMatchupFound, Predict("", "", events))
	assert.Equal(t, NoMatchupFound, Predict("lakers", "celtics", nil))
}
