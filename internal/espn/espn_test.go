package espn

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scoreboardJSON = `{
	"events": [
		{
			"id": "401",
			"date": "2026-02-01T01:30Z",
			"name": "Boston Celtics at Los Angeles Lakers",
			"status": {"type": {"state": "in", "shortDetail": "Q3 5:12"}},
			"competitions": [{"competitors": [
				{"homeAway": "home", "score": "88", "team": {"displayName": "Los Angeles Lakers"}},
				{"homeAway": "away", "score": "90", "team": {"displayName": "Boston Celtics"}}
			]}]
		},
		{
			"id": "402",
			"date": "2026-02-01T03:00:00Z",
			"name": "Heat at Knicks",
			"status": {"type": {"state": "pre", "shortDetail": "7:00 PM"}},
			"competitions": [{"competitors": []}]
		}
	]
}`

func TestTimeUnmarshal(t *testing.T) {
	tests := map[string]time.Time{
		`"2026-02-01T01:30Z"`:    time.Date(2026, 2, 1, 1, 30, 0, 0, time.UTC),
		`"2026-02-01T01:30:15Z"`: time.Date(2026, 2, 1, 1, 30, 15, 0, time.UTC),
		`""`:                     {},
		`null`:                   {},
	}
	for input, want := range tests {
		var got Time
		require.NoError(t, json.Unmarshal([]byte(input), &got), input)
		assert.True(t, want.Equal(got.Time), "%s: got %v", input, got.Time)
	}

	var bad Time
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &bad))
}

func TestScoreboard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/basketball/nba/scoreboard", r.URL.Path)
		_, _ = w.Write([]byte(scoreboardJSON))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, nil)
	games, err := client.Scoreboard(context.Background(), "basketball")
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, "Los Angeles Lakers", games[0].HomeTeam)
	assert.Equal(t, "90", games[0].AwayScore)
	assert.Equal(t, 2026, games[0].StartTime.Year())

	live, err := client.LiveScores(context.Background(), "basketball")
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, "Live scores (ESPN):\n  NBA: Boston Celtics 90 - Los Angeles Lakers 88 (Q3 5:12)", FormatScores("NBA", live))
}

func TestScoreboardErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, nil)
	_, err := client.Scoreboard(context.Background(), "hockey")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")

	_, err = client.Scoreboard(context.Background(), "olympics")
	assert.ErrorIs(t, err, ErrUnsupportedSport)
}

func TestFantasyStandingsAndFreeAgents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ffl/seasons/2025/segments/0/leagues/1234", r.URL.Path)
		assert.Contains(t, r.Header.Get("Cookie"), "espn_s2=s2")
		switch r.URL.Query().Get("view") {
		case "mTeam":
			_, _ = w.Write([]byte(`{"teams":[
				{"id":1,"location":"Team","nickname":"One","record":{"overall":{"wins":3,"losses":5,"pointsFor":700.5}}},
				{"id":2,"name":"Second Team","record":{"overall":{"wins":6,"losses":2,"pointsFor":800}}}
			]}`))
		case "kona_player_info":
			var filter map[string]interface{}
			assert.NoError(t, json.Unmarshal([]byte(r.Header.Get("X-Fantasy-Filter")), &filter))
			_, _ = w.Write([]byte(`{"players":[{"id":9,"status":"FREEAGENT","player":{"fullName":"Some Back","ownership":{"percentOwned":41.5}}}]}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	client := NewFantasyClient(FantasyOptions{BaseURL: srv.URL, LeagueID: 1234, Season: 2025, SWID: "{abc}", ESPNS2: "s2"})
	require.True(t, client.Configured())

	standings, err := client.Standings(context.Background())
	require.NoError(t, err)
	require.Len(t, standings, 2)
	assert.Equal(t, "Second Team", standings[0].Name)
	assert.Equal(t, "Team One", standings[1].Name)

	agents, err := client.FreeAgents(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, agents, 1)

	text := FormatFantasy(standings, agents)
	assert.Contains(t, text, "1. Second Team (6-2-0, 800.0 pts)")
	assert.Contains(t, text, "Some Back (41.5% owned)")
}

func TestFantasyNotConfigured(t *testing.T) {
	client := NewFantasyClient(FantasyOptions{BaseURL: "http://127.0.0.1:1"})
	assert.False(t, client.Configured())
	_, err := client.Standings(context.Background())
	assert.ErrorIs(t, err, ErrFantasyNotConfigured)
}
