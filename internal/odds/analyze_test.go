package odds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeFindsBestPriceAndValue(t *testing.T) {
	e := h2hEvent("Lakers", "Celtics", 2.0, 2.0)
	e.Bookmakers = append(e.Bookmakers,
		Bookmaker{Key: "b2", Title: "BetMGM", Markets: []Market{{Key: MarketH2H, Outcomes: []Outcome{
			{Name: "Lakers", Price: 2.0}, {Name: "Celtics", Price: 2.0},
		}}}},
		Bookmaker{Key: "b3", Title: "Outlier", Markets: []Market{{Key: MarketH2H, Outcomes: []Outcome{
			{Name: "Lakers", Price: 2.2}, {Name: "Celtics", Price: 1.8},
		}}}},
	)

	results := Analyze([]Event{e}, "")
	require.Len(t, results, 1)
	r := results[0]
	assert.Equal(t, 3, r.Bookmakers)
	require.Len(t, r.Outcomes, 2)

	lakers := r.Outcomes[0]
	assert.Equal(t, "Lakers", lakers.Name)
	assert.Equal(t, 2.2, lakers.BestPrice)
	assert.Equal(t, "Outlier", lakers.BestBookmaker)
	assert.InDelta(t, 0.4833, lakers.FairProb, 0.001)
	assert.True(t, lakers.Value)

	celtics := r.Outcomes[1]
	assert.Equal(t, 2.0, celtics.BestPrice)
	assert.InDelta(t, 0.0333, celtics.Edge, 0.001)
	assert.InDelta(t, -0.0455, r.Overround, 0.001)
}

func TestAnalyzeFairMarketHasNoValue(t *testing.T) {
	results := Analyze([]Event{h2hEvent("Lakers", "Celtics", 1.91, 1.91)}, "")
	require.Len(t, results, 1)
	for _, o := range results[0].Outcomes {
		assert.False(t, o.Value)
		assert.InDelta(t, 0.5, o.FairProb, 1e-9)
	}
	assert.Greater(t, results[0].Overround, 0.0)
}

func TestAnalyzeFiltersByTeam(t *testing.T) {
	events := []Event{
		h2hEvent("Lakers", "Celtics", 2.0, 1.8),
		h2hEvent("Knicks", "Heat", 1.9, 1.9),
	}
	results := Analyze(events, "heat")
	require.Len(t, results, 1)
	assert.Equal(t, "Knicks vs Heat", results[0].Matchup)
	assert.Empty(t, Analyze(events, "bulls"))
}
