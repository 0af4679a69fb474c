package odds

import (
	"sort"
	"strings"
)

// ValueEdgeThreshold is the minimum edge for an outcome to be flagged as value.
const ValueEdgeThreshold = 0.02

type OutcomeAnalysis struct {
	Name          string  `json:"name"`
	BestPrice     float64 `json:"best_price"`
	BestBookmaker string  `json:"best_bookmaker"`
	FairProb      float64 `json:"fair_probability"`
	Edge          float64 `json:"edge"`
	Value         bool    `json:"value"`
}

type EventAnalysis struct {
	EventID      string            `json:"event_id"`
	Matchup      string            `json:"matchup"`
	CommenceTime string            `json:"commence_time"`
	Bookmakers   int               `json:"bookmakers"`
	Overround    float64           `json:"overround"`
	Outcomes     []OutcomeAnalysis `json:"outcomes"`
}

// Analyze compares moneyline prices across bookmakers. When team is set only
// events involving it are analyzed. Events without a usable moneyline are skipped.
func Analyze(events []Event, team string) []EventAnalysis {
	team = strings.ToLower(strings.TrimSpace(team))
	var out []EventAnalysis
	for _, e := range events {
		if team != "" &&
			!strings.Contains(strings.ToLower(e.HomeTeam), team) &&
			!strings.Contains(strings.ToLower(e.AwayTeam), team) {
			continue
		}
		if a, ok := analyzeEvent(e); ok {
			out = append(out, a)
		}
	}
	return out
}

func analyzeEvent(e Event) (EventAnalysis, bool) {
	type acc struct {
		best     float64
		bestBook string
		probSum  float64
		quotes   int
		order    int
	}
	outcomes := make(map[string]*acc)
	books := 0

	for _, b := range e.Bookmakers {
		for _, m := range b.Markets {
			if m.Key != MarketH2H || len(m.Outcomes) == 0 {
				continue
			}
			var margin float64
			for _, o := range m.Outcomes {
				margin += 1 / o.Price
			}
			books++
			for _, o := range m.Outcomes {
				a, ok := outcomes[o.Name]
				if !ok {
					a = &acc{order: len(outcomes)}
					outcomes[o.Name] = a
				}
				a.probSum += (1 / o.Price) / margin
				a.quotes++
				if o.Price > a.best {
					a.best = o.Price
					a.bestBook = b.Title
					if a.bestBook == "" {
						a.bestBook = b.Key
					}
				}
			}
			break
		}
	}
	if books == 0 {
		return EventAnalysis{}, false
	}

	result := EventAnalysis{
		EventID:      e.ID,
		Matchup:      e.Matchup(),
		CommenceTime: e.CommenceTime,
		Bookmakers:   books,
	}
	var bestSum float64
	for name, a := range outcomes {
		fair := a.probSum / float64(a.quotes)
		edge := fair*a.best - 1
		bestSum += 1 / a.best
		result.Outcomes = append(result.Outcomes, OutcomeAnalysis{
			Name:          name,
			BestPrice:     a.best,
			BestBookmaker: a.bestBook,
			FairProb:      fair,
			Edge:          edge,
			Value:         edge > ValueEdgeThreshold,
		})
	}
	sort.Slice(result.Outcomes, func(i, j int) bool {
		return outcomes[result.Outcomes[i].Name].order < outcomes[result.Outcomes[j].Name].order
	})
	result.Overround = bestSum - 1
	return result, true
}
