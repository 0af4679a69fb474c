package odds

import (
	"context"
	"strings"
)

// LiveGame is a single line of the live/upcoming board.
type LiveGame struct {
	Match    string `json:"match"`
	Odds     string `json:"odds"`
	Commence string `json:"commence"`
}

// LiveGroup holds the games of one sport, in feed order.
type LiveGroup struct {
	Title string     `json:"title"`
	Games []LiveGame `json:"games"`
}

// FetchLive returns in-play and next-up games across all sports grouped by sport title.
func (c *Client) FetchLive(ctx context.Context) ([]LiveGroup, error) {
	events, err := c.FetchOdds(ctx, SportUpcoming)
	if err != nil {
		return nil, err
	}
	return GroupLive(events), nil
}

// GroupLive groups events by sport title keeping first-seen order.
// Each event contributes the moneyline of its first bookmaker, if that bookmaker offers one.
func GroupLive(events []Event) []LiveGroup {
	var groups []LiveGroup
	index := make(map[string]int)
	for _, e := range events {
		if len(e.Bookmakers) == 0 {
			continue
		}
		var market *Market
		for i := range e.Bookmakers[0].Markets {
			if e.Bookmakers[0].Markets[i].Key == MarketH2H {
				market = &e.Bookmakers[0].Markets[i]
				break
			}
		}
		if market == nil {
			continue
		}

		sportKey := e.SportKey
		if sportKey == "" {
			sportKey = "other"
		}
		title := Title(sportKey)
		i, ok := index[title]
		if !ok {
			i = len(groups)
			index[title] = i
			groups = append(groups, LiveGroup{Title: title})
		}
		groups[i].Games = append(groups[i].Games, LiveGame{
			Match:    e.Matchup(),
			Odds:     outcomeList(market.Outcomes, ", "),
			Commence: commenceShort(e.CommenceTime),
		})
	}
	return groups
}

func commenceShort(ts string) string {
	if len(ts) > 16 {
		ts = ts[:16]
	}
	return strings.Replace(ts, "T", " ", 1)
}
