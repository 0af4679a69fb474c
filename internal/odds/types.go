package odds

import (
	"errors"
	"fmt"
	"strings"
)

const MarketH2H = "h2h"

// Event is one fixture as returned by the odds API.
type Event struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	SportTitle   string      `json:"sport_title"`
	CommenceTime string      `json:"commence_time"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Bookmakers   []Bookmaker `json:"bookmakers"`
}

type Bookmaker struct {
	Key        string   `json:"key"`
	Title      string   `json:"title"`
	LastUpdate string   `json:"last_update,omitempty"`
	Markets    []Market `json:"markets"`
}

type Market struct {
	Key      string    `json:"key"`
	Outcomes []Outcome `json:"outcomes"`
}

type Outcome struct {
	Name  string   `json:"name"`
	Price float64  `json:"price"`
	Point *float64 `json:"point,omitempty"`
}

// Sport is an entry of the provider's sports listing.
type Sport struct {
	Key          string `json:"key"`
	Group        string `json:"group"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Active       bool   `json:"active"`
	HasOutrights bool   `json:"has_outrights"`
}

var errMissingTeams = errors.New("missing home or away team")

// Validate rejects events the formatters cannot render.
func (e Event) Validate() error {
	if strings.TrimSpace(e.HomeTeam) == "" || strings.TrimSpace(e.AwayTeam) == "" {
		return fmt.Errorf("event %q: %w", e.ID, errMissingTeams)
	}
	for _, b := range e.Bookmakers {
		for _, m := range b.Markets {
			if m.Key == "" {
				return fmt.Errorf("event %q bookmaker %q: empty market key", e.ID, b.Key)
			}
			for _, o := range m.Outcomes {
				if strings.TrimSpace(o.Name) == "" {
					return fmt.Errorf("event %q market %q: empty outcome name", e.ID, m.Key)
				}
				if o.Price <= 0 {
					return fmt.Errorf("event %q outcome %q: non-positive price %v", e.ID, o.Name, o.Price)
				}
			}
		}
	}
	return nil
}

// Matchup renders "home vs away".
func (e Event) Matchup() string {
	return e.HomeTeam + " vs " + e.AwayTeam
}

// FirstMarket returns the first market with the given key, searching bookmakers in order.
func (e Event) FirstMarket(key string) (Bookmaker, Market, bool) {
	for _, b := range e.Bookmakers {
		for _, m := range b.Markets {
			if m.Key == key {
				return b, m, true
			}
		}
	}
	return Bookmaker{}, Market{}, false
}

// Price returns the outcome price for name (case-insensitive).
func (m Market) Price(name string) (float64, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, o := range m.Outcomes {
		if strings.ToLower(strings.TrimSpace(o.Name)) == name {
			return o.Price, true
		}
	}
	return 0, false
}
