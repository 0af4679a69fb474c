package espn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"betai/internal/logger"
	"betai/internal/metrics"
)

// ErrFantasyNotConfigured is returned when no league id is set.
var ErrFantasyNotConfigured = errors.New("fantasy league not configured")

// FantasyOptions identifies the league. SWID and ESPNS2 are only needed for private leagues.
type FantasyOptions struct {
	BaseURL  string
	LeagueID int
	Season   int
	Game     string
	SWID     string
	ESPNS2   string
	Timeout  time.Duration
	Logger   *zap.Logger
}

// FantasyClient reads ESPN fantasy league data.
type FantasyClient struct {
	opts FantasyOptions
	http *http.Client
	log  *zap.Logger
}

type Standing struct {
	TeamID    int     `json:"team_id"`
	Name      string  `json:"name"`
	Wins      int     `json:"wins"`
	Losses    int     `json:"losses"`
	Ties      int     `json:"ties"`
	PointsFor float64 `json:"points_for"`
	Seed      int     `json:"seed"`
}

type Player struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	Status       string  `json:"status"`
	PercentOwned float64 `json:"percent_owned"`
}

type teamsResponse struct {
	Teams []struct {
		ID          int    `json:"id"`
		Name        string `json:"name"`
		Location    string `json:"location"`
		Nickname    string `json:"nickname"`
		PlayoffSeed int    `json:"playoffSeed"`
		Record      struct {
			Overall struct {
				Wins      int     `json:"wins"`
				Losses    int     `json:"losses"`
				Ties      int     `json:"ties"`
				PointsFor float64 `json:"pointsFor"`
			} `json:"overall"`
		} `json:"record"`
	} `json:"teams"`
}

type playersResponse struct {
	Players []struct {
		ID     int    `json:"id"`
		Status string `json:"status"`
		Player struct {
			FullName  string `json:"fullName"`
			Ownership struct {
				PercentOwned float64 `json:"percentOwned"`
			} `json:"ownership"`
		} `json:"player"`
	} `json:"players"`
}

// NewFantasyClient builds a client; Configured reports whether it can be used.
func NewFantasyClient(opts FantasyOptions) *FantasyClient {
	if opts.Timeout <= 0 {
		opts.Timeout = 12 * time.Second
	}
	if opts.Game == "" {
		opts.Game = "ffl"
	}
	if opts.Season == 0 {
		opts.Season = time.Now().Year()
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &FantasyClient{opts: opts, http: &http.Client{Timeout: opts.Timeout}, log: logger.OrNop(opts.Logger)}
}

func (f *FantasyClient) Configured() bool {
	return f != nil && f.opts.LeagueID > 0
}

// Standings returns league teams ordered by wins, then points for.
func (f *FantasyClient) Standings(ctx context.Context) ([]Standing, error) {
	var resp teamsResponse
	if err := f.get(ctx, "mTeam", nil, &resp); err != nil {
		return nil, fmt.Errorf("fantasy standings: %w", err)
	}
	out := make([]Standing, 0, len(resp.Teams))
	for _, t := range resp.Teams {
		name := t.Name
		if name == "" {
			name = strings.TrimSpace(t.Location + " " + t.Nickname)
		}
		out = append(out, Standing{
			TeamID:    t.ID,
			Name:      name,
			Wins:      t.Record.Overall.Wins,
			Losses:    t.Record.Overall.Losses,
			Ties:      t.Record.Overall.Ties,
			PointsFor: t.Record.Overall.PointsFor,
			Seed:      t.PlayoffSeed,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		return out[i].PointsFor > out[j].PointsFor
	})
	return out, nil
}

// FreeAgents returns the most owned available players.
func (f *FantasyClient) FreeAgents(ctx context.Context, limit int) ([]Player, error) {
	if limit <= 0 {
		limit = 10
	}
	filter, err := json.Marshal(map[string]interface{}{
		"players": map[string]interface{}{
			"filterStatus":  map[string]interface{}{"value": []string{"FREEAGENT", "WAIVERS"}},
			"limit":         limit,
			"sortPercOwned": map[string]interface{}{"sortAsc": false, "sortPriority": 1},
		},
	})
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	header.Set("X-Fantasy-Filter", string(filter))

	var resp playersResponse
	if err := f.get(ctx, "kona_player_info", header, &resp); err != nil {
		return nil, fmt.Errorf("fantasy free agents: %w", err)
	}
	out := make([]Player, 0, len(resp.Players))
	for _, p := range resp.Players {
		out = append(out, Player{
			ID:           p.ID,
			Name:         p.Player.FullName,
			Status:       p.Status,
			PercentOwned: p.Player.Ownership.PercentOwned,
		})
	}
	return out, nil
}

func (f *FantasyClient) get(ctx context.Context, view string, header http.Header, dst interface{}) (err error) {
	if !f.Configured() {
		return ErrFantasyNotConfigured
	}
	start := time.Now()
	defer func() { metrics.ObserveUpstream("fantasy", start, err) }()

	url := fmt.Sprintf("%s/%s/seasons/%d/segments/0/leagues/%d?view=%s",
		f.opts.BaseURL, f.opts.Game, f.opts.Season, f.opts.LeagueID, view)
	if header == nil {
		header = http.Header{}
	}
	if f.opts.SWID != "" && f.opts.ESPNS2 != "" {
		header.Set("Cookie", fmt.Sprintf("SWID=%s; espn_s2=%s", f.opts.SWID, f.opts.ESPNS2))
	}
	if err := getJSON(ctx, f.http, url, header, dst); err != nil {
		f.log.Warn("fantasy request failed", zap.String("view", view), zap.Error(err))
		return err
	}
	return nil
}

// FormatFantasy renders standings and free agents for the LLM context block.
func FormatFantasy(standings []Standing, agents []Player) string {
	var lines []string
	if len(standings) > 0 {
		lines = append(lines, "Fantasy league standings:")
		for i, s := range standings {
			lines = append(lines, fmt.Sprintf("  %d. %s (%d-%d-%d, %.1f pts)", i+1, s.Name, s.Wins, s.Losses, s.Ties, s.PointsFor))
		}
	}
	if len(agents) > 0 {
		lines = append(lines, "Top available free agents:")
		for _, p := range agents {
			lines = append(lines, fmt.Sprintf("  %s (%.1f%% owned)", p.Name, p.PercentOwned))
		}
	}
	return strings.Join(lines, "\n")
}
