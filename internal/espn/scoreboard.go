package espn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"betai/internal/logger"
	"betai/internal/metrics"
)

// ErrUnsupportedSport is returned for categories ESPN has no scoreboard for.
var ErrUnsupportedSport = errors.New("no ESPN scoreboard for sport")

type league struct {
	Sport  string
	League string
	Title  string
}

var leagues = map[string]league{
	"basketball":        {"basketball", "nba", "NBA"},
	"american_football": {"football", "nfl", "NFL"},
	"baseball":          {"baseball", "mlb", "MLB"},
	"hockey":            {"hockey", "nhl", "NHL"},
	"soccer":            {"soccer", "uefa.champions", "Champions League"},
	"mma":               {"mma", "ufc", "UFC"},
	"other":             {"basketball", "nba", "NBA"},
}

// Client reads ESPN's public scoreboard API.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// NewClient creates a scoreboard client. timeout <= 0 uses 12s.
func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     logger.OrNop(log),
	}
}

// League returns the ESPN sport/league path for a frontend category.
func League(sport string) (path string, title string, ok bool) {
	l, ok := leagues[sport]
	if !ok {
		return "", "", false
	}
	return l.Sport + "/" + l.League, l.Title, true
}

// Scoreboard returns today's games for sport.
func (c *Client) Scoreboard(ctx context.Context, sport string) (games []Game, err error) {
	path, _, ok := League(sport)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSport, sport)
	}

	start := time.Now()
	defer func() { metrics.ObserveUpstream("espn", start, err) }()

	var resp scoreboardResponse
	if err := getJSON(ctx, c.http, c.baseURL+"/"+path+"/scoreboard", nil, &resp); err != nil {
		c.log.Warn("espn scoreboard failed", zap.String("sport", sport), zap.Error(err))
		return nil, fmt.Errorf("espn scoreboard %s: %w", path, err)
	}

	for _, e := range resp.Events {
		g := Game{ID: e.ID, Name: e.Name, StartTime: e.Date, State: e.Status.Type.State, Detail: e.Status.Type.ShortDetail}
		if len(e.Competitions) > 0 {
			for _, comp := range e.Competitions[0].Competitors {
				switch comp.HomeAway {
				case "home":
					g.HomeTeam, g.HomeScore = comp.Team.DisplayName, comp.Score
				case "away":
					g.AwayTeam, g.AwayScore = comp.Team.DisplayName, comp.Score
				}
			}
		}
		games = append(games, g)
	}
	return games, nil
}

// LiveScores filters the scoreboard to games in progress.
func (c *Client) LiveScores(ctx context.Context, sport string) ([]Game, error) {
	games, err := c.Scoreboard(ctx, sport)
	if err != nil {
		return nil, err
	}
	live := games[:0]
	for _, g := range games {
		if g.State == StateIn {
			live = append(live, g)
		}
	}
	return live, nil
}

// FormatScores renders games for the LLM context block.
func FormatScores(title string, games []Game) string {
	if len(games) == 0 {
		return ""
	}
	lines := []string{"Live scores (ESPN):"}
	for _, g := range games {
		line := fmt.Sprintf("  %s: %s %s - %s %s", title, g.AwayTeam, g.AwayScore, g.HomeTeam, g.HomeScore)
		if g.Detail != "" {
			line += " (" + g.Detail + ")"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func getJSON(ctx context.Context, client *http.Client, url string, header http.Header, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
