package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/tool/duckduckgo/v2"
	"github.com/cloudwego/eino-ext/components/tool/googlesearch"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"betai/internal/config"
	"betai/internal/logger"
	"betai/internal/odds"
)

// OddsSource is the part of the odds gateway the lookup tool needs.
type OddsSource interface {
	FetchOdds(ctx context.Context, sportKey string, markets ...string) ([]odds.Event, error)
}

// InitTools returns the tools handed to the agent. Web search is only added when enabled.
func InitTools(ctx context.Context, webSearch bool, search config.SearchConfig, source OddsSource, log *zap.Logger) []tool.BaseTool {
	log = logger.OrNop(log)
	var tools []tool.BaseTool
	if source != nil {
		tools = append(tools, NewOddsLookupTool(source))
	}
	if webSearch {
		if ws := NewWebSearchTool(ctx, search, log); ws != nil {
			tools = append(tools, ws)
		}
	}
	return tools
}

// NewWebSearchTool chains Google (when keyed) and DuckDuckGo behind one tool.
func NewWebSearchTool(ctx context.Context, search config.SearchConfig, log *zap.Logger) tool.InvokableTool {
	log = logger.OrNop(log)
	googleTool := initGoogleSearch(ctx, search, log)
	duckTool := initDDGSearch(ctx, log)
	if googleTool == nil && duckTool == nil {
		log.Warn("web search tool disabled: no search providers available")
		return nil
	}

	ws := &webSearchTool{
		google:     googleTool,
		duck:       duckTool,
		httpClient: &http.Client{Timeout: WebSearchHTTPTimeout},
		limiter:    newToolRateLimiter(WebSearchRateLimit, WebSearchRateWindow),
		log:        log,
	}

	info := &schema.ToolInfo{
		Name: "web_search",
		Desc: "Search the web for team news, injuries and line moves; " +
			"falls back to another provider if needed; " +
			"pass a URL to read that page.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {
				Desc:     "Natural language query or URL to search",
				Type:     schema.String,
				Required: true,
			},
		}),
	}

	return utils.NewTool(info, ws.run)
}

type webSearchTool struct {
	google     tool.InvokableTool
	duck       tool.InvokableTool
	httpClient *http.Client
	limiter    *toolRateLimiter
	log        *zap.Logger
}

type webSearchParams struct {
	Query string `json:"query"`
}

func (w *webSearchTool) run(ctx context.Context, params *webSearchParams) (string, error) {
	if params == nil {
		return "", errors.New("missing search parameters")
	}
	query := strings.TrimSpace(params.Query)
	if query == "" {
		return "", errors.New("query must not be empty")
	}
	if !w.limiter.Allow(toolUserKey(ctx)) {
		return "", errors.New("web search rate limit exceeded, please retry in a minute")
	}

	if looksLikeURL(query) {
		content, err := w.fetchURL(ctx, query)
		if err == nil {
			return content, nil
		}
		w.log.Warn("web url loader failed", zap.Error(err))
	}

	payloadBytes, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return "", fmt.Errorf("marshal search params: %w", err)
	}
	payload := string(payloadBytes)

	if w.google != nil {
		result, err := w.google.InvokableRun(ctx, payload)
		if err == nil {
			return result, nil
		}
		w.log.Warn("google search failed", zap.Error(err))
	}
	if w.duck != nil {
		result, err := w.duck.InvokableRun(ctx, payload)
		if err == nil {
			return result, nil
		}
		w.log.Warn("duckduckgo search failed", zap.Error(err))
	}
	return "", errors.New("no search provider succeeded")
}

func initDDGSearch(ctx context.Context, log *zap.Logger) tool.InvokableTool {
	duckTool, err := duckduckgo.NewTextSearchTool(ctx, &duckduckgo.Config{
		ToolName:   "web_search_ddg",
		ToolDesc:   "DuckDuckGo Search Tool (no token required)",
		MaxResults: 3,
		Region:     duckduckgo.RegionWT,
		Timeout:    10 * time.Second,
	})
	if err != nil {
		log.Warn("duckduckgo search disabled", zap.Error(err))
		return nil
	}
	return duckTool
}

func initGoogleSearch(ctx context.Context, search config.SearchConfig, log *zap.Logger) tool.InvokableTool {
	if search.GoogleAPIKey == "" || search.GoogleEngineID == "" {
		log.Info("google search tool disabled: missing GOOGLE_API_KEY or GOOGLE_SEARCH_ENGINE_ID")
		return nil
	}
	googleTool, err := googlesearch.NewTool(ctx, &googlesearch.Config{
		ToolName:       "web_search_google",
		ToolDesc:       "Google Search Tool",
		APIKey:         search.GoogleAPIKey,
		SearchEngineID: search.GoogleEngineID,
		Lang:           "en",
		Num:            5,
	})
	if err != nil {
		log.Warn("google search disabled", zap.Error(err))
		return nil
	}
	return googleTool
}

// NewOddsLookupTool lets the agent pull fresh moneyline matchups for a sport.
func NewOddsLookupTool(source OddsSource) tool.InvokableTool {
	info := &schema.ToolInfo{
		Name: "odds_lookup",
		Desc: "Fetch upcoming matchups with decimal moneyline odds for a sport (nba, nfl, soccer, mlb, nhl, ufc, ...).",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"sport": {
				Desc:     "Sport name or odds API sport key",
				Type:     schema.String,
				Required: true,
			},
		}),
	}
	l := &oddsLookupTool{source: source}
	return utils.NewTool(info, l.run)
}

type oddsLookupTool struct {
	source OddsSource
}

type oddsLookupParams struct {
	Sport string `json:"sport"`
}

func (l *oddsLookupTool) run(ctx context.Context, params *oddsLookupParams) (string, error) {
	if params == nil {
		return "", errors.New("missing sport")
	}
	key := odds.ResolveSportKey(params.Sport)
	events, err := l.source.FetchOdds(ctx, key)
	if err != nil {
		return "", fmt.Errorf("fetch odds: %w", err)
	}
	return odds.FormatMatchups(events), nil
}
