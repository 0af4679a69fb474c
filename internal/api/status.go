package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"betai/internal/espn"
	"betai/internal/odds"
	"betai/internal/service/ai"
)

const llmCheckHint = "The key has no access to the tried models. Set OPENAI_MODEL to a model your project can use."

func (h *Handler) sports(c *gin.Context) {
	if c.Query("available") == "" {
		c.JSON(http.StatusOK, odds.Sports)
		return
	}
	list, err := h.odds.ListSports(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) status(c *gin.Context) {
	cache := "disabled"
	if h.cache != nil {
		cache = "ok"
		if err := h.cache.Ping(c.Request.Context()); err != nil {
			h.log.Warn("cache ping failed", zap.Error(err))
			cache = "unavailable"
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":                 true,
		"llm_configured":     h.llm != nil && h.llm.Configured(),
		"odds_configured":    h.odds != nil && h.odds.Configured(),
		"fantasy_configured": h.fantasy != nil && h.fantasy.Configured(),
		"cache":              cache,
	})
}

// llmCheck always answers 200; the body says whether a model replied.
func (h *Handler) llmCheck(c *gin.Context) {
	if h.llm == nil || !h.llm.Configured() {
		c.JSON(http.StatusOK, gin.H{"ok": false, "error": "OPENAI_API_KEY not set"})
		return
	}
	reply, err := h.llm.Check(c.Request.Context())
	if err != nil {
		body := gin.H{"ok": false, "error": err.Error()}
		if errors.Is(err, ai.ErrNoModel) {
			body["hint"] = llmCheckHint
		}
		c.JSON(http.StatusOK, body)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "LLM is working", "model": reply.Model})
}

func (h *Handler) espnStatus(c *gin.Context) {
	sport := odds.NormalizeSport(c.Query("sport"))
	if sport == "" {
		sport = "basketball"
	}
	_, title, ok := espn.League(sport)
	if !ok || h.scores == nil {
		c.JSON(http.StatusOK, gin.H{"ok": false, "sport": sport, "error": espn.ErrUnsupportedSport.Error()})
		return
	}
	games, err := h.scores.Scoreboard(c.Request.Context(), sport)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"ok": false, "sport": sport, "error": err.Error()})
		return
	}
	live := 0
	for _, g := range games {
		if g.State == espn.StateIn {
			live++
		}
	}
	if games == nil {
		games = []espn.Game{}
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":     true,
		"sport":  sport,
		"league": title,
		"total":  len(games),
		"live":   live,
		"games":  games,
	})
}

type analyzeRequest struct {
	Sport string `json:"sport"`
	Team  string `json:"team"`
}

func (h *Handler) analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	sportKey := odds.ResolveSportKey(odds.NormalizeSport(req.Sport))
	events, err := h.odds.FetchOdds(c.Request.Context(), sportKey)
	if err != nil {
		status := http.StatusBadGateway
		if odds.IsKind(err, odds.KindConfig) {
			status = http.StatusServiceUnavailable
		}
		h.log.Warn("analyze fetch failed", zap.String("sport", sportKey), zap.Error(err))
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	analysis := odds.Analyze(events, strings.TrimSpace(req.Team))
	if analysis == nil {
		analysis = []odds.EventAnalysis{}
	}
	c.JSON(http.StatusOK, gin.H{
		"sport":     sportKey,
		"threshold": odds.ValueEdgeThreshold,
		"events":    analysis,
	})
}
