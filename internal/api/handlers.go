package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"betai/internal/auth"
	"betai/internal/espn"
	"betai/internal/logger"
	"betai/internal/metrics"
	"betai/internal/models"
	"betai/internal/odds"
	"betai/internal/service/advisor"
	"betai/internal/service/ai"
	"betai/internal/service/assistant"
	"betai/internal/worker"
)

const emptyMessageReply = "Send a message to get advice."

// ChatAdvisor answers chat messages.
type ChatAdvisor interface {
	Chat(ctx context.Context, req advisor.Request) (advisor.Reply, error)
}

// OddsService is the odds gateway used by the status and analysis endpoints.
type OddsService interface {
	Configured() bool
	FetchOdds(ctx context.Context, sportKey string, markets ...string) ([]odds.Event, error)
	ListSports(ctx context.Context) ([]odds.Sport, error)
}

// LLMChecker probes the configured model list.
type LLMChecker interface {
	Configured() bool
	Check(ctx context.Context) (ai.Reply, error)
}

// Scoreboard reads today's games for a sport.
type Scoreboard interface {
	Scoreboard(ctx context.Context, sport string) ([]espn.Game, error)
}

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services behind the HTTP routes. Scores, Fantasy and Cache may be nil.
type Deps struct {
	Assistant *assistant.Service
	Auth      *auth.Service
	Advisor   ChatAdvisor
	Odds      OddsService
	LLM       LLMChecker
	Scores    Scoreboard
	Fantasy   advisor.FantasySource
	Cache     Pinger
	Logger    *zap.Logger
}

// Handler wires HTTP routes to the advisor and account services.
type Handler struct {
	assistant *assistant.Service
	auth      *auth.Service
	advisor   ChatAdvisor
	odds      OddsService
	llm       LLMChecker
	scores    Scoreboard
	fantasy   advisor.FantasySource
	cache     Pinger
	log       *zap.Logger
}

// NewHandler constructs a Handler instance.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		assistant: deps.Assistant,
		auth:      deps.Auth,
		advisor:   deps.Advisor,
		odds:      deps.Odds,
		llm:       deps.LLM,
		scores:    deps.Scores,
		fantasy:   deps.Fantasy,
		cache:     deps.Cache,
		log:       logger.OrNop(deps.Logger),
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/", h.index)
	router.GET("/sports", h.sports)
	router.GET("/status", h.status)
	router.GET("/llm-check", h.llmCheck)
	router.GET("/espn-status", h.espnStatus)
	router.POST("/analyze", h.analyze)
	router.GET("/metrics", metrics.Handler())

	router.POST("/chat", h.auth.OptionalMiddleware(), h.chat)

	router.POST("/auth/signup", h.signup)
	router.POST("/auth/login", h.login)

	authMW := h.auth.Middleware()
	router.GET("/auth/me", authMW, h.me)
	router.GET("/preferences", authMW, h.preferences)

	chats := router.Group("/chats", authMW)
	chats.GET("", h.listChats)
	chats.POST("", h.saveChat)
	chats.DELETE("/:id", h.deleteChat)
}

func (h *Handler) index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"name": "BetAI Advisor API", "status": "running"})
}

type chatRequest struct {
	Message  string               `json:"message"`
	Sport    string               `json:"sport"`
	Messages []models.ChatMessage `json:"messages"`
	Images   []string             `json:"images"`
}

func (h *Handler) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	userID, _ := auth.UserIDFromContext(c)
	reply, err := h.advisor.Chat(c.Request.Context(), advisor.Request{
		UserID:  userID,
		Message: req.Message,
		Sport:   req.Sport,
		History: req.Messages,
		Images:  req.Images,
	})
	switch {
	case errors.Is(err, advisor.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"reply": emptyMessageReply})
		return
	case errors.Is(err, ai.ErrInvalidImage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, worker.ErrQueueFull):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "too many chat requests, try again shortly"})
		return
	case err != nil:
		h.log.Error("chat failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "chat failed"})
		return
	}
	c.JSON(http.StatusOK, reply)
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) signup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.assistant.Signup(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, assistant.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}
	h.respondWithToken(c, http.StatusCreated, user)
}

func (h *Handler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.assistant.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, assistant.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		} else {
			h.log.Error("login failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		}
		return
	}
	h.respondWithToken(c, http.StatusOK, user)
}

func (h *Handler) respondWithToken(c *gin.Context, status int, user *models.User) {
	token, err := h.auth.IssueToken(user.ID)
	if err != nil {
		h.log.Error("issue token failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	c.JSON(status, gin.H{
		"token":      token,
		"expires_in": int(h.auth.TokenTTL().Seconds()),
		"user":       user.Public(),
	})
}

func (h *Handler) me(c *gin.Context) {
	userID, _ := auth.UserIDFromContext(c)
	user, err := h.assistant.User(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": auth.ErrUnauthenticated.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user.Public()})
}

func (h *Handler) preferences(c *gin.Context) {
	userID, _ := auth.UserIDFromContext(c)
	prefs, err := h.assistant.Preferences(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("load preferences failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load preferences"})
		return
	}
	if prefs.FavoriteTeams == nil {
		prefs.FavoriteTeams = []string{}
	}
	if prefs.PreferredBetTypes == nil {
		prefs.PreferredBetTypes = []string{}
	}
	if prefs.SportsInterests == nil {
		prefs.SportsInterests = []string{}
	}
	c.JSON(http.StatusOK, prefs)
}

func (h *Handler) listChats(c *gin.Context) {
	userID, _ := auth.UserIDFromContext(c)
	chats, err := h.assistant.ListChats(c.Request.Context(), userID, c.Query("sport"))
	if err != nil {
		h.log.Error("list chats failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chats"})
		return
	}
	c.JSON(http.StatusOK, chats)
}

type saveChatRequest struct {
	ID        string               `json:"id"`
	Sport     string               `json:"sport"`
	Title     string               `json:"title"`
	Messages  []models.ChatMessage `json:"messages"`
	CreatedAt string               `json:"createdAt"`
}

func (h *Handler) saveChat(c *gin.Context) {
	var req saveChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	userID, _ := auth.UserIDFromContext(c)
	ctx := c.Request.Context()
	saved, err := h.assistant.SaveChat(ctx, userID, req.Sport, models.Chat{
		ID:        req.ID,
		Title:     req.Title,
		Messages:  req.Messages,
		CreatedAt: req.CreatedAt,
	})
	if err != nil {
		if errors.Is(err, assistant.ErrInvalidChat) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else {
			h.log.Error("save chat failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save chat"})
		}
		return
	}
	chats, err := h.assistant.ListChats(ctx, userID, "")
	if err != nil {
		h.log.Error("list chats failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "chat": saved, "chats": chats})
}

func (h *Handler) deleteChat(c *gin.Context) {
	userID, _ := auth.UserIDFromContext(c)
	sport := strings.TrimSpace(c.Query("sport"))
	if sport == "" {
		sport = assistant.DefaultChatSport
	}
	err := h.assistant.DeleteChat(c.Request.Context(), userID, sport, c.Param("id"))
	if err != nil {
		if errors.Is(err, assistant.ErrChatNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
