package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"betai/internal/api"
	"betai/internal/auth"
	"betai/internal/config"
	"betai/internal/espn"
	"betai/internal/events"
	"betai/internal/logger"
	"betai/internal/odds"
	"betai/internal/redis"
	"betai/internal/secrets"
	"betai/internal/service/advisor"
	"betai/internal/service/ai"
	"betai/internal/service/assistant"
	"betai/internal/storage"
	"betai/internal/worker"
)

func main() {
	cfg, err := config.Load(os.Getenv("BETAI_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	zlog, err := logger.New(cfg.BasicConfig.ServiceName, cfg.BasicConfig.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg)
	if err != nil {
		zlog.Fatal("open store", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer store.Close()

	var (
		cache  odds.Cache
		pinger api.Pinger
	)
	if cfg.Redis.Enabled() {
		rdb, err := redis.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			zlog.Warn("redis unavailable, odds cache disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			cache = odds.NewRedisCache(rdb)
			pinger = rdb
		}
	}

	oddsClient := odds.NewClient(odds.Options{
		BaseURL:  cfg.Odds.BaseURL,
		APIKey:   cfg.Odds.APIKey,
		Regions:  cfg.Odds.Regions,
		Timeout:  cfg.OddsTimeout(),
		CacheTTL: time.Duration(cfg.Odds.CacheTTL) * time.Second,
		Cache:    cache,
		Logger:   zlog.Named("odds"),
	})
	scores := espn.NewClient(cfg.ESPN.BaseURL, cfg.OddsTimeout(), zlog.Named("espn"))
	fantasy := espn.NewFantasyClient(espn.FantasyOptions{
		BaseURL:  cfg.ESPN.FantasyBaseURL,
		LeagueID: cfg.ESPN.LeagueID,
		Season:   cfg.ESPN.Season,
		Game:     cfg.ESPN.Game,
		SWID:     cfg.ESPN.SWID,
		ESPNS2:   cfg.ESPN.ESPNS2,
		Timeout:  cfg.OddsTimeout(),
		Logger:   zlog.Named("fantasy"),
	})

	llm, err := newLLMClient(ctx, cfg, oddsClient, zlog)
	if err != nil {
		zlog.Fatal("init llm", zap.Error(err))
	}
	prompt, err := ai.LoadSystemPrompt(ctx, cfg.LLM.SystemPrompt)
	if err != nil {
		zlog.Fatal("load system prompt", zap.String("path", cfg.LLM.SystemPrompt), zap.Error(err))
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, zlog.Named("events"))
	}
	defer publisher.Close()

	assistantService := assistant.NewService(store)
	authService := auth.NewService(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTL)*time.Hour, store)
	chatAdvisor := advisor.New(advisor.Options{
		Odds:         oddsClient,
		Scores:       scores,
		Fantasy:      fantasy,
		LLM:          llm,
		Preferences:  assistantService,
		Publisher:    publisher,
		SystemPrompt: prompt,
		Logger:       zlog.Named("advisor"),
	})
	dispatcher := worker.NewDispatcher(worker.Config{
		MinWorkers:  cfg.BasicConfig.MinWorkers,
		MaxWorkers:  cfg.BasicConfig.MaxWorkers,
		QueueSize:   cfg.BasicConfig.QueueSize,
		IdleTimeout: time.Duration(cfg.BasicConfig.WorkerIdleTimeout) * time.Second,
		Logger:      zlog.Named("worker"),
	})
	defer dispatcher.Close()

	handlers := api.NewHandler(api.Deps{
		Assistant: assistantService,
		Auth:      authService,
		Advisor:   worker.NewQueuedAdvisor(chatAdvisor, dispatcher),
		Odds:      oddsClient,
		LLM:       llm,
		Scores:    scores,
		Fantasy:   fantasy,
		Cache:     pinger,
		Logger:    zlog.Named("api"),
	})

	if cfg.BasicConfig.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(logger.GinMiddleware(zlog), gin.Recovery())
	handlers.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.BasicConfig.ServerAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zlog.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.Bool("llm_configured", llm.Configured()),
			zap.Bool("odds_configured", oddsClient.Configured()),
			zap.String("store", cfg.Storage.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
	zlog.Info("server stopped")
}

// newLLMClient resolves the API key from the environment or the encrypted key file.
// A missing key yields an unconfigured client so chat falls back to rule-based replies.
func newLLMClient(ctx context.Context, cfg *config.Config, source ai.OddsSource, zlog *zap.Logger) (*ai.Client, error) {
	key := cfg.LLMAPIKey()
	if key == "" {
		if passphrase := os.Getenv("BETAI_PASSPHRASE"); passphrase != "" {
			decrypted, err := secrets.DecryptFile(cfg.LLM.KeyFile, passphrase)
			if err != nil {
				zlog.Warn("decrypt llm key file failed", zap.String("path", cfg.LLM.KeyFile), zap.Error(err))
			} else {
				key = decrypted
			}
		}
	}

	factory, err := ai.NewModelFactory(cfg.LLM.Provider, cfg.Providers[cfg.LLM.Provider], key, cfg.LLM.MaxTokens, cfg.LLM.Temperature)
	if err != nil {
		return nil, err
	}
	var vision []string
	if cfg.LLM.VisionModel != "" || len(cfg.LLM.VisionFallbacks) > 0 {
		vision = ai.ModelOrder(cfg.LLM.VisionModel, cfg.LLM.VisionFallbacks)
	}
	return ai.NewClient(factory, ai.Options{
		Models:       ai.ModelOrder(cfg.LLM.Model, cfg.LLM.Fallbacks),
		VisionModels: vision,
		Timeout:      time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		Tools:        ai.InitTools(ctx, cfg.LLM.WebSearch, cfg.LLM.Search, source, zlog.Named("tools")),
		Logger:       zlog.Named("llm"),
	}), nil
}
