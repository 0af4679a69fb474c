package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Odds        OddsConfig                `json:"odds"`
	LLM         LLMConfig                 `json:"llm"`
	Providers   map[string]ProviderConfig `json:"providers"`
	Auth        AuthConfig                `json:"auth"`
	Storage     StorageConfig             `json:"storage"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
	Kafka       KafkaConfig               `json:"kafka"`
	ESPN        ESPNConfig                `json:"espn"`
}

// BasicConfig holds server settings and the chat worker pool size.
type BasicConfig struct {
	ServerAddress     string `json:"server_address"`
	Env               string `json:"env"`
	ServiceName       string `json:"service_name"`
	MinWorkers        int    `json:"min_workers"`
	MaxWorkers        int    `json:"max_workers"`
	QueueSize         int    `json:"queue_size"`
	WorkerIdleTimeout int    `json:"worker_idle_timeout_seconds"`
}

type OddsConfig struct {
	APIKey         string `json:"api_key"`
	BaseURL        string `json:"base_url"`
	Regions        string `json:"regions"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	CacheTTL       int    `json:"cache_ttl_seconds"`
}

// LLMConfig selects the provider and the ordered model lists tried on each call.
type LLMConfig struct {
	Provider        string       `json:"provider"`
	Model           string       `json:"model"`
	Fallbacks       []string     `json:"fallbacks"`
	VisionModel     string       `json:"vision_model"`
	VisionFallbacks []string     `json:"vision_fallbacks"`
	MaxTokens       int          `json:"max_tokens"`
	Temperature     float32      `json:"temperature"`
	TimeoutSeconds  int          `json:"timeout_seconds"`
	SystemPrompt    string       `json:"system_prompt_file"`
	WebSearch       bool         `json:"web_search"`
	KeyFile         string       `json:"key_file"`
	Search          SearchConfig `json:"search"`
}

// SearchConfig enables Google as the primary web search provider.
type SearchConfig struct {
	GoogleAPIKey   string `json:"google_api_key"`
	GoogleEngineID string `json:"google_search_engine_id"`
}

type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}

type AuthConfig struct {
	JWTSecret string `json:"jwt_secret"`
	TokenTTL  int    `json:"token_ttl_hours"`
}

// StorageConfig picks the persistence backend: "json" (default) or one of the Databases keys.
type StorageConfig struct {
	Driver  string `json:"driver"`
	DataDir string `json:"data_dir"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// Enabled reports whether a redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

type KafkaConfig struct {
	Brokers []string `json:"brokers"`
	Topic   string   `json:"topic"`
}

type ESPNConfig struct {
	BaseURL        string `json:"base_url"`
	FantasyBaseURL string `json:"fantasy_base_url"`
	LeagueID       int    `json:"fantasy_league_id"`
	Season         int    `json:"fantasy_season"`
	Game           string `json:"fantasy_game"`
	SWID           string `json:"swid"`
	ESPNS2         string `json:"espn_s2"`
}

const (
	DefaultOddsBaseURL    = "https://api.the-odds-api.com/v4"
	DefaultESPNBaseURL    = "https://site.api.espn.com/apis/site/v2/sports"
	DefaultFantasyBaseURL = "https://lm-api-reads.fantasy.espn.com/apis/v3/games"
	DefaultModel          = "gpt-3.5-turbo"
	DefaultVisionModel    = "gpt-4o-mini"
	DefaultKafkaTopic     = "betai_chat_exchanges"
)

var (
	defaultFallbacks       = []string{"gpt-4o-mini", "gpt-4o", "gpt-4-turbo", "gpt-4", "gpt-3.5-turbo"}
	defaultVisionFallbacks = []string{"gpt-4o-mini", "gpt-4o", "gpt-4-turbo"}
)

// Load reads configuration from the provided path, then applies environment overrides.
// A missing config file is only an error when the path was given explicitly.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	explicit := path != ""
	if path == "" {
		path = "config.json"
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	switch {
	case err == nil:
		defer file.Close()
		if err := json.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
		if cfg.Storage.DataDir != "" && !filepath.IsAbs(cfg.Storage.DataDir) {
			cfg.Storage.DataDir = filepath.Join(filepath.Dir(absPath), cfg.Storage.DataDir)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}

	cfg.applyEnv(os.LookupEnv)
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			}
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = splitList(v)
		}
	}

	str("ENV", &c.BasicConfig.Env)
	str("SERVICE_NAME", &c.BasicConfig.ServiceName)
	if v, ok := lookup("PORT"); ok && strings.TrimSpace(v) != "" {
		c.BasicConfig.ServerAddress = ":" + strings.TrimSpace(v)
	}
	num("CHAT_MAX_WORKERS", &c.BasicConfig.MaxWorkers)
	num("CHAT_QUEUE_SIZE", &c.BasicConfig.QueueSize)

	str("ODDS_API_KEY", &c.Odds.APIKey)
	str("ODDS_API_URL", &c.Odds.BaseURL)
	num("ODDS_CACHE_TTL_SECONDS", &c.Odds.CacheTTL)

	str("LLM_PROVIDER", &c.LLM.Provider)
	str("OPENAI_MODEL", &c.LLM.Model)
	list("OPENAI_MODEL_FALLBACKS", &c.LLM.Fallbacks)
	str("OPENAI_VISION_MODEL", &c.LLM.VisionModel)
	str("BETAI_SYSTEM_PROMPT_FILE", &c.LLM.SystemPrompt)
	str("BETAI_KEY_FILE", &c.LLM.KeyFile)
	str("GOOGLE_API_KEY", &c.LLM.Search.GoogleAPIKey)
	str("GOOGLE_SEARCH_ENGINE_ID", &c.LLM.Search.GoogleEngineID)
	if v, ok := lookup("BETAI_WEB_SEARCH"); ok {
		c.LLM.WebSearch = strings.EqualFold(strings.TrimSpace(v), "true") || strings.TrimSpace(v) == "1"
	}
	if v, ok := lookup("OPENAI_API_KEY"); ok && strings.TrimSpace(v) != "" {
		c.setProviderKey("openai", strings.TrimSpace(v))
	}
	if v, ok := lookup("ANTHROPIC_API_KEY"); ok && strings.TrimSpace(v) != "" {
		c.setProviderKey("claude", strings.TrimSpace(v))
	}
	if v, ok := lookup("GEMINI_API_KEY"); ok && strings.TrimSpace(v) != "" {
		c.setProviderKey("gemini", strings.TrimSpace(v))
	}

	str("JWT_SECRET", &c.Auth.JWTSecret)
	num("JWT_TTL_HOURS", &c.Auth.TokenTTL)

	str("BETAI_STORE", &c.Storage.Driver)
	str("BETAI_DATA_DIR", &c.Storage.DataDir)
	if v, ok := lookup("DATABASE_DSN"); ok && strings.TrimSpace(v) != "" && c.Storage.Driver != "" {
		if c.Databases == nil {
			c.Databases = make(map[string]DatabaseConfig)
		}
		db := c.Databases[c.Storage.Driver]
		db.DSN = strings.TrimSpace(v)
		c.Databases[c.Storage.Driver] = db
	}

	if v, ok := lookup("REDIS_ADDR"); ok && strings.TrimSpace(v) != "" {
		host, port, found := strings.Cut(strings.TrimSpace(v), ":")
		c.Redis.Host = host
		if found {
			if p, err := strconv.Atoi(port); err == nil {
				c.Redis.Port = p
			}
		}
	}
	str("REDIS_PASSWORD", &c.Redis.Password)
	num("REDIS_DB", &c.Redis.DB)

	list("KAFKA_BROKERS", &c.Kafka.Brokers)
	str("KAFKA_TOPIC", &c.Kafka.Topic)

	num("ESPN_FANTASY_LEAGUE_ID", &c.ESPN.LeagueID)
	num("ESPN_FANTASY_SEASON", &c.ESPN.Season)
	str("ESPN_FANTASY_GAME", &c.ESPN.Game)
	str("ESPN_SWID", &c.ESPN.SWID)
	str("ESPN_S2", &c.ESPN.ESPNS2)
}

func (c *Config) setProviderKey(provider, key string) {
	if c.Providers == nil {
		c.Providers = make(map[string]ProviderConfig)
	}
	p := c.Providers[provider]
	p.APIKey = key
	c.Providers[provider] = p
}

func (c *Config) applyDefaults() {
	if c.BasicConfig.ServerAddress == "" {
		c.BasicConfig.ServerAddress = ":5000"
	}
	if c.BasicConfig.Env == "" {
		c.BasicConfig.Env = "local"
	}
	if c.BasicConfig.ServiceName == "" {
		c.BasicConfig.ServiceName = "betai-advisor"
	}
	if c.BasicConfig.MaxWorkers <= 0 {
		c.BasicConfig.MaxWorkers = 16
	}
	if c.BasicConfig.MinWorkers <= 0 {
		c.BasicConfig.MinWorkers = 2
	}
	if c.BasicConfig.QueueSize <= 0 {
		c.BasicConfig.QueueSize = 128
	}
	if c.BasicConfig.WorkerIdleTimeout <= 0 {
		c.BasicConfig.WorkerIdleTimeout = 60
	}
	if c.Odds.BaseURL == "" {
		c.Odds.BaseURL = DefaultOddsBaseURL
	}
	if c.Odds.Regions == "" {
		c.Odds.Regions = "us"
	}
	if c.Odds.TimeoutSeconds <= 0 {
		c.Odds.TimeoutSeconds = 12
	}
	if c.Odds.CacheTTL <= 0 {
		c.Odds.CacheTTL = 60
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.Model == "" {
		if p, ok := c.Providers[c.LLM.Provider]; ok && p.Model != "" {
			c.LLM.Model = p.Model
		} else {
			c.LLM.Model = DefaultModel
		}
	}
	if len(c.LLM.Fallbacks) == 0 && c.LLM.Provider == "openai" {
		c.LLM.Fallbacks = append([]string(nil), defaultFallbacks...)
	}
	if c.LLM.VisionModel == "" && c.LLM.Provider == "openai" {
		c.LLM.VisionModel = DefaultVisionModel
	}
	if len(c.LLM.VisionFallbacks) == 0 && c.LLM.Provider == "openai" {
		c.LLM.VisionFallbacks = append([]string(nil), defaultVisionFallbacks...)
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 1024
	}
	if c.LLM.Temperature <= 0 {
		c.LLM.Temperature = 0.7
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = 60
	}
	if c.LLM.KeyFile == "" {
		c.LLM.KeyFile = "api_key.enc"
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = 24 * 7
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "json"
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Redis.Enabled() && c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = DefaultKafkaTopic
	}
	if c.ESPN.BaseURL == "" {
		c.ESPN.BaseURL = DefaultESPNBaseURL
	}
	if c.ESPN.FantasyBaseURL == "" {
		c.ESPN.FantasyBaseURL = DefaultFantasyBaseURL
	}
	if c.ESPN.Game == "" {
		c.ESPN.Game = "ffl"
	}
	if c.ESPN.Season == 0 {
		c.ESPN.Season = time.Now().Year()
	}
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("jwt secret must be configured (JWT_SECRET)")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return errors.New("jwt secret must be at least 16 characters")
	}
	switch c.Storage.Driver {
	case "json":
	case "sqlite", "sqlite3", "mysql", "postgres":
		if _, ok := c.Databases[c.Storage.Driver]; !ok {
			return fmt.Errorf("database config for %s not found", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("unsupported storage driver: %s", c.Storage.Driver)
	}
	return nil
}

// LLMAPIKey returns the API key configured for the active provider.
func (c *Config) LLMAPIKey() string {
	return c.Providers[c.LLM.Provider].APIKey
}

// OddsTimeout is the fixed per-request timeout for odds and scores calls.
func (c *Config) OddsTimeout() time.Duration {
	return time.Duration(c.Odds.TimeoutSeconds) * time.Second
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
