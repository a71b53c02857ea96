package config

import (
	"log"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"MarketBrief/internal/domain"
)

const (
	defaultTimezone = "Asia/Seoul"
	configPathEnv   = "MARKETBRIEF_CONFIG"

	databaseDriverEnv  = "DATABASE_DRIVER"
	databaseDSNEnv     = "DATABASE_DSN"
	timezoneEnv        = "MARKETBRIEF_TIMEZONE"
	finnhubAPIKeyEnv   = "FINNHUB_API_KEY"
	naverClientIDEnv   = "NAVER_CLIENT_ID"
	naverSecretEnv     = "NAVER_CLIENT_SECRET"
	aiProviderEnv      = "AI_PROVIDER"
	aiModelEnv         = "AI_MODEL"
	aiGroupDelayEnv    = "AI_GROUP_DELAY"
	geminiAPIKeyEnv    = "GEMINI_API_KEY"
	openAIAPIKeyEnv    = "OPENAI_API_KEY"
	anthropicAPIKeyEnv = "ANTHROPIC_API_KEY"
	telegramTokenEnv   = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv  = "TELEGRAM_CHAT_ID"
	httpAddrEnv        = "HTTP_ADDR"
	corsOriginsEnv     = "CORS_ORIGINS"
	logLevelEnv        = "LOG_LEVEL"
	logFormatEnv       = "LOG_FORMAT"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Sources       SourcesConfig      `yaml:"sources"`
	AI            AIConfig           `yaml:"ai"`
	Extractor     ExtractorConfig    `yaml:"extractor"`
	Notifications NotificationConfig `yaml:"notifications"`
	HTTP          HTTPConfig         `yaml:"http"`
	Market        MarketConfig       `yaml:"market"`
	Logging       LoggingConfig      `yaml:"logging"`
	Topics        []TopicConfig      `yaml:"topics"`
}

// DatabaseConfig selects the SQL driver and connection string.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SchedulerConfig defines when pipeline sessions and cleanup run.
type SchedulerConfig struct {
	Timezone      string            `yaml:"timezone"`
	Sessions      []SessionSchedule `yaml:"sessions"`
	CleanupCron   string            `yaml:"cleanupCron"`
	RetentionDays int               `yaml:"retentionDays"`
	location      *time.Location    `yaml:"-"`
}

// SessionSchedule binds a session name to a cron expression.
type SessionSchedule struct {
	Session string `yaml:"session"`
	Cron    string `yaml:"cron"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SourcesConfig groups settings for article providers.
type SourcesConfig struct {
	MaxPerKeyword int                 `yaml:"maxPerKeyword"`
	Aliases       map[string][]string `yaml:"aliases"`
	Finnhub       FinnhubConfig       `yaml:"finnhub"`
	Naver         NaverConfig         `yaml:"naver"`
	RSS           RSSConfig           `yaml:"rss"`
}

// FinnhubConfig configures the primary market news API.
type FinnhubConfig struct {
	APIKey   string        `yaml:"apiKey"`
	BaseURL  string        `yaml:"baseUrl"`
	Category string        `yaml:"category"`
	CacheTTL time.Duration `yaml:"cacheTtl"`
}

// NaverConfig configures the domestic news search API.
type NaverConfig struct {
	ClientID     string `yaml:"clientId"`
	ClientSecret string `yaml:"clientSecret"`
	Endpoint     string `yaml:"endpoint"`
}

// RSSConfig lists fallback syndication feeds.
type RSSConfig struct {
	Feeds []FeedConfig `yaml:"feeds"`
}

// FeedConfig is a single named feed.
type FeedConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// AIConfig selects the model provider and pacing.
type AIConfig struct {
	Provider     string        `yaml:"provider"`
	Model        string        `yaml:"model"`
	Temperature  float32       `yaml:"temperature"`
	MaxAttempts  int           `yaml:"maxAttempts"`
	RetryBackoff time.Duration `yaml:"retryBackoff"`
	GroupDelay   time.Duration `yaml:"groupDelay"`
	Timeout      time.Duration `yaml:"timeout"`
	Gemini       APIKeyConfig  `yaml:"gemini"`
	OpenAI       OpenAIConfig  `yaml:"openai"`
	Anthropic    APIKeyConfig  `yaml:"anthropic"`
}

// APIKeyConfig carries a provider key.
type APIKeyConfig struct {
	APIKey string `yaml:"apiKey"`
}

// OpenAIConfig supports OpenAI-compatible endpoints.
type OpenAIConfig struct {
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseUrl"`
}

// ExtractorConfig tunes article body scraping.
type ExtractorConfig struct {
	Timeout     time.Duration `yaml:"timeout"`
	Delay       time.Duration `yaml:"delay"`
	UserAgent   string        `yaml:"userAgent"`
	EnrichLimit int           `yaml:"enrichLimit"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
	BaseURL  string `yaml:"baseUrl"`
}

// Enabled reports whether briefings should be pushed to Telegram.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// HTTPConfig configures the read API.
type HTTPConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"corsOrigins"`
}

// MarketConfig configures index quotes.
type MarketConfig struct {
	BaseURL  string             `yaml:"baseUrl"`
	CacheTTL time.Duration      `yaml:"cacheTtl"`
	Indices  []domain.IndexSpec `yaml:"indices"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TopicConfig seeds a tracked topic on first start.
type TopicConfig struct {
	Label  string `yaml:"label"`
	Region string `yaml:"region"`
}

// Load reads .env files and YAML configuration (if present) and applies
// environment overrides.
func Load() Config {
	loadDotEnv()

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

func loadDotEnv() {
	for _, name := range []string{".env.local", ".env"} {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			log.Printf("config: cannot load %s: %v", name, err)
		}
	}
}

func (c *Config) applyEnvOverrides() {
	setString(&c.Database.Driver, databaseDriverEnv)
	setString(&c.Database.DSN, databaseDSNEnv)
	setString(&c.Scheduler.Timezone, timezoneEnv)

	setString(&c.Sources.Finnhub.APIKey, finnhubAPIKeyEnv)
	setString(&c.Sources.Naver.ClientID, naverClientIDEnv)
	setString(&c.Sources.Naver.ClientSecret, naverSecretEnv)

	setString(&c.AI.Provider, aiProviderEnv)
	setString(&c.AI.Model, aiModelEnv)
	setString(&c.AI.Gemini.APIKey, geminiAPIKeyEnv)
	setString(&c.AI.OpenAI.APIKey, openAIAPIKeyEnv)
	setString(&c.AI.Anthropic.APIKey, anthropicAPIKeyEnv)
	if v := os.Getenv(aiGroupDelayEnv); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.AI.GroupDelay = d
		} else {
			log.Printf("config: invalid %s=%q: %v", aiGroupDelayEnv, v, err)
		}
	}

	setString(&c.Notifications.Telegram.BotToken, telegramTokenEnv)
	setString(&c.Notifications.Telegram.ChatID, telegramChatIDEnv)

	setString(&c.HTTP.Addr, httpAddrEnv)
	if v := os.Getenv(corsOriginsEnv); v != "" {
		c.HTTP.CORSOrigins = splitList(v)
	}

	setString(&c.Logging.Level, logLevelEnv)
	setString(&c.Logging.Format, logFormatEnv)
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to UTC", tz)
		loc = time.UTC
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}
	if len(override.Scheduler.Sessions) > 0 {
		base.Scheduler.Sessions = override.Scheduler.Sessions
	}
	if override.Scheduler.CleanupCron != "" {
		base.Scheduler.CleanupCron = override.Scheduler.CleanupCron
	}
	if override.Scheduler.RetentionDays > 0 {
		base.Scheduler.RetentionDays = override.Scheduler.RetentionDays
	}

	if override.Sources.MaxPerKeyword > 0 {
		base.Sources.MaxPerKeyword = override.Sources.MaxPerKeyword
	}
	if len(override.Sources.Aliases) > 0 {
		base.Sources.Aliases = override.Sources.Aliases
	}
	if override.Sources.Finnhub.APIKey != "" {
		base.Sources.Finnhub.APIKey = override.Sources.Finnhub.APIKey
	}
	if override.Sources.Finnhub.BaseURL != "" {
		base.Sources.Finnhub.BaseURL = override.Sources.Finnhub.BaseURL
	}
	if override.Sources.Finnhub.Category != "" {
		base.Sources.Finnhub.Category = override.Sources.Finnhub.Category
	}
	if override.Sources.Finnhub.CacheTTL > 0 {
		base.Sources.Finnhub.CacheTTL = override.Sources.Finnhub.CacheTTL
	}
	if override.Sources.Naver.ClientID != "" {
		base.Sources.Naver.ClientID = override.Sources.Naver.ClientID
	}
	if override.Sources.Naver.ClientSecret != "" {
		base.Sources.Naver.ClientSecret = override.Sources.Naver.ClientSecret
	}
	if override.Sources.Naver.Endpoint != "" {
		base.Sources.Naver.Endpoint = override.Sources.Naver.Endpoint
	}
	if len(override.Sources.RSS.Feeds) > 0 {
		base.Sources.RSS.Feeds = override.Sources.RSS.Feeds
	}

	if override.AI.Provider != "" {
		base.AI.Provider = override.AI.Provider
	}
	if override.AI.Model != "" {
		base.AI.Model = override.AI.Model
	}
	if override.AI.Temperature > 0 {
		base.AI.Temperature = override.AI.Temperature
	}
	if override.AI.MaxAttempts > 0 {
		base.AI.MaxAttempts = override.AI.MaxAttempts
	}
	if override.AI.RetryBackoff > 0 {
		base.AI.RetryBackoff = override.AI.RetryBackoff
	}
	if override.AI.GroupDelay > 0 {
		base.AI.GroupDelay = override.AI.GroupDelay
	}
	if override.AI.Timeout > 0 {
		base.AI.Timeout = override.AI.Timeout
	}
	if override.AI.Gemini.APIKey != "" {
		base.AI.Gemini.APIKey = override.AI.Gemini.APIKey
	}
	if override.AI.OpenAI.APIKey != "" {
		base.AI.OpenAI.APIKey = override.AI.OpenAI.APIKey
	}
	if override.AI.OpenAI.BaseURL != "" {
		base.AI.OpenAI.BaseURL = override.AI.OpenAI.BaseURL
	}
	if override.AI.Anthropic.APIKey != "" {
		base.AI.Anthropic.APIKey = override.AI.Anthropic.APIKey
	}

	if override.Extractor.Timeout > 0 {
		base.Extractor.Timeout = override.Extractor.Timeout
	}
	if override.Extractor.Delay > 0 {
		base.Extractor.Delay = override.Extractor.Delay
	}
	if override.Extractor.UserAgent != "" {
		base.Extractor.UserAgent = override.Extractor.UserAgent
	}
	if override.Extractor.EnrichLimit > 0 {
		base.Extractor.EnrichLimit = override.Extractor.EnrichLimit
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}
	if override.Notifications.Telegram.BaseURL != "" {
		base.Notifications.Telegram.BaseURL = override.Notifications.Telegram.BaseURL
	}

	if override.HTTP.Addr != "" {
		base.HTTP.Addr = override.HTTP.Addr
	}
	if len(override.HTTP.CORSOrigins) > 0 {
		base.HTTP.CORSOrigins = override.HTTP.CORSOrigins
	}

	if override.Market.BaseURL != "" {
		base.Market.BaseURL = override.Market.BaseURL
	}
	if override.Market.CacheTTL > 0 {
		base.Market.CacheTTL = override.Market.CacheTTL
	}
	if len(override.Market.Indices) > 0 {
		base.Market.Indices = override.Market.Indices
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if len(override.Topics) > 0 {
		base.Topics = override.Topics
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Database: DatabaseConfig{Driver: "sqlite", DSN: "file:market_news.db"},
		Scheduler: SchedulerConfig{
			Timezone: defaultTimezone,
			Sessions: []SessionSchedule{
				{Session: string(domain.SessionMorning), Cron: "0 8 * * *"},
				{Session: string(domain.SessionMidday), Cron: "30 12 * * *"},
				{Session: string(domain.SessionEvening), Cron: "0 18 * * *"},
			},
			CleanupCron:   "0 3 * * *",
			RetentionDays: 30,
		},
		Sources: SourcesConfig{
			MaxPerKeyword: 10,
			Aliases: map[string][]string{
				"us stock market":         {"s&p", "nasdaq", "dow jones", "wall street", "stock market", "equities"},
				"federal reserve":         {"fed", "fomc", "interest rate", "powell", "monetary policy"},
				"semiconductor":           {"chip", "nvidia", "tsmc", "intel", "hbm", "semiconductor"},
				"artificial intelligence": {"ai ", "openai", "chatgpt", "llm", "generative ai", "machine learning"},
			},
			Finnhub: FinnhubConfig{Category: "general", CacheTTL: 10 * time.Minute},
			Naver:   NaverConfig{Endpoint: "https://openapi.naver.com/v1/search/news.json"},
			RSS: RSSConfig{Feeds: []FeedConfig{
				{Name: "CNBC", URL: "https://search.cnbc.com/rs/search/combinedcms/view.xml?partnerId=wrss01&id=20910258"},
				{Name: "CNBC Tech", URL: "https://search.cnbc.com/rs/search/combinedcms/view.xml?partnerId=wrss01&id=10001147"},
			}},
		},
		AI: AIConfig{
			Provider:     "gemini",
			Model:        "gemini-2.5-flash",
			Temperature:  0.3,
			MaxAttempts:  3,
			RetryBackoff: 2 * time.Second,
			GroupDelay:   6 * time.Second,
			Timeout:      90 * time.Second,
		},
		Extractor: ExtractorConfig{
			Timeout:     10 * time.Second,
			Delay:       500 * time.Millisecond,
			UserAgent:   "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
			EnrichLimit: 100,
		},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{BaseURL: "https://api.telegram.org"},
		},
		HTTP: HTTPConfig{Addr: ":8000", CORSOrigins: []string{"http://localhost:5173"}},
		Market: MarketConfig{
			BaseURL:  "https://query1.finance.yahoo.com",
			CacheTTL: 5 * time.Minute,
			Indices: []domain.IndexSpec{
				{Symbol: "^IXIC", Name: "Nasdaq"},
				{Symbol: "^GSPC", Name: "S&P 500"},
				{Symbol: "^KS11", Name: "KOSPI"},
				{Symbol: "^KQ11", Name: "KOSDAQ"},
				{Symbol: "USDKRW=X", Name: "USD/KRW"},
			},
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Topics: []TopicConfig{
			{Label: "US Stock Market", Region: "US"},
			{Label: "Federal Reserve", Region: "US"},
			{Label: "Semiconductor", Region: "US"},
			{Label: "Artificial Intelligence", Region: "US"},
			{Label: "한국 주식시장", Region: "KR"},
			{Label: "반도체", Region: "KR"},
			{Label: "인공지능", Region: "KR"},
		},
	}
}
