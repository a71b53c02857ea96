package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"MarketBrief/internal/api"
	"MarketBrief/internal/config"
	"MarketBrief/internal/domain"
	"MarketBrief/internal/infrastructure/llm"
	"MarketBrief/internal/infrastructure/market"
	"MarketBrief/internal/infrastructure/parser"
	"MarketBrief/internal/infrastructure/scheduler"
	"MarketBrief/internal/infrastructure/storage"
	"MarketBrief/internal/infrastructure/telegram"
	"MarketBrief/internal/logging"
	"MarketBrief/internal/ports"
	"MarketBrief/internal/source"
	"MarketBrief/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	logger *slog.Logger
	store  *storage.SQLStore

	Collector    *usecase.Collector
	Consolidator *usecase.Consolidator
	Briefing     *usecase.BriefingGenerator
	Pipeline     *usecase.Pipeline
	Cleaner      *usecase.Cleaner
	Topics       *usecase.TopicService
	Market       *usecase.MarketService
	Scheduler    *usecase.Scheduler
}

// New opens the store and builds every component from cfg.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	loc := cfg.Scheduler.Location()

	store, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	model, err := buildModel(ctx, cfg.AI)
	if errors.Is(err, domain.ErrNotConfigured) {
		baseLogger.WarnContext(ctx, "ai model not configured, consolidation is skipped and briefings use statistics", "provider", cfg.AI.Provider)
	} else if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("build model: %w", err)
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.Enabled() {
		tg := cfg.Notifications.Telegram
		notifier = telegram.NewNotifier(tg.BaseURL, tg.BotToken, tg.ChatID)
	}

	collector := usecase.NewCollector(usecase.CollectorDeps{
		Store:        store,
		Source:       parser.NewStrategySource(buildRegistry(cfg.Sources, baseLogger), baseLogger.With("component", "source")),
		Extractor:    parser.NewBodyExtractor(nil, cfg.Extractor.Timeout, cfg.Extractor.UserAgent, baseLogger.With("component", "extractor")),
		Logger:       baseLogger.With("component", "collector"),
		EnrichLimit:  cfg.Extractor.EnrichLimit,
		ExtractDelay: cfg.Extractor.Delay,
	})
	consolidator := usecase.NewConsolidator(usecase.ConsolidatorDeps{
		Store:        store,
		Model:        model,
		Logger:       baseLogger.With("component", "consolidator"),
		Temperature:  cfg.AI.Temperature,
		MaxAttempts:  cfg.AI.MaxAttempts,
		RetryBackoff: cfg.AI.RetryBackoff,
		GroupDelay:   cfg.AI.GroupDelay,
	})
	briefing := usecase.NewBriefingGenerator(usecase.BriefingDeps{
		Store:        store,
		Model:        model,
		Notifier:     notifier,
		Logger:       baseLogger.With("component", "briefing"),
		Location:     loc,
		Temperature:  cfg.AI.Temperature,
		MaxAttempts:  cfg.AI.MaxAttempts,
		RetryBackoff: cfg.AI.RetryBackoff,
	})
	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Collector:    collector,
		Consolidator: consolidator,
		Briefing:     briefing,
		Logger:       baseLogger.With("component", "pipeline"),
		Location:     loc,
	})
	cleaner := usecase.NewCleaner(store, baseLogger.With("component", "cleanup"), nil)

	quotes := market.NewClient(cfg.Market.BaseURL, cfg.Extractor.UserAgent, nil)
	var cache *gocache.Cache
	if cfg.Market.CacheTTL > 0 {
		cache = gocache.New(cfg.Market.CacheTTL, 2*cfg.Market.CacheTTL)
	}

	return &Application{
		cfg:          cfg,
		logger:       baseLogger,
		store:        store,
		Collector:    collector,
		Consolidator: consolidator,
		Briefing:     briefing,
		Pipeline:     pipeline,
		Cleaner:      cleaner,
		Topics: usecase.NewTopicService(usecase.TopicDeps{
			Store:        store,
			Collector:    collector,
			Consolidator: consolidator,
			Logger:       baseLogger.With("component", "topics"),
			Location:     loc,
		}),
		Market: usecase.NewMarketService(quotes, cfg.Market.Indices, cache, baseLogger.With("component", "market")),
		Scheduler: usecase.NewScheduler(usecase.SchedulerDeps{
			Driver:        scheduler.NewCronScheduler(loc, baseLogger.With("component", "cron")),
			Pipeline:      pipeline,
			Cleaner:       cleaner,
			Sessions:      sessionJobs(cfg.Scheduler.Sessions, baseLogger),
			CleanupSpec:   cfg.Scheduler.CleanupCron,
			RetentionDays: cfg.Scheduler.RetentionDays,
			Logger:        baseLogger.With("component", "scheduler"),
		}),
	}, nil
}

// Store exposes the read side for commands that print stored data.
func (a *Application) Store() ports.Store {
	return a.store
}

// Location is the timezone briefings and batch ids are keyed in.
func (a *Application) Location() *time.Location {
	return a.cfg.Scheduler.Location()
}

// Close waits for background backfills and releases the database.
func (a *Application) Close() error {
	a.Topics.Wait()
	return a.store.Close()
}

// SeedTopics stores the configured default topics on an empty database.
func (a *Application) SeedTopics(ctx context.Context) error {
	defaults := make([]domain.TrackedTopic, 0, len(a.cfg.Topics))
	for _, t := range a.cfg.Topics {
		region, err := domain.ParseRegion(t.Region)
		if err != nil {
			a.logger.WarnContext(ctx, "skipping default topic", "topic", t.Label, "error", err)
			continue
		}
		defaults = append(defaults, domain.TrackedTopic{Label: t.Label, Region: region})
	}
	_, err := a.Topics.Seed(ctx, defaults)
	return err
}

// Serve seeds topics, starts the scheduler and blocks on the HTTP API
// until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	if err := a.SeedTopics(ctx); err != nil {
		return err
	}
	if err := a.Scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := a.Scheduler.Stop(stopCtx); err != nil {
			a.logger.WarnContext(ctx, "scheduler stop", "error", err)
		}
	}()

	handler := api.NewHandler(api.Deps{
		Store:    a.store,
		Topics:   a.Topics,
		Refresh:  a.Pipeline,
		Market:   a.Market,
		Logger:   a.logger.With("component", "api"),
		Location: a.Location(),
	})
	router := api.NewRouter(handler, a.cfg.HTTP.CORSOrigins)
	return api.NewServer(a.cfg.HTTP.Addr, router, a.logger.With("component", "http")).Run(ctx)
}

func buildModel(ctx context.Context, cfg config.AIConfig) (ports.Model, error) {
	model, err := llm.NewModel(ctx, llm.Options{
		Provider:        cfg.Provider,
		Model:           cfg.Model,
		GeminiAPIKey:    cfg.Gemini.APIKey,
		OpenAIAPIKey:    cfg.OpenAI.APIKey,
		OpenAIBaseURL:   cfg.OpenAI.BaseURL,
		AnthropicAPIKey: cfg.Anthropic.APIKey,
		HTTPClient:      &http.Client{Timeout: cfg.Timeout},
	})
	if err != nil {
		return nil, err
	}
	return model, nil
}

func buildRegistry(cfg config.SourcesConfig, logger *slog.Logger) *source.Registry {
	matcher := parser.NewKeywordMatcher(cfg.Aliases)

	finnhub := parser.NewFinnhubAdapter(parser.FinnhubOptions{
		APIKey:   cfg.Finnhub.APIKey,
		BaseURL:  cfg.Finnhub.BaseURL,
		Category: cfg.Finnhub.Category,
		CacheTTL: cfg.Finnhub.CacheTTL,
		Limit:    cfg.MaxPerKeyword,
	}, matcher, nil, logger.With("component", "source.finnhub"))

	feeds := make([]parser.Feed, 0, len(cfg.RSS.Feeds))
	for _, f := range cfg.RSS.Feeds {
		feeds = append(feeds, parser.Feed{Name: f.Name, URL: f.URL})
	}
	rss := parser.NewRSSAdapter(feeds, cfg.MaxPerKeyword, matcher, nil, logger.With("component", "source.rss"))

	naver := parser.NewNaverAdapter(parser.NaverOptions{
		ClientID:     cfg.Naver.ClientID,
		ClientSecret: cfg.Naver.ClientSecret,
		Endpoint:     cfg.Naver.Endpoint,
		Display:      cfg.MaxPerKeyword,
	}, nil, logger.With("component", "source.naver"))

	registry := source.NewRegistry()
	registry.Register(domain.RegionUS, source.NewChain(logger.With("region", domain.RegionUS), finnhub, rss))
	registry.Register(domain.RegionKR, source.NewChain(logger.With("region", domain.RegionKR), naver))
	return registry
}

func sessionJobs(schedules []config.SessionSchedule, logger *slog.Logger) []usecase.SessionJob {
	jobs := make([]usecase.SessionJob, 0, len(schedules))
	for _, s := range schedules {
		session, err := domain.ParseSession(s.Session)
		if err != nil {
			logger.Warn("skipping session schedule", "session", s.Session, "error", err)
			continue
		}
		jobs = append(jobs, usecase.SessionJob{Session: session, Spec: s.Cron})
	}
	return jobs
}
