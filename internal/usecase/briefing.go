package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"MarketBrief/internal/domain"
	"MarketBrief/internal/logging"
	"MarketBrief/internal/ports"
	"MarketBrief/internal/render"
)

const mustReadCount = 3

// BriefingDeps wires the briefing generator.
type BriefingDeps struct {
	Store        ports.Store
	Model        ports.Model
	Notifier     ports.Notifier
	Logger       *slog.Logger
	Location     *time.Location
	Temperature  float32
	MaxAttempts  int
	RetryBackoff time.Duration
	Now          func() time.Time
}

// BriefingGenerator produces one briefing per date and session.
type BriefingGenerator struct {
	store       ports.Store
	model       ports.Model
	notifier    ports.Notifier
	logger      *slog.Logger
	location    *time.Location
	temperature float32
	policy      retryPolicy
	now         func() time.Time
}

// NewBriefingGenerator constructs the briefing use case.
func NewBriefingGenerator(deps BriefingDeps) *BriefingGenerator {
	g := &BriefingGenerator{
		store:       deps.Store,
		model:       deps.Model,
		notifier:    deps.Notifier,
		logger:      deps.Logger,
		location:    deps.Location,
		temperature: deps.Temperature,
		policy:      retryPolicy{Attempts: deps.MaxAttempts, Backoff: deps.RetryBackoff},
		now:         deps.Now,
	}
	if g.logger == nil {
		g.logger = logging.Discard()
	}
	if g.location == nil {
		g.location = time.UTC
	}
	if g.policy.Attempts <= 0 {
		g.policy.Attempts = 3
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g
}

// Generate builds today's briefing for session. It returns nil when the
// briefing already exists or there is nothing to brief on.
func (g *BriefingGenerator) Generate(ctx context.Context, session domain.Session) (*domain.Briefing, error) {
	now := g.now().In(g.location)
	date := now.Format(domain.DateLayout)

	exists, err := g.store.BriefingExists(ctx, date, session)
	if err != nil {
		return nil, fmt.Errorf("check briefing: %w", err)
	}
	if exists {
		g.logger.InfoContext(ctx, "briefing already exists", "date", date, "session", session)
		return nil, nil
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, g.location)
	articles, err := g.store.ProcessedArticlesSince(ctx, midnight)
	if err != nil {
		return nil, fmt.Errorf("load today's articles: %w", err)
	}
	if len(articles) == 0 {
		g.logger.WarnContext(ctx, "no analyzed articles for briefing", "date", date, "session", session)
		return nil, nil
	}

	briefing := domain.Briefing{Date: date, Session: session, CreatedAt: g.now()}
	if resp, err := g.ask(ctx, articles); err != nil {
		g.logger.WarnContext(ctx, "briefing model failed, using statistics", "session", session, "error", err)
		briefing.Overall, briefing.MustReads = fallbackBriefing(articles)
		briefing.Themes = []string{}
		briefing.Fallback = true
	} else {
		briefing.Overall = *resp.OverallSentiment
		briefing.MustReads = resp.MustReads
		if len(briefing.MustReads) > mustReadCount {
			briefing.MustReads = briefing.MustReads[:mustReadCount]
		}
		briefing.Themes = resp.CrossMarketThemes
	}

	stored, err := g.store.InsertBriefing(ctx, briefing)
	if errors.Is(err, domain.ErrDuplicate) {
		g.logger.InfoContext(ctx, "briefing created concurrently", "date", date, "session", session)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store briefing: %w", err)
	}

	g.logger.InfoContext(ctx, "briefing generated",
		"date", date,
		"session", session,
		"articles", len(articles),
		"fallback", stored.Fallback,
	)
	g.publish(ctx, stored)
	return &stored, nil
}

func (g *BriefingGenerator) ask(ctx context.Context, articles []domain.Article) (briefingResponse, error) {
	if g.model == nil {
		return briefingResponse{}, fmt.Errorf("briefing: %w", domain.ErrNotConfigured)
	}
	prompt, err := briefingPrompt(articles)
	if err != nil {
		return briefingResponse{}, err
	}
	req := ports.GenerationRequest{Kind: ports.KindBriefing, Prompt: prompt, Temperature: g.temperature}
	return generate(ctx, g.model, g.policy, g.logger, req, decodeBriefing)
}

func (g *BriefingGenerator) publish(ctx context.Context, b domain.Briefing) {
	if g.notifier == nil {
		return
	}
	if err := g.notifier.PublishDigest(ctx, render.BriefingTelegram(b)); err != nil {
		g.logger.WarnContext(ctx, "publish briefing failed", "session", b.Session, "error", err)
	}
}

// fallbackBriefing derives the sentiment split and highlights from stored
// annotations. Articles are expected newest first.
func fallbackBriefing(articles []domain.Article) (domain.SentimentBreakdown, []domain.MustRead) {
	total := len(articles)
	if total == 0 {
		return domain.SentimentBreakdown{NeutralPct: 100, Summary: "데이터 없음"}, []domain.MustRead{}
	}

	var bullish, bearish int
	for _, a := range articles {
		switch a.Sentiment {
		case domain.SentimentBullish:
			bullish++
		case domain.SentimentBearish:
			bearish++
		}
	}
	neutral := total - bullish - bearish

	pct := func(n int) float64 {
		return math.RoundToEven(float64(n*100) / float64(total))
	}
	overall := domain.SentimentBreakdown{
		BullishPct: pct(bullish),
		BearishPct: pct(bearish),
		NeutralPct: pct(neutral),
		Summary:    fmt.Sprintf("오늘 수집된 %d건 중 긍정 %d건, 부정 %d건, 중립 %d건", total, bullish, bearish, neutral),
	}

	mustReads := make([]domain.MustRead, 0, mustReadCount)
	for _, a := range articles {
		if len(mustReads) == mustReadCount {
			break
		}
		if a.Sentiment != domain.SentimentBullish && a.Sentiment != domain.SentimentBearish {
			continue
		}
		why := a.Digest
		if why == "" {
			why = a.Title
		}
		mustReads = append(mustReads, domain.MustRead{
			ArticleID:      a.ID,
			Title:          a.Title,
			WhyImportant:   why,
			ImpactAnalysis: "감성: " + string(a.Sentiment),
		})
	}
	return overall, mustReads
}
