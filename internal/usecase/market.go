package usecase

import (
	"context"
	"log/slog"
	"math"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"MarketBrief/internal/domain"
	"MarketBrief/internal/logging"
	"MarketBrief/internal/ports"
)

const snapshotKey = "indices"

// MarketService serves index quotes through a TTL cache owned by the caller.
type MarketService struct {
	quoter  ports.MarketQuoter
	indices []domain.IndexSpec
	cache   *gocache.Cache
	logger  *slog.Logger
	now     func() time.Time
}

// NewMarketService builds the service. A nil cache disables caching.
func NewMarketService(quoter ports.MarketQuoter, indices []domain.IndexSpec, cache *gocache.Cache, logger *slog.Logger) *MarketService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &MarketService{
		quoter:  quoter,
		indices: indices,
		cache:   cache,
		logger:  logger,
		now:     time.Now,
	}
}

// Snapshot returns the cached quotes, fetching them on a miss.
func (m *MarketService) Snapshot(ctx context.Context) domain.MarketSnapshot {
	if m.cache != nil {
		if cached, ok := m.cache.Get(snapshotKey); ok {
			return cached.(domain.MarketSnapshot)
		}
	}

	snapshot := m.fetch(ctx)
	if m.cache != nil {
		m.cache.Set(snapshotKey, snapshot, gocache.DefaultExpiration)
	}
	return snapshot
}

// Invalidate drops the cached snapshot.
func (m *MarketService) Invalidate() {
	if m.cache != nil {
		m.cache.Delete(snapshotKey)
	}
}

func (m *MarketService) fetch(ctx context.Context) domain.MarketSnapshot {
	snapshot := domain.MarketSnapshot{
		Indices:   make([]domain.IndexQuote, 0, len(m.indices)),
		UpdatedAt: m.now(),
	}
	for _, idx := range m.indices {
		row := domain.IndexQuote{Symbol: idx.Symbol, Name: idx.Name}
		quote, err := m.quoter.Quote(ctx, idx.Symbol)
		if err != nil {
			m.logger.WarnContext(ctx, "index quote failed", "symbol", idx.Symbol, "error", err)
			snapshot.Indices = append(snapshot.Indices, row)
			continue
		}

		row.Price = round2(quote.Price)
		if quote.PreviousClose != 0 {
			change := quote.Price - quote.PreviousClose
			row.Change = round2(change)
			row.ChangePct = round2(change / quote.PreviousClose * 100)
		}
		snapshot.Indices = append(snapshot.Indices, row)
	}
	return snapshot
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
