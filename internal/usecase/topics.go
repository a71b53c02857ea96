package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"MarketBrief/internal/domain"
	"MarketBrief/internal/logging"
	"MarketBrief/internal/ports"
)

// ErrInvalidTopic rejects empty labels.
var ErrInvalidTopic = errors.New("invalid topic")

// TopicPatch holds the optional fields of a topic update.
type TopicPatch struct {
	Label  *string
	Region *domain.Region
	Active *bool
}

// TopicService manages tracked topics and backfills newly added ones.
type TopicService struct {
	store        ports.Store
	collector    *Collector
	consolidator *Consolidator
	logger       *slog.Logger
	location     *time.Location
	now          func() time.Time

	wg sync.WaitGroup
}

// TopicDeps wires the topic service.
type TopicDeps struct {
	Store        ports.Store
	Collector    *Collector
	Consolidator *Consolidator
	Logger       *slog.Logger
	Location     *time.Location
	Now          func() time.Time
}

func NewTopicService(deps TopicDeps) *TopicService {
	s := &TopicService{
		store:        deps.Store,
		collector:    deps.Collector,
		consolidator: deps.Consolidator,
		logger:       deps.Logger,
		location:     deps.Location,
		now:          deps.Now,
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.location == nil {
		s.location = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *TopicService) List(ctx context.Context) ([]domain.TrackedTopic, error) {
	return s.store.ListTopics(ctx)
}

// Create stores an active topic and starts collecting it in the background.
func (s *TopicService) Create(ctx context.Context, label string, region domain.Region) (domain.TrackedTopic, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return domain.TrackedTopic{}, fmt.Errorf("%w: empty label", ErrInvalidTopic)
	}
	topic, err := s.store.CreateTopic(ctx, domain.TrackedTopic{
		Label:     label,
		Region:    region,
		Active:    true,
		CreatedAt: s.now(),
	})
	if err != nil {
		return domain.TrackedTopic{}, fmt.Errorf("create topic: %w", err)
	}

	s.logger.InfoContext(ctx, "topic created", "topic", topic.Label, "region", topic.Region)
	s.backfill(context.WithoutCancel(ctx), topic)
	return topic, nil
}

// Update applies the non-nil fields of patch.
func (s *TopicService) Update(ctx context.Context, id int64, patch TopicPatch) (domain.TrackedTopic, error) {
	topic, err := s.store.GetTopic(ctx, id)
	if err != nil {
		return domain.TrackedTopic{}, err
	}
	if patch.Label != nil {
		label := strings.TrimSpace(*patch.Label)
		if label == "" {
			return domain.TrackedTopic{}, fmt.Errorf("%w: empty label", ErrInvalidTopic)
		}
		topic.Label = label
	}
	if patch.Region != nil {
		topic.Region = *patch.Region
	}
	if patch.Active != nil {
		topic.Active = *patch.Active
	}
	if err := s.store.UpdateTopic(ctx, topic); err != nil {
		return domain.TrackedTopic{}, err
	}
	return topic, nil
}

// Delete removes the topic row; articles collected for it stay.
func (s *TopicService) Delete(ctx context.Context, id int64) error {
	return s.store.DeleteTopic(ctx, id)
}

// Seed stores defaults when no topic exists yet and returns how many were added.
func (s *TopicService) Seed(ctx context.Context, defaults []domain.TrackedTopic) (int, error) {
	count, err := s.store.CountTopics(ctx)
	if err != nil {
		return 0, fmt.Errorf("count topics: %w", err)
	}
	if count > 0 || len(defaults) == 0 {
		return 0, nil
	}

	err = s.store.WithTx(ctx, func(tx ports.Store) error {
		for _, t := range defaults {
			t.Active = true
			t.CreatedAt = s.now()
			if _, err := tx.CreateTopic(ctx, t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("seed topics: %w", err)
	}
	s.logger.InfoContext(ctx, "default topics seeded", "count", len(defaults))
	return len(defaults), nil
}

// Wait blocks until background backfills finish.
func (s *TopicService) Wait() {
	s.wg.Wait()
}

func (s *TopicService) backfill(ctx context.Context, topic domain.TrackedTopic) {
	if s.collector == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.ErrorContext(ctx, "topic backfill panicked", "topic", topic.Label, "panic", r)
			}
		}()

		articles, err := s.collector.CollectForKeyword(ctx, topic)
		if err != nil {
			s.logger.WarnContext(ctx, "topic backfill collection failed", "topic", topic.Label, "error", err)
			return
		}
		if s.consolidator == nil {
			return
		}

		batchID, err := s.store.LatestBatchID(ctx)
		if errors.Is(err, domain.ErrNotFound) {
			batchID = domain.ManualBatchID(s.now().In(s.location))
		} else if err != nil {
			s.logger.WarnContext(ctx, "topic backfill batch lookup failed", "topic", topic.Label, "error", err)
			return
		}

		created, err := s.consolidator.ProcessKeyword(ctx, batchID, topic.Label)
		if err != nil {
			s.logger.WarnContext(ctx, "topic backfill consolidation failed", "topic", topic.Label, "error", err)
			return
		}
		s.logger.InfoContext(ctx, "topic backfilled",
			"topic", topic.Label,
			"batch_id", batchID,
			"articles", len(articles),
			"summaries", created,
		)
	}()
}
