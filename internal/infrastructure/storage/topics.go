package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"MarketBrief/internal/domain"
)

var topicColumns = []string{"id", "label", "region", "active", "created_at"}

func scanTopic(rows *sql.Rows) (domain.TrackedTopic, error) {
	var (
		t       domain.TrackedTopic
		region  string
		created string
	)
	if err := rows.Scan(&t.ID, &t.Label, &region, &t.Active, &created); err != nil {
		return t, err
	}
	t.Region = domain.Region(region)
	at, err := decodeTime(created)
	if err != nil {
		return t, err
	}
	t.CreatedAt = at
	return t, nil
}

// ListTopics returns every topic ordered by id.
func (s *SQLStore) ListTopics(ctx context.Context) ([]domain.TrackedTopic, error) {
	topics, err := collect(ctx, s, s.sb.Select(topicColumns...).From("tracked_topics").OrderBy("id"), scanTopic)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	return topics, nil
}

// ListActiveTopics returns topics the collector should search.
func (s *SQLStore) ListActiveTopics(ctx context.Context) ([]domain.TrackedTopic, error) {
	q := s.sb.Select(topicColumns...).From("tracked_topics").Where(sq.Eq{"active": true}).OrderBy("id")
	topics, err := collect(ctx, s, q, scanTopic)
	if err != nil {
		return nil, fmt.Errorf("list active topics: %w", err)
	}
	return topics, nil
}

// GetTopic loads a topic by id.
func (s *SQLStore) GetTopic(ctx context.Context, id int64) (domain.TrackedTopic, error) {
	q := s.sb.Select(topicColumns...).From("tracked_topics").Where(sq.Eq{"id": id})
	topics, err := collect(ctx, s, q, scanTopic)
	if err != nil {
		return domain.TrackedTopic{}, fmt.Errorf("get topic %d: %w", id, err)
	}
	if len(topics) == 0 {
		return domain.TrackedTopic{}, fmt.Errorf("topic %d: %w", id, domain.ErrNotFound)
	}
	return topics[0], nil
}

// CreateTopic stores a topic and returns it with its id.
func (s *SQLStore) CreateTopic(ctx context.Context, topic domain.TrackedTopic) (domain.TrackedTopic, error) {
	q := s.sb.Insert("tracked_topics").
		Columns("label", "region", "active", "created_at").
		Values(topic.Label, string(topic.Region), topic.Active, encodeTime(topic.CreatedAt)).
		Suffix("RETURNING id")

	row, err := s.queryRow(ctx, q)
	if err != nil {
		return domain.TrackedTopic{}, err
	}
	if err := row.Scan(&topic.ID); err != nil {
		return domain.TrackedTopic{}, fmt.Errorf("insert topic: %w", err)
	}
	return topic, nil
}

// UpdateTopic overwrites label, region and active flag.
func (s *SQLStore) UpdateTopic(ctx context.Context, topic domain.TrackedTopic) error {
	res, err := s.exec(ctx, s.sb.Update("tracked_topics").
		Set("label", topic.Label).
		Set("region", string(topic.Region)).
		Set("active", topic.Active).
		Where(sq.Eq{"id": topic.ID}))
	if err != nil {
		return fmt.Errorf("update topic %d: %w", topic.ID, err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("topic %d: %w", topic.ID, domain.ErrNotFound)
	}
	return nil
}

// DeleteTopic removes a topic. Articles collected for it are kept.
func (s *SQLStore) DeleteTopic(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, s.sb.Delete("tracked_topics").Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("delete topic %d: %w", id, err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("topic %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// CountTopics returns how many topics exist.
func (s *SQLStore) CountTopics(ctx context.Context) (int, error) {
	row, err := s.queryRow(ctx, s.sb.Select("COUNT(*)").From("tracked_topics"))
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count topics: %w", err)
	}
	return n, nil
}
