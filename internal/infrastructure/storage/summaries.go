package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"MarketBrief/internal/domain"
)

var summaryColumns = []string{
	"id", "topic_tag", "region", "batch_id", "headline", "summary", "sentiment",
	"tickers", "source_articles", "article_count", "created_at",
}

func scanSummary(rows *sql.Rows) (domain.TopicSummary, error) {
	var (
		ts                domain.TopicSummary
		region, sentiment string
		tickers, sources  sql.NullString
		created           string
	)
	if err := rows.Scan(&ts.ID, &ts.TopicTag, &region, &ts.BatchID, &ts.Headline, &ts.Summary,
		&sentiment, &tickers, &sources, &ts.ArticleCount, &created); err != nil {
		return ts, err
	}
	ts.Region = domain.Region(region)
	ts.Sentiment = domain.Sentiment(sentiment)
	if err := decodeJSON(tickers, &ts.Tickers); err != nil {
		return ts, err
	}
	if err := decodeJSON(sources, &ts.Sources); err != nil {
		return ts, err
	}
	at, err := decodeTime(created)
	if err != nil {
		return ts, err
	}
	ts.CreatedAt = at
	return ts, nil
}

// InsertTopicSummary stores an immutable summary.
func (s *SQLStore) InsertTopicSummary(ctx context.Context, summary domain.TopicSummary) (int64, error) {
	tickers := summary.Tickers
	if tickers == nil {
		tickers = []string{}
	}
	tickersJSON, err := encodeJSON(tickers)
	if err != nil {
		return 0, err
	}
	sourcesJSON, err := encodeJSON(summary.Sources)
	if err != nil {
		return 0, err
	}

	q := s.sb.Insert("topic_summaries").
		Columns("topic_tag", "region", "batch_id", "headline", "summary", "sentiment",
			"tickers", "source_articles", "article_count", "created_at").
		Values(summary.TopicTag, string(summary.Region), summary.BatchID, summary.Headline,
			summary.Summary, string(summary.Sentiment), tickersJSON, sourcesJSON,
			len(summary.Sources), encodeTime(summary.CreatedAt)).
		Suffix("RETURNING id")

	row, err := s.queryRow(ctx, q)
	if err != nil {
		return 0, err
	}
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("insert topic summary: %w", err)
	}
	return id, nil
}

// TopicSummariesByBatch returns a batch's summaries, newest first.
func (s *SQLStore) TopicSummariesByBatch(ctx context.Context, batchID string) ([]domain.TopicSummary, error) {
	q := s.sb.Select(summaryColumns...).From("topic_summaries").
		Where(sq.Eq{"batch_id": batchID}).
		OrderBy("created_at DESC", "id DESC")
	summaries, err := collect(ctx, s, q, scanSummary)
	if err != nil {
		return nil, fmt.Errorf("summaries for batch %s: %w", batchID, err)
	}
	return summaries, nil
}

// LatestBatchID returns the batch of the most recent summary.
func (s *SQLStore) LatestBatchID(ctx context.Context) (string, error) {
	row, err := s.queryRow(ctx, s.sb.Select("batch_id").From("topic_summaries").
		OrderBy("created_at DESC", "id DESC").Limit(1))
	if err != nil {
		return "", err
	}
	var id string
	if err := row.Scan(&id); err != nil {
		if isNoRows(err) {
			return "", fmt.Errorf("latest batch: %w", domain.ErrNotFound)
		}
		return "", fmt.Errorf("latest batch: %w", err)
	}
	return id, nil
}

// ListBatches returns the most recent batches with their summary counts.
func (s *SQLStore) ListBatches(ctx context.Context, limit int) ([]domain.BatchInfo, error) {
	q := s.sb.Select("batch_id", "COUNT(id)", "MAX(created_at) AS last_created").
		From("topic_summaries").
		GroupBy("batch_id").
		OrderBy("last_created DESC").
		Limit(uint64(limit))

	batches, err := collect(ctx, s, q, func(rows *sql.Rows) (domain.BatchInfo, error) {
		var (
			b       domain.BatchInfo
			created string
		)
		if err := rows.Scan(&b.BatchID, &b.TopicCount, &created); err != nil {
			return b, err
		}
		at, err := decodeTime(created)
		if err != nil {
			return b, err
		}
		b.CreatedAt = at
		return b, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return batches, nil
}

// DeleteSummariesBefore removes summaries created before cutoff.
func (s *SQLStore) DeleteSummariesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.exec(ctx, s.sb.Delete("topic_summaries").Where(sq.Lt{"created_at": encodeTime(cutoff)}))
	if err != nil {
		return 0, fmt.Errorf("delete summaries: %w", err)
	}
	return affected(res)
}
