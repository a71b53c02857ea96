package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"MarketBrief/internal/domain"
)

var articleColumns = []string{
	"id", "title", "link", "published_at", "source_name", "region", "raw_snippet",
	"topic_tag", "processed_at", "sentiment", "tickers", "digest", "created_at",
}

func scanArticle(rows *sql.Rows) (domain.Article, error) {
	var (
		a                                  domain.Article
		published, snippet, processed      sql.NullString
		sentiment, tickers, digest, region sql.NullString
		created                            string
	)
	if err := rows.Scan(&a.ID, &a.Title, &a.Link, &published, &a.Source, &region, &snippet,
		&a.TopicTag, &processed, &sentiment, &tickers, &digest, &created); err != nil {
		return a, err
	}

	var err error
	if a.PublishedAt, err = decodeNullTime(published); err != nil {
		return a, err
	}
	if a.ProcessedAt, err = decodeNullTime(processed); err != nil {
		return a, err
	}
	if a.CreatedAt, err = decodeTime(created); err != nil {
		return a, err
	}
	if err := decodeJSON(tickers, &a.Tickers); err != nil {
		return a, err
	}
	a.Region = domain.Region(region.String)
	a.Snippet = snippet.String
	a.Sentiment = domain.Sentiment(sentiment.String)
	a.Digest = digest.String
	return a, nil
}

func (s *SQLStore) selectArticles() sq.SelectBuilder {
	return s.sb.Select(articleColumns...).From("articles")
}

func newestFirst(b sq.SelectBuilder) sq.SelectBuilder {
	return b.OrderBy("created_at DESC", "id DESC")
}

// ArticleExists checks the dedupe key.
func (s *SQLStore) ArticleExists(ctx context.Context, link string) (bool, error) {
	row, err := s.queryRow(ctx, s.sb.Select("COUNT(*)").From("articles").Where(sq.Eq{"link": link}))
	if err != nil {
		return false, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return false, fmt.Errorf("article exists: %w", err)
	}
	return n > 0, nil
}

// InsertArticle stores a new article. A link conflict is reported as
// inserted=false rather than an error.
func (s *SQLStore) InsertArticle(ctx context.Context, article domain.Article) (domain.Article, bool, error) {
	q := s.sb.Insert("articles").
		Columns("title", "link", "published_at", "source_name", "region", "raw_snippet", "topic_tag", "created_at").
		Values(
			article.Title,
			article.Link,
			encodeTimePtr(article.PublishedAt),
			article.Source,
			string(article.Region),
			nullString(article.Snippet),
			article.TopicTag,
			encodeTime(article.CreatedAt),
		).
		Suffix("ON CONFLICT (link) DO NOTHING RETURNING id")

	row, err := s.queryRow(ctx, q)
	if err != nil {
		return article, false, err
	}
	if err := row.Scan(&article.ID); err != nil {
		if isNoRows(err) {
			return article, false, nil
		}
		return article, false, fmt.Errorf("insert article: %w", err)
	}
	return article, true, nil
}

// ArticlesWithoutSnippet returns articles with an empty snippet, newest first.
func (s *SQLStore) ArticlesWithoutSnippet(ctx context.Context, limit int) ([]domain.Article, error) {
	q := newestFirst(s.selectArticles().
		Where(sq.Or{sq.Eq{"raw_snippet": nil}, sq.Eq{"raw_snippet": ""}})).
		Limit(uint64(limit))
	articles, err := collect(ctx, s, q, scanArticle)
	if err != nil {
		return nil, fmt.Errorf("articles without snippet: %w", err)
	}
	return articles, nil
}

// UnprocessedWithSnippet returns unconsolidated articles that have a snippet.
func (s *SQLStore) UnprocessedWithSnippet(ctx context.Context, limit int) ([]domain.Article, error) {
	q := newestFirst(s.selectArticles().
		Where(sq.Eq{"processed_at": nil}).
		Where(sq.NotEq{"raw_snippet": nil})).
		Limit(uint64(limit))
	articles, err := collect(ctx, s, q, scanArticle)
	if err != nil {
		return nil, fmt.Errorf("unprocessed with snippet: %w", err)
	}
	return articles, nil
}

// UpdateSnippet replaces the stored snippet.
func (s *SQLStore) UpdateSnippet(ctx context.Context, id int64, snippet string) error {
	if _, err := s.exec(ctx, s.sb.Update("articles").Set("raw_snippet", snippet).Where(sq.Eq{"id": id})); err != nil {
		return fmt.Errorf("update snippet %d: %w", id, err)
	}
	return nil
}

// UnprocessedArticles returns the consolidation backlog, optionally for one tag.
func (s *SQLStore) UnprocessedArticles(ctx context.Context, tag string) ([]domain.Article, error) {
	q := s.selectArticles().Where(sq.Eq{"processed_at": nil})
	if tag != "" {
		q = q.Where(sq.Eq{"topic_tag": tag})
	}
	articles, err := collect(ctx, s, newestFirst(q), scanArticle)
	if err != nil {
		return nil, fmt.Errorf("unprocessed articles: %w", err)
	}
	return articles, nil
}

// MarkProcessed sets the processed marker and the claiming section's notes.
func (s *SQLStore) MarkProcessed(ctx context.Context, id int64, note domain.Annotation, at time.Time) error {
	var tickers interface{}
	if len(note.Tickers) > 0 {
		encoded, err := encodeJSON(note.Tickers)
		if err != nil {
			return err
		}
		tickers = encoded
	}

	q := s.sb.Update("articles").
		Set("processed_at", encodeTime(at)).
		Set("sentiment", nullString(string(note.Sentiment))).
		Set("tickers", tickers).
		Set("digest", nullString(note.Digest)).
		Where(sq.Eq{"id": id})
	if _, err := s.exec(ctx, q); err != nil {
		return fmt.Errorf("mark processed %d: %w", id, err)
	}
	return nil
}

// ProcessedArticlesSince returns consolidated articles created at or after since.
func (s *SQLStore) ProcessedArticlesSince(ctx context.Context, since time.Time) ([]domain.Article, error) {
	q := newestFirst(s.selectArticles().
		Where(sq.GtOrEq{"created_at": encodeTime(since)}).
		Where(sq.NotEq{"processed_at": nil}))
	articles, err := collect(ctx, s, q, scanArticle)
	if err != nil {
		return nil, fmt.Errorf("processed articles since: %w", err)
	}
	return articles, nil
}

// DeleteArticlesBefore removes articles created before cutoff.
func (s *SQLStore) DeleteArticlesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.exec(ctx, s.sb.Delete("articles").Where(sq.Lt{"created_at": encodeTime(cutoff)}))
	if err != nil {
		return 0, fmt.Errorf("delete articles: %w", err)
	}
	return affected(res)
}
