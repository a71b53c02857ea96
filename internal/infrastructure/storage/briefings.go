package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"MarketBrief/internal/domain"
)

var briefingColumns = []string{
	"id", "brief_date", "session", "overall_sentiment", "must_reads", "themes", "fallback", "created_at",
}

func scanBriefing(rows *sql.Rows) (domain.Briefing, error) {
	var (
		b                      domain.Briefing
		session, created       string
		overall, reads, themes sql.NullString
	)
	if err := rows.Scan(&b.ID, &b.Date, &session, &overall, &reads, &themes, &b.Fallback, &created); err != nil {
		return b, err
	}
	b.Session = domain.Session(session)
	if err := decodeJSON(overall, &b.Overall); err != nil {
		return b, err
	}
	if err := decodeJSON(reads, &b.MustReads); err != nil {
		return b, err
	}
	if err := decodeJSON(themes, &b.Themes); err != nil {
		return b, err
	}
	at, err := decodeTime(created)
	if err != nil {
		return b, err
	}
	b.CreatedAt = at
	return b, nil
}

// BriefingExists checks the (date, session) key.
func (s *SQLStore) BriefingExists(ctx context.Context, date string, session domain.Session) (bool, error) {
	row, err := s.queryRow(ctx, s.sb.Select("COUNT(*)").From("briefings").
		Where(sq.Eq{"brief_date": date, "session": string(session)}))
	if err != nil {
		return false, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return false, fmt.Errorf("briefing exists: %w", err)
	}
	return n > 0, nil
}

// InsertBriefing stores a briefing; a second one for the same key is ErrDuplicate.
func (s *SQLStore) InsertBriefing(ctx context.Context, briefing domain.Briefing) (domain.Briefing, error) {
	overall, err := encodeJSON(briefing.Overall)
	if err != nil {
		return briefing, err
	}
	reads := briefing.MustReads
	if reads == nil {
		reads = []domain.MustRead{}
	}
	readsJSON, err := encodeJSON(reads)
	if err != nil {
		return briefing, err
	}
	themes := briefing.Themes
	if themes == nil {
		themes = []string{}
	}
	themesJSON, err := encodeJSON(themes)
	if err != nil {
		return briefing, err
	}

	q := s.sb.Insert("briefings").
		Columns("brief_date", "session", "overall_sentiment", "must_reads", "themes", "fallback", "created_at").
		Values(briefing.Date, string(briefing.Session), overall, readsJSON, themesJSON,
			briefing.Fallback, encodeTime(briefing.CreatedAt)).
		Suffix("ON CONFLICT (brief_date, session) DO NOTHING RETURNING id")

	row, err := s.queryRow(ctx, q)
	if err != nil {
		return briefing, err
	}
	if err := row.Scan(&briefing.ID); err != nil {
		if isNoRows(err) {
			return briefing, fmt.Errorf("briefing %s/%s: %w", briefing.Date, briefing.Session, domain.ErrDuplicate)
		}
		return briefing, fmt.Errorf("insert briefing: %w", err)
	}
	return briefing, nil
}

// LatestBriefing returns the most recently created briefing.
func (s *SQLStore) LatestBriefing(ctx context.Context) (domain.Briefing, error) {
	q := s.sb.Select(briefingColumns...).From("briefings").OrderBy("created_at DESC", "id DESC").Limit(1)
	briefings, err := collect(ctx, s, q, scanBriefing)
	if err != nil {
		return domain.Briefing{}, fmt.Errorf("latest briefing: %w", err)
	}
	if len(briefings) == 0 {
		return domain.Briefing{}, fmt.Errorf("latest briefing: %w", domain.ErrNotFound)
	}
	return briefings[0], nil
}

// BriefingsSince returns briefings dated on or after date, newest first.
func (s *SQLStore) BriefingsSince(ctx context.Context, date string) ([]domain.Briefing, error) {
	q := s.sb.Select(briefingColumns...).From("briefings").
		Where(sq.GtOrEq{"brief_date": date}).
		OrderBy("created_at DESC", "id DESC")
	briefings, err := collect(ctx, s, q, scanBriefing)
	if err != nil {
		return nil, fmt.Errorf("briefings since %s: %w", date, err)
	}
	return briefings, nil
}

// DeleteBriefingsBefore removes briefings created before cutoff.
func (s *SQLStore) DeleteBriefingsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.exec(ctx, s.sb.Delete("briefings").Where(sq.Lt{"created_at": encodeTime(cutoff)}))
	if err != nil {
		return 0, fmt.Errorf("delete briefings: %w", err)
	}
	return affected(res)
}
