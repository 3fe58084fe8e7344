// Package journal keeps an operational log of catalog requests.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"artdiscover/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Record stores one catalog request.
func (r *Repo) Record(ctx context.Context, e models.JournalEntry) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO catalog_requests
			(session_id, page, ban_terms, status_code, records, attempt, error, duration_ms, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.SessionID, e.Page, e.BanTerms, e.StatusCode, e.Records, e.Attempt, e.Error, e.DurationMS, e.At.UTC())
	if err != nil {
		return fmt.Errorf("insert catalog request: %w", err)
	}
	return nil
}

type ListQuery struct {
	SessionID string
	Limit     int
}

// Recent returns the newest entries first.
func (r *Repo) Recent(ctx context.Context, q ListQuery) ([]models.JournalEntry, error) {
	if q.Limit <= 0 || q.Limit > 200 {
		q.Limit = 50
	}

	var (
		rows *sql.Rows
		err  error
	)
	if q.SessionID == "" {
		rows, err = r.DB.QueryContext(ctx, `
			SELECT id, session_id, page, ban_terms, status_code, records, attempt, error, duration_ms, at
			FROM catalog_requests
			ORDER BY at DESC, id DESC
			LIMIT ?
		`, q.Limit)
	} else {
		rows, err = r.DB.QueryContext(ctx, `
			SELECT id, session_id, page, ban_terms, status_code, records, attempt, error, duration_ms, at
			FROM catalog_requests
			WHERE session_id = ?
			ORDER BY at DESC, id DESC
			LIMIT ?
		`, q.SessionID, q.Limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list catalog requests: %w", err)
	}
	defer rows.Close()

	out := make([]models.JournalEntry, 0, q.Limit)
	for rows.Next() {
		var e models.JournalEntry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Page, &e.BanTerms, &e.StatusCode,
			&e.Records, &e.Attempt, &e.Error, &e.DurationMS, &e.At); err != nil {
			return nil, fmt.Errorf("scan catalog request: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// Stats summarises the journal.
type Stats struct {
	Requests  int     `json:"requests"`
	Failures  int     `json:"failures"`
	EmptyHits int     `json:"empty_pages"`
	AvgMS     float64 `json:"avg_duration_ms"`
}

func (r *Repo) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	var avg sql.NullFloat64
	err := r.DB.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN error != '' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN error = '' AND records = 0 THEN 1 ELSE 0 END), 0),
			AVG(duration_ms)
		FROM catalog_requests
	`).Scan(&s.Requests, &s.Failures, &s.EmptyHits, &avg)
	if err != nil {
		return Stats{}, fmt.Errorf("journal stats: %w", err)
	}
	s.AvgMS = avg.Float64
	return s, nil
}
