package journal

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"artdiscover/pkg/models"
)

var csvHeader = []string{"id", "session_id", "page", "ban_terms", "status_code", "records", "attempt", "error", "duration_ms", "at"}

// ExportCSV writes every journal entry, oldest first.
func (r *Repo) ExportCSV(ctx context.Context, out io.Writer) (int, error) {
	w := csv.NewWriter(out)
	if err := w.Write(csvHeader); err != nil {
		return 0, err
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, session_id, page, ban_terms, status_code, records, attempt, error, duration_ms, at
		FROM catalog_requests
		ORDER BY at, id
	`)
	if err != nil {
		return 0, fmt.Errorf("export catalog requests: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var e models.JournalEntry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Page, &e.BanTerms, &e.StatusCode,
			&e.Records, &e.Attempt, &e.Error, &e.DurationMS, &e.At); err != nil {
			return n, fmt.Errorf("scan catalog request: %w", err)
		}
		if err := w.Write([]string{
			strconv.FormatInt(e.ID, 10),
			e.SessionID,
			strconv.Itoa(e.Page),
			strconv.Itoa(e.BanTerms),
			strconv.Itoa(e.StatusCode),
			strconv.Itoa(e.Records),
			strconv.Itoa(e.Attempt),
			e.Error,
			strconv.FormatInt(e.DurationMS, 10),
			e.At.UTC().Format(time.RFC3339Nano),
		}); err != nil {
			return n, err
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, fmt.Errorf("rows err: %w", err)
	}

	w.Flush()
	return n, w.Error()
}
