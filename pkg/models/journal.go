package models

import "time"

// JournalEntry records one catalog request. It carries counts only, never
// the banned values or the artwork itself.
type JournalEntry struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id,omitempty"`
	Page       int       `json:"page"`
	BanTerms   int       `json:"ban_terms"`
	StatusCode int       `json:"status_code"`
	Records    int       `json:"records"`
	Attempt    int       `json:"attempt"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	At         time.Time `json:"at"`
}
