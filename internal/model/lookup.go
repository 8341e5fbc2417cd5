// Package model defines the records the icon service persists.
// Struct tags map fields to sqlite columns (`db`) and API responses (`json`).
package model

import "time"

// LookupStatus is the outcome of one icon lookup.
type LookupStatus string

const (
	StatusFound  LookupStatus = "found"  // at least one icon validated
	StatusEmpty  LookupStatus = "empty"  // page fetched, no icon survived validation
	StatusFailed LookupStatus = "failed" // the page itself could not be fetched
)

// AllStatuses is the ordered list of statuses for iteration.
var AllStatuses = []LookupStatus{StatusFound, StatusEmpty, StatusFailed}

// ValidStatus checks if a string is a valid LookupStatus.
func ValidStatus(s string) bool {
	switch LookupStatus(s) {
	case StatusFound, StatusEmpty, StatusFailed:
		return true
	default:
		return false
	}
}

// Source values recorded on a Lookup. LLM sources are "llm:<provider>".
const (
	SourceScraper = "scraper"
	SourceNone    = "none"
)

// Lookup is one history row: which page was asked for, and what came back.
// The best icon columns are NULL unless Status is StatusFound.
type Lookup struct {
	ID           int64        `db:"id" json:"id"`
	PageURL      string       `db:"page_url" json:"page_url"`
	Host         string       `db:"host" json:"host"`
	Status       LookupStatus `db:"status" json:"status"`
	Source       string       `db:"source" json:"source"`
	IconCount    int          `db:"icon_count" json:"icon_count"`
	BestURL      *string      `db:"best_url" json:"best_url,omitempty"`
	BestWidth    *int         `db:"best_width" json:"best_width,omitempty"`
	BestHeight   *int         `db:"best_height" json:"best_height,omitempty"`
	BestMIMEType *string      `db:"best_mime_type" json:"best_mime_type,omitempty"`
	DurationMs   int64        `db:"duration_ms" json:"duration_ms"`
	ErrorMessage *string      `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
}

// HasIcon reports whether the lookup recorded a best icon.
func (l *Lookup) HasIcon() bool {
	return l.Status == StatusFound && l.BestURL != nil
}

// LLMCall tracks each call to an LLM provider for cost monitoring.
type LLMCall struct {
	ID         int64     `db:"id" json:"id"`
	PageURL    string    `db:"page_url" json:"page_url"`
	Provider   string    `db:"provider" json:"provider"`
	Model      string    `db:"model" json:"model"`
	ResultURL  *string   `db:"result_url" json:"result_url,omitempty"`
	Success    bool      `db:"success" json:"success"`
	DurationMs *int64    `db:"duration_ms" json:"duration_ms,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
