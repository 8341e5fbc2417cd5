package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/fleveque/icon-service/internal/model"
)

// ErrNotFound is returned when no lookup has been recorded for a page.
var ErrNotFound = errors.New("lookup not found")

// LookupRepository stores the history of icon lookups. Rows are append-only:
// every lookup adds one, and the newest row for a page is its latest result.
type LookupRepository interface {
	Create(ctx context.Context, lookup *model.Lookup) error
	GetLatest(ctx context.Context, pageURL string) (*model.Lookup, error)
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status model.LookupStatus) (int64, error)
	ListRecent(ctx context.Context, limit int) ([]model.Lookup, error)
	ListByHost(ctx context.Context, host string, limit int) ([]model.Lookup, error)
}

// sqliteLookupRepository is the SQLite implementation of LookupRepository.
type sqliteLookupRepository struct {
	db *sqlx.DB
}

// NewLookupRepository creates a new SQLite-backed LookupRepository.
func NewLookupRepository(db *sqlx.DB) LookupRepository {
	return &sqliteLookupRepository{db: db}
}

func (r *sqliteLookupRepository) Create(ctx context.Context, lookup *model.Lookup) error {
	result, err := r.db.NamedExecContext(ctx, `
		INSERT INTO lookups (
			page_url, host, status, source, icon_count,
			best_url, best_width, best_height, best_mime_type,
			duration_ms, error_message
		) VALUES (
			:page_url, :host, :status, :source, :icon_count,
			:best_url, :best_width, :best_height, :best_mime_type,
			:duration_ms, :error_message
		)
	`, lookup)
	if err != nil {
		return fmt.Errorf("creating lookup: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}
	lookup.ID = id
	return nil
}

// GetLatest returns the most recent lookup for pageURL. Rows created within
// the same second are ordered by id.
func (r *sqliteLookupRepository) GetLatest(ctx context.Context, pageURL string) (*model.Lookup, error) {
	var lookup model.Lookup
	err := r.db.GetContext(ctx, &lookup,
		"SELECT * FROM lookups WHERE page_url = ? ORDER BY created_at DESC, id DESC LIMIT 1",
		pageURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting latest lookup for %s: %w", pageURL, err)
	}
	return &lookup, nil
}

func (r *sqliteLookupRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM lookups")
	return count, err
}

func (r *sqliteLookupRepository) CountByStatus(ctx context.Context, status model.LookupStatus) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM lookups WHERE status = ?", status)
	return count, err
}

func (r *sqliteLookupRepository) ListRecent(ctx context.Context, limit int) ([]model.Lookup, error) {
	var lookups []model.Lookup
	err := r.db.SelectContext(ctx, &lookups,
		"SELECT * FROM lookups ORDER BY created_at DESC, id DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent lookups: %w", err)
	}
	return lookups, nil
}

func (r *sqliteLookupRepository) ListByHost(ctx context.Context, host string, limit int) ([]model.Lookup, error) {
	var lookups []model.Lookup
	err := r.db.SelectContext(ctx, &lookups,
		"SELECT * FROM lookups WHERE host = ? ORDER BY created_at DESC, id DESC LIMIT ?",
		host, limit)
	if err != nil {
		return nil, fmt.Errorf("listing lookups for host %s: %w", host, err)
	}
	return lookups, nil
}

// LLMCallRepository handles persistence of LLM call tracking.
type LLMCallRepository interface {
	Create(ctx context.Context, call *model.LLMCall) error
	Count(ctx context.Context) (int64, error)
	CountByPageURL(ctx context.Context, pageURL string) (int64, error)
}

type sqliteLLMCallRepository struct {
	db *sqlx.DB
}

// NewLLMCallRepository creates a new SQLite-backed LLMCallRepository.
func NewLLMCallRepository(db *sqlx.DB) LLMCallRepository {
	return &sqliteLLMCallRepository{db: db}
}

func (r *sqliteLLMCallRepository) Create(ctx context.Context, call *model.LLMCall) error {
	result, err := r.db.NamedExecContext(ctx, `
		INSERT INTO llm_calls (page_url, provider, model, result_url, success, duration_ms)
		VALUES (:page_url, :provider, :model, :result_url, :success, :duration_ms)
	`, call)
	if err != nil {
		return fmt.Errorf("creating llm call record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}
	call.ID = id
	return nil
}

func (r *sqliteLLMCallRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM llm_calls")
	return count, err
}

func (r *sqliteLLMCallRepository) CountByPageURL(ctx context.Context, pageURL string) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM llm_calls WHERE page_url = ?", pageURL)
	return count, err
}
