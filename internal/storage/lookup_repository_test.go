package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/fleveque/icon-service/internal/model"
)

func setupTestDB(t *testing.T) *testDeps {
	t.Helper()

	db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("creating test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return &testDeps{
		lookupRepo:  NewLookupRepository(db),
		llmCallRepo: NewLLMCallRepository(db),
	}
}

type testDeps struct {
	lookupRepo  LookupRepository
	llmCallRepo LLMCallRepository
}

func ptr[T any](v T) *T { return &v }

func TestLookupRepository_CreateAndGetLatest(t *testing.T) {
	deps := setupTestDB(t)
	ctx := context.Background()

	lookup := &model.Lookup{
		PageURL:      "https://example.com/",
		Host:         "example.com",
		Status:       model.StatusFound,
		Source:       model.SourceScraper,
		IconCount:    3,
		BestURL:      ptr("https://example.com/apple-touch-icon.png"),
		BestWidth:    ptr(180),
		BestHeight:   ptr(180),
		BestMIMEType: ptr("image/png"),
		DurationMs:   42,
	}
	if err := deps.lookupRepo.Create(ctx, lookup); err != nil {
		t.Fatalf("creating lookup: %v", err)
	}
	if lookup.ID == 0 {
		t.Error("expected lookup ID to be set after create")
	}

	got, err := deps.lookupRepo.GetLatest(ctx, "https://example.com/")
	if err != nil {
		t.Fatalf("getting lookup: %v", err)
	}
	if got.Host != "example.com" {
		t.Errorf("expected host example.com, got %s", got.Host)
	}
	if got.Status != model.StatusFound {
		t.Errorf("expected status found, got %s", got.Status)
	}
	if !got.HasIcon() || *got.BestURL != "https://example.com/apple-touch-icon.png" {
		t.Errorf("expected best icon to round trip, got %v", got.BestURL)
	}
	if got.BestWidth == nil || *got.BestWidth != 180 {
		t.Errorf("expected best width 180, got %v", got.BestWidth)
	}
	if got.ErrorMessage != nil {
		t.Errorf("expected no error message, got %q", *got.ErrorMessage)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected created_at to be set by the database")
	}
}

func TestLookupRepository_GetLatest_NotFound(t *testing.T) {
	deps := setupTestDB(t)

	_, err := deps.lookupRepo.GetLatest(context.Background(), "https://nowhere.example/")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLookupRepository_GetLatest_ReturnsNewest(t *testing.T) {
	deps := setupTestDB(t)
	ctx := context.Background()

	for _, status := range []model.LookupStatus{model.StatusFailed, model.StatusEmpty, model.StatusFound} {
		l := &model.Lookup{PageURL: "https://example.com/", Host: "example.com", Status: status, Source: model.SourceNone}
		if err := deps.lookupRepo.Create(ctx, l); err != nil {
			t.Fatalf("creating lookup: %v", err)
		}
	}

	got, err := deps.lookupRepo.GetLatest(ctx, "https://example.com/")
	if err != nil {
		t.Fatalf("getting lookup: %v", err)
	}
	if got.Status != model.StatusFound {
		t.Errorf("expected newest lookup (found), got %s", got.Status)
	}
}

func TestLookupRepository_CountAndList(t *testing.T) {
	deps := setupTestDB(t)
	ctx := context.Background()

	rows := []struct {
		pageURL string
		host    string
		status  model.LookupStatus
	}{
		{"https://a.example/", "a.example", model.StatusFound},
		{"https://a.example/blog", "a.example", model.StatusEmpty},
		{"https://b.example/", "b.example", model.StatusFound},
		{"https://c.example/", "c.example", model.StatusFailed},
	}
	for _, r := range rows {
		l := &model.Lookup{PageURL: r.pageURL, Host: r.host, Status: r.status, Source: model.SourceScraper}
		if r.status == model.StatusFailed {
			l.ErrorMessage = ptr("connection refused")
		}
		if err := deps.lookupRepo.Create(ctx, l); err != nil {
			t.Fatalf("creating lookup %s: %v", r.pageURL, err)
		}
	}

	count, err := deps.lookupRepo.Count(ctx)
	if err != nil {
		t.Fatalf("counting lookups: %v", err)
	}
	if count != 4 {
		t.Errorf("expected 4 lookups, got %d", count)
	}

	found, err := deps.lookupRepo.CountByStatus(ctx, model.StatusFound)
	if err != nil {
		t.Fatalf("counting found lookups: %v", err)
	}
	if found != 2 {
		t.Errorf("expected 2 found lookups, got %d", found)
	}

	recent, err := deps.lookupRepo.ListRecent(ctx, 3)
	if err != nil {
		t.Fatalf("listing recent lookups: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 recent lookups, got %d", len(recent))
	}
	if recent[0].PageURL != "https://c.example/" {
		t.Errorf("expected newest first, got %s", recent[0].PageURL)
	}
	if recent[0].ErrorMessage == nil || *recent[0].ErrorMessage != "connection refused" {
		t.Errorf("expected error message to round trip, got %v", recent[0].ErrorMessage)
	}

	byHost, err := deps.lookupRepo.ListByHost(ctx, "a.example", 10)
	if err != nil {
		t.Fatalf("listing lookups by host: %v", err)
	}
	if len(byHost) != 2 {
		t.Errorf("expected 2 lookups for a.example, got %d", len(byHost))
	}
}

func TestLLMCallRepository_Create(t *testing.T) {
	deps := setupTestDB(t)
	ctx := context.Background()

	call := &model.LLMCall{
		PageURL:    "https://example.com/",
		Provider:   "anthropic",
		Model:      "claude-sonnet-4-5-20250929",
		ResultURL:  ptr("https://example.com/favicon.png"),
		Success:    true,
		DurationMs: ptr(int64(1500)),
	}
	if err := deps.llmCallRepo.Create(ctx, call); err != nil {
		t.Fatalf("creating llm call: %v", err)
	}
	if call.ID == 0 {
		t.Error("expected llm call ID to be set after create")
	}

	count, err := deps.llmCallRepo.CountByPageURL(ctx, "https://example.com/")
	if err != nil {
		t.Fatalf("counting llm calls: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 llm call, got %d", count)
	}

	total, err := deps.llmCallRepo.Count(ctx)
	if err != nil {
		t.Fatalf("counting all llm calls: %v", err)
	}
	if total != 1 {
		t.Errorf("expected 1 llm call in total, got %d", total)
	}
}
