package provider

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fleveque/icon-service/internal/fetch"
	"github.com/fleveque/icon-service/internal/icon"
	"github.com/fleveque/icon-service/internal/llm"
	"github.com/fleveque/icon-service/internal/model"
	"github.com/fleveque/icon-service/internal/storage"
)

// LLMProvider asks an LLM (Claude or OpenAI) to search the web for a site's
// icon, then downloads and decodes whatever URL it suggests. A suggestion that
// is not a decodable image counts as a miss.
//
// Calls are rate limited (llm.rate_per_minute) to bound API costs, and every
// call is recorded in the llm_calls table. Clients are tried in configured
// order; the first validated icon wins.
type LLMProvider struct {
	clients     []llm.Client
	limiter     *rate.Limiter
	llmCallRepo storage.LLMCallRepository // may be nil
	client      fetch.Client
	logger      *zap.Logger
}

// NewLLMProvider creates a provider with an ordered list of LLM clients.
// A ratePerMinute of zero or less disables the limiter; a nil logger discards output.
func NewLLMProvider(
	clients []llm.Client,
	ratePerMinute int,
	llmCallRepo storage.LLMCallRepository,
	client fetch.Client,
	logger *zap.Logger,
) *LLMProvider {
	if logger == nil {
		logger = zap.NewNop()
	}

	limit := rate.Inf
	if ratePerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(ratePerMinute))
	}

	return &LLMProvider{
		clients:     clients,
		limiter:     rate.NewLimiter(limit, 1),
		llmCallRepo: llmCallRepo,
		client:      client,
		logger:      logger,
	}
}

func (p *LLMProvider) Name() string { return "llm" }

// FindIcon tries each LLM client in order.
func (p *LLMProvider) FindIcon(ctx context.Context, pageURL *url.URL) (*Result, error) {
	if len(p.clients) == 0 {
		return nil, fmt.Errorf("%w: no LLM providers configured", ErrNoIcon)
	}

	var errs []error
	for i, client := range p.clients {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		result, err := p.tryClient(ctx, client, pageURL)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		errs = append(errs, fmt.Errorf("%s: %w", client.ProviderName(), err))

		if i < len(p.clients)-1 {
			p.logger.Warn("LLM provider failed, trying next",
				zap.String("page_url", pageURL.String()),
				zap.String("provider", client.ProviderName()),
				zap.Error(err),
			)
		}
	}

	return nil, fmt.Errorf("%w: all LLM providers failed for %s: %w", ErrNoIcon, pageURL, errors.Join(errs...))
}

func (p *LLMProvider) tryClient(ctx context.Context, client llm.Client, pageURL *url.URL) (*Result, error) {
	start := time.Now()
	found, err := client.FindIconURL(ctx, pageURL.String())
	p.recordCall(ctx, client, pageURL, found, err, time.Since(start).Milliseconds())
	if err != nil {
		return nil, err
	}

	// Models sometimes answer with a path; resolve it against the page.
	ref, err := url.Parse(found.IconURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", icon.ErrMalformedURL, err)
	}
	u := pageURL.ResolveReference(ref)
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q is not an http(s) url", icon.ErrMalformedURL, found.IconURL)
	}

	ic := icon.New(u)
	if err := ic.Fetch(ctx, p.client); err != nil {
		return nil, fmt.Errorf("validating %s: %w", u, err)
	}

	return &Result{Icon: ic, Source: "llm:" + client.ProviderName()}, nil
}

func (p *LLMProvider) recordCall(ctx context.Context, client llm.Client, pageURL *url.URL, result *llm.IconSearchResult, callErr error, durationMs int64) {
	if p.llmCallRepo == nil {
		return
	}

	call := &model.LLMCall{
		PageURL:    pageURL.String(),
		Provider:   client.ProviderName(),
		Model:      client.ModelName(),
		Success:    callErr == nil,
		DurationMs: &durationMs,
	}
	if result != nil {
		call.ResultURL = &result.IconURL
	}

	if err := p.llmCallRepo.Create(ctx, call); err != nil {
		p.logger.Error("recording LLM call", zap.Error(err))
	}
}
