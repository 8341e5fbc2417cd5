// Package service contains the business logic of the icon service.
// IconService runs one lookup as a layered pipeline:
//
//	Layer 1: Scraper    the page's own markup hints and favicon.ico paths
//	Layer 2: Providers  icon mirrors, then an LLM web search, in configured order
//
// Every lookup is recorded in the history table. Nothing is cached: each
// lookup fetches the page again.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fleveque/icon-service/internal/fetch"
	"github.com/fleveque/icon-service/internal/icon"
	"github.com/fleveque/icon-service/internal/imageformat"
	"github.com/fleveque/icon-service/internal/model"
	"github.com/fleveque/icon-service/internal/provider"
	"github.com/fleveque/icon-service/internal/scraper"
	"github.com/fleveque/icon-service/internal/storage"
)

var (
	// ErrNoIcon is returned by Best when a lookup found nothing.
	ErrNoIcon = errors.New("no icon found")

	// ErrNoStore is returned by Save when no icon directory is configured.
	ErrNoStore = errors.New("icon store not configured")
)

// LookupResult is the outcome of one lookup.
type LookupResult struct {
	PageURL *url.URL
	Icons   *icon.Collection
	Source  string        // model.SourceScraper, a provider source, or model.SourceNone
	Record  *model.Lookup // the history row, nil if it could not be written
}

// IconService is the main entry point for icon lookups.
type IconService struct {
	client     fetch.Client
	opts       scraper.Options
	lookupRepo storage.LookupRepository // nil disables history
	fs         *storage.FileSystem      // nil disables Save
	providers  []provider.IconProvider
	logger     *zap.Logger
}

// NewIconService wires the pipeline. lookupRepo, fs and providers may be nil.
func NewIconService(
	client fetch.Client,
	opts scraper.Options,
	lookupRepo storage.LookupRepository,
	fs *storage.FileSystem,
	providers []provider.IconProvider,
	logger *zap.Logger,
) *IconService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IconService{
		client:     client,
		opts:       opts,
		lookupRepo: lookupRepo,
		fs:         fs,
		providers:  providers,
		logger:     logger,
	}
}

// Lookup discovers the icons of pageURL. A malformed URL is rejected before
// anything is fetched or recorded. A page that cannot be fetched is recorded
// as failed and its error returned. An empty result is not an error.
func (s *IconService) Lookup(ctx context.Context, pageURL string) (*LookupResult, error) {
	start := time.Now()

	sc, err := scraper.New(pageURL, s.client, s.opts, s.logger)
	if err != nil {
		return nil, err
	}

	icons, err := s.scrape(ctx, sc)
	if err != nil {
		s.record(ctx, sc.URL(), nil, model.SourceNone, start, err)
		return nil, err
	}

	source := model.SourceScraper
	if icons.Len() == 0 {
		source = model.SourceNone
		if res := s.fromProviders(ctx, sc.URL()); res != nil {
			icons = icon.NewCollection([]*icon.Icon{res.Icon})
			source = res.Source
		}
	}

	return &LookupResult{
		PageURL: sc.URL(),
		Icons:   icons,
		Source:  source,
		Record:  s.record(ctx, sc.URL(), icons, source, start, nil),
	}, nil
}

// Best looks pageURL up and picks one icon: the smallest covering
// minWidth × minHeight, or the largest when both are zero or none is big enough.
func (s *IconService) Best(ctx context.Context, pageURL string, minWidth, minHeight int) (*icon.Icon, *LookupResult, error) {
	res, err := s.Lookup(ctx, pageURL)
	if err != nil {
		return nil, nil, err
	}

	var best *icon.Icon
	if minWidth <= 0 && minHeight <= 0 {
		best = res.Icons.Largest()
	} else {
		best = res.Icons.AtLeast(minWidth, minHeight)
	}
	if best == nil {
		return nil, res, fmt.Errorf("%w for %s", ErrNoIcon, res.PageURL)
	}
	return best, res, nil
}

// Image returns the bytes and MIME type of ic, fetching it first if it was
// sized from markup alone.
func (s *IconService) Image(ctx context.Context, ic *icon.Icon) ([]byte, string, error) {
	if !ic.Fetched() {
		if err := ic.Fetch(ctx, s.client); err != nil {
			return nil, "", fmt.Errorf("fetching %s: %w", ic.URL, err)
		}
	}
	return ic.Raw, ic.MIMEType, nil
}

// Save writes ic to the icon store under host and returns the file path.
func (s *IconService) Save(ctx context.Context, host string, ic *icon.Icon) (string, error) {
	if s.fs == nil {
		return "", ErrNoStore
	}

	data, mimeType, err := s.Image(ctx, ic)
	if err != nil {
		return "", err
	}
	size, _ := ic.Size()
	ext := imageformat.Extension(mimeType)
	replaced := s.fs.Exists(host, size, ext)

	path, err := s.fs.Write(host, size, ext, data)
	if err != nil {
		return "", fmt.Errorf("saving icon for %s: %w", host, err)
	}

	s.logger.Info("saved icon",
		zap.String("host", host),
		zap.String("url", ic.URL.String()),
		zap.String("path", path),
		zap.Bool("replaced", replaced),
	)
	return path, nil
}

func (s *IconService) scrape(ctx context.Context, sc *scraper.Scraper) (*icon.Collection, error) {
	if err := sc.FetchDocument(ctx); err != nil {
		return nil, err
	}
	return sc.DiscoverIcons(ctx)
}

// fromProviders asks each provider in turn and returns the first hit.
func (s *IconService) fromProviders(ctx context.Context, pageURL *url.URL) *provider.Result {
	for _, p := range s.providers {
		res, err := p.FindIcon(ctx, pageURL)
		if err == nil {
			s.logger.Info("found icon via provider",
				zap.String("page_url", pageURL.String()),
				zap.String("source", res.Source),
			)
			return res
		}
		if ctx.Err() != nil {
			return nil
		}
		s.logger.Debug("provider miss",
			zap.String("provider", p.Name()),
			zap.String("page_url", pageURL.String()),
			zap.Error(err),
		)
	}
	return nil
}

// record writes the history row. Failures are logged, not returned.
func (s *IconService) record(ctx context.Context, pageURL *url.URL, icons *icon.Collection, source string, start time.Time, lookupErr error) *model.Lookup {
	if s.lookupRepo == nil {
		return nil
	}

	lookup := &model.Lookup{
		PageURL:    pageURL.String(),
		Host:       pageURL.Hostname(),
		Status:     model.StatusEmpty,
		Source:     source,
		DurationMs: time.Since(start).Milliseconds(),
	}

	switch {
	case lookupErr != nil:
		msg := lookupErr.Error()
		lookup.Status = model.StatusFailed
		lookup.ErrorMessage = &msg
	case icons.Len() > 0:
		best := icons.Largest()
		size, _ := best.Size()
		bestURL := best.URL.String()
		lookup.Status = model.StatusFound
		lookup.IconCount = icons.Len()
		lookup.BestURL = &bestURL
		lookup.BestWidth = &size.Width
		lookup.BestHeight = &size.Height
		if best.MIMEType != "" {
			mimeType := best.MIMEType
			lookup.BestMIMEType = &mimeType
		}
	}

	// Record even when the caller has given up on the lookup.
	if err := s.lookupRepo.Create(context.WithoutCancel(ctx), lookup); err != nil {
		s.logger.Error("recording lookup",
			zap.String("page_url", lookup.PageURL),
			zap.Error(err),
		)
		return nil
	}
	return lookup
}

// BatchStats tracks the results of a LookupAll run.
type BatchStats struct {
	Total  int
	Found  int
	Empty  int
	Failed int
	Errors []string
}

// LookupAll looks up many pages, at most concurrency at a time. The callback
// is called once per page as lookups finish, never concurrently. It stops
// early only when ctx is cancelled.
func (s *IconService) LookupAll(
	ctx context.Context,
	pageURLs []string,
	concurrency int,
	callback func(pageURL string, res *LookupResult, err error),
) (*BatchStats, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	var (
		mu    sync.Mutex
		stats = &BatchStats{}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, pageURL := range pageURLs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := s.Lookup(gctx, pageURL)

			mu.Lock()
			defer mu.Unlock()

			stats.Total++
			switch {
			case err != nil:
				stats.Failed++
				stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", pageURL, err))
			case res.Icons.Len() > 0:
				stats.Found++
			default:
				stats.Empty++
			}
			if callback != nil {
				callback(pageURL, res, err)
			}

			if stats.Total%100 == 0 {
				s.logger.Info("batch progress",
					zap.Int("done", stats.Total),
					zap.Int("of", len(pageURLs)),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("batch complete",
		zap.Int("total", stats.Total),
		zap.Int("found", stats.Found),
		zap.Int("empty", stats.Empty),
		zap.Int("failed", stats.Failed),
	)

	return stats, ctx.Err()
}
