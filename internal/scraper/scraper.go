// Package scraper finds the icons of a web page.
//
// A Scraper is used once per page: FetchDocument downloads and parses the page,
// then DiscoverIcons runs every strategy, validates each candidate by sizing it,
// and ranks the survivors:
//
//	s, _ := scraper.New("https://example.com/", client, scraper.Options{}, logger)
//	if err := s.FetchDocument(ctx); err != nil { ... }
//	icons, _ := s.DiscoverIcons(ctx)
//	best := icons.AtLeast(64, 64)
//
// Only a failure to fetch the page itself is reported. A candidate that fails
// validation is dropped, and a page that does not parse just yields no markup
// candidates.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fleveque/icon-service/internal/fetch"
	"github.com/fleveque/icon-service/internal/icon"
	"github.com/fleveque/icon-service/internal/markup"
	"github.com/fleveque/icon-service/internal/strategy"
)

// ErrNotFetched is returned by DiscoverIcons when FetchDocument has not succeeded.
var ErrNotFetched = errors.New("document not fetched")

// Options tunes discovery.
type Options struct {
	// TrustDeclaredSizes accepts sizes from markup without downloading the icon.
	TrustDeclaredSizes bool

	// Concurrency is how many candidates are validated at once. Values below 1 mean 1.
	Concurrency int
}

// Scraper discovers the icons of one page. It is not safe for concurrent use.
type Scraper struct {
	documentURL *url.URL
	client      fetch.Client
	opts        Options
	strategies  []strategy.Strategy
	logger      *zap.Logger

	fetched  bool
	finalURL *url.URL
	doc      *goquery.Document // nil if the page did not parse
}

// New creates a Scraper for rawURL, which must be an absolute http(s) URL.
func New(rawURL string, client fetch.Client, opts Options, logger *zap.Logger) (*Scraper, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", icon.ErrMalformedURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not an absolute http(s) url", icon.ErrMalformedURL, rawURL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scraper{
		documentURL: u,
		client:      client,
		opts:        opts,
		// Markup hints first: their order is the tie-break for equal areas.
		strategies: []strategy.Strategy{
			&strategy.LinkRel{TrustDeclaredSizes: opts.TrustDeclaredSizes, Logger: logger},
			&strategy.FallbackPath{Client: client, Logger: logger},
		},
		logger: logger,
	}, nil
}

// URL returns the page URL the Scraper was created with.
func (s *Scraper) URL() *url.URL { return s.documentURL }

// FetchDocument downloads and parses the page. Only transport failures are
// returned; an error status or unparseable body leaves the Scraper usable
// with whatever (possibly nothing) could be parsed.
func (s *Scraper) FetchDocument(ctx context.Context) error {
	resp, err := s.client.Get(ctx, s.documentURL.String())
	if err != nil {
		return fmt.Errorf("%w: fetching document: %w", icon.ErrTransport, err)
	}

	s.fetched = true
	s.finalURL = resp.URL

	if !resp.Success() {
		s.logger.Info("document returned non-success status",
			zap.String("url", s.documentURL.String()),
			zap.Int("status", resp.StatusCode),
		)
	}

	doc, err := markup.Parse(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		s.logger.Warn("could not parse document",
			zap.String("url", s.documentURL.String()),
			zap.Error(err),
		)
		s.doc = nil
		return nil
	}
	s.doc = doc
	return nil
}

// DiscoverIcons runs the strategies, validates every candidate and ranks the
// ones that pass. Candidates are validated concurrently but ranked in the
// order the strategies produced them.
func (s *Scraper) DiscoverIcons(ctx context.Context) (*icon.Collection, error) {
	if !s.fetched {
		return nil, ErrNotFetched
	}

	page := &strategy.Page{
		URL:      s.documentURL,
		FinalURL: s.finalURL,
		Document: s.doc,
	}

	var candidates []*icon.Icon
	for _, st := range s.strategies {
		guesses := st.Guess(ctx, page)
		s.logger.Debug("strategy finished",
			zap.String("strategy", st.Name()),
			zap.Int("candidates", len(guesses)),
		)
		candidates = append(candidates, guesses...)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	valid, err := s.validate(ctx, candidates)
	if err != nil {
		return nil, err
	}

	s.logger.Info("icon discovery complete",
		zap.String("url", s.documentURL.String()),
		zap.Int("candidates", len(candidates)),
		zap.Int("validated", len(valid)),
	)

	return icon.NewCollection(valid), nil
}

// validate sizes every candidate, dropping those that fail. Results are
// collected by index so the output keeps the input order.
func (s *Scraper) validate(ctx context.Context, candidates []*icon.Icon) ([]*icon.Icon, error) {
	// Validation runs in parallel but the result must not depend on which
	// fetch finishes first: the collection's tie-break is emission order.
	// Each goroutine only writes its own slot of passed (no lock needed, the
	// indexes never overlap), and the survivors are gathered afterwards by
	// walking candidates in their original order.
	//
	// errgroup.SetLimit blocks g.Go once `limit` goroutines are running, which
	// bounds how many requests a single page can have in flight.
	passed := make([]bool, len(candidates))

	limit := s.opts.Concurrency
	if limit < 1 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, ic := range candidates {
		g.Go(func() error {
			if err := ic.EnsureSized(gctx, s.client); err != nil {
				s.logger.Debug("dropping candidate",
					zap.String("url", ic.URL.String()),
					zap.Error(err),
				)
				return nil
			}
			passed[i] = true
			return nil
		})
	}
	_ = g.Wait() // goroutines never fail; dropped candidates are logged

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	valid := make([]*icon.Icon, 0, len(candidates))
	for i, ic := range candidates {
		if passed[i] {
			valid = append(valid, ic)
		}
	}
	return valid, nil
}

// Discover is the one-shot form: New, FetchDocument, DiscoverIcons.
func Discover(ctx context.Context, rawURL string, client fetch.Client, opts Options, logger *zap.Logger) (*icon.Collection, error) {
	s, err := New(rawURL, client, opts, logger)
	if err != nil {
		return nil, err
	}
	if err := s.FetchDocument(ctx); err != nil {
		return nil, err
	}
	return s.DiscoverIcons(ctx)
}
