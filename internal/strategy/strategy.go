// Package strategy holds the ways we guess where a page keeps its icons.
//
// Each Strategy looks at a fetched page and returns candidates. The scraper
// runs them in a fixed order and concatenates the results, so the order of
// strategies (and of candidates within one) is the tie-break when two icons
// end up with the same area.
package strategy

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/fleveque/icon-service/internal/icon"
)

// Page is the input every strategy works from.
type Page struct {
	// URL is the page URL the lookup was started with.
	URL *url.URL

	// FinalURL is where the page was served from after redirects. Relative
	// references resolve against it. Nil means URL.
	FinalURL *url.URL

	// Document is the parsed page, or nil when it could not be fetched or parsed.
	Document *goquery.Document
}

// Strategy produces icon candidates for a page.
type Strategy interface {
	Name() string
	Guess(ctx context.Context, page *Page) []*icon.Icon
}

// BaseURL is the URL relative references on the page resolve against:
// <base href> if present, otherwise the final page URL.
func (p *Page) BaseURL() *url.URL {
	base := p.FinalURL
	if base == nil {
		base = p.URL
	}
	if p.Document == nil {
		return base
	}

	href, ok := p.Document.Find("base[href]").First().Attr("href")
	if !ok {
		return base
	}
	if u, err := resolve(base, href); err == nil {
		return u
	}
	return base
}

// resolve turns href into an absolute http(s) URL relative to base.
func resolve(base *url.URL, href string) (*url.URL, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return nil, fmt.Errorf("%w: empty reference", icon.ErrMalformedURL)
	}

	ref, err := url.Parse(href)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", icon.ErrMalformedURL, err)
	}

	u := base.ResolveReference(ref)
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", icon.ErrMalformedURL, u.Scheme)
	}
	u.Fragment = ""
	return u, nil
}
