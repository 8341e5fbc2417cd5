package strategy

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/fleveque/icon-service/internal/fetch"
	"github.com/fleveque/icon-service/internal/icon"
)

const faviconName = "favicon.ico"

// FallbackPath tries the conventional favicon.ico location in every directory
// from the page's own up to the site root, nearest first, and stops at the
// first one that fetches and decodes.
//
// Unlike LinkRel this strategy does network I/O while guessing, so what it
// returns has already been validated.
type FallbackPath struct {
	Client fetch.Client
	Logger *zap.Logger
}

func (s *FallbackPath) Name() string { return "fallback-path" }

func (s *FallbackPath) Guess(ctx context.Context, page *Page) []*icon.Icon {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	for _, u := range FaviconURLs(page.URL) {
		ic := icon.New(u)
		err := ic.Fetch(ctx, s.Client)
		if err == nil {
			return []*icon.Icon{ic}
		}
		if ctx.Err() != nil {
			return nil
		}
		logger.Debug("no favicon", zap.String("url", u.String()), zap.Error(err))
	}
	return nil
}

// FaviconURLs lists the favicon.ico URLs for every directory level of pageURL,
// replacing the last path segment first and ending at /favicon.ico.
// Query and fragment are dropped.
//
// The walk runs over the escaped path, so an encoded slash ("/a%2Fb/c") stays
// inside its segment instead of adding a directory level.
func FaviconURLs(pageURL *url.URL) []*url.URL {
	p := pageURL.EscapedPath()
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	dir := p[:strings.LastIndex(p, "/")+1]
	var urls []*url.URL
	for {
		u := *pageURL
		u.RawPath = dir + faviconName
		if path, err := url.PathUnescape(u.RawPath); err == nil {
			u.Path = path
		} else {
			u.Path = u.RawPath
		}
		u.RawQuery = ""
		u.ForceQuery = false
		u.Fragment = ""
		u.RawFragment = ""
		urls = append(urls, &u)

		if dir == "/" {
			return urls
		}
		dir = dir[:strings.LastIndex(strings.TrimSuffix(dir, "/"), "/")+1]
	}
}
