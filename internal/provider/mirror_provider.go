package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/fleveque/icon-service/internal/fetch"
	"github.com/fleveque/icon-service/internal/icon"
)

// MirrorProvider downloads icons from third-party favicon mirrors: services
// that serve any site's icon under a URL built from its host name, such as
// https://icons.duckduckgo.com/ip3/{host}.ico.
//
// Each template's "{host}" is replaced with the page's host name (no port).
// Templates are tried in order; the first icon that decodes wins.
type MirrorProvider struct {
	templates []string
	client    fetch.Client
	logger    *zap.Logger
}

// NewMirrorProvider creates a provider for the given URL templates.
// A nil logger discards output.
func NewMirrorProvider(templates []string, client fetch.Client, logger *zap.Logger) *MirrorProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MirrorProvider{
		templates: templates,
		client:    client,
		logger:    logger,
	}
}

func (m *MirrorProvider) Name() string { return "mirror" }

// FindIcon asks each mirror in turn.
func (m *MirrorProvider) FindIcon(ctx context.Context, pageURL *url.URL) (*Result, error) {
	host := strings.ToLower(pageURL.Hostname())
	if host == "" {
		return nil, fmt.Errorf("%w: page url has no host", icon.ErrMalformedURL)
	}

	for _, tpl := range m.templates {
		u, err := MirrorURL(tpl, host)
		if err != nil {
			m.logger.Warn("skipping mirror template", zap.String("template", tpl), zap.Error(err))
			continue
		}

		ic := icon.New(u)
		if err := ic.Fetch(ctx, m.client); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			m.logger.Debug("icon not found on mirror",
				zap.String("mirror", u.Host),
				zap.String("host", host),
				zap.Error(err),
			)
			continue
		}

		return &Result{Icon: ic, Source: "mirror:" + u.Host}, nil
	}

	return nil, fmt.Errorf("%w: no mirror has an icon for %s", ErrNoIcon, host)
}

// MirrorURL expands a mirror template for host. The result must be an
// absolute http(s) URL.
func MirrorURL(template, host string) (*url.URL, error) {
	if !strings.Contains(template, "{host}") {
		return nil, fmt.Errorf("%w: template %q has no {host} placeholder", icon.ErrMalformedURL, template)
	}

	u, err := url.Parse(strings.ReplaceAll(template, "{host}", url.PathEscape(host)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", icon.ErrMalformedURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not an absolute http(s) url", icon.ErrMalformedURL, u)
	}
	return u, nil
}
