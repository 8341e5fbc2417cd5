// Package provider supplies site icons from sources other than the page's own
// markup. The service asks providers, in order, only when scraping the page
// found nothing.
package provider

import (
	"context"
	"errors"
	"net/url"

	"github.com/fleveque/icon-service/internal/icon"
)

// ErrNoIcon is returned when a provider has no icon for the page.
var ErrNoIcon = errors.New("provider has no icon")

// Result is an icon found by a provider. The icon has been fetched and decoded.
type Result struct {
	Icon   *icon.Icon
	Source string // e.g., "mirror:icons.duckduckgo.com", "llm:anthropic"
}

// IconProvider is the interface for secondary icon sources.
type IconProvider interface {
	// FindIcon returns a validated icon for the page, or an error wrapping ErrNoIcon.
	FindIcon(ctx context.Context, pageURL *url.URL) (*Result, error)

	// Name returns a human-readable name for the provider.
	Name() string
}
