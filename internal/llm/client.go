// Package llm asks a language model with web search to find the icon of a
// site when scraping the page turned up nothing. The model answers through a
// submit_icon_url tool call so the result comes back as structured JSON.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// submitToolName is the tool both providers are told to call with their answer.
const submitToolName = "submit_icon_url"

// maxTurns bounds the search/tool-call loop.
const maxTurns = 5

// ErrNoIconFound is returned when the model finishes without submitting a usable URL.
var ErrNoIconFound = errors.New("llm found no icon")

// IconSearchResult contains the result of an LLM-powered icon search.
type IconSearchResult struct {
	IconURL    string // Direct URL to the icon image
	SiteName   string // Name of the site as the model understood it
	Source     string // Where the URL was found (e.g., "the page's manifest.json")
	Confidence string // "high", "medium", "low"
}

// Client is the interface for LLM providers that can search for site icons.
// Anthropic and OpenAI implement it; the provider tries them in order.
type Client interface {
	FindIconURL(ctx context.Context, pageURL string) (*IconSearchResult, error)
	ProviderName() string
	ModelName() string
}

// submission is the argument schema of the submit tool.
type submission struct {
	IconURL    string `json:"icon_url"`
	SiteName   string `json:"site_name"`
	Source     string `json:"source"`
	Confidence string `json:"confidence"`
}

// submitToolProperties is the JSON schema of the submit tool's arguments.
func submitToolProperties() map[string]any {
	return map[string]any{
		"icon_url": map[string]any{
			"type":        "string",
			"description": "Absolute http(s) URL of the icon image itself (ICO, PNG, JPEG, GIF, SVG or WebP), not of a web page.",
		},
		"site_name": map[string]any{
			"type":        "string",
			"description": "The name of the site or organisation the page belongs to.",
		},
		"source": map[string]any{
			"type":        "string",
			"description": "Where the URL was found, e.g. 'page <link> tag', 'web app manifest', 'search result'.",
		},
		"confidence": map[string]any{
			"type":        "string",
			"enum":        []string{"high", "medium", "low"},
			"description": "How confident you are that this is the site's own icon.",
		},
	}
}

// parseSubmission decodes the submit tool's arguments.
func parseSubmission(raw []byte, pageURL string) (*IconSearchResult, error) {
	var s submission
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parsing tool input: %w", err)
	}

	iconURL := strings.TrimSpace(s.IconURL)
	if iconURL == "" {
		return nil, fmt.Errorf("%w for %s", ErrNoIconFound, pageURL)
	}

	return &IconSearchResult{
		IconURL:    iconURL,
		SiteName:   s.SiteName,
		Source:     s.Source,
		Confidence: s.Confidence,
	}, nil
}

// buildPrompt creates the user prompt for the LLM.
func buildPrompt(pageURL string) string {
	return fmt.Sprintf(`Find the site icon (favicon or touch icon) for the web page %s.

The page itself did not declare a usable icon, so search the web. Prefer, in order:
1. Icons referenced by the site's web app manifest
2. apple-touch-icon or favicon files served from the site's own domain
3. The site's official logo mark from its own domain or its Wikipedia article

Requirements for the icon URL:
- Must be a DIRECT link to an image file, not to an HTML page
- Prefer square images, the larger the better (at least 64x64 pixels)
- Must be the icon of this site, not of a parent company or a third party
- The URL must be publicly accessible (no authentication required)

Once you find the best icon, call the %s tool with the URL and details.
If you cannot find one, explain why in your response.`, pageURL, submitToolName)
}
