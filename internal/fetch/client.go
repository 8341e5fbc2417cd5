// Package fetch is the HTTP transport used by the scraper: one GET per call,
// returning status, headers and the (size-limited) body.
// Everything above this package treats the network as "perform GET, return
// status/headers/body". No retries, no caching.
package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultMaxBodyBytes caps how much of a response body is read (10MB).
const DefaultMaxBodyBytes = 10 << 20

// Response is a fully-read HTTP response.
type Response struct {
	// URL is the final URL after redirects.
	URL        *url.URL
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Success reports whether the status code is in the 2xx range.
func (r *Response) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ContentType returns the lowercased media type without parameters,
// or "" if the header is absent or unparseable.
func (r *Response) ContentType() string {
	mediaType, _ := r.mediaType()
	return mediaType
}

// Charset returns the charset parameter of the Content-Type header, if any.
func (r *Response) Charset() string {
	_, params := r.mediaType()
	return params["charset"]
}

func (r *Response) mediaType() (string, map[string]string) {
	raw := strings.TrimSpace(r.Header.Get("Content-Type"))
	if raw == "" {
		return "", nil
	}
	mediaType, params, err := mime.ParseMediaType(raw)
	if err != nil {
		// Some servers send junk parameters; keep the bare type if there is one.
		bare, _, _ := strings.Cut(raw, ";")
		return strings.ToLower(strings.TrimSpace(bare)), nil
	}
	return mediaType, params
}

// Client performs GET requests. Implementations must be safe for concurrent use.
type Client interface {
	Get(ctx context.Context, rawURL string) (*Response, error)
}

// Options configures an HTTPClient.
type Options struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int64
	// RequestsPerSecond limits outbound requests across the client. Zero disables the limiter.
	RequestsPerSecond float64
}

// HTTPClient is the net/http implementation of Client.
type HTTPClient struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
	limiter      *rate.Limiter // nil when unlimited
}

// NewHTTPClient creates a Client with the given options. Zero values fall back
// to sensible defaults.
func NewHTTPClient(opts Options) *HTTPClient {
	if opts.UserAgent == "" {
		opts.UserAgent = "icon-service/1.0"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}

	c := &HTTPClient{
		client:       &http.Client{Timeout: opts.Timeout},
		userAgent:    opts.UserAgent,
		maxBodyBytes: opts.MaxBodyBytes,
	}
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return c
}

// Get issues a GET for rawURL and reads the whole body. Non-2xx responses are
// not errors here; callers decide what a bad status means for them.
func (c *HTTPClient) Get(ctx context.Context, rawURL string) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading body of %s: %w", rawURL, err)
	}

	return &Response{
		URL:        resp.Request.URL,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}
