package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/fleveque/icon-service/internal/fetch"
	"github.com/fleveque/icon-service/internal/icon"
	"github.com/fleveque/icon-service/internal/testutil"
)

func html(head string) testutil.Resource {
	return testutil.Resource{
		ContentType: "text/html; charset=utf-8",
		Body:        []byte("<!DOCTYPE html><html><head>" + head + "</head><body></body></html>"),
	}
}

func newScraper(t *testing.T, rawURL string, opts Options) *Scraper {
	t.Helper()
	s, err := New(rawURL, fetch.NewHTTPClient(fetch.Options{}), opts, nil)
	if err != nil {
		t.Fatalf("creating scraper: %v", err)
	}
	return s
}

func paths(c *icon.Collection) []string {
	var out []string
	for _, ic := range c.Icons() {
		out = append(out, ic.URL.Path)
	}
	return out
}

func TestNew_RejectsMalformedURLs(t *testing.T) {
	for _, raw := range []string{"", "example.com", "/relative/path", "ftp://example.com/", "http://", "http://[::1"} {
		t.Run(raw, func(t *testing.T) {
			_, err := New(raw, fetch.NewHTTPClient(fetch.Options{}), Options{}, nil)
			if !errors.Is(err, icon.ErrMalformedURL) {
				t.Errorf("expected ErrMalformedURL for %q, got %v", raw, err)
			}
		})
	}
}

func TestDiscoverIcons_RequiresFetch(t *testing.T) {
	s := newScraper(t, "http://example.com/", Options{})
	if _, err := s.DiscoverIcons(context.Background()); !errors.Is(err, ErrNotFetched) {
		t.Fatalf("expected ErrNotFetched, got %v", err)
	}
}

func TestFetchDocument_TransportError(t *testing.T) {
	site := testutil.NewSite(t, nil)
	s := newScraper(t, site.At("/"), Options{})
	site.Close()

	if err := s.FetchDocument(context.Background()); !errors.Is(err, icon.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if _, err := s.DiscoverIcons(context.Background()); !errors.Is(err, ErrNotFetched) {
		t.Fatalf("expected ErrNotFetched after a failed fetch, got %v", err)
	}
}

func TestDiscoverIcons_RanksAllStrategies(t *testing.T) {
	site := testutil.NewSite(t, map[string]testutil.Resource{
		"/": html(`
			<link rel="apple-touch-icon" sizes="180x180" href="/apple-touch-icon.png">
			<link rel="icon" type="image/png" sizes="16x16" href="/favicon-16.png">
			<link rel="icon" href="/no-sizes.png">`),
		"/favicon.ico": {ContentType: "image/x-icon", Body: testutil.ICO(16, 32)},
	})

	s := newScraper(t, site.At("/"), Options{TrustDeclaredSizes: true, Concurrency: 4})
	if err := s.FetchDocument(context.Background()); err != nil {
		t.Fatalf("FetchDocument failed: %v", err)
	}
	icons, err := s.DiscoverIcons(context.Background())
	if err != nil {
		t.Fatalf("DiscoverIcons failed: %v", err)
	}

	got := paths(icons)
	want := []string{"/favicon-16.png", "/favicon.ico", "/apple-touch-icon.png"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, got)
	}

	if l := icons.Largest(); l.URL.Path != "/apple-touch-icon.png" {
		t.Errorf("expected apple-touch-icon to be largest, got %s", l.URL.Path)
	}
	if a := icons.AtLeast(20, 20); a.URL.Path != "/favicon.ico" {
		t.Errorf("expected favicon.ico for 20x20, got %s", a.URL.Path)
	}

	// Trusted declarations are never downloaded.
	if site.Hits("/apple-touch-icon.png") != 0 || site.Hits("/favicon-16.png") != 0 {
		t.Error("expected trusted icons not to be fetched")
	}
	if site.Hits("/no-sizes.png") != 0 {
		t.Error("expected link without sizes to be ignored")
	}
}

func TestDiscoverIcons_VerifiesDeclaredSizes(t *testing.T) {
	site := testutil.NewSite(t, map[string]testutil.Resource{
		"/": html(`
			<link rel="icon" sizes="16x16" href="/liar.png">
			<link rel="icon" sizes="32x32" href="/honest.png">`),
		"/liar.png":   {ContentType: "image/png", Body: testutil.PNG(64, 64)},
		"/honest.png": {ContentType: "image/png", Body: testutil.PNG(32, 32)},
	})

	icons, err := Discover(context.Background(), site.At("/"), fetch.NewHTTPClient(fetch.Options{}),
		Options{TrustDeclaredSizes: false, Concurrency: 2}, nil)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	got := paths(icons)
	if strings.Join(got, ",") != "/honest.png,/liar.png" {
		t.Fatalf("expected decoded sizes to decide the ranking, got %v", got)
	}
	if l := icons.Largest(); l.Width() != 64 || l.Declared.Width != 16 {
		t.Errorf("expected largest to be 64 wide (declared 16), got %d (declared %d)", l.Width(), l.Declared.Width)
	}
}

func TestDiscoverIcons_DropsFailingCandidates(t *testing.T) {
	site := testutil.NewSite(t, map[string]testutil.Resource{
		"/": html(`
			<link rel="icon" sizes="0x0" href="/missing.png">
			<link rel="icon" sizes="0x0" href="/page.html">
			<link rel="icon" sizes="0x0" href="/good.png">
			<link rel="icon" sizes="0x0" href="/broken.png">`),
		"/page.html":  html(""),
		"/good.png":   {ContentType: "image/png", Body: testutil.PNG(48, 48)},
		"/broken.png": {ContentType: "image/png", Body: []byte("nope")},
	})

	icons, err := Discover(context.Background(), site.At("/"), fetch.NewHTTPClient(fetch.Options{}),
		Options{TrustDeclaredSizes: true}, nil)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	// 0x0 declarations are not trusted, so every candidate was fetched; only one survives.
	got := paths(icons)
	if len(got) != 1 || got[0] != "/good.png" {
		t.Fatalf("expected only /good.png, got %v", got)
	}
	for _, p := range []string{"/missing.png", "/page.html", "/broken.png", "/good.png"} {
		if site.Hits(p) != 1 {
			t.Errorf("expected %s to be fetched once, got %d", p, site.Hits(p))
		}
	}
}

func TestDiscoverIcons_EqualAreasKeepEmissionOrder(t *testing.T) {
	var head strings.Builder
	resources := map[string]testutil.Resource{}
	var want []string
	for i := 0; i < 12; i++ {
		p := fmt.Sprintf("/icon-%02d.png", i)
		fmt.Fprintf(&head, `<link rel="icon" sizes="32x32" href="%s">`, p)
		resources[p] = testutil.Resource{ContentType: "image/png", Body: testutil.PNG(32, 32)}
		want = append(want, p)
	}
	resources["/favicon.ico"] = testutil.Resource{ContentType: "image/x-icon", Body: testutil.ICO(32)}
	want = append(want, "/favicon.ico")
	resources["/"] = html(head.String())

	site := testutil.NewSite(t, resources)

	icons, err := Discover(context.Background(), site.At("/"), fetch.NewHTTPClient(fetch.Options{}),
		Options{TrustDeclaredSizes: false, Concurrency: 8}, nil)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	if got := paths(icons); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected emission order %v, got %v", want, got)
	}
	if icons.Largest().URL.Path != "/icon-00.png" {
		t.Errorf("expected the first emitted icon to win the tie, got %s", icons.Largest().URL.Path)
	}
}

func TestDiscoverIcons_ErrorPageStillParsed(t *testing.T) {
	notFound := html(`<link rel="icon" sizes="32x32" href="/brand.png">`)
	notFound.Status = 404
	site := testutil.NewSite(t, map[string]testutil.Resource{
		"/missing": notFound,
	})

	icons, err := Discover(context.Background(), site.At("/missing"), fetch.NewHTTPClient(fetch.Options{}),
		Options{TrustDeclaredSizes: true}, nil)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if icons.Len() != 1 || icons.Largest().URL.Path != "/brand.png" {
		t.Fatalf("expected the error page's icon, got %v", paths(icons))
	}
}

func TestDiscoverIcons_NonHTMLDocument(t *testing.T) {
	site := testutil.NewSite(t, map[string]testutil.Resource{
		"/report.pdf":  {ContentType: "application/pdf", Body: []byte("%PDF-1.4 binary")},
		"/favicon.ico": {ContentType: "image/x-icon", Body: testutil.ICO(16)},
	})

	icons, err := Discover(context.Background(), site.At("/report.pdf"), fetch.NewHTTPClient(fetch.Options{}),
		Options{}, nil)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if icons.Len() != 1 || icons.Largest().URL.Path != "/favicon.ico" {
		t.Fatalf("expected fallback favicon, got %v", paths(icons))
	}
}

func TestDiscoverIcons_NothingFound(t *testing.T) {
	site := testutil.NewSite(t, map[string]testutil.Resource{
		"/": html("<title>no icons here</title>"),
	})

	icons, err := Discover(context.Background(), site.At("/"), fetch.NewHTTPClient(fetch.Options{}), Options{}, nil)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if icons.Len() != 0 || icons.Largest() != nil || icons.AtLeast(1, 1) != nil {
		t.Error("expected an empty collection")
	}
}

func TestDiscoverIcons_Cancelled(t *testing.T) {
	site := testutil.NewSite(t, map[string]testutil.Resource{
		"/":            html(`<link rel="icon" sizes="16x16" href="/a.png">`),
		"/a.png":       {ContentType: "image/png", Body: testutil.PNG(16, 16)},
		"/favicon.ico": {ContentType: "image/x-icon", Body: testutil.ICO(16)},
	})

	s := newScraper(t, site.At("/"), Options{})
	if err := s.FetchDocument(context.Background()); err != nil {
		t.Fatalf("FetchDocument failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	icons, err := s.DiscoverIcons(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if icons != nil {
		t.Error("expected no collection after cancellation")
	}
}
