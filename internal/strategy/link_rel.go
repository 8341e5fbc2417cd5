package strategy

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/fleveque/icon-service/internal/icon"
)

// iconRels are the rel tokens that mark a <link> as an icon.
var iconRels = map[string]struct{}{
	"icon":                         {},
	"apple-touch-icon":             {},
	"apple-touch-icon-precomposed": {},
}

// ErrInvalidSizes is returned by ParseSizes for anything but "<int>x<int>".
var ErrInvalidSizes = errors.New("invalid sizes attribute")

// LinkRel reads <link rel="icon" href=... sizes=...> hints from the markup.
// It never touches the network.
//
// Elements without a parseable sizes attribute are skipped: a hint we cannot
// rank is not worth a guess.
type LinkRel struct {
	// TrustDeclaredSizes makes the declared size the icon's size, so
	// validation does not download it.
	TrustDeclaredSizes bool
	Logger             *zap.Logger
}

func (s *LinkRel) Name() string { return "link-rel" }

func (s *LinkRel) Guess(_ context.Context, page *Page) []*icon.Icon {
	if page.Document == nil {
		return nil
	}

	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	base := page.BaseURL()
	var icons []*icon.Icon

	page.Document.Find("link[rel]").Each(func(_ int, sel *goquery.Selection) {
		rel, _ := sel.Attr("rel")
		if !isIconRel(rel) {
			return
		}

		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		u, err := resolve(base, href)
		if err != nil {
			logger.Debug("skipping icon link", zap.String("href", href), zap.Error(err))
			return
		}

		sizes, ok := sel.Attr("sizes")
		if !ok {
			return
		}
		d, err := ParseSizes(sizes)
		if err != nil {
			logger.Debug("skipping icon link", zap.String("href", href), zap.Error(err))
			return
		}

		ic := icon.New(u)
		ic.Declare(d, s.TrustDeclaredSizes)
		icons = append(icons, ic)
	})

	return icons
}

// isIconRel reports whether a rel attribute value names an icon. Tokens are
// whitespace separated and compared case-insensitively, so "shortcut icon"
// matches through its "icon" token.
func isIconRel(rel string) bool {
	for _, token := range strings.Fields(strings.ToLower(rel)) {
		if _, ok := iconRels[token]; ok {
			return true
		}
	}
	return false
}

// ParseSizes parses a sizes attribute of the form "<width>x<height>"
// (either case of x). Both numbers must parse.
func ParseSizes(sizes string) (icon.Dimensions, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(sizes)), "x")
	if !ok {
		return icon.Dimensions{}, fmt.Errorf("%w: %q", ErrInvalidSizes, sizes)
	}

	width, err := strconv.ParseUint(w, 10, 31)
	if err != nil {
		return icon.Dimensions{}, fmt.Errorf("%w: %q", ErrInvalidSizes, sizes)
	}
	height, err := strconv.ParseUint(h, 10, 31)
	if err != nil {
		return icon.Dimensions{}, fmt.Errorf("%w: %q", ErrInvalidSizes, sizes)
	}

	return icon.Dimensions{Width: int(width), Height: int(height)}, nil
}
