// Package icon defines a candidate site icon, the fetch-and-decode step that
// validates it, and the ranked Collection built from validated icons.
package icon

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/fleveque/icon-service/internal/fetch"
	"github.com/fleveque/icon-service/internal/imageformat"
)

// Dimensions is a width × height pair in pixels.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Area is computed in 64 bits so large icons cannot overflow.
func (d Dimensions) Area() int64 {
	return int64(d.Width) * int64(d.Height)
}

// Covers reports whether d is at least minWidth wide and minHeight tall.
func (d Dimensions) Covers(minWidth, minHeight int) bool {
	return d.Width >= minWidth && d.Height >= minHeight
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

func (d Dimensions) positive() bool {
	return d.Width > 0 && d.Height > 0
}

// Icon is a single icon reference.
//
// The size is either absent or a full Dimensions value; it is never half set.
// It comes from a trusted declaration or from Fetch, and once Fetch succeeds
// it is authoritative.
type Icon struct {
	URL *url.URL

	// Declared is the size advertised by markup. Advisory only.
	Declared *Dimensions

	// MIMEType is the normalized type of the decoded bytes, set by Fetch.
	MIMEType string

	// Raw holds the fetched bytes. Not to be modified once set.
	Raw []byte

	size    *Dimensions
	fetched bool
}

// New creates an unsized candidate for u.
func New(u *url.URL) *Icon {
	return &Icon{URL: u}
}

// Declare records a size advertised by markup. With trust set, a positive
// declared size also becomes the icon's size so validation skips the fetch.
func (i *Icon) Declare(d Dimensions, trust bool) {
	i.Declared = &d
	if trust && d.positive() && i.size == nil {
		size := d
		i.size = &size
	}
}

// Size returns the icon's size, if known.
func (i *Icon) Size() (Dimensions, bool) {
	if i.size == nil {
		return Dimensions{}, false
	}
	return *i.size, true
}

// Sized reports whether the icon has a size and can be ranked.
func (i *Icon) Sized() bool { return i.size != nil }

// Fetched reports whether Fetch has succeeded.
func (i *Icon) Fetched() bool { return i.fetched }

func (i *Icon) Width() int {
	d, _ := i.Size()
	return d.Width
}

func (i *Icon) Height() int {
	d, _ := i.Size()
	return d.Height
}

// Area is width × height, or 0 for an unsized icon.
func (i *Icon) Area() int64 {
	d, _ := i.Size()
	return d.Area()
}

func (i *Icon) String() string {
	if d, ok := i.Size(); ok {
		return fmt.Sprintf("%s (%s)", i.URL, d)
	}
	return i.URL.String() + " (unsized)"
}

// Fetch downloads the icon and decodes its real dimensions, in one round trip.
// After a successful Fetch further calls return immediately.
//
// The Content-Type decides the decoder. An unrecognised type is not fatal: the
// bytes are sniffed, and failing that handed to libvips, before giving up with
// ErrUnsupportedContentType.
func (i *Icon) Fetch(ctx context.Context, client fetch.Client) error {
	if i.fetched {
		return nil
	}

	resp, err := client.Get(ctx, i.URL.String())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if !resp.Success() {
		return &StatusError{URL: i.URL.String(), StatusCode: resp.StatusCode}
	}

	contentType := resp.ContentType()
	if contentType == "" {
		return fmt.Errorf("%w: %s", ErrMissingContentType, i.URL)
	}

	format := imageformat.FromContentType(contentType)
	if format == imageformat.Unknown {
		format = imageformat.Sniff(resp.Body)
	}

	var (
		width, height int
		mimeType      string
	)
	if format != imageformat.Unknown {
		width, height, err = imageformat.Decode(resp.Body, format)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDecode, err)
		}
		mimeType = format.MIMEType()
	} else {
		width, height, mimeType, err = imageformat.DecodeAny(resp.Body)
		if errors.Is(err, imageformat.ErrUnknownFormat) {
			return fmt.Errorf("%w: %s", ErrUnsupportedContentType, contentType)
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDecode, err)
		}
	}

	i.size = &Dimensions{Width: width, Height: height}
	i.MIMEType = mimeType
	i.Raw = resp.Body
	i.fetched = true
	return nil
}

// EnsureSized is the validation gate: a sized icon passes as is, an unsized
// one is fetched and decoded.
func (i *Icon) EnsureSized(ctx context.Context, client fetch.Client) error {
	if i.Sized() {
		return nil
	}
	return i.Fetch(ctx, client)
}
