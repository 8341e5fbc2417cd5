// Package imageformat maps content types to decodable image formats and reads
// image dimensions from raw bytes.
//
// The resolver is deliberately forgiving: an unrecognised content type is not an
// error, it is Unknown, and the caller is expected to Sniff the bytes before
// giving up.
package imageformat

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/h2non/bimg"
)

// Format identifies an image encoding we know how to size.
type Format int

const (
	Unknown Format = iota
	PNG
	JPEG
	GIF
	ICO
)

// canonicalICO is the single MIME type reported for every icon variant.
const canonicalICO = "image/x-icon"

// contentTypes maps lowercased media types (no parameters) to formats.
// Both the de-facto and the IANA-registered icon types resolve to ICO.
var contentTypes = map[string]Format{
	"image/png":                PNG,
	"image/x-png":              PNG,
	"image/jpeg":               JPEG,
	"image/jpg":                JPEG,
	"image/pjpeg":              JPEG,
	"image/gif":                GIF,
	"image/x-icon":             ICO,
	"image/vnd.microsoft.icon": ICO,
	"image/ico":                ICO,
	"image/icon":               ICO,
}

// ErrUnknownFormat is returned when asked to decode an Unknown format.
var ErrUnknownFormat = errors.New("unknown image format")

func (f Format) String() string {
	switch f {
	case PNG:
		return "png"
	case JPEG:
		return "jpeg"
	case GIF:
		return "gif"
	case ICO:
		return "ico"
	default:
		return "unknown"
	}
}

// MIMEType returns the normalized content type for the format.
func (f Format) MIMEType() string {
	switch f {
	case PNG:
		return "image/png"
	case JPEG:
		return "image/jpeg"
	case GIF:
		return "image/gif"
	case ICO:
		return canonicalICO
	default:
		return ""
	}
}

// FromContentType resolves a Content-Type header value. Parameters and case
// are ignored. Unrecognised types return Unknown.
func FromContentType(contentType string) Format {
	mediaType, _, _ := strings.Cut(contentType, ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	return contentTypes[mediaType]
}

// Sniff guesses the format from the leading bytes of data.
func Sniff(data []byte) Format {
	if len(data) == 0 {
		return Unknown
	}
	return FromContentType(mimetype.Detect(data).String())
}

// Decode returns the pixel dimensions of data interpreted as format f.
// Only headers are read; the pixel data is not decoded.
func Decode(data []byte, f Format) (width, height int, err error) {
	var cfg image.Config

	switch f {
	case PNG:
		cfg, err = png.DecodeConfig(bytes.NewReader(data))
	case JPEG:
		cfg, err = jpeg.DecodeConfig(bytes.NewReader(data))
	case GIF:
		cfg, err = gif.DecodeConfig(bytes.NewReader(data))
	case ICO:
		cfg, err = decodeICOConfig(data)
	default:
		return 0, 0, ErrUnknownFormat
	}
	if err != nil {
		return 0, 0, fmt.Errorf("decoding %s: %w", f, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, fmt.Errorf("decoding %s: empty image %dx%d", f, cfg.Width, cfg.Height)
	}
	return cfg.Width, cfg.Height, nil
}

// DecodeAny is the last resort for bytes that are neither a known content type
// nor sniffable as one: libvips gets a go at it (WebP, SVG, TIFF, ...).
// It returns the dimensions and an "image/<type>" MIME type.
func DecodeAny(data []byte) (width, height int, mimeType string, err error) {
	typeName := bimg.DetermineImageTypeName(data)
	if typeName == "unknown" {
		return 0, 0, "", ErrUnknownFormat
	}

	size, err := bimg.NewImage(data).Size()
	if err != nil {
		return 0, 0, "", fmt.Errorf("decoding %s via libvips: %w", typeName, err)
	}
	if size.Width <= 0 || size.Height <= 0 {
		return 0, 0, "", fmt.Errorf("decoding %s via libvips: empty image", typeName)
	}

	mimeType = "image/" + typeName
	if typeName == "svg" {
		mimeType = "image/svg+xml"
	}
	return size.Width, size.Height, mimeType, nil
}

// extensions maps normalized MIME types to file extensions.
var extensions = map[string]string{
	"image/png":     "png",
	"image/jpeg":    "jpg",
	"image/gif":     "gif",
	canonicalICO:    "ico",
	"image/svg+xml": "svg",
	"image/webp":    "webp",
	"image/tiff":    "tiff",
	"image/heif":    "heif",
	"image/avif":    "avif",
}

// Extension returns the file extension (without dot) for a normalized MIME
// type, or "bin" when there is no better choice.
func Extension(mimeType string) string {
	if ext, ok := extensions[mimeType]; ok {
		return ext
	}
	return "bin"
}
