package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleveque/icon-service/internal/icon"
	"github.com/fleveque/icon-service/internal/service"
)

// IconHandler serves icon lookups.
type IconHandler struct {
	iconService *service.IconService
	logger      *zap.Logger
}

// NewIconHandler creates a new IconHandler with the icon service.
func NewIconHandler(iconService *service.IconService, logger *zap.Logger) *IconHandler {
	return &IconHandler{
		iconService: iconService,
		logger:      logger,
	}
}

// iconJSON is the API representation of an icon.
type iconJSON struct {
	URL      string           `json:"url"`
	Width    int              `json:"width"`
	Height   int              `json:"height"`
	MIMEType string           `json:"mime_type,omitempty"`
	Declared *icon.Dimensions `json:"declared,omitempty"`
	Fetched  bool             `json:"fetched"`
}

func toJSON(ic *icon.Icon) *iconJSON {
	if ic == nil {
		return nil
	}
	return &iconJSON{
		URL:      ic.URL.String(),
		Width:    ic.Width(),
		Height:   ic.Height(),
		MIMEType: ic.MIMEType,
		Declared: ic.Declared,
		Fetched:  ic.Fetched(),
	}
}

// sizeQuery holds the size-selection parameters shared by both routes.
type sizeQuery struct {
	minWidth  int
	minHeight int
}

// ListIcons looks up a page and returns its icons, largest first.
// Route: GET /api/v1/icons?url=https://example.com&min_width=64&min_height=64&limit=5
//
// "best" is the smallest icon covering the minimum size (or the largest icon
// when none does or no minimum was given). limit caps the "icons" list.
func (h *IconHandler) ListIcons(c *gin.Context) {
	pageURL, sq, ok := parseLookupQuery(c)
	if !ok {
		return
	}
	limit, err := parseNonNegative(c, "limit")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.iconService.Lookup(c.Request.Context(), pageURL)
	if err != nil {
		h.writeLookupError(c, pageURL, err)
		return
	}

	var best *icon.Icon
	if sq.minWidth > 0 || sq.minHeight > 0 {
		best = res.Icons.AtLeast(sq.minWidth, sq.minHeight)
	} else {
		best = res.Icons.Largest()
	}

	// PopLargest consumes the collection, so everything that needs the full
	// set (best, count) is read before this loop. Popping from the top gives
	// largest-first order with ties in emission order, and stops early at limit
	// without sorting the rest.
	total := res.Icons.Len()
	icons := make([]*iconJSON, 0, total)
	for res.Icons.Len() > 0 && (limit == 0 || len(icons) < limit) {
		icons = append(icons, toJSON(res.Icons.PopLargest()))
	}

	c.JSON(http.StatusOK, gin.H{
		"page_url": res.PageURL.String(),
		"source":   res.Source,
		"count":    total,
		"best":     toJSON(best),
		"icons":    icons,
	})
}

// GetImage looks up a page and serves the bytes of its best icon.
// Route: GET /api/v1/icons/image?url=https://example.com&min_width=32&min_height=32
func (h *IconHandler) GetImage(c *gin.Context) {
	pageURL, sq, ok := parseLookupQuery(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	best, _, err := h.iconService.Best(ctx, pageURL, sq.minWidth, sq.minHeight)
	if err != nil {
		h.writeLookupError(c, pageURL, err)
		return
	}

	data, mimeType, err := h.iconService.Image(ctx, best)
	if err != nil {
		h.logger.Warn("icon image unavailable",
			zap.String("page_url", pageURL),
			zap.String("icon_url", best.URL.String()),
			zap.Error(err),
		)
		c.JSON(http.StatusBadGateway, gin.H{"error": "icon could not be downloaded"})
		return
	}

	c.Header("X-Icon-URL", best.URL.String())
	c.Header("X-Icon-Size", fmt.Sprintf("%dx%d", best.Width(), best.Height()))
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, mimeType, data)
}

// writeLookupError maps service errors to HTTP statuses.
func (h *IconHandler) writeLookupError(c *gin.Context, pageURL string, err error) {
	switch {
	case errors.Is(err, icon.ErrMalformedURL):
		c.JSON(http.StatusBadRequest, gin.H{"error": "url must be an absolute http(s) URL"})
	case errors.Is(err, service.ErrNoIcon):
		c.JSON(http.StatusNotFound, gin.H{"error": "no icon found"})
	case errors.Is(err, icon.ErrTransport):
		h.logger.Warn("page unreachable", zap.String("page_url", pageURL), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "page could not be fetched"})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "lookup timed out"})
	default:
		h.logger.Error("lookup failed", zap.String("page_url", pageURL), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// parseLookupQuery reads url, min_width and min_height. On failure it writes
// a 400 response and returns ok == false.
func parseLookupQuery(c *gin.Context) (string, sizeQuery, bool) {
	pageURL := c.Query("url")
	if pageURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing url parameter"})
		return "", sizeQuery{}, false
	}

	var sq sizeQuery
	var err error
	if sq.minWidth, err = parseNonNegative(c, "min_width"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", sizeQuery{}, false
	}
	if sq.minHeight, err = parseNonNegative(c, "min_height"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", sizeQuery{}, false
	}
	return pageURL, sq, true
}

// parseNonNegative reads an optional integer query parameter; absent means 0.
func parseNonNegative(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: must be a non-negative integer", name)
	}
	return n, nil
}
