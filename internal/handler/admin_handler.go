package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleveque/icon-service/internal/model"
	"github.com/fleveque/icon-service/internal/storage"
)

const (
	defaultLookupLimit = 50
	maxLookupLimit     = 500
)

// AdminHandler handles administrative endpoints.
type AdminHandler struct {
	lookupRepo  storage.LookupRepository
	llmCallRepo storage.LLMCallRepository
	logger      *zap.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(lookupRepo storage.LookupRepository, llmCallRepo storage.LLMCallRepository, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		lookupRepo:  lookupRepo,
		llmCallRepo: llmCallRepo,
		logger:      logger,
	}
}

// Stats returns lookup counts by status and the number of LLM calls made.
// Route: GET /api/v1/admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	total, err := h.lookupRepo.Count(ctx)
	if err != nil {
		h.internalError(c, "counting lookups", err)
		return
	}

	resp := gin.H{"total": total}
	for _, status := range model.AllStatuses {
		n, err := h.lookupRepo.CountByStatus(ctx, status)
		if err != nil {
			h.internalError(c, "counting "+string(status)+" lookups", err)
			return
		}
		resp[string(status)] = n
	}

	llmCalls, err := h.llmCallRepo.Count(ctx)
	if err != nil {
		h.internalError(c, "counting llm calls", err)
		return
	}
	resp["llm_calls"] = llmCalls

	c.JSON(http.StatusOK, resp)
}

// Lookups returns the most recent lookups, newest first, optionally for one host.
// Route: GET /api/v1/admin/lookups?limit=50&host=example.com
func (h *AdminHandler) Lookups(c *gin.Context) {
	limit, err := parseNonNegative(c, "limit")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if limit == 0 {
		limit = defaultLookupLimit
	}
	limit = min(limit, maxLookupLimit)

	ctx := c.Request.Context()
	var lookups []model.Lookup
	if host := c.Query("host"); host != "" {
		lookups, err = h.lookupRepo.ListByHost(ctx, host, limit)
	} else {
		lookups, err = h.lookupRepo.ListRecent(ctx, limit)
	}
	if err != nil {
		h.internalError(c, "listing lookups", err)
		return
	}
	if lookups == nil {
		lookups = []model.Lookup{}
	}

	c.JSON(http.StatusOK, gin.H{
		"lookups": lookups,
		"count":   len(lookups),
	})
}

// LatestLookup returns the newest lookup of one page.
// Route: GET /api/v1/admin/lookups/latest?url=https://example.com/
func (h *AdminHandler) LatestLookup(c *gin.Context) {
	pageURL := c.Query("url")
	if pageURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing url parameter"})
		return
	}

	lookup, err := h.lookupRepo.GetLatest(c.Request.Context(), pageURL)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no lookups for url"})
		return
	}
	if err != nil {
		h.internalError(c, "getting latest lookup", err)
		return
	}

	c.JSON(http.StatusOK, lookup)
}

func (h *AdminHandler) internalError(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
