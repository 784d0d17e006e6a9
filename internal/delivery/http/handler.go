package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/quickpick/backend/internal/domain"
	"github.com/quickpick/backend/internal/usecase"
)

const version = "1.0.0"

// Handler holds dependencies for HTTP handlers
type Handler struct {
	service *usecase.SearchService
}

// NewHandler creates a new HTTP handler. A nil service leaves the comparison
// endpoints answering 501.
func NewHandler(service *usecase.SearchService) *Handler {
	return &Handler{service: service}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "quickpick-backend",
		"version": version,
	})
}

// providerInfo describes one provider in the providers listing
type providerInfo struct {
	ID      domain.ProviderID `json:"id"`
	Enabled bool              `json:"enabled"`
}

// Providers lists the known providers and whether a source is configured for each
func (h *Handler) Providers(c *gin.Context) {
	var enabled map[domain.ProviderID]bool
	if h.service != nil {
		enabled = h.service.Sources()
	}

	providers := make([]providerInfo, 0, len(domain.Providers))
	for _, p := range domain.Providers {
		providers = append(providers, providerInfo{ID: p, Enabled: enabled[p]})
	}
	c.JSON(http.StatusOK, gin.H{"providers": providers})
}

// SearchCompare handles POST /api/v1/search/compare: resolve the pincode,
// fetch every provider and return the compared rows
func (h *Handler) SearchCompare(c *gin.Context) {
	if h.service == nil {
		notConfigured(c)
		return
	}

	var req domain.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query and pincode are required"})
		return
	}

	result, err := h.service.Search(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Compare handles POST /api/v1/compare: run the comparison on listings supplied in the body
func (h *Handler) Compare(c *gin.Context) {
	if h.service == nil {
		notConfigured(c)
		return
	}

	var req domain.CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.service.Compare(&req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// respondError maps domain errors to HTTP statuses
func (h *Handler) respondError(c *gin.Context, err error) {
	logger := zerolog.Ctx(c.Request.Context())

	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrLocationNotFound), errors.Is(err, domain.ErrGeocodeFailure):
		logger.Info().Err(err).Msg("location lookup failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to get location from pincode"})
	case errors.Is(err, domain.ErrNoResults):
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrNoResults.Error()})
	case errors.Is(err, domain.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": domain.ErrRateLimited.Error()})
	default:
		logger.Error().Err(err).Msg("comparison failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func notConfigured(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, gin.H{"error": "comparison service not configured"})
}
