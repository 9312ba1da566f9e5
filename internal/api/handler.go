package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"grocery_deals/internal/models"
)

// requestTimeout bounds each data lookup.
const requestTimeout = 5 * time.Second

// Handler holds dependencies for HTTP handlers
type Handler struct {
	deals   DealSource
	catalog *Catalog
	logger  logrus.FieldLogger
}

// NewHandler creates a new HTTP handler
func NewHandler(deals DealSource, catalog *Catalog, logger logrus.FieldLogger) *Handler {
	return &Handler{deals: deals, catalog: catalog, logger: logger}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "grocery-deals",
	})
}

// ListDeals returns the latest captured deals, optionally filtered by store
// name (exact, case-insensitive) and product substring.
func (h *Handler) ListDeals(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	deals, err := h.deals.LatestDeals(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Error fetching deals")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not retrieve deals"})
		return
	}

	deals = filterDeals(deals, c.Query("store"), c.Query("q"))
	c.JSON(http.StatusOK, gin.H{
		"count": len(deals),
		"deals": deals,
	})
}

func filterDeals(deals []models.Deal, store, query string) []models.Deal {
	store = strings.TrimSpace(store)
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]models.Deal, 0, len(deals))
	for _, d := range deals {
		if store != "" && !strings.EqualFold(d.Store, store) {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(d.Product), query) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// ListStores returns the configured stores and keywords.
func (h *Handler) ListStores(c *gin.Context) {
	stores, keywords := h.catalog.Snapshot()
	if stores == nil {
		stores = []models.Store{}
	}
	if keywords == nil {
		keywords = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"stores":   stores,
		"keywords": keywords,
	})
}
