package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nikhilrc-dev/ct-vertex-sync/internal/events"
	"github.com/nikhilrc-dev/ct-vertex-sync/internal/logger"
	"github.com/nikhilrc-dev/ct-vertex-sync/internal/services/commercetools"
	catalogsync "github.com/nikhilrc-dev/ct-vertex-sync/internal/sync"
)

const maxWebhookBody = 1 << 20

// CatalogCounter reports source catalog totals by status.
type CatalogCounter interface {
	ProductCounts(ctx context.Context) (*commercetools.ProductCounts, error)
}

// FullSyncRunner runs one full catalog synchronization.
type FullSyncRunner interface {
	RunFullSync(ctx context.Context) (*catalogsync.Summary, error)
}

type SyncHandler struct {
	logger       *logger.Logger
	counter      CatalogCounter
	orchestrator FullSyncRunner
	dispatcher   *events.Dispatcher
}

func NewSyncHandler(logger *logger.Logger, counter CatalogCounter, orchestrator FullSyncRunner, dispatcher *events.Dispatcher) *SyncHandler {
	return &SyncHandler{
		logger:       logger,
		counter:      counter,
		orchestrator: orchestrator,
		dispatcher:   dispatcher,
	}
}

// Health reports liveness.
func (h *SyncHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ProductCounts reports source catalog counts by publication status.
func (h *SyncHandler) ProductCounts(c *gin.Context) {
	counts, err := h.counter.ProductCounts(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to fetch product counts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": counts})
}

// FullSync runs one full catalog synchronization and returns the final
// summary. Callers needing progress must watch logs; nothing is streamed.
func (h *SyncHandler) FullSync(c *gin.Context) {
	summary, err := h.orchestrator.RunFullSync(c.Request.Context())
	if err != nil {
		h.logger.Error("Full sync failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": summary})
}

// DeltaSync receives one webhook delivery. Unparsable or unrecognized
// payloads are acknowledged with 200 and an "ignored" action; failing the
// request would only provoke blind redelivery.
func (h *SyncHandler) DeltaSync(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to read payload"})
		return
	}

	notification := events.Normalize(body)
	outcome, err := h.dispatcher.Dispatch(c.Request.Context(), notification)
	if err != nil {
		h.logger.Error("Failed to process webhook delivery: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": outcome})
}

// ManualSync forces one upsert or delete for a single product. It reuses the
// dispatcher with a synthetic notification, so the same version guard and
// write paths apply.
func (h *SyncHandler) ManualSync(c *gin.Context) {
	productID := c.Param("productId")

	var request struct {
		Action string `json:"action" binding:"required,oneof=upsert delete"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	eventType := "ProductPublished"
	if request.Action == "delete" {
		eventType = "ProductDeleted"
	}

	outcome, err := h.dispatcher.Dispatch(c.Request.Context(), &events.Notification{
		ResourceTypeID: "product",
		ResourceID:     productID,
		EventType:      eventType,
	})
	if err != nil {
		h.logger.Error("Manual sync of %s failed: %v", productID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": outcome})
}
