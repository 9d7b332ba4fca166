// Package http provides HTTP handlers for outbox inspection and maintenance.
package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/allisson/ledgersync/internal/httputil"
	"github.com/allisson/ledgersync/internal/outbox/domain"
	"github.com/allisson/ledgersync/internal/outbox/http/dto"
	outboxUsecase "github.com/allisson/ledgersync/internal/outbox/usecase"
)

// OutboxHandler handles HTTP requests for outbox inspection and maintenance.
type OutboxHandler struct {
	queue  outboxUsecase.QueueUseCase
	logger *slog.Logger
}

// NewOutboxHandler creates a new outbox handler.
func NewOutboxHandler(queue outboxUsecase.QueueUseCase, logger *slog.Logger) *OutboxHandler {
	return &OutboxHandler{
		queue:  queue,
		logger: logger,
	}
}

// StatsHandler returns entry counts per status.
// GET /v1/outbox/stats
func (h *OutboxHandler) StatsHandler(c *gin.Context) {
	stats, err := h.queue.Stats(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapStatsToResponse(stats))
}

// entriesPage allows larger pages than the default: failed entries are inspected in bulk.
var entriesPage = httputil.Page{DefaultLimit: 50, MaxLimit: 500}

// ListHandler returns a page of entries with the given status, newest first.
// GET /v1/outbox/entries?status=error&offset=0&limit=50
func (h *OutboxHandler) ListHandler(c *gin.Context) {
	offset, limit, err := entriesPage.Parse(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	status := domain.OutboxEntryStatus(c.DefaultQuery("status", string(domain.OutboxEntryStatusError)))

	entries, err := h.queue.List(c.Request.Context(), status, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapEntriesToListResponse(entries))
}

// RequeueHandler moves failed entries back to queued.
// POST /v1/outbox/requeue?force=true
// Without force only entries below the attempt cap and past the retry interval are requeued.
func (h *OutboxHandler) RequeueHandler(c *gin.Context) {
	force, err := strconv.ParseBool(c.DefaultQuery("force", "false"))
	if err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("invalid force parameter: must be a boolean"), h.logger)
		return
	}

	count, err := h.queue.RequeueFailed(c.Request.Context(), force)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.RequeueResponse{Requeued: count})
}

// ClearFailedHandler deletes every failed entry.
// DELETE /v1/outbox/failed
func (h *OutboxHandler) ClearFailedHandler(c *gin.Context) {
	removed, err := h.queue.ClearFailed(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.ClearFailedResponse{Removed: removed})
}
