package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/ledgersync/internal/httputil"
	"github.com/allisson/ledgersync/internal/scheduler"
)

// Syncer triggers sync runs.
type Syncer interface {
	Trigger(ctx context.Context, kind scheduler.Kind) (scheduler.Result, error)
}

// SyncHandler handles on-demand push and pull triggers.
type SyncHandler struct {
	syncer Syncer
	logger *slog.Logger
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(syncer Syncer, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{
		syncer: syncer,
		logger: logger,
	}
}

// TriggerHandler runs a push or pull now and waits for its result.
// POST /v1/sync/:kind - kind is "push" or "pull".
// Returns 503 when the remote store is offline and 502 when the run failed and was scheduled for retry.
func (h *SyncHandler) TriggerHandler(c *gin.Context) {
	kind, err := scheduler.ParseKind(c.Param("kind"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	result, err := h.syncer.Trigger(c.Request.Context(), kind)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, result)
}
