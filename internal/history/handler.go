package history

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vidvault/backend/internal/middleware"
	"github.com/vidvault/backend/pkg/response"
)

// Handler handles the history HTTP endpoint.
type Handler struct {
	log    *Log
	logger *zap.Logger
}

// NewHandler creates a history handler.
func NewHandler(log *Log, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{log: log, logger: logger}
}

// List handles GET /history. An owner with no events gets an empty list, not
// an error.
func (h *Handler) List(c *gin.Context) {
	owner := c.MustGet(middleware.ContextUserEmail).(string)

	events, err := h.log.ListByOwner(c.Request.Context(), owner)
	if err != nil {
		h.logger.Error("list history failed", zap.Error(err), zap.String("owner", owner))
		response.Internal(c, "failed to fetch history")
		return
	}
	response.OK(c, events)
}
