package transcode

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vidvault/backend/internal/encoder"
	"github.com/vidvault/backend/internal/middleware"
	"github.com/vidvault/backend/pkg/response"
)

// Handler handles the transcode HTTP endpoint.
type Handler struct {
	orchestrator *Orchestrator
	logger       *zap.Logger
}

// NewHandler creates a transcode handler.
func NewHandler(orchestrator *Orchestrator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{orchestrator: orchestrator, logger: logger}
}

type transcodeRequest struct {
	VideoKey string `json:"video_key"`
	Quality  string `json:"quality"`
}

// Transcode handles POST /videos/transcode. Blocks until the pipeline
// completes and returns the transcoded key.
func (h *Handler) Transcode(c *gin.Context) {
	var req transcodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if req.VideoKey == "" || req.Quality == "" {
		response.BadRequest(c, "video key and quality are required")
		return
	}
	owner := c.MustGet(middleware.ContextUserEmail).(string)

	transcodedKey, err := h.orchestrator.Transcode(c.Request.Context(), owner, req.VideoKey, req.Quality)
	if err != nil {
		h.mapError(c, err, owner, req)
		return
	}
	response.OK(c, gin.H{"transcoded_key": transcodedKey})
}

func (h *Handler) mapError(c *gin.Context, err error, owner string, req transcodeRequest) {
	var encodeErr *encoder.EncodeError
	var storageErr *StorageError
	switch {
	case errors.Is(err, ErrInvalidQuality):
		response.BadRequest(c, "unknown quality: "+req.Quality+" (expected "+strings.Join(encoder.ProfileNames(), ", ")+")")
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "original video not found")
	case errors.Is(err, ErrNotOwner):
		response.Forbidden(c, "not authorized to transcode this video")
	case errors.As(err, &encodeErr):
		h.logger.Error("encode failed", zap.Error(err), zap.String("owner", owner), zap.String("source_key", req.VideoKey))
		response.UnprocessableEntity(c, "transcoding failed: "+encodeErr.Err.Error())
	case errors.As(err, &storageErr):
		h.logger.Error("transcode storage failure", zap.Error(err), zap.String("step", storageErr.Op), zap.String("owner", owner), zap.String("source_key", req.VideoKey))
		response.Internal(c, "storage failure during transcoding")
	default:
		h.logger.Error("transcode failed", zap.Error(err), zap.String("owner", owner), zap.String("source_key", req.VideoKey))
		response.Internal(c, "transcoding failed")
	}
}
