package videos

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vidvault/backend/internal/middleware"
	"github.com/vidvault/backend/pkg/response"
	"github.com/vidvault/backend/pkg/storage"
)

// Handler handles video HTTP endpoints.
type Handler struct {
	repo        *Repository
	coordinator *Coordinator
	s3          *storage.S3
	logger      *zap.Logger
}

// NewHandler creates a videos handler.
func NewHandler(repo *Repository, coordinator *Coordinator, s3 *storage.S3, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, coordinator: coordinator, s3: s3, logger: logger}
}

type uploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Description string `json:"description"`
}

// RequestUpload handles POST /videos/upload-url. Returns a presigned PUT URL
// and the source key the client must upload to.
func (h *Handler) RequestUpload(c *gin.Context) {
	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	owner := c.MustGet(middleware.ContextUserEmail).(string)

	grant, err := h.coordinator.RequestUpload(c.Request.Context(), owner, req.Filename, req.ContentType, req.Description)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			response.BadRequest(c, err.Error())
			return
		}
		h.logger.Error("request upload failed", zap.Error(err), zap.String("owner", owner))
		response.Internal(c, "failed to prepare upload")
		return
	}
	response.Created(c, grant)
}

type videoItem struct {
	ID            uuid.UUID `json:"id"`
	OriginalURL   string    `json:"original_url"`
	TranscodedURL string    `json:"transcoded_url,omitempty"`
	Description   string    `json:"description"`
	Quality       string    `json:"quality,omitempty"`
	Status        string    `json:"status"`
}

// List handles GET /videos. Returns original and transcoded rows for the owner.
func (h *Handler) List(c *gin.Context) {
	owner := c.MustGet(middleware.ContextUserEmail).(string)

	list, err := h.repo.ListByOwner(c.Request.Context(), owner)
	if err != nil {
		h.logger.Error("list videos failed", zap.Error(err), zap.String("owner", owner))
		response.Internal(c, "failed to list videos")
		return
	}
	items := make([]videoItem, 0, len(list))
	for _, v := range list {
		item := videoItem{
			ID:          v.ID,
			OriginalURL: h.s3.ObjectURL(v.FilePath),
			Description: v.Description,
			Quality:     v.Quality,
			Status:      v.Status,
		}
		if v.TranscodedPath != "" {
			item.TranscodedURL = h.s3.ObjectURL(v.TranscodedPath)
		}
		items = append(items, item)
	}
	response.OK(c, items)
}

// DownloadURL handles GET /videos/:id/download-url. Returns a presigned GET
// URL for the row's artifact (the transcoded one when present).
func (h *Handler) DownloadURL(c *gin.Context) {
	videoID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid video id")
		return
	}
	owner := c.MustGet(middleware.ContextUserEmail).(string)

	v, err := h.repo.ByID(c.Request.Context(), videoID)
	if err != nil {
		h.logger.Error("get video failed", zap.Error(err), zap.String("video_id", videoID.String()))
		response.Internal(c, "failed to fetch video")
		return
	}
	if v == nil {
		response.NotFound(c, "video not found")
		return
	}
	if v.Email != owner {
		response.Forbidden(c, "not authorized to download this video")
		return
	}

	key := v.FilePath
	if v.TranscodedPath != "" {
		key = v.TranscodedPath
	}
	expire := h.s3.PresignExpire()
	url, err := h.s3.PresignDownload(c.Request.Context(), key, expire)
	if err != nil {
		h.logger.Error("presign download failed", zap.Error(err), zap.String("key", key))
		response.Internal(c, "failed to generate download URL")
		return
	}
	response.OK(c, gin.H{"url": url, "expires_in": int(expire.Seconds())})
}
