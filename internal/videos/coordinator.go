package videos

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vidvault/backend/internal/models"
)

// ErrInvalidInput is returned when a required upload field is missing or malformed.
var ErrInvalidInput = errors.New("invalid input")

// BlobStore is the blob operations the coordinator needs.
type BlobStore interface {
	PresignUpload(ctx context.Context, key, contentType string, expires time.Duration) (string, error)
	UploadExpire() time.Duration
}

// VideoStore is the metadata operations the coordinator needs.
type VideoStore interface {
	Insert(ctx context.Context, v *models.Video) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// HistoryLog appends lifecycle events to the per-owner history.
type HistoryLog interface {
	Append(ctx context.Context, ev models.HistoryEvent) error
}

// UploadGrant is what the client needs to upload directly to blob storage.
type UploadGrant struct {
	UploadURL string `json:"upload_url"`
	SourceKey string `json:"source_key"`
	ExpiresIn int    `json:"expires_in"`
}

// Coordinator issues presigned upload descriptors and registers the pending
// video in the metadata store and history log. It never touches artifact bytes.
type Coordinator struct {
	store   VideoStore
	blob    BlobStore
	history HistoryLog
	logger  *zap.Logger
}

// NewCoordinator creates an upload coordinator.
func NewCoordinator(store VideoStore, blob BlobStore, history HistoryLog, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{store: store, blob: blob, history: history, logger: logger}
}

// RequestUpload validates the request, presigns a PUT URL for a fresh source
// key, and registers the pending video. If any store write fails, no grant is
// returned: a row inserted before a failed history append is deleted again.
func (co *Coordinator) RequestUpload(ctx context.Context, owner, filename, contentType, description string) (*UploadGrant, error) {
	if filename == "" {
		return nil, fmt.Errorf("%w: filename is required", ErrInvalidInput)
	}
	if description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	if _, _, err := mime.ParseMediaType(contentType); err != nil {
		return nil, fmt.Errorf("%w: content type %q: %v", ErrInvalidInput, contentType, err)
	}

	// Millisecond prefix keeps keys collision-resistant for practical upload
	// rates; concurrent same-millisecond uploads of one filename still collide.
	sourceKey := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), path.Base(filename))

	expire := co.blob.UploadExpire()
	uploadURL, err := co.blob.PresignUpload(ctx, sourceKey, contentType, expire)
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}

	v := &models.Video{
		Email:       owner,
		FilePath:    sourceKey,
		Description: description,
		Status:      models.VideoStatusUploading,
	}
	if err := co.store.Insert(ctx, v); err != nil {
		return nil, fmt.Errorf("register video: %w", err)
	}

	ev := models.HistoryEvent{
		Username:    owner,
		VideoKey:    sourceKey,
		Description: description,
		Status:      models.VideoStatusUploading,
	}
	if err := co.history.Append(ctx, ev); err != nil {
		if delErr := co.store.Delete(ctx, v.ID); delErr != nil {
			co.logger.Error("compensating delete failed", zap.Error(delErr), zap.String("source_key", sourceKey))
		}
		return nil, fmt.Errorf("log upload history: %w", err)
	}

	co.logger.Info("upload registered", zap.String("owner", owner), zap.String("source_key", sourceKey))
	return &UploadGrant{
		UploadURL: uploadURL,
		SourceKey: sourceKey,
		ExpiresIn: int(expire.Seconds()),
	}, nil
}
