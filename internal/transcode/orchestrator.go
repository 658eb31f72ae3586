package transcode

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/vidvault/backend/internal/encoder"
	"github.com/vidvault/backend/internal/models"
)

// BlobStore is the blob operations the orchestrator needs.
type BlobStore interface {
	Get(ctx context.Context, key string) (io.ReadCloser, int64, error)
	Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) (string, error)
}

// VideoStore is the metadata operations the orchestrator needs.
type VideoStore interface {
	BySourceKey(ctx context.Context, sourceKey string) (*models.Video, error)
	Insert(ctx context.Context, v *models.Video) error
}

// HistoryLog appends lifecycle events to the per-owner history.
type HistoryLog interface {
	Append(ctx context.Context, ev models.HistoryEvent) error
}

// Encoder runs one encode of a streamed input against a quality profile. The
// returned artifact is owned by the orchestrator, which releases it on every
// exit path.
type Encoder interface {
	Encode(ctx context.Context, input io.Reader, profile encoder.Profile) (*encoder.Artifact, error)
}

// descriptionSuffix is appended to the original description on transcoded rows.
const descriptionSuffix = " - Transcoded"

// Orchestrator runs the transcode pipeline: resolve profile and source record,
// stream the source through the encoder, store the artifact, persist metadata
// and history. It holds no persistent state of its own.
type Orchestrator struct {
	videos  VideoStore
	blob    BlobStore
	history HistoryLog
	encoder Encoder
	timeout time.Duration
	logger  *zap.Logger
}

// NewOrchestrator creates a transcode orchestrator. timeout bounds the encode
// step; zero or negative disables the deadline.
func NewOrchestrator(videos VideoStore, blob BlobStore, history HistoryLog, enc Encoder, timeout time.Duration, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{videos: videos, blob: blob, history: history, encoder: enc, timeout: timeout, logger: logger}
}

// Transcode transcodes the owner's source video to the named quality preset
// and returns the key of the stored artifact. Each attempt generates a fresh
// transcoded key and inserts a new metadata row; the original row is never
// mutated. Metadata and history are written only after the artifact is durably
// stored, so a post-upload store failure surfaces a StorageError and leaves an
// orphaned blob that a retry simply supersedes.
func (o *Orchestrator) Transcode(ctx context.Context, owner, sourceKey, quality string) (string, error) {
	profile, ok := encoder.ProfileFor(quality)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidQuality, quality)
	}

	rec, err := o.videos.BySourceKey(ctx, sourceKey)
	if err != nil {
		return "", &StorageError{Op: "resolve source video", Err: err}
	}
	if rec == nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, sourceKey)
	}
	if rec.Email != owner {
		return "", ErrNotOwner
	}

	src, srcSize, err := o.blob.Get(ctx, sourceKey)
	if err != nil {
		return "", &StorageError{Op: "fetch source", Err: err}
	}
	defer src.Close()

	encCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		encCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	o.logger.Info("transcode started",
		zap.String("owner", owner),
		zap.String("source_key", sourceKey),
		zap.String("quality", quality),
		zap.Int64("source_size", srcSize),
	)
	artifact, err := o.encoder.Encode(encCtx, src, profile)
	if err != nil {
		return "", err
	}
	defer artifact.Release()

	transcodedKey := fmt.Sprintf("%d-transcoded-%s-%s", time.Now().UnixMilli(), quality, sourceKey)
	out, outSize, err := artifact.Open()
	if err != nil {
		return "", &StorageError{Op: "read artifact", Err: err}
	}
	defer out.Close()
	if _, err := o.blob.Upload(ctx, transcodedKey, "video/mp4", out, outSize); err != nil {
		return "", &StorageError{Op: "store artifact", Err: err}
	}

	row := &models.Video{
		Email:          owner,
		FilePath:       sourceKey,
		Description:    rec.Description + descriptionSuffix,
		TranscodedPath: transcodedKey,
		Quality:        quality,
		Status:         models.VideoStatusTranscoded,
	}
	if err := o.videos.Insert(ctx, row); err != nil {
		return "", &StorageError{Op: "persist metadata", Err: err}
	}

	ev := models.HistoryEvent{
		Username:    owner,
		VideoKey:    transcodedKey,
		Description: row.Description,
		Quality:     quality,
		Status:      models.VideoStatusTranscoded,
	}
	if err := o.history.Append(ctx, ev); err != nil {
		return "", &StorageError{Op: "log history", Err: err}
	}

	o.logger.Info("transcode complete",
		zap.String("owner", owner),
		zap.String("source_key", sourceKey),
		zap.String("transcoded_key", transcodedKey),
		zap.Int64("artifact_size", outSize),
	)
	return transcodedKey, nil
}
