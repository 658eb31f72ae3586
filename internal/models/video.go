package models

import (
	"time"

	"github.com/google/uuid"
)

// Video lifecycle statuses. A row only moves forward (uploading → transcoded
// or uploading → failed), never backward.
const (
	VideoStatusUploading  = "uploading"
	VideoStatusTranscoded = "transcoded"
	VideoStatusFailed     = "failed"
)

// Video is one stored artifact: either an original upload or a transcoded
// variant. Transcoding inserts a new row rather than mutating the original.
type Video struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	FilePath       string    `json:"file_path"`
	Description    string    `json:"description"`
	TranscodedPath string    `json:"transcoded_path,omitempty"`
	Quality        string    `json:"quality,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// HistoryEvent is an append-only upload/transcode lifecycle fact. Events are
// never updated or deleted.
type HistoryEvent struct {
	Username    string `json:"username" dynamodbav:"username"`
	Timestamp   string `json:"timestamp" dynamodbav:"timestamp"`
	VideoKey    string `json:"videoKey" dynamodbav:"videoKey"`
	Description string `json:"description" dynamodbav:"description"`
	Quality     string `json:"quality" dynamodbav:"quality"`
	Status      string `json:"status" dynamodbav:"status"`
}
