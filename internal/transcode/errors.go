package transcode

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuality is returned for a quality name outside the configured presets.
	ErrInvalidQuality = errors.New("unknown quality preset")
	// ErrNotFound is returned when the source key has no video record.
	ErrNotFound = errors.New("source video not found")
	// ErrNotOwner is returned when the record exists but belongs to another owner.
	ErrNotOwner = errors.New("video does not belong to requester")
)

// StorageError marks a blob, metadata, or history store failure in the
// pipeline. Op names the failed step.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }
