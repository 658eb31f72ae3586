package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidvault/backend/internal/encoder"
	"github.com/vidvault/backend/internal/models"
)

type fakeBlob struct {
	objects   map[string][]byte
	uploaded  map[string][]byte
	getErr    error
	uploadErr error
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{objects: map[string][]byte{}, uploaded: map[string][]byte{}}
}

func (f *fakeBlob) Get(_ context.Context, key string) (io.ReadCloser, int64, error) {
	if f.getErr != nil {
		return nil, 0, f.getErr
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, 0, fmt.Errorf("no such key: %s", key)
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

func (f *fakeBlob) Upload(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.uploaded[key] = data
	return "https://bucket.s3.test/" + key, nil
}

type fakeVideoStore struct {
	bySource  map[string]*models.Video
	inserted  []*models.Video
	insertErr error
	lookupErr error
}

func (f *fakeVideoStore) BySourceKey(_ context.Context, sourceKey string) (*models.Video, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	v, ok := f.bySource[sourceKey]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (f *fakeVideoStore) Insert(_ context.Context, v *models.Video) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	v.ID = uuid.New()
	f.inserted = append(f.inserted, v)
	return nil
}

type fakeHistory struct {
	events []models.HistoryEvent
	err    error
}

func (f *fakeHistory) Append(_ context.Context, ev models.HistoryEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

type fakeEncoder struct {
	dir       string
	output    []byte
	err       error
	calls     int
	lastPath  string
	seenInput []byte
}

func (f *fakeEncoder) Encode(_ context.Context, input io.Reader, _ encoder.Profile) (*encoder.Artifact, error) {
	f.calls++
	data, readErr := io.ReadAll(input)
	if readErr != nil {
		return nil, &encoder.EncodeError{Err: readErr}
	}
	f.seenInput = data
	if f.err != nil {
		return nil, f.err
	}
	out, err := os.CreateTemp(f.dir, "transcode-*.mp4")
	if err != nil {
		return nil, &encoder.EncodeError{Err: err}
	}
	if _, err := out.Write(f.output); err != nil {
		out.Close()
		return nil, &encoder.EncodeError{Err: err}
	}
	out.Close()
	f.lastPath = out.Name()
	return encoder.NewArtifact(out.Name()), nil
}

type fixture struct {
	blob    *fakeBlob
	store   *fakeVideoStore
	history *fakeHistory
	enc     *fakeEncoder
	orch    *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	blob := newFakeBlob()
	blob.objects["1700000000000-party.mp4"] = []byte("source-bytes")
	store := &fakeVideoStore{bySource: map[string]*models.Video{
		"1700000000000-party.mp4": {
			ID:          uuid.New(),
			Email:       "alice@example.com",
			FilePath:    "1700000000000-party.mp4",
			Description: "Birthday party",
			Status:      models.VideoStatusUploading,
		},
	}}
	history := &fakeHistory{}
	enc := &fakeEncoder{dir: t.TempDir(), output: []byte("encoded-bytes")}
	orch := NewOrchestrator(store, blob, history, enc, time.Minute, nil)
	return &fixture{blob: blob, store: store, history: history, enc: enc, orch: orch}
}

func TestTranscodeSuccess(t *testing.T) {
	f := newFixture(t)

	key, err := f.orch.Transcode(context.Background(), "alice@example.com", "1700000000000-party.mp4", "medium")
	require.NoError(t, err)
	assert.NotEqual(t, "1700000000000-party.mp4", key)
	assert.Contains(t, key, "-transcoded-medium-1700000000000-party.mp4")

	require.Len(t, f.store.inserted, 1)
	row := f.store.inserted[0]
	assert.Equal(t, "alice@example.com", row.Email)
	assert.Equal(t, "1700000000000-party.mp4", row.FilePath)
	assert.Equal(t, "Birthday party - Transcoded", row.Description)
	assert.Equal(t, key, row.TranscodedPath)
	assert.Equal(t, "medium", row.Quality)
	assert.Equal(t, models.VideoStatusTranscoded, row.Status)

	require.Len(t, f.history.events, 1)
	ev := f.history.events[0]
	assert.Equal(t, "alice@example.com", ev.Username)
	assert.Equal(t, key, ev.VideoKey)
	assert.Equal(t, "medium", ev.Quality)
	assert.Equal(t, models.VideoStatusTranscoded, ev.Status)

	assert.Equal(t, []byte("source-bytes"), f.enc.seenInput)
	assert.Equal(t, []byte("encoded-bytes"), f.blob.uploaded[key])
	assert.NoFileExists(t, f.enc.lastPath)
}

func TestTranscodeUnknownQuality(t *testing.T) {
	f := newFixture(t)

	_, err := f.orch.Transcode(context.Background(), "alice@example.com", "1700000000000-party.mp4", "ultra")
	require.ErrorIs(t, err, ErrInvalidQuality)
	assert.Zero(t, f.enc.calls)
	assert.Empty(t, f.store.inserted)
	assert.Empty(t, f.history.events)
}

func TestTranscodeSourceNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.orch.Transcode(context.Background(), "alice@example.com", "no-such-key.mp4", "low")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, f.enc.calls)
	assert.Empty(t, f.store.inserted)
	assert.Empty(t, f.history.events)
}

func TestTranscodeOwnerMismatch(t *testing.T) {
	f := newFixture(t)

	_, err := f.orch.Transcode(context.Background(), "mallory@example.com", "1700000000000-party.mp4", "low")
	require.ErrorIs(t, err, ErrNotOwner)
	assert.Zero(t, f.enc.calls)
	assert.Empty(t, f.store.inserted)
	assert.Empty(t, f.history.events)
}

func TestTranscodeFetchFailure(t *testing.T) {
	f := newFixture(t)
	f.blob.getErr = errors.New("connection reset")

	_, err := f.orch.Transcode(context.Background(), "alice@example.com", "1700000000000-party.mp4", "low")
	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "fetch source", storageErr.Op)
	assert.Empty(t, f.store.inserted)
	assert.Empty(t, f.history.events)
}

func TestTranscodeEncodeFailure(t *testing.T) {
	f := newFixture(t)
	f.enc.err = &encoder.EncodeError{Err: errors.New("exit status 1"), Diagnostic: "moov atom not found"}

	_, err := f.orch.Transcode(context.Background(), "alice@example.com", "1700000000000-party.mp4", "high")
	var encodeErr *encoder.EncodeError
	require.ErrorAs(t, err, &encodeErr)
	assert.Equal(t, "moov atom not found", encodeErr.Diagnostic)
	assert.Empty(t, f.blob.uploaded)
	assert.Empty(t, f.store.inserted)
	assert.Empty(t, f.history.events)
}

func TestTranscodeUploadFailureReleasesArtifact(t *testing.T) {
	f := newFixture(t)
	f.blob.uploadErr = errors.New("bucket unavailable")

	_, err := f.orch.Transcode(context.Background(), "alice@example.com", "1700000000000-party.mp4", "low")
	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "store artifact", storageErr.Op)
	assert.Empty(t, f.store.inserted)
	assert.Empty(t, f.history.events)
	assert.NoFileExists(t, f.enc.lastPath)
}

func TestTranscodeMetadataFailureReleasesArtifact(t *testing.T) {
	f := newFixture(t)
	f.store.insertErr = errors.New("db down")

	_, err := f.orch.Transcode(context.Background(), "alice@example.com", "1700000000000-party.mp4", "low")
	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "persist metadata", storageErr.Op)
	assert.Empty(t, f.history.events)
	assert.NoFileExists(t, f.enc.lastPath)
	// Artifact was already stored; the orphaned blob is addressable and a
	// retry generates a fresh key.
	assert.Len(t, f.blob.uploaded, 1)
}

func TestTranscodeHistoryFailure(t *testing.T) {
	f := newFixture(t)
	f.history.err = errors.New("table throttled")

	_, err := f.orch.Transcode(context.Background(), "alice@example.com", "1700000000000-party.mp4", "low")
	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "log history", storageErr.Op)
	assert.NoFileExists(t, f.enc.lastPath)
}

func TestTranscodeTwiceProducesTwoRows(t *testing.T) {
	f := newFixture(t)

	key1, err := f.orch.Transcode(context.Background(), "alice@example.com", "1700000000000-party.mp4", "medium")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond) // transcoded keys are millisecond-prefixed
	key2, err := f.orch.Transcode(context.Background(), "alice@example.com", "1700000000000-party.mp4", "medium")
	require.NoError(t, err)

	assert.NotEqual(t, key1, key2)
	assert.Len(t, f.store.inserted, 2)
	assert.Len(t, f.history.events, 2)
}

func TestTranscodeNoTempFilesLeftBehind(t *testing.T) {
	f := newFixture(t)
	f.history.err = errors.New("boom")

	_, _ = f.orch.Transcode(context.Background(), "alice@example.com", "1700000000000-party.mp4", "low")
	f.history.err = nil
	_, err := f.orch.Transcode(context.Background(), "alice@example.com", "1700000000000-party.mp4", "low")
	require.NoError(t, err)

	entries, err := os.ReadDir(f.enc.dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.Failf(t, "leftover temp artifact", "unexpected file %s", filepath.Join(f.enc.dir, e.Name()))
	}
}
