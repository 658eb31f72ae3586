package encoder

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"go.uber.org/zap"
)

// maxDiagnosticBytes limits how much captured ffmpeg stderr is attached to an
// EncodeError (the full output can run to megabytes on long inputs).
const maxDiagnosticBytes = 8 * 1024

// EncodeError is returned when the external encoder exits non-zero or the
// input stream fails. Diagnostic holds the tail of the process stderr.
type EncodeError struct {
	Err        error
	Diagnostic string
}

func (e *EncodeError) Error() string {
	if e.Diagnostic != "" {
		return fmt.Sprintf("encode failed: %v: %s", e.Err, e.Diagnostic)
	}
	return fmt.Sprintf("encode failed: %v", e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// Artifact is a scoped temporary output file. The caller owns it exclusively
// and must call Release on every exit path once Encode has returned it.
type Artifact struct {
	path string
	once sync.Once
}

// NewArtifact wraps an existing local file as a scoped artifact.
func NewArtifact(path string) *Artifact {
	return &Artifact{path: path}
}

// Path returns the local filesystem path of the encoded output.
func (a *Artifact) Path() string { return a.path }

// Open opens the artifact for reading and returns its size.
func (a *Artifact) Open() (*os.File, int64, error) {
	f, err := os.Open(a.path)
	if err != nil {
		return nil, 0, fmt.Errorf("open artifact: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("stat artifact: %w", err)
	}
	return f, info.Size(), nil
}

// Release removes the temporary file. Safe to call more than once.
func (a *Artifact) Release() {
	a.once.Do(func() { _ = os.Remove(a.path) })
}

// FFmpeg spawns the ffmpeg binary to transcode a streamed input into a local
// fragmented-MP4 artifact. Input is consumed over stdin so the full source is
// never resident in memory. No retry: a failed encode is reported once.
type FFmpeg struct {
	binPath string
	tmpDir  string
	logger  *zap.Logger
}

// NewFFmpeg creates the encoding engine adapter. Empty binPath resolves
// "ffmpeg" from PATH at invocation time; empty tmpDir uses os.TempDir().
func NewFFmpeg(binPath, tmpDir string, logger *zap.Logger) *FFmpeg {
	if binPath == "" {
		if p, err := exec.LookPath("ffmpeg"); err == nil {
			binPath = p
		} else {
			binPath = "ffmpeg"
		}
	}
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FFmpeg{binPath: binPath, tmpDir: tmpDir, logger: logger}
}

// encodeArgs builds the ffmpeg argument list: H.264/AAC at the profile's
// resolution and bitrate, fragmented MP4 so partial output stays playable,
// explicit pixel format, and generous analysis buffers for streamed input.
func encodeArgs(p Profile, outputPath string) []string {
	return []string{
		"-analyzeduration", "500M", "-probesize", "500M",
		"-f", "mp4",
		"-i", "pipe:0",
		"-c:v", "libx264",
		"-c:a", "aac",
		"-s", p.Resolution,
		"-b:v", p.Bitrate,
		"-pix_fmt", "yuv420p",
		"-movflags", "frag_keyframe+empty_moov",
		"-f", "mp4",
		"-y",
		outputPath,
	}
}

// Encode streams input through ffmpeg and returns the local output artifact.
// The process runs under ctx: on cancellation or deadline expiry it is killed
// and an EncodeError is returned. On any failure the partial output file is
// removed before returning.
func (f *FFmpeg) Encode(ctx context.Context, input io.Reader, profile Profile) (*Artifact, error) {
	out, err := os.CreateTemp(f.tmpDir, "transcode-*.mp4")
	if err != nil {
		return nil, fmt.Errorf("create temp output: %w", err)
	}
	outputPath := out.Name()
	out.Close() // ffmpeg writes by path

	args := encodeArgs(profile, outputPath)
	cmd := exec.CommandContext(ctx, f.binPath, args...)
	cmd.Stdin = input
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	f.logger.Info("spawning ffmpeg",
		zap.String("quality", profile.Name),
		zap.String("resolution", profile.Resolution),
		zap.String("bitrate", profile.Bitrate),
		zap.String("output", outputPath),
	)

	if err := cmd.Run(); err != nil {
		_ = os.Remove(outputPath)
		if ctx.Err() != nil {
			err = fmt.Errorf("%v: %w", err, ctx.Err())
		}
		diag := diagnosticTail(stderr.Bytes())
		f.logger.Error("ffmpeg failed", zap.Error(err), zap.String("stderr", diag))
		return nil, &EncodeError{Err: err, Diagnostic: diag}
	}

	return &Artifact{path: outputPath}, nil
}

// diagnosticTail returns the last maxDiagnosticBytes of stderr output.
func diagnosticTail(b []byte) string {
	if len(b) > maxDiagnosticBytes {
		b = b[len(b)-maxDiagnosticBytes:]
	}
	return string(b)
}
