package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
)

// ConversionError wraps any decode/encode failure from the normalizer.
// The ffmpeg stderr tail is kept on the error for diagnosis.
type ConversionError struct {
	Input  string
	Stderr string
	Err    error
}

func (e *ConversionError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("media conversion failed for %s: %v: %s", e.Input, e.Err, e.Stderr)
	}
	return fmt.Sprintf("media conversion failed for %s: %v", e.Input, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// Normalizer converts arbitrary input audio into the canonical profile:
// WAV container, 16-bit signed little-endian PCM, mono, 16 kHz.
type Normalizer interface {
	Normalize(ctx context.Context, inputPath, outputPath string) error
}

// FFmpegNormalizer shells out to ffmpeg for conversion.
type FFmpegNormalizer struct {
	bin string
}

// NewFFmpegNormalizer creates a normalizer using the given ffmpeg
// binary ("ffmpeg" resolves through PATH).
func NewFFmpegNormalizer(bin string) *FFmpegNormalizer {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpegNormalizer{bin: bin}
}

// Normalize converts inputPath into canonical WAV at outputPath,
// overwriting any existing file there. The conversion writes to a
// partial file and renames on success, so a failure never leaves a
// half-written file at the destination.
func (n *FFmpegNormalizer) Normalize(ctx context.Context, inputPath, outputPath string) error {
	partial := outputPath + ".partial"

	// ffmpeg -y -i input -acodec pcm_s16le -ac 1 -ar 16000 -f wav partial
	cmd := exec.CommandContext(ctx, n.bin,
		"-y", "-i", inputPath,
		"-acodec", "pcm_s16le",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		partial,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(partial)
		return &ConversionError{Input: inputPath, Stderr: tail(stderr.String(), 512), Err: err}
	}

	if err := os.Rename(partial, outputPath); err != nil {
		os.Remove(partial)
		return &ConversionError{Input: inputPath, Err: err}
	}

	return nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
