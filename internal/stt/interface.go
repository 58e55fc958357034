package stt

import (
	"context"
	"fmt"

	"callscribe/internal/model"
)

// Provider defines the interface for speech-to-text providers. A
// provider returns ordered diarized segments with offsets from the
// start of the recording.
type Provider interface {
	// Transcribe transcribes the audio file at audioPath in the given
	// language code and returns the diarized transcript.
	Transcribe(ctx context.Context, audioPath, language string) (*model.Transcript, error)

	// Name returns the name of the provider (e.g., "whisper", "google")
	Name() string
}

// TranscriptionError wraps any provider failure: transport errors,
// non-200 responses, malformed payloads, or empty results.
type TranscriptionError struct {
	Provider    string
	RawResponse string
	Err         error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription failed (provider: %s): %v", e.Provider, e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }
