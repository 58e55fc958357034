package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"callscribe/internal/model"

	"go.uber.org/zap"
)

// WhisperProvider implements STT against a WhisperX-style HTTP service
// that performs alignment and speaker diarization server-side.
type WhisperProvider struct {
	apiKey     string
	url        string
	httpClient *http.Client
	log        *zap.Logger
}

// NewWhisperProvider creates a new Whisper STT provider. The timeout
// bounds the whole transcription call; a timeout surfaces as a normal
// TranscriptionError.
func NewWhisperProvider(apiKey, url string, timeout time.Duration, log *zap.Logger) *WhisperProvider {
	return &WhisperProvider{
		apiKey:     apiKey,
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// Name returns the provider name
func (p *WhisperProvider) Name() string {
	return "whisper"
}

// whisperResponse is the diarized transcription payload returned by
// the service.
type whisperResponse struct {
	Language string `json:"language"`
	Segments []struct {
		Speaker string  `json:"speaker"`
		Start   float64 `json:"start"`
		End     float64 `json:"end"`
		Text    string  `json:"text"`
	} `json:"segments"`
	Error string `json:"error,omitempty"`
}

// Transcribe uploads the audio file and returns the ordered diarized
// segments.
func (p *WhisperProvider) Transcribe(ctx context.Context, audioPath, language string) (*model.Transcript, error) {
	audio, err := os.Open(audioPath)
	if err != nil {
		return nil, &TranscriptionError{Provider: p.Name(), Err: fmt.Errorf("failed to open audio file: %w", err)}
	}
	defer audio.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, &TranscriptionError{Provider: p.Name(), Err: err}
	}
	if _, err := io.Copy(part, audio); err != nil {
		return nil, &TranscriptionError{Provider: p.Name(), Err: fmt.Errorf("failed to read audio file: %w", err)}
	}
	if err := writer.WriteField("language", language); err != nil {
		return nil, &TranscriptionError{Provider: p.Name(), Err: err}
	}
	if err := writer.Close(); err != nil {
		return nil, &TranscriptionError{Provider: p.Name(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, &buf)
	if err != nil {
		return nil, &TranscriptionError{Provider: p.Name(), Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if p.apiKey != "" {
		req.Header.Set("api-key", p.apiKey)
	}

	p.log.Debug("sending audio to whisper service",
		zap.String("audio_path", audioPath),
		zap.String("language", language))

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &TranscriptionError{Provider: p.Name(), Err: fmt.Errorf("failed to reach whisper service: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TranscriptionError{Provider: p.Name(), Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &TranscriptionError{
			Provider:    p.Name(),
			RawResponse: string(body),
			Err:         fmt.Errorf("whisper service returned status %d", resp.StatusCode),
		}
	}

	var whisperResp whisperResponse
	if err := json.Unmarshal(body, &whisperResp); err != nil {
		return nil, &TranscriptionError{
			Provider:    p.Name(),
			RawResponse: string(body),
			Err:         fmt.Errorf("failed to parse whisper response: %w", err),
		}
	}

	if whisperResp.Error != "" {
		return nil, &TranscriptionError{
			Provider:    p.Name(),
			RawResponse: string(body),
			Err:         fmt.Errorf("whisper service error: %s", whisperResp.Error),
		}
	}

	if len(whisperResp.Segments) == 0 {
		return nil, &TranscriptionError{
			Provider:    p.Name(),
			RawResponse: string(body),
			Err:         fmt.Errorf("no speech detected in audio"),
		}
	}

	transcript := &model.Transcript{
		Metadata: map[string]interface{}{
			"provider": p.Name(),
			"language": whisperResp.Language,
		},
		Segments: make([]model.TranscriptSegment, 0, len(whisperResp.Segments)),
	}
	for _, seg := range whisperResp.Segments {
		transcript.Segments = append(transcript.Segments, model.TranscriptSegment{
			Speaker:   speakerLabel(seg.Speaker),
			Timestamp: seg.Start,
			Text:      seg.Text,
		})
	}

	p.log.Debug("whisper transcription successful",
		zap.Int("segments", len(transcript.Segments)))

	return transcript, nil
}

// speakerLabel normalizes provider speaker ids into the persisted
// speaker_N form.
func speakerLabel(raw string) string {
	if raw == "" {
		return "speaker_unknown"
	}
	return "speaker_" + raw
}
