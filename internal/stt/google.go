package stt

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"callscribe/internal/model"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleProvider implements STT using the Google Cloud
// Speech-to-Text REST API with word offsets and speaker diarization.
type GoogleProvider struct {
	projectID  string
	apiKey     string
	httpClient *http.Client
	useAPIKey  bool
	log        *zap.Logger
}

// NewGoogleProvider creates a new Google STT provider.
// keyData can be either:
//   - An API key (39 characters, typically starts with "AIzaSy")
//   - A file path to a JSON service-account key file
//   - A JSON string containing the service account credentials
func NewGoogleProvider(projectID, keyData string, timeout time.Duration, log *zap.Logger) (*GoogleProvider, error) {
	keyData = strings.TrimSpace(keyData)

	if len(keyData) == 39 && strings.HasPrefix(keyData, "AIzaSy") {
		return &GoogleProvider{
			projectID:  projectID,
			apiKey:     keyData,
			httpClient: &http.Client{Timeout: timeout},
			useAPIKey:  true,
			log:        log,
		}, nil
	}

	ctx := context.Background()
	var jsonData []byte
	if strings.HasPrefix(keyData, "{") {
		jsonData = []byte(keyData)
	} else {
		var err error
		jsonData, err = os.ReadFile(keyData)
		if err != nil {
			return nil, fmt.Errorf("failed to read key file '%s': %w", keyData, err)
		}
	}

	creds, err := google.CredentialsFromJSON(ctx, jsonData, "https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return nil, fmt.Errorf("failed to create credentials from JSON: %w", err)
	}

	client := oauth2.NewClient(ctx, creds.TokenSource)
	client.Timeout = timeout

	return &GoogleProvider{
		projectID:  projectID,
		httpClient: client,
		useAPIKey:  false,
		log:        log,
	}, nil
}

// Name returns the provider name
func (p *GoogleProvider) Name() string {
	return "google"
}

type googleRecognizeRequest struct {
	Config googleRecognitionConfig `json:"config"`
	Audio  googleRecognitionAudio  `json:"audio"`
}

type googleRecognitionConfig struct {
	Encoding                   string                  `json:"encoding"`
	SampleRateHertz            int                     `json:"sampleRateHertz"`
	LanguageCode               string                  `json:"languageCode"`
	EnableAutomaticPunctuation bool                    `json:"enableAutomaticPunctuation"`
	EnableWordTimeOffsets      bool                    `json:"enableWordTimeOffsets"`
	DiarizationConfig          googleDiarizationConfig `json:"diarizationConfig"`
}

type googleDiarizationConfig struct {
	EnableSpeakerDiarization bool `json:"enableSpeakerDiarization"`
}

type googleRecognitionAudio struct {
	Content string `json:"content"` // Base64 encoded
}

type googleWord struct {
	StartTime  string `json:"startTime"`
	Word       string `json:"word"`
	SpeakerTag int    `json:"speakerTag"`
}

type googleAlternative struct {
	Transcript string       `json:"transcript"`
	Words      []googleWord `json:"words"`
}

type googleResult struct {
	Alternatives []googleAlternative `json:"alternatives"`
}

type googleRecognizeResponse struct {
	Results []googleResult `json:"results"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Transcribe sends the canonical WAV audio to speech:recognize and
// folds the word-level response into diarized segments.
func (p *GoogleProvider) Transcribe(ctx context.Context, audioPath, language string) (*model.Transcript, error) {
	audioBytes, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, &TranscriptionError{Provider: p.Name(), Err: fmt.Errorf("failed to read audio file: %w", err)}
	}

	reqBody := googleRecognizeRequest{
		Config: googleRecognitionConfig{
			Encoding:                   "LINEAR16",
			SampleRateHertz:            16000,
			LanguageCode:               language,
			EnableAutomaticPunctuation: true,
			EnableWordTimeOffsets:      true,
			DiarizationConfig:          googleDiarizationConfig{EnableSpeakerDiarization: true},
		},
		Audio: googleRecognitionAudio{Content: base64.StdEncoding.EncodeToString(audioBytes)},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &TranscriptionError{Provider: p.Name(), Err: err}
	}

	url := "https://speech.googleapis.com/v1/speech:recognize"
	if p.useAPIKey {
		url += "?key=" + p.apiKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &TranscriptionError{Provider: p.Name(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	p.log.Debug("sending audio to google speech",
		zap.String("audio_path", audioPath),
		zap.String("language", language))

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &TranscriptionError{Provider: p.Name(), Err: fmt.Errorf("failed to reach google speech: %w", err)}
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
			Err:         fmt.Errorf("google speech returned status %d", resp.StatusCode),
		}
	}

	var googleResp googleRecognizeResponse
	if err := json.Unmarshal(body, &googleResp); err != nil {
		return nil, &TranscriptionError{
			Provider:    p.Name(),
			RawResponse: string(body),
			Err:         fmt.Errorf("failed to parse google response: %w", err),
		}
	}
	if googleResp.Error != nil {
		return nil, &TranscriptionError{
			Provider:    p.Name(),
			RawResponse: string(body),
			Err:         fmt.Errorf("google speech error %d: %s", googleResp.Error.Code, googleResp.Error.Message),
		}
	}

	segments := foldGoogleWords(&googleResp)
	if len(segments) == 0 {
		return nil, &TranscriptionError{
			Provider:    p.Name(),
			RawResponse: string(body),
			Err:         fmt.Errorf("no speech detected in audio"),
		}
	}

	return &model.Transcript{
		Metadata: map[string]interface{}{
			"provider": p.Name(),
			"language": language,
		},
		Segments: segments,
	}, nil
}

// foldGoogleWords groups consecutive same-speaker words into segments.
// When diarization is enabled the final result repeats every word with
// its speakerTag, so only the last result's word list is folded.
func foldGoogleWords(resp *googleRecognizeResponse) []model.TranscriptSegment {
	if len(resp.Results) == 0 {
		return nil
	}
	last := resp.Results[len(resp.Results)-1]
	if len(last.Alternatives) == 0 {
		return nil
	}

	var segments []model.TranscriptSegment
	var words []string
	currentTag := -1
	start := 0.0

	flush := func() {
		if len(words) == 0 {
			return
		}
		segments = append(segments, model.TranscriptSegment{
			Speaker:   fmt.Sprintf("speaker_%d", currentTag),
			Timestamp: start,
			Text:      strings.Join(words, " "),
		})
		words = nil
	}

	for _, w := range last.Alternatives[0].Words {
		if w.SpeakerTag != currentTag {
			flush()
			currentTag = w.SpeakerTag
			start = parseOffset(w.StartTime)
		}
		words = append(words, w.Word)
	}
	flush()

	return segments
}

// parseOffset converts Google duration strings like "1.500s" to
// seconds.
func parseOffset(s string) float64 {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d.Seconds()
}
