package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// maxChunkChars bounds the text sent per completion so long calls stay
// inside the model's context window.
const maxChunkChars = 1000

const systemPrompt = "You summarize phone call transcripts. Produce a short, " +
	"factual prose summary of the conversation. Do not invent details."

// SummarizationError wraps any failure from the summarization service.
type SummarizationError struct {
	Err error
}

func (e *SummarizationError) Error() string {
	return fmt.Sprintf("summarization failed: %v", e.Err)
}

func (e *SummarizationError) Unwrap() error { return e.Err }

// Summarizer condenses a full transcript into a prose summary.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

// OpenAISummarizer implements Summarizer on the OpenAI chat API.
type OpenAISummarizer struct {
	client *openai.Client
	model  string
	log    *zap.Logger
}

// NewOpenAISummarizer creates a summarizer using the given API key and
// model name.
func NewOpenAISummarizer(apiKey, model string, log *zap.Logger) *OpenAISummarizer {
	return &OpenAISummarizer{
		client: openai.NewClient(apiKey),
		model:  model,
		log:    log,
	}
}

// Summarize splits the transcript into chunks, summarizes each chunk
// with one chat completion, and joins the partial summaries.
func (s *OpenAISummarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", &SummarizationError{Err: fmt.Errorf("empty transcript")}
	}

	chunks := splitChunks(transcript, maxChunkChars)
	s.log.Debug("summarizing transcript",
		zap.Int("length", len(transcript)),
		zap.Int("chunks", len(chunks)))

	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		summary, err := s.summarizeChunk(ctx, chunk)
		if err != nil {
			return "", &SummarizationError{Err: fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)}
		}
		parts = append(parts, summary)
	}

	return strings.TrimSpace(strings.Join(parts, " ")), nil
}

func (s *OpenAISummarizer) summarizeChunk(ctx context.Context, chunk string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: chunk},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// splitChunks cuts s into pieces of at most size bytes, mirroring the
// fixed-window chunking the summarization model expects.
func splitChunks(s string, size int) []string {
	if size <= 0 || len(s) <= size {
		return []string{s}
	}
	chunks := make([]string, 0, len(s)/size+1)
	for start := 0; start < len(s); start += size {
		end := start + size
		if end > len(s) {
			end = len(s)
		}
		chunks = append(chunks, s[start:end])
	}
	return chunks
}
