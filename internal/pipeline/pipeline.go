package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"callscribe/internal/ai"
	"callscribe/internal/media"
	"callscribe/internal/model"
	"callscribe/internal/pathplan"
	"callscribe/internal/repository"
	"callscribe/internal/stt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxBatchSize caps one upload request; anything larger is rejected
// before any file is touched.
const maxBatchSize = 10

// ValidationError rejects a whole batch before per-file processing:
// bad batch size, missing required metadata, or an inverted call
// interval. No per-file results accompany it.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid batch: %s", e.Reason)
}

// UploadedFile is one raw upload within a batch, decoupled from the
// HTTP layer so the pipeline can be driven directly in tests.
type UploadedFile struct {
	Filename string
	Open     func() (io.ReadCloser, error)
}

// Pipeline orchestrates per-file ingestion: temp save, normalization,
// transcription, summarization, and persistence. All collaborators are
// injected once at startup.
type Pipeline struct {
	planner     *pathplan.Planner
	normalizer  media.Normalizer
	transcriber stt.Provider
	summarizer  ai.Summarizer
	store       repository.ConversationRepository
	tempDir     string
	log         *zap.Logger
}

// New wires a pipeline from its collaborators. summarizer may be nil,
// in which case records are persisted without summaries.
func New(
	planner *pathplan.Planner,
	normalizer media.Normalizer,
	transcriber stt.Provider,
	summarizer ai.Summarizer,
	store repository.ConversationRepository,
	tempDir string,
	log *zap.Logger,
) *Pipeline {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Pipeline{
		planner:     planner,
		normalizer:  normalizer,
		transcriber: transcriber,
		summarizer:  summarizer,
		store:       store,
		tempDir:     tempDir,
		log:         log,
	}
}

// ProcessBatch runs every file through the pipeline in input order and
// returns one result per file, in the same order. A file's failure is
// recorded in its result and never aborts the rest of the batch.
// Batch-level violations return a *ValidationError with no results.
func (p *Pipeline) ProcessBatch(ctx context.Context, files []UploadedFile, meta model.CallMetadata) ([]model.FileResult, error) {
	if err := validateBatch(files, meta); err != nil {
		return nil, err
	}

	results := make([]model.FileResult, 0, len(files))
	for _, file := range files {
		// Each file is its own call. A fresh id per file keeps the
		// planned storage paths distinct even when the shared batch
		// metadata arrives with a call id already set.
		fileMeta := meta
		fileMeta.CallID = uuid.NewString()

		conversationID, err := p.processFile(ctx, file, fileMeta)
		if err != nil {
			p.log.Error("failed to process file",
				zap.String("filename", file.Filename),
				zap.Error(err))
			results = append(results, model.FileResult{
				Success: false,
				Details: err.Error(),
			})
			continue
		}

		results = append(results, model.FileResult{
			Success:        true,
			Details:        "File processed successfully.",
			ConversationID: &conversationID,
		})
	}

	return results, nil
}

func validateBatch(files []UploadedFile, meta model.CallMetadata) error {
	if len(files) == 0 {
		return &ValidationError{Reason: "no files in upload"}
	}
	if len(files) > maxBatchSize {
		return &ValidationError{Reason: fmt.Sprintf("cannot upload more than %d files at once", maxBatchSize)}
	}
	if meta.RepresentativeID == "" {
		return &ValidationError{Reason: "representative_id is required"}
	}
	if meta.RepresentativeName == "" {
		return &ValidationError{Reason: "representative_name is required"}
	}
	if meta.Language == "" {
		return &ValidationError{Reason: "audio_file_language is required"}
	}
	if _, err := meta.Duration(); err != nil {
		return &ValidationError{Reason: err.Error()}
	}
	return nil
}

// processFile runs one file through every pipeline stage and returns
// the persisted conversation id. The temp file is deleted only after a
// successful normalization; on failure it stays on disk for
// inspection. A summarization failure does not fail the file: the
// record is persisted without a summary.
func (p *Pipeline) processFile(ctx context.Context, file UploadedFile, meta model.CallMetadata) (uuid.UUID, error) {
	tempPath, err := p.saveTemp(file)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to save upload: %w", err)
	}

	targetPath, err := p.planner.Plan(meta, "wav")
	if err != nil {
		return uuid.Nil, err
	}

	if err := p.normalizer.Normalize(ctx, tempPath, targetPath); err != nil {
		// temp file intentionally kept for diagnosis
		return uuid.Nil, err
	}
	if err := os.Remove(tempPath); err != nil {
		p.log.Warn("failed to remove temp file", zap.String("path", tempPath), zap.Error(err))
	}
	p.log.Debug("normalized audio",
		zap.String("filename", file.Filename),
		zap.String("path", targetPath))

	transcript, err := p.transcriber.Transcribe(ctx, targetPath, meta.Language)
	if err != nil {
		return uuid.Nil, err
	}

	var summary *string
	if p.summarizer != nil {
		text, err := p.summarizer.Summarize(ctx, transcript.FullText())
		if err != nil {
			p.log.Warn("summarization failed, persisting without summary",
				zap.String("filename", file.Filename),
				zap.Error(err))
		} else {
			summary = &text
		}
	}

	duration, err := meta.Duration()
	if err != nil {
		return uuid.Nil, err
	}

	rec := &model.ConversationRecord{
		TenantID:           meta.TenantID,
		ConversationID:     uuid.New(),
		InsentTimestamp:    meta.InsentTimestamp,
		CallID:             meta.CallID,
		CalleePhoneNumber:  meta.CalleePhoneNumber,
		CallerPhoneNumber:  meta.CallerPhoneNumber,
		CallStartTimestamp: meta.CallStartTimestamp,
		CallEndTimestamp:   meta.CallEndTimestamp,
		CallDuration:       duration,
		RepresentativeID:   meta.RepresentativeID,
		RepresentativeName: meta.RepresentativeName,
		Transcript:         *transcript,
		Summary:            summary,
		AudioFileID:        targetPath,
		Language:           meta.Language,
	}

	if err := p.store.Save(ctx, rec); err != nil {
		return uuid.Nil, err
	}

	p.log.Info("saved conversation",
		zap.String("conversation_id", rec.ConversationID.String()),
		zap.String("filename", file.Filename))

	return rec.ConversationID, nil
}

// saveTemp writes the raw upload under a collision-resistant random
// name, never the client-supplied filename.
func (p *Pipeline) saveTemp(file UploadedFile) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	ext := filepath.Ext(file.Filename)
	tempPath := filepath.Join(p.tempDir, uuid.NewString()+ext)

	dst, err := os.Create(tempPath)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(tempPath)
		return "", err
	}
	if err := dst.Close(); err != nil {
		os.Remove(tempPath)
		return "", err
	}

	return tempPath, nil
}
