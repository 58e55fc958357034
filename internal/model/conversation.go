package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// TranscriptSegment is one diarized span of speech: who spoke, when
// (seconds from the start of the recording), and what was said.
type TranscriptSegment struct {
	Speaker   string  `json:"speaker"`
	Timestamp float64 `json:"timestamp"`
	Text      string  `json:"text"`
}

// Transcript holds the ordered diarized segments plus whatever extra
// metadata the transcription provider returned.
type Transcript struct {
	Metadata map[string]interface{} `json:"metadata"`
	Segments []TranscriptSegment    `json:"transcript"`
}

// FullText joins all segment texts in order, separated by single spaces.
func (t *Transcript) FullText() string {
	parts := make([]string, 0, len(t.Segments))
	for _, seg := range t.Segments {
		parts = append(parts, seg.Text)
	}
	return strings.Join(parts, " ")
}

// CallMetadata is the shared per-batch call information supplied with
// an upload request. One batch carries exactly one CallMetadata; the
// pipeline stamps each file with a fresh call id before planning its
// storage path.
type CallMetadata struct {
	TenantID           int
	InsentTimestamp    time.Time
	CallStartTimestamp time.Time
	CallEndTimestamp   time.Time
	CallerPhoneNumber  string
	CalleePhoneNumber  string
	CallID             string
	RepresentativeID   string
	RepresentativeName string
	CallType           string
	Language           string
}

// Duration returns the call length in whole seconds. An end timestamp
// earlier than the start timestamp has no valid duration and is
// reported as an error rather than a negative number.
func (m CallMetadata) Duration() (int, error) {
	if m.CallEndTimestamp.Before(m.CallStartTimestamp) {
		return 0, fmt.Errorf("call_end_timestamp %s is before call_start_timestamp %s",
			m.CallEndTimestamp.Format(time.RFC3339), m.CallStartTimestamp.Format(time.RFC3339))
	}
	return int(m.CallEndTimestamp.Sub(m.CallStartTimestamp).Seconds()), nil
}

// ConversationRecord is one fully processed audio file: identity,
// timing, parties, transcript, summary, and the enrichment columns
// reserved for future collaborators (never populated by ingestion).
type ConversationRecord struct {
	ID                    int                    `json:"-"`
	TenantID              int                    `json:"tenant_id"`
	ConversationID        uuid.UUID              `json:"conversation_id"`
	InsentTimestamp       time.Time              `json:"insent_timestamp"`
	CallID                string                 `json:"call_id"`
	CalleePhoneNumber     string                 `json:"callee_phone_number"`
	CallerPhoneNumber     string                 `json:"caller_phone_number"`
	CallStartTimestamp    time.Time              `json:"call_start_timestamp"`
	CallEndTimestamp      time.Time              `json:"call_end_timestamp"`
	CallDuration          int                    `json:"call_duration"`
	CustomerID            *string                `json:"customer_id,omitempty"`
	CustomerDetails       map[string]interface{} `json:"customer_details,omitempty"`
	CallProjectID         *string                `json:"call_project_id,omitempty"`
	CallProjectDetails    map[string]interface{} `json:"call_project_details,omitempty"`
	CRMDate               map[string]interface{} `json:"crm_date,omitempty"`
	RepresentativeID      string                 `json:"representative_id"`
	RepresentativeName    string                 `json:"representative_name"`
	RepresentativeDetails map[string]interface{} `json:"representative_details,omitempty"`
	Transcript            Transcript             `json:"conversation_transcript"`
	Summary               *string                `json:"conversation_summary,omitempty"`
	Tags                  pq.StringArray         `json:"tags,omitempty"`
	Sentiment             map[string]interface{} `json:"sentiment,omitempty"`
	ResolutionStatus      *string                `json:"resolution_status,omitempty"`
	AudioFileID           string                 `json:"audio_file_id"`
	AudioFileDetails      map[string]interface{} `json:"audio_file_details,omitempty"`
	Language              string                 `json:"language"`
	Analytics             map[string]interface{} `json:"analytics,omitempty"`
}

// FileResult is the outcome of one file within a batch upload. The
// result list a batch returns has exactly one entry per input file,
// in input order.
type FileResult struct {
	Success        bool       `json:"success"`
	Details        string     `json:"details"`
	ConversationID *uuid.UUID `json:"conversation_id,omitempty"`
}
