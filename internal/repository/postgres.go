package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"callscribe/internal/model"

	"github.com/lib/pq"
)

var (
	// ErrConversationExists is returned when an insert collides with an
	// existing conversation_id. UUID generation makes this nearly
	// impossible, but the constraint is still surfaced as a typed error
	// instead of being assumed away.
	ErrConversationExists = errors.New("conversation already exists")

	// ErrCredentialNotFound is returned when no credential row matches
	// the requested username.
	ErrCredentialNotFound = errors.New("credential not found")
)

const conversationColumns = `
	id, tenant_id, conversation_id, insent_timestamp, call_id,
	callee_phone_number, caller_phone_number, call_start_timestamp,
	call_end_timestamp, call_duration, customer_id, customer_details,
	call_project_id, call_project_details, crm_date, representative_id,
	representative_name, representative_details, conversation_transcript,
	conversation_summary, tags, sentiment, resolution_status,
	audio_file_id, audio_file_details, language, analytics`

type postgresConversationRepository struct {
	db *sql.DB
}

// NewPostgresConversationRepository creates a conversation repository
// backed by the given connection pool.
func NewPostgresConversationRepository(conn *sql.DB) ConversationRepository {
	return &postgresConversationRepository{db: conn}
}

// Save inserts a new conversation record
func (r *postgresConversationRepository) Save(ctx context.Context, rec *model.ConversationRecord) error {
	query := `
		INSERT INTO conversations (
			tenant_id, conversation_id, insent_timestamp, call_id,
			callee_phone_number, caller_phone_number, call_start_timestamp,
			call_end_timestamp, call_duration, customer_id, customer_details,
			call_project_id, call_project_details, crm_date, representative_id,
			representative_name, representative_details, conversation_transcript,
			conversation_summary, tags, sentiment, resolution_status,
			audio_file_id, audio_file_details, language, analytics
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26
		) RETURNING id
	`

	transcriptJSON, err := json.Marshal(rec.Transcript)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	customerDetails, err := marshalNullable(rec.CustomerDetails)
	if err != nil {
		return fmt.Errorf("failed to marshal customer details: %w", err)
	}
	projectDetails, err := marshalNullable(rec.CallProjectDetails)
	if err != nil {
		return fmt.Errorf("failed to marshal project details: %w", err)
	}
	crmDate, err := marshalNullable(rec.CRMDate)
	if err != nil {
		return fmt.Errorf("failed to marshal crm date: %w", err)
	}
	repDetails, err := marshalNullable(rec.RepresentativeDetails)
	if err != nil {
		return fmt.Errorf("failed to marshal representative details: %w", err)
	}
	sentiment, err := marshalNullable(rec.Sentiment)
	if err != nil {
		return fmt.Errorf("failed to marshal sentiment: %w", err)
	}
	audioDetails, err := marshalNullable(rec.AudioFileDetails)
	if err != nil {
		return fmt.Errorf("failed to marshal audio file details: %w", err)
	}
	analytics, err := marshalNullable(rec.Analytics)
	if err != nil {
		return fmt.Errorf("failed to marshal analytics: %w", err)
	}

	var tags interface{}
	if rec.Tags != nil {
		tags = rec.Tags
	}

	err = r.db.QueryRowContext(ctx, query,
		rec.TenantID,
		rec.ConversationID,
		rec.InsentTimestamp,
		rec.CallID,
		rec.CalleePhoneNumber,
		rec.CallerPhoneNumber,
		rec.CallStartTimestamp,
		rec.CallEndTimestamp,
		rec.CallDuration,
		rec.CustomerID,
		customerDetails,
		rec.CallProjectID,
		projectDetails,
		crmDate,
		rec.RepresentativeID,
		rec.RepresentativeName,
		repDetails,
		transcriptJSON,
		rec.Summary,
		tags,
		sentiment,
		rec.ResolutionStatus,
		rec.AudioFileID,
		audioDetails,
		rec.Language,
		analytics,
	).Scan(&rec.ID)

	if err != nil {
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConversationExists
		}
		return fmt.Errorf("failed to save conversation: %w", err)
	}

	return nil
}

// buildConversationQuery turns a filter conjunction into a WHERE
// clause with positional arguments.
func buildConversationQuery(f Filter) (string, []interface{}) {
	query := "SELECT" + conversationColumns + " FROM conversations"

	var clauses []string
	var args []interface{}

	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if f.TenantID != nil {
		add("tenant_id = $%d", *f.TenantID)
	}
	if f.ConversationID != nil {
		add("conversation_id = $%d", *f.ConversationID)
	}
	if f.RepresentativeID != nil {
		add("representative_id = $%d", *f.RepresentativeID)
	}
	if f.StartDate != nil {
		add("call_start_timestamp >= $%d", *f.StartDate)
	}
	if f.EndDate != nil {
		add("call_end_timestamp <= $%d", *f.EndDate)
	}

	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	return query, args
}

// Query returns all conversations matching the filter
func (r *postgresConversationRepository) Query(ctx context.Context, f Filter) ([]model.ConversationRecord, error) {
	query, args := buildConversationQuery(f)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	records := make([]model.ConversationRecord, 0)
	for rows.Next() {
		rec, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

func scanConversation(rows *sql.Rows) (*model.ConversationRecord, error) {
	var rec model.ConversationRecord
	var (
		callID          sql.NullString
		calleeNumber    sql.NullString
		callerNumber    sql.NullString
		transcriptJSON  []byte
		customerDetails []byte
		projectDetails  []byte
		crmDate         []byte
		repDetails      []byte
		sentiment       []byte
		audioDetails    []byte
		analytics       []byte
		audioFileID     sql.NullString
		language        sql.NullString
		tags            pq.StringArray
	)

	err := rows.Scan(
		&rec.ID,
		&rec.TenantID,
		&rec.ConversationID,
		&rec.InsentTimestamp,
		&callID,
		&calleeNumber,
		&callerNumber,
		&rec.CallStartTimestamp,
		&rec.CallEndTimestamp,
		&rec.CallDuration,
		&rec.CustomerID,
		&customerDetails,
		&rec.CallProjectID,
		&projectDetails,
		&crmDate,
		&rec.RepresentativeID,
		&rec.RepresentativeName,
		&repDetails,
		&transcriptJSON,
		&rec.Summary,
		&tags,
		&sentiment,
		&rec.ResolutionStatus,
		&audioFileID,
		&audioDetails,
		&language,
		&analytics,
	)
	if err != nil {
		return nil, err
	}

	rec.CallID = callID.String
	rec.CalleePhoneNumber = calleeNumber.String
	rec.CallerPhoneNumber = callerNumber.String
	rec.AudioFileID = audioFileID.String
	rec.Language = language.String
	if tags != nil {
		rec.Tags = tags
	}

	if err := json.Unmarshal(transcriptJSON, &rec.Transcript); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}
	if err := unmarshalNullable(customerDetails, &rec.CustomerDetails); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(projectDetails, &rec.CallProjectDetails); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(crmDate, &rec.CRMDate); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(repDetails, &rec.RepresentativeDetails); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(sentiment, &rec.Sentiment); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(audioDetails, &rec.AudioFileDetails); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(analytics, &rec.Analytics); err != nil {
		return nil, err
	}

	return &rec, nil
}

func marshalNullable(m map[string]interface{}) (interface{}, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func unmarshalNullable(b []byte, dst *map[string]interface{}) error {
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("failed to unmarshal jsonb column: %w", err)
	}
	return nil
}

type postgresCredentialRepository struct {
	db *sql.DB
}

// NewPostgresCredentialRepository creates a credential repository
// backed by the given connection pool.
func NewPostgresCredentialRepository(conn *sql.DB) CredentialRepository {
	return &postgresCredentialRepository{db: conn}
}

// GetByUsername retrieves a credential by username
func (r *postgresCredentialRepository) GetByUsername(ctx context.Context, username string) (*model.Credential, error) {
	query := `SELECT id, username, hashed_password FROM api_keys WHERE username = $1`

	var cred model.Credential
	err := r.db.QueryRowContext(ctx, query, username).Scan(&cred.ID, &cred.Username, &cred.HashedPassword)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCredentialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	return &cred, nil
}
