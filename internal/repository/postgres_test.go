package repository

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"callscribe/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

func TestBuildConversationQueryNoFilter(t *testing.T) {
	query, args := buildConversationQuery(Filter{})
	if strings.Contains(query, "WHERE") {
		t.Fatalf("empty filter must not constrain the query: %s", query)
	}
	if len(args) != 0 {
		t.Fatalf("expected no args, got %d", len(args))
	}
}

func TestBuildConversationQuerySingleField(t *testing.T) {
	tenant := 5
	query, args := buildConversationQuery(Filter{TenantID: &tenant})

	if !strings.Contains(query, "WHERE tenant_id = $1") {
		t.Fatalf("unexpected query: %s", query)
	}
	if len(args) != 1 || args[0] != 5 {
		t.Fatalf("unexpected args: %#v", args)
	}
}

func TestBuildConversationQueryConjunction(t *testing.T) {
	tenant := 5
	rep := "rep-9"
	convID := uuid.New()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	query, args := buildConversationQuery(Filter{
		TenantID:         &tenant,
		ConversationID:   &convID,
		RepresentativeID: &rep,
		StartDate:        &start,
		EndDate:          &end,
	})

	wantClauses := []string{
		"tenant_id = $1",
		"conversation_id = $2",
		"representative_id = $3",
		"call_start_timestamp >= $4",
		"call_end_timestamp <= $5",
	}
	for _, clause := range wantClauses {
		if !strings.Contains(query, clause) {
			t.Fatalf("missing clause %q in query: %s", clause, query)
		}
	}
	if strings.Count(query, " AND ") != len(wantClauses)-1 {
		t.Fatalf("clauses not joined by AND: %s", query)
	}
	if len(args) != 5 {
		t.Fatalf("expected 5 args, got %d", len(args))
	}
}

func TestBuildConversationQuerySkipsAbsentFields(t *testing.T) {
	rep := "rep-9"
	query, args := buildConversationQuery(Filter{RepresentativeID: &rep})

	if strings.Contains(query, "tenant_id = $") {
		t.Fatalf("absent tenant filter leaked into query: %s", query)
	}
	if !strings.Contains(query, "representative_id = $1") {
		t.Fatalf("unexpected query: %s", query)
	}
	if len(args) != 1 || args[0] != "rep-9" {
		t.Fatalf("unexpected args: %#v", args)
	}
}

// conversationColumnNames mirrors the SELECT column list, in order.
var conversationColumnNames = []string{
	"id", "tenant_id", "conversation_id", "insent_timestamp", "call_id",
	"callee_phone_number", "caller_phone_number", "call_start_timestamp",
	"call_end_timestamp", "call_duration", "customer_id", "customer_details",
	"call_project_id", "call_project_details", "crm_date", "representative_id",
	"representative_name", "representative_details", "conversation_transcript",
	"conversation_summary", "tags", "sentiment", "resolution_status",
	"audio_file_id", "audio_file_details", "language", "analytics",
}

// TestConversationSaveQueryRoundTrip drives Save and Query through the
// real SQL paths and checks that a record comes back equal in every
// field: same parameter order on insert, same scan order and nullable
// JSONB handling on read.
func TestConversationSaveQueryRoundTrip(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %v", err)
	}
	defer db.Close()

	start := time.Date(2026, 5, 11, 14, 0, 0, 0, time.UTC)
	customerID := "cus-9"
	summary := "customer asked about an unpaid invoice"
	rec := model.ConversationRecord{
		TenantID:           3,
		ConversationID:     uuid.New(),
		InsentTimestamp:    start.Add(-time.Minute),
		CallID:             "call-1",
		CalleePhoneNumber:  "0502222222",
		CallerPhoneNumber:  "0501111111",
		CallStartTimestamp: start,
		CallEndTimestamp:   start.Add(92 * time.Second),
		CallDuration:       92,
		CustomerID:         &customerID,
		RepresentativeID:   "rep-1",
		RepresentativeName: "Avi",
		Transcript: model.Transcript{
			Metadata: map[string]interface{}{"language": "he"},
			Segments: []model.TranscriptSegment{
				{Speaker: "speaker_00", Timestamp: 0.5, Text: "hello"},
				{Speaker: "speaker_01", Timestamp: 2.25, Text: "world"},
			},
		},
		Summary:     &summary,
		Tags:        pq.StringArray{"billing", "invoice"},
		Sentiment:   map[string]interface{}{"score": 0.9},
		AudioFileID: "/records/tenant_3/2026/05/11/rep-1/inbound/a.wav",
		Language:    "he",
	}

	transcriptJSON, err := json.Marshal(rec.Transcript)
	if err != nil {
		t.Fatalf("failed to marshal transcript: %v", err)
	}
	sentimentJSON, err := json.Marshal(rec.Sentiment)
	if err != nil {
		t.Fatalf("failed to marshal sentiment: %v", err)
	}

	mock.ExpectQuery("INSERT INTO conversations").
		WithArgs(
			rec.TenantID, rec.ConversationID, rec.InsentTimestamp, rec.CallID,
			rec.CalleePhoneNumber, rec.CallerPhoneNumber, rec.CallStartTimestamp,
			rec.CallEndTimestamp, rec.CallDuration, rec.CustomerID, nil,
			nil, nil, nil, rec.RepresentativeID, rec.RepresentativeName, nil,
			transcriptJSON, rec.Summary, rec.Tags, sentimentJSON, nil,
			rec.AudioFileID, nil, rec.Language, nil,
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(41)))

	mock.ExpectQuery(`WHERE conversation_id = \$1`).
		WithArgs(rec.ConversationID).
		WillReturnRows(sqlmock.NewRows(conversationColumnNames).AddRow(
			int64(41), int64(rec.TenantID), rec.ConversationID.String(), rec.InsentTimestamp, rec.CallID,
			rec.CalleePhoneNumber, rec.CallerPhoneNumber, rec.CallStartTimestamp,
			rec.CallEndTimestamp, int64(rec.CallDuration), customerID, nil,
			nil, nil, nil, rec.RepresentativeID, rec.RepresentativeName, nil,
			transcriptJSON, summary, `{"billing","invoice"}`, sentimentJSON, nil,
			rec.AudioFileID, nil, rec.Language, nil,
		))

	repo := NewPostgresConversationRepository(db)
	if err := repo.Save(context.Background(), &rec); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if rec.ID != 41 {
		t.Fatalf("expected returned id 41, got %d", rec.ID)
	}

	convID := rec.ConversationID
	got, err := repo.Query(context.Background(), Filter{ConversationID: &convID})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	if !reflect.DeepEqual(got[0], rec) {
		t.Fatalf("round trip mismatch:\nsaved:   %#v\nqueried: %#v", rec, got[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSaveMapsUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("INSERT INTO conversations").
		WillReturnError(&pq.Error{Code: "23505"})

	repo := NewPostgresConversationRepository(db)
	rec := model.ConversationRecord{ConversationID: uuid.New()}
	if err := repo.Save(context.Background(), &rec); !errors.Is(err, ErrConversationExists) {
		t.Fatalf("expected ErrConversationExists, got %v", err)
	}
}

func TestGetByUsername(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM api_keys").
		WithArgs("avi").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "hashed_password"}).
			AddRow(int64(1), "avi", "$2a$10$stored-hash"))

	repo := NewPostgresCredentialRepository(db)
	cred, err := repo.GetByUsername(context.Background(), "avi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cred.Username != "avi" || cred.HashedPassword != "$2a$10$stored-hash" {
		t.Fatalf("unexpected credential: %#v", cred)
	}
}

func TestGetByUsernameNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM api_keys").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "hashed_password"}))

	repo := NewPostgresCredentialRepository(db)
	if _, err := repo.GetByUsername(context.Background(), "ghost"); !errors.Is(err, ErrCredentialNotFound) {
		t.Fatalf("expected ErrCredentialNotFound, got %v", err)
	}
}
