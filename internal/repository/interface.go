package repository

import (
	"context"
	"time"

	"callscribe/internal/model"

	"github.com/google/uuid"
)

// Filter is a conjunction of optional constraints on conversation
// queries. Nil fields impose no constraint.
type Filter struct {
	TenantID         *int
	ConversationID   *uuid.UUID
	RepresentativeID *string
	StartDate        *time.Time
	EndDate          *time.Time
}

// ConversationRepository defines the interface for conversation record data access
type ConversationRepository interface {
	// Save inserts a new conversation record. It fills in the storage
	// surrogate key on the passed record and returns
	// ErrConversationExists when the conversation id collides.
	Save(ctx context.Context, rec *model.ConversationRecord) error

	// Query returns every record matching the filter conjunction.
	// No pagination and no guaranteed order; full-table scans on an
	// empty filter are a known scalability limit of the current
	// contract.
	Query(ctx context.Context, f Filter) ([]model.ConversationRecord, error)
}

// CredentialRepository defines the interface for credential lookup
type CredentialRepository interface {
	// GetByUsername retrieves a credential by its unique username,
	// returning ErrCredentialNotFound when absent.
	GetByUsername(ctx context.Context, username string) (*model.Credential, error)
}
