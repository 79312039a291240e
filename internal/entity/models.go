package entity

import (
	"fmt"
	"time"
)

type DocumentStatus string

// Document status represents the lifecycle state of an ingested document
const (
	DocumentStatusActive   DocumentStatus = "ACTIVE"
	DocumentStatusObsolete DocumentStatus = "OBSOLETE"
	DocumentStatusInReview DocumentStatus = "IN_REVIEW"
)

func (ds *DocumentStatus) Validate() error {
	switch *ds {
	case DocumentStatusActive, DocumentStatusObsolete, DocumentStatusInReview:
		return nil
	default:
		return fmt.Errorf("%w: unknown document status %q", ErrInvalidParameter, *ds)
	}
}

// Document is the relational record for an ingested file. StoragePath is
// patched only after the blob has been persisted (two-phase write).
type Document struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	CategoryID  string         `json:"category_id"`
	Version     string         `json:"version,omitempty"`
	Description string         `json:"description,omitempty"`
	StoragePath string         `json:"storage_path,omitempty"`
	SizeBytes   int64          `json:"size_bytes"`
	Status      DocumentStatus `json:"status"`
	UploadedBy  string         `json:"uploaded_by"`
	UploadedAt  time.Time      `json:"uploaded_at"`
}

type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CategoryStats is the fixed result shape for category aggregation queries.
type CategoryStats struct {
	CategoryID     string `json:"category_id"`
	DocumentCount  int    `json:"document_count"`
	TotalSizeBytes int64  `json:"total_size_bytes"`
}

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// IngestionStep records one saga step of an ingestion run for later
// reconciliation when cross-store writes diverge.
type IngestionStep struct {
	ID         int64     `json:"id"`
	DocumentID string    `json:"document_id"`
	Step       string    `json:"step"`
	Status     string    `json:"status"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

const (
	StepValidating       = "VALIDATING"
	StepPersistingRecord = "PERSISTING_RECORD"
	StepStoringBlob      = "STORING_BLOB"
	StepExtracting       = "EXTRACTING"
	StepChunking         = "CHUNKING"
	StepEmbedding        = "EMBEDDING"
	StepIndexing         = "INDEXING"
	StepCommitted        = "COMMITTED"

	StepStatusOK     = "OK"
	StepStatusFailed = "FAILED"
)

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one turn of a conversation, append-only, ordered by insertion.
type Message struct {
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// ConversationMetadata tracks a conversation's lifecycle; its absence is the
// authoritative "conversation does not exist" signal.
type ConversationMetadata struct {
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	CreatedAt      time.Time `json:"created_at"`
	LastActiveAt   time.Time `json:"last_active_at"`
	MessageCount   int       `json:"message_count"`
}
