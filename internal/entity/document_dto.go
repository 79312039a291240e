package entity

import "time"

// UploadDocumentRequest carries one inbound document upload.
type UploadDocumentRequest struct {
	Title       string
	CategoryID  string
	Version     string
	Description string
	UploadedBy  string
	Filename    string
	Content     []byte
}

// UploadDocumentResponse reports ingestion outcome. ChunksIndexed may be less
// than ChunksTotal when individual chunks failed to embed.
type UploadDocumentResponse struct {
	Document      *Document `json:"document"`
	ChunksTotal   int       `json:"chunks_total"`
	ChunksIndexed int       `json:"chunks_indexed"`
}

// ListDocumentsRequest is a paginated listing request.
type ListDocumentsRequest struct {
	Skip       int
	Limit      int
	CategoryID string
}

func (r *ListDocumentsRequest) Normalize() {
	if r.Skip < 0 {
		r.Skip = 0
	}
	if r.Limit <= 0 || r.Limit > 100 {
		r.Limit = 20
	}
}

// DocumentSummary is the listing view of a document. Storage details stay
// server-side.
type DocumentSummary struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	CategoryID string         `json:"category_id"`
	Version    string         `json:"version"`
	Status     DocumentStatus `json:"status"`
	SizeBytes  int64          `json:"size_bytes"`
	UploadedAt time.Time      `json:"uploaded_at"`
}

// ListDocumentsResponse wraps one listing page.
type ListDocumentsResponse struct {
	Documents []*DocumentSummary `json:"documents"`
	Count     int                `json:"count"`
}

// UpdateStatusRequest changes a document's lifecycle state.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// ReconcileReport summarizes one reconciliation pass over active documents.
type ReconcileReport struct {
	Checked  int      `json:"checked"`
	Degraded []string `json:"degraded,omitempty"`
}
