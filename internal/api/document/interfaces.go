package document

import (
	"context"

	"github.com/docstack/knowledge-backend/internal/entity"
)

type IngestionUsecase interface {
	Upload(ctx context.Context, req *entity.UploadDocumentRequest) (*entity.UploadDocumentResponse, error)
	GetDocument(ctx context.Context, id string) (*entity.Document, error)
	ListDocuments(ctx context.Context, req entity.ListDocumentsRequest) ([]*entity.Document, error)
	UpdateStatus(ctx context.Context, id string, status entity.DocumentStatus) (*entity.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	Steps(ctx context.Context, documentID string) ([]*entity.IngestionStep, error)
}
