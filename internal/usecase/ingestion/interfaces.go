package ingestion

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/docstack/knowledge-backend/internal/entity"
	"github.com/docstack/knowledge-backend/internal/extractor"
	"github.com/docstack/knowledge-backend/internal/repository"
)

type DocumentRepo interface {
	Create(ctx context.Context, db repository.DBTX, doc entity.Document) (*entity.Document, error)
	Get(ctx context.Context, id string) (*entity.Document, error)
	List(ctx context.Context, req entity.ListDocumentsRequest) ([]*entity.Document, error)
	ListByStatus(ctx context.Context, status entity.DocumentStatus) ([]*entity.Document, error)
	UpdateStoragePath(ctx context.Context, db repository.DBTX, id, storagePath string) error
	UpdateStatus(ctx context.Context, id string, status entity.DocumentStatus) error
	Delete(ctx context.Context, id string) error
}

type CategoryRepo interface {
	Exists(ctx context.Context, id string) (bool, error)
	Stats(ctx context.Context, id string) (*entity.CategoryStats, error)
}

type UserRepo interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type StepRepo interface {
	Record(ctx context.Context, documentID, step, status, detail string) error
	ListByDocument(ctx context.Context, documentID string) ([]*entity.IngestionStep, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type VectorIndex interface {
	Upsert(ctx context.Context, documentID, title, category string, chunks []entity.EmbeddedChunk) error
	Delete(ctx context.Context, documentID string) bool
	Exists(ctx context.Context, documentID string) bool
}

type BlobStore interface {
	Write(ctx context.Context, documentID, ext string, content []byte) (string, error)
	Delete(ctx context.Context, documentID, ext string) error
}

type PageExtractor interface {
	Extract(ctx context.Context, content []byte, ext string) ([]extractor.Page, error)
}

type TextChunker interface {
	Chunk(text string, page, startSeq int) []entity.Chunk
}

type UploadValidator interface {
	ValidateUpload(req *entity.UploadDocumentRequest) error
}

type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
}
