package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/docstack/knowledge-backend/internal/entity"
	"github.com/docstack/knowledge-backend/internal/pkg/validator"
)

// pauseEvery is the number of chunks embedded between pacing pauses.
const pauseEvery = 5

// Usecase orchestrates document ingestion across the relational store, the
// blob store and the vector index. The relational writes run inside one
// transaction; blob and index writes do not, so every step is recorded in the
// ingestion_steps trail and Reconcile sweeps up what a failed run left behind.
type Usecase struct {
	documents  DocumentRepo
	categories CategoryRepo
	users      UserRepo
	steps      StepRepo
	validator  UploadValidator
	blobs      BlobStore
	extractor  PageExtractor
	chunker    TextChunker
	embedder   Embedder
	index      VectorIndex
	tx         TxRunner
	pause      time.Duration
	logger     *zap.Logger
}

// NewUsecase creates a new ingestion use case. pause is the delay inserted
// after every pauseEvery embedded chunks; tests pass zero.
func NewUsecase(
	documents DocumentRepo,
	categories CategoryRepo,
	users UserRepo,
	steps StepRepo,
	uploadValidator UploadValidator,
	blobs BlobStore,
	pageExtractor PageExtractor,
	textChunker TextChunker,
	embedder Embedder,
	index VectorIndex,
	tx TxRunner,
	pause time.Duration,
	logger *zap.Logger,
) *Usecase {
	return &Usecase{
		documents:  documents,
		categories: categories,
		users:      users,
		steps:      steps,
		validator:  uploadValidator,
		blobs:      blobs,
		extractor:  pageExtractor,
		chunker:    textChunker,
		embedder:   embedder,
		index:      index,
		tx:         tx,
		pause:      pause,
		logger:     logger,
	}
}

// Upload validates, persists, extracts, chunks, embeds and indexes one
// document. Chunks whose embedding fails are skipped; the response reports
// how many of the total chunks made it into the index.
func (uc *Usecase) Upload(ctx context.Context, req *entity.UploadDocumentRequest) (*entity.UploadDocumentResponse, error) {
	if err := uc.validator.ValidateUpload(req); err != nil {
		return nil, err
	}

	ok, err := uc.categories.Exists(ctx, req.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("check category: %w", err)
	}
	if !ok {
		return nil, entity.ErrCategoryNotFound
	}

	ok, err = uc.users.Exists(ctx, req.UploadedBy)
	if err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if !ok {
		return nil, entity.ErrUserNotFound
	}

	documentID := uuid.New().String()
	ext := validator.Extension(req.Filename)
	uc.recordStep(ctx, documentID, entity.StepValidating, entity.StepStatusOK, "")

	var (
		resp        *entity.UploadDocumentResponse
		blobWritten bool
	)

	err = uc.tx.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		doc, err := uc.documents.Create(ctx, tx, entity.Document{
			ID:          documentID,
			Title:       req.Title,
			CategoryID:  req.CategoryID,
			Version:     req.Version,
			Description: req.Description,
			SizeBytes:   int64(len(req.Content)),
			Status:      entity.DocumentStatusActive,
			UploadedBy:  req.UploadedBy,
		})
		if err != nil {
			return uc.failStep(ctx, documentID, entity.StepPersistingRecord, fmt.Errorf("create document: %w", err))
		}
		uc.recordStep(ctx, documentID, entity.StepPersistingRecord, entity.StepStatusOK, "")

		storagePath, err := uc.blobs.Write(ctx, documentID, ext, req.Content)
		if err != nil {
			return uc.failStep(ctx, documentID, entity.StepStoringBlob, fmt.Errorf("store blob: %w", err))
		}
		blobWritten = true
		uc.recordStep(ctx, documentID, entity.StepStoringBlob, entity.StepStatusOK, storagePath)

		if err := uc.documents.UpdateStoragePath(ctx, tx, documentID, storagePath); err != nil {
			return uc.failStep(ctx, documentID, entity.StepStoringBlob, fmt.Errorf("update storage path: %w", err))
		}
		doc.StoragePath = storagePath

		pages, err := uc.extractor.Extract(ctx, req.Content, ext)
		if err != nil {
			return uc.failStep(ctx, documentID, entity.StepExtracting, fmt.Errorf("extract text: %w", err))
		}
		uc.recordStep(ctx, documentID, entity.StepExtracting, entity.StepStatusOK, fmt.Sprintf("%d pages", len(pages)))

		var chunks []entity.Chunk
		for _, page := range pages {
			chunks = append(chunks, uc.chunker.Chunk(page.Text, page.Number, len(chunks))...)
		}
		uc.recordStep(ctx, documentID, entity.StepChunking, entity.StepStatusOK, fmt.Sprintf("%d chunks", len(chunks)))

		embedded, err := uc.embedChunks(ctx, documentID, chunks)
		if err != nil {
			return uc.failStep(ctx, documentID, entity.StepEmbedding, err)
		}
		uc.recordStep(ctx, documentID, entity.StepEmbedding, entity.StepStatusOK,
			fmt.Sprintf("%d/%d embedded", len(embedded), len(chunks)))

		if len(embedded) > 0 {
			if err := uc.index.Upsert(ctx, documentID, req.Title, req.CategoryID, embedded); err != nil {
				return uc.failStep(ctx, documentID, entity.StepIndexing, fmt.Errorf("index chunks: %w", err))
			}
			uc.recordStep(ctx, documentID, entity.StepIndexing, entity.StepStatusOK,
				fmt.Sprintf("%d points", len(embedded)))
		}

		resp = &entity.UploadDocumentResponse{
			Document:      doc,
			ChunksTotal:   len(chunks),
			ChunksIndexed: len(embedded),
		}
		return nil
	})
	if err != nil {
		if blobWritten {
			ctxzap.Warn(ctx, "ingestion rolled back after blob write, reconcile will pick up leftovers",
				zap.String("document_id", documentID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	uc.recordStep(ctx, documentID, entity.StepCommitted, entity.StepStatusOK, "")

	if stats, statsErr := uc.categories.Stats(ctx, req.CategoryID); statsErr == nil {
		ctxzap.Info(ctx, "document ingested",
			zap.String("document_id", documentID),
			zap.String("category_id", req.CategoryID),
			zap.Int("chunks_total", resp.ChunksTotal),
			zap.Int("chunks_indexed", resp.ChunksIndexed),
			zap.Int("category_documents", stats.DocumentCount),
		)
	}

	return resp, nil
}

// embedChunks embeds chunk texts one by one, skipping chunks whose embedding
// fails. It only aborts when the context itself is done.
func (uc *Usecase) embedChunks(ctx context.Context, documentID string, chunks []entity.Chunk) ([]entity.EmbeddedChunk, error) {
	embedded := make([]entity.EmbeddedChunk, 0, len(chunks))
	for i, chunk := range chunks {
		vector, err := uc.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("embed chunks: %w", ctx.Err())
			}
			ctxzap.Warn(ctx, "chunk embedding failed, skipping",
				zap.String("document_id", documentID),
				zap.Int("chunk_no", chunk.SequenceNo),
				zap.Error(err),
			)
			continue
		}
		embedded = append(embedded, entity.EmbeddedChunk{Chunk: chunk, Vector: vector})

		if (i+1)%pauseEvery == 0 && i+1 < len(chunks) {
			if err := uc.pauseBetween(ctx); err != nil {
				return nil, fmt.Errorf("embed chunks: %w", err)
			}
		}
	}
	return embedded, nil
}

func (uc *Usecase) pauseBetween(ctx context.Context) error {
	if uc.pause <= 0 {
		return nil
	}
	t := time.NewTimer(uc.pause)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// GetDocument returns one document by id.
func (uc *Usecase) GetDocument(ctx context.Context, id string) (*entity.Document, error) {
	if err := uuid.Validate(id); err != nil {
		return nil, fmt.Errorf("%w: document id must be a uuid", entity.ErrInvalidParameter)
	}
	return uc.documents.Get(ctx, id)
}

// ListDocuments returns a page of documents, optionally scoped to a category.
func (uc *Usecase) ListDocuments(ctx context.Context, req entity.ListDocumentsRequest) ([]*entity.Document, error) {
	req.Normalize()
	return uc.documents.List(ctx, req)
}

// UpdateStatus moves a document through its lifecycle states.
func (uc *Usecase) UpdateStatus(ctx context.Context, id string, status entity.DocumentStatus) (*entity.Document, error) {
	if err := uuid.Validate(id); err != nil {
		return nil, fmt.Errorf("%w: document id must be a uuid", entity.ErrInvalidParameter)
	}
	if err := status.Validate(); err != nil {
		return nil, err
	}
	if err := uc.documents.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return uc.documents.Get(ctx, id)
}

// DeleteDocument removes a document from the index, the blob store and the
// relational store, in that order. Index and blob removal are best-effort:
// an unacknowledged index delete is logged and the deletion proceeds, since
// the relational row is the source of truth for existence.
func (uc *Usecase) DeleteDocument(ctx context.Context, id string) error {
	if err := uuid.Validate(id); err != nil {
		return fmt.Errorf("%w: document id must be a uuid", entity.ErrInvalidParameter)
	}

	doc, err := uc.documents.Get(ctx, id)
	if err != nil {
		return err
	}

	if !uc.index.Delete(ctx, id) {
		ctxzap.Warn(ctx, "vector index delete unacknowledged",
			zap.String("document_id", id),
		)
	}

	if doc.StoragePath != "" {
		if err := uc.blobs.Delete(ctx, id, validator.Extension(doc.StoragePath)); err != nil {
			ctxzap.Warn(ctx, "blob delete failed",
				zap.String("document_id", id),
				zap.Error(err),
			)
		}
	}

	if err := uc.documents.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	ctxzap.Info(ctx, "document deleted", zap.String("document_id", id))
	return nil
}

// Steps returns the ingestion trail of one document.
func (uc *Usecase) Steps(ctx context.Context, documentID string) ([]*entity.IngestionStep, error) {
	if err := uuid.Validate(documentID); err != nil {
		return nil, fmt.Errorf("%w: document id must be a uuid", entity.ErrInvalidParameter)
	}
	return uc.steps.ListByDocument(ctx, documentID)
}

// Reconcile checks every ACTIVE document against the vector index and marks
// documents with no indexed points as IN_REVIEW. It never re-indexes on its
// own; an operator decides what to do with degraded documents.
func (uc *Usecase) Reconcile(ctx context.Context) (*entity.ReconcileReport, error) {
	docs, err := uc.documents.ListByStatus(ctx, entity.DocumentStatusActive)
	if err != nil {
		return nil, fmt.Errorf("list active documents: %w", err)
	}

	report := &entity.ReconcileReport{Checked: len(docs)}
	for _, doc := range docs {
		if uc.index.Exists(ctx, doc.ID) {
			continue
		}
		if err := uc.documents.UpdateStatus(ctx, doc.ID, entity.DocumentStatusInReview); err != nil {
			return nil, fmt.Errorf("mark document %s in review: %w", doc.ID, err)
		}
		ctxzap.Warn(ctx, "active document missing from vector index",
			zap.String("document_id", doc.ID),
			zap.String("title", doc.Title),
		)
		report.Degraded = append(report.Degraded, doc.ID)
	}

	return report, nil
}

// recordStep appends one saga step. Trail writes are best-effort and never
// fail the ingestion itself.
func (uc *Usecase) recordStep(ctx context.Context, documentID, step, status, detail string) {
	if err := uc.steps.Record(ctx, documentID, step, status, detail); err != nil {
		ctxzap.Warn(ctx, "failed to record ingestion step",
			zap.String("document_id", documentID),
			zap.String("step", step),
			zap.Error(err),
		)
	}
}

func (uc *Usecase) failStep(ctx context.Context, documentID, step string, err error) error {
	uc.recordStep(ctx, documentID, step, entity.StepStatusFailed, err.Error())
	return err
}
