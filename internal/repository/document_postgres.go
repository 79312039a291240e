package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/docstack/knowledge-backend/internal/entity"
)

// DocumentRepository defines the interface for document persistence
type DocumentRepository interface {
	Create(ctx context.Context, db DBTX, doc entity.Document) (*entity.Document, error)
	Get(ctx context.Context, id string) (*entity.Document, error)
	List(ctx context.Context, req entity.ListDocumentsRequest) ([]*entity.Document, error)
	ListByStatus(ctx context.Context, status entity.DocumentStatus) ([]*entity.Document, error)
	TitlesByIDs(ctx context.Context, ids []string) (map[string]string, error)
	UpdateStoragePath(ctx context.Context, db DBTX, id, storagePath string) error
	UpdateStatus(ctx context.Context, id string, status entity.DocumentStatus) error
	Delete(ctx context.Context, id string) error
}

var _ DocumentRepository = &DocumentPostgres{}

// DocumentPostgres implements DocumentRepository using PostgreSQL
type DocumentPostgres struct {
	db DBTX
}

func NewDocumentPostgres(db DBTX) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

const documentColumns = `id::text, title, category_id::text, version, description,
	storage_path, size_bytes, status, uploaded_by::text, uploaded_at`

// Create inserts the document row. Runs on db (pool or open transaction) so
// the orchestrator can keep the row inside its unit of work.
func (r *DocumentPostgres) Create(ctx context.Context, db DBTX, doc entity.Document) (*entity.Document, error) {
	if db == nil {
		db = r.db
	}

	row := db.QueryRow(ctx, `
		INSERT INTO documents (id, title, category_id, version, description,
			storage_path, size_bytes, status, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+documentColumns,
		doc.ID, doc.Title, doc.CategoryID, doc.Version, doc.Description,
		doc.StoragePath, doc.SizeBytes, string(doc.Status), doc.UploadedBy,
	)

	created, err := scanDocument(row)
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return created, nil
}

func (r *DocumentPostgres) Get(ctx context.Context, id string) (*entity.Document, error) {
	row := r.db.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

func (r *DocumentPostgres) List(ctx context.Context, req entity.ListDocumentsRequest) ([]*entity.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents`
	args := []any{}
	if req.CategoryID != "" {
		query += ` WHERE category_id = $1`
		args = append(args, req.CategoryID)
	}
	query += fmt.Sprintf(` ORDER BY uploaded_at DESC LIMIT %d OFFSET %d`, req.Limit, req.Skip)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	return collectDocuments(rows)
}

func (r *DocumentPostgres) ListByStatus(ctx context.Context, status entity.DocumentStatus) ([]*entity.Document, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE status = $1 ORDER BY uploaded_at`,
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("list documents by status: %w", err)
	}
	defer rows.Close()

	return collectDocuments(rows)
}

// TitlesByIDs resolves document titles in one round trip, deduplicated by id.
func (r *DocumentPostgres) TitlesByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT id::text, title FROM documents WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, fmt.Errorf("titles by ids: %w", err)
	}
	defer rows.Close()

	titles := make(map[string]string, len(ids))
	for rows.Next() {
		var id, title string
		if err := rows.Scan(&id, &title); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		titles[id] = title
	}
	return titles, rows.Err()
}

func (r *DocumentPostgres) UpdateStoragePath(ctx context.Context, db DBTX, id, storagePath string) error {
	if db == nil {
		db = r.db
	}

	tag, err := db.Exec(ctx,
		`UPDATE documents SET storage_path = $2 WHERE id = $1`, id, storagePath)
	if err != nil {
		return fmt.Errorf("update storage path: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentPostgres) UpdateStatus(ctx context.Context, id string, status entity.DocumentStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE documents SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentPostgres) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrDocumentNotFound
	}
	return nil
}
