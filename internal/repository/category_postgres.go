package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/docstack/knowledge-backend/internal/entity"
)

// CategoryRepository defines the interface for category lookups used by
// ingestion validation. Stats returns a fixed result shape, never an ad hoc
// aggregation.
type CategoryRepository interface {
	Get(ctx context.Context, id string) (*entity.Category, error)
	Exists(ctx context.Context, id string) (bool, error)
	Stats(ctx context.Context, id string) (*entity.CategoryStats, error)
}

var _ CategoryRepository = &CategoryPostgres{}

type CategoryPostgres struct {
	db DBTX
}

func NewCategoryPostgres(db DBTX) *CategoryPostgres {
	return &CategoryPostgres{db: db}
}

func (r *CategoryPostgres) Get(ctx context.Context, id string) (*entity.Category, error) {
	var cat entity.Category
	err := r.db.QueryRow(ctx,
		`SELECT id::text, name, description, created_at FROM categories WHERE id = $1`, id,
	).Scan(&cat.ID, &cat.Name, &cat.Description, &cat.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &cat, nil
}

func (r *CategoryPostgres) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("category exists: %w", err)
	}
	return exists, nil
}

func (r *CategoryPostgres) Stats(ctx context.Context, id string) (*entity.CategoryStats, error) {
	stats := entity.CategoryStats{CategoryID: id}
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(size_bytes), 0)
		FROM documents
		WHERE category_id = $1`, id,
	).Scan(&stats.DocumentCount, &stats.TotalSizeBytes)
	if err != nil {
		return nil, fmt.Errorf("category stats: %w", err)
	}
	return &stats, nil
}
