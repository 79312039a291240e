package repository

import (
	"context"
	"fmt"

	"github.com/docstack/knowledge-backend/internal/entity"
)

// IngestionStepRepository records saga steps of ingestion runs so diverging
// cross-store writes can be reconciled later. Writes happen outside the
// ingestion transaction on purpose: a rolled-back run must still leave its
// trail.
type IngestionStepRepository interface {
	Record(ctx context.Context, documentID, step, status, detail string) error
	ListByDocument(ctx context.Context, documentID string) ([]*entity.IngestionStep, error)
}

var _ IngestionStepRepository = &IngestionStepPostgres{}

type IngestionStepPostgres struct {
	db DBTX
}

func NewIngestionStepPostgres(db DBTX) *IngestionStepPostgres {
	return &IngestionStepPostgres{db: db}
}

func (r *IngestionStepPostgres) Record(ctx context.Context, documentID, step, status, detail string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO ingestion_steps (document_id, step, status, detail)
		VALUES ($1, $2, $3, $4)`,
		documentID, step, status, detail,
	)
	if err != nil {
		return fmt.Errorf("record ingestion step: %w", err)
	}
	return nil
}

func (r *IngestionStepPostgres) ListByDocument(ctx context.Context, documentID string) ([]*entity.IngestionStep, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, document_id::text, step, status, detail, created_at
		FROM ingestion_steps
		WHERE document_id = $1
		ORDER BY id`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list ingestion steps: %w", err)
	}
	defer rows.Close()

	var steps []*entity.IngestionStep
	for rows.Next() {
		var s entity.IngestionStep
		if err := rows.Scan(&s.ID, &s.DocumentID, &s.Step, &s.Status, &s.Detail, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ingestion step: %w", err)
		}
		steps = append(steps, &s)
	}
	return steps, rows.Err()
}
