package repository

import (
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/docstack/knowledge-backend/internal/entity"
)

func scanDocument(row pgx.Row) (*entity.Document, error) {
	var doc entity.Document
	var status string
	err := row.Scan(
		&doc.ID, &doc.Title, &doc.CategoryID, &doc.Version, &doc.Description,
		&doc.StoragePath, &doc.SizeBytes, &status, &doc.UploadedBy, &doc.UploadedAt,
	)
	if err != nil {
		return nil, err
	}
	doc.Status = entity.DocumentStatus(status)
	return &doc, nil
}

func collectDocuments(rows pgx.Rows) ([]*entity.Document, error) {
	var docs []*entity.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
