package document

import "github.com/docstack/knowledge-backend/internal/entity"

func toSummary(doc *entity.Document) *entity.DocumentSummary {
	return &entity.DocumentSummary{
		ID:         doc.ID,
		Title:      doc.Title,
		CategoryID: doc.CategoryID,
		Version:    doc.Version,
		Status:     doc.Status,
		SizeBytes:  doc.SizeBytes,
		UploadedAt: doc.UploadedAt,
	}
}

func toListResponse(docs []*entity.Document) *entity.ListDocumentsResponse {
	summaries := make([]*entity.DocumentSummary, 0, len(docs))
	for _, doc := range docs {
		summaries = append(summaries, toSummary(doc))
	}
	return &entity.ListDocumentsResponse{
		Documents: summaries,
		Count:     len(summaries),
	}
}
