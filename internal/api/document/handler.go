package document

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/docstack/knowledge-backend/internal/config"
	"github.com/docstack/knowledge-backend/internal/entity"
	"github.com/docstack/knowledge-backend/internal/pkg/logger"
	"github.com/docstack/knowledge-backend/internal/pkg/response"
)

type Handler struct {
	usecase IngestionUsecase
	cfg     config.FileUploadConfig
}

func NewHandler(usecase IngestionUsecase, cfg config.FileUploadConfig) *Handler {
	return &Handler{
		usecase: usecase,
		cfg:     cfg,
	}
}

// UploadDocument handles POST /documents
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "UploadDocument")

	if err := r.ParseMultipartForm(h.cfg.MaxUploadSize); err != nil {
		ctxzap.Error(ctx, "failed to parse multipart form", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "invalid form data or size too large")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		ctxzap.Warn(ctx, "no file provided", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "a file is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, h.cfg.MaxFileSize+1))
	if err != nil {
		ctxzap.Error(ctx, "failed to read uploaded file", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	req := &entity.UploadDocumentRequest{
		Title:       r.FormValue("title"),
		CategoryID:  r.FormValue("category_id"),
		Version:     r.FormValue("version"),
		Description: r.FormValue("description"),
		UploadedBy:  r.FormValue("uploaded_by"),
		Filename:    header.Filename,
		Content:     content,
	}

	ctxzap.Info(ctx, "uploading document",
		zap.String("title", req.Title),
		zap.String("category_id", req.CategoryID),
		zap.String("filename", req.Filename),
		zap.Int("size_bytes", len(content)),
	)

	resp, err := h.usecase.Upload(ctx, req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "document uploaded successfully",
		zap.String("document_id", resp.Document.ID),
		zap.Int("chunks_total", resp.ChunksTotal),
		zap.Int("chunks_indexed", resp.ChunksIndexed),
	)

	response.Created(w, "document ingested", resp)
}

// ListDocuments handles GET /documents
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "ListDocuments")

	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	req := entity.ListDocumentsRequest{
		Skip:       skip,
		Limit:      limit,
		CategoryID: r.URL.Query().Get("category_id"),
	}

	docs, err := h.usecase.ListDocuments(ctx, req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "documents listed successfully", zap.Int("count", len(docs)))
	response.Success(w, "documents listed", toListResponse(docs))
}

// GetDocument handles GET /documents/{document_id}
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	documentID := chi.URLParam(r, "document_id")

	ctx = logger.AddFields(ctx,
		zap.String("document_id", documentID),
		zap.String("action", "GetDocument"),
	)

	doc, err := h.usecase.GetDocument(ctx, documentID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, "document found", doc)
}

// UpdateStatus handles PATCH /documents/{document_id}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	documentID := chi.URLParam(r, "document_id")

	ctx = logger.AddFields(ctx,
		zap.String("document_id", documentID),
		zap.String("action", "UpdateStatus"),
	)

	var req entity.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctxzap.Warn(ctx, "invalid request body", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := h.usecase.UpdateStatus(ctx, documentID, entity.DocumentStatus(req.Status))
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "document status updated", zap.String("status", req.Status))
	response.Success(w, "status updated", doc)
}

// DeleteDocument handles DELETE /documents/{document_id}
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	documentID := chi.URLParam(r, "document_id")

	ctx = logger.AddFields(ctx,
		zap.String("document_id", documentID),
		zap.String("action", "DeleteDocument"),
	)

	ctxzap.Info(ctx, "deleting document")

	if err := h.usecase.DeleteDocument(ctx, documentID); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, "document deleted", nil)
}

// ListSteps handles GET /documents/{document_id}/steps
func (h *Handler) ListSteps(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	documentID := chi.URLParam(r, "document_id")

	ctx = logger.AddFields(ctx,
		zap.String("document_id", documentID),
		zap.String("action", "ListSteps"),
	)

	steps, err := h.usecase.Steps(ctx, documentID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, "ingestion steps listed", map[string]any{
		"document_id": documentID,
		"steps":       steps,
	})
}

func (h *Handler) handleUsecaseError(ctx context.Context, w http.ResponseWriter, err error) {
	ctxzap.Error(ctx, "request failed", zap.Error(err))

	switch {
	case errors.Is(err, entity.ErrDocumentNotFound),
		errors.Is(err, entity.ErrCategoryNotFound),
		errors.Is(err, entity.ErrUserNotFound):
		response.Error(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, entity.ErrInvalidParameter),
		errors.Is(err, entity.ErrMissingField),
		errors.Is(err, entity.ErrInvalidFormat):
		response.Error(w, http.StatusBadRequest, "invalid parameter")
	case errors.Is(err, entity.ErrInvalidExtension),
		errors.Is(err, entity.ErrFileTooLarge),
		errors.Is(err, entity.ErrEmptyFile),
		errors.Is(err, entity.ErrInvalidDocument):
		response.Error(w, http.StatusBadRequest, "invalid file")
	case errors.Is(err, entity.ErrProviderUnavailable):
		response.Error(w, http.StatusBadGateway, "embedding provider unavailable")
	default:
		response.Error(w, http.StatusInternalServerError, "internal server error")
	}
}
