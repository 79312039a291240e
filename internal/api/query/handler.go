package query

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/docstack/knowledge-backend/internal/entity"
	"github.com/docstack/knowledge-backend/internal/pkg/logger"
	"github.com/docstack/knowledge-backend/internal/pkg/response"
)

type Handler struct {
	usecase QueryUsecase
}

func NewHandler(usecase QueryUsecase) *Handler {
	return &Handler{usecase: usecase}
}

// Ask handles POST /query
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Ask")

	var req entity.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctxzap.Warn(ctx, "invalid request body", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctxzap.Info(ctx, "answering question",
		zap.String("user_id", req.UserID),
		zap.String("conversation_id", req.ConversationID),
		zap.Int("top_k", req.TopK),
	)

	resp, err := h.usecase.Ask(ctx, &req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "question answered",
		zap.String("conversation_id", resp.ConversationID),
		zap.Int("citations", len(resp.Citations)),
	)

	response.Success(w, "question answered", resp)
}

// CreateConversation handles POST /conversations
func (h *Handler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "CreateConversation")

	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctxzap.Warn(ctx, "invalid request body", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	meta, err := h.usecase.CreateConversation(ctx, req.UserID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "conversation created",
		zap.String("conversation_id", meta.ConversationID),
		zap.String("user_id", req.UserID),
	)

	response.Created(w, "conversation created", meta)
}

// GetConversation handles GET /conversations/{conversation_id}
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID := chi.URLParam(r, "conversation_id")

	ctx = logger.AddFields(ctx,
		zap.String("conversation_id", conversationID),
		zap.String("action", "GetConversation"),
	)

	meta, err := h.usecase.Metadata(ctx, conversationID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, "conversation found", meta)
}

// GetHistory handles GET /conversations/{conversation_id}/messages
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID := chi.URLParam(r, "conversation_id")

	ctx = logger.AddFields(ctx,
		zap.String("conversation_id", conversationID),
		zap.String("action", "GetHistory"),
	)

	history, err := h.usecase.History(ctx, conversationID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, "history listed", map[string]any{
		"conversation_id": conversationID,
		"messages":        history,
	})
}

// DeleteConversation handles DELETE /conversations/{conversation_id}
func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID := chi.URLParam(r, "conversation_id")

	ctx = logger.AddFields(ctx,
		zap.String("conversation_id", conversationID),
		zap.String("action", "DeleteConversation"),
	)

	if err := h.usecase.Clear(ctx, conversationID); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "conversation cleared")
	response.Success(w, "conversation cleared", nil)
}

func (h *Handler) handleUsecaseError(ctx context.Context, w http.ResponseWriter, err error) {
	ctxzap.Error(ctx, "request failed", zap.Error(err))

	switch {
	case errors.Is(err, entity.ErrConversationNotFound),
		errors.Is(err, entity.ErrUserNotFound),
		errors.Is(err, entity.ErrCategoryNotFound):
		response.Error(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, entity.ErrInvalidParameter),
		errors.Is(err, entity.ErrMissingField),
		errors.Is(err, entity.ErrInvalidFormat):
		response.Error(w, http.StatusBadRequest, "invalid parameter")
	case errors.Is(err, entity.ErrProviderUnavailable):
		response.Error(w, http.StatusBadGateway, "model provider unavailable")
	default:
		response.Error(w, http.StatusInternalServerError, "internal server error")
	}
}
