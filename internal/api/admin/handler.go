package admin

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/docstack/knowledge-backend/internal/entity"
	"github.com/docstack/knowledge-backend/internal/pkg/logger"
	"github.com/docstack/knowledge-backend/internal/pkg/response"
)

type Reconciler interface {
	Reconcile(ctx context.Context) (*entity.ReconcileReport, error)
}

type Handler struct {
	reconciler Reconciler
}

func NewHandler(reconciler Reconciler) *Handler {
	return &Handler{reconciler: reconciler}
}

// Reconcile handles POST /admin/reconcile. It sweeps ACTIVE documents whose
// vectors went missing and flags them for review.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Reconcile")

	ctxzap.Info(ctx, "starting reconciliation")

	report, err := h.reconciler.Reconcile(ctx)
	if err != nil {
		ctxzap.Error(ctx, "reconciliation failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "reconciliation failed")
		return
	}

	ctxzap.Info(ctx, "reconciliation finished",
		zap.Int("checked", report.Checked),
		zap.Int("degraded", len(report.Degraded)),
	)

	response.Success(w, "reconciliation finished", report)
}

// RegisterRoutes registers admin routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/admin", func(r chi.Router) {
		r.Post("/reconcile", h.Reconcile)
	})
}
