package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/docstack/knowledge-backend/internal/api/admin"
	"github.com/docstack/knowledge-backend/internal/api/docs"
	documentapi "github.com/docstack/knowledge-backend/internal/api/document"
	"github.com/docstack/knowledge-backend/internal/api/middleware"
	queryapi "github.com/docstack/knowledge-backend/internal/api/query"
)

// SetupRouter creates and configures the HTTP router
func SetupRouter(
	documentHandler *documentapi.Handler,
	queryHandler *queryapi.Handler,
	adminHandler *admin.Handler,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Swagger documentation endpoints
	docs.RegisterRoutes(r)

	r.Route("/api/v1", func(r chi.Router) {
		documentapi.RegisterRoutes(r, documentHandler)
		queryapi.RegisterRoutes(r, queryHandler)
		admin.RegisterRoutes(r, adminHandler)
	})

	return r
}
