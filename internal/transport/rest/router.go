package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/employee-portal/internal/transport"
	"github.com/frahmantamala/employee-portal/internal/transport/middleware"
	"github.com/frahmantamala/employee-portal/internal/transport/swagger"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// RegisterDocsRoutes mounts the API reference: the raw document, Swagger UI
// over it, and health endpoints for the dependencies the client talks to.
func RegisterDocsRoutes(router chi.Router, document []byte, checks map[string]Check, logger *slog.Logger) {
	base := transport.NewBaseHandler(logger)
	healthHandler := NewHealthHandler(base, checks)

	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		if _, err := w.Write(document); err != nil {
			logger.Error("failed to write openapi document", "error", err)
		}
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Get("/health", healthHandler.healthCheckHandler)
	router.Get("/ping", healthHandler.pingHandler)
}
