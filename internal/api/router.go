package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mcoot/caseclicker-orchestrator/internal/api/handler"
	"github.com/mcoot/caseclicker-orchestrator/internal/api/middleware"
	"github.com/mcoot/caseclicker-orchestrator/internal/api/response"
	basemiddleware "github.com/mcoot/caseclicker-orchestrator/internal/middleware"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger *slog.Logger
	Engine handler.EngineController
	// TokenHash is the bcrypt hash of the control token; empty disables auth
	TokenHash string
	// Gatherer backs /metrics; nil leaves the endpoint out
	Gatherer prometheus.Gatherer
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	engineHandler := handler.NewEngineHandler(cfg.Engine)

	authMiddleware := middleware.Auth(cfg.TokenHash)
	loggingMiddleware := basemiddleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	// Status and control (auth when configured)
	protected := func(h http.HandlerFunc) http.Handler { return authMiddleware(h) }
	api.Handle("/status", protected(engineHandler.Status)).Methods(http.MethodGet)
	api.Handle("/engine/start", protected(engineHandler.Start)).Methods(http.MethodPost)
	api.Handle("/engine/stop", protected(engineHandler.Stop)).Methods(http.MethodPost)

	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.HealthResponse{Status: "ok"})
}
