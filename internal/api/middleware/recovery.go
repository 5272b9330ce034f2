package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/caseclicker-orchestrator/internal/api/apierr"
	"github.com/mcoot/caseclicker-orchestrator/internal/middleware"
)

// Recovery creates panic recovery middleware for the control API.
// A panic in a handler never takes the engine down with it.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, func(w http.ResponseWriter, _ *http.Request, _ any) {
		apierr.WriteError(w, apierr.NewInternalError())
	})
}
