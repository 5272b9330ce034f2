package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// PanicHandler writes the response for a request whose handler panicked
type PanicHandler func(w http.ResponseWriter, r *http.Request, recovered any)

// Recovery turns handler panics into a logged error and a response from onPanic.
// http.ErrAbortHandler is re-raised so net/http can abort the connection as intended.
func Recovery(logger *slog.Logger, onPanic PanicHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				if err, ok := recovered.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(recovered)
				}

				logger.Error("handler panicked",
					slog.Any("panic", recovered),
					slog.String("request_id", r.Header.Get(RequestIDHeader)),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)
				onPanic(w, r, recovered)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
