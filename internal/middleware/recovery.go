package middleware

import (
	"net/http"

	"github.com/aditya/go-boleia/internal/logger"
	"github.com/aditya/go-boleia/pkg/utils"
	"go.uber.org/zap"
)

// Recovery turns a handler panic into a logged 500. Aborted handlers are
// re-panicked so net/http can drop the connection.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logger.ErrorContext(r.Context(), "panic recovered",
				zap.Any("panic", rec),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Stack("stack"),
			)
			utils.InternalError(w, "an unexpected error occurred")
		}()

		next.ServeHTTP(w, r)
	})
}
