package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"articles-cache-api/pkg/apierror"
)

// Recovery returns a middleware that turns panics into a 500 response.
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	log := logger.Named("recovery")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					log.Error("panic",
						zap.Any("error", err),
						zap.String("request_id", GetRequestID(r.Context())),
						zap.String("path", r.URL.Path),
						zap.Stack("stack"))

					writeError(w, apierror.InternalError("internal server error"))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
