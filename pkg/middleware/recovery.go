package middleware

import (
	"net/http"
	"runtime/debug"

	apperrors "buscharter/pkg/errors"
	"buscharter/pkg/logger"
)

// Recovery is the outermost middleware, so the tenant is read from the raw
// header rather than the request scope.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error("Panic recovered",
						"request_id", requestID(r),
						"tenant_id", r.Header.Get(TenantHeader),
						"error", err,
						"method", r.Method,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)

					writeRejection(w, http.StatusInternalServerError, apperrors.CodeInternal, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
