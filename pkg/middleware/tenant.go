package middleware

import (
	"net/http"
	"strings"

	apperrors "buscharter/pkg/errors"
	"buscharter/pkg/logger"
	"buscharter/pkg/tenant"
)

const (
	TenantHeader = "X-Tenant-ID"
	ActorHeader  = "X-Actor-ID"
)

// TenantScope puts the caller's tenant and actor into the request context.
// Requests without a tenant never reach a handler.
func TenantScope(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID := strings.TrimSpace(r.Header.Get(TenantHeader))
			if tenantID == "" || len(tenantID) > 64 {
				log.Warn("Missing or malformed tenant header",
					"request_id", requestID(r),
					"path", r.URL.Path,
					"method", r.Method,
				)
				writeRejection(w, http.StatusUnauthorized, apperrors.CodeUnauthorized, "missing tenant scope")
				return
			}

			ctx := tenant.WithScope(r.Context(), tenant.Scope{
				TenantID: tenantID,
				ActorID:  r.Header.Get(ActorHeader),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
