package middleware

import (
	"net/http"

	"storefront-console/internal/domain"
)

// NewAdminMiddleware only lets through users whose role carries the admin marker.
// MUST be used AFTER the auth middleware.
func NewAdminMiddleware(adminRoleName string) func(http.Handler) http.Handler {
	if adminRoleName == "" {
		adminRoleName = domain.DefaultAdminRoleName
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				WriteDomainError(w, r, domain.ErrUnauthorized)
				return
			}
			if !user.IsAdmin(adminRoleName) {
				WriteDomainError(w, r, domain.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
