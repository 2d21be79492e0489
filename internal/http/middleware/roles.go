package middleware

import (
	"net/http"

	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/http/respond"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/tenancy"
)

// RequireRole lets through callers whose identity carries one of roles.
// It expects the session middleware to have run.
func RequireRole(roles ...tenancy.Role) func(http.Handler) http.Handler {
	allowed := make(map[tenancy.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := tenancy.IdentityFromContext(r.Context())
			if !ok || id.UserID == "" {
				respond.Error(w, http.StatusUnauthorized, "sign in required")
				return
			}
			if id.OrganizationID == "" {
				respond.Error(w, http.StatusConflict, "select an organization first")
				return
			}
			if _, ok := allowed[id.Role]; !ok {
				respond.Error(w, http.StatusForbidden, "your role does not allow this action")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
