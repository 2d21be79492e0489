package router

import (
	"net/http"
	"strings"

	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/http/respond"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/session"
)

// orgHeader is the organization a browser tab believes it is working in.
const orgHeader = "organization-id"

// requireOrganization admits signed-in callers whose session is bound to an
// organization. A tab still showing another organization gets 409 so it
// reloads instead of writing into the wrong tenant.
func requireOrganization(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := session.FromContext(r.Context())
		if !ok {
			respond.Error(w, http.StatusUnauthorized, "sign in required")
			return
		}
		if sess.OrganizationID == "" {
			respond.Error(w, http.StatusConflict, "select an organization first")
			return
		}
		if staleTab(r, sess) {
			respond.Error(w, http.StatusConflict, "organization changed, reload the page")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// allowPendingOrganization admits signed-in callers whether or not an
// organization is selected yet. Pages behind it render their loading state
// until the choice is made.
func allowPendingOrganization(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := session.FromContext(r.Context())
		if !ok {
			respond.Error(w, http.StatusUnauthorized, "sign in required")
			return
		}
		if sess.OrganizationID != "" && staleTab(r, sess) {
			respond.Error(w, http.StatusConflict, "organization changed, reload the page")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func staleTab(r *http.Request, sess *session.Session) bool {
	claimed := strings.TrimSpace(r.Header.Get(orgHeader))
	return claimed != "" && claimed != sess.OrganizationID
}
