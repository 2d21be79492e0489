package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/session"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/tenancy"
)

func withSession(r *http.Request, sess *session.Session) *http.Request {
	ctx := session.WithSession(r.Context(), sess)
	ctx = tenancy.WithIdentity(ctx, sess.Identity())
	return r.WithContext(ctx)
}

func TestRequireOrganizationPassesThrough(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := tenancy.IdentityFromContext(r.Context())
		if !ok || id.OrganizationID != "org-abc" {
			t.Fatalf("expected org id propagated, got %s / %v", id.OrganizationID, ok)
		}
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(orgHeader, "org-abc")
	req = withSession(req, &session.Session{ID: "s1", UserID: "u1", OrganizationID: "org-abc", Role: tenancy.RoleUser})

	rr := httptest.NewRecorder()
	requireOrganization(next).ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected downstream status, got %d", rr.Code)
	}
}

func TestRequireOrganizationRejects(t *testing.T) {
	tests := []struct {
		name   string
		sess   *session.Session
		header string
		want   int
	}{
		{"no session", nil, "", http.StatusUnauthorized},
		{"pending organization", &session.Session{ID: "s1", UserID: "u1"}, "", http.StatusConflict},
		{"stale tab", &session.Session{ID: "s1", UserID: "u1", OrganizationID: "org-b"}, "org-a", http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := requireOrganization(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				t.Fatal("handler should not run")
			}))
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set(orgHeader, tt.header)
			}
			if tt.sess != nil {
				req = withSession(req, tt.sess)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rr.Code)
			}
		})
	}
}

func TestAllowPendingOrganization(t *testing.T) {
	tests := []struct {
		name   string
		sess   *session.Session
		header string
		want   int
	}{
		{"no session", nil, "", http.StatusUnauthorized},
		{"pending organization", &session.Session{ID: "s1", UserID: "u1"}, "org-a", http.StatusTeapot},
		{"selected organization", &session.Session{ID: "s1", UserID: "u1", OrganizationID: "org-a"}, "org-a", http.StatusTeapot},
		{"stale tab", &session.Session{ID: "s1", UserID: "u1", OrganizationID: "org-b"}, "org-a", http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := allowPendingOrganization(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusTeapot)
			}))
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set(orgHeader, tt.header)
			}
			if tt.sess != nil {
				req = withSession(req, tt.sess)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rr.Code)
			}
		})
	}
}
