package session

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/crmapi"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/http/respond"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/pkg/logging"
)

// Authenticator is the part of the backend client used to sign users in.
type Authenticator interface {
	Login(ctx context.Context, creds crmapi.Credentials) (*crmapi.LoginResult, error)
	UserOrganizations(ctx context.Context, token string) ([]crmapi.Organization, error)
}

// Handler serves login, organization selection and sign-out.
type Handler struct {
	auth     Authenticator
	manager  *Manager
	validate *validator.Validate
	logger   *logging.Logger
}

func NewHandler(auth Authenticator, manager *Manager, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{auth: auth, manager: manager, validate: validator.New(), logger: logger}
}

// View is the session as shown to the browser; the access token stays on
// the server.
type View struct {
	UserID            string               `json:"userId"`
	OrganizationID    string               `json:"organizationId,omitempty"`
	Role              string               `json:"role,omitempty"`
	Organizations     []OrganizationChoice `json:"organizations"`
	NeedsOrganization bool                 `json:"needsOrganization"`
}

func viewOf(s *Session) View {
	orgs := s.Organizations
	if orgs == nil {
		orgs = []OrganizationChoice{}
	}
	return View{
		UserID:            s.UserID,
		OrganizationID:    s.OrganizationID,
		Role:              string(s.Role),
		Organizations:     orgs,
		NeedsOrganization: s.OrganizationID == "",
	}
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var creds crmapi.Credentials
	if err := respond.Decode(r, &creds); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(creds); err != nil {
		respond.Fields(w, "Invalid credentials", map[string]string{"email": "Email and password are required"})
		return
	}

	result, err := h.auth.Login(r.Context(), creds)
	if err != nil {
		h.logger.Warn("login rejected", "error", err)
		var httpErr *crmapi.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode < 500 {
			respond.Error(w, http.StatusUnauthorized, crmapi.UserMessage(err))
			return
		}
		respond.Upstream(w, err)
		return
	}

	orgs, err := h.auth.UserOrganizations(r.Context(), result.Token)
	if err != nil {
		respond.Upstream(w, err)
		return
	}

	sess, err := h.manager.Begin(r.Context(), result.User.ID, result.Token, orgs)
	if err != nil {
		h.logger.Error("failed to start session", "error", err)
		respond.Error(w, http.StatusInternalServerError, "could not start session")
		return
	}
	if err := h.manager.IssueCookie(w, sess); err != nil {
		h.logger.Error("failed to issue session cookie", "error", err)
		respond.Error(w, http.StatusInternalServerError, "could not start session")
		return
	}
	respond.JSON(w, http.StatusOK, viewOf(sess))
}

type selectOrganizationRequest struct {
	OrganizationID string `json:"organizationId" validate:"required"`
}

// SelectOrganization handles POST /auth/organization.
func (h *Handler) SelectOrganization(w http.ResponseWriter, r *http.Request) {
	sess, ok := FromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "sign in required")
		return
	}
	var req selectOrganizationRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respond.Fields(w, "Select an organization", map[string]string{"organizationId": "Organization is required"})
		return
	}

	sess, err := h.manager.SelectOrganization(r.Context(), sess, req.OrganizationID)
	if errors.Is(err, ErrUnknownOrganization) {
		respond.Error(w, http.StatusForbidden, "You are not a member of that organization")
		return
	}
	if err != nil {
		h.logger.Error("failed to select organization", "error", err)
		respond.Error(w, http.StatusInternalServerError, "could not update session")
		return
	}
	respond.JSON(w, http.StatusOK, viewOf(sess))
}

// Current handles GET /auth/session.
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	sess, ok := FromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "sign in required")
		return
	}
	respond.JSON(w, http.StatusOK, viewOf(sess))
}

// Logout handles POST /auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := FromContext(r.Context()); ok {
		if err := h.manager.End(r.Context(), sess.ID); err != nil {
			h.logger.Error("failed to end session", "error", err)
		}
	}
	h.manager.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
