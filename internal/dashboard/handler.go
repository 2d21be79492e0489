package dashboard

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/forms"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/http/respond"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/session"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/tenancy"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/pkg/logging"
)

var targetMessages = map[string]string{
	"userId":         "Choose a user",
	"sales":          "Sales must be a non-negative number",
	"visits":         "Visits must be a non-negative number",
	"proposals":      "Proposals must be a non-negative number",
	"qualifiedLeads": "Qualified leads must be a non-negative number",
}

type Handler struct {
	svc      *Service
	validate *validator.Validate
	logger   *logging.Logger
}

func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, validate: forms.New(), logger: logger}
}

// Routes mounts the dashboard and report endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/dashboard", h.Overview)
	r.Get("/reports/summary", h.SalesSummary)
	r.Get("/reports/users/{userID}", h.UserReport)
	r.Post("/targets", h.SetTargets)
}

func identity(w http.ResponseWriter, r *http.Request) (tenancy.Identity, bool) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "sign in required")
		return tenancy.Identity{}, false
	}
	id := sess.Identity()
	if !id.Complete() {
		respond.Error(w, http.StatusConflict, "select an organization first")
		return tenancy.Identity{}, false
	}
	return id, true
}

// Overview handles GET /dashboard.
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	o, err := h.svc.Overview(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, o)
}

// UserReport handles GET /reports/users/{userID}?date=2024-07-19.
func (h *Handler) UserReport(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	rep, err := h.svc.UserReport(r.Context(), id, chi.URLParam(r, "userID"), r.URL.Query().Get("date"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, rep)
}

// SalesSummary handles GET /reports/summary?date=2024-07-19.
func (h *Handler) SalesSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	rep, err := h.svc.SalesSummary(r.Context(), id, r.URL.Query().Get("date"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, rep)
}

// SetTargets handles POST /targets.
func (h *Handler) SetTargets(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var form TargetsForm
	if err := respond.Decode(r, &form); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(form); err != nil {
		respond.Fields(w, "Please correct the highlighted fields", forms.Fields(err, targetMessages))
		return
	}
	if err := h.svc.SetTargets(r.Context(), id, form); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrForbidden):
		respond.Error(w, http.StatusForbidden, "You do not have access to this report")
	case errors.Is(err, ErrInvalidDate):
		respond.Error(w, http.StatusBadRequest, "Dates look like 2024-07-19")
	default:
		h.logger.Warn("dashboard request failed", "error", err)
		respond.Upstream(w, err)
	}
}
