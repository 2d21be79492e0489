package leads

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/http/respond"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/session"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/tenancy"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/pkg/logging"
)

// Handler serves the lead detail, lifecycle and history endpoints.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the lead endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/{leadID}", h.Detail)
	r.Post("/{leadID}/transitions", h.Transition)
	r.Get("/{leadID}/history", h.History)
	r.Delete("/{leadID}", h.Delete)
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

// Detail handles GET /leads/{leadID}.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity(w, r); !ok {
		return
	}
	d, err := h.svc.Detail(r.Context(), chi.URLParam(r, "leadID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, d)
}

// Transition handles POST /leads/{leadID}/transitions.
func (h *Handler) Transition(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var sub Submission
	if err := respond.Decode(r, &sub); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	result, err := h.svc.Transition(r.Context(), id, chi.URLParam(r, "leadID"), sub)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, result)
}

// Create handles POST /leads.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var form CreateForm
	if err := respond.Decode(r, &form); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.svc.Create(r.Context(), id, form); err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]string{"status": string(form.Status())})
}

type deleteRequest struct {
	Confirm string `json:"confirm"`
}

// Delete handles DELETE /leads/{leadID} with {"confirm": "<leadID>"}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req deleteRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.svc.Delete(r.Context(), id, chi.URLParam(r, "leadID"), req.Confirm); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// History handles GET /leads/{leadID}/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	history, err := h.svc.History(r.Context(), id.OrganizationID, chi.URLParam(r, "leadID"))
	if err != nil {
		h.logger.Error("failed to load lead history", "error", err)
		respond.Error(w, http.StatusInternalServerError, "could not load history")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"transitions": history})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		respond.Fields(w, "Please correct the highlighted fields", verr.Fields)
	case errors.Is(err, ErrLeadNotFound):
		respond.Error(w, http.StatusNotFound, "Lead not found")
	case errors.Is(err, ErrNotForward):
		respond.Error(w, http.StatusConflict, "A lead can only move forward in the funnel")
	case errors.Is(err, ErrForbidden):
		respond.Error(w, http.StatusForbidden, "Only owners and admins can delete leads")
	case errors.Is(err, ErrConfirmationMissing):
		respond.Error(w, http.StatusBadRequest, "Confirm the deletion by repeating the lead id")
	default:
		respond.Upstream(w, err)
	}
}
