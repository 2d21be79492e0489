package records

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/http/middleware"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/http/respond"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/tenancy"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/pkg/logging"
)

// Handler serves record reads to every member and record management to
// owners and admins.
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

// Routes mounts the record endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(tenancy.RoleOwner, tenancy.RoleAdmin, tenancy.RoleUser))
		r.Get("/products/{id}", h.Product)
		r.Get("/proposals/{id}", h.Proposal)
		r.Get("/visits/{id}", h.Visit)
		r.Get("/departments/{id}", h.Department)
		r.Post("/proposals", h.CreateProposal)
		r.Post("/visits", h.CreateVisit)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(tenancy.RoleOwner, tenancy.RoleAdmin))
		r.Post("/products", h.CreateProduct)
		r.Delete("/products/{id}", h.DeleteProduct)
		r.Post("/departments", h.CreateDepartment)
		r.Put("/departments/{id}", h.UpdateDepartment)
		r.Delete("/departments/{id}", h.DeleteDepartment)
		r.Post("/departments/{id}/members", h.AssignDepartment)
		r.Post("/members/invitations", h.InviteMember)
		r.Delete("/members/{id}", h.DeleteMember)
	})
}

func callerOf(r *http.Request) tenancy.Identity {
	id, _ := tenancy.IdentityFromContext(r.Context())
	return id
}

func (h *Handler) Product(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Product(r.Context(), chi.URLParam(r, "id"))
	h.answer(w, http.StatusOK, p, err)
}

func (h *Handler) Proposal(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Proposal(r.Context(), chi.URLParam(r, "id"))
	h.answer(w, http.StatusOK, p, err)
}

func (h *Handler) Visit(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Visit(r.Context(), chi.URLParam(r, "id"))
	h.answer(w, http.StatusOK, v, err)
}

func (h *Handler) Department(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Department(r.Context(), chi.URLParam(r, "id"))
	h.answer(w, http.StatusOK, d, err)
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var form ProductForm
	if !decode(w, r, &form) {
		return
	}
	h.done(w, http.StatusCreated, h.svc.CreateProduct(r.Context(), callerOf(r), form))
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	h.done(w, http.StatusNoContent, h.svc.DeleteProduct(r.Context(), callerOf(r), chi.URLParam(r, "id")))
}

func (h *Handler) CreateProposal(w http.ResponseWriter, r *http.Request) {
	var form ProposalForm
	if !decode(w, r, &form) {
		return
	}
	h.done(w, http.StatusCreated, h.svc.CreateProposal(r.Context(), callerOf(r), form))
}

func (h *Handler) CreateVisit(w http.ResponseWriter, r *http.Request) {
	var form VisitForm
	if !decode(w, r, &form) {
		return
	}
	h.done(w, http.StatusCreated, h.svc.CreateVisit(r.Context(), callerOf(r), form))
}

func (h *Handler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	var form DepartmentForm
	if !decode(w, r, &form) {
		return
	}
	h.done(w, http.StatusCreated, h.svc.CreateDepartment(r.Context(), callerOf(r), form))
}

func (h *Handler) UpdateDepartment(w http.ResponseWriter, r *http.Request) {
	var form DepartmentForm
	if !decode(w, r, &form) {
		return
	}
	h.done(w, http.StatusNoContent, h.svc.UpdateDepartment(r.Context(), callerOf(r), chi.URLParam(r, "id"), form))
}

func (h *Handler) DeleteDepartment(w http.ResponseWriter, r *http.Request) {
	h.done(w, http.StatusNoContent, h.svc.DeleteDepartment(r.Context(), callerOf(r), chi.URLParam(r, "id")))
}

func (h *Handler) AssignDepartment(w http.ResponseWriter, r *http.Request) {
	var form AssignForm
	if !decode(w, r, &form) {
		return
	}
	h.done(w, http.StatusNoContent, h.svc.AssignDepartment(r.Context(), callerOf(r), chi.URLParam(r, "id"), form))
}

func (h *Handler) InviteMember(w http.ResponseWriter, r *http.Request) {
	var form InviteForm
	if !decode(w, r, &form) {
		return
	}
	h.done(w, http.StatusAccepted, h.svc.InviteMember(r.Context(), callerOf(r), form))
}

func (h *Handler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	h.done(w, http.StatusNoContent, h.svc.DeleteMember(r.Context(), callerOf(r), chi.URLParam(r, "id")))
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := respond.Decode(r, dst); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (h *Handler) answer(w http.ResponseWriter, status int, payload any, err error) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, status, payload)
}

func (h *Handler) done(w http.ResponseWriter, status int, err error) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	respond.JSON(w, status, map[string]bool{"success": true})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		respond.Fields(w, "Please correct the highlighted fields", verr.Fields)
	case errors.Is(err, ErrNotFound):
		respond.Error(w, http.StatusNotFound, "Record not found")
	default:
		h.logger.Warn("record request failed", "error", err)
		respond.Upstream(w, err)
	}
}
