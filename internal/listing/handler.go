package listing

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/http/respond"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/session"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/pkg/logging"
)

// ViewSaver persists list state per session and page kind.
type ViewSaver interface {
	SaveView(ctx context.Context, sess *session.Session, kind string, view session.ViewState) error
}

// Handler serves GET /lists/{kind}.
type Handler struct {
	listers map[Kind]Lister
	views   ViewSaver
	logger  *logging.Logger
}

func NewHandler(listers map[Kind]Lister, views ViewSaver, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{listers: listers, views: views, logger: logger}
}

// NextView applies query parameters to the stored view. Any change to the
// search text or category resets the page to 1.
func NextView(prev session.ViewState, q url.Values) session.ViewState {
	next := prev
	if q.Has("search") {
		next.Search = q.Get("search")
	}
	if q.Has("category") {
		next.Category = q.Get("category")
	}
	switch {
	case next.Search != prev.Search || next.Category != prev.Category:
		next.Page = 1
	case q.Has("page"):
		next.Page = ParsePage(q.Get("page"))
	}
	if next.Page < 1 {
		next.Page = 1
	}
	return next
}

// List handles GET /lists/{kind}?search=&category=&page=&refresh=1.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	kind, err := ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		respond.Error(w, http.StatusNotFound, "unknown list")
		return
	}
	lister, ok := h.listers[kind]
	if !ok {
		respond.Error(w, http.StatusNotFound, "unknown list")
		return
	}
	sess, ok := session.FromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "sign in required")
		return
	}

	q := r.URL.Query()
	prev := sess.View(string(kind))
	view := NextView(prev, q)
	refresh := q.Get("refresh") == "1"

	page := lister.List(r.Context(), sess.Identity(), view, refresh)

	if view != prev && h.views != nil {
		if err := h.views.SaveView(r.Context(), sess, string(kind), view); err != nil {
			h.logger.Warn("failed to save list view", "kind", kind, "error", err)
		}
	}

	status := http.StatusOK
	if page.PageState() == StateError {
		status = http.StatusBadGateway
	}
	respond.JSON(w, status, page)
}
