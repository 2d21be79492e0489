package session

import (
	"context"
	"errors"
	"time"

	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/crmapi"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/tenancy"
)

var (
	ErrSessionNotFound     = errors.New("session: not found")
	ErrUnknownOrganization = errors.New("session: user is not a member of that organization")
	ErrInvalidCookie       = errors.New("session: invalid cookie")
)

// Session is the server-side record of a signed-in user.
type Session struct {
	ID             string               `json:"id"`
	UserID         string               `json:"user_id"`
	OrganizationID string               `json:"organization_id,omitempty"`
	Role           tenancy.Role         `json:"role,omitempty"`
	AccessToken    string               `json:"access_token"`
	Organizations  []OrganizationChoice `json:"organizations,omitempty"`
	Views          map[string]ViewState `json:"views,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}

// OrganizationChoice is an organization the user may bind the session to.
type OrganizationChoice struct {
	ID   string       `json:"id"`
	Name string       `json:"name"`
	Role tenancy.Role `json:"role"`
}

// ViewState is what a list page remembers between requests.
type ViewState struct {
	Search   string `json:"search,omitempty"`
	Category string `json:"category,omitempty"`
	Page     int    `json:"page,omitempty"`
}

// Identity returns the caller identity the session carries.
func (s *Session) Identity() tenancy.Identity {
	return tenancy.Identity{
		UserID:         s.UserID,
		OrganizationID: s.OrganizationID,
		Role:           s.Role,
		AccessToken:    s.AccessToken,
	}
}

// View returns the stored state for a page kind.
func (s *Session) View(kind string) ViewState {
	if s.Views == nil {
		return ViewState{}
	}
	return s.Views[kind]
}

// choicesFor maps the backend organizations to the user's memberships.
func choicesFor(userID string, orgs []crmapi.Organization) []OrganizationChoice {
	out := make([]OrganizationChoice, 0, len(orgs))
	for _, o := range orgs {
		m, ok := o.MembershipOf(userID)
		if !ok {
			continue
		}
		role := tenancy.ParseRole(m.UserType)
		if role == "" {
			continue
		}
		id := m.OrganizationID
		if id == "" {
			id = o.ID
		}
		out = append(out, OrganizationChoice{ID: id, Name: o.Name, Role: role})
	}
	return out
}

// Store persists sessions.
type Store interface {
	Save(ctx context.Context, s *Session, ttl time.Duration) error
	Load(ctx context.Context, id string, ttl time.Duration) (*Session, error)
	Delete(ctx context.Context, id string) error
}

type ctxKey struct{}

// WithSession stores the session in context.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session loaded by the middleware, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}
