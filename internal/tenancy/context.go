package tenancy

import (
	"context"
	"strings"
)

type ctxKey string

const (
	orgKey      ctxKey = "crm.org_id"
	identityKey ctxKey = "crm.identity"
)

// Role is the caller's membership type inside an organization.
type Role string

const (
	RoleOwner Role = "OWNER"
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// ParseRole normalizes a role string; unknown values yield "".
func ParseRole(s string) Role {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleOwner:
		return RoleOwner
	case RoleAdmin:
		return RoleAdmin
	case RoleUser:
		return RoleUser
	default:
		return ""
	}
}

// Elevated reports whether the role sees organization-wide data.
func (r Role) Elevated() bool {
	return r == RoleOwner || r == RoleAdmin
}

// Identity is who is calling and on behalf of which tenant.
type Identity struct {
	UserID         string
	OrganizationID string
	Role           Role
	AccessToken    string
}

// Complete reports whether every value needed for a scoped fetch is known.
func (i Identity) Complete() bool {
	return i.UserID != "" && i.OrganizationID != "" && i.Role != ""
}

// WithOrgID stores the org id in context.
func WithOrgID(ctx context.Context, orgID string) context.Context {
	return context.WithValue(ctx, orgKey, orgID)
}

// OrgIDFromContext extracts the org id if present.
func OrgIDFromContext(ctx context.Context) (string, bool) {
	if id, ok := IdentityFromContext(ctx); ok && id.OrganizationID != "" {
		return id.OrganizationID, true
	}
	val := ctx.Value(orgKey)
	if val == nil {
		return "", false
	}
	orgID, ok := val.(string)
	return orgID, ok && orgID != ""
}

// WithIdentity stores the caller identity (and its org id) in context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	ctx = context.WithValue(ctx, identityKey, id)
	if id.OrganizationID != "" {
		ctx = WithOrgID(ctx, id.OrganizationID)
	}
	return ctx
}

// IdentityFromContext extracts the caller identity if present.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
