package auth

import (
	"context"
	"time"
)

// Context carries the verified identity attached to a request. The subject is
// an opaque reference minted by the identity provider; no credentials are
// ever stored alongside it.
type Context struct {
	Subject   string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Role names recognized by the pipeline.
const (
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// HasRole checks if the current subject has the given role.
func HasRole(authCtx *Context, role string) bool {
	if authCtx == nil {
		return false
	}
	for _, r := range authCtx.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsModerator reports whether the subject may perform moderation actions.
func IsModerator(authCtx *Context) bool {
	return HasRole(authCtx, RoleModerator) || HasRole(authCtx, RoleAdmin)
}

type contextKey struct{}

// NewContext returns a new context with the given auth context attached.
func NewContext(ctx context.Context, authCtx *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, authCtx)
}

// FromContext extracts the auth context, or an empty guest context.
func FromContext(ctx context.Context) *Context {
	if authCtx, ok := ctx.Value(contextKey{}).(*Context); ok && authCtx != nil {
		return authCtx
	}
	return &Context{}
}
