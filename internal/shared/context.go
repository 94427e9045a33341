package shared

import "context"

// Identity describes the authenticated actor as resolved by the upstream
// auth collaborator. The core never re-checks authorization; it only scopes
// data access by OrgID.
type Identity struct {
	OrgID  int64
	UserID int64
	Role   string
}

// Valid reports whether both tenant and user were resolved.
func (id Identity) Valid() bool {
	return id.OrgID > 0 && id.UserID > 0
}

type identityContextKey struct{}

// ContextWithIdentity stores the identity in context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity from context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}
