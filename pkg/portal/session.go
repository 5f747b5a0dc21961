package portal

import (
	"context"
	"path"
	"strings"

	"github.com/tendant/venue-admin/pkg/media"
)

// Session identifies the signed-in administrator
type Session struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	Role     string `json:"role,omitempty"`
}

// SessionFunc resolves the session of the current request. It returns
// media.ErrAuthRequired when there is none.
type SessionFunc func(ctx context.Context) (Session, error)

// InvalidateFunc is called after every successful write so cached list pages
// of the entity can be dropped.
type InvalidateFunc func(tenantID, entity string)

type sessionKey struct{}

// WithSession stores s in ctx
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session stored by WithSession
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

// ContextSession is the default SessionFunc. It reads the session placed in
// the context by the HTTP auth middleware.
func ContextSession(ctx context.Context) (Session, error) {
	s, ok := SessionFromContext(ctx)
	if !ok || s.UserID == "" || s.TenantID == "" {
		return Session{}, media.ErrAuthRequired
	}
	return s, nil
}

// TenantFolder is the object path prefix under which a tenant's attachments
// are stored. Path separators in the id are replaced so a tenant cannot
// address another tenant's folder.
func TenantFolder(tenantID string) string {
	folder := strings.NewReplacer("/", "_", "\\", "_").Replace(strings.TrimSpace(tenantID))
	if folder == "" || folder == "." || folder == ".." {
		return "_"
	}
	return folder
}

// tenantConstraints places uploads of c inside the tenant's folder
func tenantConstraints(tenantID string, c media.Constraints) media.Constraints {
	c.Folder = path.Join(TenantFolder(tenantID), strings.Trim(c.Folder, "/"))
	return c
}
