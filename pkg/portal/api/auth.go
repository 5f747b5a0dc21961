package api

import (
	"net/http"

	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/tendant/venue-admin/pkg/portal"
)

// JWT claim names carrying the session
const (
	ClaimSubject  = "sub"
	ClaimTenantID = "tenant_id"
	ClaimRole     = "role"
)

// NewJWTAuth creates an HS256 verifier/signer for secret
func NewJWTAuth(secret string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(secret), nil)
}

// IssueToken signs a token carrying s. Login flows live outside the portal;
// this is used by tooling and tests.
func IssueToken(ja *jwtauth.JWTAuth, s portal.Session) (string, error) {
	claims := map[string]interface{}{
		ClaimSubject:  s.UserID,
		ClaimTenantID: s.TenantID,
	}
	if s.Role != "" {
		claims[ClaimRole] = s.Role
	}
	_, token, err := ja.Encode(claims)
	return token, err
}

// Authenticator turns verified JWT claims into a portal.Session. It must run
// after jwtauth.Verifier. Requests without a valid token get 401.
func Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			unauthorized(w, r)
			return
		}

		sub, _ := claims[ClaimSubject].(string)
		tenantID, _ := claims[ClaimTenantID].(string)
		role, _ := claims[ClaimRole].(string)
		if sub == "" || tenantID == "" {
			unauthorized(w, r)
			return
		}

		ctx := portal.WithSession(r.Context(), portal.Session{UserID: sub, TenantID: tenantID, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, ErrorResponse{Code: CodeAuthRequired, Message: "authentication required"})
}
