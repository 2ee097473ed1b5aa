package auth

import (
	"net/http"
	"strings"

	"github.com/kazz187/labtrack/pkg/cerr"
	"github.com/kazz187/labtrack/pkg/clog"
)

// Authenticate requires a valid bearer token and stores the caller identity
// in the request context. It must run inside the cerr chi middleware.
func Authenticate(issuer *Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				cerr.SetNewJSONError(r.Context(), cerr.Unauthenticated, "missing credentials", nil)
				return
			}
			id, err := issuer.Verify(token)
			if err != nil {
				cerr.SetJSONError(r.Context(), err)
				return
			}
			clog.AddAttributes(r.Context(), map[string]any{
				clog.UserKey: id.Username,
				clog.RoleKey: string(id.Role),
			})
			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole rejects callers whose role is not one of roles.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := FromContext(r.Context())
			if !ok {
				cerr.SetNewJSONError(r.Context(), cerr.Unauthenticated, "missing credentials", nil)
				return
			}
			for _, role := range roles {
				if id.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			cerr.SetNewJSONError(r.Context(), cerr.PermissionDenied, "insufficient role", nil)
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	// EventSource cannot set headers, so the event stream passes the token
	// as a query parameter.
	return r.URL.Query().Get("access_token")
}
