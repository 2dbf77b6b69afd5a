package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/ukmbjb/banjarbaru-marketplace-umkm-online/internal/models"
	"github.com/ukmbjb/banjarbaru-marketplace-umkm-online/internal/store"
)

type authContextKey struct{}

type authInfo struct {
	Session  models.Session
	Identity models.Identity
	Role     models.Role
}

// AuthMiddleware resolves the bearer session and the caller's effective
// role before routing. Role lookup failures degrade to customer rather
// than failing the request; gated endpoints then deny on their own
// terms.
func AuthMiddleware(st store.Store, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionTokenFromRequest(r)
		if token == "" {
			if isPublicEndpoint(r) {
				next.ServeHTTP(w, r)
				return
			}
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
			return
		}

		session, identity, err := st.GetSession(r.Context(), token)
		if err != nil {
			if errors.Is(err, store.ErrSessionNotFound) {
				if isPublicEndpoint(r) {
					next.ServeHTTP(w, r)
					return
				}
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid session")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}

		role := models.RoleCustomer
		assignment, err := st.GetRoleAssignment(r.Context(), identity.UserID)
		if err != nil {
			log.Printf("role lookup failed for user %s: %v", identity.UserID, err)
		} else {
			role = models.EffectiveRole(assignment)
		}

		ctx := context.WithValue(r.Context(), authContextKey{}, authInfo{
			Session:  session,
			Identity: identity,
			Role:     role,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func authFromContext(ctx context.Context) (authInfo, bool) {
	value := ctx.Value(authContextKey{})
	if value == nil {
		return authInfo{}, false
	}
	info, ok := value.(authInfo)
	if !ok {
		return authInfo{}, false
	}
	return info, true
}

// requireRole gates a handler behind an allow-list. Missing session and
// wrong role get distinct responses: 401 redirects the caller to sign
// in, 403 tells an authenticated caller this surface is not theirs.
func requireRole(w http.ResponseWriter, r *http.Request, allowed ...models.Role) (authInfo, bool) {
	info, ok := authFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return authInfo{}, false
	}
	for _, role := range allowed {
		if info.Role == role {
			return info, true
		}
	}
	writeError(w, http.StatusForbidden, "access_denied", "role not allowed")
	return authInfo{}, false
}

func sessionTokenFromRequest(r *http.Request) string {
	if token := bearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	return strings.TrimSpace(r.Header.Get("X-Session-Token"))
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}

func isPublicEndpoint(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/metrics":
		return true
	case "/api/auth/signup", "/api/auth/signin", "/api/auth/signout":
		return true
	case "/api/stores", "/api/products":
		return r.Method == http.MethodGet
	}
	if r.Method == http.MethodOptions {
		return true
	}
	// Public store detail pages, but never the seller's own-store view.
	if r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/stores/") && !strings.HasPrefix(r.URL.Path, "/api/stores/mine") {
		return true
	}
	return false
}
