package auth

import (
	"net/http"
	"strings"

	"github.com/saitoboy/merenda-back-sub000/internal/platform/httpx"
	"github.com/saitoboy/merenda-back-sub000/internal/shared"
)

// Middleware resolves bearer tokens and enforces role requirements.
type Middleware struct {
	Service *Service
}

// RequireAuth rejects requests without a valid session and stores the actor
// in the request context.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		sess, err := m.Service.Resolve(r.Context(), token)
		if err != nil {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		actor := &shared.Actor{UserID: sess.UserID, Email: sess.Email, Role: sess.Role}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
	})
}

// RequireRoles allows only actors whose role is in the given set. It must be
// mounted after RequireAuth.
func (m Middleware) RequireRoles(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := shared.ActorFromContext(r.Context())
			if actor == nil {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			for _, role := range roles {
				if actor.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			httpx.RespondError(w, shared.ForbiddenError(roles, actor.Role))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
