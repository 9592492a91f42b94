package middleware

import (
	"net/http"
	"slices"
	"strings"

	"campuscrave/auth"
	"campuscrave/models"
	"campuscrave/utils"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

// Guard authenticates requests against the identity store.
type Guard struct {
	Identity *auth.Store
	Tokens   *auth.Tokens
}

func New(identity *auth.Store, tokens *auth.Tokens) *Guard {
	return &Guard{Identity: identity, Tokens: tokens}
}

// Authenticate resolves the bearer token to a live session and stores it in the request context.
// Browsers cannot set headers on a websocket upgrade, so those pass the token as ?token=.
func (g *Guard) Authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			utils.RespondWithError(w, http.StatusUnauthorized, "Missing token")
			return
		}

		sess, err := g.Identity.Resolve(g.Tokens, tokenString)
		if err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		next(w, r.WithContext(auth.WithSession(r.Context(), sess)), ps)
	}
}

// RequireRole authenticates and then admits only the listed roles.
func (g *Guard) RequireRole(next httprouter.Handle, roles ...models.Role) httprouter.Handle {
	return g.Authenticate(func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		sess, _ := auth.SessionFrom(r.Context())
		if !slices.Contains(roles, sess.User.Role) {
			utils.RespondWithError(w, http.StatusForbidden, "Forbidden")
			return
		}
		next(w, r, ps)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if websocket.IsWebSocketUpgrade(r) {
		return r.URL.Query().Get("token")
	}
	return ""
}
